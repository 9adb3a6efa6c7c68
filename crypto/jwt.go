package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardacey/Lexo/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Fields must be exported for JSON serialization.
type jwtCustomClaims struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is who a verified token belongs to.
type Identity struct {
	Id       string
	Username string
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) Generate(identity Identity, now time.Time) (string, error) {
	claims := jwtCustomClaims{
		Id:       identity.Id,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)

	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}

	return signedToken, nil
}

func (m *JWTManager) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningAlg):
			return Identity{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return Identity{}, domain.ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Identity{}, domain.ErrCorruptedToken
		default:
			return Identity{}, fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
		}
	}

	if claims, ok := token.Claims.(*jwtCustomClaims); ok && token.Valid && claims.Id != "" {
		return Identity{Id: claims.Id, Username: claims.Username}, nil
	}

	return Identity{}, domain.ErrCorruptedToken
}
