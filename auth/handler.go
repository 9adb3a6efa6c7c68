package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ardacey/Lexo/domain"
	"github.com/ardacey/Lexo/shared/logger"
	"github.com/gin-gonic/gin"
)

var (
	ErrMissingTokenStr = "missing-token"
	ErrExpiredTokenStr = "expired-token"
	ErrBadTokenStr     = "bad-token"
	ErrUnknownStr      = "unknown-error"
)

type authHandler struct {
	tokens       TokenManager
	cookieMaxAge time.Duration
}

func NewAuthHandler(tokens TokenManager, cookieMaxAge time.Duration) *authHandler {
	return &authHandler{tokens: tokens, cookieMaxAge: cookieMaxAge}
}

// tokenFrom reads the session cookie, falling back to a bearer header for
// clients that cannot send cookies on the websocket handshake.
func tokenFrom(ctx *gin.Context) (string, bool) {
	if token, err := ctx.Cookie("token"); err == nil && token != "" {
		return token, true
	}
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token, true
	}
	return "", false
}

func (ah *authHandler) RequireAuthMiddleware(trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := tokenFrom(ctx)
		if !ok {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}
		identity, err := ah.tokens.Verify(token)

		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg), errors.Is(err, domain.ErrInvalidTokenSignature), errors.Is(err, domain.ErrCorruptedToken):
				logger.Warningf("[Auth] forged or corrupted token from %s", ctx.ClientIP())
				time.Sleep(trollTime)
				ctx.Status(http.StatusInternalServerError)
				ctx.Abort()
			case errors.Is(err, domain.ErrExpiredToken):
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
				ctx.Abort()
			default:
				logger.Criticalf("[Auth] token verification failed: %v", err)
				ctx.String(http.StatusInternalServerError, ErrUnknownStr)
				ctx.Abort()
			}

			return
		}

		ctx.Set("id", identity.Id)
		ctx.Set("username", identity.Username)
		ctx.Next()
	}
}

func (ah *authHandler) RefreshSessionHandler(ctx *gin.Context) {
	token, ok := tokenFrom(ctx)
	if !ok {
		ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
		return
	}

	identity, err := ah.tokens.Verify(token)
	if err != nil {
		ctx.String(http.StatusUnauthorized, ErrBadTokenStr)
		return
	}

	newToken, err := ah.tokens.Generate(identity, time.Now())
	if err != nil {
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie("token", newToken, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) LogoutHandler(ctx *gin.Context) {
	ctx.SetCookie("token", "", -1, "/", "", true, true)
	ctx.Status(http.StatusOK)
}
