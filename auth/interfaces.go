package auth

import (
	"time"

	"github.com/ardacey/Lexo/crypto"
)

type TokenManager interface {
	Generate(identity crypto.Identity, now time.Time) (string, error)
	Verify(token string) (crypto.Identity, error)
}
