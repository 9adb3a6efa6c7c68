package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)

var (
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
)

var (
	UnexpectedPublishError = errors.New("unexpected-publish-error")
	ErrPublisherClosed     = errors.New("publisher-closed")
)
