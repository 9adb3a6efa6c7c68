package game

import "errors"

var (
	ErrRoomNotFound      = errors.New("room-not-found")
	ErrPlayerNotFound    = errors.New("player-not-found")
	ErrRoomFull          = errors.New("room-full")
	ErrGameNotInProgress = errors.New("game-not-in-progress")
	ErrGameAlreadyEnded  = errors.New("game-already-ended")
	ErrNotBattleRoyale   = errors.New("not-battle-royale")
	ErrPlayerBusy        = errors.New("player-busy")
	ErrStatsUnavailable  = errors.New("stats-unavailable")
)

// Word submission errors
var (
	ErrWordTooShort          = errors.New("word-too-short")
	ErrWordAlreadyUsed       = errors.New("word-already-used")
	ErrInsufficientLetters   = errors.New("insufficient-letters")
	ErrInvalidDictionaryWord = errors.New("invalid-dictionary-word")
	ErrViewerCannotSubmit    = errors.New("viewer-cannot-submit")
	ErrPlayerEliminated      = errors.New("player-eliminated")
)

// Invite errors
var (
	ErrInviteAlreadyExists  = errors.New("invite-already-exists")
	ErrInviteNotFound       = errors.New("invite-not-found")
	ErrInviteNotAccepted    = errors.New("invite-not-accepted")
	ErrNotInviteParticipant = errors.New("not-invite-participant")
	ErrCannotInviteSelf     = errors.New("cannot-invite-self")
)

// Practice errors
var (
	ErrPracticeNotFound = errors.New("practice-not-found")
	ErrPracticeEnded    = errors.New("practice-ended")
)

// Connection errors
var (
	ErrTooManyConnections = errors.New("too-many-connections")
	ErrSendBufferFull     = errors.New("send-buffer-full")
	ErrConnectionClosed   = errors.New("connection-closed")
	ErrRateLimited        = errors.New("rate-limited")
	ErrBadMessage         = errors.New("bad-message")
	ErrNotYourPlayer      = errors.New("not-your-player")
)

var knownErrors = []error{
	ErrRoomNotFound, ErrPlayerNotFound, ErrRoomFull, ErrGameNotInProgress,
	ErrGameAlreadyEnded, ErrNotBattleRoyale, ErrPlayerBusy, ErrStatsUnavailable,
	ErrWordTooShort, ErrWordAlreadyUsed, ErrInsufficientLetters,
	ErrInvalidDictionaryWord, ErrViewerCannotSubmit, ErrPlayerEliminated,
	ErrInviteAlreadyExists, ErrInviteNotFound, ErrInviteNotAccepted,
	ErrNotInviteParticipant, ErrCannotInviteSelf,
	ErrTooManyConnections, ErrSendBufferFull, ErrConnectionClosed,
	ErrRateLimited, ErrBadMessage, ErrNotYourPlayer,
	ErrPracticeNotFound, ErrPracticeEnded,
}

// ErrorCode returns the wire code of a game error, or "unknown-error".
func ErrorCode(err error) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "unknown-error"
}

// IsDictionaryError reports whether a submission failed the dictionary
// lookup rather than a length or pool check. Clients render the two
// differently.
func IsDictionaryError(err error) bool {
	return errors.Is(err, ErrInvalidDictionaryWord)
}
