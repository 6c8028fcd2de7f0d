package apperrors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrAdvisorUnavailable = errors.New("advisor unavailable")
	// ErrStaleReply marks an advisor reply for a session or stuck episode
	// that is no longer current.
	ErrStaleReply = errors.New("stale advisor reply")
)
