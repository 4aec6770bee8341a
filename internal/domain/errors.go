package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, caller-visible classification of a failure.
type ErrorCode string

const (
	// CodeAuth covers missing/invalid/expired credentials and ownership failures.
	CodeAuth ErrorCode = "AUTH_ERROR"
	// CodeState means the operation is illegal for the current session/block status.
	CodeState ErrorCode = "STATE_ERROR"
	// CodeValidation means the payload failed the type-specific schema check.
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	// CodeNotFound means a session/block/instance id did not resolve.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeConflict means an optimistic concurrency retry was exhausted.
	CodeConflict ErrorCode = "CONFLICT"
	// CodeTransient marks storage timeouts and other retryable failures.
	CodeTransient ErrorCode = "TRANSIENT_ERROR"
)

// Error carries a stable code alongside the message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func AuthErrorf(format string, args ...any) *Error {
	return newError(CodeAuth, format, args...)
}

func StateErrorf(format string, args ...any) *Error {
	return newError(CodeState, format, args...)
}

func ValidationErrorf(format string, args ...any) *Error {
	return newError(CodeValidation, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

func ConflictErrorf(format string, args ...any) *Error {
	return newError(CodeConflict, format, args...)
}

func TransientErrorf(format string, args ...any) *Error {
	return newError(CodeTransient, format, args...)
}

// CodeOf extracts the classification of err, or CodeTransient for
// unclassified failures (safe-to-retry is the conservative default for
// storage-layer surprises).
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeTransient
}

// IsCode reports whether err carries the given classification.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Store-level sentinels. Infrastructure returns these; services translate
// them into the caller-facing taxonomy above.
var (
	// ErrVersionConflict is returned by a results compare-and-swap whose
	// expected version no longer matches.
	ErrVersionConflict = errors.New("results version conflict")
	// ErrStatusConflict is returned by a status compare-and-swap whose
	// expected previous value no longer matches.
	ErrStatusConflict = errors.New("status conflict")
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBlockNotFound is returned when a block id does not resolve.
	ErrBlockNotFound = errors.New("session block not found")
	// ErrInstanceNotFound is returned when an instance id does not resolve.
	ErrInstanceNotFound = errors.New("question instance not found")
)
