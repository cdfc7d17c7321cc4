package catalogx

import "github.com/cockroachdb/errors"

// ErrorCode represents specific error codes for catalog fetch operations.
type ErrorCode int

const (
	// ErrCodeTransport is returned when the search endpoint is unreachable
	// or replies with a non-success HTTP status.
	ErrCodeTransport ErrorCode = iota + 1000

	// ErrCodeProtocol is returned when a response parses but carries no
	// success indicator or no data member.
	ErrCodeProtocol

	// ErrCodeTimeout is returned when a fetch times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when a fetch is canceled.
	ErrCodeCanceled
)

// String returns the human-readable string representation of the error code.
// This implements the fmt.Stringer interface.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeTransport:
		return "transport failure"
	case ErrCodeProtocol:
		return "protocol failure"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Common errors that can be returned by fetch operations.
var (
	// ErrTransport is returned when the search endpoint cannot be reached
	// or answers with a non-success status.
	ErrTransport = newErrorWithCode(ErrCodeTransport, "catalogx: transport failure")

	// ErrProtocol is returned when the response envelope is malformed.
	ErrProtocol = newErrorWithCode(ErrCodeProtocol, "catalogx: malformed response")

	// ErrTimeout is returned when a fetch times out.
	ErrTimeout = newErrorWithCode(ErrCodeTimeout, "catalogx: operation timed out")

	// ErrCanceled is returned when a fetch is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "catalogx: operation canceled")
)
