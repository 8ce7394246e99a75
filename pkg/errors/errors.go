package errors

import "fmt"

// ErrorType represents the kinds of failure the checkpoint and display layers can hit
type ErrorType string

const (
	ErrorTypeMissing  ErrorType = "missing"
	ErrorTypeCorrupt  ErrorType = "corrupt"
	ErrorTypeWrite    ErrorType = "write"
	ErrorTypeTerminal ErrorType = "terminal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error is a checkpoint or display error with type information
type Error struct {
	Type    ErrorType
	Message string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errorType ErrorType, path, message string, err error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Path:    path,
		Err:     err,
	}
}

// IsRecoverable reports whether an error of this type is handled locally
// instead of being surfaced to the orchestrator
func IsRecoverable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeMissing, ErrorTypeCorrupt, ErrorTypeTerminal:
		return true
	case ErrorTypeWrite:
		return false
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not an *Error
func TypeOf(err error) ErrorType {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Type
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrorTypeUnknown
}
