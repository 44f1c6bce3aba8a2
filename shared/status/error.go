package status

import (
	"errors"
	"fmt"
)

const (
	// NotFound indicates that the key record wasn't found in the store
	NotFound Type = 1

	// Internal indicates some generic internal error
	Internal Type = 2

	// InvalidArgument indicates some generic invalid argument error
	InvalidArgument Type = 3

	// IOFailure indicates that the key store could not be read or written
	IOFailure Type = 4

	// DecodeFailure indicates that a submitted field is not valid base64 or has the wrong length
	DecodeFailure Type = 5

	// SignatureInvalid indicates that a signature did not verify under the expected parent key
	SignatureInvalid Type = 6

	// MalformedStorage indicates that persisted key material is present but cannot be parsed
	MalformedStorage Type = 7
)

// Type is a type of the Error
type Type int32

// String returns a short name of the error type used in logs and metric attributes
func (t Type) String() string {
	switch t {
	case NotFound:
		return "not_found"
	case Internal:
		return "internal"
	case InvalidArgument:
		return "invalid_argument"
	case IOFailure:
		return "io_failure"
	case DecodeFailure:
		return "decode_failure"
	case SignatureInvalid:
		return "signature_invalid"
	case MalformedStorage:
		return "malformed_storage"
	default:
		return "unknown"
	}
}

var ErrSelfCheckFailed = errors.New("freshly produced signature does not verify")

// Error is an internal error
type Error struct {
	ErrorType Type
	Message   string
	cause     error
}

// Type returns the Type of the error
func (e *Error) Type() Type {
	return e.ErrorType
}

// Error is an error string
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Errorf returns Error(ErrorType, fmt.Sprintf(format, a...)).
func Errorf(errorType Type, format string, a ...interface{}) error {
	return &Error{
		ErrorType: errorType,
		Message:   fmt.Sprintf(format, a...),
	}
}

// Wrapf is like Errorf but keeps cause reachable through errors.Is and errors.As.
func Wrapf(cause error, errorType Type, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		ErrorType: errorType,
		Message:   msg,
		cause:     cause,
	}
}

// FromError returns Error, true if the provided error is of type of Error. nil, false otherwise
func FromError(err error) (s *Error, ok bool) {
	if err == nil {
		return nil, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// TypeOf returns the Type of err or Internal if err carries no status
func TypeOf(err error) Type {
	if s, ok := FromError(err); ok && s != nil {
		return s.Type()
	}
	return Internal
}

// NewKeyNotFoundError creates a new Error with NotFound type for a missing key record
func NewKeyNotFoundError(name string) error {
	return Errorf(NotFound, "key record not found: %s", name)
}

// NewJournalistNotFoundError creates a new Error with NotFound type for a missing accepted journalist
func NewJournalistNotFoundError(id string) error {
	return Errorf(NotFound, "journalist not found: %s", id)
}

// NewDecodeError creates a new Error with DecodeFailure type naming the offending field
func NewDecodeError(field string, format string, a ...interface{}) error {
	return Errorf(DecodeFailure, "%s: %s", field, fmt.Sprintf(format, a...))
}

// NewSignatureInvalidError creates a new Error with SignatureInvalid type
func NewSignatureInvalidError(subject string) error {
	return Errorf(SignatureInvalid, "signature of %s does not verify", subject)
}
