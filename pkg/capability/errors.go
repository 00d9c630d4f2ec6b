package capability

import "errors"

var (
	// ErrDuplicateCapability is returned when a (namespace, function) pair is registered twice.
	ErrDuplicateCapability = errors.New("duplicate capability")
	// ErrRegistrySealed is returned when registering after Seal.
	ErrRegistrySealed = errors.New("registry is sealed")
	// ErrInvalidDescriptor is returned for descriptors that cannot be dispatched.
	ErrInvalidDescriptor = errors.New("invalid capability descriptor")
)

// Error is a failure raised by a capability while it runs.
// The dispatcher reports it verbatim and never inspects the cause.
type Error struct {
	Message string
	Err     error
}

// NewError creates a capability error wrapping an optional cause.
func NewError(message string, cause error) *Error {
	return &Error{Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
