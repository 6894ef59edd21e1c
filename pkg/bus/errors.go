package bus

import "fmt"

// Well-known error names, mirrored on the org.freedesktop.DBus.Error.*
// namespace the wire model borrows its vocabulary from.
const (
	ErrNameAddressInUse  = "org.freedesktop.DBus.Error.AddressInUse"
	ErrNameInvalidArgs   = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrNameNoReply       = "org.freedesktop.DBus.Error.NoReply"
	ErrNameFailed        = "org.freedesktop.DBus.Error.Failed"
	ErrNameUnknownMethod = "org.freedesktop.DBus.Error.UnknownMethod"
	ErrNameUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"
	ErrNameNoMemory      = "org.freedesktop.DBus.Error.NoMemory"
	ErrNameDisconnected  = "org.freedesktop.DBus.Error.Disconnected"
)

// Error is a method-call error carried back over the wire as an error
// frame: a well-known name plus a human-readable message, the same shape
// a peer on the other end of the connection would produce.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// NewError builds an Error with the given well-known name.
func NewError(name, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

// AddressInUse reports that a name was already claimed by another peer.
func AddressInUse(name string) *Error {
	return NewError(ErrNameAddressInUse, "name %q is already in use", name)
}

// InvalidArgument reports a malformed or out-of-range call argument.
func InvalidArgument(format string, args ...any) *Error {
	return NewError(ErrNameInvalidArgs, format, args...)
}

// CallTimeout reports that no reply arrived before the caller's deadline.
func CallTimeout(serial string) *Error {
	return NewError(ErrNameNoReply, "no reply received for call %s", serial)
}

// TransportFailure reports a connection-level failure (read/write error,
// malformed frame, short write) that aborted an in-flight call.
func TransportFailure(err error) *Error {
	return NewError(ErrNameFailed, "transport failure: %v", err)
}

// Disconnected reports that the peer's connection is gone.
func Disconnected() *Error {
	return &Error{Name: ErrNameDisconnected, Message: "peer disconnected"}
}
