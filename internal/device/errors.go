package device

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures of the board link
type Kind string

const (
	PermissionDenied Kind = "permission_denied"
	DeviceNotFound   Kind = "device_not_found"
	Radio            Kind = "radio"
	ServiceNotFound  Kind = "service_not_found"
	NotConnected     Kind = "not_connected"
	Transmit         Kind = "transmit"
	Unsupported      Kind = "unsupported"
)

// Error is a classified failure. Msg and Err are optional.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, compared by Kind
var (
	ErrPermissionDenied = &Error{Kind: PermissionDenied}
	ErrDeviceNotFound   = &Error{Kind: DeviceNotFound}
	ErrRadio            = &Error{Kind: Radio}
	ErrServiceNotFound  = &Error{Kind: ServiceNotFound}
	ErrNotConnected     = &Error{Kind: NotConnected}
	ErrTransmit         = &Error{Kind: Transmit}
	ErrUnsupported      = &Error{Kind: Unsupported}
)

// Newf creates a classified error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it reachable through errors.Unwrap
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind of the first classified error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return ServiceNotFound
	}
	return ""
}

// NotFoundError represents an error when the expected GATT resource is missing on the peer
type NotFoundError struct {
	Resource string   // "service", "characteristic"
	UUIDs    []string // [serviceUUID] or [serviceUUID, charUUID]
	Reason   string   // optional, e.g. "not writable without response"
}

func (e *NotFoundError) Error() string {
	var msg string
	switch len(e.UUIDs) {
	case 0:
		msg = fmt.Sprintf("%s not found", e.Resource)
	case 1:
		msg = fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	default:
		msg = fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is reports NotFoundError as ErrServiceNotFound: the peer is not the expected device class.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrServiceNotFound
}

// NormalizeError maps known backend error strings to the classified errors above.
// It ensures consistent handling even if the upstream libraries change messages slightly.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "unauthorized"),
		containsIgnoreCase(msg, "permission denied"),
		containsIgnoreCase(msg, "operation not permitted"),
		containsIgnoreCase(msg, "not authorized"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case containsIgnoreCase(msg, "device not connected"),
		containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "is bluetooth turned on"),
		containsIgnoreCase(msg, "bluetooth is turned off"),
		containsIgnoreCase(msg, "powered off"),
		containsIgnoreCase(msg, "no such device"),
		containsIgnoreCase(msg, "no bluetooth adapter"):
		return fmt.Errorf("%w: %v", ErrRadio, err)
	default:
		return err
	}
}

// containsIgnoreCase checks substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
