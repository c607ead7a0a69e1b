package model

import (
	"errors"
	"strings"
)

// Error kinds shared by every layer. Match with errors.Is.
var (
	// ErrConfig marks a malformed or missing schedule or event definition.
	ErrConfig = errors.New("config error")
	// ErrData marks a malformed persisted artifact.
	ErrData = errors.New("data error")
	// ErrTransport marks an unreachable lap store or channel.
	ErrTransport = errors.New("transport error")
	// ErrIdentity marks a lap record without a stable driver identity.
	ErrIdentity = errors.New("identity error")
)

// Error carries the failing operation and its kind alongside the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// NewError wraps err with an operation name and a kind.
func NewError(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the taxonomy kind of err, or nil when it has none.
func KindOf(err error) error {
	for _, k := range []error{ErrConfig, ErrData, ErrTransport, ErrIdentity} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
