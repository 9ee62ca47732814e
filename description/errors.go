package description

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification. Every *Error matches exactly one
// of them with errors.Is.
var (
	ErrNotFound   = errors.New("description not found")
	ErrUnreadable = errors.New("description unreadable")
	ErrMalformed  = errors.New("description malformed")
)

// Kind is a coarse-grained categorization of loader failures.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindUnreadable Kind = "unreadable"
	KindMalformed  Kind = "malformed"
)

// Error wraps a loader failure with the operation, the file and a kind.
type Error struct {
	Op   string
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnreadable:
		return e.Kind == KindUnreadable
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

// IsKind reports whether err is a loader error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
