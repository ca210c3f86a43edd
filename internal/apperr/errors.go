// Package apperr defines the error kinds a command reply can report.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names the class of failure shown to the user.
type Kind string

const (
	KindConfiguration   Kind = "ConfigurationError"
	KindLookup          Kind = "LookupError"
	KindBackendNotFound Kind = "BackendNotFoundError"
	KindRender          Kind = "RenderError"

	// KindUnclassified is used for errors passed through from backends.
	KindUnclassified Kind = "Error"
)

// Error is a failure with a user-visible kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindLookup}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func Lookup(format string, args ...any) *Error {
	return &Error{Kind: KindLookup, Message: fmt.Sprintf(format, args...)}
}

func BackendNotFound(kind, name string) *Error {
	return &Error{Kind: KindBackendNotFound, Message: fmt.Sprintf("no %s backend registered as %q", kind, name)}
}

func Render(err error) *Error {
	return &Error{Kind: KindRender, Message: err.Error(), Err: err}
}

// KindOf reports the kind of err, or KindUnclassified for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// Reply formats err as the one-line chat reply "<Kind>: <message>".
func Reply(err error) string {
	return fmt.Sprintf("%s: %s", KindOf(err), err.Error())
}
