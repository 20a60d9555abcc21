package core

import (
	"errors"
	"fmt"
)

// ErrorKind tags broker errors so transport layers can map them to a status
// and clients can branch without parsing messages.
type ErrorKind string

const (
	// KindInvalidCredential marks a rejected bearer credential.
	KindInvalidCredential ErrorKind = "invalid_credential"

	// KindNotAuthorized marks a policy denial. On the direct connect path it
	// is the designed trigger for the escalation flow.
	KindNotAuthorized ErrorKind = "not_authorized"

	// KindUnsupportedProduct marks a product outside the policy table.
	KindUnsupportedProduct ErrorKind = "unsupported_product"

	// KindMissingArgument marks a malformed or incomplete request payload.
	KindMissingArgument ErrorKind = "missing_argument"

	KindTaskNotFound      ErrorKind = "task_not_found"
	KindContainerNotFound ErrorKind = "container_not_found"

	// KindNotFound marks an unknown (or expired) escalation token.
	KindNotFound ErrorKind = "not_found"

	// KindProviderError marks an upstream failure. It is the fail-closed
	// default for anything untagged.
	KindProviderError ErrorKind = "provider_error"
)

// Error is a tagged broker error. Err, when set, carries the upstream cause
// for logs; Msg is what callers see.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a tagged error.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an upstream error.
func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of an error. Untagged errors present as a provider
// error: fail closed.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProviderError
}

// IsKind reports whether the error carries the given tag. A nil error matches
// nothing.
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
