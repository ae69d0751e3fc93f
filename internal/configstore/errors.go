package configstore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrStorage            = errors.New("storage failure")
)

// WriteError is returned for every rejected write. Kind is one of the
// sentinels above; Missing lists offending dotted field paths.
type WriteError struct {
	Kind    error
	Message string
	Missing []string
	Err     error
}

func (e *WriteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *WriteError) Is(target error) bool {
	return target == e.Kind
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies the failure for logs, metrics and HTTP status mapping.
func (e *WriteError) ErrorKind() string {
	switch e.Kind {
	case ErrMalformedInput:
		return "malformed_input"
	case ErrMissingCredentials:
		return "missing_credentials"
	case ErrStorage:
		return "storage_failure"
	default:
		return "unknown"
	}
}

func malformed(message string, paths ...string) *WriteError {
	return &WriteError{Kind: ErrMalformedInput, Message: message, Missing: paths}
}

func storageFailure(message string, err error) *WriteError {
	return &WriteError{Kind: ErrStorage, Message: message, Err: err}
}
