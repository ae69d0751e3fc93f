package secrets

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidName is returned for empty or whitespace-bearing secret names.
var ErrInvalidName = errors.New("invalid secret name")

// Description is the safe, derived view of a secret.
type Description struct {
	HasValue bool    `json:"has_value"`
	Last4    *string `json:"last4"`
}

// Op is one pending secret write. Clear removes the secret; otherwise Value
// is stored.
type Op struct {
	Name  string
	Path  string
	Value string
	Clear bool
}

// SetOp builds the op for a submitted value. Blank values clear; anything
// else is stored exactly as submitted.
func SetOp(name, path, value string) Op {
	if strings.TrimSpace(value) == "" {
		return Op{Name: name, Path: path, Clear: true}
	}
	return Op{Name: name, Path: path, Value: value}
}

// Describer reports the derived view of a secret.
type Describer interface {
	Describe(ctx context.Context, name string) (Description, error)
}

// Store is the only place plaintext secrets live at rest.
type Store interface {
	Describer
	Get(ctx context.Context, name string) (string, bool, error)
	// Set stores value; a blank value clears the secret.
	Set(ctx context.Context, name, value string) error
	Clear(ctx context.Context, name string) error
	// Apply performs every op or none of them.
	Apply(ctx context.Context, ops []Op) error
	Names(ctx context.Context) ([]string, error)
	Close() error
}

// Describe derives the description of a stored value.
func Describe(value string, ok bool) Description {
	if !ok || value == "" {
		return Description{}
	}
	desc := Description{HasValue: true}
	runes := []rune(value)
	if len(runes) >= 4 {
		last4 := string(runes[len(runes)-4:])
		desc.Last4 = &last4
	}
	return desc
}

// ValidateName checks that name can be used as a secret key.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidName
		}
	}
	return nil
}
