package configstore

import (
	"context"
	"sort"
	"strings"

	"kiosk/internal/schema"
	"kiosk/internal/secrets"
)

// SecretStatus is the safe listing entry for one secret.
type SecretStatus struct {
	Name     string  `json:"name"`
	Path     string  `json:"path,omitempty"`
	HasValue bool    `json:"has_value"`
	Last4    *string `json:"last4"`
}

// SetSecret stores a secret by name and refreshes its projection. A blank
// value clears it.
func (s *Store) SetSecret(ctx context.Context, name, value string) (Snapshot, error) {
	return s.applySecret(ctx, secrets.SetOp(name, "", value))
}

// ClearSecret removes a secret by name.
func (s *Store) ClearSecret(ctx context.Context, name string) (Snapshot, error) {
	return s.applySecret(ctx, secrets.Op{Name: name, Clear: true})
}

func (s *Store) applySecret(ctx context.Context, op secrets.Op) (Snapshot, error) {
	if err := secrets.ValidateName(op.Name); err != nil {
		return s.fail(ctx, "secret", malformed("invalid secret name", op.Name))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.lock(ctx); err != nil {
		return s.fail(ctx, "secret", err)
	}
	defer s.unlock()

	current, err := s.latest(ctx)
	if err != nil {
		return s.fail(ctx, "secret", err)
	}
	next := current.Clone()

	touched := []string{}
	if path, ok := s.resolver.SecretPath(op.Name); ok {
		op.Path = path
		secrets.Seed(next, path)
		group, _, _ := strings.Cut(path, ".")
		touched = append(touched, group)
	}
	ops := []secrets.Op{op}
	if err := s.checkRequirements(ctx, next, touched, ops); err != nil {
		return s.fail(ctx, "secret", err)
	}
	return s.finish(ctx, "secret", current, next, ops, touched, false)
}

// Secrets lists every registered secret plus any other stored name. Values
// are never included.
func (s *Store) Secrets(ctx context.Context) ([]SecretStatus, error) {
	paths := make(map[string]string)
	for _, field := range schema.SecretFields() {
		paths[field.Name] = field.Path
	}
	names, err := s.secrets.Names(ctx)
	if err != nil {
		return nil, storageFailure("list secrets", err)
	}
	for _, name := range names {
		if _, ok := paths[name]; !ok {
			paths[name] = ""
		}
	}

	out := make([]SecretStatus, 0, len(paths))
	for name, path := range paths {
		desc, err := s.secrets.Describe(ctx, name)
		if err != nil {
			return nil, storageFailure("describe secret", err)
		}
		out = append(out, SecretStatus{Name: name, Path: path, HasValue: desc.HasValue, Last4: desc.Last4})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Secret describes one secret by name.
func (s *Store) Secret(ctx context.Context, name string) (SecretStatus, error) {
	if err := secrets.ValidateName(name); err != nil {
		return SecretStatus{}, malformed("invalid secret name", name)
	}
	desc, err := s.secrets.Describe(ctx, name)
	if err != nil {
		return SecretStatus{}, storageFailure("describe secret", err)
	}
	path, _ := s.resolver.SecretPath(name)
	return SecretStatus{Name: name, Path: path, HasValue: desc.HasValue, Last4: desc.Last4}, nil
}
