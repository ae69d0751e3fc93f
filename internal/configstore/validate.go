package configstore

import (
	"context"
	"slices"
	"sort"
	"strings"

	"kiosk/internal/document"
	"kiosk/internal/fileutil"
	"kiosk/internal/schema"
	"kiosk/internal/secrets"
)

// checkRequirements enforces the credential and field rules of every
// enabled feature whose group was touched. Pending secret ops count as if
// they were already applied.
func (s *Store) checkRequirements(ctx context.Context, doc document.Document, touched []string, ops []secrets.Op) error {
	pending := make(map[string]bool, len(ops))
	for _, op := range ops {
		pending[op.Name] = !op.Clear
	}
	hasSecret := func(path string) (bool, error) {
		name := s.resolver.SecretName(path)
		if set, ok := pending[name]; ok {
			return set, nil
		}
		desc, err := s.secrets.Describe(ctx, name)
		if err != nil {
			return false, err
		}
		return desc.HasValue, nil
	}

	missing := map[string]struct{}{}
	unreadable := map[string]struct{}{}
	for _, req := range schema.Requirements() {
		if !slices.Contains(touched, req.Group) || !conditionsHold(doc, req.When) {
			continue
		}
		for _, path := range req.Fields {
			if !nonBlank(doc, path) {
				missing[path] = struct{}{}
			}
		}
		if len(req.AnyOf) > 0 && !slices.ContainsFunc(req.AnyOf, func(path string) bool { return nonBlank(doc, path) }) {
			for _, path := range req.AnyOf {
				missing[path] = struct{}{}
			}
		}
		for _, path := range req.Secrets {
			ok, err := hasSecret(path)
			if err != nil {
				return storageFailure("describe secret", err)
			}
			if !ok {
				missing[path] = struct{}{}
			}
		}
		for _, path := range req.Readable {
			if !nonBlank(doc, path) {
				continue
			}
			value, _ := doc.Get(path)
			if err := fileutil.CheckReadable(strings.TrimSpace(value.(string))); err != nil {
				unreadable[path] = struct{}{}
			}
		}
	}

	if len(unreadable) > 0 {
		return malformed("referenced file is not readable", sortedSet(unreadable)...)
	}
	if len(missing) > 0 {
		return &WriteError{
			Kind:    ErrMissingCredentials,
			Message: "enabled features need these fields",
			Missing: sortedSet(missing),
		}
	}
	return nil
}

func conditionsHold(doc document.Document, conditions []schema.Condition) bool {
	for _, cond := range conditions {
		value, ok := doc.Get(cond.Path)
		if !ok || !document.Equal(value, cond.Equals) {
			return false
		}
	}
	return true
}

func nonBlank(doc document.Document, path string) bool {
	value, ok := doc.Get(path)
	if !ok {
		return false
	}
	str, ok := value.(string)
	return ok && strings.TrimSpace(str) != ""
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
