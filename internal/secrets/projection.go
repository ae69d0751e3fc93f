package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"kiosk/internal/document"
)

// ErrMalformedSecret marks a secret field holding something other than a
// string or null.
var ErrMalformedSecret = errors.New("secret field must be a string or null")

// Resolver decides which keys hold credentials and how they are named.
type Resolver interface {
	IsSecretKey(key string) bool
	SecretName(path string) string
}

// MalformedError lists the secret fields that could not be extracted.
type MalformedError struct {
	Paths []string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedSecret, strings.Join(e.Paths, ", "))
}

func (e *MalformedError) Unwrap() error { return ErrMalformedSecret }

const (
	hasPrefix   = "has_"
	last4Suffix = "_last4"
)

// ProjectionKeys returns the presence and suffix keys that stand in for a
// secret field inside the document.
func ProjectionKeys(field string) (string, string) {
	return hasPrefix + field, field + last4Suffix
}

// IsProjectionKey reports whether key is one of the derived projection keys.
func IsProjectionKey(key string, resolver Resolver) bool {
	if field, ok := strings.CutPrefix(key, hasPrefix); ok && resolver.IsSecretKey(field) {
		return true
	}
	if field, ok := strings.CutSuffix(key, last4Suffix); ok && resolver.IsSecretKey(field) {
		return true
	}
	return false
}

// Extract removes every secret-shaped field from payload, in place, and
// returns the secret writes they request sorted by name. Strings set (blank
// clears), null clears, anything else is malformed. Fields inside arrays are
// named by their indexed path, e.g. panels.news.feeds.0.api_key. Projection
// keys sent back by clients are dropped since the store owns them, except
// inside arrays: an array write replaces the stored one, so they are kept
// for Project to refresh. Omitted fields produce no op.
func Extract(payload map[string]any, resolver Resolver) ([]Op, error) {
	var (
		ops       []Op
		malformed []string
	)
	_ = visitObjects(payload, "", false, func(node map[string]any, prefix string, inArray bool) error {
		for _, key := range sortedKeys(node) {
			path := document.JoinPath(prefix, key)
			if IsProjectionKey(key, resolver) {
				if !inArray {
					delete(node, key)
				}
				continue
			}
			if !resolver.IsSecretKey(key) {
				continue
			}
			switch v := node[key].(type) {
			case string:
				ops = append(ops, SetOp(resolver.SecretName(path), path, v))
			case nil:
				ops = append(ops, Op{Name: resolver.SecretName(path), Path: path, Clear: true})
			default:
				malformed = append(malformed, path)
			}
			delete(node, key)
		}
		return nil
	})

	if len(malformed) > 0 {
		return nil, &MalformedError{Paths: malformed}
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops, nil
}

// Seed adds empty projection keys for the secret at path so later
// projections keep it current. The parent object must already exist.
func Seed(doc map[string]any, path string) {
	parentPath, field := document.SplitPath(path)
	parent := doc
	if parentPath != "" {
		raw, ok := document.GetPath(doc, parentPath)
		if !ok {
			return
		}
		if parent, ok = raw.(map[string]any); !ok {
			return
		}
	}
	hasKey, last4Key := ProjectionKeys(field)
	if _, ok := parent[hasKey]; !ok {
		parent[hasKey] = false
		parent[last4Key] = nil
	}
}

// Project refreshes every projection pair in doc from the store, including
// pairs inside array elements. Raw secret fields that are still present are
// removed.
func Project(ctx context.Context, doc map[string]any, store Describer, resolver Resolver) error {
	return visitObjects(doc, "", false, func(node map[string]any, prefix string, _ bool) error {
		for _, key := range sortedKeys(node) {
			if resolver.IsSecretKey(key) {
				delete(node, key)
				continue
			}
			field, ok := strings.CutPrefix(key, hasPrefix)
			if !ok || !resolver.IsSecretKey(field) {
				continue
			}
			path := document.JoinPath(prefix, field)
			desc, err := store.Describe(ctx, resolver.SecretName(path))
			if err != nil {
				return fmt.Errorf("describe %s: %w", path, err)
			}
			node[key] = desc.HasValue
			_, last4Key := ProjectionKeys(field)
			if desc.Last4 != nil {
				node[last4Key] = *desc.Last4
			} else {
				node[last4Key] = nil
			}
		}
		return nil
	})
}

// Plaintext collects secret-shaped string fields still present in doc,
// keyed by their dotted path. Used to move secrets out of legacy documents.
func Plaintext(doc map[string]any, resolver Resolver) map[string]string {
	found := make(map[string]string)
	_ = visitObjects(doc, "", false, func(node map[string]any, prefix string, _ bool) error {
		for key, value := range node {
			if !resolver.IsSecretKey(key) {
				continue
			}
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				found[document.JoinPath(prefix, key)] = s
			}
		}
		return nil
	})
	return found
}

// visitObjects calls fn on every JSON object under node, parents first, then
// descends into whatever fn left in place. Array elements are addressed by
// index; inArray reports whether any ancestor is an array.
func visitObjects(node any, prefix string, inArray bool, fn func(obj map[string]any, prefix string, inArray bool) error) error {
	switch v := node.(type) {
	case map[string]any:
		if err := fn(v, prefix, inArray); err != nil {
			return err
		}
		for _, key := range sortedKeys(v) {
			if err := visitObjects(v[key], document.JoinPath(prefix, key), inArray, fn); err != nil {
				return err
			}
		}
	case []any:
		for i, elem := range v {
			if err := visitObjects(elem, document.JoinPath(prefix, strconv.Itoa(i)), true, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
