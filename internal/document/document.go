package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// VersionKey is the reserved top-level key holding the schema version.
const VersionKey = "version"

// ErrNotObject is returned when a payload does not decode to a JSON object.
var ErrNotObject = errors.New("document must be a JSON object")

// Document is a configuration tree keyed by group name.
type Document map[string]any

// Parse decodes raw JSON into a Document. Anything other than a JSON object,
// including null, is rejected with ErrNotObject. Numbers decode to float64.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNotObject
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Document(obj), nil
}

// Normalize converts v (a struct, map, or existing tree) into plain JSON tree
// types by round-tripping through encoding/json.
func Normalize(v any) (Document, error) {
	if v == nil {
		return Document{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return Parse(data)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(CloneMap(d))
}

// Version reports the integer schema version stamped on the document.
func (d Document) Version() int {
	switch v := d[VersionKey].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Group returns the named top-level group when it is a mapping.
func (d Document) Group(name string) (map[string]any, bool) {
	group, ok := d[name].(map[string]any)
	return group, ok
}

// Groups lists the top-level group names in sorted order, excluding the
// version key.
func (d Document) Groups() []string {
	names := make([]string, 0, len(d))
	for key := range d {
		if key == VersionKey {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Get resolves a dot-separated path.
func (d Document) Get(path string) (any, bool) {
	return GetPath(d, path)
}

// Set assigns a value at a dot-separated path, creating intermediate maps.
func (d Document) Set(path string, value any) {
	SetPath(d, path, value)
}

// Canonical serializes the document with sorted keys and without HTML
// escaping. encoding/json already orders map keys, so insertion order never
// leaks into the output.
func (d Document) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Checksum returns the lowercase hex SHA-256 of the canonical serialization.
func (d Document) Checksum() (string, error) {
	data, err := d.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Equal reports whether two JSON trees hold the same content.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// ChangedGroups lists top-level keys whose content differs between before and
// after, sorted. The version key is ignored.
func ChangedGroups(before, after Document) []string {
	seen := make(map[string]struct{}, len(before)+len(after))
	var changed []string
	check := func(key string) {
		if key == VersionKey {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if !Equal(before[key], after[key]) {
			changed = append(changed, key)
		}
	}
	for key := range before {
		check(key)
	}
	for key := range after {
		check(key)
	}
	sort.Strings(changed)
	return changed
}

// JoinPath appends key to a dotted prefix.
func JoinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// SplitPath returns the parent path and final key of a dotted path.
func SplitPath(path string) (string, string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
