package document

import (
	"strconv"
	"strings"
)

// Overlay recursively applies patch onto dst and returns dst. Values in patch
// win; nested maps are merged key by key; slices and scalars replace. dst is
// mutated; patch is never aliased into the result.
func Overlay(dst, patch map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(patch))
	}
	for key, patchVal := range patch {
		patchMap, patchIsMap := patchVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if patchIsMap && dstIsMap {
			dst[key] = Overlay(dstMap, patchMap)
			continue
		}
		dst[key] = CloneValue(patchVal)
	}
	return dst
}

// FillDefaults returns a copy of user in which every key of defaults is
// present. Where both sides hold maps the merge recurses; where defaults hold
// a map and user holds anything else (absent, null, scalar) the default map is
// used. For leaves the user's value wins whenever the key is present. Keys that
// only exist in user are kept untouched.
func FillDefaults(user, defaults map[string]any) map[string]any {
	out := CloneMap(user)
	if out == nil {
		out = make(map[string]any, len(defaults))
	}
	for key, defVal := range defaults {
		userVal, present := out[key]
		if defMap, ok := defVal.(map[string]any); ok {
			if userMap, ok := userVal.(map[string]any); ok {
				out[key] = FillDefaults(userMap, defMap)
			} else {
				out[key] = CloneMap(defMap)
			}
			continue
		}
		if !present {
			out[key] = CloneValue(defVal)
		}
	}
	return out
}

// CloneMap deep-copies a JSON object.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, val := range src {
		out[key] = CloneValue(val)
	}
	return out
}

// CloneValue deep-copies a JSON tree value.
func CloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return CloneMap(v)
	case Document:
		return CloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return val
	}
}

// GetPath retrieves a value from nested maps using a dot-separated path.
// A numeric segment indexes into an array.
func GetPath(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	current := any(data)
	for _, part := range strings.Split(path, ".") {
		if list, ok := current.([]any); ok {
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(list) {
				return nil, false
			}
			current = list[idx]
			continue
		}
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

// SetPath sets a value in nested maps, creating intermediate maps as needed.
// A non-map intermediate value is replaced by a map.
func SetPath(data map[string]any, path string, value any) {
	if data == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeletePath removes the value at path. It reports whether anything was
// removed.
func DeletePath(data map[string]any, path string) bool {
	parent, key := SplitPath(path)
	var container map[string]any
	if parent == "" {
		container = data
	} else {
		raw, ok := GetPath(data, parent)
		if !ok {
			return false
		}
		container, ok = raw.(map[string]any)
		if !ok {
			return false
		}
	}
	if _, exists := container[key]; !exists {
		return false
	}
	delete(container, key)
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}
