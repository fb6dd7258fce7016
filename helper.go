// File: lixenwraith/config/helper.go
package config

import (
	"fmt"
	"strings"
)

// Path is a qualified name split into its dot-separated segments.
type Path []string

// String joins the segments back into a dot-notation name.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// HasPrefix reports whether prefix is a segment-wise prefix of p (or equal to it).
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, segment := range prefix {
		if p[i] != segment {
			return false
		}
	}
	return true
}

// ParsePath splits a dot-notation name and rejects empty segments.
// The empty string parses to an empty path.
func ParsePath(name string) (Path, error) {
	if name == "" {
		return Path{}, nil
	}
	segments := strings.Split(name, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q contains an empty segment", ErrInvalidName, name)
		}
	}
	return segments, nil
}

// qualify joins a prefix and a name with a dot, skipping empty parts.
func qualify(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// stripPrefix removes a segment-wise prefix from name.
// The second return value is false when name does not live under prefix.
func stripPrefix(name, prefix string) (string, bool) {
	if prefix == "" {
		return name, true
	}
	if name == prefix {
		return "", true
	}
	if strings.HasPrefix(name, prefix+".") {
		return name[len(prefix)+1:], true
	}
	return "", false
}

// namesConflict reports whether one name's segments are a prefix of the other's.
// A leaf value and a nested table cannot share a path.
func namesConflict(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < len(b) {
		return strings.HasPrefix(b, a+".")
	}
	return strings.HasPrefix(a, b+".")
}

// flattenMap converts a nested map[string]any to a flat map[string]any with dot-notation paths.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := qualify(prefix, key)

		if nestedMap, isMap := value.(map[string]any); isMap && len(nestedMap) > 0 {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}

// setNestedValue sets a value in a nested map using a dot-notation path.
// It creates intermediate maps if they don't exist.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if nextMap, isMap := next.(map[string]any); exists && isMap {
			current = nextMap
			continue
		}
		newMap := make(map[string]any)
		current[segment] = newMap
		current = newMap
	}

	current[segments[len(segments)-1]] = value
}

// navigateToPath traverses nested map to reach the specified path.
// Returns nil, false if any segment is missing or not a table.
func navigateToPath(nested map[string]any, path Path) (any, bool) {
	current := any(nested)

	for _, segment := range path {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil, false
		}
		current = value
	}

	return current, true
}

// isValidKeySegment checks if a single path segment is a valid TOML bare key part.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}
