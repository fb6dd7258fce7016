// FILE: lixenwraith/config/source.go
package config

import (
	"fmt"
	"maps"
	"strings"

	"dario.cat/mergo"
)

// Source is a read-only tree of raw values addressed by path. Values are
// converted to item types by the loading config's TypeMapper.
type Source interface {
	// Description names the source in logs and errors.
	Description() string
	// Contains reports whether a node exists at path.
	Contains(path Path) bool
	// Get returns the subtree at path.
	Get(path Path) (Source, bool)
	// Value returns the raw value of the node, if it has one.
	Value() (any, bool)
}

// MapSource is a Source over a nested map tree, as produced by the TOML,
// JSON and YAML decoders.
type MapSource struct {
	description string
	node        any
}

// NewMapSource creates a source over a nested map. Nested values may be
// map[string]any or map[any]any.
func NewMapSource(description string, tree map[string]any) *MapSource {
	return &MapSource{description: description, node: normalize(tree)}
}

// FromFlatMap creates a source from dotted keys such as "server.port".
func FromFlatMap(description string, flat map[string]any) (*MapSource, error) {
	tree := make(map[string]any)
	for key, value := range flat {
		if _, err := ParsePath(key); err != nil || key == "" {
			return nil, fmt.Errorf("%w: key %q", ErrInvalidName, key)
		}
		setNestedValue(tree, key, value)
	}
	return NewMapSource(description, tree), nil
}

// FromMaps deep-merges trees into one source. Later trees override earlier ones.
func FromMaps(description string, trees ...map[string]any) (*MapSource, error) {
	merged := make(map[string]any)
	for i, tree := range trees {
		if err := mergo.Merge(&merged, deepCopy(normalize(tree).(map[string]any)), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge map %d into %s: %w", i, description, err)
		}
	}
	return NewMapSource(description, merged), nil
}

func (s *MapSource) Description() string { return s.description }

func (s *MapSource) Contains(path Path) bool {
	_, ok := s.Get(path)
	return ok
}

func (s *MapSource) Get(path Path) (Source, bool) {
	if len(path) == 0 {
		return s, true
	}
	tree, ok := s.node.(map[string]any)
	if !ok {
		return nil, false
	}
	node, ok := navigateToPath(tree, path)
	if !ok {
		return nil, false
	}
	return &MapSource{description: s.description, node: node}, true
}

func (s *MapSource) Value() (any, bool) {
	return s.node, s.node != nil
}

// Flat returns the leaves of the source keyed by dotted path, the inverse
// of FromFlatMap. A leaf source yields nil.
func (s *MapSource) Flat() map[string]any {
	tree, ok := s.node.(map[string]any)
	if !ok {
		return nil
	}
	return flattenMap(tree, "")
}

// Tree returns a copy of the source's nested map, or nil for a leaf.
func (s *MapSource) Tree() map[string]any {
	tree, ok := s.node.(map[string]any)
	if !ok {
		return nil
	}
	return deepCopy(tree)
}

// SourceAt returns the subtree of src rooted at path.
func SourceAt(src Source, path string) Source {
	p, err := ParsePath(path)
	if err != nil || len(p) == 0 {
		return src
	}
	return &subSource{base: src, path: p}
}

// SourceWithPrefix returns a source in which every path of src is nested
// under prefix.
func SourceWithPrefix(src Source, prefix string) Source {
	p, err := ParsePath(prefix)
	if err != nil || len(p) == 0 {
		return src
	}
	return &prefixedSource{base: src, prefix: p}
}

type subSource struct {
	base Source
	path Path
}

func (s *subSource) Description() string {
	return fmt.Sprintf("%s at %s", s.base.Description(), s.path)
}

func (s *subSource) full(path Path) Path {
	return append(append(Path(nil), s.path...), path...)
}

func (s *subSource) Contains(path Path) bool { return s.base.Contains(s.full(path)) }

func (s *subSource) Get(path Path) (Source, bool) { return s.base.Get(s.full(path)) }

func (s *subSource) Value() (any, bool) {
	node, ok := s.base.Get(s.path)
	if !ok {
		return nil, false
	}
	return node.Value()
}

type prefixedSource struct {
	base   Source
	prefix Path
}

func (s *prefixedSource) Description() string {
	return fmt.Sprintf("%s with prefix %s", s.base.Description(), s.prefix)
}

func (s *prefixedSource) Contains(path Path) bool {
	_, ok := s.Get(path)
	return ok
}

func (s *prefixedSource) Get(path Path) (Source, bool) {
	if path.HasPrefix(s.prefix) {
		return s.base.Get(path[len(s.prefix):])
	}
	if s.prefix.HasPrefix(path) {
		return &prefixedSource{base: s.base, prefix: s.prefix[len(path):]}, true
	}
	return nil, false
}

// Value is empty: the root of a prefixed source is an intermediate table.
func (s *prefixedSource) Value() (any, bool) { return nil, false }

// normalize converts map[any]any nodes into map[string]any recursively.
func normalize(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = normalize(value)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[fmt.Sprint(key)] = normalize(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = normalize(value)
		}
		return out
	default:
		return node
	}
}

func deepCopy(tree map[string]any) map[string]any {
	out := maps.Clone(tree)
	for key, value := range out {
		if nested, ok := value.(map[string]any); ok {
			out[key] = deepCopy(nested)
		}
	}
	return out
}

// describe joins source descriptions for log output.
func describe(sources []Source) string {
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Description()
	}
	return strings.Join(names, ", ")
}
