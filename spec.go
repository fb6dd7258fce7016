// FILE: lixenwraith/config/spec.go
package config

import (
	"strings"
	"sync"
)

// Spec is a prefixed bundle of items. Items register themselves in their
// spec when declared; a spec is then added to one or more configs.
type Spec struct {
	mu     sync.RWMutex
	prefix string
	items  []*Item
	byName map[string]*Item
	root   *Spec // spec the items were declared in; nil for the root itself
}

// NewSpec creates an empty spec whose items are named under prefix.
func NewSpec(prefix string) *Spec {
	return &Spec{
		prefix: strings.Trim(prefix, "."),
		byName: make(map[string]*Item),
	}
}

// Prefix returns the dot-delimited prefix shared by the spec's items.
func (s *Spec) Prefix() string { return s.prefix }

// Qualify prepends the spec prefix to name.
func (s *Spec) Qualify(name string) string {
	return qualify(s.prefix, name)
}

// Items returns the items in declaration order.
func (s *Spec) Items() []*Item {
	s.source().mu.RLock()
	defer s.source().mu.RUnlock()
	return append([]*Item(nil), s.source().items...)
}

// NameOf returns the qualified name of item under this spec's prefix.
func (s *Spec) NameOf(item *Item) string {
	return s.Qualify(item.local)
}

// At returns a spec rooted at path, which must be a segment-wise prefix of
// the spec prefix. The returned spec shares items with s.
func (s *Spec) At(path string) (*Spec, error) {
	if path == "" {
		return s, nil
	}
	if _, err := ParsePath(path); err != nil {
		return nil, &NoSuchPathError{Path: path}
	}
	rest, ok := stripPrefix(s.prefix, path)
	if !ok {
		return nil, &NoSuchPathError{Path: path}
	}
	return s.derive(rest), nil
}

// WithPrefix returns a spec whose prefix is prefix followed by the current
// prefix. The returned spec shares items with s.
func (s *Spec) WithPrefix(prefix string) *Spec {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return s
	}
	return s.derive(qualify(prefix, s.prefix))
}

func (s *Spec) derive(prefix string) *Spec {
	return &Spec{
		prefix: prefix,
		root:   s.source(),
	}
}

// source returns the spec that owns the item list.
func (s *Spec) source() *Spec {
	if s.root != nil {
		return s.root
	}
	return s
}

// addItem appends a freshly declared item. Derived specs are views and
// never receive items directly.
func (s *Spec) addItem(item *Item) error {
	owner := s.source()
	owner.mu.Lock()
	defer owner.mu.Unlock()

	for _, existing := range owner.items {
		if existing == item {
			return &RepeatedItemError{Name: item.name}
		}
	}
	if _, exists := owner.byName[item.local]; exists {
		return &NameConflictError{Name: s.NameOf(item), Existing: s.NameOf(item)}
	}

	owner.items = append(owner.items, item)
	owner.byName[item.local] = item
	return nil
}
