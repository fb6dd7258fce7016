// File: lixenwraith/config/merged.go
package config

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// mergedConfig reads from facade first and fallback second. It owns no
// value store; every write goes to facade.
type mergedConfig struct {
	access
	fallback chain
	facade   chain
}

// Merge composes two configs: reads ask facade first and fall through to
// fallback only when facade's whole chain has no value; writes go to facade.
// Configs that were not created by this package are rejected with a panic.
func Merge(fallback, facade Config) Config {
	return newMerged(asChain(fallback), asChain(facade))
}

func newMerged(fallback, facade chain) *mergedConfig {
	m := &mergedConfig{fallback: fallback, facade: facade}
	m.access = access{self: m}
	return m
}

func asChain(c Config) chain {
	ch, ok := c.(chain)
	if !ok {
		panic(fmt.Sprintf("config: cannot merge foreign Config implementation %T", c))
	}
	return ch
}

func (m *mergedConfig) heldData() []*layerData {
	return append(m.facade.heldData(), m.fallback.heldData()...)
}

func (m *mergedConfig) hold(h *heldSet) chain {
	return newMerged(m.fallback.hold(h), m.facade.hold(h))
}

func (m *mergedConfig) find(item *Item, lc *lookup) (any, bool, error) {
	v, found, err := m.facade.find(item, lc)
	if found || err != nil {
		return v, found, err
	}
	return m.fallback.find(item, lc)
}

func (m *mergedConfig) nameOf(item *Item, lc *lookup) (string, bool) {
	if name, ok := m.facade.nameOf(item, lc); ok {
		return name, true
	}
	return m.fallback.nameOf(item, lc)
}

func (m *mergedConfig) itemOf(name string, lc *lookup) (*Item, bool) {
	if item, ok := m.facade.itemOf(name, lc); ok {
		return item, true
	}
	return m.fallback.itemOf(name, lc)
}

func (m *mergedConfig) itemList(lc *lookup) []*Item {
	items := m.facade.itemList(lc)
	seen := make(map[*Item]bool, len(items))
	for _, item := range items {
		seen[item] = true
	}
	for _, item := range m.fallback.itemList(lc) {
		if !seen[item] {
			items = append(items, item)
		}
	}
	return items
}

func (m *mergedConfig) specList(lc *lookup) []*Spec {
	return append(m.facade.specList(lc), m.fallback.specList(lc)...)
}

func (m *mergedConfig) sourceList(lc *lookup) []Source {
	return append(m.facade.sourceList(lc), m.fallback.sourceList(lc)...)
}

func (m *mergedConfig) typeMapper() TypeMapper { return m.facade.typeMapper() }

func (m *mergedConfig) log() logrus.FieldLogger { return m.facade.log() }

func (m *mergedConfig) RawSet(item *Item, value any) error { return m.facade.RawSet(item, value) }

func (m *mergedConfig) Set(item *Item, value any) error { return m.facade.Set(item, value) }

func (m *mergedConfig) LazySet(item *Item, thunk Thunk) error { return m.facade.LazySet(item, thunk) }

func (m *mergedConfig) Unset(item *Item) error { return m.facade.Unset(item) }

func (m *mergedConfig) Clear() { m.facade.Clear() }

func (m *mergedConfig) Name() string {
	return fmt.Sprintf("merged(facade=%s, fallback=%s)", m.facade.Name(), m.fallback.Name())
}

// Parent merges the parents of both sides. When only one side has a
// parent, that parent is returned as is.
func (m *mergedConfig) Parent() Config {
	fallback, facade := m.fallback.Parent(), m.facade.Parent()
	switch {
	case fallback == nil:
		return facade
	case facade == nil:
		return fallback
	}
	return Merge(fallback, facade)
}

func (m *mergedConfig) Layer() Config { return m.facade.Layer() }

// AddItem checks the name against fallback too, so the merged view never
// exposes two overlapping names. The check and the registration run under
// both locks.
func (m *mergedConfig) AddItem(item *Item, prefix string) error {
	if item == nil {
		return fmt.Errorf("cannot add nil item")
	}
	return m.Lock(func(tx Config) error {
		locked := tx.(*mergedConfig)
		if err := locked.checkFallback([]*Item{item}, []string{qualify(prefix, item.name)}); err != nil {
			return err
		}
		return locked.facade.AddItem(item, prefix)
	})
}

func (m *mergedConfig) AddSpec(spec *Spec) error {
	if spec == nil {
		return fmt.Errorf("cannot add nil spec")
	}
	items := spec.Items()
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = spec.NameOf(item)
	}
	return m.Lock(func(tx Config) error {
		locked := tx.(*mergedConfig)
		if err := locked.checkFallback(items, names); err != nil {
			return err
		}
		return locked.facade.AddSpec(spec)
	})
}

func (m *mergedConfig) checkFallback(items []*Item, names []string) error {
	lc := newLookup(m.fallback)
	existing := m.fallback.itemList(lc)
	for i, item := range items {
		for _, other := range existing {
			otherName, _ := m.fallback.nameOf(other, lc)
			if other == item {
				return &RepeatedItemError{Name: names[i]}
			}
			if namesConflict(names[i], otherName) {
				return &NameConflictError{Name: names[i], Existing: otherName}
			}
		}
	}
	return nil
}

func (m *mergedConfig) AddSource(src Source) error { return m.facade.AddSource(src) }

// Lock holds the facade lock and then the fallback lock for the duration of
// fn. Each side of tx treats the other side's locks as held too, so chains
// that share layers do not lock them twice.
func (m *mergedConfig) Lock(fn func(tx Config) error) error {
	return m.facade.Lock(func(facade Config) error {
		front := asChain(facade)
		done := new(atomic.Bool)
		defer done.Store(true)
		fallback := m.fallback.hold(&heldSet{data: front.heldData(), done: done})
		return fallback.Lock(func(tx Config) error {
			back := asChain(tx)
			return fn(newMerged(back, front.hold(&heldSet{data: back.heldData(), done: done})))
		})
	})
}

func (m *mergedConfig) WithLayer(name string) Config {
	return newLayer(newLayerData(name), m, m.facade.typeMapper(), m.facade.log())
}
