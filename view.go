// FILE: lixenwraith/config/view.go
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// drillDown exposes the items of base living under path, with path stripped
// from their names. It shares storage and locks with base.
type drillDown struct {
	access
	base chain
	path string
}

func newDrillDown(base chain, path string) *drillDown {
	v := &drillDown{base: base, path: path}
	v.access = access{self: v}
	return v
}

func (v *drillDown) heldData() []*layerData { return v.base.heldData() }

func (v *drillDown) hold(h *heldSet) chain { return newDrillDown(v.base.hold(h), v.path) }

func (v *drillDown) find(item *Item, lc *lookup) (any, bool, error) {
	return v.base.find(item, lc)
}

func (v *drillDown) nameOf(item *Item, lc *lookup) (string, bool) {
	name, ok := v.base.nameOf(item, lc)
	if !ok {
		return "", false
	}
	rest, ok := stripPrefix(name, v.path)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func (v *drillDown) itemOf(name string, lc *lookup) (*Item, bool) {
	if name == "" {
		return nil, false
	}
	return v.base.itemOf(qualify(v.path, name), lc)
}

func (v *drillDown) itemList(lc *lookup) []*Item {
	var items []*Item
	for _, item := range v.base.itemList(lc) {
		if _, ok := v.nameOf(item, lc); ok {
			items = append(items, item)
		}
	}
	return items
}

func (v *drillDown) typeMapper() TypeMapper { return v.base.typeMapper() }

func (v *drillDown) log() logrus.FieldLogger { return v.base.log() }

// visible fails with NoSuchItemError for items outside the view.
func (v *drillDown) visible(item *Item) error {
	if item == nil {
		return &NoSuchItemError{Name: "<nil>"}
	}
	if _, ok := v.nameOf(item, newLookup(v)); !ok {
		return &NoSuchItemError{Name: item.name}
	}
	return nil
}

func (v *drillDown) RawSet(item *Item, value any) error {
	if err := v.visible(item); err != nil {
		return err
	}
	return v.base.RawSet(item, value)
}

func (v *drillDown) Set(item *Item, value any) error {
	if err := v.visible(item); err != nil {
		return err
	}
	return v.base.Set(item, value)
}

func (v *drillDown) LazySet(item *Item, thunk Thunk) error {
	if err := v.visible(item); err != nil {
		return err
	}
	return v.base.LazySet(item, thunk)
}

func (v *drillDown) Unset(item *Item) error {
	if err := v.visible(item); err != nil {
		return err
	}
	return v.base.Unset(item)
}

// Clear unsets every visible item of the facade layer.
func (v *drillDown) Clear() {
	_ = v.base.Lock(func(tx Config) error {
		for _, item := range newDrillDown(asChain(tx), v.path).Items() {
			_ = tx.Unset(item)
		}
		return nil
	})
}

func (v *drillDown) Name() string { return v.base.Name() }

func (v *drillDown) Parent() Config {
	parent := v.base.Parent()
	if parent == nil {
		return nil
	}
	return newDrillDown(asChain(parent), v.path)
}

// specList returns the specs of base re-rooted at path. Specs lying outside
// path are left out.
func (v *drillDown) specList(lc *lookup) []*Spec {
	var specs []*Spec
	for _, spec := range v.base.specList(lc) {
		if at, err := spec.At(v.path); err == nil {
			specs = append(specs, at)
		}
	}
	return specs
}

func (v *drillDown) sourceList(lc *lookup) []Source {
	sources := v.base.sourceList(lc)
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, SourceAt(src, v.path))
	}
	return out
}

func (v *drillDown) Layer() Config { return newDrillDown(asChain(v.base.Layer()), v.path) }

func (v *drillDown) AddItem(item *Item, prefix string) error {
	return v.base.AddItem(item, qualify(v.path, prefix))
}

func (v *drillDown) AddSpec(spec *Spec) error {
	return v.base.AddSpec(spec.WithPrefix(v.path))
}

func (v *drillDown) AddSource(src Source) error {
	return v.base.AddSource(SourceWithPrefix(src, v.path))
}

func (v *drillDown) Lock(fn func(tx Config) error) error {
	return v.base.Lock(func(tx Config) error {
		return fn(newDrillDown(asChain(tx), v.path))
	})
}

func (v *drillDown) WithLayer(name string) Config {
	return newDrillDown(asChain(v.base.WithLayer(name)), v.path)
}

// rollUp exposes every item of base with prefix put in front of its name.
type rollUp struct {
	access
	base   chain
	prefix string
}

func newRollUp(base chain, prefix string) *rollUp {
	v := &rollUp{base: base, prefix: prefix}
	v.access = access{self: v}
	return v
}

func (v *rollUp) heldData() []*layerData { return v.base.heldData() }

func (v *rollUp) hold(h *heldSet) chain { return newRollUp(v.base.hold(h), v.prefix) }

func (v *rollUp) find(item *Item, lc *lookup) (any, bool, error) {
	return v.base.find(item, lc)
}

func (v *rollUp) nameOf(item *Item, lc *lookup) (string, bool) {
	name, ok := v.base.nameOf(item, lc)
	if !ok {
		return "", false
	}
	return qualify(v.prefix, name), true
}

func (v *rollUp) itemOf(name string, lc *lookup) (*Item, bool) {
	rest, ok := stripPrefix(name, v.prefix)
	if !ok || rest == "" {
		return nil, false
	}
	return v.base.itemOf(rest, lc)
}

func (v *rollUp) itemList(lc *lookup) []*Item { return v.base.itemList(lc) }

func (v *rollUp) typeMapper() TypeMapper { return v.base.typeMapper() }

func (v *rollUp) log() logrus.FieldLogger { return v.base.log() }

func (v *rollUp) RawSet(item *Item, value any) error { return v.base.RawSet(item, value) }

func (v *rollUp) Set(item *Item, value any) error { return v.base.Set(item, value) }

func (v *rollUp) LazySet(item *Item, thunk Thunk) error { return v.base.LazySet(item, thunk) }

func (v *rollUp) Unset(item *Item) error { return v.base.Unset(item) }

func (v *rollUp) Clear() { v.base.Clear() }

func (v *rollUp) Name() string { return v.base.Name() }

func (v *rollUp) Parent() Config {
	parent := v.base.Parent()
	if parent == nil {
		return nil
	}
	return newRollUp(asChain(parent), v.prefix)
}

func (v *rollUp) specList(lc *lookup) []*Spec {
	specs := v.base.specList(lc)
	out := make([]*Spec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, spec.WithPrefix(v.prefix))
	}
	return out
}

func (v *rollUp) sourceList(lc *lookup) []Source {
	sources := v.base.sourceList(lc)
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, SourceWithPrefix(src, v.prefix))
	}
	return out
}

func (v *rollUp) Layer() Config { return newRollUp(asChain(v.base.Layer()), v.prefix) }

// AddItem accepts only prefixes under the view prefix.
func (v *rollUp) AddItem(item *Item, prefix string) error {
	rest, ok := stripPrefix(prefix, v.prefix)
	if !ok {
		return fmt.Errorf("%w: prefix %q is outside %q", ErrNoSuchPath, prefix, v.prefix)
	}
	return v.base.AddItem(item, rest)
}

// AddSpec accepts only specs whose prefix lies under the view prefix.
func (v *rollUp) AddSpec(spec *Spec) error {
	at, err := spec.At(v.prefix)
	if err != nil {
		return err
	}
	return v.base.AddSpec(at)
}

func (v *rollUp) AddSource(src Source) error {
	return v.base.AddSource(SourceAt(src, v.prefix))
}

func (v *rollUp) Lock(fn func(tx Config) error) error {
	return v.base.Lock(func(tx Config) error {
		return fn(newRollUp(asChain(tx), v.prefix))
	})
}

func (v *rollUp) WithLayer(name string) Config {
	return newRollUp(asChain(v.base.WithLayer(name)), v.prefix)
}
