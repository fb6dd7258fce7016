// FILE: lixenwraith/config/resolve.go
package config

import "reflect"

// lookup carries the state of one read through a chain: the config the read
// started from, the layers whose write lock the caller holds, and the lazy
// items currently being evaluated.
type lookup struct {
	origin chain
	held   []*layerData
	stack  []*Item
	deps   [][]dep // stores read by each evaluation on stack
}

func newLookup(c chain) *lookup {
	return &lookup{origin: c, held: c.heldData()}
}

func (lc *lookup) holds(d *layerData) bool {
	if lc == nil {
		return false
	}
	return holding(lc.held, d)
}

func holding(held []*layerData, d *layerData) bool {
	for _, h := range held {
		if h == d {
			return true
		}
	}
	return false
}

// touch records s as read by the innermost running evaluation.
// Callers hold s's lock.
func (lc *lookup) touch(s *valueStore) {
	if lc == nil || len(lc.deps) == 0 {
		return
	}
	top := len(lc.deps) - 1
	lc.deps[top] = addDeps(lc.deps[top], dep{store: s, revision: s.revision.Load()})
}

// lazy returns the result of thunk for the origin config, reusing the one in
// slot while no store it was computed from has been written.
func (lc *lookup) lazy(slot *memoSlot, item *Item, thunk Thunk) (any, error) {
	if m, ok := slot.cached(lc.origin); ok {
		if top := len(lc.deps) - 1; top >= 0 {
			lc.deps[top] = addDeps(lc.deps[top], m.deps...)
		}
		return m.value, nil
	}
	v, deps, err := lc.evaluate(item, thunk)
	if err != nil {
		return nil, err
	}
	slot.remember(lc.origin, deps, v)
	return v, nil
}

// evaluate runs a thunk for item against the origin config and returns the
// stores it read along with the value.
func (lc *lookup) evaluate(item *Item, thunk Thunk) (any, []dep, error) {
	for i, pending := range lc.stack {
		if pending == item {
			cycle := make([]string, 0, len(lc.stack)-i+1)
			for _, it := range lc.stack[i:] {
				cycle = append(cycle, lc.name(it))
			}
			return nil, nil, &CyclicDependencyError{Chain: append(cycle, lc.name(item))}
		}
	}

	top := len(lc.stack)
	lc.stack = append(lc.stack, item)
	lc.deps = append(lc.deps, nil)
	defer func() {
		lc.stack, lc.deps = lc.stack[:top], lc.deps[:top]
	}()

	v, err := thunk(&lazyReader{lc: lc})
	deps := lc.deps[top]
	if top > 0 {
		// whatever this thunk read, the enclosing one read too
		lc.deps[top-1] = addDeps(lc.deps[top-1], deps...)
	}
	if err != nil {
		return nil, nil, err
	}
	if !checkAssignable(item.typ, v) {
		name := lc.name(item)
		return nil, nil, &InvalidLazySetError{
			Name: name,
			Type: item.typ,
			Err:  &TypeMismatchError{Name: name, Expected: item.typ, Actual: reflect.TypeOf(v)},
		}
	}
	return v, deps, nil
}

// name returns item's name as seen from the origin config.
func (lc *lookup) name(item *Item) string {
	if name, ok := lc.origin.nameOf(item, lc); ok {
		return name
	}
	return item.name
}

// resolve reads item from c: the first non-unset entry along the chain wins,
// then the item's own default or thunk.
func resolve(c chain, item *Item, lc *lookup) (any, error) {
	if item == nil {
		return nil, &NoSuchItemError{Name: "<nil>"}
	}
	name, ok := c.nameOf(item, lc)
	if !ok {
		return nil, &NoSuchItemError{Name: item.name}
	}

	v, found, err := c.find(item, lc)
	if err != nil {
		return nil, err
	}
	if found {
		if !checkAssignable(item.typ, v) {
			return nil, &TypeMismatchError{Name: name, Expected: item.typ, Actual: reflect.TypeOf(v)}
		}
		return v, nil
	}

	switch item.kind {
	case KindOptional:
		return item.def, nil
	case KindLazy:
		return lc.lazy(&item.memo, item, item.thunk)
	default:
		return nil, &UnsetValueError{Name: name}
	}
}

func resolveName(c chain, name string, lc *lookup) (any, error) {
	item, ok := c.itemOf(name, lc)
	if !ok {
		return nil, &NoSuchItemError{Name: name}
	}
	return resolve(c, item, lc)
}

// optional turns absence errors into ok=false.
func optional(v any, err error) (any, bool, error) {
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// access implements the parts of Config that only need the chain
// primitives. Each Config type embeds it pointing at itself.
type access struct {
	self chain
}

func (a access) Get(item *Item) (any, error) {
	return resolve(a.self, item, newLookup(a.self))
}

func (a access) GetByName(name string) (any, error) {
	return resolveName(a.self, name, newLookup(a.self))
}

func (a access) Lookup(item *Item) (any, bool, error) {
	return optional(a.Get(item))
}

func (a access) LookupByName(name string) (any, bool, error) {
	return optional(a.GetByName(name))
}

func (a access) Contains(item *Item) bool {
	_, ok := a.self.nameOf(item, newLookup(a.self))
	return ok
}

func (a access) ContainsName(name string) bool {
	_, ok := a.self.itemOf(name, newLookup(a.self))
	return ok
}

func (a access) NameOf(item *Item) (string, error) {
	name, ok := a.self.nameOf(item, newLookup(a.self))
	if !ok {
		return "", &NoSuchItemError{Name: item.name}
	}
	return name, nil
}

func (a access) Items() []*Item {
	return a.self.itemList(newLookup(a.self))
}

func (a access) Specs() []*Spec {
	return a.self.specList(newLookup(a.self))
}

func (a access) Sources() []Source {
	return a.self.sourceList(newLookup(a.self))
}

func (a access) item(name string) (*Item, error) {
	item, ok := a.self.itemOf(name, newLookup(a.self))
	if !ok {
		return nil, &NoSuchItemError{Name: name}
	}
	return item, nil
}

func (a access) SetByName(name string, value any) error {
	item, err := a.item(name)
	if err != nil {
		return err
	}
	return a.self.Set(item, value)
}

func (a access) LazySetByName(name string, thunk Thunk) error {
	item, err := a.item(name)
	if err != nil {
		return err
	}
	return a.self.LazySet(item, thunk)
}

func (a access) UnsetByName(name string) error {
	item, err := a.item(name)
	if err != nil {
		return err
	}
	return a.self.Unset(item)
}

func (a access) WithSource(src Source) (Config, error) {
	child := a.self.WithLayer("source: " + src.Description())
	if err := child.AddSource(src); err != nil {
		return nil, err
	}
	return child, nil
}

func (a access) Plus(facade Config) Config {
	return Merge(a.self, facade)
}

func (a access) At(path string) (Config, error) {
	if path == "" {
		return a.self, nil
	}
	if _, err := ParsePath(path); err != nil {
		return nil, &NoSuchPathError{Path: path}
	}
	return newDrillDown(a.self, path), nil
}

func (a access) WithPrefix(prefix string) Config {
	if prefix == "" {
		return a.self
	}
	return newRollUp(a.self, prefix)
}

// lazyReader is the Reader handed to thunks. Reads made through it share
// the evaluation stack of the read that triggered the thunk.
type lazyReader struct {
	lc *lookup
}

func (r *lazyReader) Get(item *Item) (any, error) {
	return resolve(r.lc.origin, item, r.lc)
}

func (r *lazyReader) GetByName(name string) (any, error) {
	return resolveName(r.lc.origin, name, r.lc)
}

func (r *lazyReader) Lookup(item *Item) (any, bool, error) {
	return optional(r.Get(item))
}

func (r *lazyReader) LookupByName(name string) (any, bool, error) {
	return optional(r.GetByName(name))
}

func (r *lazyReader) Contains(item *Item) bool {
	_, ok := r.lc.origin.nameOf(item, r.lc)
	return ok
}

func (r *lazyReader) ContainsName(name string) bool {
	_, ok := r.lc.origin.itemOf(name, r.lc)
	return ok
}

func (r *lazyReader) NameOf(item *Item) (string, error) {
	name, ok := r.lc.origin.nameOf(item, r.lc)
	if !ok {
		return "", &NoSuchItemError{Name: item.name}
	}
	return name, nil
}

func (r *lazyReader) Items() []*Item {
	return r.lc.origin.itemList(r.lc)
}
