// FILE: lixenwraith/config/config.go
package config

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Reader is the read capability of a config. Lazy thunks receive a Reader
// bound to the config being read, so they observe the whole chain.
type Reader interface {
	// Get resolves item through the chain, falling back to its default or thunk.
	Get(item *Item) (any, error)
	// GetByName resolves the item registered under name.
	GetByName(name string) (any, error)
	// Lookup is like Get but reports unknown or unset items with ok=false
	// instead of an error.
	Lookup(item *Item) (value any, ok bool, err error)
	// LookupByName is like GetByName but reports absence with ok=false.
	LookupByName(name string) (value any, ok bool, err error)
	// Contains reports whether item is registered in the chain.
	Contains(item *Item) bool
	// ContainsName reports whether an item is registered under name.
	ContainsName(name string) bool
	// NameOf returns the qualified name item is registered under.
	NameOf(item *Item) (string, error)
	// Items returns every registered item, nearest layer first.
	Items() []*Item
}

// Config is a node of a cascading configuration. Writes land in the facade
// layer only; reads walk the facade layer and then its ancestors.
type Config interface {
	Reader

	// RawSet stores value without checking it against the item type.
	RawSet(item *Item, value any) error
	// Set stores value after checking it against the item type.
	Set(item *Item, value any) error
	// SetByName sets the item registered under name.
	SetByName(name string, value any) error
	// LazySet stores a thunk evaluated on read.
	LazySet(item *Item, thunk Thunk) error
	// LazySetByName lazy-sets the item registered under name.
	LazySetByName(name string, thunk Thunk) error
	// Unset discards the facade layer's value for item.
	Unset(item *Item) error
	// UnsetByName unsets the item registered under name.
	UnsetByName(name string) error
	// Clear discards every value of the facade layer. Registrations stay.
	Clear()

	// Name returns the facade layer name.
	Name() string
	// Parent returns the parent config, or nil for a root config.
	Parent() Config
	// Specs returns the specs of all layers, nearest layer first.
	Specs() []*Spec
	// Sources returns the loaded sources of all layers, most recent first.
	Sources() []Source
	// Layer returns the facade layer detached from its ancestors.
	Layer() Config

	// AddItem registers a single item in the facade layer under prefix.
	AddItem(item *Item, prefix string) error
	// AddSpec registers every item of spec in the facade layer atomically.
	AddSpec(spec *Spec) error
	// AddSource loads every reachable item from src into the facade layer.
	AddSource(src Source) error

	// Lock runs fn while holding the facade layer's write lock. fn must use
	// tx, not the receiver, to access the locked layer.
	Lock(fn func(tx Config) error) error

	// WithLayer forks a child config whose facade is a new, empty layer.
	WithLayer(name string) Config
	// WithSource forks a child config and loads src into it.
	WithSource(src Source) (Config, error)
	// Plus returns a config reading facade first and the receiver second.
	Plus(facade Config) Config
	// At returns a view of the items under path, with path stripped from names.
	At(path string) (Config, error)
	// WithPrefix returns a view whose names carry prefix in front.
	WithPrefix(prefix string) Config
}

// chain is implemented by every Config of this package.
type chain interface {
	Config

	// heldData returns the layers whose write lock the caller already holds.
	heldData() []*layerData
	// hold returns the same config with h counted as held.
	hold(h *heldSet) chain
	// find walks the value stores only; defaults are applied by resolve.
	find(item *Item, lc *lookup) (value any, found bool, err error)
	nameOf(item *Item, lc *lookup) (string, bool)
	itemOf(name string, lc *lookup) (*Item, bool)
	itemList(lc *lookup) []*Item
	specList(lc *lookup) []*Spec
	sourceList(lc *lookup) []Source
	typeMapper() TypeMapper
	log() logrus.FieldLogger
}

// layerData is the state of one layer, shared by the layer and its detached view.
type layerData struct {
	mu      sync.RWMutex
	name    string
	specs   []*Spec
	items   []*Item
	names   map[*Item]string
	byName  map[string]*Item
	store   *valueStore
	sources []Source // most recent first
}

func newLayerData(name string) *layerData {
	return &layerData{
		name:   name,
		names:  make(map[*Item]string),
		byName: make(map[string]*Item),
		store:  newValueStore(),
	}
}

// heldSet is a group of layers locked by a running Lock action.
type heldSet struct {
	data []*layerData
	done *atomic.Bool // set once the action returns
}

func (h *heldSet) list() []*layerData {
	if h.done.Load() {
		return nil
	}
	return h.data
}

// layer is the base Config: one value store plus an optional parent.
type layer struct {
	access
	d      *layerData
	parent chain
	held   []*heldSet
	mapper TypeMapper
	logger logrus.FieldLogger
}

// New creates a root config with no parent.
func New(opts ...Option) Config {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newLayer(newLayerData(o.name), nil, o.mapper, o.logger)
}

func newLayer(d *layerData, parent chain, mapper TypeMapper, logger logrus.FieldLogger) *layer {
	l := &layer{d: d, parent: parent, mapper: mapper, logger: logger}
	l.access = access{self: l}
	return l
}

// rlock read-locks the layer unless the lookup already holds its write lock.
func (l *layer) rlock(lc *lookup) func() {
	if lc.holds(l.d) {
		lc.touch(l.d.store)
		return func() {}
	}
	l.d.mu.RLock()
	lc.touch(l.d.store)
	return l.d.mu.RUnlock
}

// wlock write-locks the layer unless it is in held.
func (l *layer) wlock(held []*layerData) func() {
	if holding(held, l.d) {
		return func() {}
	}
	l.d.mu.Lock()
	return l.d.mu.Unlock
}

// heldData of a layer is what its ancestors hold: a layer forked inside a
// Lock action reads its locked parent without locking it again.
func (l *layer) heldData() []*layerData {
	var held []*layerData
	for _, h := range l.held {
		held = append(held, h.list()...)
	}
	if l.parent != nil {
		held = append(held, l.parent.heldData()...)
	}
	return held
}

func (l *layer) hold(h *heldSet) chain { return l.withHeld(h) }

func (l *layer) withHeld(h *heldSet) *layer {
	c := newLayer(l.d, l.parent, l.mapper, l.logger)
	c.held = append(append([]*heldSet(nil), l.held...), h)
	return c
}

func (l *layer) typeMapper() TypeMapper { return l.mapper }

func (l *layer) log() logrus.FieldLogger { return l.logger }

func (l *layer) find(item *Item, lc *lookup) (any, bool, error) {
	unlock := l.rlock(lc)
	e := l.d.store.get(item)
	unlock()

	switch e.state {
	case stateEvaluated:
		return e.value, true, nil
	case stateLazy:
		v, err := lc.lazy(&e.memo, item, e.thunk)
		if err != nil {
			return nil, true, err
		}
		return v, true, nil
	}

	if l.parent != nil {
		return l.parent.find(item, lc)
	}
	return nil, false, nil
}

func (l *layer) nameOf(item *Item, lc *lookup) (string, bool) {
	unlock := l.rlock(lc)
	name, ok := l.d.names[item]
	unlock()
	if ok {
		return name, true
	}
	if l.parent != nil {
		return l.parent.nameOf(item, lc)
	}
	return "", false
}

func (l *layer) itemOf(name string, lc *lookup) (*Item, bool) {
	unlock := l.rlock(lc)
	item, ok := l.d.byName[name]
	unlock()
	if ok {
		return item, true
	}
	if l.parent != nil {
		return l.parent.itemOf(name, lc)
	}
	return nil, false
}

func (l *layer) itemList(lc *lookup) []*Item {
	unlock := l.rlock(lc)
	items := append([]*Item(nil), l.d.items...)
	unlock()
	if l.parent != nil {
		items = append(items, l.parent.itemList(lc)...)
	}
	return items
}

func (l *layer) Name() string { return l.d.name }

func (l *layer) Parent() Config {
	if l.parent == nil {
		return nil
	}
	parent := l.parent
	for _, h := range l.held {
		parent = parent.hold(h)
	}
	return parent
}

func (l *layer) specList(lc *lookup) []*Spec {
	unlock := l.rlock(lc)
	specs := append([]*Spec(nil), l.d.specs...)
	unlock()
	if l.parent != nil {
		specs = append(specs, l.parent.specList(lc)...)
	}
	return specs
}

func (l *layer) sourceList(lc *lookup) []Source {
	unlock := l.rlock(lc)
	sources := append([]Source(nil), l.d.sources...)
	unlock()
	if l.parent != nil {
		sources = append(sources, l.parent.sourceList(lc)...)
	}
	return sources
}

func (l *layer) Layer() Config {
	detached := newLayer(l.d, nil, l.mapper, l.logger)
	detached.held = l.held
	return detached
}

func (l *layer) WithLayer(name string) Config {
	child := newLayer(newLayerData(name), l, l.mapper, l.logger)
	l.logger.WithFields(logrus.Fields{"layer": name, "parent": l.d.name}).Debug("forked config layer")
	return child
}

func (l *layer) RawSet(item *Item, value any) error { return l.rawSet(item, value, l.heldData()) }

func (l *layer) Set(item *Item, value any) error { return l.set(item, value, l.heldData()) }

func (l *layer) LazySet(item *Item, thunk Thunk) error {
	return l.lazySet(item, thunk, l.heldData())
}

func (l *layer) Unset(item *Item) error { return l.unset(item, l.heldData()) }

func (l *layer) Clear() { l.clear(l.heldData()) }

func (l *layer) AddItem(item *Item, prefix string) error {
	return l.addItem(item, prefix, l.heldData())
}

func (l *layer) AddSpec(spec *Spec) error { return l.addSpec(spec, l.heldData()) }

func (l *layer) AddSource(src Source) error { return l.addSource(src, l.heldData()) }

func (l *layer) Lock(fn func(tx Config) error) error {
	if !holding(l.heldData(), l.d) {
		l.d.mu.Lock()
		defer l.d.mu.Unlock()
	}
	tx := newTx(l)
	defer tx.done.Store(true)
	return fn(tx)
}

// lookupFor returns a lookup context for a mutation made while holding held.
func (l *layer) lookupFor(held []*layerData) *lookup {
	return &lookup{origin: l, held: held}
}

// withOwn returns held plus the layer's own data, without touching held.
func (l *layer) withOwn(held []*layerData) []*layerData {
	return append(append(make([]*layerData, 0, len(held)+1), held...), l.d)
}

// registered returns the name of item, failing with NoSuchItemError.
func (l *layer) registered(item *Item, held []*layerData) (string, error) {
	if item == nil {
		return "", &NoSuchItemError{Name: "<nil>"}
	}
	name, ok := l.nameOf(item, l.lookupFor(held))
	if !ok {
		return "", &NoSuchItemError{Name: item.name}
	}
	return name, nil
}

func (l *layer) rawSet(item *Item, value any, held []*layerData) error {
	if _, err := l.registered(item, held); err != nil {
		return err
	}
	unlock := l.wlock(held)
	defer unlock()
	l.d.store.put(item, evaluatedEntry(value))
	return nil
}

func (l *layer) set(item *Item, value any, held []*layerData) error {
	name, err := l.registered(item, held)
	if err != nil {
		return err
	}
	if !checkAssignable(item.typ, value) {
		return &TypeMismatchError{Name: name, Expected: item.typ, Actual: reflect.TypeOf(value)}
	}
	unlock := l.wlock(held)
	defer unlock()
	l.d.store.put(item, evaluatedEntry(value))
	return nil
}

func (l *layer) lazySet(item *Item, thunk Thunk, held []*layerData) error {
	name, err := l.registered(item, held)
	if err != nil {
		return err
	}
	if thunk == nil {
		return fmt.Errorf("lazy set of %s requires a thunk", name)
	}
	unlock := l.wlock(held)
	defer unlock()
	l.d.store.put(item, lazyEntry(thunk))
	return nil
}

func (l *layer) unset(item *Item, held []*layerData) error {
	if _, err := l.registered(item, held); err != nil {
		return err
	}
	unlock := l.wlock(held)
	defer unlock()
	l.d.store.put(item, unsetEntry)
	return nil
}

func (l *layer) clear(held []*layerData) {
	unlock := l.wlock(held)
	defer unlock()
	l.d.store.reset()
}

func (l *layer) addSpec(spec *Spec, held []*layerData) error {
	if spec == nil {
		return fmt.Errorf("cannot add nil spec")
	}
	unlock := l.wlock(held)
	defer unlock()

	lc := l.lookupFor(l.withOwn(held))
	for _, existing := range l.specList(lc) {
		if existing == spec {
			return &RepeatedSpecError{Prefix: spec.Prefix()}
		}
	}

	items := spec.Items()
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = spec.NameOf(item)
	}
	if err := l.checkNew(items, names, lc); err != nil {
		return err
	}

	l.d.specs = append(l.d.specs, spec)
	l.register(items, names)
	l.logger.WithFields(logrus.Fields{
		"layer": l.d.name,
		"spec":  spec.Prefix(),
		"items": len(items),
	}).Debug("added spec")
	return nil
}

func (l *layer) addItem(item *Item, prefix string, held []*layerData) error {
	if item == nil {
		return fmt.Errorf("cannot add nil item")
	}
	unlock := l.wlock(held)
	defer unlock()

	lc := l.lookupFor(l.withOwn(held))
	name := qualify(prefix, item.name)
	if err := l.checkNew([]*Item{item}, []string{name}, lc); err != nil {
		return err
	}
	l.register([]*Item{item}, []string{name})
	return nil
}

// checkNew validates a batch of registrations against the chain and against
// each other. Nothing is registered when any check fails.
func (l *layer) checkNew(items []*Item, names []string, lc *lookup) error {
	var existing []string
	for _, item := range l.itemList(lc) {
		if name, ok := l.nameOf(item, lc); ok {
			existing = append(existing, name)
		}
	}

	for i, item := range items {
		name := names[i]
		if _, err := ParsePath(name); err != nil || name == "" {
			return fmt.Errorf("%w: item %q", ErrInvalidName, name)
		}
		if _, ok := l.nameOf(item, lc); ok {
			return &RepeatedItemError{Name: name}
		}
		for _, other := range existing {
			if namesConflict(name, other) {
				return &NameConflictError{Name: name, Existing: other}
			}
		}
		for j := 0; j < i; j++ {
			if items[j] == item {
				return &RepeatedItemError{Name: name}
			}
			if namesConflict(name, names[j]) {
				return &NameConflictError{Name: name, Existing: names[j]}
			}
		}
	}
	return nil
}

// register records items in the layer. Callers hold the write lock.
func (l *layer) register(items []*Item, names []string) {
	for i, item := range items {
		l.d.items = append(l.d.items, item)
		l.d.names[item] = names[i]
		l.d.byName[names[i]] = item
		l.d.store.put(item, unsetEntry)
	}
}
