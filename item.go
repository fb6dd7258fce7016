// FILE: lixenwraith/config/item.go
package config

import (
	"fmt"
	"reflect"
)

// ItemKind tells how an item behaves when no layer holds a value for it.
type ItemKind int

const (
	// KindRequired items fail with UnsetValueError when no value is found.
	KindRequired ItemKind = iota
	// KindOptional items fall back to their declared default.
	KindOptional
	// KindLazy items fall back to their derivation function.
	KindLazy
)

// String returns the kind name.
func (k ItemKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindOptional:
		return "optional"
	case KindLazy:
		return "lazy"
	default:
		return "unknown"
	}
}

// Thunk derives a value from other items. It runs synchronously on the
// reading goroutine and sees the whole chain of the config being read.
type Thunk func(r Reader) (any, error)

// Item is a declared configuration key. Items are immutable and compared by
// identity: two items with the same name are still different items.
type Item struct {
	spec        *Spec
	local       string // name relative to spec prefix
	name        string
	path        Path
	typ         reflect.Type
	kind        ItemKind
	def         any
	thunk       Thunk
	description string

	memo memoSlot // latest result of thunk
}

// ItemOption customizes an item at declaration time.
type ItemOption func(*Item)

// WithDescription attaches a human-readable description to an item.
func WithDescription(description string) ItemOption {
	return func(it *Item) {
		it.description = description
	}
}

// Spec returns the spec the item was declared in.
func (it *Item) Spec() *Spec { return it.spec }

// Name returns the item's name qualified with its spec prefix.
func (it *Item) Name() string { return it.name }

// Path returns the segments of Name.
func (it *Item) Path() Path { return append(Path(nil), it.path...) }

// Type returns the static type of values held by the item.
func (it *Item) Type() reflect.Type { return it.typ }

// Kind returns the item variant.
func (it *Item) Kind() ItemKind { return it.kind }

// Description returns the item description.
func (it *Item) Description() string { return it.description }

// Default returns the declared default of an optional item.
func (it *Item) Default() (any, bool) {
	return it.def, it.kind == KindOptional
}

// IsRequired reports whether the item is a required item.
func (it *Item) IsRequired() bool { return it.kind == KindRequired }

// IsOptional reports whether the item is an optional item.
func (it *Item) IsOptional() bool { return it.kind == KindOptional }

// IsLazy reports whether the item is a lazy item.
func (it *Item) IsLazy() bool { return it.kind == KindLazy }

func (it *Item) String() string {
	return fmt.Sprintf("%s item %s (%v)", it.kind, it.name, it.typ)
}

// Key is a typed handle on an Item, returned by the declaration functions.
type Key[T any] struct {
	item *Item
}

// Item returns the untyped item behind the key.
func (k Key[T]) Item() *Item { return k.item }

// Name returns the item's qualified name.
func (k Key[T]) Name() string { return k.item.name }

// Required declares an item that must be given a value before it is read.
func Required[T any](spec *Spec, name string, opts ...ItemOption) (Key[T], error) {
	it, err := newItem[T](spec, name, KindRequired, opts)
	if err != nil {
		return Key[T]{}, err
	}
	return Key[T]{item: it}, nil
}

// Optional declares an item that reads as def until a value is set.
func Optional[T any](spec *Spec, name string, def T, opts ...ItemOption) (Key[T], error) {
	it, err := newItem[T](spec, name, KindOptional, opts, func(it *Item) {
		it.def = def
	})
	if err != nil {
		return Key[T]{}, err
	}
	return Key[T]{item: it}, nil
}

// Lazy declares an item whose value is derived from other items until a value is set.
func Lazy[T any](spec *Spec, name string, thunk func(r Reader) (T, error), opts ...ItemOption) (Key[T], error) {
	if thunk == nil {
		return Key[T]{}, fmt.Errorf("lazy item %q requires a thunk", name)
	}
	it, err := newItem[T](spec, name, KindLazy, opts, func(it *Item) {
		it.thunk = wrapThunk(thunk)
	})
	if err != nil {
		return Key[T]{}, err
	}
	return Key[T]{item: it}, nil
}

// MustRequired is like Required but panics on error.
// Useful for package-level spec declarations.
func MustRequired[T any](spec *Spec, name string, opts ...ItemOption) Key[T] {
	k, err := Required[T](spec, name, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// MustOptional is like Optional but panics on error.
func MustOptional[T any](spec *Spec, name string, def T, opts ...ItemOption) Key[T] {
	k, err := Optional(spec, name, def, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// MustLazy is like Lazy but panics on error.
func MustLazy[T any](spec *Spec, name string, thunk func(r Reader) (T, error), opts ...ItemOption) Key[T] {
	k, err := Lazy(spec, name, thunk, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

func newItem[T any](spec *Spec, name string, kind ItemKind, opts []ItemOption, setup ...func(*Item)) (*Item, error) {
	return declare(spec, name, reflect.TypeFor[T](), kind, opts, setup...)
}

// declare creates an item of type typ and registers it in spec.
func declare(spec *Spec, name string, typ reflect.Type, kind ItemKind, opts []ItemOption, setup ...func(*Item)) (*Item, error) {
	if spec == nil {
		return nil, fmt.Errorf("item %q declared without a spec", name)
	}
	qualified := spec.Qualify(name)
	path, err := ParsePath(qualified)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: item name cannot be empty", ErrInvalidName)
	}

	it := &Item{
		spec:  spec,
		local: name,
		name:  qualified,
		path:  path,
		typ:   typ,
		kind:  kind,
	}
	for _, fn := range setup {
		fn(it)
	}
	for _, opt := range opts {
		opt(it)
	}

	if err := spec.addItem(it); err != nil {
		return nil, err
	}
	return it, nil
}

// wrapThunk erases the result type of a typed thunk.
func wrapThunk[T any](fn func(r Reader) (T, error)) Thunk {
	return func(r Reader) (any, error) {
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// checkAssignable reports whether v can be held by an item of type t.
// nil is accepted only for types that have a nil value.
func checkAssignable(t reflect.Type, v any) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}
