// FILE: lixenwraith/config/access.go
package config

import "reflect"

// Get resolves k through r and returns the value with its declared type.
func Get[T any](r Reader, k Key[T]) (T, error) {
	var zero T
	v, err := r.Get(k.item)
	if err != nil {
		return zero, err
	}
	return typed[T](r, k, v)
}

// Lookup is like Get but reports an unknown or unset item with ok=false.
func Lookup[T any](r Reader, k Key[T]) (T, bool, error) {
	v, err := Get(r, k)
	if err != nil {
		if isAbsent(err) {
			return v, false, nil
		}
		return v, false, err
	}
	return v, true, nil
}

// GetOr returns the value of k, or def when k is unknown or unset.
func GetOr[T any](r Reader, k Key[T], def T) (T, error) {
	v, ok, err := Lookup(r, k)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Set stores v for k in c's facade layer.
func Set[T any](c Config, k Key[T], v T) error {
	return c.Set(k.item, v)
}

// LazySet stores a typed thunk for k in c's facade layer.
func LazySet[T any](c Config, k Key[T], thunk func(r Reader) (T, error)) error {
	if thunk == nil {
		return c.LazySet(k.item, nil)
	}
	return c.LazySet(k.item, wrapThunk(thunk))
}

func typed[T any](r Reader, k Key[T], v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		name, err := r.NameOf(k.item)
		if err != nil {
			name = k.item.name
		}
		return zero, &TypeMismatchError{Name: name, Expected: k.item.typ, Actual: reflect.TypeOf(v)}
	}
	return t, nil
}

// Property binds a key to a config, replacing repeated Get/Set calls.
type Property[T any] struct {
	config Config
	key    Key[T]
}

// Bind returns a property for k backed by c.
func Bind[T any](c Config, k Key[T]) Property[T] {
	return Property[T]{config: c, key: k}
}

// Get returns the current value.
func (p Property[T]) Get() (T, error) { return Get(p.config, p.key) }

// MustGet returns the current value and panics on error.
func (p Property[T]) MustGet() T {
	v, err := p.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Set stores v in the facade layer.
func (p Property[T]) Set(v T) error { return Set(p.config, p.key, v) }

// Unset discards the facade layer's value.
func (p Property[T]) Unset() error { return p.config.Unset(p.key.item) }

// IsSet reports whether the property currently resolves to a value.
func (p Property[T]) IsSet() bool {
	_, err := p.Get()
	return err == nil
}
