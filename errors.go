// FILE: lixenwraith/config/errors.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Errors returned by configuration operations. Every typed error below
// matches exactly one of these through errors.Is.
var (
	// ErrNoSuchItem indicates an item or name is not registered in the config chain.
	ErrNoSuchItem = errors.New("no such item")

	// ErrUnsetValue indicates a required item has no value anywhere in the chain.
	ErrUnsetValue = errors.New("value is unset")

	// ErrInvalidLazySet indicates a lazy thunk produced a value of the wrong type.
	ErrInvalidLazySet = errors.New("invalid lazy set")

	// ErrRepeatedItem indicates the same item was added twice.
	ErrRepeatedItem = errors.New("repeated item")

	// ErrRepeatedSpec indicates the same spec was added twice to one layer.
	ErrRepeatedSpec = errors.New("repeated spec")

	// ErrNameConflict indicates two qualified names overlap.
	ErrNameConflict = errors.New("name conflict")

	// ErrTypeMismatch indicates a value does not match the item's declared type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrCoercion indicates a raw source value could not be mapped to the item's type.
	ErrCoercion = errors.New("coercion failed")

	// ErrNoSuchPath indicates a path that selects nothing.
	ErrNoSuchPath = errors.New("no such path")

	// ErrCyclicDependency indicates lazy items that depend on each other.
	ErrCyclicDependency = errors.New("cyclic lazy dependency")

	// ErrInvalidName indicates an empty or malformed qualified name.
	ErrInvalidName = errors.New("invalid name")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrCLIParse indicates malformed command-line arguments.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize indicates a raw value exceeds MaxValueSize.
	ErrValueSize = fmt.Errorf("value size exceeds maximum %d bytes", MaxValueSize)
)

// MaxValueSize bounds a single environment or argument value.
const MaxValueSize = 1024 * 1024

// NoSuchItemError reports a lookup of an unknown item or name.
type NoSuchItemError struct {
	Name string
}

func (e *NoSuchItemError) Error() string {
	return fmt.Sprintf("no such item: %s", e.Name)
}

func (e *NoSuchItemError) Is(target error) bool { return target == ErrNoSuchItem }

// UnsetValueError reports a read of a required item that has no value.
type UnsetValueError struct {
	Name string
}

func (e *UnsetValueError) Error() string {
	return fmt.Sprintf("value of item %s is unset", e.Name)
}

func (e *UnsetValueError) Is(target error) bool { return target == ErrUnsetValue }

// InvalidLazySetError reports a thunk whose result cannot be stored in its item.
type InvalidLazySetError struct {
	Name string
	Type reflect.Type
	Err  error
}

func (e *InvalidLazySetError) Error() string {
	return fmt.Sprintf("invalid lazy set for item %s (type %v): %v", e.Name, e.Type, e.Err)
}

func (e *InvalidLazySetError) Is(target error) bool { return target == ErrInvalidLazySet }

// Unwrap returns the underlying type error.
func (e *InvalidLazySetError) Unwrap() error { return e.Err }

// RepeatedItemError reports an item added twice.
type RepeatedItemError struct {
	Name string
}

func (e *RepeatedItemError) Error() string {
	return fmt.Sprintf("item %s has been added", e.Name)
}

func (e *RepeatedItemError) Is(target error) bool { return target == ErrRepeatedItem }

// RepeatedSpecError reports a spec added twice to the same layer.
type RepeatedSpecError struct {
	Prefix string
}

func (e *RepeatedSpecError) Error() string {
	return fmt.Sprintf("spec with prefix %q has been added", e.Prefix)
}

func (e *RepeatedSpecError) Is(target error) bool { return target == ErrRepeatedSpec }

// NameConflictError reports a new name that equals or nests with an existing one.
type NameConflictError struct {
	Name     string
	Existing string
}

func (e *NameConflictError) Error() string {
	if e.Name == e.Existing {
		return fmt.Sprintf("item %s already exists", e.Name)
	}
	return fmt.Sprintf("item %s conflicts with existing item %s", e.Name, e.Existing)
}

func (e *NameConflictError) Is(target error) bool { return target == ErrNameConflict }

// TypeMismatchError reports a value whose runtime type differs from the item's type.
type TypeMismatchError struct {
	Name     string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("item %s expects type %v, got %v", e.Name, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// CoercionError reports a source value that the TypeMapper rejected.
type CoercionError struct {
	Source string
	Path   string
	Type   reflect.Type
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot map %s from %s to %v: %v", e.Path, e.Source, e.Type, e.Err)
}

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

// Unwrap returns the mapper's error.
func (e *CoercionError) Unwrap() error { return e.Err }

// NoSuchPathError reports a path that matches no spec prefix or item.
type NoSuchPathError struct {
	Path string
}

func (e *NoSuchPathError) Error() string {
	return fmt.Sprintf("no such path: %q", e.Path)
}

func (e *NoSuchPathError) Is(target error) bool { return target == ErrNoSuchPath }

// CyclicDependencyError reports the chain of lazy items that loops back on itself.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic lazy dependency: %s", strings.Join(e.Chain, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// isAbsent reports whether err only signals a missing item or value.
func isAbsent(err error) bool {
	return errors.Is(err, ErrNoSuchItem) || errors.Is(err, ErrUnsetValue)
}
