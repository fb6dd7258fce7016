// File: lixenwraith/config/type.go
package config

import (
	"fmt"
	"reflect"
	"strconv"
)

// As resolves the item registered under name and converts its value to T
// with the config's TypeMapper. It suits callers that only know names.
func As[T any](r Reader, name string) (T, error) {
	var zero T
	val, err := r.GetByName(name)
	if err != nil {
		return zero, err
	}
	if t, ok := val.(T); ok {
		return t, nil
	}
	if val == nil {
		return zero, fmt.Errorf("value for path %s is nil, cannot convert to %v", name, reflect.TypeFor[T]())
	}

	mapper := TypeMapper(DefaultMapper())
	if c, ok := r.(chain); ok {
		mapper = c.typeMapper()
	}
	converted, err := mapper.Coerce(val, reflect.TypeFor[T]())
	if err != nil {
		return zero, fmt.Errorf("cannot convert type %T to %v for path %s: %w", val, reflect.TypeFor[T](), name, err)
	}
	return converted.(T), nil
}

// String retrieves the value under name as a string.
// Common scalar types are formatted; other types are an error.
func String(r Reader, name string) (string, error) {
	val, err := r.GetByName(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil // Treat nil as empty string for convenience
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case error:
		return v.Error(), nil
	default:
		return "", fmt.Errorf("cannot convert type %T to string for path %s", val, name)
	}
}

// Int64 retrieves the value under name as an int64.
func Int64(r Reader, name string) (int64, error) { return As[int64](r, name) }

// Bool retrieves the value under name as a bool.
func Bool(r Reader, name string) (bool, error) { return As[bool](r, name) }

// Float64 retrieves the value under name as a float64.
func Float64(r Reader, name string) (float64, error) { return As[float64](r, name) }
