// FILE: lixenwraith/config/struct.go
package config

import (
	"fmt"
	"reflect"
	"strings"
)

// SpecFromStruct declares an Optional item for every leaf field of
// structWithDefaults, using the field value as the default. Paths come from
// `toml:"..."` tags, or the field name when untagged; "-" skips a field.
// Nested structs and non-nil struct pointers become nested paths.
func SpecFromStruct(prefix string, structWithDefaults any) (*Spec, error) {
	v := reflect.ValueOf(structWithDefaults)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("SpecFromStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("SpecFromStruct requires a struct or struct pointer, got %T", structWithDefaults)
	}

	spec := NewSpec(prefix)
	var errs []string
	declareFields(spec, v, "", "", &errs)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to declare %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return spec, nil
}

// MustSpecFromStruct is like SpecFromStruct but panics on error.
func MustSpecFromStruct(prefix string, structWithDefaults any) *Spec {
	spec, err := SpecFromStruct(prefix, structWithDefaults)
	if err != nil {
		panic(err)
	}
	return spec
}

func declareFields(spec *Spec, v reflect.Value, pathPrefix, fieldPath string, errs *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("toml")
		if tag == "-" {
			continue
		}
		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		currentPath := qualify(pathPrefix, key)

		isStruct := fieldValue.Kind() == reflect.Struct && !isLeafStruct(field.Type)
		isPtrToStruct := fieldValue.Kind() == reflect.Pointer &&
			field.Type.Elem().Kind() == reflect.Struct && !isLeafStruct(field.Type.Elem())
		if isStruct || isPtrToStruct {
			nested := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					continue
				}
				nested = fieldValue.Elem()
			}
			declareFields(spec, nested, currentPath, fieldPath+field.Name+".", errs)
			continue
		}

		def := fieldValue.Interface()
		_, err := declare(spec, currentPath, field.Type, KindOptional, nil, func(it *Item) {
			it.def = def
		})
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s%s (path %s): %v", fieldPath, field.Name, currentPath, err))
		}
	}
}

// isLeafStruct reports struct types that hold a single value, such as
// time.Time and url.URL, rather than a nested table.
func isLeafStruct(t reflect.Type) bool {
	switch t.PkgPath() + "." + t.Name() {
	case "time.Time", "net/url.URL", "net.IPNet":
		return true
	}
	return false
}
