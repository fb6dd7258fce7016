// FILE: lixenwraith/config/mapper.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TypeMapper converts raw values read from a Source into the declared type
// of an item.
type TypeMapper interface {
	Coerce(raw any, target reflect.Type) (any, error)
}

// TypeMapperFunc adapts a function to the TypeMapper interface.
type TypeMapperFunc func(raw any, target reflect.Type) (any, error)

// Coerce calls f.
func (f TypeMapperFunc) Coerce(raw any, target reflect.Type) (any, error) {
	return f(raw, target)
}

// StructMapper is the mapstructure-backed TypeMapper. It accepts weakly typed
// input, so "8080" maps to an int and "1s" to a time.Duration.
type StructMapper struct {
	tagName string
	hooks   []mapstructure.DecodeHookFunc
}

// NewMapper creates a StructMapper reading struct fields by tagName.
// Extra hooks run after the built-in ones.
func NewMapper(tagName string, hooks ...mapstructure.DecodeHookFunc) *StructMapper {
	if tagName == "" {
		tagName = "toml"
	}
	return &StructMapper{tagName: tagName, hooks: hooks}
}

// DefaultMapper returns a StructMapper using toml struct tags.
func DefaultMapper() *StructMapper {
	return NewMapper("toml")
}

// Coerce decodes raw into a fresh value of type target.
func (m *StructMapper) Coerce(raw any, target reflect.Type) (any, error) {
	if raw != nil && reflect.TypeOf(raw).AssignableTo(target) && target.Kind() != reflect.Interface {
		return raw, nil
	}
	if target.Kind() == reflect.Interface && (raw == nil || reflect.TypeOf(raw).Implements(target)) {
		return raw, nil
	}

	result := reflect.New(target)
	if err := m.decode(raw, result.Interface()); err != nil {
		return nil, err
	}
	return result.Elem().Interface(), nil
}

func (m *StructMapper) decode(input, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          m.tagName,
		WeaklyTypedInput: true,
		DecodeHook:       m.decodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	return decoder.Decode(input)
}

// decodeHook returns the composite decode hook for all type conversions
func (m *StructMapper) decodeHook() mapstructure.DecodeHookFunc {
	hooks := []mapstructure.DecodeHookFunc{
		// Network types
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	}
	return mapstructure.ComposeDecodeHookFunc(append(hooks, m.hooks...)...)
}

// Scan decodes the items under basePath into target, a non-nil pointer to a
// struct or map. Field names follow the mapper's tag, "toml" by default.
func Scan(r Reader, basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	tree, err := ToTree(r)
	if err != nil {
		return err
	}

	path, err := ParsePath(strings.TrimSuffix(basePath, "."))
	if err != nil {
		return err
	}
	section, found := navigateToPath(tree, path)
	if !found {
		section = make(map[string]any)
	}
	sectionMap, ok := section.(map[string]any)
	if !ok {
		return fmt.Errorf("configuration path %q does not refer to a scannable section (map), but to type %T", basePath, section)
	}

	mapper := DefaultMapper()
	if c, ok := r.(chain); ok {
		if sm, ok := c.typeMapper().(*StructMapper); ok {
			mapper = sm
		}
	}
	if err := mapper.decode(sectionMap, target); err != nil {
		return fmt.Errorf("failed to scan section %q into %T: %w", basePath, target, err)
	}
	return nil
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
