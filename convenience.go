// File: lixenwraith/config/convenience.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// Quick builds a config from struct defaults, a TOML file, environment
// variables and os.Args, in that order of increasing precedence.
func Quick(structDefaults any, envPrefix, configFile string) (Config, error) {
	b := NewBuilder().WithEnvPrefix(envPrefix).WithFile(configFile)
	if structDefaults != nil {
		spec, err := SpecFromStruct("", structDefaults)
		if err != nil {
			return nil, err
		}
		b = b.WithSpecs(spec)
	}
	return b.Build()
}

// MustQuick is like Quick but panics on error. A missing file is not an error.
func MustQuick(structDefaults any, envPrefix, configFile string) Config {
	cfg, err := Quick(structDefaults, envPrefix, configFile)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// GenerateFlags creates a flag per registered item, named by its qualified
// name and defaulting to its current value.
func GenerateFlags(r Reader) *flag.FlagSet {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	for _, item := range r.Items() {
		name, err := r.NameOf(item)
		if err != nil || fs.Lookup(name) != nil {
			continue
		}
		usage := item.Description()
		if usage == "" {
			usage = fmt.Sprintf("Config: %s", name)
		}

		current, _, _ := r.Lookup(item)
		switch item.Type().Kind() {
		case reflect.Bool:
			v, _ := current.(bool)
			fs.Bool(name, v, usage)
		case reflect.Int64:
			if v, ok := current.(int64); ok {
				fs.Int64(name, v, usage)
				continue
			}
			fs.String(name, stringify(current), usage)
		case reflect.Int:
			v, _ := current.(int)
			fs.Int(name, v, usage)
		case reflect.Float64:
			v, _ := current.(float64)
			fs.Float64(name, v, usage)
		default:
			// Everything else goes through the TypeMapper on bind
			fs.String(name, stringify(current), usage)
		}
	}

	return fs
}

// BindFlags sets every flag that was given on the command line into c's
// facade layer, converted by the layer's TypeMapper.
func BindFlags(c Config, fs *flag.FlagSet) error {
	mapper := TypeMapper(DefaultMapper())
	if ch, ok := c.(chain); ok {
		mapper = ch.typeMapper()
	}

	var errs []error
	fs.Visit(func(f *flag.Flag) {
		item, ok := itemByName(c, f.Name)
		if !ok {
			return
		}
		value, err := mapper.Coerce(f.Value.String(), item.Type())
		if err != nil {
			errs = append(errs, &CoercionError{Source: "flags", Path: f.Name, Type: item.Type(), Err: err})
			return
		}
		if err := c.Set(item, value); err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", f.Name, err))
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("failed to bind %d flags: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.([]string); ok {
		return strings.Join(s, ",")
	}
	return fmt.Sprintf("%v", v)
}

func itemByName(r Reader, name string) (*Item, bool) {
	for _, item := range r.Items() {
		if n, err := r.NameOf(item); err == nil && n == name {
			return item, true
		}
	}
	return nil, false
}

// envArgs returns os.Args without the program name, or nil when there are none.
func envArgs() []string {
	if len(os.Args) < 2 {
		return nil
	}
	return os.Args[1:]
}
