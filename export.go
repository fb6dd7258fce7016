// File: lixenwraith/config/export.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// ToMap returns the resolved value of every item that has one, keyed by
// qualified name. Unset required items are left out.
func ToMap(r Reader) (map[string]any, error) {
	result := make(map[string]any)
	seen := make(map[*Item]bool)
	for _, item := range r.Items() {
		if seen[item] {
			continue
		}
		seen[item] = true

		name, err := r.NameOf(item)
		if err != nil {
			continue
		}
		v, err := r.Get(item)
		if err != nil {
			if isAbsent(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		result[name] = v
	}
	return result, nil
}

// ToTree is ToMap nested by path segment.
func ToTree(r Reader) (map[string]any, error) {
	flat, err := ToMap(r)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]any)
	for _, name := range sortedKeys(flat) {
		setNestedValue(tree, name, flat[name])
	}
	return tree, nil
}

// Encode writes the resolved values of r to w as TOML. Nil values are skipped.
func Encode(r Reader, w io.Writer) error {
	flat, err := ToMap(r)
	if err != nil {
		return err
	}
	tree := make(map[string]any)
	for _, name := range sortedKeys(flat) {
		if flat[name] != nil {
			setNestedValue(tree, name, flat[name])
		}
	}
	if err := toml.NewEncoder(w).Encode(tree); err != nil {
		return fmt.Errorf("failed to marshal config data to TOML: %w", err)
	}
	return nil
}

// Save writes the resolved values of r to a TOML file atomically.
func Save(r Reader, path string) error {
	var buf bytes.Buffer
	if err := Encode(r, &buf); err != nil {
		return err
	}
	return atomicWriteFile(path, buf.Bytes())
}

// Dump writes the resolved values of r to stdout in TOML format
func Dump(r Reader) error {
	return Encode(r, os.Stdout)
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // no-op after a successful rename

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// ExportEnv renders resolved values as environment variables. Optional
// items still at their default are skipped.
func ExportEnv(r Reader, prefix string) (map[string]string, error) {
	transform := defaultEnvTransform(prefix)
	exports := make(map[string]string)
	for _, item := range r.Items() {
		name, err := r.NameOf(item)
		if err != nil {
			continue
		}
		v, err := r.Get(item)
		if err != nil {
			if isAbsent(err) {
				continue
			}
			return nil, err
		}
		if def, ok := item.Default(); ok && reflect.DeepEqual(v, def) {
			continue
		}
		exports[transform(name)] = fmt.Sprintf("%v", v)
	}
	return exports, nil
}

// Validate checks that every required item resolves, along with any extra
// names given. All failures are returned joined.
func Validate(r Reader, required ...string) error {
	var errs []error
	for _, item := range r.Items() {
		if !item.IsRequired() {
			continue
		}
		if _, err := r.Get(item); err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range required {
		if _, err := r.GetByName(name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Debug returns a formatted string showing the layer chain, the sources of
// each layer and the resolved values.
func Debug(c Config) string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")

	b.WriteString("Layers:\n")
	for cur := c; cur != nil; cur = cur.Parent() {
		fmt.Fprintf(&b, "  %s\n", cur.Name())
		sources := cur.Layer().Sources()
		if len(sources) > 0 {
			fmt.Fprintf(&b, "    Sources: %s\n", describe(sources))
		}
		for _, src := range sources {
			if ms, ok := src.(*MapSource); ok {
				fmt.Fprintf(&b, "      %s: %s\n", ms.Description(), strings.Join(sortedKeys(ms.Flat()), ", "))
			}
		}
	}

	b.WriteString("Current values:\n")
	for _, item := range c.Items() {
		name, err := c.NameOf(item)
		if err != nil {
			continue
		}
		v, err := c.Get(item)
		switch {
		case err != nil:
			fmt.Fprintf(&b, "  %s: <%v>\n", name, err)
		default:
			fmt.Fprintf(&b, "  %s: %v\n", name, v)
		}
		if def, ok := item.Default(); ok {
			fmt.Fprintf(&b, "    Default: %v\n", def)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
