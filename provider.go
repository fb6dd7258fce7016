// FILE: lixenwraith/config/provider.go
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MaxFileSize bounds the configuration files read by FromFile.
const MaxFileSize = 10 * 1024 * 1024

// FromTOML reads a TOML document.
func FromTOML(r io.Reader) (*MapSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read TOML input: %w", err)
	}
	return FromBytes(data, FormatTOML, "toml")
}

// FromJSON reads a JSON document. Numbers keep their precision as json.Number
// until the TypeMapper converts them.
func FromJSON(r io.Reader) (*MapSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}
	return FromBytes(data, FormatJSON, "json")
}

// FromYAML reads a YAML document.
func FromYAML(r io.Reader) (*MapSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML input: %w", err)
	}
	return FromBytes(data, FormatYAML, "yaml")
}

// FromBytes parses data in the given format. An empty format is detected
// from the content.
func FromBytes(data []byte, format, description string) (*MapSource, error) {
	if format == "" || format == "auto" {
		format = detectFormatFromContent(data)
	}

	tree := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", description, err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&tree); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config %s: %w", description, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", description, err)
		}
	default:
		return nil, fmt.Errorf("unable to determine config format for %s", description)
	}

	return NewMapSource(description, tree), nil
}

// FromFile reads a configuration file. The format comes from the extension,
// then from the content. A missing file yields ErrConfigNotFound.
func FromFile(path string) (*MapSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", path, MaxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return FromBytes(data, detectFileFormat(path), path)
}

// EnvTransformFunc converts a configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// EnvOptions configures an environment source.
type EnvOptions struct {
	// Prefix is prepended to variable names.
	// Example: "MYAPP_" transforms "server.port" to "MYAPP_SERVER_PORT"
	Prefix string

	// Transform customizes how paths map to variable names.
	// If nil, dots become underscores and the name is upper-cased.
	Transform EnvTransformFunc

	// Whitelist limits which paths are looked up (nil = all).
	Whitelist map[string]bool
}

// envSource reads values from a snapshot of the process environment.
type envSource struct {
	opts EnvOptions
	vars map[string]string
	base Path
}

// FromEnv snapshots the environment, mapping "a.b" to PREFIX_A_B.
func FromEnv(prefix string) (Source, error) {
	return NewEnvSource(EnvOptions{Prefix: prefix})
}

// NewEnvSource snapshots the environment with custom options. Variables
// larger than MaxValueSize fail with ErrValueSize.
func NewEnvSource(opts EnvOptions) (Source, error) {
	if opts.Transform == nil {
		opts.Transform = defaultEnvTransform(opts.Prefix)
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if opts.Prefix != "" && !strings.HasPrefix(name, opts.Prefix) {
			continue
		}
		if len(value) > MaxValueSize {
			return nil, fmt.Errorf("environment variable %s: %w", name, ErrValueSize)
		}
		vars[name] = value
	}
	return &envSource{opts: opts, vars: vars}, nil
}

func (s *envSource) Description() string {
	if s.opts.Prefix == "" {
		return "env"
	}
	return "env " + s.opts.Prefix
}

func (s *envSource) Contains(path Path) bool {
	sub, _ := s.Get(path)
	_, ok := sub.Value()
	return ok
}

func (s *envSource) Get(path Path) (Source, bool) {
	full := append(append(Path(nil), s.base...), path...)
	return &envSource{opts: s.opts, vars: s.vars, base: full}, true
}

func (s *envSource) Value() (any, bool) {
	if len(s.base) == 0 {
		return nil, false
	}
	key := s.base.String()
	if s.opts.Whitelist != nil && !s.opts.Whitelist[key] {
		return nil, false
	}
	value, ok := s.vars[s.opts.Transform(key)]
	if !ok {
		value, ok = os.LookupEnv(s.opts.Transform(key))
	}
	if !ok || len(value) > MaxValueSize {
		return nil, false
	}
	return value, true
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ReplaceAll(path, ".", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// FromArgs parses command-line arguments of the form --a.b=value,
// --a.b value and bare --flag (true). Other arguments are ignored.
func FromArgs(args []string) (*MapSource, error) {
	tree, err := parseArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	return NewMapSource("cli", tree), nil
}

// parseArgs processes command-line arguments into a nested map structure.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// "--" separator
			i++
			continue
		}

		var keyPath, valueStr string
		if key, value, found := strings.Cut(argContent, "="); found {
			keyPath, valueStr = key, value
			i++
		} else {
			keyPath = argContent
			// A flag followed by another flag, or by nothing, is a boolean switch
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" {
			continue
		}
		for _, segment := range strings.Split(keyPath, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, keyPath)
			}
		}
		if len(valueStr) > MaxValueSize {
			return nil, fmt.Errorf("argument %s: %w", keyPath, ErrValueSize)
		}

		// Stored as strings; the TypeMapper does the conversion.
		setNestedValue(result, keyPath, parseValue(valueStr))
	}

	return result, nil
}

// parseValue strips surrounding double quotes. Conversion to the item type
// is left to the TypeMapper.
func parseValue(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// JSON first: YAML accepts most JSON documents too
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}
