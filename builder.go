// File: lixenwraith/config/builder.go
package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SourceKind identifies one of the sources the Builder knows how to load.
type SourceKind string

const (
	// SourceDefault represents the defaults declared on items
	SourceDefault SourceKind = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile SourceKind = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv SourceKind = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI SourceKind = "cli"
)

// DefaultPrecedence is the source order used by the Builder, highest first.
var DefaultPrecedence = []SourceKind{SourceCLI, SourceEnv, SourceFile, SourceDefault}

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully loaded Config and should return an error if validation fails.
type ValidatorFunc func(c Config) error

// Builder provides a fluent interface for building configurations. Each
// source gets its own layer, stacked from lowest to highest precedence, and
// a final "runtime" layer receives writes made after Build.
type Builder struct {
	name       string
	specs      []*Spec
	defaults   any
	prefix     string
	file       string
	args       []string
	env        EnvOptions
	sources    []SourceKind
	mapper     TypeMapper
	logger     logrus.FieldLogger
	validators []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		name:    "default",
		args:    envArgs(),
		sources: DefaultPrecedence,
	}
}

// WithName sets the name of the root layer.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithSpecs adds specs to the root layer.
func (b *Builder) WithSpecs(specs ...*Spec) *Builder {
	b.specs = append(b.specs, specs...)
	return b
}

// WithDefaults declares items from a struct holding default values
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithPrefix sets the prefix for the WithDefaults items and for BuildAndScan
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithEnvPrefix sets the environment variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.env.Prefix = prefix
	return b
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithArgs sets the command-line arguments
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithSources sets the precedence order for configuration sources, highest first
func (b *Builder) WithSources(sources ...SourceKind) *Builder {
	b.sources = sources
	return b
}

// WithEnvTransform sets a custom environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.env.Transform = fn
	return b
}

// WithEnvWhitelist limits which paths are checked for env vars
func (b *Builder) WithEnvWhitelist(paths ...string) *Builder {
	if b.env.Whitelist == nil {
		b.env.Whitelist = make(map[string]bool)
	}
	for _, path := range paths {
		b.env.Whitelist[path] = true
	}
	return b
}

// WithMapper sets the TypeMapper of every layer.
func (b *Builder) WithMapper(mapper TypeMapper) *Builder {
	b.mapper = mapper
	return b
}

// WithLogger sets the logger of every layer.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the config chain. A missing file is not fatal: the config
// is returned together with an error matching ErrConfigNotFound.
func (b *Builder) Build() (Config, error) {
	cfg := New(WithName(b.name), WithMapper(b.mapper), WithLogger(b.logger))
	log := cfg.(chain).log()

	specs := b.specs
	if b.defaults != nil {
		spec, err := SpecFromStruct(b.prefix, b.defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		specs = append(specs, spec)
	}
	for _, spec := range specs {
		if err := cfg.AddSpec(spec); err != nil {
			return nil, err
		}
	}

	// Lowest precedence first, so later layers shadow earlier ones
	var loadErrors []error
	for i := len(b.sources) - 1; i >= 0; i-- {
		src, err := b.load(b.sources[i])
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				log.WithField("file", b.file).Warn("configuration file not found, continuing without it")
				loadErrors = append(loadErrors, err)
				continue
			}
			return nil, err
		}
		if src == nil {
			continue
		}
		if cfg, err = cfg.WithSource(src); err != nil {
			return nil, err
		}
	}
	cfg = cfg.WithLayer("runtime")

	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, errors.Join(loadErrors...)
}

// load returns the source for kind, or nil when there is nothing to load.
func (b *Builder) load(kind SourceKind) (Source, error) {
	switch kind {
	case SourceFile:
		if b.file == "" {
			return nil, nil
		}
		return FromFile(b.file)
	case SourceEnv:
		return NewEnvSource(b.env)
	case SourceCLI:
		if len(b.args) == 0 {
			return nil, nil
		}
		return FromArgs(b.args)
	default:
		// Defaults live on the items themselves
		return nil, nil
	}
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() Config {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan builds and unmarshals the final configuration into the provided target struct pointer
func (b *Builder) BuildAndScan(target any) error {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}

	// The prefix used for the defaults is the base path for scanning
	if err := Scan(cfg, b.prefix, target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return err
}
