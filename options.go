// File: lixenwraith/config/options.go
package config

import "github.com/sirupsen/logrus"

// Option configures a root config created by New.
type Option func(*options)

type options struct {
	name   string
	mapper TypeMapper
	logger logrus.FieldLogger
}

func defaultOptions() options {
	return options{
		mapper: DefaultMapper(),
		logger: logrus.StandardLogger(),
	}
}

// WithName sets the name of the root layer.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMapper sets the TypeMapper used when loading sources.
// Child layers inherit it.
func WithMapper(mapper TypeMapper) Option {
	return func(o *options) {
		if mapper != nil {
			o.mapper = mapper
		}
	}
}

// WithLogger sets the logger for layer events. Child layers inherit it.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
