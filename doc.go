// File: lixenwraith/config/doc.go

// Package config provides cascading, thread-safe configuration for Go
// applications.
//
// Items are typed keys declared in a Spec. A Config is a chain of layers:
// each layer holds its own values, writes land in the layer they were made
// on, and reads walk from that layer up to the root. Items that have no value
// anywhere fall back to their declared default (Optional), their derivation
// function (Lazy), or fail with UnsetValueError (Required).
//
// Declaring items:
//
//	var (
//	    server = config.NewSpec("server")
//	    host   = config.MustOptional(server, "host", "localhost")
//	    port   = config.MustOptional(server, "port", 8080)
//	    addr   = config.MustLazy(server, "addr", func(r config.Reader) (string, error) {
//	        h, err := config.Get(r, host)
//	        if err != nil {
//	            return "", err
//	        }
//	        p, err := config.Get(r, port)
//	        return fmt.Sprintf("%s:%d", h, p), err
//	    })
//	)
//
// Layers and sources:
//
//	cfg := config.New()
//	_ = cfg.AddSpec(server)
//
//	file, _ := config.FromFile("config.toml")
//	cfg, _ = cfg.WithSource(file)
//
//	override := cfg.WithLayer("override")
//	_ = config.Set(override, port, 9090) // cfg still reads its own value
//
// Builder:
//
//	cfg, err := config.NewBuilder().
//	    WithSpecs(server).
//	    WithFile("config.toml").
//	    WithEnvPrefix("MYAPP_").
//	    Build()
//
// Default precedence (highest to lowest), one layer each:
//  1. Command-line arguments (--server.port=9090)
//  2. Environment variables (MYAPP_SERVER_PORT=9090)
//  3. Configuration file (TOML, JSON or YAML)
//  4. Item defaults
//
// Thread safety:
// Every layer is guarded by its own read-write mutex. Lazy functions run
// without any lock held, and their results are cached per reading config
// until a layer they read from is written. Config.Lock gives exclusive access
// to a layer for a multi-step update through the transaction handle it passes
// in. Configs forked from that handle with WithLayer or WithSource read the
// locked layer through it.
package config
