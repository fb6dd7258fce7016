// FILE: cmd/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/config/v2"
)

var (
	network = config.NewSpec("network.buffer")

	size = config.MustOptional(network, "size", 1024,
		config.WithDescription("size of the network buffer in bytes"))
	maxSize = config.MustLazy(network, "maxSize", func(r config.Reader) (int, error) {
		s, err := config.Get(r, size)
		return s * 2, err
	}, config.WithDescription("upper bound of the buffer, twice the size unless set"))
	name = config.MustRequired[string](network, "name",
		config.WithDescription("name of the buffer"))
)

const document = `
[network.buffer]
size = 4096
name = "inbound"
`

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg := config.New(config.WithName("root"), config.WithLogger(logger))
	if err := cfg.AddSpec(network); err != nil {
		fail(err)
	}

	// Required items fail until a value exists somewhere in the chain
	if _, err := config.Get(cfg, name); errors.Is(err, config.ErrUnsetValue) {
		fmt.Println("unset:", err)
	}

	src, err := config.FromTOML(strings.NewReader(document))
	if err != nil {
		fail(err)
	}
	loaded, err := cfg.WithSource(src)
	if err != nil {
		fail(err)
	}
	show("loaded", loaded)

	// Writes go to the facade layer only
	override := loaded.WithLayer("override")
	if err := config.Set(override, size, 8192); err != nil {
		fail(err)
	}
	show("override", override)
	show("loaded", loaded)

	// Drill into the network.buffer subtree
	buffer, err := override.At("network.buffer")
	if err != nil {
		fail(err)
	}
	v, err := buffer.GetByName("maxSize")
	if err != nil {
		fail(err)
	}
	fmt.Println("network.buffer view maxSize:", v)

	fmt.Print(config.Debug(override))
}

func show(label string, c config.Config) {
	s, _ := config.Get(c, size)
	m, _ := config.Get(c, maxSize)
	n, _ := config.GetOr(c, name, "<unset>")
	fmt.Printf("%-8s size=%d maxSize=%d name=%s\n", label, s, m, n)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
