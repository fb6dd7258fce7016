// FILE: lixenwraith/config/mapper_test.go
package config

import (
	"encoding/json"
	"net"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructMapper(t *testing.T) {
	m := DefaultMapper()

	tests := []struct {
		name     string
		raw      any
		target   reflect.Type
		expected any
	}{
		{"StringToInt", "8080", reflect.TypeFor[int](), 8080},
		{"Int64ToInt", int64(42), reflect.TypeFor[int](), 42},
		{"JSONNumberToInt", json.Number("9090"), reflect.TypeFor[int](), 9090},
		{"StringToBool", "true", reflect.TypeFor[bool](), true},
		{"StringToFloat", "1.5", reflect.TypeFor[float64](), 1.5},
		{"StringToDuration", "5s", reflect.TypeFor[time.Duration](), 5 * time.Second},
		{"CommaSlice", "a,b,c", reflect.TypeFor[[]string](), []string{"a", "b", "c"}},
		{"AnySlice", []any{"x", "y"}, reflect.TypeFor[[]string](), []string{"x", "y"}},
		{"StringToIP", "192.168.1.1", reflect.TypeFor[net.IP](), net.ParseIP("192.168.1.1")},
		{"Passthrough", "text", reflect.TypeFor[string](), "text"},
		{"Interface", 12, reflect.TypeFor[any](), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := m.Coerce(tt.raw, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}

	t.Run("Struct", func(t *testing.T) {
		type Server struct {
			Host    string        `toml:"host"`
			Port    int           `toml:"port"`
			Timeout time.Duration `toml:"timeout"`
		}
		v, err := m.Coerce(map[string]any{"host": "h", "port": "81", "timeout": "1m"}, reflect.TypeFor[Server]())
		require.NoError(t, err)
		assert.Equal(t, Server{Host: "h", Port: 81, Timeout: time.Minute}, v)
	})

	t.Run("NetworkTypes", func(t *testing.T) {
		v, err := m.Coerce("10.0.0.0/8", reflect.TypeFor[*net.IPNet]())
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.0/8", v.(*net.IPNet).String())

		v, err = m.Coerce("https://example.com/path", reflect.TypeFor[url.URL]())
		require.NoError(t, err)
		u := v.(url.URL)
		assert.Equal(t, "example.com", u.Host)
	})

	t.Run("Failures", func(t *testing.T) {
		_, err := m.Coerce("not-a-number", reflect.TypeFor[int]())
		assert.Error(t, err)

		_, err = m.Coerce("999.999.999.999", reflect.TypeFor[net.IP]())
		assert.Error(t, err)

		_, err = m.Coerce(strings.Repeat("1", 50), reflect.TypeFor[net.IP]())
		assert.Error(t, err)

		_, err = m.Coerce("not-a-cidr", reflect.TypeFor[net.IPNet]())
		assert.Error(t, err)

		_, err = m.Coerce("https://"+strings.Repeat("a", 2100), reflect.TypeFor[url.URL]())
		assert.Error(t, err)
	})

	t.Run("ExtraHooks", func(t *testing.T) {
		upper := func(f, to reflect.Type, data any) (any, error) {
			if s, ok := data.(string); ok && to.Kind() == reflect.String {
				return strings.ToUpper(s), nil
			}
			return data, nil
		}
		custom := NewMapper("", upper)
		v, err := custom.Coerce(42, reflect.TypeFor[string]())
		require.NoError(t, err)
		assert.Equal(t, "42", v)

		v, err = custom.Coerce([]any{"a"}, reflect.TypeFor[[]string]())
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, v)
	})

	t.Run("MapperFunc", func(t *testing.T) {
		fn := TypeMapperFunc(func(raw any, target reflect.Type) (any, error) {
			return reflect.Zero(target).Interface(), nil
		})
		v, err := fn.Coerce("ignored", reflect.TypeFor[int]())
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})
}

func TestScan(t *testing.T) {
	type Server struct {
		Host    string        `toml:"host"`
		Port    int           `toml:"port"`
		Timeout time.Duration `toml:"timeout"`
	}
	type App struct {
		Server Server `toml:"server"`
		Debug  bool   `toml:"debug"`
	}

	spec := MustSpecFromStruct("", App{Server: Server{Host: "localhost", Port: 8080, Timeout: time.Second}})
	cfg := New()
	require.NoError(t, cfg.AddSpec(spec))
	require.NoError(t, cfg.SetByName("server.port", 9090))

	t.Run("Whole", func(t *testing.T) {
		var app App
		require.NoError(t, Scan(cfg, "", &app))
		assert.Equal(t, App{Server: Server{Host: "localhost", Port: 9090, Timeout: time.Second}}, app)
	})

	t.Run("BasePath", func(t *testing.T) {
		var server Server
		require.NoError(t, Scan(cfg, "server.", &server))
		assert.Equal(t, 9090, server.Port)

		var empty Server
		require.NoError(t, Scan(cfg, "missing", &empty))
		assert.Equal(t, Server{}, empty)
	})

	t.Run("InvalidTargets", func(t *testing.T) {
		var server Server
		assert.Error(t, Scan(cfg, "", server))
		assert.Error(t, Scan(cfg, "", (*Server)(nil)))
		assert.Error(t, Scan(cfg, "server.port", &server))
	})
}
