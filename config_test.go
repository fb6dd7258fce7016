// FILE: lixenwraith/config/config_test.go
package config

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferSpec declares the items most tests share.
type bufferSpec struct {
	spec    *Spec
	size    Key[int]
	maxSize Key[int]
	name    Key[string]
}

func newBufferSpec() bufferSpec {
	spec := NewSpec("network.buffer")
	s := bufferSpec{spec: spec}
	s.size = MustOptional(spec, "size", 0)
	s.maxSize = MustLazy(spec, "maxSize", func(r Reader) (int, error) {
		v, err := Get(r, s.size)
		return v * 2, err
	})
	s.name = MustRequired[string](spec, "name")
	return s
}

func newBufferConfig(t *testing.T) (Config, bufferSpec) {
	t.Helper()
	s := newBufferSpec()
	cfg := New(WithName("root"))
	require.NoError(t, cfg.AddSpec(s.spec))
	return cfg, s
}

func TestConfigCreation(t *testing.T) {
	t.Run("NewWithDefaultOptions", func(t *testing.T) {
		cfg := New()
		require.NotNil(t, cfg)
		assert.Equal(t, "", cfg.Name())
		assert.Nil(t, cfg.Parent())
		assert.Empty(t, cfg.Items())
		assert.Empty(t, cfg.Specs())
		assert.Empty(t, cfg.Sources())
	})

	t.Run("NewWithName", func(t *testing.T) {
		cfg := New(WithName("app"))
		assert.Equal(t, "app", cfg.Name())
	})
}

func TestChainPrecedence(t *testing.T) {
	parent, s := newBufferConfig(t)
	child := parent.WithLayer("child")

	require.NoError(t, Set(parent, s.size, 1))
	require.NoError(t, Set(child, s.size, 2))

	v, err := Get(child, s.size)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = Get(parent, s.size)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.Same(t, parent, child.Parent())
	assert.Equal(t, "child", child.Name())
}

func TestChainFallback(t *testing.T) {
	parent, s := newBufferConfig(t)
	child := parent.WithLayer("child")

	require.NoError(t, Set(parent, s.size, 7))
	pv, err := Get(parent, s.size)
	require.NoError(t, err)
	cv, err := Get(child, s.size)
	require.NoError(t, err)
	assert.Equal(t, pv, cv)

	// Items registered on the parent are visible through the child
	assert.True(t, child.Contains(s.size.Item()))
	assert.True(t, child.ContainsName("network.buffer.size"))
}

func TestLayerIsolation(t *testing.T) {
	parent, s := newBufferConfig(t)
	require.NoError(t, Set(parent, s.name, "original"))

	child := parent.WithLayer("override")
	require.NoError(t, Set(child, s.name, "x"))
	require.NoError(t, Set(child, s.size, 99))
	require.NoError(t, child.Unset(s.name.Item()))
	child.Clear()

	name, err := Get(parent, s.name)
	require.NoError(t, err)
	assert.Equal(t, "original", name)

	size, err := Get(parent, s.size)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	// Registrations on the child stay out of the parent
	extra := MustOptional(NewSpec("extra"), "flag", true)
	require.NoError(t, child.AddSpec(extra.Item().Spec()))
	assert.False(t, parent.Contains(extra.Item()))
	assert.True(t, child.Contains(extra.Item()))
}

func TestLazyEvaluation(t *testing.T) {
	t.Run("DefaultThunkFollowsDependencies", func(t *testing.T) {
		cfg, s := newBufferConfig(t)

		v, err := Get(cfg, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 0, v)

		require.NoError(t, Set(cfg, s.size, 10))
		v, err = Get(cfg, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 20, v)
	})

	t.Run("LazySetReevaluates", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		require.NoError(t, LazySet(cfg, s.maxSize, func(r Reader) (int, error) {
			v, err := Get(r, s.size)
			return v * 2, err
		}))

		require.NoError(t, Set(cfg, s.size, 1024))
		v, err := Get(cfg, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 2048, v)

		require.NoError(t, Set(cfg, s.maxSize, 0))
		require.NoError(t, Set(cfg, s.size, 2048))
		v, err = Get(cfg, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})

	t.Run("ThunkSeesReadingLayer", func(t *testing.T) {
		parent, s := newBufferConfig(t)
		require.NoError(t, LazySet(parent, s.maxSize, func(r Reader) (int, error) {
			v, err := Get(r, s.size)
			return v + 1, err
		}))
		require.NoError(t, Set(parent, s.size, 1))

		child := parent.WithLayer("child")
		require.NoError(t, Set(child, s.size, 100))

		v, err := Get(parent, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 2, v)

		v, err = Get(child, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 101, v)
	})

	t.Run("ResultIsMemoizedUntilMutation", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		calls := 0
		require.NoError(t, LazySet(cfg, s.maxSize, func(r Reader) (int, error) {
			calls++
			v, err := Get(r, s.size)
			return v * 3, err
		}))

		for i := 0; i < 3; i++ {
			v, err := Get(cfg, s.maxSize)
			require.NoError(t, err)
			assert.Equal(t, 0, v)
		}
		assert.Equal(t, 1, calls)

		require.NoError(t, Set(cfg, s.size, 2))
		v, err := Get(cfg, s.maxSize)
		require.NoError(t, err)
		assert.Equal(t, 6, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("DeclaredThunkIsMemoized", func(t *testing.T) {
		spec := NewSpec("")
		base := MustOptional(spec, "base", 1)
		calls := 0
		derived := MustLazy(spec, "derived", func(r Reader) (int, error) {
			calls++
			v, err := Get(r, base)
			return v + 1, err
		})
		cfg := New()
		require.NoError(t, cfg.AddSpec(spec))

		for i := 0; i < 3; i++ {
			v, err := Get(cfg, derived)
			require.NoError(t, err)
			assert.Equal(t, 2, v)
		}
		assert.Equal(t, 1, calls)

		require.NoError(t, Set(cfg, base, 5))
		v, err := Get(cfg, derived)
		require.NoError(t, err)
		assert.Equal(t, 6, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("UnrelatedWritesKeepMemo", func(t *testing.T) {
		spec := NewSpec("")
		base := MustOptional(spec, "base", 1)
		calls := 0
		derived := MustLazy(spec, "derived", func(r Reader) (int, error) {
			calls++
			v, err := Get(r, base)
			return v * 10, err
		})
		cfg := New()
		require.NoError(t, cfg.AddSpec(spec))
		child := cfg.WithLayer("child")

		v, err := Get(cfg, derived)
		require.NoError(t, err)
		assert.Equal(t, 10, v)

		// Neither another config nor a child layer is read by cfg
		other, s := newBufferConfig(t)
		require.NoError(t, Set(other, s.size, 3))
		require.NoError(t, Set(child, base, 7))

		v, err = Get(cfg, derived)
		require.NoError(t, err)
		assert.Equal(t, 10, v)
		assert.Equal(t, 1, calls)

		v, err = Get(child, derived)
		require.NoError(t, err)
		assert.Equal(t, 70, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("NestedMemoFollowsInnerDependencies", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		top := MustLazy(NewSpec("top"), "v", func(r Reader) (int, error) {
			v, err := Get(r, s.maxSize)
			return v + 1, err
		})
		require.NoError(t, cfg.AddSpec(top.Item().Spec()))

		v, err := Get(cfg, top)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		// top reads size only through maxSize, whose result is cached
		_, err = Get(cfg, s.maxSize)
		require.NoError(t, err)
		require.NoError(t, Set(cfg, s.size, 4))
		v, err = Get(cfg, top)
		require.NoError(t, err)
		assert.Equal(t, 9, v)
	})

	t.Run("UnsetDependencyIsReported", func(t *testing.T) {
		spec := NewSpec("")
		host := MustRequired[string](spec, "host")
		url := MustLazy(spec, "url", func(r Reader) (string, error) {
			h, err := Get(r, host)
			return "http://" + h, err
		})
		cfg := New()
		require.NoError(t, cfg.AddSpec(spec))

		_, err := Get(cfg, url)
		var unset *UnsetValueError
		require.ErrorAs(t, err, &unset)
		assert.Equal(t, "host", unset.Name)
	})

	t.Run("WrongResultType", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		require.NoError(t, cfg.LazySet(s.maxSize.Item(), func(r Reader) (any, error) {
			return "not an int", nil
		}))

		_, err := cfg.Get(s.maxSize.Item())
		assert.ErrorIs(t, err, ErrInvalidLazySet)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("ThunkErrorPropagates", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		boom := errors.New("boom")
		require.NoError(t, LazySet(cfg, s.maxSize, func(r Reader) (int, error) {
			return 0, boom
		}))
		_, err := Get(cfg, s.maxSize)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("NilThunkRejected", func(t *testing.T) {
		cfg, s := newBufferConfig(t)
		assert.Error(t, cfg.LazySet(s.maxSize.Item(), nil))
	})
}

func TestCyclicDependency(t *testing.T) {
	spec := NewSpec("")
	var a, b Key[int]
	a = MustLazy(spec, "a", func(r Reader) (int, error) { return Get(r, b) })
	b = MustLazy(spec, "b", func(r Reader) (int, error) { return Get(r, a) })
	cfg := New()
	require.NoError(t, cfg.AddSpec(spec))

	_, err := Get(cfg, a)
	var cycle *CyclicDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Chain)
	assert.ErrorIs(t, err, ErrCyclicDependency)

	// Breaking the cycle with a value makes both readable
	require.NoError(t, Set(cfg, b, 5))
	v, err := Get(cfg, a)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestRequiredAndOptional(t *testing.T) {
	cfg, s := newBufferConfig(t)

	_, err := Get(cfg, s.name)
	var unset *UnsetValueError
	require.ErrorAs(t, err, &unset)
	assert.Equal(t, "network.buffer.name", unset.Name)

	v, ok, err := Lookup(cfg, s.name)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", v)

	raw, ok, err := cfg.LookupByName("network.buffer.name")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, raw)

	size, err := Get(cfg, s.size)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	def, err := GetOr(cfg, s.name, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", def)
}

func TestUnknownItems(t *testing.T) {
	cfg, _ := newBufferConfig(t)
	other := MustOptional(NewSpec("other"), "x", 1)

	_, err := cfg.Get(other.Item())
	assert.ErrorIs(t, err, ErrNoSuchItem)

	_, err = cfg.GetByName("missing")
	assert.ErrorIs(t, err, ErrNoSuchItem)

	assert.ErrorIs(t, cfg.Set(other.Item(), 2), ErrNoSuchItem)
	assert.ErrorIs(t, cfg.SetByName("missing", 2), ErrNoSuchItem)
	assert.ErrorIs(t, cfg.Unset(other.Item()), ErrNoSuchItem)

	_, ok, err := Lookup(cfg, other)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = cfg.NameOf(other.Item())
	assert.ErrorIs(t, err, ErrNoSuchItem)
}

func TestSetTypeChecking(t *testing.T) {
	cfg, s := newBufferConfig(t)

	err := cfg.Set(s.size.Item(), "1024")
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "network.buffer.size", mismatch.Name)

	// RawSet skips the check; the mismatch surfaces on read
	require.NoError(t, cfg.RawSet(s.size.Item(), "1024"))
	_, err = cfg.Get(s.size.Item())
	assert.ErrorIs(t, err, ErrTypeMismatch)

	require.NoError(t, cfg.SetByName("network.buffer.size", 512))
	v, err := cfg.GetByName("network.buffer.size")
	require.NoError(t, err)
	assert.Equal(t, 512, v)

	assert.ErrorIs(t, cfg.Set(s.size.Item(), nil), ErrTypeMismatch)
}

func TestNameConflicts(t *testing.T) {
	t.Run("NestedNamesBothOrders", func(t *testing.T) {
		leaf := NewSpec("network")
		MustOptional(leaf, "buffer", 0)
		table := NewSpec("network.buffer")
		MustOptional(table, "size", 0)

		cfg := New()
		require.NoError(t, cfg.AddSpec(table))
		assert.ErrorIs(t, cfg.AddSpec(leaf), ErrNameConflict)

		cfg = New()
		require.NoError(t, cfg.AddSpec(leaf))
		assert.ErrorIs(t, cfg.AddSpec(table), ErrNameConflict)
	})

	t.Run("SameNameInTwoSpecs", func(t *testing.T) {
		first := NewSpec("a")
		MustOptional(first, "b", 1)
		second := NewSpec("a")
		MustOptional(second, "b", 2)

		cfg := New()
		require.NoError(t, cfg.AddSpec(first))
		err := cfg.AddSpec(second)
		var conflict *NameConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "a.b", conflict.Name)
	})

	t.Run("ConflictWithParentLayer", func(t *testing.T) {
		cfg, _ := newBufferConfig(t)
		child := cfg.WithLayer("child")
		dup := NewSpec("network.buffer")
		MustOptional(dup, "size", 1)
		assert.ErrorIs(t, child.AddSpec(dup), ErrNameConflict)
	})

	t.Run("FailedAddSpecRegistersNothing", func(t *testing.T) {
		cfg, _ := newBufferConfig(t)
		mixed := NewSpec("")
		fresh := MustOptional(mixed, "fresh", 1)
		MustOptional(mixed, "network.buffer.size", 1)

		assert.ErrorIs(t, cfg.AddSpec(mixed), ErrNameConflict)
		assert.False(t, cfg.Contains(fresh.Item()))
		assert.Len(t, cfg.Specs(), 1)
	})
}

func TestRepeatedRegistration(t *testing.T) {
	cfg, s := newBufferConfig(t)

	err := cfg.AddSpec(s.spec)
	var repeated *RepeatedSpecError
	require.ErrorAs(t, err, &repeated)
	assert.Equal(t, "network.buffer", repeated.Prefix)

	assert.ErrorIs(t, cfg.AddItem(s.size.Item(), "other"), ErrRepeatedItem)
	assert.ErrorIs(t, cfg.WithLayer("child").AddSpec(s.spec), ErrRepeatedSpec)
}

func TestAddItem(t *testing.T) {
	cfg := New()
	port := MustOptional(NewSpec(""), "port", 8080)

	require.NoError(t, cfg.AddItem(port.Item(), "server"))
	name, err := cfg.NameOf(port.Item())
	require.NoError(t, err)
	assert.Equal(t, "server.port", name)

	v, err := cfg.GetByName("server.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, v)
}

func TestClear(t *testing.T) {
	cfg, s := newBufferConfig(t)
	require.NoError(t, Set(cfg, s.size, 10))
	require.NoError(t, Set(cfg, s.name, "buf"))
	require.NoError(t, LazySet(cfg, s.maxSize, func(r Reader) (int, error) { return 1, nil }))

	cfg.Clear()
	cfg.Clear()

	size, err := Get(cfg, s.size)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	maxSize, err := Get(cfg, s.maxSize)
	require.NoError(t, err)
	assert.Equal(t, 0, maxSize)

	_, err = Get(cfg, s.name)
	assert.ErrorIs(t, err, ErrUnsetValue)

	assert.Len(t, cfg.Specs(), 1)
	assert.Len(t, cfg.Items(), 3)
}

func TestDetachedLayer(t *testing.T) {
	parent, s := newBufferConfig(t)
	child := parent.WithLayer("child")
	own := MustOptional(NewSpec("own"), "v", 1)
	require.NoError(t, child.AddSpec(own.Item().Spec()))
	require.NoError(t, Set(child, own, 2))

	layer := child.Layer()
	assert.Nil(t, layer.Parent())
	assert.False(t, layer.Contains(s.size.Item()))

	v, err := Get(layer, own)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// The detached view shares the store
	require.NoError(t, Set(layer, own, 3))
	v, err = Get(child, own)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestProperty(t *testing.T) {
	cfg, s := newBufferConfig(t)
	name := Bind(cfg, s.name)

	assert.False(t, name.IsSet())
	assert.Panics(t, func() { name.MustGet() })

	require.NoError(t, name.Set("buf"))
	assert.True(t, name.IsSet())
	assert.Equal(t, "buf", name.MustGet())

	require.NoError(t, name.Unset())
	_, err := name.Get()
	assert.ErrorIs(t, err, ErrUnsetValue)
}

func TestConcurrentAccess(t *testing.T) {
	cfg, s := newBufferConfig(t)
	child := cfg.WithLayer("child")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = Set(cfg, s.size, i*j)
				_ = Set(child, s.name, fmt.Sprintf("w%d", i))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = Get(child, s.maxSize)
				_, _ = Get(cfg, s.size)
				_ = child.Items()
			}
		}()
	}
	wg.Wait()

	// Reads stay consistent after the writers stop
	size, err := Get(cfg, s.size)
	require.NoError(t, err)
	maxSize, err := Get(child, s.maxSize)
	require.NoError(t, err)
	assert.Equal(t, size*2, maxSize)
}
