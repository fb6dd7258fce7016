// File: lixenwraith/config/lock.go
package config

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// txLayer is the Config handed to Lock actions. The write lock of the
// underlying layer is already held, so every access skips it until the
// action returns. Layers forked from a tx inherit the same exemption.
type txLayer struct {
	access
	l    *layer
	done *atomic.Bool
}

func newTx(l *layer) *txLayer {
	return wrapTx(l, new(atomic.Bool))
}

func wrapTx(l *layer, done *atomic.Bool) *txLayer {
	tx := &txLayer{l: l, done: done}
	tx.access = access{self: tx}
	return tx
}

func (tx *txLayer) heldData() []*layerData {
	if tx.done.Load() {
		return tx.l.heldData()
	}
	return append([]*layerData{tx.l.d}, tx.l.heldData()...)
}

func (tx *txLayer) hold(h *heldSet) chain { return wrapTx(tx.l.withHeld(h), tx.done) }

func (tx *txLayer) find(item *Item, lc *lookup) (any, bool, error) {
	return tx.l.find(item, lc)
}

func (tx *txLayer) nameOf(item *Item, lc *lookup) (string, bool) {
	return tx.l.nameOf(item, lc)
}

func (tx *txLayer) itemOf(name string, lc *lookup) (*Item, bool) {
	return tx.l.itemOf(name, lc)
}

func (tx *txLayer) itemList(lc *lookup) []*Item {
	return tx.l.itemList(lc)
}

func (tx *txLayer) specList(lc *lookup) []*Spec { return tx.l.specList(lc) }

func (tx *txLayer) sourceList(lc *lookup) []Source { return tx.l.sourceList(lc) }

func (tx *txLayer) typeMapper() TypeMapper { return tx.l.mapper }

func (tx *txLayer) log() logrus.FieldLogger { return tx.l.logger }

func (tx *txLayer) RawSet(item *Item, value any) error {
	return tx.l.rawSet(item, value, tx.heldData())
}

func (tx *txLayer) Set(item *Item, value any) error { return tx.l.set(item, value, tx.heldData()) }

func (tx *txLayer) LazySet(item *Item, thunk Thunk) error {
	return tx.l.lazySet(item, thunk, tx.heldData())
}

func (tx *txLayer) Unset(item *Item) error { return tx.l.unset(item, tx.heldData()) }

func (tx *txLayer) Clear() { tx.l.clear(tx.heldData()) }

func (tx *txLayer) AddItem(item *Item, prefix string) error {
	return tx.l.addItem(item, prefix, tx.heldData())
}

func (tx *txLayer) AddSpec(spec *Spec) error { return tx.l.addSpec(spec, tx.heldData()) }

func (tx *txLayer) AddSource(src Source) error { return tx.l.addSource(src, tx.heldData()) }

func (tx *txLayer) Name() string { return tx.l.d.name }

func (tx *txLayer) Parent() Config { return tx.l.Parent() }

func (tx *txLayer) Layer() Config {
	detached := newLayer(tx.l.d, nil, tx.l.mapper, tx.l.logger)
	detached.held = tx.l.held
	return wrapTx(detached, tx.done)
}

// Lock on a transaction runs fn immediately: the lock is already held.
func (tx *txLayer) Lock(fn func(tx Config) error) error { return fn(tx) }

// WithLayer forks a child of the transaction, so the child reads the
// locked layer through it.
func (tx *txLayer) WithLayer(name string) Config {
	child := newLayer(newLayerData(name), tx, tx.l.mapper, tx.l.logger)
	tx.l.logger.WithFields(logrus.Fields{"layer": name, "parent": tx.l.d.name}).Debug("forked config layer")
	return child
}

// Locked runs fn under c's facade lock and returns its result.
func Locked[T any](c Config, fn func(tx Config) (T, error)) (T, error) {
	var result T
	err := c.Lock(func(tx Config) error {
		var err error
		result, err = fn(tx)
		return err
	})
	return result, err
}
