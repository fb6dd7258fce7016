// FILE: lixenwraith/config/load.go
package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// addSource loads src into the layer. Values are read and coerced without
// the lock; the commit happens under the write lock and is all or nothing.
func (l *layer) addSource(src Source, held []*layerData) error {
	if src == nil {
		return fmt.Errorf("cannot add nil source")
	}

	// 1. Snapshot the items visible through the chain.
	lc := l.lookupFor(held)
	type pending struct {
		item  *Item
		value any
	}
	var (
		loaded []pending
		errs   []error
	)
	for _, item := range l.itemList(lc) {
		name, ok := l.nameOf(item, lc)
		if !ok {
			continue
		}
		path, err := ParsePath(name)
		if err != nil {
			continue
		}

		// 2. Read and coerce (no lock).
		node, ok := src.Get(path)
		if !ok {
			continue
		}
		raw, ok := node.Value()
		if !ok {
			continue
		}
		value, err := l.mapper.Coerce(raw, item.typ)
		if err != nil {
			errs = append(errs, &CoercionError{Source: src.Description(), Path: name, Type: item.typ, Err: err})
			continue
		}
		loaded = append(loaded, pending{item: item, value: value})
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// 3. Commit (write lock).
	unlock := l.wlock(held)
	defer unlock()
	for _, p := range loaded {
		l.d.store.put(p.item, evaluatedEntry(p.value))
	}
	l.d.sources = append([]Source{src}, l.d.sources...)

	l.logger.WithFields(logrus.Fields{
		"layer":  l.d.name,
		"source": src.Description(),
		"items":  len(loaded),
	}).Debug("loaded source")
	return nil
}
