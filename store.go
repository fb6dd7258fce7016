// FILE: lixenwraith/config/store.go
package config

import (
	"sync/atomic"
)

// entryState is the state of one item in one layer's value store.
type entryState int

const (
	stateUnset entryState = iota
	stateLazy
	stateEvaluated
)

// dep is a value store a lazy result was computed from, at the revision
// it had when it was read.
type dep struct {
	store    *valueStore
	revision uint64
}

// addDeps appends deps to frame, skipping stores already recorded.
func addDeps(frame []dep, deps ...dep) []dep {
next:
	for _, d := range deps {
		for _, have := range frame {
			if have.store == d.store {
				continue next
			}
		}
		frame = append(frame, d)
	}
	return frame
}

// memo caches one lazy evaluation for one reading config.
type memo struct {
	origin any
	deps   []dep
	value  any
}

// memoSlot holds the latest lazy result of an entry or a declared item.
type memoSlot struct {
	p atomic.Pointer[memo]
}

// cached returns the memo for origin if none of the stores it read changed since.
func (s *memoSlot) cached(origin any) (*memo, bool) {
	m := s.p.Load()
	if m == nil || m.origin != origin {
		return nil, false
	}
	for _, d := range m.deps {
		if d.store.revision.Load() != d.revision {
			return nil, false
		}
	}
	return m, true
}

func (s *memoSlot) remember(origin any, deps []dep, v any) {
	s.p.Store(&memo{origin: origin, deps: deps, value: v})
}

// entry is the value-store slot of an item within a layer.
// Entries are replaced, never mutated, except for the memo.
type entry struct {
	state entryState
	value any
	thunk Thunk
	memo  memoSlot
}

var unsetEntry = &entry{state: stateUnset}

func evaluatedEntry(v any) *entry {
	return &entry{state: stateEvaluated, value: v}
}

func lazyEntry(fn Thunk) *entry {
	return &entry{state: stateLazy, thunk: fn}
}

// valueStore maps items to their entries within a single layer.
// It is not synchronized; the owning layer guards it.
type valueStore struct {
	entries map[*Item]*entry
	// revision counts writes to this store only.
	revision atomic.Uint64
}

func newValueStore() *valueStore {
	return &valueStore{entries: make(map[*Item]*entry)}
}

// get returns the entry of item, or unsetEntry when there is none.
func (s *valueStore) get(item *Item) *entry {
	if e, ok := s.entries[item]; ok {
		return e
	}
	return unsetEntry
}

func (s *valueStore) put(item *Item, e *entry) {
	s.entries[item] = e
	s.revision.Add(1)
}

// reset turns every entry back to unset while keeping the slots.
func (s *valueStore) reset() {
	for item := range s.entries {
		s.entries[item] = unsetEntry
	}
	s.revision.Add(1)
}
