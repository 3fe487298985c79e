// Package store implements the tiered multi-version store of spec.md
// §4.1 and the single-version store of §4.2: hot/warm/cold backends
// sharing the same key/value/range primitives, composed with
// first-writer-wins semantics per key+version.
package store

import (
	"sort"
	"sync"

	"github.com/reifydb/reifydb/internal/keycode"
)

// entry is one versioned value (or tombstone) for a single key.
type entry struct {
	version   keycode.CommitVersion
	value     []byte
	tombstone bool
}

// KV is a single decoded row returned from a range scan: the raw key and
// the value visible at the queried version.
type KV struct {
	Key     []byte
	Value   []byte
	Version keycode.CommitVersion
}

// Tier is the primitive a single storage backend (hot/warm/cold) must
// implement. All operations are parameterized by the queried
// CommitVersion per §4.1.
type Tier interface {
	// Get returns the value visible at the greatest stored version <=
	// v, reporting found=false if no such version exists or the
	// newest qualifying version is a tombstone.
	Get(key []byte, v keycode.CommitVersion) (value []byte, found bool, err error)

	// Commit atomically applies a batch of deltas at version v.
	Commit(deltas []Delta, v keycode.CommitVersion) error

	// Range iterates keys in [start, end) in ascending order,
	// yielding the latest value <= v per key and skipping
	// tombstones.
	Range(start, end []byte, v keycode.CommitVersion) ([]KV, error)

	// RangeRev is Range in descending key order.
	RangeRev(start, end []byte, v keycode.CommitVersion) ([]KV, error)

	// Close releases any resources held by the tier.
	Close() error
}

// MemTier is an in-memory Tier backed by a per-key version chain. It is
// the default "hot" backend and is also used directly as a stand-in
// "warm" tier in embedders that don't configure one.
type MemTier struct {
	mu   sync.RWMutex
	data map[string][]entry // key -> versions, ascending by version
}

// NewMemTier allocates an empty in-memory tier.
func NewMemTier() *MemTier {
	return &MemTier{data: make(map[string][]entry)}
}

func (t *MemTier) Get(key []byte, v keycode.CommitVersion) ([]byte, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	versions := t.data[string(key)]
	e, ok := latestAt(versions, v)
	if !ok || e.tombstone {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// latestAt returns the entry with the greatest version <= v, if any.
func latestAt(versions []entry, v keycode.CommitVersion) (entry, bool) {
	// versions is sorted ascending by version; find the rightmost
	// entry with version <= v via binary search.
	i := sort.Search(len(versions), func(i int) bool { return versions[i].version > v })
	if i == 0 {
		return entry{}, false
	}
	return versions[i-1], true
}

func (t *MemTier) Commit(deltas []Delta, v keycode.CommitVersion) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range deltas {
		k := string(d.deltaKey())
		switch delta := d.(type) {
		case Set:
			t.data[k] = append(t.data[k], entry{version: v, value: delta.Value})
		case Remove:
			t.data[k] = append(t.data[k], entry{version: v, tombstone: true})
		case Unset:
			t.data[k] = append(t.data[k], entry{version: v, tombstone: true})
		case Drop:
			t.applyDrop(k, delta)
		}
	}
	return nil
}

// applyDrop removes versions <= UpToVersion that fall outside the most
// recent KeepLastVersions versions for the key, per §4.1.
func (t *MemTier) applyDrop(k string, d Drop) {
	versions := t.data[k]
	if len(versions) == 0 {
		return
	}
	keep := len(versions)
	if d.KeepLastVersions != nil {
		keep = *d.KeepLastVersions
		if keep < 0 {
			keep = 0
		}
	}
	keepFromIdx := len(versions) - keep
	if keepFromIdx < 0 {
		keepFromIdx = 0
	}

	out := versions[:0:0]
	for i, e := range versions {
		recent := i >= keepFromIdx
		underHorizon := d.UpToVersion == nil || e.version <= *d.UpToVersion
		if recent || !underHorizon {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		delete(t.data, k)
		return
	}
	t.data[k] = out
}

func (t *MemTier) Range(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return t.scan(start, end, v, false)
}

func (t *MemTier) RangeRev(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return t.scan(start, end, v, true)
}

func (t *MemTier) scan(start, end []byte, v keycode.CommitVersion, reverse bool) ([]KV, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		if keyInRange([]byte(k), start, end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		e, ok := latestAt(t.data[k], v)
		if !ok || e.tombstone {
			continue
		}
		out = append(out, KV{Key: []byte(k), Value: append([]byte(nil), e.value...), Version: e.version})
	}
	return out, nil
}

func (t *MemTier) Close() error { return nil }

func keyInRange(key, start, end []byte) bool {
	if start != nil && string(key) < string(start) {
		return false
	}
	if end != nil && string(key) >= string(end) {
		return false
	}
	return true
}
