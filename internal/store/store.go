package store

import (
	"sort"

	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/rs/zerolog"
)

// MultiVersionStore composes up to three Tiers — hot, warm, cold — with
// first-writer-wins semantics per key+version (§4.1): reads consult hot
// then warm then cold and return the first hit; commits are fanned out
// to every configured tier so each keeps an independent copy at its own
// durability/latency tradeoff.
type MultiVersionStore struct {
	hot, warm, cold Tier
	log             zerolog.Logger
}

// Option configures a MultiVersionStore at construction time.
type Option func(*MultiVersionStore)

func WithHot(t Tier) Option  { return func(s *MultiVersionStore) { s.hot = t } }
func WithWarm(t Tier) Option { return func(s *MultiVersionStore) { s.warm = t } }
func WithCold(t Tier) Option { return func(s *MultiVersionStore) { s.cold = t } }
func WithLogger(l zerolog.Logger) Option { return func(s *MultiVersionStore) { s.log = l } }

// New builds a MultiVersionStore. With no options, a single in-memory
// hot tier is used — every tier is optional per §4.1.
func New(opts ...Option) *MultiVersionStore {
	s := &MultiVersionStore{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.hot == nil && s.warm == nil && s.cold == nil {
		s.hot = NewMemTier()
	}
	return s
}

func (s *MultiVersionStore) tiers() []Tier {
	var ts []Tier
	if s.hot != nil {
		ts = append(ts, s.hot)
	}
	if s.warm != nil {
		ts = append(ts, s.warm)
	}
	if s.cold != nil {
		ts = append(ts, s.cold)
	}
	return ts
}

// Get returns the value at the greatest stored version <= v across all
// configured tiers, or found=false if the most recent such version is a
// tombstone or no version exists at all.
func (s *MultiVersionStore) Get(key []byte, v keycode.CommitVersion) ([]byte, bool, error) {
	for _, t := range s.tiers() {
		val, ok, err := t.Get(key, v)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return val, true, nil
		}
	}
	return nil, false, nil
}

// Contains reports whether Get would return a value.
func (s *MultiVersionStore) Contains(key []byte, v keycode.CommitVersion) (bool, error) {
	_, ok, err := s.Get(key, v)
	return ok, err
}

// Commit atomically writes deltas to every configured tier at version v.
func (s *MultiVersionStore) Commit(deltas []Delta, v keycode.CommitVersion) error {
	for _, t := range s.tiers() {
		if err := t.Commit(deltas, v); err != nil {
			return err
		}
	}
	return nil
}

// Range merges tier iterators in ascending key order, deduplicating by
// key and preferring the earliest tier that has a visible value for it.
func (s *MultiVersionStore) Range(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return s.merge(start, end, v, false)
}

// RangeRev is Range in descending key order.
func (s *MultiVersionStore) RangeRev(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return s.merge(start, end, v, true)
}

// Prefix derives a range scan from a key prefix via keycode.FullScan
// semantics: [prefix, prefix-with-last-byte-incremented).
func (s *MultiVersionStore) Prefix(kind keycode.KeyKind, prefixBody []byte, v keycode.CommitVersion) ([]KV, error) {
	start, end := keycode.FullScan(kind, prefixBody)
	return s.Range(start, end, v)
}

func (s *MultiVersionStore) merge(start, end []byte, v keycode.CommitVersion, reverse bool) ([]KV, error) {
	seen := make(map[string]bool)
	var merged []KV
	for _, t := range s.tiers() {
		var (
			kvs []KV
			err error
		)
		if reverse {
			kvs, err = t.RangeRev(start, end, v)
		} else {
			kvs, err = t.Range(start, end, v)
		}
		if err != nil {
			return nil, err
		}
		for _, kv := range kvs {
			k := string(kv.Key)
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, kv)
		}
	}
	// Tier-local ordering was preserved but merging multiple tiers can
	// interleave them out of global order; a final sort over the
	// deduplicated result restores total key order.
	sortKV(merged, reverse)
	return merged, nil
}

func sortKV(kvs []KV, reverse bool) {
	sort.Slice(kvs, func(i, j int) bool {
		if reverse {
			return string(kvs[i].Key) > string(kvs[j].Key)
		}
		return string(kvs[i].Key) < string(kvs[j].Key)
	})
}

// Close releases every configured tier.
func (s *MultiVersionStore) Close() error {
	var firstErr error
	for _, t := range s.tiers() {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
