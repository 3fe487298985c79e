package store

import (
	"testing"

	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/rs/zerolog"
)

func TestStoreSetThenGetAtVersion(t *testing.T) {
	s := New()
	key := []byte("k1")

	if err := s.Commit([]Delta{Set{Key: key, Value: []byte("v1")}}, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Commit([]Delta{Set{Key: key, Value: []byte("v2")}}, 2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	val, ok, err := s.Get(key, 2)
	if err != nil || !ok || string(val) != "v2" {
		t.Fatalf("get(k,2) = %q, %v, %v; want v2, true, nil", val, ok, err)
	}

	val, ok, err = s.Get(key, 1)
	if err != nil || !ok || string(val) != "v1" {
		t.Fatalf("get(k,1) = %q, %v, %v; want v1, true, nil", val, ok, err)
	}

	_, ok, err = s.Get(key, 0)
	if err != nil || ok {
		t.Fatalf("get(k,0) should not find a value written at version 1")
	}
}

func TestStoreRemoveTombstonesLatestButNotPrior(t *testing.T) {
	s := New()
	key := []byte("k1")

	if err := s.Commit([]Delta{Set{Key: key, Value: []byte("v1")}}, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Commit([]Delta{Remove{Key: key}}, 2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, ok, err := s.Get(key, 2)
	if err != nil || ok {
		t.Fatalf("get(k,2) should be absent after Remove, got ok=%v err=%v", ok, err)
	}

	val, ok, err := s.Get(key, 1)
	if err != nil || !ok || string(val) != "v1" {
		t.Fatalf("get(k,1) should still return prior value, got %q, %v, %v", val, ok, err)
	}
}

func TestStoreUnsetBehavesAsTombstone(t *testing.T) {
	s := New()
	key := []byte("k1")

	if err := s.Commit([]Delta{Set{Key: key, Value: []byte("v1")}}, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Commit([]Delta{Unset{Key: key, Value: []byte("v1")}}, 2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, ok, err := s.Get(key, 2)
	if err != nil || ok {
		t.Fatalf("get(k,2) should be absent after Unset, got ok=%v err=%v", ok, err)
	}
}

func TestStoreDropRespectsKeepLastVersions(t *testing.T) {
	s := New()
	key := []byte("k1")

	for v := keycode.CommitVersion(1); v <= 5; v++ {
		if err := s.Commit([]Delta{Set{Key: key, Value: []byte{byte(v)}}}, v); err != nil {
			t.Fatalf("commit v%d: %v", v, err)
		}
	}

	keep := 2
	upTo := keycode.CommitVersion(5)
	if err := s.Commit([]Delta{Drop{Key: key, UpToVersion: &upTo, KeepLastVersions: &keep}}, 5); err != nil {
		t.Fatalf("drop: %v", err)
	}

	// The two most recent versions (4, 5) must remain visible.
	val, ok, err := s.Get(key, 5)
	if err != nil || !ok || val[0] != 5 {
		t.Fatalf("get(k,5) after drop = %v, %v, %v; want [5], true, nil", val, ok, err)
	}
	val, ok, err = s.Get(key, 4)
	if err != nil || !ok || val[0] != 4 {
		t.Fatalf("get(k,4) after drop = %v, %v, %v; want [4], true, nil", val, ok, err)
	}

	// Versions older than the kept window must be gone: querying at
	// version 3 must not resolve to version 3, 2, or 1 anymore.
	_, ok, err = s.Get(key, 3)
	if err != nil || ok {
		t.Fatalf("get(k,3) after Drop{keep_last_versions:2} should find nothing, got ok=%v err=%v", ok, err)
	}
}

func TestStoreRangeAndPrefix(t *testing.T) {
	s := New()
	tableID := keycode.TableId(7)
	k1 := keycode.TableRow(tableID, 1).Encode()
	k2 := keycode.TableRow(tableID, 2).Encode()
	other := keycode.TableRow(keycode.TableId(8), 1).Encode()

	if err := s.Commit([]Delta{
		Set{Key: k1, Value: []byte("row1")},
		Set{Key: k2, Value: []byte("row2")},
		Set{Key: other, Value: []byte("other")},
	}, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}

	prefix := keycode.EncodeUint64(uint64(tableID))
	kvs, err := s.Prefix(keycode.KindTableRow, prefix, 1)
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}
	if len(kvs) != 2 {
		t.Fatalf("prefix scan returned %d rows, want 2 (table 8's row must be excluded)", len(kvs))
	}
	for _, kv := range kvs {
		if string(kv.Value) == "other" {
			t.Fatalf("prefix scan leaked a row belonging to a different table")
		}
	}
}

func TestStoreTierPrecedenceFirstWriterWins(t *testing.T) {
	hot := NewMemTier()
	warm := NewMemTier()
	s := New(WithHot(hot), WithWarm(warm))

	key := []byte("k1")
	if err := warm.Commit([]Delta{Set{Key: key, Value: []byte("warm")}}, 1); err != nil {
		t.Fatalf("warm commit: %v", err)
	}
	if err := hot.Commit([]Delta{Set{Key: key, Value: []byte("hot")}}, 1); err != nil {
		t.Fatalf("hot commit: %v", err)
	}

	val, ok, err := s.Get(key, 1)
	if err != nil || !ok || string(val) != "hot" {
		t.Fatalf("get should prefer hot tier, got %q, %v, %v", val, ok, err)
	}
}

func TestSingleVersionStoreLastWriterWins(t *testing.T) {
	s := NewSingleVersionStore()
	key := []byte("seq:orders")

	if err := s.Commit([]SingleVersionWrite{{Key: key, Value: []byte{1}}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Commit([]SingleVersionWrite{{Key: key, Value: []byte{2}}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	val, ok := s.Get(key)
	if !ok || val[0] != 2 {
		t.Fatalf("get = %v, %v; want [2], true", val, ok)
	}

	if err := s.Commit([]SingleVersionWrite{{Key: key, Value: nil}}); err != nil {
		t.Fatalf("delete commit: %v", err)
	}
	if _, ok := s.Get(key); ok {
		t.Fatalf("key should be gone after a nil-value write")
	}
}

func TestRetentionCollectorRunOnceAppliesPolicy(t *testing.T) {
	s := New()
	tableID := keycode.TableId(1)
	key := keycode.TableRow(tableID, 1).Encode()

	for v := keycode.CommitVersion(1); v <= 5; v++ {
		if err := s.Commit([]Delta{Set{Key: key, Value: []byte{byte(v)}}}, v); err != nil {
			t.Fatalf("commit v%d: %v", v, err)
		}
	}

	current := keycode.CommitVersion(5)
	c := NewRetentionCollector(s, func() keycode.CommitVersion { return current }, zerolog.Nop())
	prefix := keycode.EncodeUint64(uint64(tableID))
	c.Register("table:1", keycode.KindTableRow, prefix, RetentionPolicy{Kind: KeepVersionsKind, KeepCount: 2, Mode: ModeDelete})

	if err := c.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if _, ok, _ := s.Get(key, 3); ok {
		t.Fatalf("version 3 should have been collected once only the last 2 versions are retained")
	}
	if val, ok, _ := s.Get(key, 5); !ok || val[0] != 5 {
		t.Fatalf("version 5 should remain visible after collection")
	}
}
