package ringbuffer

import (
	"testing"

	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/txn"
)

func newManager() *txn.Manager {
	return txn.NewManager(store.New(store.WithHot(store.NewMemTier())))
}

func TestInsertAllocatesMonotonicRowNumbers(t *testing.T) {
	mgr := newManager()
	id := keycode.RingBufferId(1)

	tx := mgr.Begin()
	if err := Create(tx, id, 3); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var rowNumbers []keycode.RowNumber
	for i := 0; i < 3; i++ {
		tx := mgr.Begin()
		rn, err := Insert(tx, id, []byte{byte(i)})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
		rowNumbers = append(rowNumbers, rn)
	}
	for i, rn := range rowNumbers {
		if uint64(rn) != uint64(i) {
			t.Fatalf("got row number %d at index %d, want %d", rn, i, i)
		}
	}
}

func TestInsertPastCapacityEvictsOldestRow(t *testing.T) {
	mgr := newManager()
	id := keycode.RingBufferId(1)

	tx := mgr.Begin()
	Create(tx, id, 2)
	tx.Commit()

	for i := 0; i < 2; i++ {
		tx := mgr.Begin()
		Insert(tx, id, []byte{byte(i)})
		tx.Commit()
	}

	tx = mgr.Begin()
	rows, err := Scan(tx, id)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	tx.Commit()

	// Third insert evicts row 0 (the head).
	tx = mgr.Begin()
	rn, err := Insert(tx, id, []byte{9})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if uint64(rn) != 2 {
		t.Fatalf("got row number %d, want 2", rn)
	}
	tx.Commit()

	tx = mgr.Begin()
	rows, err = Scan(tx, id)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	tx.Commit()
	if len(rows) != 2 {
		t.Fatalf("got %d live rows after eviction, want 2 (count stays <= capacity)", len(rows))
	}
	for _, r := range rows {
		if r.RowNumber == 0 {
			t.Fatalf("row 0 should have been evicted, still present")
		}
	}
}

func TestMetadataReflectsHeadTailCountInvariant(t *testing.T) {
	mgr := newManager()
	id := keycode.RingBufferId(1)

	tx := mgr.Begin()
	Create(tx, id, 2)
	tx.Commit()

	for i := 0; i < 5; i++ {
		tx := mgr.Begin()
		Insert(tx, id, []byte{byte(i)})
		tx.Commit()
	}

	tx = mgr.Begin()
	meta, err := Get(tx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	tx.Commit()

	if meta.Count > meta.Capacity {
		t.Fatalf("count %d exceeds capacity %d", meta.Count, meta.Capacity)
	}
	if meta.Count != 2 {
		t.Fatalf("got count=%d, want 2 (capacity reached after 5 inserts)", meta.Count)
	}
	// tail = last row_number + 1; 5 inserts allocate row numbers 0..4.
	if uint64(meta.Tail) != 5 {
		t.Fatalf("got tail=%d, want 5", meta.Tail)
	}
	if uint64(meta.Head) != 3 {
		t.Fatalf("got head=%d, want 3 (rows 0,1,2 evicted)", meta.Head)
	}
}

func TestInsertOnUnknownRingBufferFails(t *testing.T) {
	mgr := newManager()
	tx := mgr.Begin()
	_, err := Insert(tx, keycode.RingBufferId(99), []byte("x"))
	if err == nil {
		t.Fatalf("expected error inserting into a never-created ring buffer")
	}
}
