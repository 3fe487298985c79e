package table

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/internal/catalog"
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/txn"
	"github.com/reifydb/reifydb/internal/types"
)

func newTestManager() (*Manager, *txn.Manager) {
	cat := catalog.NewMaterializedCatalog()
	schemas := catalog.NewSchemaRegistry(store.NewSingleVersionStore())
	mgr := NewManager(cat, schemas, store.NewSingleVersionStore())
	txMgr := txn.NewManager(store.New(store.WithHot(store.NewMemTier())))
	return mgr, txMgr
}

func usersFields() []types.Field {
	return []types.Field{
		{Name: "id", Type: types.Int8},
		{Name: "name", Type: types.Utf8},
	}
}

func TestInsertThenScanRoundTripsRowValues(t *testing.T) {
	mgr, txMgr := newTestManager()
	id, err := mgr.Create(txMgr, "users", usersFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = id

	tx := txMgr.Begin()
	host := &Host{Mgr: mgr, Tx: tx, AsOf: tx.ReadVersion()}
	n, err := host.InsertRows(context.Background(), "users", []map[string]columnar.Value{
		{"id": columnar.Int(1), "name": columnar.Str("alice")},
		{"id": columnar.Int(2), "name": columnar.Str("bob")},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d inserted, want 2", n)
	}
	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2 := txMgr.Begin()
	host2 := &Host{Mgr: mgr, Tx: tx2, AsOf: tx2.ReadVersion()}
	cols, err := host2.Scan(context.Background(), "users")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if cols.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", cols.NumRows())
	}
	nameIdx := cols.IndexOf("name")
	if nameIdx < 0 {
		t.Fatalf("missing name column")
	}
	names := map[string]bool{}
	for _, v := range cols.Cols[nameIdx].Values {
		names[v.S] = true
	}
	if !names["alice"] || !names["bob"] {
		t.Fatalf("got names %v, want alice and bob", names)
	}
}

func TestUpdateRowsAppliesSetToIdentifiedRows(t *testing.T) {
	mgr, txMgr := newTestManager()
	mgr.Create(txMgr, "users", usersFields())

	tx := txMgr.Begin()
	host := &Host{Mgr: mgr, Tx: tx, AsOf: tx.ReadVersion()}
	host.InsertRows(context.Background(), "users", []map[string]columnar.Value{
		{"id": columnar.Int(1), "name": columnar.Str("alice")},
	})
	tx.Commit()

	tx2 := txMgr.Begin()
	host2 := &Host{Mgr: mgr, Tx: tx2, AsOf: tx2.ReadVersion()}
	scanned, err := host2.Scan(context.Background(), "users")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	n, err := host2.UpdateRows(context.Background(), "users", scanned, map[string][]columnar.Value{
		"name": {columnar.Str("alice2")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d updated, want 1", n)
	}
	tx2.Commit()

	tx3 := txMgr.Begin()
	host3 := &Host{Mgr: mgr, Tx: tx3, AsOf: tx3.ReadVersion()}
	after, err := host3.Scan(context.Background(), "users")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	nameIdx := after.IndexOf("name")
	if after.Cols[nameIdx].Values[0].S != "alice2" {
		t.Fatalf("got name=%v, want alice2", after.Cols[nameIdx].Values[0])
	}
}

func TestDeleteRowsRemovesIdentifiedRows(t *testing.T) {
	mgr, txMgr := newTestManager()
	mgr.Create(txMgr, "users", usersFields())

	tx := txMgr.Begin()
	host := &Host{Mgr: mgr, Tx: tx, AsOf: tx.ReadVersion()}
	host.InsertRows(context.Background(), "users", []map[string]columnar.Value{
		{"id": columnar.Int(1), "name": columnar.Str("alice")},
		{"id": columnar.Int(2), "name": columnar.Str("bob")},
	})
	tx.Commit()

	tx2 := txMgr.Begin()
	host2 := &Host{Mgr: mgr, Tx: tx2, AsOf: tx2.ReadVersion()}
	scanned, _ := host2.Scan(context.Background(), "users")
	// Keep only the row with RowNumbers[0].
	target := &columnar.Columns{RowNumbers: scanned.RowNumbers[:1]}
	n, err := host2.DeleteRows(context.Background(), "users", target)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d deleted, want 1", n)
	}
	tx2.Commit()

	tx3 := txMgr.Begin()
	host3 := &Host{Mgr: mgr, Tx: tx3, AsOf: tx3.ReadVersion()}
	after, _ := host3.Scan(context.Background(), "users")
	if after.NumRows() != 1 {
		t.Fatalf("got %d rows after delete, want 1", after.NumRows())
	}
}

func TestScanUnknownTableFails(t *testing.T) {
	mgr, txMgr := newTestManager()
	tx := txMgr.Begin()
	host := &Host{Mgr: mgr, Tx: tx, AsOf: tx.ReadVersion()}
	if _, err := host.Scan(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error scanning an undefined table")
	}
}
