// Package table binds internal/catalog, internal/txn, and internal/flow
// together into the concrete "named table" abstraction RQL's `from`/
// `insert`/`update`/`delete` stages operate against, and implements
// bytecode.Host so a compiled Program can execute against real,
// durable, MVCC-versioned row storage instead of a test fake. Grounded
// on the teacher's internal/storage/catalog.go (CatalogManager +
// table-to-row-storage wiring) and internal/engine/exec.go (the
// operator that walks a table's rows for a scan).
package table

import (
	"context"
	"fmt"
	"sync"

	"github.com/reifydb/reifydb/internal/catalog"
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/flow"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/txn"
	"github.com/reifydb/reifydb/internal/types"
)

// defaultNamespace is the implicit parent id every table not created
// under an explicit namespace is filed under (namespaces are part of
// the catalog's data model per §3.4 but RQL's surface grammar, §6.2,
// never names one, so every table this layer creates lives here).
const defaultNamespace = 0

// Manager owns table creation and name resolution: the catalog holds
// each table's structural definition, the schema registry its
// content-addressed field list, and a per-table row-number sequence
// allocates the monotonic row numbers new inserts occupy.
type Manager struct {
	cat     *catalog.MaterializedCatalog
	schemas *catalog.SchemaRegistry
	seq     *store.SingleVersionStore

	mu      sync.Mutex
	nextID  uint64
}

// NewManager builds a table manager over the given catalog, schema
// registry, and a dedicated single-version store for row-number
// sequences (distinct from the schema registry's own store instance).
func NewManager(cat *catalog.MaterializedCatalog, schemas *catalog.SchemaRegistry, seq *store.SingleVersionStore) *Manager {
	return &Manager{cat: cat, schemas: schemas, seq: seq}
}

// Create defines a new table named `name` with the given fields,
// committing a zero-delta transaction purely to obtain the monotonic
// CommitVersion the catalog entry is filed under (§4.4: every catalog
// write is versioned the same way a row write is).
func (m *Manager) Create(txMgr *txn.Manager, name string, fields []types.Field) (keycode.TableId, error) {
	schema, err := m.schemas.GetOrCreate(fields)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.nextID++
	id := keycode.TableId(m.nextID)
	m.mu.Unlock()

	tx := txMgr.Begin()
	v, err := tx.Commit()
	if err != nil {
		return 0, err
	}

	m.cat.SetEntity(catalog.KindTable, uint64(id), v, &catalog.Def{
		ID:       uint64(id),
		Kind:     catalog.KindTable,
		Parent:   defaultNamespace,
		Name:     name,
		Fields:   fields,
		SchemaFP: schema.Fingerprint(),
	})
	return id, nil
}

// resolved is the result of looking a table name up at a snapshot.
type resolved struct {
	id     keycode.TableId
	schema *types.Schema
}

func (m *Manager) resolve(name string, asOf keycode.CommitVersion) (resolved, error) {
	def, ok := m.cat.FindByName(catalog.KindTable, defaultNamespace, name, asOf)
	if !ok {
		return resolved{}, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown table").WithLabel(name)
	}
	schema, ok, err := m.schemas.Lookup(def.SchemaFP)
	if err != nil {
		return resolved{}, err
	}
	if !ok {
		return resolved{}, diagnostic.New(diagnostic.CodeInternal, "table schema missing from registry").WithLabel(name)
	}
	return resolved{id: keycode.TableId(def.ID), schema: schema}, nil
}

func rowKey(id keycode.TableId, row keycode.RowNumber) []byte {
	return keycode.TableRow(id, row).Encode()
}

// nextRowNumber allocates the next monotonic row number for id. This is
// a best-effort counter maintained outside the enclosing transaction's
// conflict set (a documented simplification: two concurrent inserts
// into the same table always get distinct row numbers, but the
// allocation itself does not participate in OCC validation).
func (m *Manager) nextRowNumber(id keycode.TableId) keycode.RowNumber {
	key := keycode.Sequence(fmt.Sprintf("table:%d:rownum", id)).Encode()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.seq.Get(key)
	var n uint64
	if ok {
		n = keycode.DecodeUint64(raw)
	}
	next := n + 1
	m.seq.Commit([]store.SingleVersionWrite{{Key: key, Value: keycode.EncodeUint64(next)}})
	return keycode.RowNumber(n)
}

// Host adapts one (Manager, Tx) pair into bytecode.Host, so a compiled
// RQL Program can scan and mutate real tables within one transaction's
// snapshot.
type Host struct {
	Mgr   *Manager
	Tx    *txn.Tx
	AsOf  keycode.CommitVersion
}

func (h *Host) Scan(ctx context.Context, source string) (*columnar.Columns, error) {
	res, err := h.Mgr.resolve(source, h.AsOf)
	if err != nil {
		return nil, err
	}
	prefix := keycode.EncodeUint64(uint64(res.id))
	start, end := keycode.FullScan(keycode.KindTableRow, prefix)
	kvs, err := h.Tx.Range(start, end)
	if err != nil {
		return nil, err
	}

	cols := columnar.Empty(schemaColumnNames(res.schema)...)
	for i := range cols.Cols {
		cols.Cols[i].Values = make([]columnar.Value, 0, len(kvs))
	}
	for _, kv := range kvs {
		k, err := keycode.Decode(kv.Key)
		if err != nil {
			continue
		}
		if len(k.Body) < 16 {
			continue
		}
		rowNumber := keycode.DecodeUint64(k.Body[8:16])
		row := types.RowFromBytes(res.schema, kv.Value)
		values := flow.RowValues(row)
		for i, f := range res.schema.Fields {
			cols.Cols[i].Values = append(cols.Cols[i].Values, values[f.Name])
		}
		cols.RowNumbers = append(cols.RowNumbers, rowNumber)
	}
	return cols, nil
}

func schemaColumnNames(schema *types.Schema) []string {
	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
	}
	return names
}

func (h *Host) InsertRows(ctx context.Context, target string, rows []map[string]columnar.Value) (int, error) {
	res, err := h.Mgr.resolve(target, h.AsOf)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		encoded := flow.RowFromValues(res.schema, row)
		rowNumber := h.Mgr.nextRowNumber(res.id)
		if err := h.Tx.Write(store.Set{Key: rowKey(res.id, rowNumber), Value: encoded.Bytes()}); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (h *Host) UpdateRows(ctx context.Context, target string, input *columnar.Columns, set map[string][]columnar.Value) (int, error) {
	res, err := h.Mgr.resolve(target, h.AsOf)
	if err != nil {
		return 0, err
	}
	n := 0
	for i, rowNumber := range input.RowNumbers {
		key := rowKey(res.id, keycode.RowNumber(rowNumber))
		raw, ok, err := h.Tx.Get(key)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		current := flow.RowValues(types.RowFromBytes(res.schema, raw))
		for col, vals := range set {
			if i < len(vals) {
				current[col] = vals[i]
			}
		}
		updated := flow.RowFromValues(res.schema, current)
		if err := h.Tx.Write(store.Set{Key: key, Value: updated.Bytes()}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (h *Host) DeleteRows(ctx context.Context, target string, input *columnar.Columns) (int, error) {
	res, err := h.Mgr.resolve(target, h.AsOf)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rowNumber := range input.RowNumbers {
		key := rowKey(res.id, keycode.RowNumber(rowNumber))
		if err := h.Tx.Write(store.Remove{Key: key}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
