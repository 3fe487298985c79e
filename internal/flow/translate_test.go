package flow

import (
	"testing"

	"github.com/reifydb/reifydb/internal/cdc"
	"github.com/reifydb/reifydb/internal/types"
)

func sampleSchema() *types.Schema {
	return types.NewSchema([]types.Field{
		{Name: "id", Type: types.Int8},
		{Name: "name", Type: types.Utf8},
		{Name: "active", Type: types.Bool},
	})
}

func TestRowValuesRoundTripsThroughRowFromValues(t *testing.T) {
	schema := sampleSchema()
	row := types.NewRow(schema)
	row.SetInt8(0, 42)
	row.SetUtf8(1, "alice")
	row.SetBool(2, true)

	values := RowValues(row)
	if values["id"].I != 42 || values["name"].S != "alice" || values["active"].B != true {
		t.Fatalf("got %+v, want id=42 name=alice active=true", values)
	}

	back := RowFromValues(schema, values)
	if back.GetInt8(0) != 42 || back.GetUtf8(1) != "alice" || back.GetBool(2) != true {
		t.Fatalf("round trip mismatch: id=%d name=%s active=%v", back.GetInt8(0), back.GetUtf8(1), back.GetBool(2))
	}
}

func TestRowValuesTreatsUndefinedFieldAsNull(t *testing.T) {
	schema := sampleSchema()
	row := types.NewRow(schema)
	row.SetInt8(0, 1)
	// name and active left undefined
	values := RowValues(row)
	if !values["name"].IsNull() || !values["active"].IsNull() {
		t.Fatalf("got %+v, want undefined fields to decode as null", values)
	}
}

func TestChangesFromCDCResolvesInsertWithOnlyAfterRow(t *testing.T) {
	schema := sampleSchema()
	row := types.NewRow(schema)
	row.SetInt8(0, 7)
	row.SetUtf8(1, "bob")
	row.SetBool(2, false)

	rec := cdc.Record{Changes: []cdc.Change{{Type: cdc.Insert, Key: []byte("k"), PostVersion: 1}}}
	resolve := func(key []byte, version uint64) (*types.Row, bool) {
		return row, true
	}
	changes := ChangesFromCDC(rec, resolve)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	c := changes[0]
	if c.Kind != ChangeInsert {
		t.Fatalf("got kind %v, want ChangeInsert", c.Kind)
	}
	if c.Before != nil {
		t.Fatalf("got non-nil Before for an Insert")
	}
	if c.After["name"].S != "bob" {
		t.Fatalf("got after.name=%v, want bob", c.After["name"])
	}
}

func TestChangesFromCDCResolvesDeleteWithOnlyBeforeRow(t *testing.T) {
	schema := sampleSchema()
	row := types.NewRow(schema)
	row.SetInt8(0, 7)

	rec := cdc.Record{Changes: []cdc.Change{{Type: cdc.Delete, Key: []byte("k"), PreVersion: 1}}}
	resolve := func(key []byte, version uint64) (*types.Row, bool) {
		return row, true
	}
	changes := ChangesFromCDC(rec, resolve)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if changes[0].After != nil {
		t.Fatalf("got non-nil After for a Delete")
	}
	if changes[0].Before == nil {
		t.Fatalf("got nil Before for a Delete")
	}
}
