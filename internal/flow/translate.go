package flow

import (
	"github.com/reifydb/reifydb/internal/cdc"
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/types"
)

// RowValues decodes row's defined fields into the dynamically-typed
// Value representation the columnar engine and flow operators share.
// Only bool, int4, int8, float8, utf8 and bigint fields are decoded;
// fields of any other type (blob included) decode as null rather than
// panicking, so a schema using them still flows through — just without
// that column's value.
func RowValues(row *types.Row) map[string]columnar.Value {
	schema := row.Schema()
	out := make(map[string]columnar.Value, len(schema.Fields))
	for i, f := range schema.Fields {
		if !row.IsDefined(i) {
			out[f.Name] = columnar.Null()
			continue
		}
		switch f.Type {
		case types.Bool:
			v, _ := row.TryGetBool(i)
			out[f.Name] = columnar.Bool(v)
		case types.Int4:
			v, _ := row.TryGetInt4(i)
			out[f.Name] = columnar.Int(int64(v))
		case types.Int8:
			v, _ := row.TryGetInt8(i)
			out[f.Name] = columnar.Int(v)
		case types.Float8:
			v, _ := row.TryGetFloat8(i)
			out[f.Name] = columnar.Float(v)
		case types.Utf8:
			v, _ := row.TryGetUtf8(i)
			out[f.Name] = columnar.Str(v)
		case types.BigInt:
			v, ok := row.TryGetBigInt(i)
			if ok {
				out[f.Name] = columnar.Int(v.Int64())
			} else {
				out[f.Name] = columnar.Null()
			}
		default:
			out[f.Name] = columnar.Null()
		}
	}
	return out
}

// RowFromValues re-encodes values as a Row, used when a flow operator's
// output must be re-encoded as a persisted row for a materialized view
// table. It is RowValues' inverse for bool, int4, int8, float8 and utf8
// fields; fields of any other type, bigint included, are left undefined.
func RowFromValues(schema *types.Schema, values map[string]columnar.Value) *types.Row {
	row := types.NewRow(schema)
	for i, f := range schema.Fields {
		v, ok := values[f.Name]
		if !ok || v.IsNull() {
			continue
		}
		switch f.Type {
		case types.Bool:
			row.SetBool(i, v.B)
		case types.Int4:
			row.SetInt4(i, int32(v.I))
		case types.Int8:
			row.SetInt8(i, v.I)
		case types.Float8:
			row.SetFloat8(i, v.F)
		case types.Utf8:
			row.SetUtf8(i, v.S)
		}
	}
	return row
}

// ChangesFromCDC translates one cdc.Record into FlowChange records,
// given a function that resolves a change's key to its before/after
// row bytes at the record's pre/post versions (typically backed by the
// table's MultiVersionStore and its current Schema).
func ChangesFromCDC(rec cdc.Record, resolve func(key []byte, version uint64) (*types.Row, bool)) []FlowChange {
	out := make([]FlowChange, 0, len(rec.Changes))
	for _, c := range rec.Changes {
		fc := FlowChange{Kind: changeKindOf(c.Type)}
		if c.Type != cdc.Insert {
			if row, ok := resolve(c.Key, uint64(c.PreVersion)); ok {
				fc.Before = RowValues(row)
			}
		}
		if c.Type != cdc.Delete {
			if row, ok := resolve(c.Key, uint64(c.PostVersion)); ok {
				fc.After = RowValues(row)
			}
		}
		out = append(out, fc)
	}
	return out
}
