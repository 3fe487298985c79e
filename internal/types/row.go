package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
)

// contract violation errors — these signal a caller bug (reading an
// undefined field via the infallible accessor, or rewriting a dynamic
// field in place), not a data error.
var (
	ErrUndefinedField  = fmt.Errorf("types: read of undefined field via infallible accessor")
	ErrFieldDefined    = fmt.Errorf("types: dynamic field already defined; clone the row to rewrite it")
	ErrFieldIndexRange = fmt.Errorf("types: field index out of range")
)

// Row is the encoded-value buffer of §3.1: a validity bitmap, a
// fixed-width static section, and an append-only dynamic section.
type Row struct {
	schema    *Schema
	buf       []byte
	offs      []int // static-section byte offset per field
	staticEnd int    // offset where the dynamic section begins
}

// NewRow allocates a Row for schema with every field undefined.
func NewRow(schema *Schema) *Row {
	offs := schema.staticOffsets()
	staticWidth := 0
	if n := len(offs); n > 0 {
		staticWidth = offs[n-1] + schema.Fields[n-1].Type.Width()
	}
	bmBytes := bitmapBytes(len(schema.Fields))
	staticEnd := bmBytes + staticWidth
	return &Row{
		schema:    schema,
		buf:       make([]byte, staticEnd),
		offs:      offs,
		staticEnd: staticEnd,
	}
}

// RowFromBytes wraps an already-encoded row buffer (as persisted under
// a TableRow key) back into a Row for field access, without copying.
func RowFromBytes(schema *Schema, buf []byte) *Row {
	offs := schema.staticOffsets()
	staticWidth := 0
	if n := len(offs); n > 0 {
		staticWidth = offs[n-1] + schema.Fields[n-1].Type.Width()
	}
	bmBytes := bitmapBytes(len(schema.Fields))
	return &Row{
		schema:    schema,
		buf:       buf,
		offs:      offs,
		staticEnd: bmBytes + staticWidth,
	}
}

// Schema returns the row's schema.
func (r *Row) Schema() *Schema { return r.schema }

func (r *Row) bitmapBytes() int { return bitmapBytes(len(r.schema.Fields)) }

// IsDefined reports whether field i currently holds a value.
func (r *Row) IsDefined(i int) bool {
	r.checkIndex(i)
	byteIdx := i / 8
	bit := uint(i % 8)
	return r.buf[byteIdx]&(1<<bit) != 0
}

func (r *Row) setDefined(i int, defined bool) {
	byteIdx := i / 8
	bit := uint(i % 8)
	if defined {
		r.buf[byteIdx] |= 1 << bit
	} else {
		r.buf[byteIdx] &^= 1 << bit
	}
}

// SetUndefined clears field i's validity bit. It does not reclaim any
// dynamic-section bytes already appended for a prior value — per §3.1
// dynamic-section growth is monotone for the row's lifetime.
func (r *Row) SetUndefined(i int) {
	r.checkIndex(i)
	r.setDefined(i, false)
}

func (r *Row) checkIndex(i int) {
	if i < 0 || i >= len(r.schema.Fields) {
		panic(ErrFieldIndexRange)
	}
}

func (r *Row) staticSlot(i int) []byte {
	off := r.bitmapBytes() + r.offs[i]
	w := r.schema.Fields[i].Type.Width()
	return r.buf[off : off+w]
}

// Bytes returns the row's raw encoded buffer (bitmap + static + dynamic).
func (r *Row) Bytes() []byte { return r.buf }

// --- fixed-width scalar accessors -----------------------------------------

func (r *Row) SetBool(i int, v bool) {
	r.checkIndex(i)
	slot := r.staticSlot(i)
	if v {
		slot[0] = 1
	} else {
		slot[0] = 0
	}
	r.setDefined(i, true)
}

func (r *Row) TryGetBool(i int) (bool, bool) {
	r.checkIndex(i)
	if !r.IsDefined(i) {
		return false, false
	}
	return r.staticSlot(i)[0] != 0, true
}

func (r *Row) GetBool(i int) bool {
	v, ok := r.TryGetBool(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

func (r *Row) SetInt4(i int, v int32) {
	r.checkIndex(i)
	binary.BigEndian.PutUint32(r.staticSlot(i), uint32(v))
	r.setDefined(i, true)
}

func (r *Row) TryGetInt4(i int) (int32, bool) {
	r.checkIndex(i)
	if !r.IsDefined(i) {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(r.staticSlot(i))), true
}

func (r *Row) GetInt4(i int) int32 {
	v, ok := r.TryGetInt4(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

func (r *Row) SetInt8(i int, v int64) {
	r.checkIndex(i)
	binary.BigEndian.PutUint64(r.staticSlot(i), uint64(v))
	r.setDefined(i, true)
}

func (r *Row) TryGetInt8(i int) (int64, bool) {
	r.checkIndex(i)
	if !r.IsDefined(i) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(r.staticSlot(i))), true
}

func (r *Row) GetInt8(i int) int64 {
	v, ok := r.TryGetInt8(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

func (r *Row) SetFloat8(i int, v float64) {
	r.checkIndex(i)
	binary.BigEndian.PutUint64(r.staticSlot(i), math.Float64bits(v))
	r.setDefined(i, true)
}

func (r *Row) TryGetFloat8(i int) (float64, bool) {
	r.checkIndex(i)
	if !r.IsDefined(i) {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(r.staticSlot(i))), true
}

func (r *Row) GetFloat8(i int) float64 {
	v, ok := r.TryGetFloat8(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

// --- handle-backed (variable length) accessors ----------------------------

// setDynamicBytes writes payload for field i, either inline or by
// appending to the dynamic section and writing a reference handle. It
// enforces the append-only/undefined-before-write discipline of §3.1.
func (r *Row) setDynamicBytes(i int, payload []byte) {
	r.checkIndex(i)
	if r.IsDefined(i) {
		panic(ErrFieldDefined)
	}
	var h handle
	if inline, ok := newInlinePayload(payload); ok {
		h = inline
	} else {
		offset := uint64(len(r.buf) - r.staticEnd)
		r.buf = append(r.buf, payload...)
		h = newDynamicRef(offset, uint64(len(payload)))
	}
	h.write(r.staticSlot(i))
	r.setDefined(i, true)
}

func (r *Row) getDynamicBytes(i int) ([]byte, bool) {
	r.checkIndex(i)
	if !r.IsDefined(i) {
		return nil, false
	}
	h := readHandle(r.staticSlot(i))
	if !h.isDynamic() {
		return h.inlinePayload(), true
	}
	offset, length := h.dynamicRef()
	start := r.staticEnd + int(offset)
	end := start + int(length)
	return r.buf[start:end], true
}

func (r *Row) SetUtf8(i int, s string) { r.setDynamicBytes(i, []byte(s)) }

func (r *Row) TryGetUtf8(i int) (string, bool) {
	b, ok := r.getDynamicBytes(i)
	if !ok {
		return "", false
	}
	return string(b), true
}

func (r *Row) GetUtf8(i int) string {
	v, ok := r.TryGetUtf8(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

func (r *Row) SetBlob(i int, b []byte) { r.setDynamicBytes(i, b) }

func (r *Row) TryGetBlob(i int) ([]byte, bool) { return r.getDynamicBytes(i) }

func (r *Row) GetBlob(i int) []byte {
	v, ok := r.TryGetBlob(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

func (r *Row) SetBigInt(i int, v *big.Int) {
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	r.setDynamicBytes(i, append([]byte{sign}, v.Bytes()...))
}

func (r *Row) TryGetBigInt(i int) (*big.Int, bool) {
	b, ok := r.getDynamicBytes(i)
	if !ok || len(b) == 0 {
		return nil, false
	}
	v := new(big.Int).SetBytes(b[1:])
	if b[0] == 1 {
		v.Neg(v)
	}
	return v, true
}

func (r *Row) GetBigInt(i int) *big.Int {
	v, ok := r.TryGetBigInt(i)
	if !ok {
		panic(ErrUndefinedField)
	}
	return v
}

// Clone performs the clone-on-write duplication required to rewrite a
// dynamic field that was previously defined: it copies the row buffer,
// clears validity for the given field indices, and lets the caller
// re-populate them via the normal Set* path.
func (r *Row) Clone(clearFields ...int) *Row {
	nr := &Row{
		schema:    r.schema,
		buf:       append([]byte(nil), r.buf...),
		offs:      r.offs,
		staticEnd: r.staticEnd,
	}
	for _, i := range clearFields {
		nr.setDefined(i, false)
	}
	return nr
}
