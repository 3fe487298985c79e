// Package ringbuffer implements the bounded, FIFO-replacing table of
// spec.md §4.11: a fixed-capacity row sequence where inserting past
// capacity evicts the oldest row. Grounded on the teacher's append-only
// table row storage (internal/storage/mvcc.go), generalized with the
// {head, tail, count} metadata and eviction-on-insert rule the teacher
// itself never needed, since tinySQL's tables grow unbounded.
package ringbuffer

import (
	"encoding/binary"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/txn"
)

// Metadata is the {head, tail, count} state of one ring buffer (§4.11):
// head is the oldest live row number, tail is the next row number that
// will be allocated, count is the current number of live rows, and
// Capacity bounds count from above.
type Metadata struct {
	Capacity uint64
	Head     keycode.RowNumber
	Tail     keycode.RowNumber
	Count    uint64
}

func encodeMetadata(m Metadata) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[0:8], m.Capacity)
	binary.BigEndian.PutUint64(buf[8:16], uint64(m.Head))
	binary.BigEndian.PutUint64(buf[16:24], uint64(m.Tail))
	binary.BigEndian.PutUint64(buf[24:32], m.Count)
	return buf
}

func decodeMetadata(buf []byte) (Metadata, error) {
	if len(buf) != 32 {
		return Metadata{}, diagnostic.New(diagnostic.CodeFlowSerialization, "malformed ring buffer metadata").
			WithNote("expected 32 bytes")
	}
	return Metadata{
		Capacity: binary.BigEndian.Uint64(buf[0:8]),
		Head:     keycode.RowNumber(binary.BigEndian.Uint64(buf[8:16])),
		Tail:     keycode.RowNumber(binary.BigEndian.Uint64(buf[16:24])),
		Count:    binary.BigEndian.Uint64(buf[24:32]),
	}, nil
}

func metadataKey(id keycode.RingBufferId) []byte {
	return keycode.RingBuffer(id).Encode()
}

// ErrNotFound is returned when a ring buffer's metadata has not been
// created (via Create) within the transaction's visible snapshot.
var ErrNotFound = diagnostic.New(diagnostic.CodeResolveUnknownName, "ring buffer not found")

// Create initializes id as an empty ring buffer of the given capacity.
// Capacity must be positive; a ring buffer of capacity 0 could never
// hold a row.
func Create(tx *txn.Tx, id keycode.RingBufferId, capacity uint64) error {
	if capacity == 0 {
		return diagnostic.New(diagnostic.CodeFlowInvariant, "ring buffer capacity must be positive")
	}
	meta := Metadata{Capacity: capacity}
	return tx.Write(store.Set{Key: metadataKey(id), Value: encodeMetadata(meta)})
}

// Get reads id's current metadata as observed by tx's snapshot.
func Get(tx *txn.Tx, id keycode.RingBufferId) (Metadata, error) {
	raw, ok, err := tx.Get(metadataKey(id))
	if err != nil {
		return Metadata{}, err
	}
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return decodeMetadata(raw)
}

// Insert appends value as the newest row of id, evicting the row at
// head first if the ring buffer is already at capacity (§4.11: "if
// full, remove the row at head, advance head; allocate next monotonic
// row number... write row; update metadata"). It returns the newly
// allocated, never-reused row number.
func Insert(tx *txn.Tx, id keycode.RingBufferId, value []byte) (keycode.RowNumber, error) {
	meta, err := Get(tx, id)
	if err != nil {
		return 0, err
	}

	if meta.Count >= meta.Capacity {
		evictKey := keycode.RingBufferRow(id, meta.Head).Encode()
		if err := tx.Write(store.Remove{Key: evictKey}); err != nil {
			return 0, err
		}
		meta.Head++
		meta.Count--
	}

	rowNumber := meta.Tail
	rowKey := keycode.RingBufferRow(id, rowNumber).Encode()
	if err := tx.Write(store.Set{Key: rowKey, Value: value}); err != nil {
		return 0, err
	}

	meta.Tail = rowNumber + 1
	meta.Count++
	if err := tx.Write(store.Set{Key: metadataKey(id), Value: encodeMetadata(meta)}); err != nil {
		return 0, err
	}
	return rowNumber, nil
}

// Row is one live ring buffer slot, as returned by Scan.
type Row struct {
	RowNumber keycode.RowNumber
	Value     []byte
}

// Scan returns every currently live row of id, oldest first (i.e. in
// row-number order, which is also head-to-tail order since row numbers
// are monotonic and never reused).
func Scan(tx *txn.Tx, id keycode.RingBufferId) ([]Row, error) {
	prefix := keycode.EncodeUint64(uint64(id))
	start, end := keycode.FullScan(keycode.KindRingBufferRow, prefix)
	kvs, err := tx.Range(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(kvs))
	for _, kv := range kvs {
		k, err := keycode.Decode(kv.Key)
		if err != nil {
			continue
		}
		if len(k.Body) < 16 {
			continue
		}
		rowNumber := keycode.RowNumber(keycode.DecodeUint64(k.Body[8:16]))
		out = append(out, Row{RowNumber: rowNumber, Value: kv.Value})
	}
	return out, nil
}
