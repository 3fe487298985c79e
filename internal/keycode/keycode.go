// Package keycode implements the order-preserving encoded-key layout of
// spec.md §3.3/§6.1: every persisted key starts with a reserved byte and a
// KeyKind tag, followed by a type-specific, order-preserving body.
package keycode

import (
	"encoding/binary"
	"fmt"
)

// Reserved is the fixed first byte of every encoded key.
const Reserved = 0xFF

// KeyKind discriminates the domain of an encoded key.
type KeyKind uint8

const (
	KindTable KeyKind = iota + 1
	KindTableRow
	KindNamespace
	KindView
	KindRingBuffer
	KindRingBufferRow
	KindFlow
	KindFlowNode
	KindSchema
	KindSchemaField
	KindCdc
	KindSequence
	KindPrimitiveRetentionPolicy
	KindOperatorRetentionPolicy
	KindSingleVersion
	KindFlowNodeState
)

var kindNames = map[KeyKind]string{
	KindTable: "Table", KindTableRow: "TableRow", KindNamespace: "Namespace",
	KindView: "View", KindRingBuffer: "RingBuffer", KindRingBufferRow: "RingBufferRow",
	KindFlow: "Flow", KindFlowNode: "FlowNode", KindSchema: "Schema",
	KindSchemaField: "SchemaField", KindCdc: "Cdc", KindSequence: "Sequence",
	KindPrimitiveRetentionPolicy: "PrimitiveRetentionPolicy",
	KindOperatorRetentionPolicy:  "OperatorRetentionPolicy",
	KindSingleVersion:            "SingleVersion",
	KindFlowNodeState:            "FlowNodeState",
}

func (k KeyKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("KeyKind(%d)", uint8(k))
}

// Key is a decoded, order-preserving key: the tagged header plus an
// opaque, already order-preserving body built by the Encode* helpers
// below.
type Key struct {
	Kind KeyKind
	Body []byte
}

// Encode serializes k into its on-disk form: [Reserved, Kind, body...].
func (k Key) Encode() []byte {
	out := make([]byte, 2+len(k.Body))
	out[0] = Reserved
	out[1] = byte(k.Kind)
	copy(out[2:], k.Body)
	return out
}

// Decode parses the on-disk form back into a Key.
func Decode(buf []byte) (Key, error) {
	if len(buf) < 2 {
		return Key{}, fmt.Errorf("keycode: key too short (%d bytes)", len(buf))
	}
	if buf[0] != Reserved {
		return Key{}, fmt.Errorf("keycode: bad reserved byte 0x%02x", buf[0])
	}
	return Key{Kind: KeyKind(buf[1]), Body: append([]byte(nil), buf[2:]...)}, nil
}

// ── order-preserving primitive encodings ──────────────────────────────────

// EncodeUint64 encodes v so that unsigned numeric order equals byte order.
func EncodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func DecodeUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// EncodeInt64 encodes v with a sign-bit bias so that signed numeric order
// equals byte order (flip the sign bit so negatives sort before
// positives in the unsigned big-endian byte space).
func EncodeInt64(v int64) []byte {
	return EncodeUint64(uint64(v) ^ (1 << 63))
}

func DecodeInt64(b []byte) int64 {
	return int64(DecodeUint64(b) ^ (1 << 63))
}

// EncodeString appends a NUL-terminated, order-preserving string body.
// Embedded NUL bytes are escaped as 0x00 0xFF so the terminator remains
// unambiguous and relative order among strings sharing a prefix holds.
func EncodeString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// DecodeString reads an EncodeString-produced body, returning the decoded
// string and the number of bytes consumed.
func DecodeString(b []byte) (string, int) {
	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		if b[i] == 0x00 {
			if i+1 < len(b) && b[i+1] == 0xFF {
				out = append(out, 0x00)
				i += 2
				continue
			}
			// terminator
			return string(out), i + 2
		}
		out = append(out, b[i])
		i++
	}
	return string(out), i
}

// ── entity id newtypes (order-preserving via EncodeUint64) ────────────────

type (
	NamespaceId uint64
	TableId     uint64
	ViewId      uint64
	RingBufferId uint64
	FlowId      uint64
	FlowNodeId  uint64
	SchemaId    uint64
	RowNumber   uint64
	CommitVersion uint64
)

// ── key constructors ───────────────────────────────────────────────────────

// Table builds the catalog key for a table's structural entry.
func Table(id TableId) Key {
	return Key{Kind: KindTable, Body: EncodeUint64(uint64(id))}
}

// TableRow builds the MVCC row key (tableId, rowNumber).
func TableRow(id TableId, row RowNumber) Key {
	body := append(EncodeUint64(uint64(id)), EncodeUint64(uint64(row))...)
	return Key{Kind: KindTableRow, Body: body}
}

// Namespace builds the catalog key for a namespace.
func Namespace(id NamespaceId) Key {
	return Key{Kind: KindNamespace, Body: EncodeUint64(uint64(id))}
}

// View builds the catalog key for a view.
func View(id ViewId) Key {
	return Key{Kind: KindView, Body: EncodeUint64(uint64(id))}
}

// RingBuffer builds the catalog key for a ring buffer.
func RingBuffer(id RingBufferId) Key {
	return Key{Kind: KindRingBuffer, Body: EncodeUint64(uint64(id))}
}

// RingBufferRow builds the MVCC row key for a ring buffer slot.
func RingBufferRow(id RingBufferId, row RowNumber) Key {
	body := append(EncodeUint64(uint64(id)), EncodeUint64(uint64(row))...)
	return Key{Kind: KindRingBufferRow, Body: body}
}

// Flow builds the catalog key for a flow.
func Flow(id FlowId) Key {
	return Key{Kind: KindFlow, Body: EncodeUint64(uint64(id))}
}

// FlowNode builds the catalog key for a single flow operator node.
func FlowNode(flow FlowId, node FlowNodeId) Key {
	body := append(EncodeUint64(uint64(flow)), EncodeUint64(uint64(node))...)
	return Key{Kind: KindFlowNode, Body: body}
}

// FlowNodeState builds a raw KV key within one operator's isolated
// state keyspace (§4.10): every key an operator reads or writes is
// namespaced under (flow, node) so that two operators holding the same
// logical "shared key" never collide.
func FlowNodeState(flow FlowId, node FlowNodeId, stateKey []byte) Key {
	body := append(EncodeUint64(uint64(flow)), EncodeUint64(uint64(node))...)
	body = append(body, stateKey...)
	return Key{Kind: KindFlowNodeState, Body: body}
}

// FlowNodeStatePrefix returns the bare body prefix covering every state
// key belonging to one operator, for range/scan/clear.
func FlowNodeStatePrefix(flow FlowId, node FlowNodeId) []byte {
	body := append(EncodeUint64(uint64(flow)), EncodeUint64(uint64(node))...)
	return body
}

// Schema builds the single-version key under which a content-addressed
// schema header is persisted, keyed by fingerprint.
func Schema(fp uint64) Key {
	return Key{Kind: KindSchema, Body: EncodeUint64(fp)}
}

// SchemaField builds the key for the Nth field of a persisted schema.
func SchemaField(fp uint64, field int) Key {
	body := append(EncodeUint64(fp), EncodeUint64(uint64(field))...)
	return Key{Kind: KindSchemaField, Body: body}
}

// Cdc builds the key for a commit's CDC record.
func Cdc(version CommitVersion) Key {
	return Key{Kind: KindCdc, Body: EncodeUint64(uint64(version))}
}

// Sequence builds the key for a named monotonic counter (row-number
// allocators, table/namespace id allocators, ...).
func Sequence(name string) Key {
	return Key{Kind: KindSequence, Body: EncodeString(name)}
}

// PrimitiveRetentionPolicy builds the key for a table/view/ring-buffer's
// retention policy.
func PrimitiveRetentionPolicy(id uint64) Key {
	return Key{Kind: KindPrimitiveRetentionPolicy, Body: EncodeUint64(id)}
}

// OperatorRetentionPolicy builds the key for a flow node's retention policy.
func OperatorRetentionPolicy(flow FlowId, node FlowNodeId) Key {
	body := append(EncodeUint64(uint64(flow)), EncodeUint64(uint64(node))...)
	return Key{Kind: KindOperatorRetentionPolicy, Body: body}
}

// FullScan returns the half-open range [start, end) that contains every
// key whose body begins with prefix, for the given kind. This is the
// basis for "all children of X" range scans (namespaces' tables, a
// table's rows, a flow's nodes, ...).
func FullScan(kind KeyKind, prefix []byte) (start, end []byte) {
	start = Key{Kind: kind, Body: prefix}.Encode()
	end = append([]byte(nil), start...)
	// Increment the last byte (with carry) to get an exclusive upper
	// bound; if prefix is all 0xFF this degenerates to a one-past-max
	// sentinel, which is fine since keys are bounded length.
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, append(end, 0x00)
}
