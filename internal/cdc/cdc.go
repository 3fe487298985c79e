// Package cdc implements the change-data-capture record format of
// spec.md §3.5/§6.1: every commit produces one Record describing the
// row-level Insert/Update/Delete changes it made, persisted in the CDC
// keyspace and available for flow operators and external subscribers to
// replay.
package cdc

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/reifydb/reifydb/internal/keycode"
)

// ChangeType discriminates a single row-level change within a commit.
type ChangeType uint8

const (
	Insert ChangeType = 1
	Update ChangeType = 2
	Delete ChangeType = 3
)

func (c ChangeType) String() string {
	switch c {
	case Insert:
		return "Insert"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	default:
		return fmt.Sprintf("ChangeType(%d)", uint8(c))
	}
}

// Change is one row-level mutation observed during a commit. PreVersion
// is the CommitVersion the row held before this change (0 if it didn't
// exist), PostVersion is the version the change itself was committed
// at.
type Change struct {
	Type        ChangeType
	Key         []byte
	PreVersion  keycode.CommitVersion
	PostVersion keycode.CommitVersion
}

// Record is the full CDC payload for one commit (§3.5: "a CDC record
// Cdc{version, timestamp, changes}"). TransactionID correlates every
// Change in a Record back to the transaction that produced it; it is
// synthesized per-process via uuid.New() and is not itself persisted
// (Open Question resolution, see DESIGN.md) — it exists only so
// in-process subscribers (flow operators, diagnostics) can group
// changes from one commit without re-deriving it from the version.
type Record struct {
	Version       keycode.CommitVersion
	Timestamp     uint64 // unix nanoseconds
	TransactionID uuid.UUID
	Changes       []Change
}

// NewTransactionID synthesizes a fresh per-commit correlator.
func NewTransactionID() uuid.UUID {
	return uuid.New()
}

// Encode serializes r into the §6.1 on-disk layout:
//
//	version(u64) timestamp(u64) [u32 count, (u16 seq, u32 len, change_bytes)*]
//
// where each change_bytes is: type(u8) pre_version(u64) post_version(u64)
// key_len(u32) key_bytes. The count-prefixed, length-prefixed shape lets
// a reader skip changes it doesn't care about without parsing the key
// encoding.
func (r Record) Encode() []byte {
	// First pass: compute each change's encoded size.
	changeBytes := make([][]byte, len(r.Changes))
	total := 0
	for i, c := range r.Changes {
		b := make([]byte, 0, 1+8+8+4+len(c.Key))
		b = append(b, byte(c.Type))
		b = appendUint64(b, uint64(c.PreVersion))
		b = appendUint64(b, uint64(c.PostVersion))
		b = appendUint32(b, uint32(len(c.Key)))
		b = append(b, c.Key...)
		changeBytes[i] = b
		total += 2 + 4 + len(b) // seq(u16) + len(u32) + change_bytes
	}

	out := make([]byte, 0, 8+8+4+total)
	out = appendUint64(out, uint64(r.Version))
	out = appendUint64(out, r.Timestamp)
	out = appendUint32(out, uint32(len(r.Changes)))
	for i, b := range changeBytes {
		out = appendUint16(out, uint16(i+1))
		out = appendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}

// Decode parses an Encode-produced blob. TransactionID is not part of
// the wire format (it is a per-process correlator) and is left zero;
// callers that need it track it alongside the record in-process.
func Decode(buf []byte) (Record, error) {
	if len(buf) < 20 {
		return Record{}, fmt.Errorf("cdc: record too short (%d bytes)", len(buf))
	}
	r := Record{
		Version:   keycode.CommitVersion(binary.BigEndian.Uint64(buf[0:8])),
		Timestamp: binary.BigEndian.Uint64(buf[8:16]),
	}
	count := binary.BigEndian.Uint32(buf[16:20])
	off := 20
	r.Changes = make([]Change, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+6 > len(buf) {
			return Record{}, fmt.Errorf("cdc: truncated change header at offset %d", off)
		}
		// seq is positional (numbered from 1, per §5) and only used to
		// validate ordering.
		seq := binary.BigEndian.Uint16(buf[off : off+2])
		if seq != uint16(i+1) {
			return Record{}, fmt.Errorf("cdc: out-of-order change sequence: got %d, want %d", seq, i+1)
		}
		length := binary.BigEndian.Uint32(buf[off+2 : off+6])
		off += 6
		if off+int(length) > len(buf) {
			return Record{}, fmt.Errorf("cdc: truncated change body at offset %d", off)
		}
		c, err := decodeChange(buf[off : off+int(length)])
		if err != nil {
			return Record{}, err
		}
		r.Changes = append(r.Changes, c)
		off += int(length)
	}
	return r, nil
}

func decodeChange(buf []byte) (Change, error) {
	if len(buf) < 1+8+8+4 {
		return Change{}, fmt.Errorf("cdc: change body too short (%d bytes)", len(buf))
	}
	c := Change{
		Type:        ChangeType(buf[0]),
		PreVersion:  keycode.CommitVersion(binary.BigEndian.Uint64(buf[1:9])),
		PostVersion: keycode.CommitVersion(binary.BigEndian.Uint64(buf[9:17])),
	}
	keyLen := binary.BigEndian.Uint32(buf[17:21])
	if 21+int(keyLen) > len(buf) {
		return Change{}, fmt.Errorf("cdc: truncated key (want %d bytes)", keyLen)
	}
	c.Key = append([]byte(nil), buf[21:21+int(keyLen)]...)
	return c, nil
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
