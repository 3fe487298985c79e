package types

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the deterministic hash of a schema's field list (§3.2).
// Identical field lists (name + type, in order) always yield an identical
// Fingerprint, which is what makes schemas content-addressable.
type Fingerprint uint64

// Schema is an ordered list of typed fields plus its cached fingerprint.
type Schema struct {
	Fields      []Field
	fingerprint Fingerprint
}

// NewSchema builds a Schema from fields and eagerly computes its
// fingerprint so repeated calls to Fingerprint() are free.
func NewSchema(fields []Field) *Schema {
	s := &Schema{Fields: append([]Field(nil), fields...)}
	s.fingerprint = computeFingerprint(s.Fields)
	return s
}

// Fingerprint returns the schema's cached content hash.
func (s *Schema) Fingerprint() Fingerprint { return s.fingerprint }

// Equal reports whether two schemas have identical field lists. Per §3.2
// this always holds iff their fingerprints match (modulo hash collision,
// which the registry treats as impossible in practice).
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.fingerprint == other.fingerprint
}

// NumFields returns the number of columns in the schema.
func (s *Schema) NumFields() int { return len(s.Fields) }

// IndexOf returns the position of a named field, or -1 if absent.
func (s *Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// bitmapBytes returns how many bytes the validity bitmap occupies for a
// schema with n fields: one bit per field, rounded up to a byte.
func bitmapBytes(n int) int { return (n + 7) / 8 }

// staticOffsets returns, for each field index, its byte offset within the
// static section (immediately following the validity bitmap).
func (s *Schema) staticOffsets() []int {
	offs := make([]int, len(s.Fields))
	off := 0
	for i, f := range s.Fields {
		offs[i] = off
		off += f.Type.Width()
	}
	return offs
}

// computeFingerprint hashes (name, type) per field with explicit length
// prefixes so that no field-name concatenation can collide with a
// different field split (e.g. ("ab","c") vs ("a","bc")).
func computeFingerprint(fields []Field) Fingerprint {
	h := xxhash.New()
	var lenBuf [8]byte
	for _, f := range fields {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(f.Name)))
		h.Write(lenBuf[:])
		h.Write([]byte(f.Name))
		h.Write([]byte{byte(f.Type)})
	}
	return Fingerprint(h.Sum64())
}

// Registry is the two-level schema cache of spec.md §4.5: a lock-free
// fingerprint→Schema cache for the hot path, and a single writer mutex
// serializing creation so a given fingerprint is only ever built once.
//
// The persistence side (single-version transaction per spec §4.5) is the
// caller's responsibility — Registry only guarantees in-process identity
// and de-duplication of the construction step; callers that need
// durability wrap GetOrCreate's create function with a store write.
type Registry struct {
	cache sync.Map // Fingerprint -> *Schema
	mu    sync.Mutex
}

// NewRegistry allocates an empty schema registry.
func NewRegistry() *Registry { return &Registry{} }

// GetOrCreate returns the cached Schema for fields' fingerprint, building
// and persisting (via create) exactly once per distinct fingerprint even
// under concurrent callers. create is invoked at most once per
// fingerprint and may itself perform I/O (e.g. a catalog write); if it
// returns an error the fingerprint is not cached and a later call may
// retry.
func (r *Registry) GetOrCreate(fields []Field, create func(*Schema) error) (*Schema, error) {
	fp := computeFingerprint(fields)
	if v, ok := r.cache.Load(fp); ok {
		return v.(*Schema), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have persisted and cached
	// this schema while we waited for the writer lock.
	if v, ok := r.cache.Load(fp); ok {
		return v.(*Schema), nil
	}

	s := NewSchema(fields)
	if create != nil {
		if err := create(s); err != nil {
			return nil, err
		}
	}
	r.cache.Store(fp, s)
	return s, nil
}

// Lookup returns a cached schema by fingerprint without creating one.
func (r *Registry) Lookup(fp Fingerprint) (*Schema, bool) {
	v, ok := r.cache.Load(fp)
	if !ok {
		return nil, false
	}
	return v.(*Schema), true
}
