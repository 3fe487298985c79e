package catalog

import (
	"encoding/binary"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/types"
)

// SchemaRegistry wires types.Registry's in-process cache to durable
// storage per §4.5: "On miss, begins a single-version transaction (keys
// known upfront: header + N fields) and either reads the stored schema
// (if another writer persisted it) or writes a new one then commits and
// caches." SingleVersionStore.Commit is already atomic over its batch,
// which stands in for that single-version transaction.
type SchemaRegistry struct {
	mem   *types.Registry
	store *store.SingleVersionStore
}

// NewSchemaRegistry builds a registry backed by a SingleVersionStore.
func NewSchemaRegistry(s *store.SingleVersionStore) *SchemaRegistry {
	return &SchemaRegistry{mem: types.NewRegistry(), store: s}
}

// GetOrCreate returns the process-wide Schema for fields, persisting it
// exactly once across however many times it is independently requested.
func (r *SchemaRegistry) GetOrCreate(fields []types.Field) (*types.Schema, error) {
	return r.mem.GetOrCreate(fields, r.persist)
}

// Lookup returns the cached schema for fp, loading it from the store on
// a cache miss.
func (r *SchemaRegistry) Lookup(fp types.Fingerprint) (*types.Schema, bool, error) {
	if s, ok := r.mem.Lookup(fp); ok {
		return s, true, nil
	}
	return r.load(fp)
}

// persist is types.Registry's create callback: it writes schema's header
// and field rows to the store, unless another writer already did so.
func (r *SchemaRegistry) persist(schema *types.Schema) error {
	headerKey := keycode.Schema(uint64(schema.Fingerprint())).Encode()
	if _, ok := r.store.Get(headerKey); ok {
		// Double-check pattern (§4.5): another writer persisted this
		// exact fingerprint already; nothing to do.
		return nil
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(schema.NumFields()))
	batch := []store.SingleVersionWrite{{Key: headerKey, Value: header}}

	for i, f := range schema.Fields {
		fieldKey := keycode.SchemaField(uint64(schema.Fingerprint()), i).Encode()
		batch = append(batch, store.SingleVersionWrite{Key: fieldKey, Value: encodeField(f)})
	}

	if err := r.store.Commit(batch); err != nil {
		return diagnostic.Wrap(err, "persist schema")
	}
	return nil
}

// load reconstructs a Schema from storage by fingerprint, for the case
// where another process already persisted it but this process hasn't
// seen it yet. Returns found=false if no header is stored for fp.
func (r *SchemaRegistry) load(fp types.Fingerprint) (*types.Schema, bool, error) {
	headerKey := keycode.Schema(uint64(fp)).Encode()
	header, ok := r.store.Get(headerKey)
	if !ok {
		return nil, false, nil
	}
	if len(header) < 4 {
		return nil, false, diagnostic.New(diagnostic.CodeInternal, "corrupt schema header").WithNote("fingerprint")
	}
	count := binary.BigEndian.Uint32(header)

	fields := make([]types.Field, 0, count)
	for i := uint32(0); i < count; i++ {
		fieldKey := keycode.SchemaField(uint64(fp), int(i)).Encode()
		raw, ok := r.store.Get(fieldKey)
		if !ok {
			return nil, false, diagnostic.New(diagnostic.CodeInternal, "missing schema field row").WithNote("fingerprint")
		}
		f, err := decodeField(raw)
		if err != nil {
			return nil, false, err
		}
		fields = append(fields, f)
	}

	schema := types.NewSchema(fields)
	if v, ok := r.mem.Lookup(schema.Fingerprint()); ok {
		return v, true, nil
	}
	return schema, true, nil
}

func encodeField(f types.Field) []byte {
	out := make([]byte, 0, 5+len(f.Name))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.Name)))
	out = append(out, lenBuf[:]...)
	out = append(out, f.Name...)
	out = append(out, byte(f.Type))
	return out
}

func decodeField(buf []byte) (types.Field, error) {
	if len(buf) < 5 {
		return types.Field{}, diagnostic.New(diagnostic.CodeInternal, "corrupt schema field row")
	}
	nameLen := binary.BigEndian.Uint32(buf[0:4])
	if len(buf) < int(4+nameLen+1) {
		return types.Field{}, diagnostic.New(diagnostic.CodeInternal, "truncated schema field row")
	}
	name := string(buf[4 : 4+nameLen])
	ft := types.FieldType(buf[4+nameLen])
	return types.Field{Name: name, Type: ft}, nil
}
