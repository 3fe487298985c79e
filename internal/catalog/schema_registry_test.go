package catalog

import (
	"testing"

	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/types"
)

func TestSchemaRegistryPersistsExactlyOnce(t *testing.T) {
	s := store.NewSingleVersionStore()
	r := NewSchemaRegistry(s)

	fields := []types.Field{{Name: "id", Type: types.Int8}, {Name: "name", Type: types.Utf8}}

	schema1, err := r.GetOrCreate(fields)
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}
	schema2, err := r.GetOrCreate(fields)
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}
	if schema1 != schema2 {
		t.Fatalf("expected identical *Schema for identical fields")
	}
}

func TestSchemaRegistryLoadsFromStoreAcrossInstances(t *testing.T) {
	s := store.NewSingleVersionStore()
	r1 := NewSchemaRegistry(s)
	fields := []types.Field{{Name: "id", Type: types.Int8}}
	schema, err := r1.GetOrCreate(fields)
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}

	r2 := NewSchemaRegistry(s)
	loaded, ok, err := r2.Lookup(schema.Fingerprint())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected a fresh registry to load the persisted schema")
	}
	if loaded.NumFields() != schema.NumFields() || loaded.Fields[0].Name != "id" {
		t.Fatalf("loaded schema mismatch: %+v", loaded)
	}
}
