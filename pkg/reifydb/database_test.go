package reifydb

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/internal/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecuteInsertThenFilterRoundTripsThroughVM(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("orders", []types.Field{
		{Name: "id", Type: types.Int8},
		{Name: "qty", Type: types.Int8},
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	ctx := context.Background()

	s := db.Begin()
	if _, err := s.Execute(ctx, `insert orders {id: 1, qty: 3}, {id: 2, qty: 12}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	s2 := db.Begin()
	out, err := s2.Execute(ctx, `from orders | filter qty > 10`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d statement results, want 1", len(out))
	}
	if out[0].NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", out[0].NumRows())
	}
	idIdx := out[0].IndexOf("id")
	if idIdx < 0 || out[0].Cols[idIdx].Values[0].I != 2 {
		t.Fatalf("got row %+v, want id=2", out[0].Cols[idIdx])
	}
}

func TestExecuteUnknownTableFailsThroughSession(t *testing.T) {
	db := newTestDatabase(t)
	s := db.Begin()
	if _, err := s.Execute(context.Background(), `from ghost | take 1`); err == nil {
		t.Fatalf("expected an error scanning an undefined table")
	}
}

func TestCreateTableMakesRowsVisibleInLaterSessions(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", []types.Field{
		{Name: "id", Type: types.Int8},
		{Name: "name", Type: types.Utf8},
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	s := db.Begin()
	if _, err := s.Execute(context.Background(), `insert users {id: 1, name: "alice"}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	s2 := db.Begin()
	out, err := s2.Execute(context.Background(), `from users`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out[0].NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", out[0].NumRows())
	}
}
