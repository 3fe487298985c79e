package flow

import (
	"github.com/reifydb/reifydb/internal/cdc"
	"github.com/reifydb/reifydb/internal/columnar"
)

// ChangeKind mirrors cdc.ChangeType in the flow runtime's own row-valued
// vocabulary: a FlowChange carries the row's evaluated column values,
// not just its encoded key, since downstream operators need the actual
// data to recompute their state.
type ChangeKind uint8

const (
	ChangeInsert ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

// FlowChange is the unit of data flowing along a flow DAG's edges
// (§4.10): one row's before/after values, translated from a cdc.Change
// plus its resolved row data.
type FlowChange struct {
	Kind   ChangeKind
	Before map[string]columnar.Value // nil for Insert
	After  map[string]columnar.Value // nil for Delete
}

func changeKindOf(t cdc.ChangeType) ChangeKind {
	switch t {
	case cdc.Insert:
		return ChangeInsert
	case cdc.Update:
		return ChangeUpdate
	default:
		return ChangeDelete
	}
}

// Operator consumes FlowChange records from its upstream and produces
// zero or more FlowChange records for its downstream (§4.10: "Map,
// Filter, Join, Aggregate, Window, TopN").
type Operator interface {
	Process(change FlowChange) ([]FlowChange, error)
}
