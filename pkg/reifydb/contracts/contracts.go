// Package contracts declares the Go interfaces an external server,
// client SDK, CLI, or telemetry exporter would implement against to
// expose a Database over the network (§4.H). Nothing in this package
// is wired to a transport: no gRPC/HTTP server ships in this module
// (Non-goal), only the seams a future one would sit behind.
package contracts

import (
	"context"

	"github.com/reifydb/reifydb/internal/cdc"
	"github.com/reifydb/reifydb/internal/columnar"
)

// TransactionHost is the server-side surface a wire protocol adapts
// RQL sessions onto: begin a transaction, run statements against it,
// and finalize it. A gRPC/HTTP server would hold one TransactionHost
// per connection and map inbound requests onto these three calls.
type TransactionHost interface {
	Begin(ctx context.Context) (SessionID, error)
	Execute(ctx context.Context, session SessionID, rql string) ([]*columnar.Columns, error)
	Commit(ctx context.Context, session SessionID) error
	Rollback(ctx context.Context, session SessionID) error
}

// SessionID identifies one open transaction across a TransactionHost's
// calls; how it is minted (random token, sequence number) is the
// host implementation's choice.
type SessionID string

// CDCSubscriber receives committed change records as they are produced,
// the seam a change-data-capture export pipeline or a replica would
// implement.
type CDCSubscriber interface {
	OnCommit(ctx context.Context, record cdc.Record) error
}

// MetricsSink receives point-in-time counters a telemetry exporter
// would translate into its own wire format (Prometheus, StatsD, ...).
// Counts are cumulative since process start.
type MetricsSink interface {
	RecordCommit(version uint64, changeCount int)
	RecordConflict()
	RecordQueryLatency(stage string, nanos int64)
}
