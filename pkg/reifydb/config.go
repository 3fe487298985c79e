// Package reifydb is the top-level façade of spec.md/SPEC_FULL.md §2:
// a `Database`/`Config` pair constructed explicitly by the embedder,
// binding every internal layer (store, txn, catalog, rql, bytecode,
// columnar, flow) into one object with no package-level statics.
// Grounded on the teacher's internal/storage/db.go (StorageConfig) and
// internal/storage/pager/pager.go (PagerConfig) construction pattern.
package reifydb

import "github.com/rs/zerolog"

// Config configures a Database at construction time. Every field has a
// usable zero value: an empty Config builds a single in-memory hot-tier
// database with default retention and VM settings (§4.C: "a plain
// struct... constructed explicitly by the embedder -- no env or file
// loading inside the module").
type Config struct {
	// ColdTierPath, if non-empty, opens a SQLiteColdTier (§4.F) at this
	// path as the store's cold tier. Empty means no cold tier.
	ColdTierPath string

	// FlowStateCacheSize is the resident entry bound for a flow
	// operator's write-through state cache (§4.10/§9); zero means 1000.
	// Open builds no flow operators, so Database does not read it.
	FlowStateCacheSize int

	// VMBatchSize is a row-batch size for the VM's operators (§5); zero
	// means 1024. Open does not pass it to the VM, which runs each
	// operator over its whole input Columns at once.
	VMBatchSize int

	// RetentionSchedule is a robfig/cron/v3 schedule expression for the
	// background retention collector (§4.D). Empty disables it.
	RetentionSchedule string

	// Logger is handed to the store, the transaction manager and the
	// retention collector when Open builds them (§4.A). The zero value
	// logs nothing.
	Logger zerolog.Logger
}

func (c Config) flowStateCacheSize() int {
	if c.FlowStateCacheSize > 0 {
		return c.FlowStateCacheSize
	}
	return 1000
}

func (c Config) vmBatchSize() int {
	if c.VMBatchSize > 0 {
		return c.VMBatchSize
	}
	return 1024
}
