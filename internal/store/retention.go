package store

import (
	"fmt"
	"sync"

	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RetentionMode selects how a GC sweep disposes of versions past the
// retained window (§4.1/§9 Design Notes: "separate primitive and
// operator policies; apply by a scheduled background task that emits
// Drop deltas rather than rewriting history in-place").
type RetentionMode int

// RunOnce does not consult Mode: under either mode it issues the same
// Drop deltas, which remove superseded versions outright and leave no
// marker behind.
const (
	ModeDelete RetentionMode = iota
	ModeDrop
)

// RetentionKind selects whether a primitive/operator keeps every version
// forever or bounds the version count.
type RetentionKind int

const (
	KeepForever RetentionKind = iota
	KeepVersionsKind
)

// RetentionPolicy is the retention contract for one primitive (table,
// view, ring buffer) or one flow operator node.
type RetentionPolicy struct {
	Kind      RetentionKind
	KeepCount int
	Mode      RetentionMode
}

// registration is one entry the collector sweeps on each tick.
type registration struct {
	kind   keycode.KeyKind
	prefix []byte
	policy RetentionPolicy
}

// RetentionCollector periodically emits Drop deltas per the active
// retention policy for every registered primitive/operator keyspace
// (§4.1). It is driven by a cron schedule (the teacher's own
// github.com/robfig/cron/v3 dependency, previously wired only to SQL job
// scheduling — reused here for its original purpose: running something
// on a schedule).
type RetentionCollector struct {
	mu            sync.Mutex
	store         *MultiVersionStore
	cron          *cron.Cron
	entries       map[string]registration
	latestVersion func() keycode.CommitVersion
	log           zerolog.Logger
}

// NewRetentionCollector builds a collector. latestVersion must return the
// store's current latest committed CommitVersion.
func NewRetentionCollector(s *MultiVersionStore, latestVersion func() keycode.CommitVersion, log zerolog.Logger) *RetentionCollector {
	return &RetentionCollector{
		store:         s,
		cron:          cron.New(),
		entries:       make(map[string]registration),
		latestVersion: latestVersion,
		log:           log,
	}
}

// Register attaches a retention policy to a keyspace. name must be
// unique; prefix is the key-body prefix shared by every key in the
// primitive/operator's keyspace (e.g. a table's row-key prefix).
func (c *RetentionCollector) Register(name string, kind keycode.KeyKind, prefix []byte, policy RetentionPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = registration{kind: kind, prefix: prefix, policy: policy}
}

// Unregister removes a previously registered keyspace, e.g. when its
// owning table/view/flow is dropped.
func (c *RetentionCollector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Start schedules periodic sweeps using a cron expression (e.g.
// "@every 30s"). Start does not block; call Stop to end the schedule.
func (c *RetentionCollector) Start(schedule string) error {
	_, err := c.cron.AddFunc(schedule, func() {
		if err := c.RunOnce(); err != nil {
			c.log.Error().Err(err).Msg("retention sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("retention collector: invalid schedule %q: %w", schedule, err)
	}
	c.cron.Start()
	return nil
}

// Stop halts the schedule; in-flight sweeps are allowed to finish.
func (c *RetentionCollector) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep over every registered keyspace,
// emitting Drop deltas honoring each entry's policy. Only keys currently
// resolvable via a live range scan are swept: a key whose newest version
// is a tombstone is skipped, and its older versions are not dropped.
func (c *RetentionCollector) RunOnce() error {
	c.mu.Lock()
	entries := make([]registration, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	v := c.latestVersion()
	for _, e := range entries {
		kvs, err := c.store.Prefix(e.kind, e.prefix, v)
		if err != nil {
			return err
		}
		if e.policy.Kind == KeepForever || len(kvs) == 0 {
			continue
		}
		keep := e.policy.KeepCount
		deltas := make([]Delta, 0, len(kvs))
		for _, kv := range kvs {
			k := keep
			deltas = append(deltas, Drop{
				Key:              kv.Key,
				UpToVersion:      &v,
				KeepLastVersions: &k,
			})
		}
		if err := c.store.Commit(deltas, v); err != nil {
			return err
		}
	}
	return nil
}
