// Package txn implements the optimistic-concurrency-control transaction
// manager of spec.md §4.3: snapshot-isolated reads at a captured
// read_version, conflict detection against transactions committed since
// then, and CDC emission on commit. Grounded on the teacher's
// internal/storage/mvcc.go (MVCCManager/TxContext), generalized from a
// fixed SQL row model to the store's opaque key/delta model.
package txn

import (
	"sync"
	"time"

	"github.com/reifydb/reifydb/internal/cdc"
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/rs/zerolog"
)

// State is the transaction's explicit lifecycle per §4.3: "An explicit
// state machine {Active, Committed, RolledBack} prevents reuse after
// terminal transition."
type State int

const (
	Active State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Committed:
		return "Committed"
	case RolledBack:
		return "RolledBack"
	default:
		return "Unknown"
	}
}

type keyRange struct{ start, end []byte }

func (r keyRange) contains(key []byte) bool {
	if r.start != nil && string(key) < string(r.start) {
		return false
	}
	if r.end != nil && string(key) >= string(r.end) {
		return false
	}
	return true
}

// committedEntry is the write-footprint of one already-committed
// transaction, retained only as long as some still-active transaction's
// read_version could conflict with it.
type committedEntry struct {
	version   keycode.CommitVersion
	writeKeys map[string]struct{}
}

// Manager is the process-wide transaction coordinator. One Manager owns
// one MultiVersionStore and hands out Tx snapshots against it.
type Manager struct {
	commitMu sync.Mutex // §4.3 step 1: "global commit lock"

	store *store.MultiVersionStore

	mu          sync.Mutex
	lastVersion keycode.CommitVersion
	committed   []committedEntry

	activeMu    sync.Mutex
	activeReads map[*Tx]keycode.CommitVersion

	onCommit func(cdc.Record)
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithOnCommit registers a hook invoked synchronously after every
// successful commit, before the commit lock is released, with the CDC
// record that was just persisted. Flow operators subscribe here.
func WithOnCommit(f func(cdc.Record)) Option {
	return func(m *Manager) { m.onCommit = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides the wall clock used to timestamp CDC records;
// tests supply a fixed clock since time.Now is otherwise non-deterministic.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a transaction manager over s, starting at version 0.
func NewManager(s *store.MultiVersionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       s,
		activeReads: make(map[*Tx]keycode.CommitVersion),
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LatestVersion returns the most recently committed version.
func (m *Manager) LatestVersion() keycode.CommitVersion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastVersion
}

// Begin starts a new transaction snapshotted at the latest committed
// version (§4.3: "captures read_version = latest_committed").
func (m *Manager) Begin() *Tx {
	m.mu.Lock()
	rv := m.lastVersion
	m.mu.Unlock()

	tx := &Tx{
		mgr:         m,
		readVersion: rv,
		state:       Active,
		readKeys:    make(map[string]struct{}),
		writeKeys:   make(map[string]struct{}),
	}

	m.activeMu.Lock()
	m.activeReads[tx] = rv
	m.activeMu.Unlock()
	return tx
}

// forget removes tx's read_version from the active set and prunes
// committed history no longer needed by any remaining active transaction.
func (m *Manager) forget(tx *Tx) {
	m.activeMu.Lock()
	delete(m.activeReads, tx)
	min := m.minActiveReadVersionLocked()
	m.activeMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	i := 0
	for ; i < len(m.committed); i++ {
		if m.committed[i].version > min {
			break
		}
	}
	m.committed = m.committed[i:]
}

func (m *Manager) minActiveReadVersionLocked() keycode.CommitVersion {
	var min keycode.CommitVersion
	first := true
	for _, rv := range m.activeReads {
		if first || rv < min {
			min = rv
			first = false
		}
	}
	if first {
		// No active transactions: nothing needs history before the
		// current commit, so keep none.
		return m.lastVersion
	}
	return min
}

// Tx is one transaction's accumulated read/write footprint.
type Tx struct {
	mgr         *Manager
	readVersion keycode.CommitVersion

	mu        sync.Mutex
	state     State
	readKeys  map[string]struct{}
	ranges    []keyRange
	readAll   bool
	deltas    []store.Delta
	writeKeys map[string]struct{}
}

// ReadVersion returns the snapshot version this transaction observes.
func (t *Tx) ReadVersion() keycode.CommitVersion { return t.readVersion }

// State returns the transaction's current lifecycle state.
func (t *Tx) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Get reads key as of this transaction's snapshot, recording it in the
// conflict set.
func (t *Tx) Get(key []byte) ([]byte, bool, error) {
	t.mu.Lock()
	if t.state != Active {
		t.mu.Unlock()
		return nil, false, errNotActive(t.state)
	}
	t.readKeys[string(key)] = struct{}{}
	t.mu.Unlock()
	return t.mgr.store.Get(key, t.readVersion)
}

// Range reads [start, end) as of this transaction's snapshot, recording
// the range in the conflict set.
func (t *Tx) Range(start, end []byte) ([]store.KV, error) {
	t.mu.Lock()
	if t.state != Active {
		t.mu.Unlock()
		return nil, errNotActive(t.state)
	}
	t.ranges = append(t.ranges, keyRange{start: start, end: end})
	t.mu.Unlock()
	return t.mgr.store.Range(start, end, t.readVersion)
}

// ScanAll marks this transaction as having performed an unbounded scan:
// any concurrent write anywhere conflicts with it (§4.3: "a read_all
// flag for unbounded scans").
func (t *Tx) ScanAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readAll = true
}

// Write stages a delta to apply on commit.
func (t *Tx) Write(d store.Delta) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Active {
		return errNotActive(t.state)
	}
	t.deltas = append(t.deltas, d)
	t.writeKeys[string(keyOf(d))] = struct{}{}
	return nil
}

func keyOf(d store.Delta) []byte {
	switch delta := d.(type) {
	case store.Set:
		return delta.Key
	case store.Remove:
		return delta.Key
	case store.Unset:
		return delta.Key
	case store.Drop:
		return delta.Key
	default:
		return nil
	}
}

// Commit validates this transaction against everything committed since
// its read_version and, if clean, applies its deltas at a newly assigned
// commit_version (§4.3).
func (t *Tx) Commit() (keycode.CommitVersion, error) {
	t.mu.Lock()
	if t.state != Active {
		t.mu.Unlock()
		return 0, errNotActive(t.state)
	}
	deltas := append([]store.Delta(nil), t.deltas...)
	writeKeys := t.writeKeys
	readKeys := t.readKeys
	ranges := t.ranges
	readAll := t.readAll
	t.mu.Unlock()

	m := t.mgr
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	conflictWindow := m.committed
	m.mu.Unlock()

	for _, other := range conflictWindow {
		if other.version <= t.readVersion {
			continue
		}
		if conflicts(readKeys, ranges, readAll, other.writeKeys) {
			return 0, diagnostic.New(diagnostic.CodeTransactionConflict,
				"transaction conflicts with a concurrently committed write").
				WithHelp("retry the transaction")
		}
	}

	m.mu.Lock()
	commitVersion := m.lastVersion + 1
	m.mu.Unlock()

	if len(deltas) > 0 {
		if err := m.store.Commit(deltas, commitVersion); err != nil {
			return 0, diagnostic.Wrap(err, "apply transaction deltas")
		}
	}

	record := m.buildCDCRecord(commitVersion, deltas, t.readVersion, m.now())
	if len(deltas) > 0 {
		blob := record.Encode()
		cdcKey := keycode.Cdc(commitVersion).Encode()
		if err := m.store.Commit([]store.Delta{store.Set{Key: cdcKey, Value: blob}}, commitVersion); err != nil {
			return 0, diagnostic.Wrap(err, "persist cdc record")
		}
	}

	m.mu.Lock()
	m.lastVersion = commitVersion
	m.committed = append(m.committed, committedEntry{version: commitVersion, writeKeys: writeKeys})
	m.mu.Unlock()

	t.mu.Lock()
	t.state = Committed
	t.mu.Unlock()
	m.forget(t)

	if m.onCommit != nil {
		m.onCommit(record)
	}
	return commitVersion, nil
}

// Rollback abandons this transaction without applying its deltas.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.state != Active {
		t.mu.Unlock()
		return errNotActive(t.state)
	}
	t.state = RolledBack
	t.mu.Unlock()
	t.mgr.forget(t)
	return nil
}

// conflicts implements §4.3 step 3's disjointness checks.
func conflicts(readKeys map[string]struct{}, ranges []keyRange, readAll bool, otherWrites map[string]struct{}) bool {
	if readAll && len(otherWrites) > 0 {
		return true
	}
	// Iterate the smaller set for the point-read/write-set intersection,
	// matching the spec's "O(min(|read|,|write|))" guidance.
	small, big := readKeys, otherWrites
	if len(otherWrites) < len(readKeys) {
		small, big = otherWrites, readKeys
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	for _, r := range ranges {
		for wk := range otherWrites {
			if r.contains([]byte(wk)) {
				return true
			}
		}
	}
	return false
}

// buildCDCRecord classifies each staged delta as Insert/Update/Delete by
// checking whether the key already existed as of the transaction's
// read_version, and stamps PreVersion as that read_version when it did
// (0 otherwise) — an approximation of "the version the row held before
// this change" that avoids requiring every Tier to expose raw per-entry
// versions through Get.
func (m *Manager) buildCDCRecord(version keycode.CommitVersion, deltas []store.Delta, readVersion keycode.CommitVersion, ts time.Time) cdc.Record {
	changes := make([]cdc.Change, 0, len(deltas))
	for _, d := range deltas {
		switch delta := d.(type) {
		case store.Set:
			existed, _ := m.store.Contains(delta.Key, readVersion)
			pre := keycode.CommitVersion(0)
			ct := cdc.Insert
			if existed {
				pre = readVersion
				ct = cdc.Update
			}
			changes = append(changes, cdc.Change{Type: ct, Key: delta.Key, PreVersion: pre, PostVersion: version})
		case store.Remove:
			changes = append(changes, cdc.Change{Type: cdc.Delete, Key: delta.Key, PreVersion: readVersion, PostVersion: version})
		case store.Unset:
			changes = append(changes, cdc.Change{Type: cdc.Delete, Key: delta.Key, PreVersion: readVersion, PostVersion: version})
		}
	}
	return cdc.Record{
		Version:       version,
		Timestamp:     uint64(ts.UnixNano()),
		TransactionID: cdc.NewTransactionID(),
		Changes:       changes,
	}
}

func errNotActive(s State) error {
	return diagnostic.New(diagnostic.CodeTransactionNotActive, "transaction is no longer active").
		WithNote("current state: " + s.String())
}
