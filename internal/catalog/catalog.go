// Package catalog implements the versioned schema catalog of spec.md
// §3.4/§4.4: every namespace, table, view, ring buffer, and flow is a
// catalog entity with a per-ID version chain (greatest-version-≤-v
// lookup); name resolution walks those chains directly rather than a
// latest-only index, so it stays correct at any historical version.
// Grounded on the teacher's internal/storage/catalog.go (CatalogManager),
// generalized from tinySQL's flat non-versioned table registry to a
// versioned, multi-kind entity store.
package catalog

import (
	"sort"
	"sync"

	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/types"
)

// EntityKind discriminates the five catalog entity families named in
// §3.4 ("namespace, table, view, ring-buffer, flow, etc.").
type EntityKind uint8

const (
	KindNamespace EntityKind = iota
	KindTable
	KindView
	KindRingBuffer
	KindFlow
)

// Def is the current definition of a catalog entity. Not every field
// applies to every EntityKind: namespaces and flows leave Fields empty.
type Def struct {
	ID       uint64
	Kind     EntityKind
	Parent   uint64
	Name     string
	Fields   []types.Field
	SchemaFP types.Fingerprint
}

// versionEntry is one (version, def) pair in an entity's chain; a nil
// Def marks a tombstone (§3.4: "None at version v means deleted-as-of-v").
type versionEntry struct {
	version keycode.CommitVersion
	def     *Def
}

// VersionChain is the append-only, version-ordered history of one
// catalog entity's definition.
type VersionChain struct {
	mu      sync.RWMutex
	entries []versionEntry // ascending by version
}

func newVersionChain() *VersionChain { return &VersionChain{} }

// Append records a new definition (or tombstone, if def is nil) at v.
// Callers must append in non-decreasing version order.
func (c *VersionChain) Append(v keycode.CommitVersion, def *Def) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, versionEntry{version: v, def: def})
}

// Get returns the entry whose version is the greatest ≤ v, per §3.4.
// found is false if no entry exists at or before v, or the entry found
// is a tombstone.
func (c *VersionChain) Get(v keycode.CommitVersion) (*Def, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := sort.Search(len(c.entries), func(i int) bool { return c.entries[i].version > v })
	if i == 0 {
		return nil, false
	}
	e := c.entries[i-1]
	return e.def, e.def != nil
}

// GetLatest returns the most recently appended entry.
func (c *VersionChain) GetLatest() (*Def, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return nil, false
	}
	e := c.entries[len(c.entries)-1]
	return e.def, e.def != nil
}

type nameKey struct {
	parent uint64
	name   string
}

// MaterializedCatalog is the process-wide catalog of §4.4: per-kind maps
// of entity ID to VersionChain. Name resolution (FindByName) walks each
// candidate entity's own version chain as of the query version rather
// than consulting a latest-only index, so historical lookups remain
// correct across renames (§8 Catalog testable property).
type MaterializedCatalog struct {
	mu       sync.RWMutex
	entities map[EntityKind]map[uint64]*VersionChain
}

// NewMaterializedCatalog allocates an empty catalog.
func NewMaterializedCatalog() *MaterializedCatalog {
	return &MaterializedCatalog{
		entities: make(map[EntityKind]map[uint64]*VersionChain),
	}
}

func (c *MaterializedCatalog) chainLocked(kind EntityKind, id uint64) *VersionChain {
	byID, ok := c.entities[kind]
	if !ok {
		byID = make(map[uint64]*VersionChain)
		c.entities[kind] = byID
	}
	chain, ok := byID[id]
	if !ok {
		chain = newVersionChain()
		byID[id] = chain
	}
	return chain
}

// SetEntity implements §4.4's set_entity(id, v, Some(new)|None): append
// v -> def to id's version chain. Name resolution needs no separate
// index maintenance here — FindByName walks version chains directly, so
// every past name a chain ever held remains resolvable at its own
// version, exactly as a rename/delete should behave historically.
func (c *MaterializedCatalog) SetEntity(kind EntityKind, id uint64, v keycode.CommitVersion, def *Def) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainLocked(kind, id).Append(v, def)
}

// Find returns the entity's definition as of version v.
func (c *MaterializedCatalog) Find(kind EntityKind, id uint64, v keycode.CommitVersion) (*Def, bool) {
	c.mu.RLock()
	byID, ok := c.entities[kind]
	if !ok {
		c.mu.RUnlock()
		return nil, false
	}
	chain, ok := byID[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return chain.Get(v)
}

// FindByName resolves (parent, name) as of version v by checking each
// candidate entity's own version-chain def at v, not a latest-only
// index. This is what makes historical lookups correct across a rename
// (§8 Catalog testable property: "Rename at version V leaves
// find_by_name(parent, old_name, V') = Some(def) for V' < V" and the
// new name resolves to None before V) — a def is visible at v only if
// its chain's greatest entry ≤ v carries that exact (parent, name), so
// a name reused by a different entity after a rename/delete never
// leaks into an earlier snapshot's lookup.
func (c *MaterializedCatalog) FindByName(kind EntityKind, parent uint64, name string, v keycode.CommitVersion) (*Def, bool) {
	c.mu.RLock()
	byID, ok := c.entities[kind]
	chains := make([]*VersionChain, 0, len(byID))
	if ok {
		for _, chain := range byID {
			chains = append(chains, chain)
		}
	}
	c.mu.RUnlock()

	for _, chain := range chains {
		if def, ok := chain.Get(v); ok && def.Parent == parent && def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// View is a per-transaction read lens over the catalog that resolves
// read-your-writes: a pending write staged earlier in the same
// transaction shadows the materialized catalog until the transaction
// commits (§4.4: "Pending... edits are resolved by consulting the
// transaction's write-set first, then the materialized catalog").
type View struct {
	cat     *MaterializedCatalog
	version keycode.CommitVersion
	pending map[EntityKind]map[uint64]*Def
	names   map[EntityKind]map[nameKey]uint64
}

// NewView opens a read lens over the catalog at the given snapshot version.
func (c *MaterializedCatalog) NewView(v keycode.CommitVersion) *View {
	return &View{
		cat:     c,
		version: v,
		pending: make(map[EntityKind]map[uint64]*Def),
		names:   make(map[EntityKind]map[nameKey]uint64),
	}
}

// Stage records a not-yet-committed edit so later reads within the same
// view observe it (read-your-writes). def == nil stages a delete.
func (vw *View) Stage(kind EntityKind, id uint64, def *Def) {
	byID, ok := vw.pending[kind]
	if !ok {
		byID = make(map[uint64]*Def)
		vw.pending[kind] = byID
	}
	byID[id] = def
	if def != nil {
		names, ok := vw.names[kind]
		if !ok {
			names = make(map[nameKey]uint64)
			vw.names[kind] = names
		}
		names[nameKey{parent: def.Parent, name: def.Name}] = id
	}
}

// Find resolves id, preferring a pending write staged in this view.
func (vw *View) Find(kind EntityKind, id uint64) (*Def, bool) {
	if byID, ok := vw.pending[kind]; ok {
		if def, ok := byID[id]; ok {
			return def, def != nil
		}
	}
	return vw.cat.Find(kind, id, vw.version)
}

// FindByName resolves (parent, name), preferring a pending rename/create
// staged in this view over the materialized catalog's committed
// definitions at this view's version.
func (vw *View) FindByName(kind EntityKind, parent uint64, name string) (*Def, bool) {
	if names, ok := vw.names[kind]; ok {
		if id, ok := names[nameKey{parent: parent, name: name}]; ok {
			return vw.Find(kind, id)
		}
	}
	return vw.cat.FindByName(kind, parent, name, vw.version)
}

// Apply commits every staged edit into the materialized catalog at
// commit version v. Called once the owning transaction has committed.
func (vw *View) Apply(v keycode.CommitVersion) {
	for kind, byID := range vw.pending {
		for id, def := range byID {
			vw.cat.SetEntity(kind, id, v, def)
		}
	}
}
