package store

import "github.com/reifydb/reifydb/internal/keycode"

// Delta is one staged change within a transaction's pending delta list
// (spec.md §4.1). The multi-version store applies a batch of deltas
// atomically at a single CommitVersion.
type Delta interface {
	deltaKey() []byte
}

// Set inserts a new version of key with the given encoded value.
type Set struct {
	Key   []byte
	Value []byte
}

func (d Set) deltaKey() []byte { return d.Key }

// Remove writes a tombstone for key at the commit version.
type Remove struct {
	Key []byte
}

func (d Remove) deltaKey() []byte { return d.Key }

// Unset carries the value the caller expects at key and writes a
// tombstone for key at the commit version. Every tier applies it exactly
// like Remove: Value is not compared with the stored value, so a
// mismatch is not detected or reported.
type Unset struct {
	Key   []byte
	Value []byte
}

func (d Unset) deltaKey() []byte { return d.Key }

// Drop is a GC delta: it removes versions of key with version <=
// UpToVersion that are not among the most recent KeepLastVersions
// versions for that key. A nil UpToVersion means "no upper bound" (drop
// is governed purely by KeepLastVersions); KeepLastVersions <= 0 means
// "keep none" (subject to UpToVersion).
type Drop struct {
	Key              []byte
	UpToVersion      *keycode.CommitVersion
	KeepLastVersions *int
}

func (d Drop) deltaKey() []byte { return d.Key }
