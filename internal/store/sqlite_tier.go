package store

import (
	"database/sql"
	"fmt"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"

	_ "modernc.org/sqlite"
)

// SQLiteColdTier implements Tier as the "cold" backend of §4.1: committed
// row versions that have aged out of the hot/warm horizon are flushed
// here. It trades point-lookup latency for compactness, storing every
// version of every key in one table and answering range scans with
// ordinary indexed SQL range predicates. This does not reintroduce SQL
// compatibility into RQL (§1 Non-goals) — it is a persistence backend,
// not a query surface.
type SQLiteColdTier struct {
	db *sql.DB
}

// OpenSQLiteColdTier opens (creating if necessary) a cold-tier database
// file. path may be ":memory:" for ephemeral cold storage in tests.
func OpenSQLiteColdTier(path string) (*SQLiteColdTier, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, diagnostic.Wrap(err, "open cold tier")
	}
	const schema = `
CREATE TABLE IF NOT EXISTS cold_versions (
	k         BLOB NOT NULL,
	version   INTEGER NOT NULL,
	value     BLOB,
	tombstone INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (k, version)
);
CREATE INDEX IF NOT EXISTS cold_versions_by_key ON cold_versions(k, version DESC);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, diagnostic.Wrap(err, "create cold tier schema")
	}
	return &SQLiteColdTier{db: db}, nil
}

func (t *SQLiteColdTier) Get(key []byte, v keycode.CommitVersion) ([]byte, bool, error) {
	row := t.db.QueryRow(
		`SELECT value, tombstone FROM cold_versions WHERE k = ? AND version <= ? ORDER BY version DESC LIMIT 1`,
		key, uint64(v))
	var value []byte
	var tombstone int
	if err := row.Scan(&value, &tombstone); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, diagnostic.Wrap(err, "cold tier get")
	}
	if tombstone != 0 {
		return nil, false, nil
	}
	return value, true, nil
}

func (t *SQLiteColdTier) Commit(deltas []Delta, v keycode.CommitVersion) error {
	tx, err := t.db.Begin()
	if err != nil {
		return diagnostic.Wrap(err, "cold tier begin")
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`INSERT OR REPLACE INTO cold_versions(k, version, value, tombstone) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return diagnostic.Wrap(err, "cold tier prepare upsert")
	}
	defer upsert.Close()

	for _, d := range deltas {
		switch delta := d.(type) {
		case Set:
			if _, err := upsert.Exec(delta.Key, uint64(v), delta.Value, 0); err != nil {
				return diagnostic.Wrap(err, "cold tier set")
			}
		case Remove:
			if _, err := upsert.Exec(delta.Key, uint64(v), nil, 1); err != nil {
				return diagnostic.Wrap(err, "cold tier remove")
			}
		case Unset:
			if _, err := upsert.Exec(delta.Key, uint64(v), nil, 1); err != nil {
				return diagnostic.Wrap(err, "cold tier unset")
			}
		case Drop:
			if err := t.applyDrop(tx, delta); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (t *SQLiteColdTier) applyDrop(tx *sql.Tx, d Drop) error {
	var keepAbove uint64
	if d.KeepLastVersions != nil && *d.KeepLastVersions > 0 {
		row := tx.QueryRow(
			`SELECT version FROM cold_versions WHERE k = ? ORDER BY version DESC LIMIT 1 OFFSET ?`,
			d.Key, *d.KeepLastVersions-1)
		if err := row.Scan(&keepAbove); err != nil {
			if err == sql.ErrNoRows {
				return nil // fewer versions exist than requested: all are kept
			}
			return diagnostic.Wrap(err, "cold tier drop")
		}
	}
	q := `DELETE FROM cold_versions WHERE k = ?`
	args := []any{d.Key}
	if d.UpToVersion != nil {
		q += ` AND version <= ?`
		args = append(args, uint64(*d.UpToVersion))
	}
	if keepAbove > 0 {
		q += ` AND version < ?`
		args = append(args, keepAbove)
	}
	_, err := tx.Exec(q, args...)
	if err != nil {
		return diagnostic.Wrap(err, "cold tier drop")
	}
	return nil
}

func (t *SQLiteColdTier) Range(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return t.scan(start, end, v, "ASC")
}

func (t *SQLiteColdTier) RangeRev(start, end []byte, v keycode.CommitVersion) ([]KV, error) {
	return t.scan(start, end, v, "DESC")
}

func (t *SQLiteColdTier) scan(start, end []byte, v keycode.CommitVersion, order string) ([]KV, error) {
	q := fmt.Sprintf(`
SELECT k, version, value, tombstone FROM (
	SELECT k, version, value, tombstone,
	       ROW_NUMBER() OVER (PARTITION BY k ORDER BY version DESC) AS rn
	FROM cold_versions
	WHERE k >= ? AND k < ? AND version <= ?
) WHERE rn = 1 AND tombstone = 0 ORDER BY k %s`, order)

	rows, err := t.db.Query(q, start, end, uint64(v))
	if err != nil {
		return nil, diagnostic.Wrap(err, "cold tier scan")
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		var version uint64
		var tombstone int
		if err := rows.Scan(&kv.Key, &version, &kv.Value, &tombstone); err != nil {
			return nil, diagnostic.Wrap(err, "cold tier scan row")
		}
		kv.Version = keycode.CommitVersion(version)
		out = append(out, kv)
	}
	return out, rows.Err()
}

func (t *SQLiteColdTier) Close() error { return t.db.Close() }
