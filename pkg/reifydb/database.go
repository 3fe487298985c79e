package reifydb

import (
	"context"

	"github.com/reifydb/reifydb/internal/bytecode"
	"github.com/reifydb/reifydb/internal/catalog"
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/rql"
	"github.com/reifydb/reifydb/internal/store"
	"github.com/reifydb/reifydb/internal/table"
	"github.com/reifydb/reifydb/internal/txn"
	"github.com/reifydb/reifydb/internal/types"
)

// Database is the explicit, no-statics construction root binding every
// internal layer: storage tiers, the transaction manager, the catalog,
// the table registry, and the background retention collector (§2,
// §4.C: "construction is explicit at 'database build' time").
type Database struct {
	cfg Config

	store     *store.MultiVersionStore
	cold      *store.SQLiteColdTier
	txMgr     *txn.Manager
	catalog   *catalog.MaterializedCatalog
	schemas   *catalog.SchemaRegistry
	tables    *table.Manager
	retention *store.RetentionCollector
}

// Open constructs a Database per cfg. The returned Database owns its
// storage tiers; call Close to release them.
func Open(cfg Config) (*Database, error) {
	var opts []store.Option
	opts = append(opts, store.WithHot(store.NewMemTier()), store.WithLogger(cfg.Logger))

	var cold *store.SQLiteColdTier
	if cfg.ColdTierPath != "" {
		c, err := store.OpenSQLiteColdTier(cfg.ColdTierPath)
		if err != nil {
			return nil, err
		}
		cold = c
		opts = append(opts, store.WithCold(c))
	}

	mvs := store.New(opts...)
	txMgr := txn.NewManager(mvs, txn.WithLogger(cfg.Logger))
	cat := catalog.NewMaterializedCatalog()
	schemas := catalog.NewSchemaRegistry(store.NewSingleVersionStore())
	tables := table.NewManager(cat, schemas, store.NewSingleVersionStore())

	retention := store.NewRetentionCollector(mvs, txMgr.LatestVersion, cfg.Logger)
	if cfg.RetentionSchedule != "" {
		if err := retention.Start(cfg.RetentionSchedule); err != nil {
			return nil, err
		}
	}

	return &Database{
		cfg:       cfg,
		store:     mvs,
		cold:      cold,
		txMgr:     txMgr,
		catalog:   cat,
		schemas:   schemas,
		tables:    tables,
		retention: retention,
	}, nil
}

// Close stops the retention collector and releases every storage tier.
func (db *Database) Close() error {
	db.retention.Stop()
	return db.store.Close()
}

// CreateTable defines a new table named name with the given fields,
// visible to every transaction begun after this call returns.
func (db *Database) CreateTable(name string, fields []types.Field) error {
	_, err := db.tables.Create(db.txMgr, name, fields)
	return err
}

// Begin opens a new Session snapshotted at the database's latest
// committed version (§4.3).
func (db *Database) Begin() *Session {
	return &Session{db: db, tx: db.txMgr.Begin()}
}

// Session is one transaction's RQL execution surface: every pipeline
// run through Execute shares the session's transaction and therefore
// its snapshot and write-set, exactly as §4.3's "program order within a
// transaction" requires.
type Session struct {
	db *Database
	tx *txn.Tx
}

// Commit finalizes every write staged by this session's Execute calls.
func (s *Session) Commit() (keycode.CommitVersion, error) {
	return s.tx.Commit()
}

// Rollback abandons this session's staged writes.
func (s *Session) Rollback() error { return s.tx.Rollback() }

// Execute parses src as an RQL program (§6.2) and runs each statement's
// compiled bytecode Program against this session's transaction,
// returning one result Columns per statement, in source order.
func (s *Session) Execute(ctx context.Context, src string) ([]*columnar.Columns, error) {
	parser := rql.NewParser(src)
	prog, err := parser.ParseProgram()
	if err != nil {
		return nil, err
	}

	host := &table.Host{Mgr: s.db.tables, Tx: s.tx, AsOf: s.tx.ReadVersion()}
	vm := bytecode.NewVM(host, columnar.EvalContext{Policy: columnar.SaturateUndefined})

	results := make([]*columnar.Columns, 0, len(prog.Statements))
	for _, stmt := range prog.Statements {
		plan, err := rql.Lower(stmt)
		if err != nil {
			return nil, err
		}
		compiled, err := bytecode.Compile(plan)
		if err != nil {
			return nil, err
		}
		out, err := vm.Run(ctx, compiled)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}
