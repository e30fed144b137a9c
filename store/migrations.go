package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	id           TEXT PRIMARY KEY,
	node_type    TEXT NOT NULL,
	description  TEXT NOT NULL,
	source_title TEXT,
	position     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(node_type, position);

CREATE TABLE IF NOT EXISTS edges (
	relationship_type TEXT NOT NULL,
	from_id           TEXT NOT NULL REFERENCES nodes(id),
	to_id             TEXT NOT NULL REFERENCES nodes(id),
	weight            REAL NOT NULL,
	confidence        REAL NOT NULL,
	analysis_type     TEXT NOT NULL,
	position          INTEGER NOT NULL,
	PRIMARY KEY (relationship_type, from_id, to_id)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	id                     INTEGER PRIMARY KEY CHECK (id = 1),
	system                 TEXT NOT NULL,
	version                TEXT,
	created_date           TEXT,
	last_weight_update     TEXT,
	weight_analysis_method TEXT,
	synced_at              DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// migration represents a single schema migration.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// New migrations are appended at the end; never modify existing entries.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema (applied via schemaSQL)",
		apply:       func(tx *sql.Tx) error { return nil },
	},
	{
		version:     2,
		description: "index edges by target node",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id)")
			return err
		},
	},
}

// Migrate runs all pending schema migrations.
func (m *Mirror) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, mg := range migrations {
		if mg.version <= current {
			continue
		}

		slog.Info("store: applying migration", "version", mg.version, "description", mg.description)

		err := m.inTx(ctx, func(tx *sql.Tx) error {
			if err := mg.apply(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", mg.version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, description) VALUES (?, ?)",
				mg.version, mg.description); err != nil {
				return fmt.Errorf("recording migration %d: %w", mg.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (m *Mirror) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
