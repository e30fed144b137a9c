package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/gocvot/graph"
)

// Mirror is a queryable SQLite copy of a CVOT snapshot for the serving
// layer. The JSON snapshot stays the source of truth; SyncGraph replaces the
// mirror's contents wholesale.
type Mirror struct {
	db *sql.DB
}

// NodeRow is a node as stored in the mirror.
type NodeRow struct {
	graph.Node
	Position int `json:"position"`
}

// Stats holds row counts of the mirror.
type Stats struct {
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Reconciled int    `json:"reconciled"`
	System     string `json:"system"`
	SyncedAt   string `json:"synced_at"`
}

// OpenMirror opens (or creates) a SQLite database at dbPath and applies the
// schema and pending migrations.
func OpenMirror(dbPath string) (*Mirror, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	m := &Mirror{db: db}
	if err := m.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return m, nil
}

// Close closes the underlying database connection.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// SyncGraph replaces the mirror's nodes, edges and metadata with g in one
// transaction.
func (m *Mirror) SyncGraph(ctx context.Context, g *graph.Graph) error {
	return m.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{"DELETE FROM edges", "DELETE FROM nodes", "DELETE FROM snapshot_meta"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clearing mirror: %w", err)
			}
		}

		nodeStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO nodes (id, node_type, description, source_title, position) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer nodeStmt.Close()
		for typ, nodes := range g.Nodes {
			for i, n := range nodes {
				if _, err := nodeStmt.ExecContext(ctx, n.ID, typ, n.Description, n.SourceTitle, i); err != nil {
					return fmt.Errorf("inserting node %s: %w", n.ID, err)
				}
			}
		}

		edgeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO edges (relationship_type, from_id, to_id, weight, confidence, analysis_type, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()
		for rel, edges := range g.Edges {
			for i, e := range edges {
				if _, err := edgeStmt.ExecContext(ctx, rel, e.From, e.To, e.Weight, e.Confidence, e.AnalysisType, i); err != nil {
					return fmt.Errorf("inserting edge %s: %w", e.Key(), err)
				}
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (id, system, version, created_date, last_weight_update, weight_analysis_method)
			VALUES (1, ?, ?, ?, ?, ?)`,
			g.Metadata.System, g.Metadata.Version, g.Metadata.CreatedDate,
			g.Metadata.LastWeightUpdate, g.Metadata.WeightAnalysisMethod)
		return err
	})
}

// NodesByType returns the nodes of one type in discovery order.
func (m *Mirror) NodesByType(ctx context.Context, typ string) ([]NodeRow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, node_type, description, COALESCE(source_title, ''), position
		FROM nodes WHERE node_type = ? ORDER BY position`, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() {
		var r NodeRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Description, &r.SourceTitle, &r.Position); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EdgesFrom returns outgoing edges of a node, heaviest first.
func (m *Mirror) EdgesFrom(ctx context.Context, nodeID string) ([]graph.Edge, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT relationship_type, from_id, to_id, weight, confidence, analysis_type
		FROM edges WHERE from_id = ? ORDER BY weight DESC, relationship_type, position`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.RelationshipType, &e.From, &e.To, &e.Weight, &e.Confidence, &e.AnalysisType); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns mirror row counts and snapshot metadata.
func (m *Mirror) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM nodes", &st.Nodes},
		{"SELECT COUNT(*) FROM edges", &st.Edges},
		{"SELECT COUNT(*) FROM edges WHERE analysis_type = '" + graph.AnalysisReconciled + "'", &st.Reconciled},
	}
	for _, q := range queries {
		if err := m.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	err := m.db.QueryRowContext(ctx,
		"SELECT system, synced_at FROM snapshot_meta WHERE id = 1").Scan(&st.System, &st.SyncedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading snapshot meta: %w", err)
	}
	return st, nil
}

func (m *Mirror) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
