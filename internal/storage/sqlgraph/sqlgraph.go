package sqlgraph

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

// Store is the sqlite backed graph store client: nodes carry the chunk
// payloads, edges the structural relations between them. Deletes are soft so
// compensation can restore a node together with its edges.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		content TEXT,
		metadata TEXT,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id);
	CREATE TABLE IF NOT EXISTS edges (
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		relation TEXT NOT NULL,
		PRIMARY KEY (source, target, relation)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// StoreChunks upserts node payloads, returning node ids in input order.
func (s *Store) StoreChunks(
	ctx context.Context,
	items []models.ChunkData,
	projectID string,
) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare(`INSERT INTO nodes(id, project_id, content, metadata, deleted)
		VALUES(?,?,?,?,0)
		ON CONFLICT(id) DO UPDATE SET
		project_id=excluded.project_id,
		content=excluded.content,
		metadata=excluded.metadata,
		deleted=0`)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]string, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = util.GenerateID("node")
		}
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if _, err := stmt.Exec(id, projectID, it.Content, string(meta)); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) DeleteNodes(ctx context.Context, ids []string) error {
	return s.setDeleted(ctx, ids, 1, "delete_nodes")
}

// RestoreNodes is the compensation path undoing a DeleteNodes. Edges were
// never touched, so restoring the flag restores the node's connectivity too.
func (s *Store) RestoreNodes(ctx context.Context, ids []string) error {
	return s.setDeleted(ctx, ids, 0, "restore_nodes")
}

func (s *Store) setDeleted(ctx context.Context, ids []string, flag int, op string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range ids {
		res, err := tx.Exec(`UPDATE nodes SET deleted = ? WHERE id = ?`, flag, id)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_ = tx.Rollback()
			return apperr.Newf(apperr.KindNotFound, "graph_store", op, "node %s not found", id)
		}
	}
	return tx.Commit()
}

// ListIDs returns the live node ids for a project.
func (s *Store) ListIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM nodes WHERE project_id = ? AND deleted = 0`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddEdge records a directed relation between two nodes.
func (s *Store) AddEdge(ctx context.Context, source, target, relation string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO edges(source, target, relation) VALUES(?,?,?)`,
		source, target, relation)
	return err
}

// Neighbor is one adjacent live node.
type Neighbor struct {
	ID       string
	Relation string
}

// Neighbors returns the live nodes reachable from id over one outgoing edge.
func (s *Store) Neighbors(ctx context.Context, id string) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.target, e.relation
		FROM edges e
		JOIN nodes n ON n.id = e.target
		WHERE e.source = ? AND n.deleted = 0`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Neighbor
	for rows.Next() {
		var nb Neighbor
		if err := rows.Scan(&nb.ID, &nb.Relation); err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}
