package sqlvec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/embeddings"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

// Store is the sqlite-vec backed vector store client. Chunk payloads live in
// a regular table; embeddings live in a vec0 virtual table joined through
// vec_map. Deletes are soft so the saga compensation path can restore them.
type Store struct {
	db       *sql.DB
	embedder embeddings.Embedder
}

func New(path string, embedder embeddings.Embedder) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, len(mustDim(embedder))); err != nil {
		return nil, err
	}
	return &Store{db: db, embedder: embedder}, nil
}

func mustDim(e embeddings.Embedder) []float32 {
	v, err := e.EmbedQuery("")
	if err != nil || len(v) == 0 {
		return make([]float32, embeddings.DefaultDimension)
	}
	return v
}

func migrate(db *sql.DB, dim int) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		content TEXT,
		metadata TEXT,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);`); err != nil {
		return err
	}
	if _, err := db.Exec(fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
        embedding float32[%d]
    );`, dim)); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS vec_map (
        rid INTEGER UNIQUE NOT NULL,
        id TEXT UNIQUE NOT NULL
    );
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vec_map_id ON vec_map(id);`); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// StoreChunks upserts the payloads and their embeddings, returning the chunk
// ids in input order. Items without an id get a generated one.
func (s *Store) StoreChunks(
	ctx context.Context,
	items []models.ChunkData,
	projectID string,
) ([]string, error) {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Content
	}
	vecs, err := s.embedder.EmbedTexts(texts)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	chunkStmt, err := tx.Prepare(`INSERT INTO chunks(id, project_id, content, metadata, deleted)
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
	defer func() { _ = chunkStmt.Close() }()

	ids := make([]string, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = util.GenerateID("vec")
		}
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if _, err := chunkStmt.Exec(id, projectID, it.Content, string(meta)); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := upsertEmbedding(tx, id, vecs[i]); err != nil {
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

func upsertEmbedding(tx *sql.Tx, id string, vec []float32) error {
	v, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return err
	}
	var rid sql.NullInt64
	if err := tx.QueryRow(`SELECT rid FROM vec_map WHERE id = ?`, id).Scan(&rid); err != nil &&
		!errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if rid.Valid {
		_, err = tx.Exec(`INSERT OR REPLACE INTO vec_embeddings(rowid, embedding) VALUES(?, ?)`, rid.Int64, v)
		return err
	}
	if _, err := tx.Exec(`INSERT INTO vec_embeddings(embedding) VALUES(?)`, v); err != nil {
		return err
	}
	var newRid int64
	if err := tx.QueryRow(`SELECT last_insert_rowid()`).Scan(&newRid); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO vec_map(rid, id) VALUES(?, ?)`, newRid, id)
	return err
}

// DeleteChunks soft-deletes the chunks. The embeddings stay in place so a
// restore is a pure flag flip.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	return s.setDeleted(ctx, ids, 1, "delete_chunks")
}

// RestoreChunks is the compensation path undoing a DeleteChunks.
func (s *Store) RestoreChunks(ctx context.Context, ids []string) error {
	return s.setDeleted(ctx, ids, 0, "restore_chunks")
}

func (s *Store) setDeleted(ctx context.Context, ids []string, flag int, op string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range ids {
		res, err := tx.Exec(`UPDATE chunks SET deleted = ? WHERE id = ?`, flag, id)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_ = tx.Rollback()
			return apperr.Newf(apperr.KindNotFound, "vector_store", op, "chunk %s not found", id)
		}
	}
	return tx.Commit()
}

// ListIDs returns the live chunk ids for a project.
func (s *Store) ListIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE project_id = ? AND deleted = 0`, projectID)
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

// Hit is one KNN result.
type Hit struct {
	Chunk models.ChunkData
	Score float32
}

// Query embeds the text and returns the topK nearest live chunks.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	qvec, err := s.embedder.EmbedQuery(text)
	if err != nil {
		return nil, err
	}
	v, err := sqlite_vec.SerializeFloat32(qvec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
        WITH knn AS (
            SELECT rowid, distance
            FROM vec_embeddings
            WHERE embedding MATCH ?
            ORDER BY distance
            LIMIT ?
        )
        SELECT c.id, c.content, c.metadata, k.distance
        FROM knn k
        JOIN vec_map m ON m.rid = k.rowid
        JOIN chunks c ON c.id = m.id
        WHERE c.deleted = 0
        ORDER BY k.distance ASC
    `, v, topK)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var hits []Hit
	for rows.Next() {
		var h Hit
		var meta string
		var dist float32
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.Content, &meta, &dist); err != nil {
			return nil, err
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &h.Chunk.Metadata); err != nil {
				return nil, err
			}
		}
		h.Score = 1 - dist
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
