// ABOUTME: storage.VectorIndex backed by a local SQLite database
// ABOUTME: Stores vectors as little-endian float32 BLOBs and ranks by brute-force similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harper/vidchat/internal/storage"
)

// Index is a named vector index stored in a SQLite database
type Index struct {
	db   *DB
	name string
	// owned is true when Close should also close db
	owned bool
}

// NewIndex binds an index name to an open database. Close does not close db.
func NewIndex(db *DB, name string) *Index {
	return &Index{db: db, name: name}
}

// OpenIndex opens the database at path and binds name to it. Close closes the database.
func OpenIndex(path, name string) (*Index, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, name: name, owned: true}, nil
}

// Name returns the index name
func (i *Index) Name() string {
	return i.name
}

// IndexExists reports whether the index row exists
func (i *Index) IndexExists(ctx context.Context) (bool, error) {
	_, _, err := i.spec(ctx)
	if errors.Is(err, storage.ErrIndexNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateIndex records the index dimension and metric
func (i *Index) CreateIndex(ctx context.Context, spec storage.Spec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive, got %d", spec.Dimension)
	}
	metric := spec.Metric
	if metric == "" {
		metric = storage.MetricCosine
	}

	res, err := i.db.conn.ExecContext(ctx, `
		INSERT INTO vector_indexes (name, dimension, metric, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, i.name, spec.Dimension, string(metric), time.Now())
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", i.name, storage.ErrIndexExists)
	}
	return nil
}

// Upsert inserts or overwrites entries in a single transaction
func (i *Index) Upsert(ctx context.Context, entries []storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dim, _, err := i.spec(ctx)
	if err != nil {
		return err
	}
	if err := storage.CheckDimensions(entries, dim); err != nil {
		return err
	}

	tx, err := i.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_entries (index_name, id, video_id, vector, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			video_id = excluded.video_id,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, e := range entries {
		meta, err := json.Marshal(nonNil(e.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i.name, e.ID, nullString(e.Metadata[storage.MetaVideoID]), vectorToBlob(e.Vector), string(meta), now); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Query scores every entry that passes the filter and returns the best TopK
func (i *Index) Query(ctx context.Context, q storage.Query) ([]storage.Match, error) {
	dim, metric, err := i.spec(ctx)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", storage.ErrDimensionMismatch, len(q.Vector), dim)
	}

	query := `SELECT id, vector, metadata FROM vector_entries WHERE index_name = ?`
	args := []any{i.name}
	// video_id has its own column so the common filter is served by the index
	if videoID, ok := q.Filter[storage.MetaVideoID]; ok {
		query += ` AND video_id = ?`
		args = append(args, videoID)
	}

	rows, err := i.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []storage.Match
	for rows.Next() {
		var (
			id       string
			blob     []byte
			metaJSON string
		)
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, err
		}

		var meta map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
		}
		if !storage.MatchesFilter(meta, q.Filter) {
			continue
		}

		m := storage.Match{
			ID:    id,
			Score: storage.Score(metric, q.Vector, blobToVector(blob)),
		}
		if q.IncludeMetadata {
			m.Metadata = meta
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return storage.Rank(matches, q.TopK), nil
}

// DeleteIndex removes the index row and all of its entries
func (i *Index) DeleteIndex(ctx context.Context) error {
	tx, err := i.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_entries WHERE index_name = ?`, i.name); err != nil {
		return fmt.Errorf("failed to delete entries of %s: %w", i.name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM vector_indexes WHERE name = ?`, i.name)
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %w", i.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
	}
	return tx.Commit()
}

// Count returns the number of entries stored in the index
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := i.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_entries WHERE index_name = ?`, i.name).Scan(&n)
	return n, err
}

// Close closes the database if this index opened it
func (i *Index) Close() error {
	if i.owned {
		return i.db.Close()
	}
	return nil
}

func (i *Index) spec(ctx context.Context) (int, storage.Metric, error) {
	var (
		dim    int
		metric string
	)
	err := i.db.conn.QueryRowContext(ctx, `SELECT dimension, metric FROM vector_indexes WHERE name = ?`, i.name).Scan(&dim, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to load index %s: %w", i.name, err)
	}
	return dim, storage.Metric(strings.ToLower(metric)), nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// vectorToBlob converts a float32 slice to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to a float32 slice
func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
