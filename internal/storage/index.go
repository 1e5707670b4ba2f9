// ABOUTME: Vector index abstraction shared by the Pinecone, Qdrant, SQLite and Charm backends
// ABOUTME: Defines entries, queries, matches, sentinel errors, and idempotent index creation
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Metadata keys written by the ingester
const (
	MetaText       = "text"
	MetaVideoID    = "video_id"
	MetaChunkIndex = "chunk_index"
)

var (
	// ErrIndexNotFound is returned when an operation targets an index that does not exist
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrIndexExists is returned by CreateIndex when the name is already taken
	ErrIndexExists = errors.New("vector index already exists")
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrConnection is returned when the backend cannot be reached
	ErrConnection = errors.New("vector index connection failed")
)

// Metric is the similarity function an index ranks by
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
	MetricEuclidean  Metric = "euclidean"
)

// Spec describes an index to create
type Spec struct {
	Name      string
	Dimension int
	Metric    Metric
	// Cloud and Region only apply to managed backends
	Cloud  string
	Region string
}

// Entry is one vector stored under a unique id
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Query asks for the TopK entries most similar to Vector.
// Filter keeps only entries whose metadata equals every key/value pair.
type Query struct {
	Vector          []float32
	TopK            int
	Filter          map[string]string
	IncludeMetadata bool
}

// Match is a query result; higher Score means more similar
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Text returns the chunk text stored in the match metadata
func (m Match) Text() string {
	return m.Metadata[MetaText]
}

// VectorIndex stores vectors under ids and answers similarity queries
type VectorIndex interface {
	// Name returns the index name this handle is bound to.
	Name() string

	// IndexExists reports whether the named index has been created.
	IndexExists(ctx context.Context) (bool, error)

	// CreateIndex creates the index. Returns ErrIndexExists if it already exists.
	CreateIndex(ctx context.Context, spec Spec) error

	// Upsert inserts entries, overwriting any entry with the same id.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns at most TopK matches ordered by descending score.
	Query(ctx context.Context, q Query) ([]Match, error)

	// DeleteIndex removes the index and everything in it.
	DeleteIndex(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// EnsureCreated creates the index described by spec unless it already exists.
// There is no lock between the check and the create, so a concurrent creator
// may win the race; ErrIndexExists from CreateIndex is treated as success.
func EnsureCreated(ctx context.Context, idx VectorIndex, spec Spec) (bool, error) {
	exists, err := idx.IndexExists(ctx)
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", spec.Name, err)
	}
	if exists {
		return false, nil
	}

	if err := idx.CreateIndex(ctx, spec); err != nil {
		if errors.Is(err, ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("creating index %s: %w", spec.Name, err)
	}
	return true, nil
}

// CheckDimensions returns ErrDimensionMismatch for the first entry whose
// vector length differs from dim
func CheckDimensions(entries []Entry, dim int) error {
	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %s has %d values, index expects %d", ErrDimensionMismatch, e.ID, len(e.Vector), dim)
		}
	}
	return nil
}
