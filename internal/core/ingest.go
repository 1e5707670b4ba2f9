// ABOUTME: Ingester embeds transcript chunks and upserts them into a vector index
// ABOUTME: Batches embedding requests and runs a bounded number of batches in parallel
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/storage"
)

// Ingestion defaults
const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// IngesterConfig tunes batching and parallelism
type IngesterConfig struct {
	// Spec is used to create the index when it does not exist yet
	Spec        storage.Spec
	BatchSize   int
	Concurrency int
	Logger      *slog.Logger
}

// Ingester writes chunk embeddings to a vector index
type Ingester struct {
	embedder    Embedder
	index       storage.VectorIndex
	spec        storage.Spec
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewIngester creates an Ingester. Zero values in cfg fall back to defaults.
func NewIngester(embedder Embedder, index storage.VectorIndex, cfg IngesterConfig) *Ingester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Spec.Name == "" {
		cfg.Spec.Name = index.Name()
	}

	return &Ingester{
		embedder:    embedder,
		index:       index,
		spec:        cfg.Spec,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Ingest ensures the index exists, then embeds and upserts every chunk.
// The first failing batch cancels the rest. Returns the number of chunks written.
func (in *Ingester) Ingest(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	created, err := storage.EnsureCreated(ctx, in.index, in.spec)
	if err != nil {
		return 0, err
	}
	if created {
		in.logger.Info("created vector index", "index", in.spec.Name, "dimension", in.spec.Dimension, "metric", in.spec.Metric)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	for start := 0; start < len(chunks); start += in.batchSize {
		batch := chunks[start:min(start+in.batchSize, len(chunks))]
		g.Go(func() error {
			return in.ingestBatch(gctx, batch)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	in.logger.Debug("ingested chunks", "index", in.index.Name(), "chunks", len(chunks))
	return len(chunks), nil
}

func (in *Ingester) ingestBatch(ctx context.Context, batch []models.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	entries := make([]storage.Entry, len(batch))
	for i, c := range batch {
		entries[i] = storage.Entry{
			ID:     c.ID,
			Vector: vectors[i],
			Metadata: map[string]string{
				storage.MetaText:       c.Text,
				storage.MetaVideoID:    c.VideoID,
				storage.MetaChunkIndex: strconv.Itoa(c.Index),
			},
		}
	}

	if err := in.index.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}
	return nil
}
