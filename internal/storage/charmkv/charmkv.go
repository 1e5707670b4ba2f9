// ABOUTME: storage.VectorIndex backed by Charm KV for cloud-synced vector storage
// ABOUTME: Keeps the index spec and each entry as JSON values and ranks by brute-force similarity
package charmkv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/harper/vidchat/internal/charm"
	"github.com/harper/vidchat/internal/storage"
)

// Store is the subset of the charm client the index needs
type Store interface {
	SetJSON(key string, value any) error
	SetMany(values map[string][]byte) error
	GetJSON(key string, dest any) error
	DeleteMany(keys ...string) error
	ListKeys(prefix string) ([]string, error)
	Close() error
}

type indexRecord struct {
	Name      string         `json:"name"`
	Dimension int            `json:"dimension"`
	Metric    storage.Metric `json:"metric"`
	CreatedAt time.Time      `json:"created_at"`
}

type entryRecord struct {
	ID        string            `json:"id"`
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Index implements storage.VectorIndex on top of a charm KV store
type Index struct {
	store  Store
	name   string
	logger *slog.Logger
}

// New binds an index name to a store
func New(store Store, name string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{store: store, name: name, logger: logger}
}

// Open connects to charm with cfg and binds name to the resulting store
func Open(cfg *charm.Config, name string, logger *slog.Logger) (*Index, error) {
	client, err := charm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnection, err)
	}
	return New(client, name, logger), nil
}

func (i *Index) Name() string {
	return i.name
}

func (i *Index) IndexExists(ctx context.Context) (bool, error) {
	keys, err := i.store.ListKeys(charm.IndexKey(i.name))
	if err != nil {
		return false, err
	}
	return slices.Contains(keys, charm.IndexKey(i.name)), nil
}

func (i *Index) CreateIndex(ctx context.Context, spec storage.Spec) error {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", i.name, storage.ErrIndexExists)
	}
	metric := spec.Metric
	if metric == "" {
		metric = storage.MetricCosine
	}
	return i.store.SetJSON(charm.IndexKey(i.name), indexRecord{
		Name:      i.name,
		Dimension: spec.Dimension,
		Metric:    metric,
		CreatedAt: time.Now(),
	})
}

// Upsert writes all entries and syncs once
func (i *Index) Upsert(ctx context.Context, entries []storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rec, err := i.spec(ctx)
	if err != nil {
		return err
	}
	if err := storage.CheckDimensions(entries, rec.Dimension); err != nil {
		return err
	}

	now := time.Now()
	values := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(entryRecord{
			ID:        e.ID,
			Vector:    e.Vector,
			Metadata:  e.Metadata,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
		values[charm.EntryKey(i.name, e.ID)] = data
	}
	return i.store.SetMany(values)
}

// Query loads every entry of the index and ranks the ones passing the filter
func (i *Index) Query(ctx context.Context, q storage.Query) ([]storage.Match, error) {
	rec, err := i.spec(ctx)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != rec.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", storage.ErrDimensionMismatch, len(q.Vector), rec.Dimension)
	}

	keys, err := i.store.ListKeys(charm.EntriesPrefix(i.name))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	matches := make([]storage.Match, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e entryRecord
		if err := i.store.GetJSON(key, &e); err != nil {
			i.logger.Warn("skipping unreadable entry", "key", key, "error", err)
			continue
		}
		if !storage.MatchesFilter(e.Metadata, q.Filter) {
			continue
		}
		m := storage.Match{ID: e.ID, Score: storage.Score(rec.Metric, q.Vector, e.Vector)}
		if q.IncludeMetadata {
			m.Metadata = e.Metadata
		}
		matches = append(matches, m)
	}

	return storage.Rank(matches, q.TopK), nil
}

// DeleteIndex removes every entry and then the spec in one batch
func (i *Index) DeleteIndex(ctx context.Context) error {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
	}

	keys, err := i.store.ListKeys(charm.EntriesPrefix(i.name))
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	keys = append(keys, charm.IndexKey(i.name))
	if err := i.store.DeleteMany(keys...); err != nil {
		return err
	}
	i.logger.Info("deleted charm index", "index", i.name, "entries", len(keys)-1)
	return nil
}

func (i *Index) Close() error {
	return i.store.Close()
}

func (i *Index) spec(ctx context.Context) (*indexRecord, error) {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
	}
	var rec indexRecord
	if err := i.store.GetJSON(charm.IndexKey(i.name), &rec); err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", i.name, err)
	}
	return &rec, nil
}
