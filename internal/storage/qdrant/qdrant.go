// ABOUTME: storage.VectorIndex backed by a Qdrant collection over gRPC
// ABOUTME: Maps string ids to deterministic UUIDv5 point ids and keeps the original id in the payload
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/harper/vidchat/internal/storage"
)

// payloadIDKey holds the caller's id since Qdrant only accepts UUID or integer ids
const payloadIDKey = "_id"

// pointNamespace scopes the UUIDv5 ids generated for entry ids
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/harper/vidchat/qdrant"))

// Config holds Qdrant connection settings
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string
}

// Index implements storage.VectorIndex for one Qdrant collection
type Index struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// New connects to Qdrant
func New(cfg Config, logger *slog.Logger) (*Index, error) {
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnection, err)
	}

	logger.Debug("connected to qdrant", "host", cfg.Host, "port", cfg.Port, "collection", cfg.CollectionName)

	return &Index{
		client:     client,
		collection: cfg.CollectionName,
		logger:     logger,
	}, nil
}

func (i *Index) Name() string {
	return i.collection
}

func (i *Index) IndexExists(ctx context.Context) (bool, error) {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return false, fmt.Errorf("%w: collection exists: %w", storage.ErrConnection, err)
	}
	return exists, nil
}

func (i *Index) CreateIndex(ctx context.Context, spec storage.Spec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("collection dimension must be positive, got %d", spec.Dimension)
	}

	err := i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: toDistance(spec.Metric),
		}),
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return fmt.Errorf("%s: %w", i.collection, storage.ErrIndexExists)
		}
		return fmt.Errorf("create collection %s: %w", i.collection, err)
	}

	i.logger.Info("created qdrant collection", "collection", i.collection, "dimension", spec.Dimension)
	return nil
}

func (i *Index) Upsert(ctx context.Context, entries []storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		points = append(points, toPoint(e))
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return i.wrap("upsert", err)
	}
	return nil
}

func (i *Index) Query(ctx context.Context, q storage.Query) ([]storage.Match, error) {
	limit := uint64(q.TopK)
	req := &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          &limit,
		Filter:         toFilter(q.Filter),
		// The payload carries the original id, so it is always fetched
		WithPayload: qdrant.NewWithPayload(true),
	}

	points, err := i.client.Query(ctx, req)
	if err != nil {
		return nil, i.wrap("query", err)
	}

	matches := make([]storage.Match, 0, len(points))
	for _, p := range points {
		m := fromPoint(p)
		if !q.IncludeMetadata {
			m.Metadata = nil
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (i *Index) DeleteIndex(ctx context.Context) error {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", i.collection, storage.ErrIndexNotFound)
	}
	if err := i.client.DeleteCollection(ctx, i.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", i.collection, err)
	}
	return nil
}

func (i *Index) Close() error {
	return i.client.Close()
}

// wrap maps Qdrant's "not found" responses to ErrIndexNotFound
func (i *Index) wrap(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "doesn't exist") {
		return fmt.Errorf("%s %s: %w", op, i.collection, storage.ErrIndexNotFound)
	}
	if strings.Contains(msg, "dimension") {
		return fmt.Errorf("%s %s: %w: %v", op, i.collection, storage.ErrDimensionMismatch, err)
	}
	return fmt.Errorf("%s %s: %w", op, i.collection, err)
}

// PointID returns the deterministic UUID used for an entry id
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func toDistance(m storage.Metric) qdrant.Distance {
	switch m {
	case storage.MetricDotProduct:
		return qdrant.Distance_Dot
	case storage.MetricEuclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

func toPoint(e storage.Entry) *qdrant.PointStruct {
	payload := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		payload[k] = v
	}
	payload[payloadIDKey] = e.ID

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(PointID(e.ID)),
		Vectors: qdrant.NewVectors(e.Vector...),
		Payload: qdrant.NewValueMap(payload),
	}
}

func fromPoint(p *qdrant.ScoredPoint) storage.Match {
	m := storage.Match{Score: p.GetScore()}
	meta := make(map[string]string, len(p.GetPayload()))
	for k, v := range p.GetPayload() {
		if k == payloadIDKey {
			m.ID = v.GetStringValue()
			continue
		}
		meta[k] = v.GetStringValue()
	}
	if m.ID == "" {
		m.ID = p.GetId().GetUuid()
	}
	m.Metadata = meta
	return m
}

func toFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: conditions}
}
