// ABOUTME: storage.VectorIndex backed by a Pinecone serverless index
// ABOUTME: Creates the index on demand, waits for readiness, and upserts in batches of 100
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/harper/vidchat/internal/storage"
)

const (
	// UpsertBatchSize is the number of vectors sent per upsert request
	UpsertBatchSize = 100

	defaultReadyTimeout = 2 * time.Minute
	defaultPollInterval = time.Second
)

// controlPlane is the index management subset of *pinecone.Client
type controlPlane interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
	DeleteIndex(ctx context.Context, idxName string) error
}

// dataPlane is the vector subset of *pinecone.IndexConnection
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	Close() error
}

// Config holds Pinecone connection settings
type Config struct {
	APIKey    string
	IndexName string
	// ReadyTimeout bounds the wait for a freshly created index
	ReadyTimeout time.Duration
	PollInterval time.Duration
}

// Index implements storage.VectorIndex for one Pinecone index
type Index struct {
	name         string
	control      controlPlane
	connect      func(host string) (dataPlane, error)
	readyTimeout time.Duration
	pollInterval time.Duration
	logger       *slog.Logger

	mu   sync.Mutex
	conn dataPlane
}

// New creates a Pinecone-backed index handle. No network calls are made until first use.
func New(cfg Config, logger *slog.Logger) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone API key is required")
	}
	if cfg.IndexName == "" {
		return nil, errors.New("pinecone index name is required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnection, err)
	}

	connect := func(host string) (dataPlane, error) {
		return pc.Index(pinecone.NewIndexConnParams{Host: host})
	}
	return newIndex(cfg, pc, connect, logger), nil
}

func newIndex(cfg Config, control controlPlane, connect func(string) (dataPlane, error), logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = defaultReadyTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Index{
		name:         cfg.IndexName,
		control:      control,
		connect:      connect,
		readyTimeout: readyTimeout,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (i *Index) Name() string {
	return i.name
}

// IndexExists lists the project's indexes and looks for the name
func (i *Index) IndexExists(ctx context.Context) (bool, error) {
	indexes, err := i.control.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: list indexes: %w", storage.ErrConnection, err)
	}
	for _, idx := range indexes {
		if idx != nil && idx.Name == i.name {
			return true, nil
		}
	}
	return false, nil
}

// CreateIndex creates a serverless index and blocks until it reports ready
func (i *Index) CreateIndex(ctx context.Context, spec storage.Spec) error {
	req := &pinecone.CreateServerlessIndexRequest{
		Name:      i.name,
		Dimension: int32(spec.Dimension),
		Metric:    toMetric(spec.Metric),
		Cloud:     toCloud(spec.Cloud),
		Region:    spec.Region,
	}
	if req.Region == "" {
		req.Region = "us-east-1"
	}

	i.logger.Info("creating pinecone index",
		"index", i.name,
		"dimension", spec.Dimension,
		"metric", req.Metric,
		"cloud", req.Cloud,
		"region", req.Region)

	if _, err := i.control.CreateServerlessIndex(ctx, req); err != nil {
		if isConflict(err) {
			return fmt.Errorf("%s: %w", i.name, storage.ErrIndexExists)
		}
		return fmt.Errorf("create index %s: %w", i.name, err)
	}
	return i.waitReady(ctx)
}

func (i *Index) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(i.pollInterval)
	defer ticker.Stop()

	for {
		desc, err := i.control.DescribeIndex(ctx, i.name)
		if err == nil && desc.Status != nil && desc.Status.Ready {
			return nil
		}
		if err != nil {
			i.logger.Debug("waiting for pinecone index", "index", i.name, "error", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("index %s not ready: %w", i.name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Upsert sends entries in batches of UpsertBatchSize
func (i *Index) Upsert(ctx context.Context, entries []storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	conn, err := i.dataConn(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(entries); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(entries))
		vectors, err := toVectors(entries[start:end])
		if err != nil {
			return err
		}
		if _, err := conn.UpsertVectors(ctx, vectors); err != nil {
			return fmt.Errorf("upsert vectors %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// Query runs a top-K query with an optional $eq metadata filter
func (i *Index) Query(ctx context.Context, q storage.Query) ([]storage.Match, error) {
	conn, err := i.dataConn(ctx)
	if err != nil {
		return nil, err
	}

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          q.Vector,
		TopK:            uint32(q.TopK),
		IncludeMetadata: q.IncludeMetadata,
	}
	if len(q.Filter) > 0 {
		filter, err := toFilter(q.Filter)
		if err != nil {
			return nil, err
		}
		req.MetadataFilter = filter
	}

	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", i.name, err)
	}
	return fromScored(resp.Matches), nil
}

// DeleteIndex deletes the whole Pinecone index
func (i *Index) DeleteIndex(ctx context.Context) error {
	i.mu.Lock()
	if i.conn != nil {
		_ = i.conn.Close()
		i.conn = nil
	}
	i.mu.Unlock()

	if err := i.control.DeleteIndex(ctx, i.name); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
		}
		return fmt.Errorf("delete index %s: %w", i.name, err)
	}
	return nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conn != nil {
		err := i.conn.Close()
		i.conn = nil
		return err
	}
	return nil
}

// dataConn resolves the index host once and reuses the connection
func (i *Index) dataConn(ctx context.Context) (dataPlane, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conn != nil {
		return i.conn, nil
	}

	desc, err := i.control.DescribeIndex(ctx, i.name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", i.name, storage.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("%w: describe index %s: %w", storage.ErrConnection, i.name, err)
	}

	conn, err := i.connect(desc.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %w", storage.ErrConnection, desc.Host, err)
	}
	i.conn = conn
	return conn, nil
}

func toMetric(m storage.Metric) pinecone.IndexMetric {
	switch m {
	case storage.MetricDotProduct:
		return pinecone.Dotproduct
	case storage.MetricEuclidean:
		return pinecone.Euclidean
	default:
		return pinecone.Cosine
	}
}

func toCloud(c string) pinecone.Cloud {
	switch strings.ToLower(c) {
	case "gcp":
		return pinecone.Gcp
	case "azure":
		return pinecone.Azure
	default:
		return pinecone.Aws
	}
}

func toVectors(entries []storage.Entry) ([]*pinecone.Vector, error) {
	vectors := make([]*pinecone.Vector, 0, len(entries))
	for _, e := range entries {
		fields := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			fields[k] = v
		}
		meta, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("encode metadata for %s: %w", e.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{
			Id:       e.ID,
			Values:   e.Vector,
			Metadata: meta,
		})
	}
	return vectors, nil
}

func toFilter(filter map[string]string) (*pinecone.MetadataFilter, error) {
	fields := make(map[string]any, len(filter))
	for k, v := range filter {
		fields[k] = map[string]any{"$eq": v}
	}
	f, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return f, nil
}

func fromScored(scored []*pinecone.ScoredVector) []storage.Match {
	matches := make([]storage.Match, 0, len(scored))
	for _, sv := range scored {
		if sv == nil || sv.Vector == nil {
			continue
		}
		m := storage.Match{ID: sv.Vector.Id, Score: sv.Score}
		if sv.Vector.Metadata != nil {
			m.Metadata = make(map[string]string, len(sv.Vector.Metadata.GetFields()))
			for k, v := range sv.Vector.Metadata.AsMap() {
				m.Metadata[k] = fmt.Sprint(v)
			}
		}
		matches = append(matches, m)
	}
	return matches
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

func isConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "409") || strings.Contains(msg, "already exists")
}
