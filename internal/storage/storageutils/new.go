// ABOUTME: Factory that builds the configured storage.VectorIndex backend
// ABOUTME: Switches on VECTOR_BACKEND between pinecone, qdrant, sqlite and charm
package storageutils

import (
	"fmt"
	"log/slog"

	"github.com/harper/vidchat/internal/charm"
	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/storage/charmkv"
	"github.com/harper/vidchat/internal/storage/pinecone"
	"github.com/harper/vidchat/internal/storage/qdrant"
	"github.com/harper/vidchat/internal/storage/sqlite"
)

// NewVectorIndexOpts selects and configures a backend
type NewVectorIndexOpts struct {
	Backend   string
	IndexName string

	PineconeAPIKey string

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantTLS    bool

	SQLitePath string

	Charm *charm.Config

	Logger *slog.Logger
}

// OptsFromConfig maps application config onto factory options
func OptsFromConfig(cfg *config.Config, logger *slog.Logger) *NewVectorIndexOpts {
	return &NewVectorIndexOpts{
		Backend:        cfg.VectorBackend,
		IndexName:      cfg.IndexName,
		PineconeAPIKey: cfg.PineconeAPIKey,
		QdrantHost:     cfg.QdrantHost,
		QdrantPort:     cfg.QdrantPort,
		QdrantAPIKey:   cfg.QdrantAPIKey,
		QdrantTLS:      cfg.QdrantTLS,
		SQLitePath:     cfg.SQLitePath,
		Charm: &charm.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			AutoSync: cfg.AutoSync,
		},
		Logger: logger,
	}
}

// SpecFromConfig describes the index the configured backend should hold
func SpecFromConfig(cfg *config.Config) storage.Spec {
	return storage.Spec{
		Name:      cfg.IndexName,
		Dimension: cfg.VectorDimension,
		Metric:    storage.Metric(cfg.VectorMetric),
		Cloud:     cfg.PineconeCloud,
		Region:    cfg.PineconeRegion,
	}
}

// NewVectorIndex opens the backend named by o.Backend
func NewVectorIndex(o *NewVectorIndexOpts) (storage.VectorIndex, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		idx storage.VectorIndex
		err error
	)
	switch o.Backend {
	case config.BackendPinecone, "":
		idx, err = pinecone.New(pinecone.Config{
			APIKey:    o.PineconeAPIKey,
			IndexName: o.IndexName,
		}, logger)
	case config.BackendQdrant:
		idx, err = qdrant.New(qdrant.Config{
			Host:           o.QdrantHost,
			Port:           o.QdrantPort,
			APIKey:         o.QdrantAPIKey,
			UseTLS:         o.QdrantTLS,
			CollectionName: o.IndexName,
		}, logger)
	case config.BackendSQLite:
		idx, err = sqlite.OpenIndex(o.SQLitePath, o.IndexName)
	case config.BackendCharm:
		cfg := o.Charm
		if cfg == nil {
			cfg = charm.DefaultConfig()
		}
		idx, err = charmkv.Open(cfg, o.IndexName, logger)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", o.Backend)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}
