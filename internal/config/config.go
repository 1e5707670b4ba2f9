// ABOUTME: Centralized configuration for the vidchat CLI and MCP server
// ABOUTME: Loads from environment variables via envconfig with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session modes
const (
	ModeBasic     = "basic"
	ModeRetrieval = "retrieval"
)

// Missing transcript policies
const (
	PolicyDegrade = "degrade"
	PolicyAbort   = "abort"
)

// Supported vector backends
const (
	BackendPinecone = "pinecone"
	BackendQdrant   = "qdrant"
	BackendSQLite   = "sqlite"
	BackendCharm    = "charm"
)

// Config holds all configuration for vidchat
type Config struct {
	// Session settings
	Mode       string `envconfig:"VIDCHAT_MODE" default:"retrieval"`
	ChunkWords int    `envconfig:"CHUNK_WORDS" default:"200"`
	TopK       int    `envconfig:"TOP_K" default:"3"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"pretty"`

	// OpenAI settings
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY"`
	ChatModel      string        `envconfig:"VIDCHAT_CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string        `envconfig:"VIDCHAT_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Temperature    float32       `envconfig:"VIDCHAT_TEMPERATURE" default:"0.5"`
	Timeout        time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"OPENAI_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"OPENAI_RETRY_DELAY" default:"1s"`
	RequestsPerSec float64       `envconfig:"OPENAI_RPS" default:"0"`

	// Ingestion settings
	IngestBatchSize   int `envconfig:"INGEST_BATCH_SIZE" default:"64"`
	IngestConcurrency int `envconfig:"INGEST_CONCURRENCY" default:"4"`

	// Transcript settings
	TranscriptLanguages []string      `envconfig:"TRANSCRIPT_LANGUAGES" default:"en"`
	TranscriptTimeout   time.Duration `envconfig:"TRANSCRIPT_TIMEOUT" default:"30s"`

	// Vector index settings
	VectorBackend   string `envconfig:"VECTOR_BACKEND" default:"pinecone"`
	IndexName       string `envconfig:"VECTOR_INDEX" default:"youtube-transcripts"`
	VectorDimension int    `envconfig:"VECTOR_DIMENSION" default:"1536"`
	VectorMetric    string `envconfig:"VECTOR_METRIC" default:"cosine"`

	// Pinecone settings
	PineconeAPIKey string `envconfig:"PINECONE_API_KEY"`
	PineconeEnv    string `envconfig:"PINECONE_ENV"`
	PineconeCloud  string `envconfig:"PINECONE_CLOUD" default:"aws"`
	PineconeRegion string `envconfig:"PINECONE_REGION"`

	// Qdrant settings
	QdrantHost   string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort   int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey string `envconfig:"QDRANT_API_KEY"`
	QdrantTLS    bool   `envconfig:"QDRANT_TLS" default:"false"`

	// SQLite settings
	SQLitePath string `envconfig:"SQLITE_PATH"`

	// Charm settings
	CharmHost   string `envconfig:"CHARM_HOST" default:"cloud.charm.sh"`
	CharmDBName string `envconfig:"CHARM_DB" default:"vidchat"`
	AutoSync    bool   `envconfig:"CHARM_AUTO_SYNC" default:"true"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	// PINECONE_ENV predates serverless regions; honor it when no region is set
	if cfg.PineconeRegion == "" {
		cfg.PineconeRegion = cfg.PineconeEnv
	}
	if cfg.PineconeRegion == "" {
		cfg.PineconeRegion = "us-east-1"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = DefaultSQLitePath()
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBasic, ModeRetrieval:
	default:
		return fmt.Errorf("VIDCHAT_MODE must be %q or %q, got %q", ModeBasic, ModeRetrieval, c.Mode)
	}
	switch c.VectorBackend {
	case BackendPinecone, BackendQdrant, BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be one of pinecone, qdrant, sqlite, charm, got %q", c.VectorBackend)
	}
	switch c.VectorMetric {
	case "cosine", "dotproduct", "euclidean":
	default:
		return fmt.Errorf("VECTOR_METRIC must be cosine, dotproduct or euclidean, got %q", c.VectorMetric)
	}
	if c.ChunkWords <= 0 {
		return fmt.Errorf("CHUNK_WORDS must be positive, got %d", c.ChunkWords)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("VECTOR_DIMENSION must be positive, got %d", c.VectorDimension)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("VIDCHAT_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.RequestsPerSec < 0 {
		return fmt.Errorf("OPENAI_RPS must not be negative, got %f", c.RequestsPerSec)
	}
	if c.IngestBatchSize <= 0 {
		return fmt.Errorf("INGEST_BATCH_SIZE must be positive, got %d", c.IngestBatchSize)
	}
	if c.IngestConcurrency <= 0 {
		return fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", c.IngestConcurrency)
	}
	if len(c.TranscriptLanguages) == 0 {
		return fmt.Errorf("TRANSCRIPT_LANGUAGES must name at least one language")
	}
	return nil
}

// RequireOpenAI reports a descriptive error when no OpenAI key is configured
func (c *Config) RequireOpenAI() error {
	if strings.TrimSpace(c.OpenAIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set (add it to the environment or a .env file)")
	}
	return nil
}

// RequireBackend reports missing credentials for the selected vector backend
func (c *Config) RequireBackend() error {
	if c.VectorBackend == BackendPinecone && strings.TrimSpace(c.PineconeAPIKey) == "" {
		return fmt.Errorf("PINECONE_API_KEY is required for the pinecone backend")
	}
	return nil
}

// DefaultSQLitePath returns the local index path following the XDG spec
func DefaultSQLitePath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "vidchat", "index.db")
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "vidchat", "index.db")
}
