// ABOUTME: Shared wiring for commands: config, logger, transcript client, OpenAI client and index
// ABOUTME: Constructors are package variables so tests can substitute fakes
package commands

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/llm"
	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/storage/storageutils"
	"github.com/harper/vidchat/internal/youtube"
)

// openAIService is what commands need from the OpenAI client
type openAIService interface {
	core.Embedder
	core.Answerer
}

var (
	newFetcher = func(cfg *config.Config, log *slog.Logger) core.TranscriptFetcher {
		return youtube.NewClient(
			youtube.WithTimeout(cfg.TranscriptTimeout),
			youtube.WithLanguages(cfg.TranscriptLanguages...),
			youtube.WithLogger(log),
		)
	}

	newOpenAI = func(cfg *config.Config, log *slog.Logger) (openAIService, error) {
		if err := cfg.RequireOpenAI(); err != nil {
			return nil, err
		}
		clientCfg := llm.ConfigFrom(cfg)
		clientCfg.Logger = log
		return llm.NewOpenAIClientWithConfig(clientCfg)
	}

	newIndex = func(cfg *config.Config, log *slog.Logger) (storage.VectorIndex, error) {
		if err := cfg.RequireBackend(); err != nil {
			return nil, err
		}
		return storageutils.NewVectorIndex(storageutils.OptsFromConfig(cfg, log))
	}
)

// loadConfig reads .env (if present) and the environment
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger; logs go to stderr, never stdout
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logger.New(
		logger.WithVerbosity(verbose, quiet),
		logger.WithFormat(cfg.LogFormat),
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithPrefix(cmd.CommandPath()),
	)
}

// ingesterConfig maps config onto ingestion settings
func ingesterConfig(cfg *config.Config, log *slog.Logger) core.IngesterConfig {
	return core.IngesterConfig{
		Spec:        storageutils.SpecFromConfig(cfg),
		BatchSize:   cfg.IngestBatchSize,
		Concurrency: cfg.IngestConcurrency,
		Logger:      log,
	}
}

// closeIndex closes idx and logs any failure
func closeIndex(idx storage.VectorIndex, log *slog.Logger) {
	if err := idx.Close(); err != nil {
		log.Warn("closing vector index", "index", idx.Name(), "error", err)
	}
}
