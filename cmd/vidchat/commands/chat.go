// ABOUTME: Chat command runs the interactive question loop for one video
// ABOUTME: Flags override the mode, retrieval size, chunk size and transcript policy from config
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/storage"
)

var (
	chatURL             string
	chatMode            string
	chatTopK            int
	chatChunkWords      int
	chatOnMissing       string
	chatDropIndexOnExit bool
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about a YouTube video interactively",
		Long: `Start an interactive session about one YouTube video.

The video URL is read from --url or prompted for. Type 'exit' (or send EOF)
to end the session. The vector index is kept after exit unless
--drop-index-on-exit is given.`,
		Example: `  vidchat chat --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  vidchat chat --mode basic
  vidchat chat --top-k 5 --drop-index-on-exit`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	addChatFlags(cmd)
	return cmd
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&chatURL, "url", "", "YouTube video URL (prompted for when empty)")
	cmd.Flags().StringVar(&chatMode, "mode", "", "Answering mode: basic or retrieval (default from VIDCHAT_MODE)")
	cmd.Flags().IntVar(&chatTopK, "top-k", 0, "Chunks retrieved per question (default from TOP_K)")
	cmd.Flags().IntVar(&chatChunkWords, "chunk-words", 0, "Maximum words per chunk (default from CHUNK_WORDS)")
	cmd.Flags().StringVar(&chatOnMissing, "on-missing-transcript", "", "degrade or abort when no transcript exists (default depends on mode)")
	cmd.Flags().BoolVar(&chatDropIndexOnExit, "drop-index-on-exit", false, "Delete the whole vector index when the session ends")
}

// applyChatFlags overrides config values with explicitly set flags
func applyChatFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = chatMode
	}
	if flags.Changed("top-k") {
		if err := validatePositiveInt(chatTopK, "--top-k"); err != nil {
			return err
		}
		cfg.TopK = chatTopK
	}
	if flags.Changed("chunk-words") {
		if err := validatePositiveInt(chatChunkWords, "--chunk-words"); err != nil {
			return err
		}
		cfg.ChunkWords = chatChunkWords
	}
	if flags.Changed("on-missing-transcript") && !containsString([]string{config.PolicyDegrade, config.PolicyAbort}, chatOnMissing) {
		return fmt.Errorf("--on-missing-transcript must be %q or %q, got %q", config.PolicyDegrade, config.PolicyAbort, chatOnMissing)
	}
	return cfg.Validate()
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyChatFlags(cmd, cfg); err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	oai, err := newOpenAI(cfg, log)
	if err != nil {
		return err
	}

	var idx storage.VectorIndex
	if cfg.Mode == config.ModeRetrieval {
		idx, err = newIndex(cfg, log)
		if err != nil {
			return fmt.Errorf("opening vector index: %w", err)
		}
		defer closeIndex(idx, log)
	}

	session := core.NewSession(core.SessionConfig{
		URL:                 chatURL,
		Mode:                cfg.Mode,
		OnMissingTranscript: chatOnMissing,
		ChunkWords:          cfg.ChunkWords,
		TopK:                cfg.TopK,
		DropIndexOnExit:     chatDropIndexOnExit,
		Ingest:              ingesterConfig(cfg, log),
	}, core.SessionDeps{
		Fetcher:  newFetcher(cfg, log),
		Embedder: oai,
		Answerer: oai,
		Index:    idx,
		Logger:   log,
	}, cmd.InOrStdin(), cmd.OutOrStdout())

	// Ctrl-C is a normal way to leave the chat
	if err := session.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
