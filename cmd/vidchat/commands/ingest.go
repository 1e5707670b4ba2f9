// ABOUTME: Ingest command fetches, chunks, embeds and stores a video's transcript
// ABOUTME: Non-interactive counterpart of the first half of a retrieval chat session
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/youtube"
)

var ingestChunkWords int

type ingestResult struct {
	VideoID string `json:"video_id"`
	Chunks  int    `json:"chunks"`
	Index   string `json:"index"`
}

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Embed a video's transcript into the vector index",
		Long: `Fetch a YouTube video's transcript, split it into word chunks, embed
each chunk and upsert it into the configured vector index.

Chunks are stored as "<video_id>-<n>", so ingesting the same video again
overwrites its chunks instead of duplicating them.`,
		Example: `  vidchat ingest "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  vidchat ingest --chunk-words 100 --format json "https://www.youtube.com/watch?v=dQw4w9WgXcQ"`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().IntVar(&ingestChunkWords, "chunk-words", 0, "Maximum words per chunk (default from CHUNK_WORDS)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("chunk-words") {
		if err := validatePositiveInt(ingestChunkWords, "--chunk-words"); err != nil {
			return err
		}
		cfg.ChunkWords = ingestChunkWords
	}
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	oai, err := newOpenAI(cfg, log)
	if err != nil {
		return err
	}
	idx, err := newIndex(cfg, log)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer closeIndex(idx, log)

	videoID := youtube.ExtractVideoID(args[0])
	transcript, err := newFetcher(cfg, log).FetchTranscript(ctx, videoID)
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}

	chunks := core.NewChunkEngine().ChunkTranscript(videoID, transcript.Text(), cfg.ChunkWords)
	n, err := core.NewIngester(oai, idx, ingesterConfig(cfg, log)).Ingest(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", videoID, err)
	}

	result := ingestResult{VideoID: videoID, Chunks: n, Index: idx.Name()}
	if outputFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d chunks embedded and uploaded to %s.\n", result.Chunks, result.Index)
	return nil
}
