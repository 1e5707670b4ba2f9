// ABOUTME: Ask command answers one question about a video and exits
// ABOUTME: Retrieval mode queries chunks stored by a previous ingest; basic mode uses the full transcript
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/youtube"
)

var (
	askMode   string
	askTopK   int
	askIngest bool
)

type askResult struct {
	VideoID  string `json:"video_id"`
	Mode     string `json:"mode"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <url> <question>",
		Short: "Answer a single question about a video",
		Long: `Answer one question about a YouTube video and exit.

In retrieval mode the video must already be ingested (see "vidchat ingest"),
or pass --ingest to ingest it first. Basic mode fetches the transcript and
sends it whole.`,
		Example: `  vidchat ask "https://www.youtube.com/watch?v=dQw4w9WgXcQ" "What is the song about?"
  vidchat ask --mode basic "https://www.youtube.com/watch?v=dQw4w9WgXcQ" "Summarize the video"`,
		Args: cobra.MinimumNArgs(2),
		RunE: runAsk,
	}

	cmd.Flags().StringVar(&askMode, "mode", "", "Answering mode: basic or retrieval (default from VIDCHAT_MODE)")
	cmd.Flags().IntVar(&askTopK, "top-k", 0, "Chunks retrieved for the question (default from TOP_K)")
	cmd.Flags().BoolVar(&askIngest, "ingest", false, "Ingest the video before answering (retrieval mode)")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = askMode
	}
	if cmd.Flags().Changed("top-k") {
		if err := validatePositiveInt(askTopK, "--top-k"); err != nil {
			return err
		}
		cfg.TopK = askTopK
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	videoID := youtube.ExtractVideoID(args[0])
	question := strings.TrimSpace(strings.Join(args[1:], " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	oai, err := newOpenAI(cfg, log)
	if err != nil {
		return err
	}
	fetcher := newFetcher(cfg, log)

	var answer string
	if cfg.Mode == config.ModeBasic {
		transcript, err := fetcher.FetchTranscript(ctx, videoID)
		if err != nil {
			return fmt.Errorf("fetching transcript: %w", err)
		}
		answer, err = core.NewQA(nil, oai, nil, cfg.TopK).AskBasic(ctx, transcript.Text(), question)
		if err != nil {
			return err
		}
	} else {
		idx, err := newIndex(cfg, log)
		if err != nil {
			return fmt.Errorf("opening vector index: %w", err)
		}
		defer closeIndex(idx, log)

		if askIngest {
			transcript, err := fetcher.FetchTranscript(ctx, videoID)
			if err != nil {
				return fmt.Errorf("fetching transcript: %w", err)
			}
			chunks := core.NewChunkEngine().ChunkTranscript(videoID, transcript.Text(), cfg.ChunkWords)
			if _, err := core.NewIngester(oai, idx, ingesterConfig(cfg, log)).Ingest(ctx, chunks); err != nil {
				return fmt.Errorf("ingesting %s: %w", videoID, err)
			}
		}

		answer, err = core.NewQA(oai, oai, idx, cfg.TopK).AskRetrieval(ctx, videoID, question)
		if err != nil {
			return err
		}
	}

	if outputFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), askResult{VideoID: videoID, Mode: cfg.Mode, Question: question, Answer: answer})
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
