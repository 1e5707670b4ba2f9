// ABOUTME: Transcript command prints a video's captions as text or JSON
// ABOUTME: Needs no OpenAI key or vector index
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/youtube"
)

var transcriptTimestamps bool

// NewTranscriptCmd creates the transcript command
func NewTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <url>",
		Short: "Print a video's transcript",
		Long: `Fetch and print the transcript of a YouTube video.

By default the segments are joined into one block of text. With
--timestamps each segment is printed on its own line with its start time.
--format json prints the full transcript object.`,
		Example: `  vidchat transcript "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  vidchat transcript --timestamps "https://www.youtube.com/watch?v=dQw4w9WgXcQ"`,
		Args: cobra.ExactArgs(1),
		RunE: runTranscript,
	}

	cmd.Flags().BoolVar(&transcriptTimestamps, "timestamps", false, "Print one segment per line with its start time")
	return cmd
}

func runTranscript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	videoID := youtube.ExtractVideoID(args[0])
	transcript, err := newFetcher(cfg, log).FetchTranscript(cmd.Context(), videoID)
	if err != nil {
		if youtube.IsNoTranscript(err) {
			return fmt.Errorf("no transcript available for %s: %w", videoID, err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case outputFormat == formatJSON:
		return writeJSON(out, transcript)
	case transcriptTimestamps:
		for _, seg := range transcript.Segments {
			fmt.Fprintf(out, "[%s] %s\n", formatTimestamp(seg.Start), seg.Text)
		}
	default:
		fmt.Fprintln(out, transcript.Text())
	}
	return nil
}
