// ABOUTME: Root command, global flags and entry point for the vidchat CLI
// ABOUTME: Running vidchat with no subcommand starts an interactive chat session
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Output formats for --format
const (
	formatText = "text"
	formatJSON = "json"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidchat",
		Short: "Chat with a YouTube video's transcript",
		Long: `vidchat fetches the transcript of a YouTube video and lets you ask
questions about it.

In retrieval mode (the default) the transcript is split into word chunks,
embedded with OpenAI and stored in a vector index; each question is answered
from the most similar chunks. In basic mode the whole transcript is sent
with every question.

Running vidchat without a subcommand is the same as "vidchat chat".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !containsString([]string{formatText, formatJSON}, outputFormat) {
				return fmt.Errorf("--format must be %q or %q, got %q", formatText, formatJSON, outputFormat)
			}
			return nil
		},
		RunE: runChat,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "Output format for non-interactive commands (text, json)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	addChatFlags(cmd)

	cmd.AddCommand(
		NewChatCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewTranscriptCmd(),
		NewIndexCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
