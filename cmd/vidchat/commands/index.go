// ABOUTME: Index command group to create or drop the configured vector index
// ABOUTME: Dropping deletes every stored chunk and requires --confirm
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/storage/storageutils"
)

var indexDropConfirm bool

// NewIndexCmd creates the index command group
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index",
		Long: `Create or drop the vector index named by VECTOR_INDEX on the backend
selected by VECTOR_BACKEND.`,
	}

	cmd.AddCommand(newIndexCreateCmd(), newIndexDropCmd())
	return cmd
}

func newIndexCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the vector index if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)

			idx, err := newIndex(cfg, log)
			if err != nil {
				return fmt.Errorf("opening vector index: %w", err)
			}
			defer closeIndex(idx, log)

			spec := storageutils.SpecFromConfig(cfg)
			created, err := storage.EnsureCreated(cmd.Context(), idx, spec)
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created index %s (dimension %d, metric %s).\n", spec.Name, spec.Dimension, spec.Metric)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Index %s already exists.\n", spec.Name)
			}
			return nil
		},
	}
}

func newIndexDropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the vector index and everything in it",
		Long: `Delete the configured vector index. This removes the chunks of every
video ingested into it and cannot be undone, so --confirm is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !indexDropConfirm {
				return fmt.Errorf("refusing to drop the index without --confirm")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)

			idx, err := newIndex(cfg, log)
			if err != nil {
				return fmt.Errorf("opening vector index: %w", err)
			}
			defer closeIndex(idx, log)

			if err := idx.DeleteIndex(cmd.Context()); err != nil {
				return fmt.Errorf("dropping index %s: %w", idx.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped index %s.\n", idx.Name())
			return nil
		},
	}

	cmd.Flags().BoolVar(&indexDropConfirm, "confirm", false, "Confirm deletion of the whole index")
	return cmd
}
