package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/citeline/citeline/internal/config"
	"github.com/citeline/citeline/internal/database"
	"github.com/citeline/citeline/internal/repository"
	"github.com/spf13/cobra"
)

// PurgeCmd returns the purge command. It removes every chunk ingested from
// one source document so the document can be re-ingested cleanly.
func PurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <source-id>",
		Short: "Remove all chunks from a source document",
		Long:  "Deletes every stored chunk whose source ID matches, typically before re-ingesting a corrected document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("purge requires DATABASE_URL; the in-memory store does not outlive the server")
			}

			pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			repo := repository.NewChunkRepository(pool)
			deleted, err := repo.DeleteBySource(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to purge source: %w", err)
			}

			log.Printf("purged %d chunks from %s", deleted, args[0])
			return nil
		},
	}
}
