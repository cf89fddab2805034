package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestFailure represents one failed chunk in the ingest response.
type IngestFailure struct {
	SourceID   string `json:"source_id"`
	PageNumber int    `json:"page_number"`
	Error      string `json:"error"`
}

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Documents      int             `json:"documents"`
	ChunksInserted int             `json:"chunks_inserted"`
	Failures       []IngestFailure `json:"failures"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the knowledge store",
		Long:  "Triggers a server-side ingestion run over the configured document source.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp IngestResponse
			if err := api.Post("/ingest", nil, &resp); err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Ingested %d chunks from %d documents.\n", resp.ChunksInserted, resp.Documents)
			for _, f := range resp.Failures {
				fmt.Printf("  failed: %s page %d: %s\n", f.SourceID, f.PageNumber, f.Error)
			}
			return nil
		},
	}

	return cmd
}
