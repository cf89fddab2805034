package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// EmbedRequest represents the embedding API request.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse represents the embedding API response.
type EmbedResponse struct {
	Embeddings []float32 `json:"embeddings"`
}

// EmbedCmd creates the embed command.
func EmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed a text",
		Long:  "Embeds a single text through the configured provider and prints the vector.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp EmbedResponse
			if err := api.Post("/embedding", EmbedRequest{Text: args[0]}, &resp); err != nil {
				return fmt.Errorf("embedding failed: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("%d dimensions\n", len(resp.Embeddings))
			fmt.Println(resp.Embeddings)
			return nil
		},
	}

	return cmd
}
