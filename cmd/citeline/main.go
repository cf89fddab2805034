package main

import (
	"fmt"
	"os"

	"github.com/citeline/citeline/internal/cli"
	"github.com/citeline/citeline/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "citeline",
		Short: "Citeline CLI - grounded chat over your documents",
		Long: `Citeline CLI provides commands to chat with and manage a citeline server.

Environment variables:
  CITELINE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.EmbedCmd())
	rootCmd.AddCommand(client.IngestCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
