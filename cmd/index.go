package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxpi/voxpi/internal/app"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the knowledge base directory into the vector store",
	Long: `Index chunks every .txt file under the configured knowledge directory
and embeds the chunks into the persistent vector store. Indexing is
idempotent: unchanged files overwrite themselves.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Setup(cmd.Context(), cfg, logger, app.Options{Headless: true})
	if err != nil {
		return err
	}

	n := a.Retriever.IndexKnowledgeBase(cmd.Context())
	fmt.Printf("Indexed %d chunks from %s\n", n, cfg.KnowledgeDir)
	return nil
}
