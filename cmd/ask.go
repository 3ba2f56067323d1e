package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxpi/voxpi/internal/app"
	"github.com/voxpi/voxpi/internal/llm"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question without the voice loop",
	Long: `Ask runs one retrieval-augmented generation against the local model
and prints the answer. The turn is stored in conversation memory just like
a spoken one, so later questions can recall it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger, app.Options{Headless: true})
	if err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	contextDocs := a.Retriever.RetrieveContext(ctx, question, cfg.RetrievalTopK)
	prompt := llm.PromptWithContext(question, contextDocs)

	answer, err := a.Engine.Generate(ctx, prompt, llm.Options{MaxTokens: cfg.MaxTokens}, func(token string) {
		fmt.Print(token)
	})
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}
	fmt.Println()

	a.Retriever.AddConversation(ctx, question, answer)
	return nil
}
