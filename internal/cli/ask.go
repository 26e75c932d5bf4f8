package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docchat/internal/knowledge"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask one question against the knowledge base",
	Example: `  docchat ask "What does section 107 say about fair use?"
  docchat --variant local ask "Summarize notes.docx"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requirePersistentStore(); err != nil {
		return err
	}
	ctx := cmd.Context()
	prompt := strings.Join(args, " ")

	client, err := knowledge.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	streamed := false
	answer, err := client.Chat(ctx, prompt, knowledge.WithSink(func(_ context.Context, chunk string) error {
		streamed = true
		_, err := io.WriteString(out, chunk)
		return err
	}))
	if err != nil {
		return err
	}
	if streamed {
		fmt.Fprintln(out)
		return nil
	}
	fmt.Fprintln(out, answer)
	return nil
}
