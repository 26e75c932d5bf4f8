package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/knowledge"
	"docchat/internal/provider"
	"docchat/internal/session"
	"docchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat (default)",
	Long: `Open the interactive chat.

Keys:
  ctrl+o  open a file (pdf, docx, txt, csv, xlsx)
  ctrl+a  add the opened file to the knowledge base
  enter   open the file / send the prompt
  ctrl+l  clear the chat history
  ctrl+c  quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := cfg.ResolveProvider()
	if err != nil {
		return err
	}
	if lp, ok := p.(config.LocalProvider); ok {
		if err := provider.Probe(ctx, lp.BaseURL, lp.Generation.Model); err != nil {
			logger.Warn("local model probe failed", zap.Error(err))
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
		}
	}

	store := session.NewStore(func(ctx context.Context) (knowledge.Base, error) {
		return knowledge.Open(ctx, cfg, logger)
	}, logger)
	defer func() {
		if err := store.CloseAll(); err != nil {
			logger.Warn("close sessions", zap.Error(err))
		}
	}()

	sess, err := store.Create(ctx)
	if err != nil {
		return err
	}

	m := tui.New(ctx, sess, title(p), cfg.Preload)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func title(p config.Provider) string {
	switch p := p.(type) {
	case config.HostedProvider:
		return "docchat: chat with your documents (Gemini " + p.Generation.Model + ")"
	case config.LocalProvider:
		return "docchat: chat with your documents (Ollama " + p.Generation.Model + ")"
	}
	return "docchat"
}
