// Package cli provides the command-line interface for docchat.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	cfgPath string
	variant string

	cfg    *config.AppConfig
	logger *zap.Logger
)

// rootCmd runs the chat shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat indexes PDF, DOCX, CSV and TXT files into a local knowledge base
and answers questions about them with Google Gemini (hosted variant) or a
model served by Ollama (local variant).

Run without a subcommand to open the interactive chat.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		switch variant {
		case "", config.VariantHosted, config.VariantLocal:
			cfg = cfg.WithVariant(variant)
		default:
			return fmt.Errorf("unknown variant: %s", variant)
		}

		var logPath string
		logger, logPath, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger.Info("starting", zap.String("command", cmd.Name()), zap.String("variant", cfg.Variant), zap.String("log", logPath))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

// Execute runs the root command; an interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/docchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&variant, "variant", "", "provider variant: hosted or local (overrides the config file)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
}
