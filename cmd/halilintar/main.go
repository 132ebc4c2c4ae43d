package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/halilintar-go/internal/config"
	"github.com/comigor/halilintar-go/internal/logger"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "halilintar",
		Short: "Halilintar AI chat client and completion gateway",
		Long: `Halilintar AI: chat with Google Gemini or DeepSeek.

  halilintar serve   Start the browser UI and the /api/chat gateway
  halilintar chat    Chat from the terminal against a running gateway`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger.SetLevel(cfg.Log.Level)
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
