package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polittalk/talkwatch/internal/config"
	"github.com/polittalk/talkwatch/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "talkwatch",
	Short: "Tracks politician appearances on German TV talk shows",
	Long:  "Crawls talk-show episode archives, extracts guest names, resolves them against the abgeordnetenwatch registry, and records appearances.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
