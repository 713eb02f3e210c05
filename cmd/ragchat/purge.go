package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/metrics"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-orphans",
	Short: "Delete conversation history of sessions whose assistant no longer exists",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, _ []string) error {
	cfg, logger, _, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := connectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Only the memory path is needed; the providers stay untouched.
	metrics.RegisterChatMetrics()
	memory := newMemory(cfg, store, newDirectory(cfg))

	removed, err := memory.PurgeOrphans(ctx)
	if err != nil {
		return fmt.Errorf("purge orphans (removed %d): %w", removed, err)
	}
	logger.Info("Orphan purge finished", zap.Int("removed", removed))
	cmd.Printf("removed %d orphaned sessions\n", removed)
	return nil
}
