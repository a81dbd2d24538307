package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shiftsync/internal/client/config"
	"shiftsync/internal/client/engine"
	"shiftsync/internal/client/store"
	"shiftsync/internal/logging"
	"shiftsync/internal/models"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEngine opens the local store and builds a sync engine from the
// environment configuration. The caller must defer st.Close().
func newEngine() (*engine.Engine, *store.SQLiteStore, error) {
	cfg := config.LoadConfig()
	if cfg.Token == "" {
		return nil, nil, fmt.Errorf("SYNC_TOKEN is not set")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local store: %w", err)
	}

	client := engine.NewAPIClient(cfg.ServerURL, func(ctx context.Context) (string, error) {
		return cfg.Token, nil
	})

	return engine.New(st, client, logging.NewDefault()), st, nil
}

var rootCmd = &cobra.Command{
	Use:   "shiftsync-client",
	Short: "Local workforce store with server synchronization",
}

var includeDeleted bool

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Cold-populate the local store from the server snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := eng.Bootstrap(cmd.Context(), includeDeleted)
		if err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		fmt.Printf("Bootstrapped %d records, watermark %d\n", summary.Synced, summary.Watermark)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation round",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := eng.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed (%s): %w", summary.Status, err)
		}

		fmt.Printf("Synced %d records, %d conflicts, %d errors, watermark %d\n",
			summary.Synced, len(summary.Conflicts), len(summary.Errors), summary.Watermark)
		for _, c := range summary.Conflicts {
			fmt.Printf("  conflict %s: %s\n", c.ClientRecordID, c.Message)
		}
		for _, e := range summary.Errors {
			fmt.Printf("  error %s: %s\n", e.ClientRecordID, e.Message)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync periodically until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		cfg := config.LoadConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Syncing every %s, Ctrl+C to stop\n", cfg.SyncInterval)
		eng.RunPeriodic(ctx, cfg.SyncInterval)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending and error counts per entity kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, kind := range models.Kinds() {
			counts, err := st.CountByStatus(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("counting %s: %w", kind, err)
			}
			if len(counts) == 0 {
				continue
			}
			fmt.Printf("%-26s synced=%d pending=%d error=%d\n", kind,
				counts[models.StatusSynced], counts[models.StatusPending], counts[models.StatusError])
		}

		watermark, err := st.GetSetting(cmd.Context(), store.SettingLastSyncTimestamp)
		if err != nil {
			return err
		}
		if watermark == "" {
			watermark = "0"
		}
		fmt.Printf("watermark: %s\n", watermark)
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().BoolVar(&includeDeleted, "include-deleted", false,
		"also pull soft-deleted records")
	rootCmd.AddCommand(bootstrapCmd, syncCmd, runCmd, statusCmd)
}
