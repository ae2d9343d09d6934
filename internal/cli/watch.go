package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mini-mind/internal/observer"
)

var watchFlags struct {
	url      string
	interval time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running arena through its API",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.url, "url", envOrDefault("ARENA_API_URL", "http://localhost:8080"), "arena API base URL")
	watchCmd.Flags().DurationVar(&watchFlags.interval, "interval", 10*time.Second, "time between observations")
}

func runWatch(cmd *cobra.Command, args []string) error {
	setupLogging(envOrDefault("ARENA_LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observer.NewObserver(watchFlags.url)

	slog.Info("waiting for arena API...", "url", watchFlags.url)
	if err := obs.WaitForAPI(ctx, observer.DefaultBackoff); err != nil {
		return err
	}
	slog.Info("arena API is ready")

	observe(ctx, obs)

	ticker := time.NewTicker(watchFlags.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			observe(ctx, obs)
		case <-ctx.Done():
			fmt.Println("Watcher stopped.")
			return nil
		}
	}
}

func observe(ctx context.Context, obs *observer.Observer) {
	snap, err := obs.Observe(ctx)
	if err != nil {
		slog.Error("observation failed", "error", err)
		return
	}

	st := snap.Status
	args := []any{
		"frame", humanize.Comma(int64(st.Frame)),
		"speed", st.Speed,
		"agents", st.Summary.Agents,
		"decisions", humanize.Comma(int64(st.Summary.Stats.Decisions)),
		"global_memory", len(snap.Memory.Entries),
	}
	for _, sc := range snap.TopStates(3) {
		args = append(args, sc.State, sc.Count)
	}
	if weakest, ok := snap.Weakest(); ok {
		args = append(args, "weakest", weakest.ID, "weakest_health", fmt.Sprintf("%.2f", weakest.Health))
	}
	slog.Info("observation", args...)
}
