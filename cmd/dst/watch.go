package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/config"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/queue"
	"github.com/untoldecay/Distillery/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the distillation daemon",
	Long:  "Watches the sources and shadow trees, builds summaries for changed notes, syncs review edits, and runs the periodic clustering sweep.",
	RunE: func(cmd *cobra.Command, args []string) error {
		lockPath := config.Resolve(config.GetString("lock-file"))
		if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
			return err
		}
		lock := flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring daemon lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another dst watch is already running for this vault")
		}
		defer func() { _ = lock.Unlock() }()

		log := logging.NewFileLogger(config.Resolve(config.GetString("log-file")), true)
		defer func() { _ = log.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, log)
		if err != nil {
			return err
		}
		defer app.Close()
		app.queue.Start(ctx, config.GetInt("workers"))

		watcher, err := watch.NewWatcher(watch.Config{
			SourcesRoot: config.SourcesDir(),
			ShadowRoot:  config.ShadowDir(),
			SourceDelay: config.GetDuration("source-debounce"),
			ShadowDelay: config.GetDuration("shadow-debounce"),
		}, app.proc, app.queue, log)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		watcher.Start(ctx)

		interval := config.GetDuration("cluster.interval")
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Logf("watching %s (clustering every %v)", config.SourcesDir(), interval)
		for {
			select {
			case <-ticker.C:
				app.queue.Enqueue(queue.Task{
					Name: "cluster sweep",
					Run: func(ctx context.Context) error {
						built, err := app.sweeper.Run(ctx)
						if err != nil {
							return err
						}
						if built > 0 {
							log.Logf("clustering sweep built %d insight(s)", built)
						}
						return nil
					},
				})
			case <-ctx.Done():
				log.Logf("shutting down")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
