package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/config"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state per tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := newApp(ctx, logging.Nop())
		if err != nil {
			return err
		}
		defer app.Close()

		stats, err := app.store.Stats(ctx)
		if err != nil {
			return err
		}
		if config.GetBool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Println(ui.RenderStats(stats, ui.GetWidth()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
