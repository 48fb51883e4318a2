package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/logging"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run one clustering sweep now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := newApp(ctx, logging.NewStderrLogger())
		if err != nil {
			return err
		}
		defer app.Close()

		built, err := app.sweeper.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Built %d insight(s)\n", built)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
}
