package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/config"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/storage"
)

var buildCmd = &cobra.Command{
	Use:   "build <path|document-id>",
	Short: "Build the summary for one source note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := newApp(ctx, logging.NewStderrLogger())
		if err != nil {
			return err
		}
		defer app.Close()

		target := args[0]
		if abs, ok := resolveSourcePath(target); ok {
			if err := app.proc.HandleSource(ctx, abs); err != nil {
				return err
			}
			fmt.Printf("Built %s\n", target)
			return nil
		}

		// Not a file: treat as a document id.
		if _, err := app.store.DocumentByID(ctx, target); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no such file or document id: %s", target)
			}
			return err
		}
		if err := app.l1.Build(ctx, target, ""); err != nil {
			return err
		}
		fmt.Printf("Built document %s\n", target)
		return nil
	},
}

// resolveSourcePath maps the argument to an absolute path inside the sources
// tree, accepting absolute paths, CWD-relative paths, and sources-relative
// paths.
func resolveSourcePath(arg string) (string, bool) {
	sources := config.SourcesDir()
	candidates := []string{arg, filepath.Join(sources, arg)}
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		if rel, err := filepath.Rel(sources, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return abs, true
		}
	}
	return "", false
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
