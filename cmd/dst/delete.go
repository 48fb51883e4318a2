package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/config"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/ui"
)

var (
	deleteYes    bool
	deleteDryRun bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete {doc|summary|insight} <id>",
	Short: "Cascade-delete a record and its derived artifacts",
	Long:  "Shows the full downstream impact (rows and vault files) and asks for confirmation before deleting.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id := args[0], args[1]
		ctx := context.Background()
		app, err := newApp(ctx, logging.NewStderrLogger())
		if err != nil {
			return err
		}
		defer app.Close()

		var preview func(context.Context, string) (*types.DeleteImpact, error)
		var execute func(context.Context, string) (*types.DeleteImpact, error)
		switch kind {
		case "doc", "document":
			preview, execute = app.deleter.PreviewDocument, app.deleter.DeleteDocument
		case "summary":
			preview, execute = app.deleter.PreviewSummary, app.deleter.DeleteSummary
		case "insight":
			preview, execute = app.deleter.PreviewInsight, app.deleter.DeleteInsight
		default:
			return fmt.Errorf("unknown target %q (want doc, summary, or insight)", kind)
		}

		impact, err := preview(ctx, id)
		if err != nil {
			return err
		}
		if config.GetBool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(impact); err != nil {
				return err
			}
		} else {
			fmt.Println(ui.RenderImpact(impact, ui.GetWidth()))
		}
		if deleteDryRun {
			return nil
		}

		if !deleteYes && !ui.ConfirmDelete(fmt.Sprintf("Delete %s %s and everything above?", kind, id), false) {
			fmt.Println("Aborted.")
			return nil
		}

		if _, err := execute(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s %s\n", kind, id)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip confirmation")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "preview only, delete nothing")
	rootCmd.AddCommand(deleteCmd)
}
