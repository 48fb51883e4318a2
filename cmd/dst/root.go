package main

import (
	"github.com/spf13/cobra"

	"github.com/untoldecay/Distillery/internal/config"
)

var (
	vaultFlag  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "dst",
	Short:         "Tiered note distillation for a markdown vault",
	Long:          "dst watches a vault of markdown notes, distills each note into a reviewed summary, and clusters related summaries into higher-level insights.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if vaultFlag != "" {
			config.SetVaultRoot(vaultFlag)
		}
		if jsonOutput {
			config.Set("json", true)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "vault root (default: discovered via .distillery/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable output where supported")
}
