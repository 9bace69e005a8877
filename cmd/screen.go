package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avanta-group/claims-cli/internal/report"
)

var screenCmd = &cobra.Command{
	Use:   "screen <claim-id>",
	Short: "Run the screening pipeline for a claim",
	Long:  "Reconciles facts, classifies line items through the coverage cascade, computes the payout breakdown, and stores the result as a new screening run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Orchestrator.Screen(ctx, args[0])
		if err != nil {
			return err
		}

		if export, _ := cmd.Flags().GetString("export"); export != "" {
			if err := report.WriteXLSX(run.Result, export); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "exported %s\n", export)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Result)
	},
}

func init() {
	screenCmd.Flags().String("export", "", "also write the result to this XLSX file")
	rootCmd.AddCommand(screenCmd)
}
