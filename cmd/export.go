package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/avanta-group/claims-cli/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id> <out.xlsx>",
	Short: "Export a screening run to XLSX",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetScreeningRun(ctx, args[0])
		if err != nil {
			return err
		}
		if run.Result == nil {
			return eris.Errorf("export: run %s has no result (status %s)", run.ID, run.Status)
		}

		if err := report.WriteXLSX(run.Result, args[1]); err != nil {
			return err
		}
		fmt.Printf("exported %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
