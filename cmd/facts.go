package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/avanta-group/claims-cli/internal/model"
)

var factsCmd = &cobra.Command{
	Use:   "facts <claim-id>",
	Short: "Show the reconciled facts for a claim",
	Long:  "Runs fact aggregation over the claim's document runs and prints the reconciliation artifact with its gate, without screening.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claimFacts, gate, err := env.Aggregator.Aggregate(ctx, args[0])
		if err != nil {
			return err
		}

		out := struct {
			Facts *model.ClaimFacts        `json:"facts"`
			Gate  model.ReconciliationGate `json:"gate"`
		}{claimFacts, gate}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(factsCmd)
}
