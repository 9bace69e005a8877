package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/avanta-group/claims-cli/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <claim-id> <artifact.json>...",
	Short: "Record extraction artifacts for a claim",
	Long:  "Validates each per-document extraction artifact against the fact schema and records it as a document run. Re-ingesting a document appends a new run; aggregation always picks the latest complete one.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claimID := args[0]
		var failed int
		for _, path := range args[1:] {
			artifact, err := ingest.LoadArtifact(path)
			if err != nil {
				return err
			}
			run, err := env.Ingestor.Ingest(ctx, claimID, artifact)
			if err != nil {
				failed++
				fmt.Printf("REJECTED  %s: %v\n", path, err)
				continue
			}
			fmt.Printf("recorded  %s -> run %s\n", path, run.ID)
		}

		if failed > 0 {
			return eris.Errorf("ingest: %d of %d artifacts rejected", failed, len(args)-1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
