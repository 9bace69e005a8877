package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var batchCmd = &cobra.Command{
	Use:   "batch [claim-id]...",
	Short: "Screen multiple claims concurrently",
	Long:  "Runs one screening pipeline per worker over the given claims, or over every stored claim with --all. Claims share no mutable state, so failures are isolated per claim.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claimIDs := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			claimIDs = claimIDs[:0]
			const page = 200
			for offset := 0; ; offset += page {
				claims, err := env.Store.ListClaims(ctx, page, offset)
				if err != nil {
					return err
				}
				for _, c := range claims {
					claimIDs = append(claimIDs, c.ID)
				}
				if len(claims) < page {
					break
				}
			}
		}
		if len(claimIDs) == 0 {
			return eris.New("batch: no claims given (pass IDs or --all)")
		}

		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = cfg.Batch.MaxConcurrentClaims
		}

		var failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, claimID := range claimIDs {
			g.Go(func() error {
				run, err := env.Orchestrator.Screen(gctx, claimID)
				if err != nil {
					failed.Add(1)
					zap.L().Error("batch: claim failed",
						zap.String("claim", claimID),
						zap.Error(err),
					)
					fmt.Fprintf(os.Stderr, "FAILED  %s: %v\n", claimID, err)
					return nil
				}
				fmt.Printf("%s  run=%s gate=%s payout=%.2f\n",
					claimID, run.ID, run.Result.Gate.Status, run.Result.Payout.FinalPayout)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if n := failed.Load(); n > 0 {
			return eris.Errorf("batch: %d of %d claims failed", n, len(claimIDs))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().Bool("all", false, "screen every stored claim")
	batchCmd.Flags().Int("workers", 0, "concurrent claim pipelines (default from config)")
	rootCmd.AddCommand(batchCmd)
}
