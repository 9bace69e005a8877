package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/avanta-group/claims-cli/internal/model"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage claims",
}

var claimCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new claim",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		id, _ := cmd.Flags().GetString("id")
		policy, _ := cmd.Flags().GetString("policy")
		vin, _ := cmd.Flags().GetString("vin")
		reported, _ := cmd.Flags().GetString("reported")

		if policy == "" {
			return eris.New("claim create: --policy is required")
		}
		if id == "" {
			id = uuid.New().String()
		}

		reportedAt := time.Now().UTC()
		if reported != "" {
			t, err := time.Parse("2006-01-02", reported)
			if err != nil {
				return eris.Wrapf(err, "claim create: parse --reported %q", reported)
			}
			reportedAt = t
		}

		claim := model.Claim{
			ID:           id,
			PolicyNumber: policy,
			VehicleVIN:   vin,
			ReportedAt:   reportedAt,
			CreatedAt:    time.Now().UTC(),
		}
		if err := st.CreateClaim(ctx, claim); err != nil {
			return err
		}

		fmt.Println(claim.ID)
		return nil
	},
}

var claimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claims",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		claims, err := st.ListClaims(ctx, limit, 0)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			fmt.Fprintln(os.Stderr, "No claims found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPOLICY\tVIN\tREPORTED")
		for _, c := range claims {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.ID, c.PolicyNumber, c.VehicleVIN, c.ReportedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	claimCreateCmd.Flags().String("id", "", "claim ID (generated when omitted)")
	claimCreateCmd.Flags().String("policy", "", "policy number")
	claimCreateCmd.Flags().String("vin", "", "vehicle VIN")
	claimCreateCmd.Flags().String("reported", "", "report date (YYYY-MM-DD, default today)")
	claimListCmd.Flags().Int("limit", 50, "maximum claims to list")

	claimCmd.AddCommand(claimCreateCmd, claimListCmd)
	rootCmd.AddCommand(claimCmd)
}
