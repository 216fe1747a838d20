package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
)

func newRecomputeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "recompute [affiliate-id]",
		Short: "Rebuild balances and click totals from the ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := affiliate.NewServiceFromDB(db)

			if all {
				n, err := svc.RecomputeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d affiliates\n", n)
				return nil
			}
			if len(args) == 0 {
				return errors.New("affiliate id or --all is required")
			}

			clicks, err := svc.ReconcileClicks(ctx, args[0])
			if err != nil {
				return err
			}
			totals, err := svc.Recompute(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clicks=%d conversions=%d earnings=%s pending=%s lifetime=%s badge=%s\n",
				clicks, totals.TotalConversions, totals.TotalEarnings.StringFixed(2),
				totals.PendingPayout.StringFixed(2), totals.LifetimeEarnings.StringFixed(2), totals.Badge)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "recompute every affiliate")
	return cmd
}

func newSettleCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "settle <payout-id> <processing|paid|rejected>",
		Short: "Move a payout request to its next status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := affiliate.NewServiceFromDB(db).SettlePayout(cmd.Context(), args[0], args[1], note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Payout %s is %s ($%s)\n", p.ID, p.Status, p.Amount.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note stored on the payout")
	return cmd
}
