package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/credits"
)

func newCreditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and grant AGC credits",
	}
	cmd.AddCommand(newCreditsBalanceCmd(), newCreditsGrantCmd())
	return cmd
}

func newCreditsBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <email>",
		Short: "Show a customer's credit balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := credits.NewServiceFromDB(db).Balance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance=%s earned=%s spent=%s\n",
				a.Email, a.Balance.StringFixed(2), a.LifetimeEarned.StringFixed(2), a.LifetimeSpent.StringFixed(2))
			return nil
		},
	}
}

func newCreditsGrantCmd() *cobra.Command {
	var note, reference string
	cmd := &cobra.Command{
		Use:   "grant <email> <amount>",
		Short: "Credit a customer; --reference makes the grant idempotent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			res, err := credits.NewServiceFromDB(db).Grant(cmd.Context(), credits.GrantInput{
				Email:       args[0],
				Amount:      amount,
				Description: note,
				Reference:   reference,
			})
			if err != nil {
				return err
			}
			if res.Duplicate {
				fmt.Fprintf(cmd.OutOrStdout(), "Grant %s already applied\n", reference)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %s AGC to %s\n", res.Transaction.Amount.StringFixed(2), res.Transaction.ToEmail)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "description stored on the transaction")
	cmd.Flags().StringVar(&reference, "reference", "", "idempotency key")
	return cmd
}
