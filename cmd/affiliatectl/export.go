package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/billing"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/export"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/s3archive"
)

func newExportCmd() *cobra.Command {
	var affiliateID, out string
	cmd := &cobra.Command{
		Use:   "export <conversions|payouts>",
		Short: "Write an XLSX export of the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := export.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown export kind %q", args[0])
			}

			var archive export.Archiver
			client, err := s3archive.NewFromEnv(cmd.Context())
			if err != nil {
				log.Warnf("[Export] S3 archive disabled: %v", err)
			} else if client != nil {
				archive = client
			}

			res, err := export.NewService(db, archive).Export(cmd.Context(), kind, affiliateID)
			if err != nil {
				return err
			}
			if out == "" {
				out = res.Filename
			}
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			if res.ObjectKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Archived as %s\n", res.ObjectKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&affiliateID, "affiliate", "", "limit the export to one affiliate")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: generated name)")
	return cmd
}

func newWebhooksCmd() *cobra.Command {
	var provider string
	var limit int
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "List recent webhook deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := billing.NewServiceFromDB(db).RecentWebhookEvents(cmd.Context(), provider, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tTYPE\tEVENT\tPROCESSED\tERROR")
			for _, e := range events {
				processed := "-"
				if e.ProcessedAt != nil {
					processed = e.ProcessedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Provider, e.EventType, e.ProviderEventID, processed, e.ProcessingError)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "lemonsqueezy or polar")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of deliveries")
	return cmd
}
