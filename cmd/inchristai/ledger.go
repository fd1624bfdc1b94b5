package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pureslurp/InChristAI/pkg/config"
)

func newLedgerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and prune the interaction ledger",
	}

	var limit int
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent ledger writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			c, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			recs, err := c.ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("Ledger is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTERACTION\tTYPE\tAUTHOR\tFIRST SEEN\tHANDLED\tRESPONSE")
			for _, r := range recs {
				ref := r.ResponseRef
				if ref == "" {
					ref = "-"
				}
				author := r.AuthorID
				if author == "" {
					author = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
					r.InteractionID, r.Type, author, r.FirstSeen.Format("2006-01-02T15:04:05"), r.Handled, ref)
			}
			return w.Flush()
		},
	}
	recentCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")

	var days int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete ledger records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			c, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if days <= 0 {
				days = cfg.Ledger.RetentionDays
			}
			deleted, err := c.ledger.Cleanup(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d records older than %d days\n", deleted, days)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&days, "days", 0, "retention window in days (default from config)")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	cmd.AddCommand(recentCmd, cleanupCmd)
	return cmd
}
