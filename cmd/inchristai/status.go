package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/status"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget, schedule, and ledger state",
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

			reporter := status.New(c.tracker, c.sched, c.ledger, cfg)
			report, err := reporter.Report(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("Period %s: %d/%d units used, %d remaining\n",
				report.PeriodID, report.UnitsConsumed, report.Ceiling, report.Remaining)
			if report.LedgerDegraded {
				fmt.Println("WARNING: ledger started empty; earlier interactions may be reprocessed")
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tINTERVAL\tLAST RUN\tDUE")
			for _, t := range report.Tasks {
				last := "never"
				if t.LastRun != nil {
					last = t.LastRun.Format("2006-01-02T15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", t.TaskID, t.Interval, last, t.Due)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(report.RecentWrites) == 0 {
				return nil
			}
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTERACTION\tTYPE\tFIRST SEEN\tHANDLED\tRESPONSE")
			for _, r := range report.RecentWrites {
				ref := r.ResponseRef
				if ref == "" {
					ref = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
					r.InteractionID, r.Type, r.FirstSeen.Format("2006-01-02T15:04:05"), r.Handled, ref)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	return cmd
}
