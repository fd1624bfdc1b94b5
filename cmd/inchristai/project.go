package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pureslurp/InChristAI/pkg/agent"
	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
)

func newProjectCmd() *cobra.Command {
	var (
		configPath   string
		kind         string
		results      int
		runsPerMonth int
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Estimate monthly quota consumption for a schedule",
		Long: `Estimate how many billable units a schedule would consume in one
period: runs-per-month invocations of a call kind, each returning the
given number of results. Pure estimation for planning; nothing is
charged or blocked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			model := quota.NewCostModel(agent.CostRules(cfg))
			estimate := model.Project(models.CallKind(kind), results, runsPerMonth)

			fmt.Printf("%d runs x %s (%d results) = %d units/month against a ceiling of %d\n",
				runsPerMonth, kind, results, estimate, cfg.Quota.Ceiling)
			if estimate > cfg.Quota.Ceiling {
				fmt.Printf("WARNING: this schedule exceeds the monthly ceiling by %d units\n",
					estimate-cfg.Quota.Ceiling)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	cmd.Flags().StringVar(&kind, "kind", string(models.KindMentionsList), "call kind to estimate")
	cmd.Flags().IntVar(&results, "results", 25, "expected results per invocation")
	cmd.Flags().IntVar(&runsPerMonth, "runs-per-month", 120, "invocations per month")
	return cmd
}
