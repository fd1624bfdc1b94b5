package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pureslurp/InChristAI/pkg/agent"
	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/models"
)

// buildAgent wires the agent with its collaborators. Only the dry-run
// collaborators ship with this binary; a live transport plugs in through
// the pkg/agent interfaces.
func buildAgent(cfg *config.Config, c *components, dryRun bool, mentionsFile string) (*agent.Agent, error) {
	if !dryRun {
		return nil, errors.New("no live transport configured; run with --dry-run")
	}

	var mentions []models.Mention
	if mentionsFile != "" {
		var err error
		mentions, err = agent.LoadMentionsFile(mentionsFile)
		if err != nil {
			return nil, err
		}
		log.Info().Int("mentions", len(mentions)).Str("file", mentionsFile).Msg("loaded canned mentions")
	}

	return agent.New(
		cfg,
		c.dispatcher,
		c.ledger,
		c.sched,
		agent.NewDryRunFetcher(mentions),
		agent.CannedComposer{},
		agent.DryRunResponder{},
	), nil
}

func newRunCmd() *cobra.Command {
	var (
		configPath   string
		dryRun       bool
		mentionsFile string
		tick         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loop with all scheduled tasks",
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

			ag, err := buildAgent(cfg, c, dryRun, mentionsFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Dur("tick", tick).Msg("agent loop started")

			// Tasks are cooperative and sequential; each tick runs every
			// due task to completion before the next is considered.
			ticker := time.NewTicker(tick)
			defer ticker.Stop()

			if err := ag.RunDue(ctx, time.Now().UTC()); err != nil {
				log.Error().Err(err).Msg("task cycle finished with errors")
			}
			for {
				select {
				case <-ctx.Done():
					log.Info().Msg("agent loop stopped")
					return nil
				case <-ticker.C:
					if err := ag.RunDue(ctx, time.Now().UTC()); err != nil {
						log.Error().Err(err).Msg("task cycle finished with errors")
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "simulate posting instead of calling the service")
	cmd.Flags().StringVar(&mentionsFile, "mentions-file", "", "JSON file of canned mentions for dry runs")
	cmd.Flags().DurationVar(&tick, "tick", time.Minute, "how often to re-check task eligibility")
	return cmd
}

func newMentionsCmd() *cobra.Command {
	var (
		configPath   string
		dryRun       bool
		mentionsFile string
	)

	cmd := &cobra.Command{
		Use:   "mentions",
		Short: "Check and respond to mentions once",
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

			ag, err := buildAgent(cfg, c, dryRun, mentionsFile)
			if err != nil {
				return err
			}

			n, err := ag.ProcessMentions(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Handled %d mentions\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "simulate posting instead of calling the service")
	cmd.Flags().StringVar(&mentionsFile, "mentions-file", "", "JSON file of canned mentions for dry runs")
	return cmd
}

func newPostCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post the daily verse once",
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

			ag, err := buildAgent(cfg, c, dryRun, "")
			if err != nil {
				return err
			}

			return ag.PostDaily(cmd.Context(), time.Now().UTC(), force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "inchristai.yaml", "path to config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "simulate posting instead of calling the service")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "post even if already posted within the interval")
	return cmd
}
