package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Credentials and overrides come from the environment; a local .env
	// is honored when present.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	root := &cobra.Command{
		Use:     "inchristai",
		Short:   "Quota-aware social posting agent",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newMentionsCmd(),
		newPostCmd(),
		newStatusCmd(),
		newLedgerCmd(),
		newProjectCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
