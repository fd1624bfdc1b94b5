// Package config loads the agent's YAML configuration with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pureslurp/InChristAI/pkg/models"
)

// Task identifiers for the built-in periodic tasks.
const (
	TaskCheckMentions = "check-mentions"
	TaskPrayerSearch  = "prayer-search"
	TaskDailyPost     = "daily-post"
	TaskLedgerCleanup = "ledger-cleanup"
)

// Config holds all agent configuration.
type Config struct {
	DBPath       string                `yaml:"db_path"`
	Quota        QuotaConfig           `yaml:"quota"`
	Tasks        map[string]TaskConfig `yaml:"tasks"`
	Ledger       LedgerConfig          `yaml:"ledger"`
	BlockedWords []string              `yaml:"blocked_words"`
	BotUserID    string                `yaml:"bot_user_id"`
}

// QuotaConfig controls the monthly budget tracker.
type QuotaConfig struct {
	Ceiling int                            `yaml:"ceiling"`
	Costs   map[models.CallKind]CostConfig `yaml:"costs"`
}

// CostConfig is the cost rule for one call kind.
// Mode is "per_item" (one unit per returned item) or "flat".
type CostConfig struct {
	Mode  string `yaml:"mode"`
	Units int    `yaml:"units,omitempty"`
}

// TaskConfig controls one periodic task.
type TaskConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxResults int           `yaml:"max_results,omitempty"`
	Query      string        `yaml:"query,omitempty"`
}

// LedgerConfig controls interaction ledger retention.
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Default returns a Config with the conservative free-tier schedule:
// mentions every 6 hours, search every 3 days, one post a day, against a
// 100-unit monthly ceiling.
func Default() *Config {
	return &Config{
		DBPath: "inchristai.db",
		Quota: QuotaConfig{
			Ceiling: 100,
			Costs: map[models.CallKind]CostConfig{
				models.KindMentionsList: {Mode: "per_item"},
				models.KindSearchFetch:  {Mode: "per_item"},
				models.KindStatusProbe:  {Mode: "flat", Units: 1},
			},
		},
		Tasks: map[string]TaskConfig{
			TaskCheckMentions: {Interval: 6 * time.Hour, MaxResults: 25},
			TaskPrayerSearch:  {Interval: 72 * time.Hour, MaxResults: 5, Query: "prayer request"},
			TaskDailyPost:     {Interval: 24 * time.Hour},
			TaskLedgerCleanup: {Interval: 24 * time.Hour},
		},
		Ledger: LedgerConfig{
			RetentionDays: 30,
		},
		BlockedWords: []string{"spam", "fake", "scam"},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Quota.Ceiling < 0 {
		return fmt.Errorf("quota.ceiling must be >= 0, got %d", c.Quota.Ceiling)
	}
	for kind, cost := range c.Quota.Costs {
		switch cost.Mode {
		case "per_item", "flat":
		default:
			return fmt.Errorf("quota.costs[%s].mode must be per_item or flat, got %q", kind, cost.Mode)
		}
	}
	for id, task := range c.Tasks {
		if task.Interval < 0 {
			return fmt.Errorf("tasks[%s].interval must be >= 0, got %v", id, task.Interval)
		}
	}
	return nil
}

// Task returns the configuration for taskID, falling back to the default
// for that task when the config file omits it.
func (c *Config) Task(taskID string) TaskConfig {
	if t, ok := c.Tasks[taskID]; ok {
		return t
	}
	return Default().Tasks[taskID]
}
