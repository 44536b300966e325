// Package config loads the fleet configuration: priority weights, budget
// limits, and lease timing. Values come from defaults, then an optional
// ~/.fleet/config.yaml, then FLEET_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete fleet configuration, immutable per run.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Weights WeightsConfig `mapstructure:"weights"`
	Budget  BudgetConfig  `mapstructure:"budget"`
	Lease   LeaseConfig   `mapstructure:"lease"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig locates the shared store.
type DBConfig struct {
	// Path is the SQLite database file. Empty means ~/.fleet/fleet.db.
	Path string `mapstructure:"path"`
}

// WeightsConfig holds the priority score multipliers.
type WeightsConfig struct {
	Health      float64 `mapstructure:"health"`
	Impact      float64 `mapstructure:"impact"`
	Solvability float64 `mapstructure:"solvability"`
	Urgency     float64 `mapstructure:"urgency"`
}

// BudgetConfig holds the admission ceilings.
type BudgetConfig struct {
	MaxTokensPerRepo     int64 `mapstructure:"max_tokens_per_repo"`
	MaxTimePerRepoSecs   int   `mapstructure:"max_time_per_repo_seconds"`
	MaxIssuesPerLanguage int64 `mapstructure:"max_issues_per_language"`
	MaxIssuesPerRepo     int64 `mapstructure:"max_issues_per_repo"`
	WeeklyTokenBudget    int64 `mapstructure:"weekly_token_budget"`
}

// LeaseConfig holds the heartbeat timing.
type LeaseConfig struct {
	// HeartbeatIntervalSecs is how often a lease holder renews.
	HeartbeatIntervalSecs int `mapstructure:"heartbeat_interval_seconds"`
	// TimeoutSecs is how long without a heartbeat before a lease is stale.
	TimeoutSecs int `mapstructure:"timeout_seconds"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// HeartbeatInterval returns the renewal interval as a duration.
func (c LeaseConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSecs) * time.Second
}

// Timeout returns the staleness timeout as a duration.
func (c LeaseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "")

	v.SetDefault("weights.health", 1.0)
	v.SetDefault("weights.impact", 2.0)
	v.SetDefault("weights.solvability", 1.5)
	v.SetDefault("weights.urgency", 0.5)

	v.SetDefault("budget.max_tokens_per_repo", 100_000)
	v.SetDefault("budget.max_time_per_repo_seconds", 3600)
	v.SetDefault("budget.max_issues_per_language", 50)
	v.SetDefault("budget.max_issues_per_repo", 5)
	v.SetDefault("budget.weekly_token_budget", 5_000_000)

	v.SetDefault("lease.heartbeat_interval_seconds", 60)
	v.SetDefault("lease.timeout_seconds", 1800)

	v.SetDefault("logging.debug", false)
}

// Load reads the configuration. A missing config file is fine; defaults and
// environment variables still apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".fleet"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(cfg)
	return cfg
}
