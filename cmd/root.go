// Package cmd provides CLI commands for the civicwatch tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/civicwatch/civicwatch/config"
	"github.com/civicwatch/civicwatch/pkg/buildinfo"
	"github.com/civicwatch/civicwatch/pkg/db"
	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Global flags shared by every subcommand.
var (
	cfgFile      string
	outputFormat string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "civicwatch",
	Short: "CivicWatch - municipal meeting ingest and entity graph",
	Long: `civicwatch ingests city council meeting data from a CivicWeb portal,
parses agenda HTML into structured items, classifies topics, extracts
entities (people, addresses, ordinances, resolutions, organizations,
dates), and maintains a typed connection graph linking them to meetings
and documents.

Commands support --output json for structured results. Database settings
come from DB_* environment variables; everything else from a YAML config
file plus CIVICWATCH_* overrides.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       buildinfo.String(),
}

// Execute runs the root command with signal-aware context handling.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.civicwatch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads the config file (or defaults) and applies flag
// overrides.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + "/.civicwatch.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:       logging.Level(cfg.Logging.Level),
		ServiceName: "civicwatch",
		JSONFormat:  cfg.Logging.JSON,
	})
}

// connectPool opens the database pool from DB_* env settings
// and registers its stats collector. Callers own closing the pool.
func connectPool(ctx context.Context) (*pgxpool.Pool, error) {
	dbCfg := db.ConfigFromEnv()
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pool, err := db.ConnectWithRetry(connectCtx, dbCfg, 3, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	prometheus.MustRegister(db.NewPoolStatsCollector(pool, "civicwatch"))
	return pool, nil
}

// printOutput renders v according to the --output flag. Text format
// falls back to the provided renderer.
func printOutput(v interface{}, text func() string) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	default:
		fmt.Println(text())
		return nil
	}
}
