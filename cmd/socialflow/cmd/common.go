package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/mlorenz/socialflow/internal/config"
	"github.com/mlorenz/socialflow/internal/executor"
	"github.com/mlorenz/socialflow/internal/logging"
	"github.com/mlorenz/socialflow/internal/social"
	"github.com/mlorenz/socialflow/internal/store"
	"github.com/mlorenz/socialflow/internal/usage"
)

// loadConfig loads the effective configuration, honoring the --config flag
// and any viper bindings from CLI flags.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	return loader.Load()
}

// newLogger builds the process logger from the effective log settings.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	format := cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: os.Stdout,
	})
}

// openStore opens the SQLite store at the configured path.
func openStore(cfg *config.Config) (*store.SQLite, error) {
	st, err := store.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	return st, nil
}

// buildExecutor assembles the step executor with every module whose
// credentials are configured. Missing credentials just leave the
// corresponding modules unregistered.
func buildExecutor(cfg *config.Config, logger *logging.Logger, ledger *usage.Ledger) (*executor.Executor, error) {
	exec := executor.New(
		executor.WithLogger(logger.Logger),
		executor.WithUsageRecorder(ledger),
	)

	if cfg.Twitter.BearerToken != "" {
		client, err := social.NewTwitterClient(cfg.Twitter.BearerToken)
		if err != nil {
			return nil, fmt.Errorf("configuring twitter client: %w", err)
		}
		exec.RegisterTwitterSteps(client)
	}

	if cfg.RapidAPI.Key != "" {
		client, err := social.NewRapidAPIClient(cfg.RapidAPI.Key)
		if err != nil {
			return nil, fmt.Errorf("configuring rapidapi client: %w", err)
		}
		exec.RegisterRapidAPISteps(client)
	}

	return exec, nil
}
