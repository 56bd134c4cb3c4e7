// Package verkko implements the command line interface.
package verkko

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	verkkograph "github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/alert"
	"github.com/verkkograph/verkko/pkg/config"
	"github.com/verkkograph/verkko/pkg/logger"
	"github.com/verkkograph/verkko/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "verkko",
		Short: "Verkko: Knowledge Graph Query Engine",
		Long: `Verkko is a graph traversal and analytics engine for knowledge graphs
extracted from documents. It answers neighborhood, path, subgraph, and
community questions over entities and relationships, and serves them
over a REST API.

Complete documentation is available at https://github.com/verkkograph/verkko`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.verkko.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "store backend (memory, badger, postgres, neo4j)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".verkko")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from config, routing error records
// into Parquet when telemetry is enabled.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	handler := logger.NewHandler(os.Stderr, logger.Options{
		Level:   logger.ParseLevel(cfg.Log.Level),
		NoColor: cfg.Log.NoColor,
	})

	if !cfg.Telemetry.Enabled {
		return slog.New(handler), nil
	}

	parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return slog.New(parquetHandler), nil
}

// openEngine loads config and opens the engine against the configured store.
func openEngine(cmd *cobra.Command) (*verkkograph.Engine, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	engine, err := openEngineWithConfig(cmd.Context(), cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	return engine, cfg, log, nil
}

func openEngineWithConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (*verkkograph.Engine, error) {
	engine, err := verkkograph.Open(ctx, cfg.StoreConfig(), verkkograph.Options{
		Logger:  log,
		Breaker: cfg.CircuitBreaker,
		Alerter: alert.New(cfg.Alert),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}
