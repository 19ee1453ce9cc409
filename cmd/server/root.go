package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Harshitk-cp/dreamlog/internal/buildconfig"
	"github.com/Harshitk-cp/dreamlog/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "dreamlog",
	Short: "Dream journal pattern and statistics service",
	Long: `dreamlog serves the dream journal API, detects recurring patterns in a
user's analyzed dreams and aggregates journal statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildconfig.String())
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, detectCmd, statsCmd, versionCmd)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(config.LogLevel()); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	return cfg.Build()
}

func openPool(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database")
	return pool, nil
}
