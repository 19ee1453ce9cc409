package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/config"
	"github.com/Harshitk-cp/dreamlog/internal/service"
	"github.com/Harshitk-cp/dreamlog/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run pattern detection for one user",
	Long:  `Run pattern detection synchronously for a user and print the run summary as JSON.`,
	RunE:  runDetect,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a user's journal statistics",
	Long:  `Compute a fresh statistics snapshot for a user, bypassing the cache, and print it as JSON.`,
	RunE:  runStats,
}

var (
	userFlag string
	timeout  time.Duration
)

func init() {
	for _, c := range []*cobra.Command{detectCmd, statsCmd} {
		c.Flags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")
		c.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
		_ = c.MarkFlagRequired("user")
	}
}

func runDetect(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(userFlag)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := openPool(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := service.NewPatternService(store.NewDreamStore(pool), store.NewPatternStore(pool), config.PatternPolicy(), logger)
	svc.SetLocation(config.PatternLocation())

	result, err := svc.UpdatePatterns(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runStats(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(userFlag)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := openPool(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := service.NewStatsService(store.NewDreamStore(pool), nil, logger)
	svc.SetLocation(config.PatternLocation())

	snapshot, err := svc.ComputeStats(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(cmd, snapshot)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
