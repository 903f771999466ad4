package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bfb/ingestion/internal/app"
	"bfb/ingestion/internal/config"
	"bfb/ingestion/internal/pipeline"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loadConfig is swapped in tests
var loadConfig = config.Load

func getRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bfbsync",
		Short:         "Runs BFB ingestion tasks",
		Long:          "Fetches Sleeper stats and rosters, replaces the stored snapshots and optionally triggers the dynasty value scraper.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		getRunCmd(),
		getStatsCmd(),
		getPlayersCmd(),
		getMigrateCmd(),
	)
	return cmd
}

func getRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the full pipeline for a season",
		RunE: func(cmd *cobra.Command, args []string) error {
			noSecondary, _ := cmd.Flags().GetBool("no-secondary")
			cfg, year, err := loadWithYear(cmd)
			if err != nil {
				return err
			}
			if noSecondary {
				cfg.SecondaryRankingEnabled = false
			}

			return withApp(cmd, cfg, func(ctx context.Context, a *app.App) error {
				result, err := a.Pipeline.Run(ctx, year)
				return report(cmd, result, err)
			})
		},
	}
	addYearFlag(cmd)
	cmd.Flags().Bool("no-secondary", false, "skip the secondary ranking trigger")
	return cmd
}

func getStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Replaces a season's player stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, year, err := loadWithYear(cmd)
			if err != nil {
				return err
			}

			return withApp(cmd, cfg, func(ctx context.Context, a *app.App) error {
				result, err := a.Pipeline.RunStats(ctx, year)
				return report(cmd, result, err)
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func getPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "Replaces the NFL roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return withApp(cmd, cfg, func(ctx context.Context, a *app.App) error {
				result, err := a.Pipeline.RunPlayers(ctx)
				return report(cmd, result, err)
			})
		},
	}
}

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return withApp(cmd, cfg, func(ctx context.Context, a *app.App) error {
				if err := a.DB.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to migrate schema: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database migration complete")
				return nil
			})
		},
	}
}

func addYearFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("year", "y", "", "season year, e.g. 2024 (defaults to DEFAULT_SEASON)")
}

// loadWithYear loads config and resolves --year, falling back to DEFAULT_SEASON.
func loadWithYear(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}

	year, _ := cmd.Flags().GetString("year")
	if year == "" {
		year = cfg.DefaultSeason
	}
	return cfg, year, nil
}

// withApp connects and runs fn under a signal-aware context.
func withApp(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, a *app.App) error) error {
	app.SetupLogger(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func report(cmd *cobra.Command, result *pipeline.Result, err error) error {
	if result != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "state=%s stats_rows=%d player_rows=%d duration=%s\n",
			result.State, result.StatsRows, result.PlayerRows, result.Duration)
	}
	if err != nil {
		log.Error().Err(err).Msg("Task failed")
		return err
	}
	return nil
}
