package scheduler

import (
	"context"
	"fmt"
	"time"

	"bfb/ingestion/internal/config"
	"bfb/ingestion/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// stopTimeout bounds how long Stop waits for a running sync to finish
const stopTimeout = 30 * time.Second

// PipelineRunner runs a full season sync
type PipelineRunner interface {
	Run(ctx context.Context, season string) (*pipeline.Result, error)
}

// Scheduler runs the season sync on a cron schedule.
// Overlapping firings are skipped while a sync is still running.
type Scheduler struct {
	cfg    *config.Config
	runner PipelineRunner
	cron   *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, runner PipelineRunner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start registers the nightly sync and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.NightlySyncCron, func() {
		log.Info().Str("season", s.cfg.DefaultSeason).Msg("Running nightly sync...")
		if err := s.RunNow(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly sync failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly sync: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.NightlySyncCron).
		Str("season", s.cfg.DefaultSeason).
		Msg("Nightly sync scheduled")

	return nil
}

// RunNow runs one sync for the default season
func (s *Scheduler) RunNow(ctx context.Context) error {
	result, err := s.runner.Run(ctx, s.cfg.DefaultSeason)
	if err != nil {
		return err
	}

	log.Info().
		Int("season", result.Season).
		Int64("stats_rows", result.StatsRows).
		Int64("player_rows", result.PlayerRows).
		Dur("duration", result.Duration).
		Msg("Scheduled sync complete")
	return nil
}

// Stop stops the cron loop and waits for a running sync
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(stopTimeout):
		log.Warn().Dur("timeout", stopTimeout).Msg("Running sync did not finish before shutdown")
	}

	log.Info().Msg("Scheduler stopped")
}
