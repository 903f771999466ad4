// Package pipeline sequences the season sync: stats replace, roster replace,
// then the optional secondary ranking trigger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bfb/ingestion/internal/metrics"
	"bfb/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrSecondaryRankingFailed is returned when the secondary ranking script
// exits non-zero or cannot be run. Earlier replaces stay committed.
var ErrSecondaryRankingFailed = errors.New("secondary ranking failed")

// State is a pipeline state
type State int

const (
	Idle State = iota
	FetchingStats
	ReplacingStats
	FetchingRoster
	ReplacingRoster
	TriggeringSecondary
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:                "idle",
	FetchingStats:       "fetching_stats",
	ReplacingStats:      "replacing_stats",
	FetchingRoster:      "fetching_roster",
	ReplacingRoster:     "replacing_roster",
	TriggeringSecondary: "triggering_secondary",
	Done:                "done",
	Failed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StepError names the step a run failed in
type StepError struct {
	Step State
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StatsFetcher fetches a season's stats feed
type StatsFetcher interface {
	FetchStats(ctx context.Context, season string) (map[string]*models.StatsInput, error)
}

// RosterFetcher fetches the full roster feed
type RosterFetcher interface {
	FetchPlayers(ctx context.Context) (map[string]*models.PlayerInput, error)
}

// StatsStore replaces a season's stats snapshot
type StatsStore interface {
	ReplaceSeason(ctx context.Context, year int, stats []*models.PlayerStats) (int64, error)
}

// PlayerStore replaces the roster snapshot
type PlayerStore interface {
	ReplaceAll(ctx context.Context, players []*models.Player) (int64, error)
}

// SecondaryRanker runs the external ranking script and returns its exit code
type SecondaryRanker interface {
	Run(ctx context.Context) (int, error)
}

// CacheInvalidator drops cached rankings after a replace
type CacheInvalidator interface {
	Invalidate(ctx context.Context, year int) error
	InvalidateAll(ctx context.Context) error
}

// Deps are the collaborators an Orchestrator drives. Secondary and Cache may be nil.
type Deps struct {
	Stats      StatsFetcher
	Roster     RosterFetcher
	StatsStore StatsStore
	Players    PlayerStore
	Secondary  SecondaryRanker
	Cache      CacheInvalidator
}

// Options tune a run
type Options struct {
	TriggerSecondary bool
}

// Result reports what a run did. It is returned even when the run fails.
type Result struct {
	Season            int
	State             State
	History           []State
	StatsRows         int64
	PlayerRows        int64
	SecondaryExitCode *int
	Duration          time.Duration
}

// Orchestrator runs pipelines. Runs for the same season are serialized;
// different seasons may run concurrently.
type Orchestrator struct {
	deps Deps
	opts Options

	mu         sync.Mutex
	seasons    map[int]chan struct{}
	rosterLock chan struct{}
}

// New creates an Orchestrator
func New(deps Deps, opts Options) *Orchestrator {
	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		seasons:    make(map[int]chan struct{}),
		rosterLock: make(chan struct{}, 1),
	}
}

// Run executes the full pipeline for season.
func (o *Orchestrator) Run(ctx context.Context, season string) (*Result, error) {
	year, err := models.ParseSeason(season)
	if err != nil {
		return nil, err
	}

	unlock, err := o.lockSeason(ctx, year)
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := o.newRun(year)
	log.Info().Int("season", year).Bool("secondary", o.opts.TriggerSecondary).Msg("Starting pipeline run")

	if err := run.syncStats(ctx, o); err != nil {
		return run.fail(err)
	}
	if err := run.syncRoster(ctx, o); err != nil {
		return run.fail(err)
	}
	if o.opts.TriggerSecondary {
		if err := run.triggerSecondary(ctx, o); err != nil {
			return run.fail(err)
		}
	}

	return run.done(), nil
}

// RunStats fetches and replaces only the season's stats.
func (o *Orchestrator) RunStats(ctx context.Context, season string) (*Result, error) {
	year, err := models.ParseSeason(season)
	if err != nil {
		return nil, err
	}

	unlock, err := o.lockSeason(ctx, year)
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := o.newRun(year)
	if err := run.syncStats(ctx, o); err != nil {
		return run.fail(err)
	}
	return run.done(), nil
}

// RunPlayers fetches and replaces only the roster.
func (o *Orchestrator) RunPlayers(ctx context.Context) (*Result, error) {
	run := o.newRun(0)
	if err := run.syncRoster(ctx, o); err != nil {
		return run.fail(err)
	}
	return run.done(), nil
}

// lockSeason blocks until no other run holds year, or ctx ends.
func (o *Orchestrator) lockSeason(ctx context.Context, year int) (func(), error) {
	o.mu.Lock()
	lock, ok := o.seasons[year]
	if !ok {
		lock = make(chan struct{}, 1)
		o.seasons[year] = lock
	}
	o.mu.Unlock()

	return acquire(ctx, lock)
}

func acquire(ctx context.Context, lock chan struct{}) (func(), error) {
	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for pipeline lock: %w", ctx.Err())
	}
}

type run struct {
	result    *Result
	start     time.Time
	stepStart time.Time
}

func (o *Orchestrator) newRun(year int) *run {
	now := time.Now()
	return &run{
		result:    &Result{Season: year, State: Idle, History: []State{Idle}},
		start:     now,
		stepStart: now,
	}
}

// enter moves to the next state and closes out metrics for the previous one.
func (r *run) enter(next State) {
	prev := r.result.State
	if prev != Idle {
		metrics.RecordSync(prev.String(), "success", time.Since(r.stepStart).Seconds())
	}

	log.Debug().
		Int("season", r.result.Season).
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("Pipeline state transition")

	r.result.State = next
	r.result.History = append(r.result.History, next)
	r.stepStart = time.Now()
}

func (r *run) fail(err error) (*Result, error) {
	step := r.result.State
	metrics.RecordSync(step.String(), "failure", time.Since(r.stepStart).Seconds())
	metrics.RecordError("pipeline", step.String())

	r.result.State = Failed
	r.result.History = append(r.result.History, Failed)
	r.result.Duration = time.Since(r.start)

	log.Error().
		Err(err).
		Int("season", r.result.Season).
		Str("step", step.String()).
		Dur("duration", r.result.Duration).
		Msg("Pipeline run failed")

	return r.result, &StepError{Step: step, Err: err}
}

func (r *run) done() *Result {
	r.enter(Done)
	r.result.Duration = time.Since(r.start)
	metrics.RecordPipelineSuccess()

	log.Info().
		Int("season", r.result.Season).
		Int64("stats_rows", r.result.StatsRows).
		Int64("player_rows", r.result.PlayerRows).
		Dur("duration", r.result.Duration).
		Msg("Pipeline run complete")

	return r.result
}

func (r *run) syncStats(ctx context.Context, o *Orchestrator) error {
	year := r.result.Season

	r.enter(FetchingStats)
	feed, err := o.deps.Stats.FetchStats(ctx, fmt.Sprint(year))
	if err != nil {
		return err
	}

	r.enter(ReplacingStats)
	stats := make([]*models.PlayerStats, 0, len(feed))
	for _, id := range sortedKeys(feed) {
		if in := feed[id]; in != nil {
			stats = append(stats, in.ToPlayerStats(id, year))
		}
	}

	count, err := o.deps.StatsStore.ReplaceSeason(ctx, year, stats)
	if err != nil {
		return err
	}
	r.result.StatsRows = count

	if o.deps.Cache != nil {
		if err := o.deps.Cache.Invalidate(ctx, year); err != nil {
			log.Warn().Err(err).Int("season", year).Msg("Failed to invalidate ranking cache")
		}
	}
	return nil
}

func (r *run) syncRoster(ctx context.Context, o *Orchestrator) error {
	r.enter(FetchingRoster)
	unlock, err := acquire(ctx, o.rosterLock)
	if err != nil {
		return err
	}
	defer unlock()

	feed, err := o.deps.Roster.FetchPlayers(ctx)
	if err != nil {
		return err
	}

	r.enter(ReplacingRoster)
	players := make([]*models.Player, 0, len(feed))
	for _, id := range sortedKeys(feed) {
		if in := feed[id]; in != nil {
			players = append(players, in.ToPlayer(id))
		}
	}

	count, err := o.deps.Players.ReplaceAll(ctx, players)
	if err != nil {
		return err
	}
	r.result.PlayerRows = count

	if o.deps.Cache != nil {
		if err := o.deps.Cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate ranking cache")
		}
	}
	return nil
}

func (r *run) triggerSecondary(ctx context.Context, o *Orchestrator) error {
	r.enter(TriggeringSecondary)

	if o.deps.Secondary == nil {
		return fmt.Errorf("%w: no runner configured", ErrSecondaryRankingFailed)
	}

	code, err := o.deps.Secondary.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecondaryRankingFailed, err)
	}
	r.result.SecondaryExitCode = &code
	if code != 0 {
		return fmt.Errorf("%w: exit code %d", ErrSecondaryRankingFailed, code)
	}

	if o.deps.Cache != nil {
		if err := o.deps.Cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate ranking cache")
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
