// Package ranking serves scored, filtered player rankings for a season.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bfb/ingestion/internal/cache"
	"bfb/ingestion/internal/models"
	"bfb/ingestion/internal/scoring"

	"github.com/rs/zerolog/log"
)

// Source reads a season's percentile-annotated stat lines
type Source interface {
	ListAnnotated(ctx context.Context, year int) ([]*models.AnnotatedPlayer, error)
}

// Cache stores a season's full scored list. Nil disables caching.
// SetRankings must refuse the write with cache.ErrStaleGeneration when the
// season was invalidated after Generation was read.
type Cache interface {
	Generation(ctx context.Context, year int) (string, error)
	GetRankings(ctx context.Context, year int) ([]*models.RankedPlayer, bool, error)
	SetRankings(ctx context.Context, year int, generation string, players []*models.RankedPlayer) error
}

// Filter narrows a ranking. The zero value lists every scored position.
type Filter struct {
	// Position restricts to one position. K and DEF only appear when asked for.
	Position models.Position
	// Rookies keeps players with zero years of experience
	Rookies bool
	// Limit caps the result; zero means no cap
	Limit int
}

// Service ranks players on read
type Service struct {
	source Source
	cache  Cache
	scorer *scoring.Scorer
}

// NewService creates a ranking Service. cache may be nil.
func NewService(source Source, c Cache, scorer *scoring.Scorer) *Service {
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	return &Service{source: source, cache: c, scorer: scorer}
}

// Rank returns year's players ordered by bfbValue, highest first, with unscored
// players last.
func (s *Service) Rank(ctx context.Context, year int, filter Filter) ([]*models.RankedPlayer, error) {
	all, err := s.season(ctx, year)
	if err != nil {
		return nil, err
	}

	out := make([]*models.RankedPlayer, 0, len(all))
	for _, p := range all {
		if filter.matches(p) {
			out = append(out, p)
		}
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// season returns the full sorted list for year, from cache when possible.
func (s *Service) season(ctx context.Context, year int) ([]*models.RankedPlayer, error) {
	// The generation is read before the database so a replace that commits
	// mid-read keeps this result out of the cache.
	var generation string
	cacheable := false
	if s.cache != nil {
		gen, err := s.cache.Generation(ctx, year)
		if err != nil {
			log.Warn().Err(err).Int("year", year).Msg("Ranking cache unavailable, falling back to database")
		} else {
			generation, cacheable = gen, true
			cached, ok, err := s.cache.GetRankings(ctx, year)
			if err != nil {
				log.Warn().Err(err).Int("year", year).Msg("Ranking cache read failed, falling back to database")
			} else if ok {
				return cached, nil
			}
		}
	}

	annotated, err := s.source.ListAnnotated(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings for %d: %w", year, err)
	}

	ranked := make([]*models.RankedPlayer, 0, len(annotated))
	for _, a := range annotated {
		ranked = append(ranked, &models.RankedPlayer{AnnotatedPlayer: *a, BFBValue: s.scorer.Score(*a)})
	}
	sortRanked(ranked)

	if cacheable {
		err := s.cache.SetRankings(ctx, year, generation, ranked)
		switch {
		case errors.Is(err, cache.ErrStaleGeneration):
			log.Debug().Int("year", year).Msg("Rankings invalidated during read, not caching")
		case err != nil:
			log.Warn().Err(err).Int("year", year).Msg("Failed to cache rankings")
		}
	}

	log.Debug().Int("year", year).Int("players", len(ranked)).Msg("Rankings computed")
	return ranked, nil
}

func (f Filter) matches(p *models.RankedPlayer) bool {
	pos := models.ParsePosition(p.Player.Position)
	if f.Position != "" {
		if pos != f.Position {
			return false
		}
	} else if pos == models.PositionK || pos == models.PositionDEF {
		return false
	}

	if f.Rookies && (!p.YearsExp.Valid || p.YearsExp.Int32 != 0) {
		return false
	}
	return true
}

// sortRanked orders by bfbValue desc, nulls last, then positional rank, then id.
func sortRanked(players []*models.RankedPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		switch {
		case a.BFBValue != nil && b.BFBValue == nil:
			return true
		case a.BFBValue == nil && b.BFBValue != nil:
			return false
		case a.BFBValue != nil && *a.BFBValue != *b.BFBValue:
			return *a.BFBValue > *b.BFBValue
		}

		if a.PosRankHalfPPR.Valid != b.PosRankHalfPPR.Valid {
			return a.PosRankHalfPPR.Valid
		}
		if a.PosRankHalfPPR.Int32 != b.PosRankHalfPPR.Int32 {
			return a.PosRankHalfPPR.Int32 < b.PosRankHalfPPR.Int32
		}
		return a.Player.ID < b.Player.ID
	})
}
