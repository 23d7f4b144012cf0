// Package grader runs the periodic outcome-grading tick: for every recently
// completed game it resolves each trackable market's closing line against
// the final score, grades the signals recorded against that line, and
// retires the closing-line record.
package grader

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/internal/history"
	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

// Grader owns the grading tick loop.
type Grader struct {
	registry *registry.Registry
	provider *provider.Client
	history  *history.Store
	cache    *cache.Cache
	interval time.Duration
	log      zerolog.Logger

	gradeTodoSkips int
}

// New builds a Grader. interval defaults to 15 minutes.
func New(cfg config.GraderConfig, reg *registry.Registry, prov *provider.Client, hist *history.Store, c *cache.Cache, log zerolog.Logger) *Grader {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Grader{
		registry: reg,
		provider: prov,
		history:  hist,
		cache:    c,
		interval: interval,
		log:      log.With().Str("subsystem", "grader").Logger(),
	}
}

// Run drives the grading tick loop until ctx is cancelled.
func (g *Grader) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.log.Info().Dur("interval", g.interval).Msg("grader started")
	g.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			g.log.Info().Msg("grader stopped")
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

func (g *Grader) tick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, g.interval*2/3)
	defer cancel()

	sports := g.registry.Sports(tctx)
	for _, sport := range sports {
		if err := g.gradeSport(tctx, sport); err != nil {
			g.log.Error().Err(err).Str("sport", sport.Key).Msg("grade sport failed")
		}
	}
}

func (g *Grader) gradeSport(ctx context.Context, sport models.Sport) error {
	scores, err := g.provider.Scores(ctx, sport.Key, 1)
	if err != nil {
		return err
	}

	for _, se := range scores {
		if !se.Completed {
			continue
		}
		g.gradeEvent(ctx, sport, se)
	}
	return nil
}

func (g *Grader) gradeEvent(ctx context.Context, sport models.Sport, se provider.ScoreEvent) {
	markets := g.registry.MarketsForSport(ctx, sport.Key)

	homeScore, awayScore, ok := finalScores(se)
	if !ok {
		g.log.Warn().Str("event_id", se.ID).Msg("incomplete score data, skipping")
		return
	}

	for _, market := range markets {
		key := cache.ClosingLineKey(se.ID, market.Key)
		var record models.ClosingLineRecord
		if !g.cache.GetJSON(ctx, key, &record) {
			continue
		}

		if market.Period != "" && !g.provider.PeriodScoresAvailable(sport.Key) {
			g.log.Debug().Str("event_id", se.ID).Str("market_key", market.Key).Msg("period scores unavailable, skipping")
			continue
		}

		outcome, ok := g.resolveOutcome(market, record.Line, homeScore, awayScore)
		if !ok {
			continue
		}

		if err := g.applyOutcome(ctx, se.ID, market.Key, record.Line, outcome); err != nil {
			g.log.Error().Err(err).Str("event_id", se.ID).Str("market_key", market.Key).Msg("apply outcome failed")
			continue
		}

		g.cache.Delete(ctx, key)
	}
}

// resolveOutcome dispatches to the grading rule for market's shape. ok is
// false when the market shape has no grading rule (logged at debug level).
// team_totals and odd_even grade as Stable with ok=true; each of those
// increments the gradeTodoSkips counter.
func (g *Grader) resolveOutcome(market models.MarketDefinition, line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	if market.Key == "team_totals" || market.Key == "odd_even" {
		g.gradeTodoSkips++
		g.log.Warn().Str("market_key", market.Key).Int("todo_skips", g.gradeTodoSkips).Msg("grading rule incomplete, recording stable")
	}

	outcome, ok := gradeMarket(market, line, homeScore, awayScore)
	if !ok {
		g.log.Debug().Str("market_key", market.Key).Msg("no grading rule for market shape")
	}
	return outcome, ok
}

func (g *Grader) applyOutcome(ctx context.Context, eventID, marketKey string, closingLine decimal.Decimal, outcome models.Outcome) error {
	signals, err := g.history.SignalsForEvent(ctx, eventID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, snap := range signals {
		if snap.MarketKey != marketKey || snap.Graded() {
			continue
		}
		if err := g.history.UpdateSignal(ctx, snap.ID, closingLine, outcome); err != nil {
			g.log.Error().Err(err).Str("signal_id", snap.ID).Msg("update signal failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func finalScores(se provider.ScoreEvent) (home, away int, ok bool) {
	var h, a *int
	for _, s := range se.Scores {
		n, err := strconv.Atoi(s.Score)
		if err != nil {
			continue
		}
		if s.Name == se.HomeTeam {
			h = &n
		} else if s.Name == se.AwayTeam {
			a = &n
		}
	}
	if h == nil || a == nil {
		return 0, 0, false
	}
	return *h, *a, true
}
