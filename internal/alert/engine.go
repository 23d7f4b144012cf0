// Package alert implements the alert engine: classifying a fingerprint and
// confidence score into an alert type, deduplicating and cooling it down
// against cache state, tier-routing it to channels, and handing it to a
// Dispatcher. The dedupe write is the commit point and always precedes
// dispatch, closing the race the source ordering (dispatch then mark) left
// open.
package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

// Dispatcher delivers a MarketAlert to its target channels. Implementations
// live in internal/alert/dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.MarketAlert) error
}

// Engine evaluates fingerprints into alerts and drives dedupe/cooldown/
// dispatch.
type Engine struct {
	cache      *cache.Cache
	dispatcher Dispatcher
	cfg        config.AlertConfig
	log        zerolog.Logger
}

// New builds an Engine.
func New(c *cache.Cache, dispatcher Dispatcher, cfg config.AlertConfig, log zerolog.Logger) *Engine {
	return &Engine{cache: c, dispatcher: dispatcher, cfg: cfg, log: log.With().Str("subsystem", "alert").Logger()}
}

func (e *Engine) minConsensusBooks() int {
	if e.cfg.MinConsensusBooks > 0 {
		return e.cfg.MinConsensusBooks
	}
	return 5
}

func (e *Engine) reversalWindow() time.Duration {
	if e.cfg.ReversalWindow > 0 {
		return e.cfg.ReversalWindow
	}
	return 5 * time.Minute
}

func (e *Engine) dedupeWindow() time.Duration {
	if e.cfg.DedupeWindow > 0 {
		return e.cfg.DedupeWindow
	}
	return 60 * time.Minute
}

func (e *Engine) minSharpDelta() decimal.Decimal {
	if e.cfg.MinSharpDelta > 0 {
		return decimal.NewFromFloat(e.cfg.MinSharpDelta)
	}
	return decimal.RequireFromString("0.5")
}

func (e *Engine) minMovementDelta() decimal.Decimal {
	if e.cfg.MinMovementDelta > 0 {
		return decimal.NewFromFloat(e.cfg.MinMovementDelta)
	}
	return decimal.RequireFromString("1.0")
}

// Evaluate classifies fp/score into a MarketAlert, or returns ok=false if
// no rule matches (in which case the observed confidence level is still
// persisted for future escalation comparisons).
func (e *Engine) Evaluate(ctx context.Context, fp models.MarketFingerprint, score models.ConfidenceScore) (models.MarketAlert, bool) {
	alertType, ok := e.classify(ctx, fp, score)
	if !ok {
		e.storePrevLevel(ctx, fp.MarketKey, score.Level)
		return models.MarketAlert{}, false
	}

	alert := models.MarketAlert{
		AlertID:     uuid.NewString(),
		EventID:     fp.EventID,
		Fingerprint: fp,
		Score:       score,
		Type:        alertType,
		CreatedAt:   time.Now(),
	}
	alert.Priority = priorityFor(alertType, score.Level)
	alert.TargetChannels = channelsFor(alertType, score.Level)
	alert.SendDirect = alertType == models.AlertTypeSharpActivity || score.Level == models.ConfidenceHigh

	return alert, true
}

func (e *Engine) classify(ctx context.Context, fp models.MarketFingerprint, score models.ConfidenceScore) (models.AlertType, bool) {
	if fp.FirstMoverTier == models.BookTierSharp && fp.DeltaMagnitude.GreaterThanOrEqual(e.minSharpDelta()) {
		return models.AlertTypeSharpActivity, true
	}

	if score.Level == models.ConfidenceHigh && e.prevLevel(ctx, fp.MarketKey) != models.ConfidenceHigh {
		return models.AlertTypeConfidenceEscalation, true
	}

	if fp.ConfirmingBooks >= e.minConsensusBooks() && levelAtLeast(score.Level, models.ConfidenceMedium) {
		return models.AlertTypeConsensusFormed, true
	}

	if fp.DeltaMagnitude.GreaterThanOrEqual(e.minMovementDelta()) {
		return models.AlertTypeNewMovement, true
	}

	if !fp.LastReversalTime.IsZero() && time.Since(fp.LastReversalTime) <= e.reversalWindow() {
		return models.AlertTypeReversal, true
	}

	return "", false
}

func levelAtLeast(level, floor models.ConfidenceLevel) bool {
	rank := func(l models.ConfidenceLevel) int {
		switch l {
		case models.ConfidenceHigh:
			return 2
		case models.ConfidenceMedium:
			return 1
		default:
			return 0
		}
	}
	return rank(level) >= rank(floor)
}

func priorityFor(alertType models.AlertType, level models.ConfidenceLevel) models.AlertPriority {
	switch {
	case alertType == models.AlertTypeSharpActivity && level == models.ConfidenceHigh:
		return models.PriorityUrgent
	case alertType == models.AlertTypeSharpActivity,
		alertType == models.AlertTypeConfidenceEscalation,
		alertType == models.AlertTypeConsensusFormed && level == models.ConfidenceHigh,
		alertType == models.AlertTypeReversal:
		return models.PriorityHigh
	default:
		return models.PriorityNormal
	}
}

func channelsFor(alertType models.AlertType, level models.ConfidenceLevel) []models.Channel {
	var channels []models.Channel
	if alertType == models.AlertTypeSharpActivity || level == models.ConfidenceHigh {
		channels = append(channels, models.ChannelSharp)
	}
	if levelAtLeast(level, models.ConfidenceMedium) {
		channels = append(channels, models.ChannelCore)
	}
	return channels
}

func (e *Engine) prevLevel(ctx context.Context, marketKey string) models.ConfidenceLevel {
	var level string
	if !e.cache.GetJSON(ctx, "alert:prevconfidence:"+marketKey, &level) {
		return models.ConfidenceLow
	}
	return models.ConfidenceLevel(level)
}

func (e *Engine) storePrevLevel(ctx context.Context, marketKey string, level models.ConfidenceLevel) {
	e.cache.SetJSON(ctx, "alert:prevconfidence:"+marketKey, string(level), 24*time.Hour)
}

// ShouldSend reports whether alert has neither an active dedupe entry nor a
// too-recent last-sent timestamp for its priority's cooldown.
func (e *Engine) ShouldSend(ctx context.Context, alert models.MarketAlert) bool {
	dedupeKey := cache.DedupeKey(alert.DedupeKey())
	if e.cache.Exists(ctx, dedupeKey) {
		return false
	}

	var lastSent time.Time
	if e.cache.GetJSON(ctx, "alert:lasttime:"+alert.DedupeKey(), &lastSent) {
		if time.Since(lastSent) < e.cooldownFor(alert.Priority) {
			return false
		}
	}

	return true
}

func (e *Engine) cooldownFor(priority models.AlertPriority) time.Duration {
	switch priority {
	case models.PriorityUrgent:
		if e.cfg.SharpCooldown > 0 {
			return e.cfg.SharpCooldown
		}
		return 2 * time.Minute
	case models.PriorityHigh:
		return 5 * time.Minute
	default:
		if e.cfg.Cooldown > 0 {
			return e.cfg.Cooldown
		}
		return 15 * time.Minute
	}
}

// MarkSent writes the dedupe entry, last-sent timestamp, and updates the
// stored confidence level. This is the commit point: it must be called, and
// must succeed, before Dispatch — a concurrent ShouldSend check after this
// call observes a dedupe entry and backs off.
func (e *Engine) MarkSent(ctx context.Context, alert models.MarketAlert) {
	dedupeKey := cache.DedupeKey(alert.DedupeKey())
	e.cache.SetJSON(ctx, dedupeKey, true, e.dedupeWindow())
	e.cache.SetJSON(ctx, "alert:lasttime:"+alert.DedupeKey(), time.Now(), 24*time.Hour)
	e.storePrevLevel(ctx, alert.Fingerprint.MarketKey, alert.Score.Level)
}

// Send takes an alert already produced by Evaluate, checks ShouldSend, marks
// it sent, and only then dispatches —
// the ordering spec.md §9 calls out as the fix for the source's race.
func (e *Engine) Send(ctx context.Context, alert models.MarketAlert) error {
	if !e.ShouldSend(ctx, alert) {
		return nil
	}
	e.MarkSent(ctx, alert)
	return e.dispatcher.Dispatch(ctx, alert)
}
