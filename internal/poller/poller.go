// Package poller drives the main detection loop: on a base interval it
// pulls game-level odds for every active sport, fingerprints each market,
// scores and alerts on material changes, and captures closing lines ahead
// of kickoff. Every Nth tick it repeats the cycle for player-prop markets.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/alert"
	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/confidence"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/internal/fingerprint"
	"github.com/driftline/sentry/internal/history"
	"github.com/driftline/sentry/internal/normalizer"
	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

// Poller owns the scheduling loop and the wiring between every other
// component.
type Poller struct {
	cfg         config.PollerConfig
	closingCfg  config.ClosingLineConfig
	registry    *registry.Registry
	provider    *provider.Client
	normalizer  *normalizer.Normalizer
	fingerprint *fingerprint.Service
	confidence  *confidence.Scorer
	alerts      *alert.Engine
	history     *history.Store
	cache       *cache.Cache
	log         zerolog.Logger

	tickCount int
}

// New builds a Poller.
func New(
	cfg config.PollerConfig,
	closingCfg config.ClosingLineConfig,
	reg *registry.Registry,
	prov *provider.Client,
	norm *normalizer.Normalizer,
	fp *fingerprint.Service,
	conf *confidence.Scorer,
	alerts *alert.Engine,
	hist *history.Store,
	c *cache.Cache,
	log zerolog.Logger,
) *Poller {
	return &Poller{
		cfg:         cfg,
		closingCfg:  closingCfg,
		registry:    reg,
		provider:    prov,
		normalizer:  norm,
		fingerprint: fp,
		confidence:  conf,
		alerts:      alerts,
		history:     hist,
		cache:       c,
		log:         log.With().Str("subsystem", "poller").Logger(),
	}
}

// Run drives the tick loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", interval).Msg("poller started")
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.tickCount++

	deadline := p.cfg.TickDeadline
	if deadline <= 0 {
		deadline = 45 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	sports := p.registry.Sports(tctx)
	p.processSports(tctx, sports, false)

	everyN := p.cfg.PlayerPropEveryNTicks
	if everyN <= 0 {
		everyN = 5
	}
	if p.tickCount%everyN == 0 {
		p.processSports(tctx, sports, true)
	}

	if tctx.Err() != nil {
		p.log.Warn().Int("tick", p.tickCount).Msg("tick deadline exceeded, partial results kept")
	}
}

func (p *Poller) processSports(ctx context.Context, sports []models.Sport, playerProps bool) {
	var wg sync.WaitGroup
	for _, sport := range sports {
		wg.Add(1)
		go func(sport models.Sport) {
			defer wg.Done()
			if err := p.processSport(ctx, sport, playerProps); err != nil {
				p.log.Error().Err(err).Str("sport", sport.Key).Bool("player_props", playerProps).Msg("sport tick failed")
			}
		}(sport)
	}
	wg.Wait()
}

func (p *Poller) processSport(ctx context.Context, sport models.Sport, playerProps bool) error {
	markets := p.registry.MarketsForSport(ctx, sport.Key)
	tracked := make([]models.MarketDefinition, 0, len(markets))
	for _, m := range markets {
		if m.IsPlayerProp == playerProps && !m.IsAlternate {
			tracked = append(tracked, m)
		}
	}
	if len(tracked) == 0 {
		return nil
	}

	marketKeys := make([]string, len(tracked))
	for i, m := range tracked {
		marketKeys[i] = m.Key
	}

	events, err := p.provider.CurrentOdds(ctx, sport.Key, marketKeys, nil)
	if err != nil {
		return err
	}

	if playerProps {
		cutoff := time.Now().Add(24 * time.Hour)
		filtered := events[:0]
		for _, e := range events {
			if e.CommenceTime.Before(cutoff) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	maxConcurrent := p.cfg.MaxConcurrentEvents
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		sem <- struct{}{}
		go func(event provider.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processEvent(ctx, event, tracked)
		}(event)
	}
	wg.Wait()
	return nil
}

// processEvent owns the mutation of every (eventId, marketKey[, player])
// fingerprint belonging to this event — one goroutine per event serializes
// that mutation across its own markets.
func (p *Poller) processEvent(ctx context.Context, event provider.Event, markets []models.MarketDefinition) {
	for _, market := range markets {
		snapshots := p.normalizer.Snapshots(event, market)
		if len(snapshots) == 0 {
			continue
		}

		byPlayer := make(map[string][]models.BookSnapshot)
		for _, snap := range snapshots {
			byPlayer[snap.PlayerSlug()] = append(byPlayer[snap.PlayerSlug()], snap)
		}

		for playerSlug, group := range byPlayer {
			p.processMarketKey(ctx, event, market, playerSlug, group)
		}
	}

	p.maybeCaptureClosingLine(ctx, event, markets)
}

func (p *Poller) processMarketKey(ctx context.Context, event provider.Event, market models.MarketDefinition, playerSlug string, snapshots []models.BookSnapshot) {
	var prev *models.MarketFingerprint
	var prevFP models.MarketFingerprint
	cacheKey := event.ID + ":" + market.Key
	if playerSlug != "" {
		cacheKey += ":" + playerSlug
	}
	if p.cache.GetJSON(ctx, cache.FingerprintKey(cacheKey), &prevFP) {
		prev = &prevFP
	}

	fp := p.fingerprint.Create(event.ID, market.Key, snapshots, prev)
	p.cache.SetJSON(ctx, cache.FingerprintKey(fp.CacheKey()), fp, cache.FingerprintTTL)

	if !models.HasMaterialChange(fp, prev) {
		return
	}

	score := p.confidence.Score(fp)
	p.cache.SetConfidence(ctx, fp.MarketKey, score)

	signalMarketKey := market.Key
	if fp.PlayerSlug != "" {
		signalMarketKey = market.Key + ":" + fp.PlayerSlug
	}
	snap := models.SignalSnapshot{
		EventID:                 event.ID,
		MarketKey:               signalMarketKey,
		SignalTime:              fp.Timestamp,
		GameTime:                event.CommenceTime,
		LineAtSignal:            fp.ConsensusLine,
		ConfidenceLevelAtSignal: score.Level,
		ConfidenceScoreAtSignal: score.Total,
		FirstMoverBook:          fp.FirstMoverBook,
		FirstMoverTier:          fp.FirstMoverTier,
	}
	if _, err := p.history.SaveSignal(ctx, snap); err != nil {
		p.log.Error().Err(err).Str("event_id", event.ID).Str("market_key", signalMarketKey).Msg("save signal failed")
	}

	if marketAlert, ok := p.alerts.Evaluate(ctx, fp, score); ok {
		if err := p.alerts.Send(ctx, marketAlert); err != nil {
			p.log.Error().Err(err).Str("alert_id", marketAlert.AlertID).Msg("alert dispatch failed")
		}
	}
}

func (p *Poller) maybeCaptureClosingLine(ctx context.Context, event provider.Event, markets []models.MarketDefinition) {
	window := p.closingCfg.CaptureWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	untilKickoff := time.Until(event.CommenceTime)
	if untilKickoff <= 0 || untilKickoff > window {
		return
	}

	for _, market := range markets {
		if market.IsPlayerProp {
			continue
		}
		key := cache.ClosingLineKey(event.ID, market.Key)
		if p.cache.Exists(ctx, key) {
			continue
		}

		var fp models.MarketFingerprint
		if !p.cache.GetJSON(ctx, cache.FingerprintKey(event.ID+":"+market.Key), &fp) {
			continue
		}

		record := models.ClosingLineRecord{
			EventID:    event.ID,
			MarketKey:  market.Key,
			Line:       fp.ConsensusLine,
			RecordedAt: time.Now(),
		}
		p.cache.SetJSON(ctx, key, record, cache.ClosingLineTTL)
	}
}
