// Package provider is the thin I/O adapter to the external odds HTTP
// provider: events, current odds, single-event odds, scores, and historical
// odds sampling. It is the only package in the pipeline that speaks HTTP to
// an upstream odds source.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/config"
)

// Client wraps a resty client with the retry/timeout policy for the odds
// provider, and the rate-limit spacing historical sampling must respect.
type Client struct {
	http          *resty.Client
	sampleSpacing time.Duration
	log           zerolog.Logger
}

// New builds a Client from cfg.
func New(cfg config.ProviderConfig, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetQueryParam("apiKey", cfg.APIKey).
		SetHeader("Accept", "application/json")

	spacing := cfg.SampleSpacing
	if spacing < 100*time.Millisecond {
		spacing = 100 * time.Millisecond
	}

	return &Client{http: httpClient, sampleSpacing: spacing, log: log.With().Str("subsystem", "provider").Logger()}
}

// Events lists scheduled/live events for a sport.
func (c *Client) Events(ctx context.Context, sportKey string) ([]Event, error) {
	var events []Event
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&events).
		Get(fmt.Sprintf("/sports/%s/events", sportKey))
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", sportKey, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list events for %s: status %d", sportKey, resp.StatusCode())
	}
	return events, nil
}

// CurrentOdds lists current odds for a sport, filtered by market and book
// keys.
func (c *Client) CurrentOdds(ctx context.Context, sportKey string, marketKeys, bookmakerKeys []string) ([]Event, error) {
	req := c.http.R().SetContext(ctx)
	if len(marketKeys) > 0 {
		req.SetQueryParam("markets", joinCSV(marketKeys))
	}
	if len(bookmakerKeys) > 0 {
		req.SetQueryParam("bookmakers", joinCSV(bookmakerKeys))
	}

	var events []Event
	resp, err := req.SetResult(&events).Get(fmt.Sprintf("/sports/%s/odds", sportKey))
	if err != nil {
		return nil, fmt.Errorf("current odds for %s: %w", sportKey, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("current odds for %s: status %d", sportKey, resp.StatusCode())
	}
	return events, nil
}

// EventOdds fetches odds for a single event.
func (c *Client) EventOdds(ctx context.Context, sportKey, eventID string, marketKeys []string) (*Event, error) {
	req := c.http.R().SetContext(ctx)
	if len(marketKeys) > 0 {
		req.SetQueryParam("markets", joinCSV(marketKeys))
	}

	var event Event
	resp, err := req.SetResult(&event).Get(fmt.Sprintf("/sports/%s/events/%s/odds", sportKey, eventID))
	if err != nil {
		return nil, fmt.Errorf("event odds for %s/%s: %w", sportKey, eventID, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("event odds for %s/%s: status %d", sportKey, eventID, resp.StatusCode())
	}
	return &event, nil
}

// Scores fetches recent scores for a sport, including completed games
// within daysFrom days.
func (c *Client) Scores(ctx context.Context, sportKey string, daysFrom int) ([]ScoreEvent, error) {
	var scores []ScoreEvent
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("daysFrom", fmt.Sprintf("%d", daysFrom)).
		SetResult(&scores).
		Get(fmt.Sprintf("/sports/%s/scores", sportKey))
	if err != nil {
		return nil, fmt.Errorf("scores for %s: %w", sportKey, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scores for %s: status %d", sportKey, resp.StatusCode())
	}
	return scores, nil
}

// HistoricalEventOdds fetches an event's odds as they stood at timestamp.
// 4xx responses are treated as "not available", per spec.md §4.3.
func (c *Client) HistoricalEventOdds(ctx context.Context, sportKey, eventID string, at time.Time) (*HistoricalSnapshot, error) {
	var snap HistoricalSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("date", at.UTC().Format(time.RFC3339)).
		SetResult(&snap).
		Get(fmt.Sprintf("/historical/sports/%s/events/%s/odds", sportKey, eventID))
	if err != nil {
		return nil, fmt.Errorf("historical event odds for %s/%s at %s: %w", sportKey, eventID, at, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("historical event odds for %s/%s: status %d", sportKey, eventID, resp.StatusCode())
	}
	return &snap, nil
}

// HistoricalSportOdds fetches the whole sport's odds at timestamp.
func (c *Client) HistoricalSportOdds(ctx context.Context, sportKey string, at time.Time) ([]HistoricalSnapshot, error) {
	var snaps []HistoricalSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("date", at.UTC().Format(time.RFC3339)).
		SetResult(&snaps).
		Get(fmt.Sprintf("/historical/sports/%s/odds", sportKey))
	if err != nil {
		return nil, fmt.Errorf("historical sport odds for %s at %s: %w", sportKey, at, err)
	}
	if notAvailable(resp) {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("historical sport odds for %s: status %d", sportKey, resp.StatusCode())
	}
	return snaps, nil
}

// LineMovementSeries samples historical odds for one event at regular
// intervals over daysBack*intervalsPerDay points, appends the current
// snapshot, and returns the series oldest-first. A short delay (at least
// c.sampleSpacing, floored at 100ms) is inserted between historical
// requests to respect provider rate limits.
func (c *Client) LineMovementSeries(ctx context.Context, sportKey, eventID string, daysBack, intervalsPerDay int) ([]HistoricalSnapshot, error) {
	if daysBack <= 0 || intervalsPerDay <= 0 {
		return nil, fmt.Errorf("daysBack and intervalsPerDay must be > 0")
	}

	totalPoints := daysBack * intervalsPerDay
	step := 24 * time.Hour / time.Duration(intervalsPerDay)
	now := time.Now()

	series := make([]HistoricalSnapshot, 0, totalPoints+1)
	for i := totalPoints; i >= 1; i-- {
		at := now.Add(-time.Duration(i) * step)

		snap, err := c.HistoricalEventOdds(ctx, sportKey, eventID, at)
		if err != nil {
			c.log.Warn().Err(err).Str("event_id", eventID).Time("at", at).Msg("historical sample failed")
		} else if snap != nil {
			series = append(series, *snap)
		}

		select {
		case <-ctx.Done():
			return series, ctx.Err()
		case <-time.After(c.sampleSpacing):
		}
	}

	current, err := c.EventOdds(ctx, sportKey, eventID, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("event_id", eventID).Msg("current snapshot for movement series failed")
	} else if current != nil {
		series = append(series, HistoricalSnapshot{Timestamp: now, Data: *current})
	}

	return series, nil
}

// periodScoresBySport records which sports expose per-period score data,
// consulted by the grader before attempting period-specific outcome
// resolution (spec.md §9).
var periodScoresBySport = map[string]bool{
	"americanfootball_nfl": true,
	"basketball_nba":       true,
	"icehockey_nhl":        true,
	"baseball_mlb":         false,
	"soccer_epl":           true,
}

// PeriodScoresAvailable reports whether the provider can supply per-period
// scores for a sport.
func (c *Client) PeriodScoresAvailable(sportKey string) bool {
	return periodScoresBySport[sportKey]
}

func notAvailable(resp *resty.Response) bool {
	return resp.StatusCode() >= 400 && resp.StatusCode() < 500
}

func joinCSV(vals []string) string {
	return strings.Join(vals, ",")
}
