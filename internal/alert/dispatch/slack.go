package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/pkg/models"
)

// SlackDispatcher posts alerts to a Slack incoming webhook.
type SlackDispatcher struct {
	webhookURL string
	http       *http.Client
	log        zerolog.Logger
}

// NewSlackDispatcher builds a dispatcher against webhookURL.
func NewSlackDispatcher(webhookURL string, log zerolog.Logger) *SlackDispatcher {
	return &SlackDispatcher{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("subsystem", "dispatch.slack").Logger(),
	}
}

// Dispatch posts alert as a formatted Slack message.
func (s *SlackDispatcher) Dispatch(ctx context.Context, alert models.MarketAlert) error {
	if s.webhookURL == "" {
		return fmt.Errorf("no slack webhook configured")
	}

	payload := map[string]interface{}{"text": s.formatMessage(alert)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	s.log.Info().Str("alert_id", alert.AlertID).Str("type", string(alert.Type)).Msg("slack alert dispatched")
	return nil
}

func (s *SlackDispatcher) formatMessage(alert models.MarketAlert) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s* | priority: %s | confidence: %s (%d)\n",
		strings.ToUpper(string(alert.Type)), alert.Priority, alert.Score.Level, alert.Score.Total))
	sb.WriteString(fmt.Sprintf("Event: %s | Market: %s\n", alert.EventID, alert.Fingerprint.MarketKey))
	sb.WriteString(fmt.Sprintf("Consensus: %s (delta %s)\n", alert.Fingerprint.ConsensusLine, alert.Fingerprint.DeltaMagnitude))
	if alert.Fingerprint.FirstMoverBook != "" {
		sb.WriteString(fmt.Sprintf("First mover: %s (%s)\n", alert.Fingerprint.FirstMoverBook, alert.Fingerprint.FirstMoverTier))
	}
	sb.WriteString(alert.Score.Explanation)

	return sb.String()
}
