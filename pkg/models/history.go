package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the graded result of a signal once the game closes.
type Outcome string

const (
	OutcomeExtended Outcome = "extended" // line kept moving the signaled direction
	OutcomeReverted Outcome = "reverted" // line moved back past its pre-signal value
	OutcomeStable   Outcome = "stable"   // line finished close to where it signaled
)

// ClosingLineRecord is the line captured at kickoff for a market, used both
// for CLV grading and as the reference point outcomes are measured against.
type ClosingLineRecord struct {
	EventID    string          `json:"event_id"`
	MarketKey  string          `json:"market_key"`
	PlayerSlug string          `json:"player_slug,omitempty"`
	Line       decimal.Decimal `json:"line"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SignalSnapshot is the durable, queryable record of a detected signal: what
// the line was, how confident the pipeline was, and — once available — how
// it graded out against the closing line.
type SignalSnapshot struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	MarketKey string `json:"market_key"`

	SignalTime time.Time `json:"signal_time"`
	GameTime   time.Time `json:"game_time"`

	LineAtSignal            decimal.Decimal `json:"line_at_signal"`
	ConfidenceLevelAtSignal ConfidenceLevel `json:"confidence_level_at_signal"`
	ConfidenceScoreAtSignal int             `json:"confidence_score_at_signal"`

	FirstMoverBook string   `json:"first_mover_book"`
	FirstMoverTier BookTier `json:"first_mover_tier"`

	ClosingLine *decimal.Decimal `json:"closing_line,omitempty"`
	Outcome     *Outcome         `json:"outcome,omitempty"`
}

// Graded reports whether this snapshot has been through the grader.
func (s SignalSnapshot) Graded() bool {
	return s.Outcome != nil
}
