package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketFingerprint is the core state object the pipeline computes once per
// (eventId, marketKey[+player], timestamp).
type MarketFingerprint struct {
	EventID    string `json:"event_id"`
	MarketKey  string `json:"market_key"`
	PlayerSlug string `json:"player_slug,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	ConsensusLine         decimal.Decimal `json:"consensus_line"`
	PreviousConsensusLine decimal.Decimal `json:"previous_consensus_line"`
	DeltaMagnitude        decimal.Decimal `json:"delta_magnitude"`
	Velocity              decimal.Decimal `json:"velocity"` // points per hour

	FirstMoverBook string    `json:"first_mover_book,omitempty"`
	FirstMoverTier BookTier  `json:"first_mover_tier,omitempty"`
	FirstMoveTime  time.Time `json:"first_move_time,omitempty"`

	ConfirmingBooks int `json:"confirming_books"`

	LastReversalTime time.Time       `json:"last_reversal_time"`
	StabilityWindow  time.Duration   `json:"stability_window"`
	RetailLag        time.Duration   `json:"retail_lag"`

	ContentHash string `json:"content_hash"`

	// Snapshots is the per-book input this fingerprint was computed from,
	// retained so downstream components (confidence, content hash) don't
	// need to re-fetch it.
	Snapshots []BookSnapshot `json:"snapshots"`
}

// CacheKey returns the key identity used throughout the cache and alert
// layers: "eventID:marketKey" for game-level markets, or
// "eventID:marketKey:playerSlug" for player props.
func (f MarketFingerprint) CacheKey() string {
	if f.PlayerSlug == "" {
		return f.EventID + ":" + f.MarketKey
	}
	return f.EventID + ":" + f.MarketKey + ":" + f.PlayerSlug
}

// HasMaterialChange reports whether current differs from prev enough to
// warrant recomputing downstream signals: prev absent, delta >= 0.5, a
// different first mover, or a different content hash.
func HasMaterialChange(current MarketFingerprint, prev *MarketFingerprint) bool {
	if prev == nil {
		return true
	}
	halfUnit := decimal.NewFromFloat(0.5)
	if current.DeltaMagnitude.GreaterThanOrEqual(halfUnit) {
		return true
	}
	if current.FirstMoverBook != prev.FirstMoverBook {
		return true
	}
	if current.ContentHash != prev.ContentHash {
		return true
	}
	return false
}

// ConfidenceLevel buckets a ConfidenceScore's total.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceScore is a deterministic 0-100 breakdown computed from a
// fingerprint, with an explanatory string.
type ConfidenceScore struct {
	FirstMoverScore   int             `json:"first_mover_score"`
	VelocityScore     int             `json:"velocity_score"`
	ConfirmationScore int             `json:"confirmation_score"`
	StabilityScore    int             `json:"stability_score"`
	Total             int             `json:"total"`
	Level             ConfidenceLevel `json:"level"`
	Explanation       string          `json:"explanation"`
}
