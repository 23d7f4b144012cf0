package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookSnapshot is one book's view of one market at one instant.
//
// Timestamp is monotonic per (EventID, MarketKey, BookmakerKey). Line
// semantics are market-shape-dependent (points for spreads/totals, a signed
// American price for moneylines) — the normalizer is authoritative about
// which is which for a given MarketKey.
type BookSnapshot struct {
	EventID       string          `json:"event_id"`
	MarketKey     string          `json:"market_key"`
	BookmakerKey  string          `json:"bookmaker_key"`
	BookmakerTier BookTier        `json:"bookmaker_tier"`
	Timestamp     time.Time       `json:"timestamp"`
	Line          decimal.Decimal `json:"line"`
	PrimaryOdds   int             `json:"primary_odds"`
	SecondaryOdds int             `json:"secondary_odds"`
	PlayerName    string          `json:"player_name,omitempty"`
}

// PlayerSlug returns the cache-key-safe identity fragment for a player prop
// snapshot, empty for game-level markets. See spec.md §9 on player-prop
// fingerprinting: identity is (event, market, player), not (event, market).
func (b BookSnapshot) PlayerSlug() string {
	if b.PlayerName == "" {
		return ""
	}
	return slugify(b.PlayerName)
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r-'A'+'a')
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
