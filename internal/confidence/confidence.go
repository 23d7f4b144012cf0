// Package confidence is a pure, deterministic scorer: given a
// MarketFingerprint, it computes a 0-100 ConfidenceScore with no I/O, so it
// is always safe to cache or recompute.
package confidence

import (
	"fmt"
	"strings"

	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

const maxComponentScore = 25

// Scorer computes ConfidenceScores using the thresholds in cfg.
type Scorer struct {
	cfg config.ConfidenceConfig
}

// New builds a Scorer from cfg.
func New(cfg config.ConfidenceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the 0-100 confidence breakdown for fp.
func (s *Scorer) Score(fp models.MarketFingerprint) models.ConfidenceScore {
	firstMover := s.firstMoverScore(fp)
	velocity := s.velocityScore(fp)
	confirmation := s.confirmationScore(fp)
	stability := s.stabilityScore(fp)

	total := firstMover + velocity + confirmation + stability

	high := s.cfg.HighThreshold
	if high <= 0 {
		high = 80
	}
	medium := s.cfg.MediumThreshold
	if medium <= 0 {
		medium = 50
	}

	level := models.ConfidenceLow
	switch {
	case total >= high:
		level = models.ConfidenceHigh
	case total >= medium:
		level = models.ConfidenceMedium
	}

	score := models.ConfidenceScore{
		FirstMoverScore:   firstMover,
		VelocityScore:     velocity,
		ConfirmationScore: confirmation,
		StabilityScore:    stability,
		Total:             total,
		Level:             level,
	}
	score.Explanation = explain(score, fp)
	return score
}

func (s *Scorer) firstMoverScore(fp models.MarketFingerprint) int {
	switch fp.FirstMoverTier {
	case models.BookTierSharp:
		return 25
	case models.BookTierMarket:
		return 15
	case models.BookTierRetail:
		return 5
	default:
		return 0
	}
}

func (s *Scorer) velocityScore(fp models.MarketFingerprint) int {
	velocity, _ := fp.Velocity.Float64()
	if velocity <= 0 {
		return 0
	}

	medium := s.cfg.VelocityMediumThreshold
	if medium <= 0 {
		medium = 0.5
	}
	high := s.cfg.VelocityHighThreshold
	if high <= 0 {
		high = 2.0
	}

	if velocity >= high {
		return maxComponentScore
	}
	if velocity >= medium {
		return interpolate(velocity, medium, high, 12, maxComponentScore)
	}
	return interpolate(velocity, 0, medium, 0, 12)
}

func (s *Scorer) confirmationScore(fp models.MarketFingerprint) int {
	n := fp.ConfirmingBooks
	if n <= 0 {
		return 0
	}
	high := s.cfg.ConfirmationHighThreshold
	if high <= 0 {
		high = 5
	}
	medium := s.cfg.ConfirmationMediumThreshold
	if medium <= 0 {
		medium = 3
	}

	if n >= high {
		return maxComponentScore
	}
	if n >= medium {
		return interpolate(float64(n), float64(medium), float64(high), 12, maxComponentScore)
	}
	return interpolate(float64(n), 1, float64(medium), 0, 12)
}

func (s *Scorer) stabilityScore(fp models.MarketFingerprint) int {
	minutes := fp.StabilityWindow.Minutes()
	if minutes <= 0 {
		return 0
	}

	high := s.cfg.StabilityHighThreshold
	if high <= 0 {
		high = 60.0
	}
	medium := s.cfg.StabilityMediumThreshold
	if medium <= 0 {
		medium = 15.0
	}

	if minutes >= high {
		return maxComponentScore
	}
	if minutes >= medium {
		return interpolate(minutes, medium, high, 12, maxComponentScore)
	}
	return interpolate(minutes, 0, medium, 0, 12)
}

// interpolate linearly maps x from [xLo, xHi] to [yLo, yHi], clamped to
// [yLo, yHi] and rounded to the nearest int.
func interpolate(x, xLo, xHi float64, yLo, yHi int) int {
	if xHi <= xLo {
		return yLo
	}
	ratio := (x - xLo) / (xHi - xLo)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	v := float64(yLo) + ratio*float64(yHi-yLo)
	return int(v + 0.5)
}

func explain(score models.ConfidenceScore, fp models.MarketFingerprint) string {
	var parts []string
	if score.FirstMoverScore > 0 {
		parts = append(parts, fmt.Sprintf("first mover %s (+%d)", fp.FirstMoverTier, score.FirstMoverScore))
	}
	if score.VelocityScore > 0 {
		velocity, _ := fp.Velocity.Float64()
		parts = append(parts, fmt.Sprintf("velocity %.2f pts/h (+%d)", velocity, score.VelocityScore))
	}
	if score.ConfirmationScore > 0 {
		parts = append(parts, fmt.Sprintf("%d confirming books (+%d)", fp.ConfirmingBooks, score.ConfirmationScore))
	}
	if score.StabilityScore > 0 {
		parts = append(parts, fmt.Sprintf("stable for %.0fm (+%d)", fp.StabilityWindow.Minutes(), score.StabilityScore))
	}
	if len(parts) == 0 {
		return "no contributing signals"
	}
	return strings.Join(parts, ", ")
}
