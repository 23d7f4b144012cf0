package confidence_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/confidence"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

func testConfig() config.ConfidenceConfig {
	return config.ConfidenceConfig{
		VelocityHighThreshold:     2.0,
		ConfirmationHighThreshold: 5,
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := confidence.New(testConfig())

	fp := models.MarketFingerprint{
		FirstMoverTier:  models.BookTierSharp,
		Velocity:        decimal.NewFromFloat(2.5),
		ConfirmingBooks: 5,
		StabilityWindow: 90 * time.Minute,
	}

	a := s.Score(fp)
	b := s.Score(fp)
	if a != b {
		t.Errorf("Score is not deterministic: %+v vs %+v", a, b)
	}
}

func TestScoreMaxesOutAtHighThresholds(t *testing.T) {
	s := confidence.New(testConfig())

	fp := models.MarketFingerprint{
		FirstMoverTier:  models.BookTierSharp,
		Velocity:        decimal.NewFromFloat(3.0),
		ConfirmingBooks: 6,
		StabilityWindow: 70 * time.Minute,
	}

	score := s.Score(fp)
	if score.Total != 100 {
		t.Errorf("Total = %d, want 100 at max thresholds", score.Total)
	}
	if score.Level != models.ConfidenceHigh {
		t.Errorf("Level = %s, want high", score.Level)
	}
}

func TestScoreZeroWithNoSignal(t *testing.T) {
	s := confidence.New(testConfig())
	score := s.Score(models.MarketFingerprint{})
	if score.Total != 0 {
		t.Errorf("Total = %d, want 0 with no signal", score.Total)
	}
	if score.Level != models.ConfidenceLow {
		t.Errorf("Level = %s, want low", score.Level)
	}
}

func TestScenarioConfidenceEscalationThreshold(t *testing.T) {
	s := confidence.New(testConfig())

	// Chosen to land at 82, matching scenario 2 of the spec (score=82 -> High).
	fp := models.MarketFingerprint{
		FirstMoverTier:  models.BookTierSharp, // 25
		Velocity:        decimal.NewFromFloat(2.0), // >= ceiling -> 25
		ConfirmingBooks: 4, // between medium(3) and high(5) -> interpolated
		StabilityWindow: 20 * time.Minute, // between medium(15) and high(60) -> interpolated
	}

	score := s.Score(fp)
	if score.Level != models.ConfidenceHigh {
		t.Errorf("Level = %s, want high (total=%d)", score.Level, score.Total)
	}
}
