package fingerprint_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/fingerprint"
	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

func newService() *fingerprint.Service {
	reg := registry.New(registry.DefaultSeed{}, nil, zerolog.Nop())
	return fingerprint.New(reg)
}

func snap(book string, line float64, at time.Time) models.BookSnapshot {
	return models.BookSnapshot{
		EventID: "evt1", MarketKey: "spreads",
		BookmakerKey: book, Timestamp: at,
		Line: decimal.NewFromFloat(line),
	}
}

func TestConsensusLineIsLowerMedianAndPermutationInvariant(t *testing.T) {
	s := newService()
	now := time.Now()

	lines := []models.BookSnapshot{
		snap("pinnacle", -4, now),
		snap("draftkings", -3.5, now),
		snap("fanduel", -3, now),
		snap("betmgm", -2.5, now),
	}

	fp1 := s.Create("evt1", "spreads", lines, nil)

	reordered := []models.BookSnapshot{lines[2], lines[0], lines[3], lines[1]}
	fp2 := s.Create("evt1", "spreads", reordered, nil)

	if !fp1.ConsensusLine.Equal(fp2.ConsensusLine) {
		t.Errorf("consensus line changed under permutation: %s vs %s", fp1.ConsensusLine, fp2.ConsensusLine)
	}
	if !fp1.ConsensusLine.Equal(decimal.NewFromFloat(-3.5)) {
		t.Errorf("ConsensusLine = %s, want lower median -3.5", fp1.ConsensusLine)
	}
}

func TestMaterialChangeMonotonicity(t *testing.T) {
	s := newService()
	now := time.Now()

	lines := []models.BookSnapshot{
		snap("pinnacle", -3.5, now),
		snap("draftkings", -3, now),
	}
	prev := s.Create("evt1", "spreads", lines, nil)

	// identical inputs -> same content hash, zero delta, same first mover
	again := s.Create("evt1", "spreads", lines, &prev)
	if models.HasMaterialChange(again, &prev) {
		t.Error("expected no material change for a repeated identical snapshot set")
	}
}

func TestHasMaterialChangeNilPrev(t *testing.T) {
	s := newService()
	fp := s.Create("evt1", "spreads", []models.BookSnapshot{snap("pinnacle", -3, time.Now())}, nil)
	if !models.HasMaterialChange(fp, nil) {
		t.Error("expected material change when prev is nil")
	}
}

func TestScenarioSharpFirstMover(t *testing.T) {
	s := newService()
	t0 := time.Now()

	initial := []models.BookSnapshot{
		snap("pinnacle", 3.0, t0),
		snap("draftkings", 3.0, t0),
	}
	prev := s.Create("evt1", "spreads", initial, nil)

	moved := []models.BookSnapshot{
		snap("pinnacle", 4.5, t0),
		snap("circa", 4.5, t0.Add(30*time.Second)),
		snap("draftkings", 4.5, t0.Add(time.Minute)),
		snap("betmgm", 4.5, t0.Add(90*time.Second)),
	}
	fp := s.Create("evt1", "spreads", moved, &prev)

	if !fp.ConsensusLine.Equal(decimal.NewFromFloat(4.5)) {
		t.Errorf("ConsensusLine = %s, want 4.5", fp.ConsensusLine)
	}
	if !fp.DeltaMagnitude.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("DeltaMagnitude = %s, want 1.5", fp.DeltaMagnitude)
	}
	if fp.FirstMoverBook != "pinnacle" {
		t.Errorf("FirstMoverBook = %s, want pinnacle (earliest mover)", fp.FirstMoverBook)
	}
	if fp.FirstMoverTier != models.BookTierSharp {
		t.Errorf("FirstMoverTier = %s, want sharp", fp.FirstMoverTier)
	}
}

func TestScenarioReversal(t *testing.T) {
	s := newService()
	t0 := time.Now()

	fp1 := s.Create("evt1", "spreads", []models.BookSnapshot{snap("pinnacle", 3.0, t0)}, nil)
	fp2 := s.Create("evt1", "spreads", []models.BookSnapshot{snap("pinnacle", 4.0, t0.Add(time.Minute))}, &fp1)
	fp3 := s.Create("evt1", "spreads", []models.BookSnapshot{snap("pinnacle", 3.5, t0.Add(2*time.Minute))}, &fp2)

	if fp3.LastReversalTime.Equal(fp2.LastReversalTime) {
		t.Error("expected lastReversalTime to update when delta sign flips")
	}
	if fp3.StabilityWindow != 0 {
		t.Errorf("StabilityWindow = %s, want 0 right after a reversal", fp3.StabilityWindow)
	}
}
