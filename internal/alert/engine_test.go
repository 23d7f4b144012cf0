package alert

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

// testEngine builds an Engine against a cache pointed at an address nothing
// listens on. cache.Cache swallows every Redis error and degrades to its
// documented zero-value behavior, so classify/Evaluate exercise their real
// logic without a broker: prevLevel always reports ConfidenceLow, and
// ShouldSend/MarkSent become no-ops. Dedupe/cooldown persistence itself isn't
// exercised here since the pack carries no Redis-mocking library.
func testEngine(t *testing.T) *Engine {
	t.Helper()
	c := cache.New(config.CacheConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	return New(c, nil, config.AlertConfig{}, zerolog.Nop())
}

func sharpFingerprint() models.MarketFingerprint {
	return models.MarketFingerprint{
		EventID:        "evt1",
		MarketKey:      "spreads",
		FirstMoverTier: models.BookTierSharp,
		DeltaMagnitude: decimal.RequireFromString("0.5"),
	}
}

func TestClassifySharpActivity(t *testing.T) {
	e := testEngine(t)
	fp := sharpFingerprint()
	score := models.ConfidenceScore{Level: models.ConfidenceMedium}

	alertType, ok := e.classify(context.Background(), fp, score)
	if !ok || alertType != models.AlertTypeSharpActivity {
		t.Fatalf("got (%s, %v), want (SharpActivity, true)", alertType, ok)
	}
	if priorityFor(alertType, score.Level) != models.PriorityHigh {
		t.Errorf("expected High priority for medium-confidence sharp activity")
	}
}

func TestClassifySharpActivityUrgentAtHighConfidence(t *testing.T) {
	priority := priorityFor(models.AlertTypeSharpActivity, models.ConfidenceHigh)
	if priority != models.PriorityUrgent {
		t.Errorf("got %s, want Urgent", priority)
	}
}

func TestClassifyConfidenceEscalation(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{EventID: "evt1", MarketKey: "totals"}
	score := models.ConfidenceScore{Total: 82, Level: models.ConfidenceHigh}

	alertType, ok := e.classify(context.Background(), fp, score)
	if !ok || alertType != models.AlertTypeConfidenceEscalation {
		t.Fatalf("got (%s, %v), want (ConfidenceEscalation, true)", alertType, ok)
	}

	channels := channelsFor(alertType, score.Level)
	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2 (sharp+core)", len(channels))
	}

	alert, ok := e.Evaluate(context.Background(), fp, score)
	if !ok {
		t.Fatal("expected Evaluate to produce an alert")
	}
	if alert.Priority != models.PriorityHigh {
		t.Errorf("got priority %s, want High", alert.Priority)
	}
	if !alert.SendDirect {
		t.Error("expected SendDirect for high confidence alert")
	}
}

func TestClassifyConsensusFormed(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{
		EventID:         "evt1",
		MarketKey:       "totals",
		ConfirmingBooks: 6,
		DeltaMagnitude:  decimal.RequireFromString("0.2"),
	}
	score := models.ConfidenceScore{Level: models.ConfidenceMedium}

	alertType, ok := e.classify(context.Background(), fp, score)
	if !ok || alertType != models.AlertTypeConsensusFormed {
		t.Fatalf("got (%s, %v), want (ConsensusFormed, true)", alertType, ok)
	}
}

func TestClassifyNewMovement(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{
		EventID:        "evt1",
		MarketKey:      "totals",
		DeltaMagnitude: decimal.RequireFromString("1.5"),
	}
	score := models.ConfidenceScore{Level: models.ConfidenceLow}

	alertType, ok := e.classify(context.Background(), fp, score)
	if !ok || alertType != models.AlertTypeNewMovement {
		t.Fatalf("got (%s, %v), want (NewMovement, true)", alertType, ok)
	}
}

func TestClassifyReversalWithinWindow(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{
		EventID:          "evt1",
		MarketKey:        "totals",
		DeltaMagnitude:   decimal.RequireFromString("0.1"),
		LastReversalTime: time.Now().Add(-2 * time.Minute),
	}
	score := models.ConfidenceScore{Level: models.ConfidenceLow}

	alertType, ok := e.classify(context.Background(), fp, score)
	if !ok || alertType != models.AlertTypeReversal {
		t.Fatalf("got (%s, %v), want (Reversal, true)", alertType, ok)
	}
}

func TestClassifyReversalOutsideWindowDoesNotFire(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{
		EventID:          "evt1",
		MarketKey:        "totals",
		DeltaMagnitude:   decimal.RequireFromString("0.1"),
		LastReversalTime: time.Now().Add(-10 * time.Minute),
	}
	score := models.ConfidenceScore{Level: models.ConfidenceLow}

	_, ok := e.classify(context.Background(), fp, score)
	if ok {
		t.Fatal("expected no alert for a stale reversal")
	}
}

func TestClassifyNoRuleMatches(t *testing.T) {
	e := testEngine(t)
	fp := models.MarketFingerprint{
		EventID:        "evt1",
		MarketKey:      "totals",
		DeltaMagnitude: decimal.Zero,
	}
	score := models.ConfidenceScore{Level: models.ConfidenceLow}

	_, ok := e.classify(context.Background(), fp, score)
	if ok {
		t.Fatal("expected no alert for a quiet market")
	}
}

func TestLevelAtLeast(t *testing.T) {
	cases := []struct {
		level, floor models.ConfidenceLevel
		want         bool
	}{
		{models.ConfidenceHigh, models.ConfidenceMedium, true},
		{models.ConfidenceMedium, models.ConfidenceMedium, true},
		{models.ConfidenceLow, models.ConfidenceMedium, false},
		{models.ConfidenceHigh, models.ConfidenceHigh, true},
	}
	for _, c := range cases {
		if got := levelAtLeast(c.level, c.floor); got != c.want {
			t.Errorf("levelAtLeast(%s, %s) = %v, want %v", c.level, c.floor, got, c.want)
		}
	}
}

func TestDedupeKeyStableAcrossRepeatedTicks(t *testing.T) {
	// Simulates spec scenario 3: two ticks 30s apart producing the same
	// fingerprint/score should collapse to one dedupe key.
	e := testEngine(t)
	fp := sharpFingerprint()
	score := models.ConfidenceScore{Level: models.ConfidenceMedium}

	first, ok := e.Evaluate(context.Background(), fp, score)
	if !ok {
		t.Fatal("expected first tick to produce an alert")
	}

	second, ok := e.Evaluate(context.Background(), fp, score)
	if !ok {
		t.Fatal("expected second tick to produce an alert")
	}

	if first.DedupeKey() != second.DedupeKey() {
		t.Errorf("dedupe keys diverged across identical ticks: %s vs %s", first.DedupeKey(), second.DedupeKey())
	}
}

func TestCooldownForPriority(t *testing.T) {
	e := testEngine(t)
	if got := e.cooldownFor(models.PriorityUrgent); got != 2*time.Minute {
		t.Errorf("got %s, want 2m default sharp cooldown", got)
	}
	if got := e.cooldownFor(models.PriorityHigh); got != 5*time.Minute {
		t.Errorf("got %s, want 5m", got)
	}
	if got := e.cooldownFor(models.PriorityNormal); got != 15*time.Minute {
		t.Errorf("got %s, want 15m default cooldown", got)
	}

	e.cfg.SharpCooldown = 90 * time.Second
	e.cfg.Cooldown = 10 * time.Minute
	if got := e.cooldownFor(models.PriorityUrgent); got != 90*time.Second {
		t.Errorf("got %s, want configured 90s sharp cooldown", got)
	}
	if got := e.cooldownFor(models.PriorityNormal); got != 10*time.Minute {
		t.Errorf("got %s, want configured 10m cooldown", got)
	}
}
