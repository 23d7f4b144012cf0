package registry_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

func newTestRegistry() *registry.Registry {
	return registry.New(registry.DefaultSeed{}, nil, zerolog.Nop())
}

func TestCanAccessMarketMonotoneInTier(t *testing.T) {
	r := newTestRegistry()

	for _, marketKey := range []string{"spreads", "btts", "alternate_spreads", "player_points_totals"} {
		var lastAccess bool
		for tier := models.TierStarter; tier <= models.TierSharp; tier++ {
			access := r.CanAccessMarket(tier, marketKey)
			if lastAccess && !access {
				t.Errorf("market %q: access revoked going from a lower to higher tier (tier=%s)", marketKey, tier)
			}
			lastAccess = access
		}
		if !r.CanAccessMarket(models.TierSharp, marketKey) {
			t.Errorf("market %q: Sharp tier should always have access", marketKey)
		}
	}
}

func TestCanAccessMarketUnknownKey(t *testing.T) {
	r := newTestRegistry()
	if r.CanAccessMarket(models.TierSharp, "does_not_exist") {
		t.Error("expected no access for unknown market key")
	}
}

func TestBookmakerTierUnknownDefaultsRetail(t *testing.T) {
	r := newTestRegistry()
	if got := r.BookmakerTier("some_unlisted_book"); got != models.BookTierRetail {
		t.Errorf("BookmakerTier(unknown) = %s, want retail", got)
	}
}

func TestResolveMarketByKeywordSpecificity(t *testing.T) {
	r := newTestRegistry()

	m, ok := r.ResolveMarketByKeyword("player points", "basketball_nba")
	if !ok {
		t.Fatal("expected a match")
	}
	if !m.IsPlayerProp {
		t.Errorf("expected player-prop market to win specificity ranking, got %q", m.Key)
	}
}

func TestResolveSportByKeyword(t *testing.T) {
	r := newTestRegistry()

	s, ok := r.ResolveSportByKeyword("nba basketball")
	if !ok {
		t.Fatal("expected a match")
	}
	if s.Key != "basketball_nba" {
		t.Errorf("ResolveSportByKeyword = %q, want basketball_nba", s.Key)
	}
}
