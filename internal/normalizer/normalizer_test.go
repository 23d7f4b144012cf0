package normalizer_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/normalizer"
	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

func newNormalizer() *normalizer.Normalizer {
	reg := registry.New(registry.DefaultSeed{}, nil, zerolog.Nop())
	return normalizer.New(reg)
}

func pt(v float64) *float64 { return &v }

func TestSnapshotsOverUnder(t *testing.T) {
	n := newNormalizer()
	now := time.Now()

	event := provider.Event{
		ID: "evt1", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Bookmakers: []provider.Bookmaker{
			{
				Key: "draftkings", LastUpdate: now,
				Markets: []provider.Market{
					{
						Key: "totals", LastUpdate: now,
						Outcomes: []provider.Outcome{
							{Name: "Over", Price: -110, Point: pt(220.5)},
							{Name: "Under", Price: -110, Point: pt(220.5)},
						},
					},
				},
			},
		},
	}

	market := models.MarketDefinition{Key: "totals", OutcomeType: models.OutcomeTypeOverUnder}
	snaps := n.Snapshots(event, market)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if !snaps[0].Line.Equal(decimal.NewFromFloat(220.5)) {
		t.Errorf("Line = %s, want 220.5", snaps[0].Line)
	}
	if snaps[0].PrimaryOdds != -110 {
		t.Errorf("PrimaryOdds = %d, want -110", snaps[0].PrimaryOdds)
	}
	if snaps[0].BookmakerTier != models.BookTierMarket {
		t.Errorf("BookmakerTier = %s, want market", snaps[0].BookmakerTier)
	}
}

func TestSnapshotsSpreadMissingPrimarySkipped(t *testing.T) {
	n := newNormalizer()
	now := time.Now()

	event := provider.Event{
		ID: "evt2", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Bookmakers: []provider.Bookmaker{
			{
				Key: "unknownbook", LastUpdate: now,
				Markets: []provider.Market{
					{
						Key: "spreads", LastUpdate: now,
						Outcomes: []provider.Outcome{
							{Name: "Celtics", Price: -108, Point: pt(3.5)},
						},
					},
				},
			},
		},
	}

	market := models.MarketDefinition{Key: "spreads", OutcomeType: models.OutcomeTypeTeamBased}
	snaps := n.Snapshots(event, market)
	if len(snaps) != 0 {
		t.Fatalf("expected missing home outcome to be skipped, got %d snapshots", len(snaps))
	}
}

func TestSnapshotsUnknownBookIsRetail(t *testing.T) {
	n := newNormalizer()
	now := time.Now()

	event := provider.Event{
		ID: "evt3", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Bookmakers: []provider.Bookmaker{
			{
				Key: "some_offshore_book", LastUpdate: now,
				Markets: []provider.Market{
					{
						Key: "spreads", LastUpdate: now,
						Outcomes: []provider.Outcome{
							{Name: "Lakers", Price: -108, Point: pt(-3.5)},
							{Name: "Celtics", Price: -112, Point: pt(3.5)},
						},
					},
				},
			},
		},
	}

	market := models.MarketDefinition{Key: "spreads", OutcomeType: models.OutcomeTypeTeamBased}
	snaps := n.Snapshots(event, market)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].BookmakerTier != models.BookTierRetail {
		t.Errorf("BookmakerTier = %s, want retail for unknown book", snaps[0].BookmakerTier)
	}
}

func TestPlayerSnapshotsGroupsByPlayer(t *testing.T) {
	n := newNormalizer()
	now := time.Now()

	event := provider.Event{
		ID: "evt4", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Bookmakers: []provider.Bookmaker{
			{
				Key: "draftkings", LastUpdate: now,
				Markets: []provider.Market{
					{
						Key: "player_points_totals", LastUpdate: now,
						Outcomes: []provider.Outcome{
							{Name: "Over", Price: -115, Point: pt(27.5), Description: "LeBron James"},
							{Name: "Under", Price: -105, Point: pt(27.5), Description: "LeBron James"},
							{Name: "Over", Price: -110, Point: pt(18.5), Description: "Jayson Tatum"},
							{Name: "Under", Price: -110, Point: pt(18.5), Description: "Jayson Tatum"},
						},
					},
				},
			},
		},
	}

	market := models.MarketDefinition{Key: "player_points_totals", OutcomeType: models.OutcomeTypeOverUnder, IsPlayerProp: true}
	snaps := n.Snapshots(event, market)
	if len(snaps) != 2 {
		t.Fatalf("expected 2 player snapshots, got %d", len(snaps))
	}
	for _, s := range snaps {
		if s.PlayerName == "" {
			t.Error("expected PlayerName to be set on player-prop snapshot")
		}
	}
}
