// Package normalizer turns a raw provider Event plus a MarketDefinition
// into the pipeline's uniform BookSnapshot shape, one per book that offers
// the market.
package normalizer

import (
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
)

// Normalizer converts provider wire data into BookSnapshots, consulting the
// registry for bookmaker tier classification.
type Normalizer struct {
	registry *registry.Registry
}

// New builds a Normalizer backed by reg.
func New(reg *registry.Registry) *Normalizer {
	return &Normalizer{registry: reg}
}

// Snapshots returns one BookSnapshot per book offering market on event,
// dispatching by the market's OutcomeType per spec.md §4.4. Player-prop
// markets instead return one snapshot per (book, player) via
// PlayerSnapshots.
func (n *Normalizer) Snapshots(event provider.Event, market models.MarketDefinition) []models.BookSnapshot {
	if market.IsPlayerProp {
		return n.PlayerSnapshots(event, market)
	}

	out := make([]models.BookSnapshot, 0, len(event.Bookmakers))
	for _, bm := range event.Bookmakers {
		pm := findMarket(bm, market.Key)
		if pm == nil {
			continue
		}

		snap, ok := n.normalizeGameMarket(event, bm, *pm, market)
		if !ok {
			continue
		}
		out = append(out, snap)
	}
	return out
}

func (n *Normalizer) normalizeGameMarket(event provider.Event, bm provider.Bookmaker, pm provider.Market, market models.MarketDefinition) (models.BookSnapshot, bool) {
	snap := models.BookSnapshot{
		EventID:       event.ID,
		MarketKey:     market.Key,
		BookmakerKey:  bm.Key,
		BookmakerTier: n.registry.BookmakerTier(bm.Key),
		Timestamp:     pm.LastUpdate,
	}

	switch market.OutcomeType {
	case models.OutcomeTypeOverUnder:
		over := findOutcomeByName(pm.Outcomes, "Over")
		under := findOutcomeByName(pm.Outcomes, "Under")
		if over == nil {
			return models.BookSnapshot{}, false
		}
		snap.Line = pointOf(over)
		snap.PrimaryOdds = over.Price
		if under != nil {
			snap.SecondaryOdds = under.Price
		}
		return snap, true

	case models.OutcomeTypeTeamBased:
		if market.Key == "h2h" {
			home := findOutcomeByName(pm.Outcomes, event.HomeTeam)
			away := findOutcomeByName(pm.Outcomes, event.AwayTeam)
			if home == nil {
				return models.BookSnapshot{}, false
			}
			snap.Line = decimal.Zero
			snap.PrimaryOdds = home.Price
			if away != nil {
				snap.SecondaryOdds = away.Price
			}
			return snap, true
		}

		// Spread/handicap/draw-no-bet: primary=home, secondary=away.
		home := findOutcomeByName(pm.Outcomes, event.HomeTeam)
		away := findOutcomeByName(pm.Outcomes, event.AwayTeam)
		if home == nil {
			return models.BookSnapshot{}, false
		}
		snap.Line = pointOf(home)
		snap.PrimaryOdds = home.Price
		if away != nil {
			snap.SecondaryOdds = away.Price
		}
		return snap, true

	case models.OutcomeTypeYesNo:
		yes := findOutcomeByName(pm.Outcomes, "Yes")
		no := findOutcomeByName(pm.Outcomes, "No")
		if yes == nil {
			return models.BookSnapshot{}, false
		}
		snap.Line = decimal.Zero
		snap.PrimaryOdds = yes.Price
		if no != nil {
			snap.SecondaryOdds = no.Price
		}
		return snap, true

	case models.OutcomeTypeNamed:
		home := findOutcomeByName(pm.Outcomes, event.HomeTeam)
		away := findOutcomeByName(pm.Outcomes, event.AwayTeam)
		if home == nil {
			return models.BookSnapshot{}, false
		}
		snap.Line = decimal.Zero
		snap.PrimaryOdds = home.Price
		if away != nil {
			snap.SecondaryOdds = away.Price
		}
		return snap, true
	}

	return models.BookSnapshot{}, false
}

// PlayerSnapshots groups a player-prop market's outcomes by player
// description and emits one BookSnapshot per (book, player).
func (n *Normalizer) PlayerSnapshots(event provider.Event, market models.MarketDefinition) []models.BookSnapshot {
	out := make([]models.BookSnapshot, 0)

	for _, bm := range event.Bookmakers {
		pm := findMarket(bm, market.Key)
		if pm == nil {
			continue
		}

		byPlayer := make(map[string][]provider.Outcome)
		for _, o := range pm.Outcomes {
			byPlayer[o.Description] = append(byPlayer[o.Description], o)
		}

		for player, outcomes := range byPlayer {
			if player == "" {
				continue
			}
			over := findOutcomeByName(outcomes, "Over")
			if over == nil {
				continue
			}
			under := findOutcomeByName(outcomes, "Under")

			snap := models.BookSnapshot{
				EventID:       event.ID,
				MarketKey:     market.Key,
				BookmakerKey:  bm.Key,
				BookmakerTier: n.registry.BookmakerTier(bm.Key),
				Timestamp:     pm.LastUpdate,
				Line:          pointOf(over),
				PrimaryOdds:   over.Price,
				PlayerName:    player,
			}
			if under != nil {
				snap.SecondaryOdds = under.Price
			}
			out = append(out, snap)
		}
	}
	return out
}

func findMarket(bm provider.Bookmaker, key string) *provider.Market {
	for i := range bm.Markets {
		if bm.Markets[i].Key == key {
			return &bm.Markets[i]
		}
	}
	return nil
}

func findOutcomeByName(outcomes []provider.Outcome, name string) *provider.Outcome {
	for i := range outcomes {
		if outcomes[i].Name == name {
			return &outcomes[i]
		}
	}
	return nil
}

func pointOf(o *provider.Outcome) decimal.Decimal {
	if o.Point == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*o.Point)
}
