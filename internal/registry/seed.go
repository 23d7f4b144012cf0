package registry

import "github.com/driftline/sentry/pkg/models"

// DefaultSeed is a representative, hand-maintained seed so the registry is
// usable standalone without the (out-of-scope) external reference-data
// loader wired up.
type DefaultSeed struct{}

func (DefaultSeed) Sports() []models.Sport {
	return []models.Sport{
		{
			Key: "americanfootball_nfl", DisplayName: "NFL", Category: "football",
			PeriodStructure: models.PeriodStructureQuarters, IsActive: true,
			Keywords: []string{"nfl", "football"},
		},
		{
			Key: "basketball_nba", DisplayName: "NBA", Category: "basketball",
			PeriodStructure: models.PeriodStructureQuarters, IsActive: true,
			Keywords: []string{"nba", "basketball"},
		},
		{
			Key: "baseball_mlb", DisplayName: "MLB", Category: "baseball",
			PeriodStructure: models.PeriodStructureInnings, IsActive: true,
			Keywords: []string{"mlb", "baseball"},
		},
		{
			Key: "icehockey_nhl", DisplayName: "NHL", Category: "hockey",
			PeriodStructure: models.PeriodStructurePeriods, IsActive: true,
			Keywords: []string{"nhl", "hockey"},
		},
		{
			Key: "soccer_epl", DisplayName: "Premier League", Category: "soccer",
			PeriodStructure: models.PeriodStructureHalves, IsActive: true,
			Keywords: []string{"epl", "soccer", "premier league"},
		},
	}
}

func (DefaultSeed) Markets() []models.MarketDefinition {
	return []models.MarketDefinition{
		{Key: "spreads", DisplayName: "Point Spread", Category: "game", OutcomeType: models.OutcomeTypeTeamBased, RequiredTier: models.TierStarter, Keywords: []string{"spread", "handicap", "line"}},
		{Key: "totals", DisplayName: "Total Points", Category: "game", OutcomeType: models.OutcomeTypeOverUnder, RequiredTier: models.TierStarter, Keywords: []string{"total", "over", "under", "o/u"}},
		{Key: "h2h", DisplayName: "Moneyline", Category: "game", OutcomeType: models.OutcomeTypeTeamBased, RequiredTier: models.TierStarter, Keywords: []string{"moneyline", "ml", "winner"}},
		{Key: "h2h_3_way", DisplayName: "Moneyline (3-way)", Category: "game", OutcomeType: models.OutcomeTypeNamed, RequiredTier: models.TierCore, Keywords: []string{"3-way", "draw", "moneyline"}},
		{Key: "draw_no_bet", DisplayName: "Draw No Bet", Category: "game", OutcomeType: models.OutcomeTypeTeamBased, RequiredTier: models.TierCore, Keywords: []string{"dnb", "draw no bet"}},
		{Key: "btts", DisplayName: "Both Teams To Score", Category: "game", OutcomeType: models.OutcomeTypeYesNo, RequiredTier: models.TierCore, Keywords: []string{"btts", "both teams to score"}},
		{Key: "spreads_1h", DisplayName: "1st Half Spread", Category: "period", OutcomeType: models.OutcomeTypeTeamBased, RequiredTier: models.TierCore, Period: "1h", Keywords: []string{"1st half spread", "first half spread"}},
		{Key: "totals_1h", DisplayName: "1st Half Total", Category: "period", OutcomeType: models.OutcomeTypeOverUnder, RequiredTier: models.TierCore, Period: "1h", Keywords: []string{"1st half total", "first half total"}},
		{Key: "alternate_spreads", DisplayName: "Alternate Spreads", Category: "game", OutcomeType: models.OutcomeTypeTeamBased, RequiredTier: models.TierSharp, IsAlternate: true, Keywords: []string{"alt spread", "alternate spread"}},
		{Key: "team_totals", DisplayName: "Team Total Points", Category: "game", OutcomeType: models.OutcomeTypeOverUnder, RequiredTier: models.TierCore, Keywords: []string{"team total", "team over", "team under"}},
		{Key: "odd_even", DisplayName: "Odd/Even Total", Category: "game", OutcomeType: models.OutcomeTypeYesNo, RequiredTier: models.TierCore, Keywords: []string{"odd even", "odd/even"}},
		{Key: "player_points_totals", DisplayName: "Player Points O/U", Category: "props", OutcomeType: models.OutcomeTypeOverUnder, RequiredTier: models.TierSharp, IsPlayerProp: true, Keywords: []string{"player points", "points prop"}},
		{Key: "player_pass_yds_totals", DisplayName: "Player Passing Yards O/U", Category: "props", OutcomeType: models.OutcomeTypeOverUnder, RequiredTier: models.TierSharp, IsPlayerProp: true, Keywords: []string{"passing yards", "pass yards prop"}},
	}
}

func (DefaultSeed) Bookmakers() []models.Bookmaker {
	return []models.Bookmaker{
		{Key: "pinnacle", DisplayName: "Pinnacle", Tier: models.BookTierSharp, RequiredTier: models.TierSharp, Region: "eu", Keywords: []string{"pinnacle"}},
		{Key: "circa", DisplayName: "Circa Sports", Tier: models.BookTierSharp, RequiredTier: models.TierSharp, Region: "us", Keywords: []string{"circa"}},
		{Key: "betcris", DisplayName: "BetCRIS", Tier: models.BookTierSharp, RequiredTier: models.TierSharp, Region: "offshore", Keywords: []string{"betcris"}},
		{Key: "draftkings", DisplayName: "DraftKings", Tier: models.BookTierMarket, RequiredTier: models.TierStarter, Region: "us", Keywords: []string{"draftkings", "dk"}},
		{Key: "fanduel", DisplayName: "FanDuel", Tier: models.BookTierMarket, RequiredTier: models.TierStarter, Region: "us", Keywords: []string{"fanduel", "fd"}},
		{Key: "betmgm", DisplayName: "BetMGM", Tier: models.BookTierRetail, RequiredTier: models.TierStarter, Region: "us", Keywords: []string{"betmgm", "mgm"}},
		{Key: "caesars", DisplayName: "Caesars", Tier: models.BookTierRetail, RequiredTier: models.TierStarter, Region: "us", Keywords: []string{"caesars"}},
		{Key: "pointsbet", DisplayName: "PointsBet", Tier: models.BookTierRetail, RequiredTier: models.TierCore, Region: "us", Keywords: []string{"pointsbet"}},
	}
}
