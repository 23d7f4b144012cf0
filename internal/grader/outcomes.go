package grader

import (
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/pkg/models"
)

// gradeMarket computes the Outcome for a single market's closing line
// against the final score, dispatching on the market's shape. ok is false
// when no grading rule is defined for this shape/period combination.
func gradeMarket(market models.MarketDefinition, line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	if market.Period != "" {
		// Period-specific grading needs the period's own final score, which
		// the provider's scores endpoint doesn't expose (see
		// provider.PeriodScoresAvailable, checked by the caller before this
		// is reached for sports that lack it). For sports where it is
		// available, the full-game score is not the right input — tracked
		// as a gap until period scores are wired into provider.ScoreEvent.
		return "", false
	}

	switch market.Key {
	case "team_totals":
		// TODO: grading a team total needs the scoring team's own points,
		// not homeScore+awayScore; provider.ScoreEvent doesn't split scoring
		// by side of a team-total line. Left unresolved rather than guessed.
		return models.OutcomeStable, true
	case "odd_even":
		// TODO: same gap for odd/even — needs the specific total the line
		// refers to, not assumed to be homeScore+awayScore.
		return models.OutcomeStable, true
	}

	switch market.OutcomeType {
	case models.OutcomeTypeOverUnder:
		return gradeOverUnder(line, homeScore, awayScore)
	case models.OutcomeTypeTeamBased:
		return gradeTeamBased(market, line, homeScore, awayScore)
	case models.OutcomeTypeYesNo:
		return gradeYesNo(line, homeScore, awayScore)
	case models.OutcomeTypeNamed:
		return gradeNamed(line, homeScore, awayScore)
	default:
		return "", false
	}
}

func gradeOverUnder(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	total := decimal.NewFromInt(int64(homeScore + awayScore))
	switch {
	case total.GreaterThan(line):
		return models.OutcomeExtended, true
	case total.LessThan(line):
		return models.OutcomeReverted, true
	default:
		return models.OutcomeStable, true
	}
}

// gradeTeamBased grades spread, moneyline, and draw-no-bet markets — the
// three team_based shapes distinguished by market.Key, since
// OutcomeType alone doesn't separate them.
func gradeTeamBased(market models.MarketDefinition, line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	switch {
	case isSpreadMarket(market):
		return gradeSpread(line, homeScore, awayScore)
	case isDrawNoBetMarket(market):
		return gradeDrawNoBet(line, homeScore, awayScore)
	default:
		return gradeMoneyline(line, homeScore, awayScore)
	}
}

func gradeSpread(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	margin := decimal.NewFromInt(int64(homeScore - awayScore))
	adjusted := margin.Add(line)
	switch {
	case adjusted.IsPositive():
		return models.OutcomeExtended, true
	case adjusted.IsNegative():
		return models.OutcomeReverted, true
	default:
		return models.OutcomeStable, true
	}
}

func gradeMoneyline(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	if homeScore == awayScore {
		return models.OutcomeStable, true
	}
	homeWon := homeScore > awayScore
	favoriteWon := homeWon == line.IsNegative()
	if favoriteWon {
		return models.OutcomeStable, true
	}
	return models.OutcomeReverted, true
}

func gradeDrawNoBet(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	if homeScore == awayScore {
		return models.OutcomeStable, true
	}
	return gradeMoneyline(line, homeScore, awayScore)
}

func gradeYesNo(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	bothScored := homeScore > 0 && awayScore > 0
	yesSideBet := line.IsPositive()
	if yesSideBet == bothScored {
		return models.OutcomeStable, true
	}
	return models.OutcomeReverted, true
}

func gradeNamed(line decimal.Decimal, homeScore, awayScore int) (models.Outcome, bool) {
	if homeScore == awayScore {
		return models.OutcomeReverted, true
	}
	return gradeMoneyline(line, homeScore, awayScore)
}

func isSpreadMarket(market models.MarketDefinition) bool {
	return market.Key == "spreads" || market.Key == "alternate_spreads" || market.Key == "spreads_1h"
}

func isDrawNoBetMarket(market models.MarketDefinition) bool {
	return market.Key == "draw_no_bet"
}
