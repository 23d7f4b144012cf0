package grader

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/pkg/models"
)

func overUnderMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "totals", OutcomeType: models.OutcomeTypeOverUnder}
}

func spreadMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "spreads", OutcomeType: models.OutcomeTypeTeamBased}
}

func moneylineMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "h2h", OutcomeType: models.OutcomeTypeTeamBased}
}

func drawNoBetMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "draw_no_bet", OutcomeType: models.OutcomeTypeTeamBased}
}

func threeWayMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "h2h_3_way", OutcomeType: models.OutcomeTypeNamed}
}

func bttsMarket() models.MarketDefinition {
	return models.MarketDefinition{Key: "btts", OutcomeType: models.OutcomeTypeYesNo}
}

func TestGradeTotalExtended(t *testing.T) {
	outcome, ok := gradeMarket(overUnderMarket(), decimal.RequireFromString("47.5"), 24, 28)
	if !ok || outcome != models.OutcomeExtended {
		t.Errorf("got (%s, %v), want (Extended, true)", outcome, ok)
	}
}

func TestGradeTotalReverted(t *testing.T) {
	outcome, ok := gradeMarket(overUnderMarket(), decimal.RequireFromString("47.5"), 20, 24)
	if !ok || outcome != models.OutcomeReverted {
		t.Errorf("got (%s, %v), want (Reverted, true)", outcome, ok)
	}
}

func TestGradeTotalStablePush(t *testing.T) {
	outcome, ok := gradeMarket(overUnderMarket(), decimal.RequireFromString("47"), 23, 24)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeSpreadExtended(t *testing.T) {
	// home closing line -3.5, home wins 27-20, margin +7: adjusted = 7 + (-3.5) = 3.5 > 0
	outcome, ok := gradeMarket(spreadMarket(), decimal.RequireFromString("-3.5"), 27, 20)
	if !ok || outcome != models.OutcomeExtended {
		t.Errorf("got (%s, %v), want (Extended, true)", outcome, ok)
	}
}

func TestGradeSpreadReverted(t *testing.T) {
	// margin +3 against -3.5 line: adjusted = 3 - 3.5 = -0.5 < 0
	outcome, ok := gradeMarket(spreadMarket(), decimal.RequireFromString("-3.5"), 23, 20)
	if !ok || outcome != models.OutcomeReverted {
		t.Errorf("got (%s, %v), want (Reverted, true)", outcome, ok)
	}
}

func TestGradeSpreadPushOnIntegerLine(t *testing.T) {
	outcome, ok := gradeMarket(spreadMarket(), decimal.RequireFromString("-3"), 23, 20)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeMoneylineFavoriteWon(t *testing.T) {
	// negative line = home favorite; home wins
	outcome, ok := gradeMarket(moneylineMarket(), decimal.RequireFromString("-150"), 24, 20)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeMoneylineUnderdogWon(t *testing.T) {
	outcome, ok := gradeMarket(moneylineMarket(), decimal.RequireFromString("-150"), 17, 24)
	if !ok || outcome != models.OutcomeReverted {
		t.Errorf("got (%s, %v), want (Reverted, true)", outcome, ok)
	}
}

func TestGradeMoneylineTieIsStable(t *testing.T) {
	outcome, ok := gradeMarket(moneylineMarket(), decimal.RequireFromString("+120"), 20, 20)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeDrawNoBetDraw(t *testing.T) {
	outcome, ok := gradeMarket(drawNoBetMarket(), decimal.RequireFromString("-120"), 1, 1)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeThreeWayDrawIsReverted(t *testing.T) {
	outcome, ok := gradeMarket(threeWayMarket(), decimal.RequireFromString("+250"), 1, 1)
	if !ok || outcome != models.OutcomeReverted {
		t.Errorf("got (%s, %v), want (Reverted, true)", outcome, ok)
	}
}

func TestGradeBTTSYesSideHit(t *testing.T) {
	outcome, ok := gradeMarket(bttsMarket(), decimal.RequireFromString("120"), 1, 2)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradeBTTSYesSideMissed(t *testing.T) {
	outcome, ok := gradeMarket(bttsMarket(), decimal.RequireFromString("120"), 0, 2)
	if !ok || outcome != models.OutcomeReverted {
		t.Errorf("got (%s, %v), want (Reverted, true)", outcome, ok)
	}
}

func TestGradeTeamTotalsReturnsStableTodo(t *testing.T) {
	outcome, ok := gradeMarket(models.MarketDefinition{Key: "team_totals", OutcomeType: models.OutcomeTypeOverUnder}, decimal.RequireFromString("24.5"), 24, 28)
	if !ok || outcome != models.OutcomeStable {
		t.Errorf("got (%s, %v), want (Stable, true)", outcome, ok)
	}
}

func TestGradePeriodMarketSkipped(t *testing.T) {
	_, ok := gradeMarket(models.MarketDefinition{Key: "spreads_1h", Period: "1h", OutcomeType: models.OutcomeTypeTeamBased}, decimal.RequireFromString("-2.5"), 24, 20)
	if ok {
		t.Errorf("expected period-specific market to have no grading rule here")
	}
}
