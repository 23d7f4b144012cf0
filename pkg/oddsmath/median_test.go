package oddsmath_test

import (
	"testing"

	"github.com/driftline/sentry/pkg/oddsmath"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decs(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i] = dec(s)
	}
	return out
}

func TestLowerMedianOddCount(t *testing.T) {
	got, err := oddsmath.LowerMedian(decs("-3.5", "-3", "-2.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("-3")) {
		t.Errorf("LowerMedian() = %s, want -3", got)
	}
}

func TestLowerMedianEvenCountTakesLower(t *testing.T) {
	got, err := oddsmath.LowerMedian(decs("-4", "-3.5", "-3", "-2.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("-3.5")) {
		t.Errorf("LowerMedian() = %s, want -3.5 (lower of the two middle values)", got)
	}
}

func TestLowerMedianSingleValue(t *testing.T) {
	got, err := oddsmath.LowerMedian(decs("6.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("6.5")) {
		t.Errorf("LowerMedian() = %s, want 6.5", got)
	}
}

func TestLowerMedianUnsortedInput(t *testing.T) {
	got, err := oddsmath.LowerMedian(decs("1", "-5", "3", "-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// sorted: -5, -1, 1, 3 -> lower of middle two is -1
	if !got.Equal(dec("-1")) {
		t.Errorf("LowerMedian() = %s, want -1", got)
	}
}

func TestLowerMedianEmpty(t *testing.T) {
	if _, err := oddsmath.LowerMedian(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"Positive odds +150", 150, 2.5},
		{"Negative odds -150", -150, 1.666666667},
		{"Negative odds -110", -110, 1.909090909},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.AmericanToDecimal(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := got - tt.want; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("AmericanToDecimal(%d) = %f, want %f", tt.american, got, tt.want)
			}
		})
	}
}

func TestAmericanToDecimalZero(t *testing.T) {
	if _, err := oddsmath.AmericanToDecimal(0); err == nil {
		t.Error("expected error for zero American odds")
	}
}

func TestRemoveVigMultiplicative(t *testing.T) {
	fair1, fair2, err := oddsmath.RemoveVigMultiplicative(0.5238, 0.5238)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := (fair1 + fair2) - 1.0; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("fair probabilities should sum to 1.0, got %f", fair1+fair2)
	}
	if diff := fair1 - 0.5; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("symmetric market should be fair1=0.5, got %f", fair1)
	}
}
