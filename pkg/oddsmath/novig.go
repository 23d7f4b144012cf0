package oddsmath

import "fmt"

// TwoWayMarket represents a two-outcome market with implied probabilities.
type TwoWayMarket struct {
	Prob1 float64
	Prob2 float64
}

// RemoveVigMultiplicative removes vig from two-way markets (spreads, totals,
// two-outcome moneylines) by normalizing implied probabilities so they sum
// to 1.0.
func RemoveVigMultiplicative(prob1, prob2 float64) (fair1, fair2 float64, err error) {
	if prob1 <= 0 || prob1 >= 1 || prob2 <= 0 || prob2 >= 1 {
		return 0, 0, fmt.Errorf("probabilities must be between 0 and 1")
	}

	total := prob1 + prob2
	if total <= 1.0 {
		return 0, 0, fmt.Errorf("no vig detected: probabilities sum to <= 1.0")
	}

	return prob1 / total, prob2 / total, nil
}

// RemoveVigAdditive removes vig from three-way markets (moneylines with a
// draw outcome) by subtracting an equal share of the overround from each
// outcome.
func RemoveVigAdditive(probabilities []float64) ([]float64, error) {
	if len(probabilities) < 2 {
		return nil, fmt.Errorf("need at least 2 outcomes")
	}

	total := 0.0
	for _, p := range probabilities {
		if p <= 0 || p >= 1 {
			return nil, fmt.Errorf("all probabilities must be between 0 and 1")
		}
		total += p
	}

	if total <= 1.0 {
		return nil, fmt.Errorf("no vig detected: probabilities sum to <= 1.0")
	}

	vigPerOutcome := (total - 1.0) / float64(len(probabilities))
	fair := make([]float64, len(probabilities))
	for i, p := range probabilities {
		fair[i] = p - vigPerOutcome
	}

	return fair, nil
}

// CalculateVigPercentage reports the overround of a market as a percentage.
func CalculateVigPercentage(probabilities []float64) (float64, error) {
	if len(probabilities) == 0 {
		return 0, fmt.Errorf("no probabilities provided")
	}

	total := 0.0
	for _, p := range probabilities {
		if p <= 0 || p >= 1 {
			return 0, fmt.Errorf("all probabilities must be between 0 and 1")
		}
		total += p
	}

	if total <= 1.0 {
		return 0, nil
	}

	return (total - 1.0) * 100.0, nil
}
