package oddsmath

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// LowerMedian returns the robust median of a set of lines. For an odd count
// it's the middle value; for an even count it takes the lower of the two
// middle values rather than averaging them, so the consensus line always
// equals a line some book actually posted.
func LowerMedian(lines []decimal.Decimal) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, fmt.Errorf("oddsmath: cannot take median of zero lines")
	}

	sorted := make([]decimal.Decimal, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}

	return sorted[n/2-1], nil
}
