package pricing

import (
	"errors"
	"math"
	"sort"
)

// ErrOverflow means a price does not fit in an int.
var ErrOverflow = errors.New("pricing: cost overflows")

// CostTable maps a draw count to its currency price, e.g. {1: 160, 10: 1600}.
type CostTable struct {
	Prices map[int]int
	// Auto derives untabulated counts as Prices[1] * count.
	Auto bool
}

// NewCostTable drops non-positive counts and prices.
func NewCostTable(prices map[int]int, auto bool) CostTable {
	out := make(map[int]int, len(prices))
	for n, p := range prices {
		if n > 0 && p > 0 {
			out[n] = p
		}
	}
	return CostTable{Prices: out, Auto: auto}
}

// Cost returns the price of count draws:
// exact entry first, then Prices[1]*count when Auto, otherwise 0 (free).
// A derived price that would overflow is ErrOverflow, never free.
func (c CostTable) Cost(count int) (int, error) {
	if count <= 0 || len(c.Prices) == 0 {
		return 0, nil
	}
	if p, ok := c.Prices[count]; ok {
		return p, nil
	}
	if single := c.Prices[1]; c.Auto && single > 0 {
		if count > math.MaxInt/single {
			return 0, ErrOverflow
		}
		return single * count, nil
	}
	return 0, nil
}

// Counts lists tabulated draw counts in ascending order (menus offer these).
func (c CostTable) Counts() []int {
	out := make([]int, 0, len(c.Prices))
	for n := range c.Prices {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
