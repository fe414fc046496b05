package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestCost(t *testing.T) {
	auto := NewCostTable(map[int]int{1: 160, 10: 1600}, true)
	manual := NewCostTable(map[int]int{1: 160, 10: 1500}, false)
	noSingle := NewCostTable(map[int]int{10: 1500}, true)

	tests := []struct {
		name  string
		table CostTable
		count int
		want  int
	}{
		{"exact single", auto, 1, 160},
		{"exact ten", manual, 10, 1500},
		{"auto derive", auto, 3, 480},
		{"manual untabulated is free", manual, 3, 0},
		{"auto without single price", noSingle, 3, 0},
		{"zero count", auto, 0, 0},
		{"negative count", auto, -2, 0},
		{"empty table", CostTable{}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.table.Cost(tt.count)
			if err != nil || got != tt.want {
				t.Fatalf("Cost(%d)=%d,%v want %d", tt.count, got, err, tt.want)
			}
		})
	}
}

func TestNewCostTableDropsInvalid(t *testing.T) {
	c := NewCostTable(map[int]int{0: 10, -1: 5, 5: 0, 2: 300}, false)
	if len(c.Prices) != 1 || c.Prices[2] != 300 {
		t.Fatalf("prices=%v", c.Prices)
	}
	if got := c.Counts(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("counts=%v", got)
	}
}

func TestCostOverflowIsAnError(t *testing.T) {
	auto := NewCostTable(map[int]int{1: 100}, true)
	for _, n := range []int{1 << 62, math.MaxInt/100 + 1, math.MaxInt} {
		if got, err := auto.Cost(n); !errors.Is(err, ErrOverflow) || got != 0 {
			t.Fatalf("Cost(%d)=%d,%v want ErrOverflow", n, got, err)
		}
	}
	if got, err := auto.Cost(math.MaxInt / 100); err != nil || got != math.MaxInt/100*100 {
		t.Fatalf("largest representable = %d,%v", got, err)
	}
	// an exact price never multiplies
	exact := NewCostTable(map[int]int{1 << 40: 7}, true)
	if got, err := exact.Cost(1 << 40); err != nil || got != 7 {
		t.Fatalf("exact = %d,%v", got, err)
	}
}
