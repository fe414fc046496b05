package gacha

import (
	"math"
	"testing"
)

func TestPickConvergesToWeights(t *testing.T) {
	wl := NewWeightedList(
		Leaf("a", 1),
		Leaf("b", 2),
		Leaf("c", 3),
		Leaf("d", 4),
	)
	const n = 100000
	f := SampleFrequencies(wl, n, NewSeededRNG(42))
	if f.DegreesOfFreedom != 3 {
		t.Fatalf("df=%d, want 3", f.DegreesOfFreedom)
	}
	// chi-squared critical value, df=3, alpha=0.001
	if f.ChiSquared > 16.266 {
		t.Fatalf("chi2=%f exceeds critical value; counts=%v", f.ChiSquared, f.Counts)
	}
	for i := range f.Counts {
		if diff := f.Observed(i) - f.Expected[i]; diff > 0.01 || diff < -0.01 {
			t.Fatalf("entry %s: observed %f expected %f", f.Keys[i], f.Observed(i), f.Expected[i])
		}
	}
}

func TestPickFallbackWhenNoPositiveWeight(t *testing.T) {
	wl := NewWeightedList(Leaf("first", 0), Leaf("second", -1), Leaf("last", 0))
	rng := NewSeededRNG(7)
	for i := 0; i < 100; i++ {
		got := wl.Pick(rng)
		if len(got.Actions) != 1 || got.Actions[0].Name != "last" {
			t.Fatalf("want fallback to last entry, got %+v", got)
		}
	}
}

func TestPickEmptyList(t *testing.T) {
	var nilList *WeightedList
	for _, wl := range []*WeightedList{NewWeightedList(), nilList} {
		got := wl.Pick(NewSeededRNG(1))
		if got.Display() != "no_reward x1" {
			t.Fatalf("empty list should yield no_reward, got %q", got.Display())
		}
	}
}

func TestPickSkipsNonPositiveEntries(t *testing.T) {
	wl := NewWeightedList(Leaf("never", 0), Leaf("always", 5), Leaf("neg", -3))
	if wl.TotalWeight() != 5 {
		t.Fatalf("total=%f, want 5", wl.TotalWeight())
	}
	rng := NewSeededRNG(3)
	for i := 0; i < 1000; i++ {
		if name := wl.Pick(rng).Actions[0].Name; name != "always" {
			t.Fatalf("draw %d picked %q", i, name)
		}
	}
}

func TestAppendRecomputesTotal(t *testing.T) {
	wl := NewWeightedList(Leaf("a", 1))
	wl.Append(Leaf("b", 2.5), Leaf("c", 0))
	if wl.TotalWeight() != 3.5 {
		t.Fatalf("total=%f, want 3.5", wl.TotalWeight())
	}
	if wl.Len() != 3 {
		t.Fatalf("len=%d, want 3", wl.Len())
	}
}

func TestNestedEntryRecurses(t *testing.T) {
	common := NewWeightedList(Leaf("iron", 1), Leaf("coal", 1))
	wl := NewWeightedList(Nested("common", 1, common))
	if wl.Entries()[0].Kind() != EntryNested {
		t.Fatalf("entry should be nested")
	}
	rng := NewSeededRNG(11)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		res := wl.Pick(rng)
		name := res.Actions[0].Name
		if name != "iron" && name != "coal" {
			t.Fatalf("nested pick returned %q", name)
		}
		seen[name] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected both sub items over 200 draws, saw %v", seen)
	}
}

func TestActionAmountRange(t *testing.T) {
	wl := NewWeightedList(Leaf("gold", 1, NewAction("gold", 2, 5, nil)))
	rng := NewSeededRNG(5)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		a := wl.Pick(rng).Actions[0]
		if a.Amount() < 2 || a.Amount() > 5 {
			t.Fatalf("amount %d out of [2,5]", a.Amount())
		}
		if a.MinAmount != a.MaxAmount {
			t.Fatalf("resolved action must have a fixed amount: %+v", a)
		}
		seen[a.Amount()] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected every amount in range, saw %v", seen)
	}
}

func TestNewActionClamps(t *testing.T) {
	a := NewAction("", 0, -4, nil)
	if a.Name != DefaultRewardName || a.MinAmount != 1 || a.MaxAmount != 1 {
		t.Fatalf("unexpected clamp: %+v", a)
	}
	b := NewAction("x", 3, 2, nil)
	if b.MinAmount != 3 || b.MaxAmount != 3 {
		t.Fatalf("max must be raised to min: %+v", b)
	}
}

func TestResultDisplay(t *testing.T) {
	r := Result{Actions: []Action{NewAction("diamond", 2, 2, nil), NewAction("coin", 10, 10, nil)}}
	if got := r.Display(); got != "diamond x2, coin x10" {
		t.Fatalf("display=%q", got)
	}
	upper := r.DisplayWith(func(s string) string { return "[" + s + "]" })
	if upper != "[diamond] x2, [coin] x10" {
		t.Fatalf("translated display=%q", upper)
	}
}

func TestGrantEachBounds(t *testing.T) {
	wl := NewWeightedList(Leaf("only", 1), Leaf("zero", 0))
	// single positive entry has chance 1
	got := wl.GrantEach(NewSeededRNG(9))
	if len(got) != 1 || got[0].Actions[0].Name != "only" {
		t.Fatalf("grant each = %+v", got)
	}
	if NewWeightedList(Leaf("z", 0)).GrantEach(NewSeededRNG(9)) != nil {
		t.Fatalf("no positive weight should grant nothing")
	}
}

func TestValidateWeight(t *testing.T) {
	if err := ValidateWeight(-1); err != nil {
		t.Fatalf("negative weight is legal: %v", err)
	}
	if err := ValidateWeight(math.Inf(1)); err == nil {
		t.Fatalf("inf must error")
	}
	if err := ValidateWeight(math.NaN()); err == nil {
		t.Fatalf("NaN must error")
	}
}
