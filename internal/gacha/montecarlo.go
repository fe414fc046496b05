package gacha

import (
	"math"
	"sort"
)

// Frequencies summarizes repeated top-level picks of one WeightedList.
type Frequencies struct {
	Trials   int
	Keys     []string
	Counts   []int
	Expected []float64 // weight / total per entry
	// Pearson chi-squared statistic over entries with positive expectation.
	ChiSquared float64
	// DegreesOfFreedom is (#entries with positive expectation) - 1.
	DegreesOfFreedom int
}

// Observed returns count/trials for entry i.
func (f Frequencies) Observed(i int) float64 {
	if f.Trials == 0 || i < 0 || i >= len(f.Counts) {
		return 0
	}
	return float64(f.Counts[i]) / float64(f.Trials)
}

// SampleFrequencies draws trials times and tallies which top-level entry won.
func SampleFrequencies(wl *WeightedList, trials int, rng RandomSource) Frequencies {
	n := wl.Len()
	f := Frequencies{
		Trials:   trials,
		Keys:     make([]string, n),
		Counts:   make([]int, n),
		Expected: make([]float64, n),
	}
	for i, e := range wl.Entries() {
		f.Keys[i] = e.Key
		f.Expected[i] = wl.Chance(i)
	}
	if trials <= 0 || n == 0 {
		return f
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	for i := 0; i < trials; i++ {
		f.Counts[wl.pickIndex(rng)]++
	}

	cells := 0
	for i, p := range f.Expected {
		if p <= 0 {
			continue
		}
		cells++
		exp := p * float64(trials)
		d := float64(f.Counts[i]) - exp
		f.ChiSquared += d * d / exp
	}
	if cells > 0 {
		f.DegreesOfFreedom = cells - 1
	}
	return f
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// SimParams describes one pool for a draws-until-target simulation.
type SimParams struct {
	Items     *WeightedList
	Guarantee *WeightedList // nil disables pity
	Pity      int
	Cushion   int    // carried-over pity counter when entering the pool
	Target    string // action name counted as a hit
	MaxDraws  int    // per-trial cap, <= 0 means 10000
}

// simulateOne returns the number of draws until an action named p.Target
// is granted, or MaxDraws if it never is.
func simulateOne(p SimParams, rng RandomSource) int {
	limit := p.MaxDraws
	if limit <= 0 {
		limit = 10000
	}
	ps := NewPitySystem(p.Pity, p.Cushion, p.Guarantee != nil)
	for draws := 1; draws <= limit; draws++ {
		var res Result
		if ps.Advance() {
			res = p.Guarantee.Pick(rng)
		} else {
			res = p.Items.Pick(rng)
		}
		for _, a := range res.Actions {
			if a.Name == p.Target {
				return draws
			}
		}
	}
	return limit
}

// RunMonteCarlo repeats trials and returns summary stats of draws-until-target.
func RunMonteCarlo(p SimParams, trials int, rng RandomSource) Stats {
	if trials <= 0 {
		return Stats{}
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = simulateOne(p, rng)
	}
	return calcStats(samples)
}
