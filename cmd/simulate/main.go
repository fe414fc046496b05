package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/xtding233/wish-backend/internal/config"
	"github.com/xtding233/wish-backend/internal/gacha"
)

func main() {
	cfgPath := flag.String("config", "configs/wish.yaml", "main config file")
	poolsDir := flag.String("pools", "", "directory of extra *.yaml pool files")
	poolID := flag.String("pool", "", "pool to simulate (default: first pool)")
	trials := flag.Int("trials", 100000, "number of draws")
	seed := flag.Uint64("seed", 0, "RNG seed, 0 uses crypto/rand")
	target := flag.String("target", "", "reward name to measure draws-until-hit for, with pity")
	flag.Parse()

	snap, err := config.NewLoader(config.Paths{Main: *cfgPath, PoolsDir: *poolsDir}).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	id := *poolID
	if id == "" && len(snap.Order) > 0 {
		id = snap.Order[0]
	}
	pool, ok := snap.Pool(id)
	if !ok {
		fmt.Fprintf(os.Stderr, "pool %q not found\n", id)
		os.Exit(1)
	}

	rng := gacha.DefaultRNG()
	if *seed != 0 {
		rng = gacha.NewSeededRNG(*seed)
	}

	f := gacha.SampleFrequencies(pool.Items, *trials, rng)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "pool %s, %d draws\n", pool.ID, f.Trials)
	fmt.Fprintln(tw, "entry\texpected\tobserved\tcount")
	for i, k := range f.Keys {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%d\n", k, f.Expected[i], f.Observed(i), f.Counts[i])
	}
	tw.Flush()
	fmt.Printf("chi-squared %.3f with %d degrees of freedom\n", f.ChiSquared, f.DegreesOfFreedom)

	if *target == "" {
		return
	}
	runs := *trials / 100
	if runs < 1 {
		runs = 1
	}
	st := gacha.RunMonteCarlo(gacha.SimParams{
		Items:     pool.Items,
		Guarantee: pool.GuaranteeItems,
		Pity:      pool.MaxCount,
		Target:    *target,
	}, runs, rng)
	fmt.Printf("draws until %s over %d runs: mean %.2f sd %.2f p50 %.0f p90 %.0f p99 %.0f\n",
		*target, runs, st.Mean, st.StdDev, st.P50, st.P90, st.P99)
}
