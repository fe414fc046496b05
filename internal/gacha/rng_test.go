package gacha

import (
	"sync"
	"testing"
)

func TestSynchronizedKeepsSequence(t *testing.T) {
	plain, locked := NewSeededRNG(11), Synchronized(NewSeededRNG(11))
	for i := 0; i < 100; i++ {
		if a, b := plain.Float64(), locked.Float64(); a != b {
			t.Fatalf("draw %d: %f != %f", i, a, b)
		}
	}
	if Synchronized(locked) != locked {
		t.Fatal("wrapping twice should be a no-op")
	}
	if _, ok := Synchronized(DefaultRNG()).(cryptoRNG); !ok {
		t.Fatal("default source should not be wrapped")
	}
}

func TestSynchronizedConcurrentDraws(t *testing.T) {
	const workers, draws = 8, 500
	rng := Synchronized(NewSeededRNG(5))
	seen := make(chan float64, workers*draws)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < draws; i++ {
				seen <- rng.Float64()
			}
		}()
	}
	wg.Wait()
	close(seen)

	// every value of the seeded sequence is handed out exactly once
	want := map[float64]int{}
	ref := NewSeededRNG(5)
	for i := 0; i < workers*draws; i++ {
		want[ref.Float64()]++
	}
	for v := range seen {
		if v < 0 || v >= 1 {
			t.Fatalf("out of range: %f", v)
		}
		want[v]--
	}
	for v, n := range want {
		if n != 0 {
			t.Fatalf("value %f off by %d", v, n)
		}
	}
}
