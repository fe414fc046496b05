package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func mustRaw(t *testing.T, doc string) RawConfig {
	t.Helper()
	var cfg RawConfig
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestValidateRawAccepts(t *testing.T) {
	if err := ValidateRaw(mustRaw(t, sampleYAML)); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
	// zero total weight degrades to the fallback entry, never an error
	if err := ValidateRaw(mustRaw(t, "pools:\n  P:\n    items: {a: 0, b: 0}\n")); err != nil {
		t.Fatalf("zero weights must be accepted: %v", err)
	}
}

func TestValidateRawCollectsErrors(t *testing.T) {
	cfg := mustRaw(t, `
max_per_wish: -5
storage:
  type: floppy
tickets:
  - applicable_pools: [P]
  - id: t
    applicable_pools: [Ghost]
    deduct_count: -2
pools:
  P:
    max_count: -1
    max_per_wish: -1
    cost: {zero: 10, "-1": 10}
    duration:
      startDate: yesterday
    limit_modes:
      count: -1
      time: soon
    items:
      a:
        probability: .inf
`)
	err := ValidateRaw(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{
		"storage.type",
		"tickets[0].id is required",
		`unknown pool "Ghost"`,
		"tickets[1].deduct_count",
		"pools.P.max_count",
		"pools.P.max_per_wish",
		"max_per_wish must be >= 0",
		`cost key "-1"`,
		"startDate must be RFC3339",
		"limit_modes.count",
		"limit_modes.time",
		"pools.P.items.a.probability",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateRawLenientKeys(t *testing.T) {
	cfg := mustRaw(t, `
pools:
  P:
    cost: {ten: 10, 1: 5}
    limit_modes:
      count: 3
      time: ""
    items: {a: 1}
  Q:
    limit_modes:
      count: 0
      time: 1d
    items: {a: 1}
`)
	if err := ValidateRaw(cfg); err != nil {
		t.Fatalf("non-numeric cost keys and empty limits must be accepted: %v", err)
	}
}
