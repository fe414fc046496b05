package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Paths helper for the main file and the optional per-pool overlay directory.
type Paths struct {
	Main     string // e.g. /opt/app/config/wish.yaml
	PoolsDir string // e.g. /opt/app/config/pools.d; every *.yaml holds a "pools:" block
}

// overlays lists pool files in lexical order so later files win.
func (p Paths) overlays() ([]string, error) {
	if p.PoolsDir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(p.PoolsDir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Files is every path that contributes to the merged config.
func (p Paths) Files() []string {
	out := []string{p.Main}
	more, _ := p.overlays()
	return append(out, more...)
}

// Loader reads YAML configs and merges main → pool overlays.
type Loader struct {
	paths Paths
	now   func() time.Time

	mu   sync.RWMutex
	last *Snapshot
}

// NewLoader creates a config loader for the given paths.
func NewLoader(paths Paths) *Loader {
	return &Loader{paths: paths, now: time.Now}
}

func (l *Loader) Paths() Paths { return l.paths }

// Load reads, merges, validates and builds a fresh Snapshot.
// On error the previously loaded snapshot stays current.
func (l *Loader) Load() (*Snapshot, error) {
	mainCfg, err := readYAML(l.paths.Main)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.paths.Main, err)
	}
	files, err := l.paths.overlays()
	if err != nil {
		return nil, fmt.Errorf("list pool overlays: %w", err)
	}
	merged := mainCfg
	for _, f := range files {
		overlay, err := readYAML(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		merged = mergeRaw(merged, overlay)
	}

	if err := ValidateRaw(merged); err != nil {
		return nil, err
	}
	snap, err := Build(merged, l.now())
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.last = snap
	l.mu.Unlock()
	return snap, nil
}

// Last returns the most recent successful snapshot, nil before the first Load.
func (l *Loader) Last() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Parse decodes a single YAML document and builds it, for callers that
// keep config somewhere other than files.
func Parse(data []byte) (*Snapshot, error) {
	var cfg RawConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := ValidateRaw(cfg); err != nil {
		return nil, err
	}
	return Build(cfg, time.Now())
}

// readYAML loads a YAML file into RawConfig.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw overlays 'b' onto 'a'. Pools replace by id (new ids append),
// tickets replace by id, top-level sections are taken from 'b' when set.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if b.MaxPerWish != 0 {
		out.MaxPerWish = b.MaxPerWish
	}
	if b.History != nil {
		h := *b.History
		out.History = &h
	}

	pools := append(PoolList(nil), a.Pools...)
	for _, bp := range b.Pools {
		replaced := false
		for i := range pools {
			if pools[i].ID == bp.ID {
				pools[i] = bp
				replaced = true
				break
			}
		}
		if !replaced {
			pools = append(pools, bp)
		}
	}
	out.Pools = pools

	tickets := append([]TicketConfig(nil), a.Tickets...)
	for _, bt := range b.Tickets {
		replaced := false
		for i := range tickets {
			if tickets[i].ID == bt.ID {
				tickets[i] = bt
				replaced = true
				break
			}
		}
		if !replaced {
			tickets = append(tickets, bt)
		}
	}
	out.Tickets = tickets

	return out
}
