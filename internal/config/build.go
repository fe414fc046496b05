package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xtding233/wish-backend/internal/gacha"
	"github.com/xtding233/wish-backend/internal/limit"
	"github.com/xtding233/wish-backend/internal/pricing"
	"github.com/xtding233/wish-backend/internal/token"
)

const (
	DefaultHistorySize     = 50
	DefaultMaxPerWish      = 100
	defaultPoolMaterial    = "NETHER_STAR"
	defaultStorageType     = "memory"
	defaultDispatchType    = "log"
	defaultLedgerType      = "memory"
	defaultHTTPAddr        = ":8080"
	defaultRedisKeyPrefix  = "wish:account:"
	defaultAccountsDataDir = "userdata"
)

// Build normalizes a validated RawConfig into an immutable Snapshot.
func Build(raw RawConfig, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    raw.Version,
		MaxPerWish: DefaultMaxPerWish,
		Pools:      make(map[string]*Pool, len(raw.Pools)),
		History:    HistoryConfig{MaxSize: DefaultHistorySize},
		Storage:    raw.Storage,
		Ledger:     raw.Ledger,
		Dispatch:   raw.Dispatch,
		Server:     raw.Server,
		LoadedAt:   now,
	}
	if raw.MaxPerWish > 0 {
		snap.MaxPerWish = raw.MaxPerWish
	}
	if raw.History != nil && raw.History.MaxSize > 0 {
		snap.History.MaxSize = raw.History.MaxSize
	}
	applyDefaults(snap)

	for _, pc := range raw.Pools {
		p, err := buildPool(pc, snap.MaxPerWish)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.ID, err)
		}
		if _, dup := snap.Pools[p.ID]; !dup {
			snap.Order = append(snap.Order, p.ID)
		}
		snap.Pools[p.ID] = p
	}

	for _, tc := range raw.Tickets {
		deduct := 1
		if tc.DeductCount != nil && *tc.DeductCount >= 1 {
			deduct = *tc.DeductCount
		}
		snap.Tickets = append(snap.Tickets, token.Rule{
			ID:              tc.ID,
			ApplicablePools: append([]string(nil), tc.ApplicablePools...),
			DeductCount:     deduct,
		})
	}
	return snap, nil
}

func applyDefaults(s *Snapshot) {
	if s.Storage.Type == "" {
		s.Storage.Type = defaultStorageType
	}
	if s.Storage.DataDir == "" {
		s.Storage.DataDir = defaultAccountsDataDir
	}
	if s.Storage.KeyPrefix == "" {
		s.Storage.KeyPrefix = defaultRedisKeyPrefix
	}
	if s.Ledger.Type == "" {
		s.Ledger.Type = defaultLedgerType
	}
	if s.Dispatch.Type == "" {
		s.Dispatch.Type = defaultDispatchType
	}
	if s.Server.HTTPAddr == "" {
		s.Server.HTTPAddr = defaultHTTPAddr
	}
}

func buildPool(pc PoolConfig, maxPerWish int) (*Pool, error) {
	p := &Pool{
		ID:         pc.ID,
		CountsName: pc.CountsName,
		MaxCount:   pc.MaxCount,
		MaxPerWish: maxPerWish,
		Items:      buildList(pc.Items),
	}
	if pc.MaxPerWish > 0 {
		p.MaxPerWish = pc.MaxPerWish
	}
	if p.CountsName == "" {
		p.CountsName = pc.ID
	}
	if pc.GuaranteeItems != nil {
		p.GuaranteeItems = buildList(pc.GuaranteeItems)
	}

	auto := true
	if pc.AutoCost != nil {
		auto = *pc.AutoCost
	}
	prices := make(map[int]int, len(pc.Cost))
	for k, v := range pc.Cost {
		// non-numeric keys are ignored, not fatal
		if n, err := strconv.Atoi(strings.TrimSpace(k)); err == nil {
			prices[n] = v
		}
	}
	p.Costs = pricing.NewCostTable(prices, auto)

	if d := pc.Duration; d != nil {
		active, err := parseActive(d)
		if err != nil {
			return nil, err
		}
		p.Active = active
	}
	if lm := pc.LimitModes; lm != nil && lm.Count > 0 && strings.TrimSpace(lm.Time) != "" {
		every, err := limit.ParseDuration(lm.Time)
		if err != nil {
			return nil, err
		}
		if every > 0 {
			p.Limit = &limit.Window{Count: lm.Count, Every: every}
		}
	}

	p.Display = PoolDisplay{Material: defaultPoolMaterial, Name: pc.ID}
	if d := pc.Display; d != nil {
		if d.Material != "" {
			p.Display.Material = d.Material
		}
		if d.Name != "" {
			p.Display.Name = d.Name
		}
		p.Display.CustomModelData = d.CustomModelData
		p.Display.Description = append([]string(nil), d.Description...)
	}
	return p, nil
}

func parseActive(d *DurationCfg) (*limit.Active, error) {
	var a limit.Active
	for _, f := range []struct {
		raw string
		dst **time.Time
	}{{d.StartDate, &a.Start}, {d.EndDate, &a.End}} {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		*f.dst = &t
	}
	if a.Start == nil && a.End == nil {
		return nil, nil
	}
	return &a, nil
}

func buildList(items ItemList) *gacha.WeightedList {
	if items == nil {
		return nil
	}
	wl := gacha.NewWeightedList()
	for _, it := range items {
		wl.Append(buildEntry(it))
	}
	return wl
}

func buildEntry(it ItemSpec) gacha.Entry {
	var actions []gacha.Action
	for _, as := range it.Items {
		name := as.Name
		if name == "" {
			name = it.Key
		}
		actions = append(actions, gacha.NewAction(name, as.Amount.Min, as.Amount.Max, as.AllCommands()))
	}
	if len(actions) == 0 {
		name := it.Name
		if name == "" {
			name = it.Key
		}
		actions = append(actions, gacha.NewAction(name, it.Amount.Min, it.Amount.Max, it.Commands))
	}
	e := gacha.Leaf(it.Key, it.Probability, actions...)
	if it.SubList != nil {
		e.Sub = buildList(it.SubList)
	}
	e.Display = gacha.Display{
		Model:     it.DisplayModel,
		Material:  it.DisplayMaterial,
		Enchanted: it.Enchanted,
	}
	return e
}
