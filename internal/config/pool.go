package config

import (
	"time"

	"github.com/xtding233/wish-backend/internal/gacha"
	"github.com/xtding233/wish-backend/internal/limit"
	"github.com/xtding233/wish-backend/internal/pricing"
	"github.com/xtding233/wish-backend/internal/token"
)

// Pool is one drawable reward distribution. Immutable once built.
type Pool struct {
	ID string
	// CountsName is the pity bucket; several pools may share one.
	CountsName string
	MaxCount   int
	// MaxPerWish is the largest count one request may draw.
	MaxPerWish     int
	Costs          pricing.CostTable
	Items          *gacha.WeightedList
	GuaranteeItems *gacha.WeightedList
	Active         *limit.Active
	Limit          *limit.Window
	Display        PoolDisplay
}

type PoolDisplay struct {
	Material        string   `json:"material"`
	CustomModelData int      `json:"custom_model_data"`
	Name            string   `json:"name"`
	Description     []string `json:"description,omitempty"`
}

// CalculateCost prices count draws.
func (p *Pool) CalculateCost(count int) (int, error) {
	return p.Costs.Cost(count)
}

// PerWishCap is the largest count one request may draw; unset means
// DefaultMaxPerWish.
func (p *Pool) PerWishCap() int {
	if p.MaxPerWish > 0 {
		return p.MaxPerWish
	}
	return DefaultMaxPerWish
}

// Pity returns a tracker seeded with the stored counter for this pool.
func (p *Pool) Pity(counter int) *gacha.PitySystem {
	return gacha.NewPitySystem(p.MaxCount, counter, p.GuaranteeItems != nil)
}

// ShouldGuarantee is true iff pity is enabled, a guarantee list exists
// and counter has reached MaxCount.
func (p *Pool) ShouldGuarantee(counter int) bool {
	return p.Pity(0).ShouldGuarantee(counter)
}

func (p *Pool) PickReward(rng gacha.RandomSource) gacha.Result {
	if p.Items == nil {
		return gacha.EmptyResult()
	}
	return p.Items.Pick(rng)
}

// PickGuarantee falls back to the primary list when no guarantee list exists.
func (p *Pool) PickGuarantee(rng gacha.RandomSource) gacha.Result {
	if p.GuaranteeItems == nil {
		return p.PickReward(rng)
	}
	return p.GuaranteeItems.Pick(rng)
}

func (p *Pool) IsActive(now time.Time) bool {
	return p.Active.Contains(now)
}

// Snapshot is the complete, read-only configuration used by one transaction.
// Reloads build a new Snapshot rather than mutating this one.
type Snapshot struct {
	Version    string
	MaxPerWish int
	Order      []string
	Pools      map[string]*Pool
	Tickets    token.Rules
	History    HistoryConfig
	Storage    StorageConfig
	Ledger     LedgerConfig
	Dispatch   DispatchConfig
	Server     ServerConfig
	LoadedAt   time.Time
}

// Pool looks a pool up by id.
func (s *Snapshot) Pool(id string) (*Pool, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.Pools[id]
	return p, ok
}

// PoolList returns pools in declaration order.
func (s *Snapshot) PoolList() []*Pool {
	if s == nil {
		return nil
	}
	out := make([]*Pool, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.Pools[id])
	}
	return out
}
