package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xtding233/wish-backend/internal/gacha"
	"github.com/xtding233/wish-backend/internal/limit"
)

// ValidateRaw checks semantic constraints of a RawConfig.
// Weights are not required to be positive: a list without positive weight
// still resolves its last entry.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	pools := make(map[string]bool, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools[p.ID] = true
		prefix := "pools." + p.ID

		if p.MaxCount < 0 {
			errs = append(errs, prefix+".max_count must be >= 0 (0 disables pity)")
		}
		if p.MaxPerWish < 0 {
			errs = append(errs, prefix+".max_per_wish must be >= 0 (0 uses the global cap)")
		}
		for k, v := range p.Cost {
			if n, err := strconv.Atoi(strings.TrimSpace(k)); err == nil && n <= 0 {
				errs = append(errs, fmt.Sprintf("%s.cost key %q must be a positive draw count", prefix, k))
			}
			if v < 0 {
				errs = append(errs, fmt.Sprintf("%s.cost[%s] must be >= 0", prefix, k))
			}
		}
		errs = append(errs, validateItems(prefix+".items", p.Items)...)
		errs = append(errs, validateItems(prefix+".guarantee_items", p.GuaranteeItems)...)

		if d := p.Duration; d != nil {
			var start, end time.Time
			var err error
			if d.StartDate != "" {
				if start, err = time.Parse(time.RFC3339, d.StartDate); err != nil {
					errs = append(errs, prefix+".duration.startDate must be RFC3339")
				}
			}
			if d.EndDate != "" {
				if end, err = time.Parse(time.RFC3339, d.EndDate); err != nil {
					errs = append(errs, prefix+".duration.endDate must be RFC3339")
				}
			}
			if !start.IsZero() && !end.IsZero() && end.Before(start) {
				errs = append(errs, prefix+".duration.endDate must not be before startDate")
			}
		}
		// an empty time or a zero count means no limit
		if lm := p.LimitModes; lm != nil && strings.TrimSpace(lm.Time) != "" {
			if lm.Count < 0 {
				errs = append(errs, prefix+".limit_modes.count must be >= 0")
			}
			if d, err := limit.ParseDuration(lm.Time); err != nil || d <= 0 {
				errs = append(errs, prefix+".limit_modes.time must be a positive duration like 1d, 12h, 1w")
			}
		}
	}

	seen := make(map[string]bool, len(cfg.Tickets))
	for i, t := range cfg.Tickets {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("tickets[%d].id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("tickets[%d].id %q is duplicated", i, t.ID))
		}
		seen[t.ID] = true
		if t.DeductCount != nil && *t.DeductCount < 0 {
			errs = append(errs, fmt.Sprintf("tickets[%d].deduct_count must be >= 0", i))
		}
		for _, pid := range t.ApplicablePools {
			if !pools[pid] {
				errs = append(errs, fmt.Sprintf("tickets[%d].applicable_pools references unknown pool %q", i, pid))
			}
		}
	}

	if cfg.MaxPerWish < 0 {
		errs = append(errs, "max_per_wish must be >= 0")
	}
	if cfg.History != nil && cfg.History.MaxSize < 0 {
		errs = append(errs, "history.max_size must be >= 0")
	}

	switch cfg.Storage.Type {
	case "", "memory", "yaml", "redis":
	default:
		errs = append(errs, "storage.type must be one of: memory, yaml, redis")
	}
	switch cfg.Ledger.Type {
	case "", "memory", "postgres", "none":
	default:
		errs = append(errs, "ledger.type must be one of: memory, postgres, none")
	}
	switch cfg.Dispatch.Type {
	case "", "log", "amqp":
	default:
		errs = append(errs, "dispatch.type must be one of: log, amqp")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateItems(prefix string, items ItemList) []string {
	var errs []string
	for _, it := range items {
		if err := gacha.ValidateWeight(it.Probability); err != nil {
			errs = append(errs, fmt.Sprintf("%s.%s.probability must be finite", prefix, it.Key))
		}
		errs = append(errs, validateItems(prefix+"."+it.Key+".subList", it.SubList)...)
	}
	return errs
}
