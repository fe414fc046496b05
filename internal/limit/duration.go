package limit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30
	daysPerYear  = 365
	day          = 24 * time.Hour
)

var ErrDuration = errors.New("invalid duration")

// ParseDuration reads "<n><unit>" with unit h, d, w, m (30 days) or y
// (365 days). Anything else falls back to time.ParseDuration.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrDuration, raw)
	}
	unit := raw[len(raw)-1] | 0x20 // lower-case ASCII
	if n, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64); err == nil {
		switch unit {
		case 'h':
			return time.Duration(n) * time.Hour, nil
		case 'd':
			return time.Duration(n) * day, nil
		case 'w':
			return time.Duration(n*daysPerWeek) * day, nil
		case 'm':
			return time.Duration(n*daysPerMonth) * day, nil
		case 'y':
			return time.Duration(n*daysPerYear) * day, nil
		}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDuration, raw)
	}
	return d, nil
}
