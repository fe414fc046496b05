package account

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xtding233/wish-backend/internal/limit"
)

// Record is everything persisted for one account.
type Record struct {
	Pity      map[string]int         `json:"pity,omitempty" yaml:"pity,omitempty"`       // by pool counts_name
	Tickets   map[string]int         `json:"tickets,omitempty" yaml:"tickets,omitempty"` // by ticket id
	Limits    map[string]limit.State `json:"limits,omitempty" yaml:"limits,omitempty"`   // by pool id
	Stats     Stats                  `json:"stats" yaml:"stats"`
	History   []HistoryEntry         `json:"history,omitempty" yaml:"history,omitempty"`
	CreatedAt time.Time              `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" yaml:"updated_at"`
}

type Stats struct {
	TotalWishes int            `json:"total_wishes" yaml:"total_wishes"`
	Guarantees  map[string]int `json:"guarantees,omitempty" yaml:"guarantees,omitempty"` // by pool id
}

// HistoryEntry describes one completed wish transaction.
type HistoryEntry struct {
	TxID        string    `json:"tx_id" yaml:"tx_id"`
	Pool        string    `json:"pool" yaml:"pool"`
	Count       int       `json:"count" yaml:"count"`
	Cost        int       `json:"cost" yaml:"cost"`
	TicketsUsed int       `json:"tickets_used,omitempty" yaml:"tickets_used,omitempty"`
	Guarantees  int       `json:"guarantees,omitempty" yaml:"guarantees,omitempty"`
	Rewards     []string  `json:"rewards" yaml:"rewards"`
	At          time.Time `json:"at" yaml:"at"`
}

// NewRecord returns an empty record with all maps allocated.
func NewRecord() *Record {
	return (&Record{}).Ensure()
}

// Ensure allocates any nil map and returns r; a nil r yields a new record.
func (r *Record) Ensure() *Record {
	if r == nil {
		r = &Record{}
	}
	if r.Pity == nil {
		r.Pity = make(map[string]int)
	}
	if r.Tickets == nil {
		r.Tickets = make(map[string]int)
	}
	if r.Limits == nil {
		r.Limits = make(map[string]limit.State)
	}
	if r.Stats.Guarantees == nil {
		r.Stats.Guarantees = make(map[string]int)
	}
	return r
}

// Clone returns a deep copy so callers can mutate freely.
func (r *Record) Clone() *Record {
	if r == nil {
		return NewRecord()
	}
	out := &Record{
		Pity:      make(map[string]int, len(r.Pity)),
		Tickets:   make(map[string]int, len(r.Tickets)),
		Limits:    make(map[string]limit.State, len(r.Limits)),
		Stats:     Stats{TotalWishes: r.Stats.TotalWishes, Guarantees: make(map[string]int, len(r.Stats.Guarantees))},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for k, v := range r.Pity {
		out.Pity[k] = v
	}
	for k, v := range r.Tickets {
		out.Tickets[k] = v
	}
	for k, v := range r.Limits {
		out.Limits[k] = v
	}
	for k, v := range r.Stats.Guarantees {
		out.Stats.Guarantees[k] = v
	}
	if len(r.History) > 0 {
		out.History = make([]HistoryEntry, len(r.History))
		for i, h := range r.History {
			h.Rewards = append([]string(nil), h.Rewards...)
			out.History[i] = h
		}
	}
	return out
}

// AppendHistory adds e and keeps at most keep newest entries. keep <= 0 keeps none.
func (r *Record) AppendHistory(e HistoryEntry, keep int) {
	if keep <= 0 {
		r.History = nil
		return
	}
	r.History = append(r.History, e)
	if over := len(r.History) - keep; over > 0 {
		r.History = append([]HistoryEntry(nil), r.History[over:]...)
	}
}

const (
	pityPrefix    = "pity."
	ticketsPrefix = "tickets."
	limitsPrefix  = "limits."
	windowSuffix  = ".windowStart"
	countSuffix   = ".count"
)

// Flatten exports the counters as a flat key-value map using the
// pity.<bucket>, tickets.<id>, limits.<pool>.windowStart|count schema.
func (r *Record) Flatten() map[string]int64 {
	out := make(map[string]int64, len(r.Pity)+len(r.Tickets)+2*len(r.Limits))
	for k, v := range r.Pity {
		out[pityPrefix+k] = int64(v)
	}
	for k, v := range r.Tickets {
		out[ticketsPrefix+k] = int64(v)
	}
	for k, v := range r.Limits {
		out[limitsPrefix+k+windowSuffix] = v.WindowStart
		out[limitsPrefix+k+countSuffix] = int64(v.Used)
	}
	return out
}

// FromFlat is the inverse of Flatten. Unknown keys are ignored.
func FromFlat(flat map[string]int64) *Record {
	r := NewRecord()
	for k, v := range flat {
		switch {
		case strings.HasPrefix(k, pityPrefix):
			r.Pity[strings.TrimPrefix(k, pityPrefix)] = int(v)
		case strings.HasPrefix(k, ticketsPrefix):
			r.Tickets[strings.TrimPrefix(k, ticketsPrefix)] = int(v)
		case strings.HasPrefix(k, limitsPrefix):
			rest := strings.TrimPrefix(k, limitsPrefix)
			if pool, ok := strings.CutSuffix(rest, windowSuffix); ok {
				s := r.Limits[pool]
				s.WindowStart = v
				r.Limits[pool] = s
			} else if pool, ok := strings.CutSuffix(rest, countSuffix); ok {
				s := r.Limits[pool]
				s.Used = int(v)
				r.Limits[pool] = s
			}
		}
	}
	return r
}

// FlatLines renders Flatten as sorted "key=value" lines, for debugging dumps.
func (r *Record) FlatLines() []string {
	flat := r.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + strconv.FormatInt(flat[k], 10)
	}
	return out
}
