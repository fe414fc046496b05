package token

import (
	"errors"
	"math"
)

// ErrOverflow means the ticket units for a request do not fit in an int.
var ErrOverflow = errors.New("token: ticket units overflow")

// Rule lets a ticket currency stand in for the primary cost of a draw.
type Rule struct {
	ID              string   `json:"id"`
	ApplicablePools []string `json:"applicable_pools"`
	DeductCount     int      `json:"deduct_count"` // ticket units consumed per draw
}

// AppliesTo reports whether the rule lists poolID.
func (r Rule) AppliesTo(poolID string) bool {
	for _, p := range r.ApplicablePools {
		if p == poolID {
			return true
		}
	}
	return false
}

// per returns the divisor for partial coverage; never below 1.
func (r Rule) per() int {
	if r.DeductCount < 1 {
		return 1
	}
	return r.DeductCount
}

// Substitution is the ticket/currency split for one request.
type Substitution struct {
	Needed    int // ticket units to cover every draw
	Used      int // ticket units actually consumed
	Missing   int // uncovered ticket units
	PaidCount int // draws that must be paid with currency
}

// Substitute covers count draws with up to owned tickets. Partial coverage
// rounds the paid draws up so the uncovered fraction is always charged.
func (r Rule) Substitute(owned, count int) (Substitution, error) {
	if owned < 0 {
		owned = 0
	}
	if count < 0 {
		count = 0
	}
	if r.DeductCount > 0 && count > math.MaxInt/r.DeductCount {
		return Substitution{}, ErrOverflow
	}
	s := Substitution{Needed: r.DeductCount * count}
	s.Used = min(owned, s.Needed)
	if s.Used < 0 {
		s.Used = 0
	}
	s.Missing = s.Needed - s.Used
	if s.Missing > 0 {
		per := r.per()
		s.PaidCount = s.Missing / per
		if s.Missing%per != 0 {
			s.PaidCount++
		}
	}
	return s, nil
}

// Rules is an ordered rule set; the first matching rule wins.
type Rules []Rule

// Find returns the first rule that applies to poolID, or nil.
func (rs Rules) Find(poolID string) *Rule {
	for i := range rs {
		if rs[i].AppliesTo(poolID) {
			return &rs[i]
		}
	}
	return nil
}

// ByID looks a rule up by its ticket id.
func (rs Rules) ByID(id string) *Rule {
	for i := range rs {
		if rs[i].ID == id {
			return &rs[i]
		}
	}
	return nil
}
