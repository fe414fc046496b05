package gacha

// PitySystem handles a "hard pity" over a persisted counter: every draw
// increments Count, and once Count reaches Pity the draw is guaranteed.
type PitySystem struct {
	Pity  int  // threshold count before guaranteed hit, 0 = disabled
	Count int  // draws since last guarantee
	Armed bool // false when the pool has no guarantee list; pity then never fires
}

// NewPitySystem restores a pity tracker from a stored counter.
func NewPitySystem(pity, count int, armed bool) *PitySystem {
	if count < 0 {
		count = 0
	}
	return &PitySystem{Pity: pity, Count: count, Armed: armed}
}

// ShouldGuarantee reports whether counter value c triggers the guarantee.
func (ps *PitySystem) ShouldGuarantee(c int) bool {
	return ps.Pity > 0 && ps.Armed && c >= ps.Pity
}

// Advance counts one draw and reports whether it resolves via the guarantee.
// On a guarantee Count resets to 0.
func (ps *PitySystem) Advance() bool {
	ps.Count++
	if ps.ShouldGuarantee(ps.Count) {
		ps.Count = 0
		return true
	}
	return false
}
