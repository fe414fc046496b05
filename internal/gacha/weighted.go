package gacha

// EntryKind tags what an entry resolves into.
type EntryKind int

const (
	EntryLeaf   EntryKind = iota // resolves its own Actions
	EntryNested                  // recurses into Sub
)

// Display is metadata consumed only by menu renderers.
type Display struct {
	Model     int    `json:"model,omitempty"`
	Material  string `json:"material,omitempty"` // explicit display type override
	Enchanted bool   `json:"enchanted,omitempty"`
}

// Entry is one weighted outcome of a WeightedList.
type Entry struct {
	Key     string
	Weight  float64
	Actions []Action
	Sub     *WeightedList
	Display Display
}

// Leaf builds an entry that grants actions directly.
func Leaf(key string, weight float64, actions ...Action) Entry {
	if len(actions) == 0 {
		actions = []Action{NewAction(key, 1, 1, nil)}
	}
	return Entry{Key: key, Weight: weight, Actions: actions}
}

// Nested builds an entry that defers to a sub list.
func Nested(key string, weight float64, sub *WeightedList) Entry {
	return Entry{Key: key, Weight: weight, Sub: sub}
}

func (e Entry) Kind() EntryKind {
	if e.Sub != nil {
		return EntryNested
	}
	return EntryLeaf
}

// Resolve turns the entry into a Result, recursing into Sub for nested entries.
func (e Entry) Resolve(rng RandomSource) Result {
	switch e.Kind() {
	case EntryNested:
		return e.Sub.Pick(rng)
	default:
		if len(e.Actions) == 0 {
			return EmptyResult()
		}
		out := make([]Action, 0, len(e.Actions))
		for _, a := range e.Actions {
			out = append(out, a.Resolve(rng))
		}
		return Result{Actions: out}
	}
}

// PrimaryAction is the first action, used for previews.
func (e Entry) PrimaryAction() (Action, bool) {
	if len(e.Actions) == 0 {
		return Action{}, false
	}
	return e.Actions[0], true
}

// WeightedList samples entries proportionally to their positive weights.
// Entries with weight <= 0 never win but the last entry is always the fallback.
type WeightedList struct {
	entries []Entry
	total   float64
}

// NewWeightedList builds a list and caches its total weight.
func NewWeightedList(entries ...Entry) *WeightedList {
	wl := &WeightedList{entries: append([]Entry(nil), entries...)}
	wl.recompute()
	return wl
}

// Append adds entries and refreshes the cached total.
func (wl *WeightedList) Append(entries ...Entry) {
	wl.entries = append(wl.entries, entries...)
	wl.recompute()
}

func (wl *WeightedList) recompute() {
	total := 0.0
	for _, e := range wl.entries {
		if e.Weight > 0 {
			total += e.Weight
		}
	}
	wl.total = total
}

// Entries returns a copy of the entries in declaration order.
func (wl *WeightedList) Entries() []Entry {
	if wl == nil {
		return nil
	}
	return append([]Entry(nil), wl.entries...)
}

func (wl *WeightedList) Len() int {
	if wl == nil {
		return 0
	}
	return len(wl.entries)
}

// TotalWeight is the sum of weights > 0.
func (wl *WeightedList) TotalWeight() float64 {
	if wl == nil {
		return 0
	}
	return wl.total
}

// Chance is weight/total for entry i, 0 when it can never win.
func (wl *WeightedList) Chance(i int) float64 {
	if wl == nil || i < 0 || i >= len(wl.entries) || wl.total <= 0 {
		return 0
	}
	if w := wl.entries[i].Weight; w > 0 {
		return w / wl.total
	}
	return 0
}

// pickIndex selects a top-level entry; -1 only for an empty list.
func (wl *WeightedList) pickIndex(rng RandomSource) int {
	if wl == nil || len(wl.entries) == 0 {
		return -1
	}
	last := len(wl.entries) - 1
	if wl.total <= 0 {
		return last
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	target := rng.Float64() * wl.total
	cumulative := 0.0
	for i, e := range wl.entries {
		if e.Weight <= 0 {
			continue
		}
		cumulative += e.Weight
		if target <= cumulative {
			return i
		}
	}
	return last
}

// Pick performs one draw. It never fails: an empty list yields EmptyResult
// and a list without positive weight resolves its last entry.
func (wl *WeightedList) Pick(rng RandomSource) Result {
	i := wl.pickIndex(rng)
	if i < 0 {
		return EmptyResult()
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	return wl.entries[i].Resolve(rng)
}

// GrantEach rolls every positive entry independently with chance
// weight/total and returns the resolved winners in order.
func (wl *WeightedList) GrantEach(rng RandomSource) []Result {
	if wl == nil || wl.total <= 0 {
		return nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	var out []Result
	for i, e := range wl.entries {
		if e.Weight <= 0 {
			continue
		}
		if rng.Float64() < wl.Chance(i) {
			out = append(out, e.Resolve(rng))
		}
	}
	return out
}
