package gacha

import (
	"strconv"
	"strings"
)

// DefaultRewardName is granted when a list has nothing to resolve.
const DefaultRewardName = "no_reward"

// Action is one named grant with an inclusive amount range. A resolved
// action has MinAmount == MaxAmount.
type Action struct {
	Name      string   `json:"name"`
	MinAmount int      `json:"min_amount"`
	MaxAmount int      `json:"max_amount"`
	Commands  []string `json:"commands,omitempty"` // empty => default grant by name+amount
}

// NewAction normalizes the range so that 1 <= min <= max.
func NewAction(name string, minAmount, maxAmount int, commands []string) Action {
	if name == "" {
		name = DefaultRewardName
	}
	if minAmount <= 0 {
		minAmount = 1
	}
	if maxAmount < minAmount {
		maxAmount = minAmount
	}
	return Action{Name: name, MinAmount: minAmount, MaxAmount: maxAmount, Commands: commands}
}

// Amount is the granted amount of a resolved action.
func (a Action) Amount() int { return a.MinAmount }

// Resolve fixes the amount by drawing uniformly from [MinAmount, MaxAmount].
func (a Action) Resolve(rng RandomSource) Action {
	amount := a.MinAmount
	if a.MaxAmount > a.MinAmount {
		amount = intBetween(rng, a.MinAmount, a.MaxAmount)
	}
	out := a
	out.MinAmount, out.MaxAmount = amount, amount
	return out
}

// Result is the outcome of one draw.
type Result struct {
	Actions []Action `json:"actions"`
}

// EmptyResult grants a single "no_reward x1".
func EmptyResult() Result {
	return Result{Actions: []Action{NewAction(DefaultRewardName, 1, 1, nil)}}
}

// Display renders "name xN, other xM".
func (r Result) Display() string {
	return r.DisplayWith(nil)
}

// DisplayWith renders like Display but maps each action name through
// translate first (nil keeps the raw name).
func (r Result) DisplayWith(translate func(string) string) string {
	parts := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		name := a.Name
		if translate != nil {
			name = translate(name)
		}
		parts = append(parts, name+" x"+strconv.Itoa(a.Amount()))
	}
	return strings.Join(parts, ", ")
}
