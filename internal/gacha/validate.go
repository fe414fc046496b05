package gacha

import (
	"errors"
	"math"
)

var ErrInvalidWeight = errors.New("invalid weight; must be a finite number")

// ValidateWeight rejects NaN and infinities. Negative weights are legal:
// such entries never win a draw but still act as the fallback.
func ValidateWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return ErrInvalidWeight
	}
	return nil
}
