package cat

import (
	"fmt"

	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/models"
)

const (
	DefaultMaxItems    = 30
	DefaultSEThreshold = 0.25

	// MinItemsForPrecision is the fewest responses after which the SE
	// threshold may end a test.
	MinItemsForPrecision = 10
)

// StopReason identifies which stopping rule fired.
type StopReason string

const (
	ReasonPrecision      StopReason = "precision_reached"
	ReasonItemLimit      StopReason = "item_limit_reached"
	ReasonBankExhausted  StopReason = "bank_exhausted"
	ReasonCeilingCorrect StopReason = "ceiling_item_correct"
	ReasonFloorIncorrect StopReason = "floor_item_incorrect"
	ReasonContinue       StopReason = "continue"
)

// StopOptions tunes the stopping rule. Zero values mean the defaults.
type StopOptions struct {
	MaxItems    int     `yaml:"max_items"`
	SEThreshold float64 `yaml:"se_threshold"`
}

// withDefaults fills unset or non-positive fields.
func (o StopOptions) withDefaults() StopOptions {
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if !(o.SEThreshold > 0) {
		o.SEThreshold = DefaultSEThreshold
	}
	return o
}

// StopDecision is the outcome of a stopping check.
type StopDecision struct {
	Stop    bool
	Reason  StopReason
	Message string
}

// CheckStopping evaluates the stopping rules in priority order; the first
// rule that matches decides. Precision and volume caps come before the
// boundary rules so a test always terminates.
func CheckStopping(bank *itembank.Bank, responses []models.Response, se float64, used models.UsedSet, opts StopOptions) StopDecision {
	opts = opts.withDefaults()
	bMin, bMax := bank.DifficultyBounds()
	n := len(responses)

	switch {
	case n >= MinItemsForPrecision && se <= opts.SEThreshold:
		return StopDecision{true, ReasonPrecision,
			fmt.Sprintf("precision reached: SE %.3f <= %.3f after %d items", se, opts.SEThreshold, n)}
	case n >= opts.MaxItems:
		return StopDecision{true, ReasonItemLimit,
			fmt.Sprintf("item limit reached: %d of %d items", n, opts.MaxItems)}
	case len(used) >= bank.Len():
		return StopDecision{true, ReasonBankExhausted,
			fmt.Sprintf("bank exhausted: all %d items used", bank.Len())}
	case answeredNear(responses, bMax, 1):
		return StopDecision{true, ReasonCeilingCorrect,
			fmt.Sprintf("hit ceiling item correctly: b = %.3f", bMax)}
	case answeredNear(responses, bMin, 0):
		return StopDecision{true, ReasonFloorIncorrect,
			fmt.Sprintf("hit floor item incorrectly: b = %.3f", bMin)}
	default:
		return StopDecision{false, ReasonContinue, "continuing"}
	}
}

func answeredNear(responses []models.Response, target float64, answer int) bool {
	for _, r := range responses {
		if r.Answer == answer && nearDifficulty(r.B, target) {
			return true
		}
	}
	return false
}
