package cat

import (
	"math"

	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/models"
)

// BoundaryTolerance is the absolute tolerance used when matching an item's
// difficulty against the bank's hardest or easiest difficulty. Changing it
// changes which items are eligible for forced selection and which responses
// trigger the boundary stopping rules.
const BoundaryTolerance = 0.001

// MinBoundaryMargin is the smallest distance from a boundary difficulty at
// which forcing kicks in.
const MinBoundaryMargin = 0.5

// Selection is the outcome of choosing the next item.
type Selection struct {
	Item   models.Item
	Forced bool // chosen by boundary forcing rather than by information
}

func nearDifficulty(b, target float64) bool {
	return b >= models.ThetaMin && b <= models.ThetaMax && math.Abs(b-target) <= BoundaryTolerance
}

// boundaryMargin is how close theta must come to a boundary difficulty
// before the boundary item is forced.
func boundaryMargin(bMin, bMax float64) float64 {
	return math.Max(MinBoundaryMargin, 0.1*(bMax-bMin))
}

// SelectItem picks the next item for an examinee at theta. It reports false
// when every item in the bank has been used.
//
// Boundary items are forced first: when theta is within the margin of the
// bank's hardest (or easiest) difficulty and no item at that difficulty has
// been administered yet, the first unused one is returned regardless of
// information. Otherwise the unused item with the most Fisher information at
// theta wins, ties going to the earliest item in bank order.
func SelectItem(bank *itembank.Bank, theta float64, used models.UsedSet) (Selection, bool) {
	available := make([]models.Item, 0, bank.Len())
	for i := 0; i < bank.Len(); i++ {
		if it := bank.At(i); !used.Has(it.ID) {
			available = append(available, it)
		}
	}
	if len(available) == 0 {
		return Selection{}, false
	}

	bMin, bMax := bank.DifficultyBounds()
	margin := boundaryMargin(bMin, bMax)

	if theta > bMax-margin && !administeredNear(bank, used, bMax) {
		if it, ok := firstNear(available, bMax); ok {
			return Selection{Item: it, Forced: true}, true
		}
	}
	if theta < bMin+margin && !administeredNear(bank, used, bMin) {
		if it, ok := firstNear(available, bMin); ok {
			return Selection{Item: it, Forced: true}, true
		}
	}

	best := -1
	maxInfo := -1.0
	for i, it := range available {
		if info := irt.FisherInformation(theta, it.Params()); info > maxInfo {
			maxInfo = info
			best = i
		}
	}
	if best < 0 {
		// Nothing compared (e.g. theta is NaN); keep the test moving.
		return Selection{Item: available[0]}, true
	}
	return Selection{Item: available[best]}, true
}

// administeredNear reports whether any used item has difficulty target.
func administeredNear(bank *itembank.Bank, used models.UsedSet, target float64) bool {
	for i := 0; i < bank.Len(); i++ {
		it := bank.At(i)
		if used.Has(it.ID) && nearDifficulty(it.B, target) {
			return true
		}
	}
	return false
}

func firstNear(items []models.Item, target float64) (models.Item, bool) {
	for _, it := range items {
		if nearDifficulty(it.B, target) {
			return it, true
		}
	}
	return models.Item{}, false
}
