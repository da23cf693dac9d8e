// Package itembank holds the calibrated item collection the engine draws from.
// A Bank is built once at startup and is read-only afterwards, so it can be
// shared across goroutines without locking.
package itembank

import (
	"errors"
	"fmt"
	"math"

	"github.com/cat-engine/backend/internal/models"
)

// ErrEmptyBank is returned when a bank would contain no items.
var ErrEmptyBank = errors.New("item bank is empty")

// Bank is an immutable, ordered collection of items.
type Bank struct {
	items []models.Item
	index map[string]int
	bMin  float64
	bMax  float64
}

// New validates items and builds a bank. The slice is copied.
func New(items []models.Item) (*Bank, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBank
	}

	b := &Bank{
		items: make([]models.Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	copy(b.items, items)

	for i, it := range b.items {
		if err := validateItem(it); err != nil {
			return nil, fmt.Errorf("item %d (%q): %w", i, it.ID, err)
		}
		if _, dup := b.index[it.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, it.ID)
		}
		b.index[it.ID] = i
	}

	b.bMin, b.bMax = difficultyBounds(b.items)
	return b, nil
}

func validateItem(it models.Item) error {
	if it.ID == "" {
		return errors.New("missing id")
	}
	for _, v := range []float64{it.A, it.B, it.G, it.U} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("parameters must be finite")
		}
	}
	if it.A <= 0 {
		return fmt.Errorf("discrimination must be positive, got %g", it.A)
	}
	if it.G < 0 || it.G >= it.U || it.U > 1 {
		return fmt.Errorf("need 0 <= g < u <= 1, got g=%g u=%g", it.G, it.U)
	}
	return nil
}

// difficultyBounds returns the smallest and largest difficulty within the
// theta scale. Without any in-range item the scale limits are used.
func difficultyBounds(items []models.Item) (float64, float64) {
	bMin, bMax := math.Inf(1), math.Inf(-1)
	for _, it := range items {
		if it.B < models.ThetaMin || it.B > models.ThetaMax {
			continue
		}
		bMin = math.Min(bMin, it.B)
		bMax = math.Max(bMax, it.B)
	}
	if math.IsInf(bMin, 1) {
		return models.ThetaMin, models.ThetaMax
	}
	return bMin, bMax
}

// Len returns the number of items.
func (b *Bank) Len() int { return len(b.items) }

// At returns the i-th item in load order.
func (b *Bank) At(i int) models.Item { return b.items[i] }

// Items returns a copy of the items in load order.
func (b *Bank) Items() []models.Item {
	out := make([]models.Item, len(b.items))
	copy(out, b.items)
	return out
}

// Lookup finds an item by id.
func (b *Bank) Lookup(id string) (models.Item, bool) {
	i, ok := b.index[id]
	if !ok {
		return models.Item{}, false
	}
	return b.items[i], true
}

// DifficultyBounds returns the minimum and maximum valid difficulty
// (b within [-6, 6]) across the whole bank.
func (b *Bank) DifficultyBounds() (bMin, bMax float64) {
	return b.bMin, b.bMax
}
