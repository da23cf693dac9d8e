package simulate

import (
	"context"
	"fmt"
	"testing"

	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, n int) *cat.Engine {
	t.Helper()
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			ID: fmt.Sprintf("q%02d", i),
			A:  0.8 + 0.05*float64(i%10),
			B:  -3 + 6*float64(i)/float64(n-1),
			G:  0.2,
			U:  1,
		}
	}
	bank, err := itembank.New(items)
	require.NoError(t, err)
	e, err := cat.NewEngine(bank)
	require.NoError(t, err)
	return e
}

func TestRunTerminatesWithoutRepeats(t *testing.T) {
	e := newEngine(t, 40)

	for _, theta := range []float64{-2.5, -1, 0, 1.2, 2.8} {
		res := Run(e, Options{TrueTheta: theta, Seed: 7})
		require.NotEqual(t, cat.ReasonContinue, res.Reason)
		assert.LessOrEqual(t, len(res.Steps), cat.DefaultMaxItems)
		assert.NotEmpty(t, res.Steps)

		seen := map[string]bool{}
		for _, s := range res.Steps {
			assert.False(t, seen[s.ItemID], "item %s repeated", s.ItemID)
			seen[s.ItemID] = true
		}
		assert.InDelta(t, 100+15*res.Theta, res.Score, 1e-9)
		assert.NotEmpty(t, res.RunID)
	}
}

func TestRunIsReproducible(t *testing.T) {
	e := newEngine(t, 40)

	a := Run(e, Options{TrueTheta: 0.8, Seed: 42})
	b := Run(e, Options{TrueTheta: 0.8, Seed: 42})
	assert.NotEqual(t, a.RunID, b.RunID)
	a.RunID, b.RunID = "", ""
	assert.Equal(t, a, b)
}

func TestRunRespectsItemLimit(t *testing.T) {
	e := newEngine(t, 40)

	res := Run(e, Options{TrueTheta: 0.3, Seed: 3, Stop: cat.StopOptions{MaxItems: 5, SEThreshold: 0.01}})
	assert.LessOrEqual(t, len(res.Steps), 5)
	// A boundary rule may end the session first; otherwise the limit does.
	if res.Reason == cat.ReasonItemLimit {
		assert.Len(t, res.Steps, 5)
	} else {
		assert.Contains(t, []cat.StopReason{cat.ReasonCeilingCorrect, cat.ReasonFloorIncorrect}, res.Reason)
	}
}

func TestRunExhaustsSmallBank(t *testing.T) {
	e := newEngine(t, 6)

	res := Run(e, Options{TrueTheta: 0, Seed: 1, Stop: cat.StopOptions{SEThreshold: 0.01}})
	assert.LessOrEqual(t, len(res.Steps), 6)
	assert.NotEqual(t, cat.ReasonContinue, res.Reason)
}

func TestRunManyOrdersResults(t *testing.T) {
	e := newEngine(t, 40)
	thetas := []float64{-2, -1, 0, 1, 2, -2, -1, 0, 1, 2}

	results, err := RunMany(context.Background(), e, thetas, 4, 100, cat.StopOptions{})
	require.NoError(t, err)
	require.Len(t, results, len(thetas))
	for i, r := range results {
		assert.Equal(t, thetas[i], r.TrueTheta)

		want := Run(e, Options{TrueTheta: thetas[i], Seed: 100 + int64(i)})
		r.RunID, want.RunID = "", ""
		assert.Equal(t, want, r, "run %d differs from its sequential replay", i)
	}

	s := Summarize(results)
	assert.Equal(t, len(thetas), s.Runs)
	assert.Greater(t, s.MeanItems, 0.0)
	assert.GreaterOrEqual(t, s.RMSE, 0.0)
	total := 0
	for _, n := range s.Reasons {
		total += n
	}
	assert.Equal(t, len(thetas), total)
}

func TestRunManyErrors(t *testing.T) {
	e := newEngine(t, 10)

	_, err := RunMany(context.Background(), e, []float64{0}, 0, 1, cat.StopOptions{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunMany(ctx, e, []float64{0, 1}, 1, 1, cat.StopOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Runs)
	assert.Empty(t, s.Reasons)
}
