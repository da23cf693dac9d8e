package cat

import (
	"testing"

	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewEngineRequiresBank(t *testing.T) {
	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, itembank.ErrEmptyBank)

	_, err = NewEngine(boundaryBank(t), WithLogger(nil))
	assert.Error(t, err)
}

func TestEngineLogsPosteriorCollapse(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(boundaryBank(t), WithLogger(zap.New(core)))
	require.NoError(t, err)

	est := e.EstimateEAP(collapsingHistory())
	assert.InDelta(t, 0, est.Theta, 1e-9)

	warnings := logs.FilterMessage("posterior collapsed, using prior").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "EAP", warnings[0].ContextMap()["method"])
}

func TestEngineSelectItem(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(boundaryBank(t), WithLogger(zap.New(core)))
	require.NoError(t, err)

	used := models.NewUsedSet([]string{"m1", "m2"})
	choice, ok := e.SelectItem(2.6, used, nil)
	require.True(t, ok)
	assert.Equal(t, "h1", choice.Item.ID)
	assert.True(t, choice.Forced)
	assert.Equal(t, 4, choice.Available)
	assert.Greater(t, choice.Probability, 0.2)
	assert.Less(t, choice.Probability, 1.0)
	assert.GreaterOrEqual(t, choice.Information, 0.0)
	assert.Greater(t, choice.ExpectedInformation, 0.0)
	assert.Equal(t, 1, logs.FilterMessage("selected item").Len())

	all := models.NewUsedSet([]string{"e1", "m1", "m2", "m3", "m4", "h1"})
	_, ok = e.SelectItem(0, all, nil)
	assert.False(t, ok)
}

func TestEngineStopDefaults(t *testing.T) {
	e, err := NewEngine(boundaryBank(t), WithStopOptions(StopOptions{MaxItems: 5}))
	require.NoError(t, err)
	assert.Equal(t, StopOptions{MaxItems: 5, SEThreshold: DefaultSEThreshold}, e.StopDefaults())

	mid := resp(1.2, 0, 0.2, 1)
	d := e.CheckStopping(repeat(mid, 5), 0.9, nil, StopOptions{})
	assert.Equal(t, ReasonItemLimit, d.Reason)

	// Per-call options win over engine defaults.
	d = e.CheckStopping(repeat(mid, 5), 0.9, nil, StopOptions{MaxItems: 8})
	assert.Equal(t, ReasonContinue, d.Reason)
	assert.False(t, d.Stop)
}

// A full session driven by the engine must end within the bank size and
// never repeat an item.
func TestEngineSessionTerminates(t *testing.T) {
	var items []models.Item
	for i := 0; i < 15; i++ {
		items = append(items, models.Item{
			ID: string(rune('a' + i)), A: 1 + 0.05*float64(i), B: -3 + 0.4*float64(i), G: 0.2, U: 1,
		})
	}
	bank := mustBank(t, items...)
	e, err := NewEngine(bank, WithStopOptions(StopOptions{MaxItems: 100, SEThreshold: 0.01}))
	require.NoError(t, err)

	var (
		responses []models.Response
		used      models.UsedSet
		est       = models.Estimate{Theta: 0, SE: 2}
	)
	for step := 0; ; step++ {
		require.LessOrEqual(t, step, bank.Len(), "session did not terminate")
		if d := e.CheckStopping(responses, est.SE, used, StopOptions{}); d.Stop {
			break
		}
		choice, ok := e.SelectItem(est.Theta, used, responses)
		require.True(t, ok)
		require.False(t, used.Has(choice.Item.ID), "item %s repeated", choice.Item.ID)
		used = used.With(choice.Item.ID)
		// Alternate answers to keep the estimate near the middle of the bank.
		responses = append(responses, models.ResponseFor(choice.Item, step%2 == 0))
		est = e.EstimateMAP(responses, est.Theta)
	}
	assert.LessOrEqual(t, len(responses), bank.Len())
}

func TestEngineScore(t *testing.T) {
	e, err := NewEngine(boundaryBank(t))
	require.NoError(t, err)
	assert.Equal(t, 115.0, e.Score(1))
}
