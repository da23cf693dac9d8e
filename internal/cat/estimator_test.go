package cat

import (
	"math"
	"testing"

	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

func resp(a, b, g float64, answer int) models.Response {
	return models.Response{A: a, B: b, G: g, U: 1, Answer: answer}
}

func repeat(r models.Response, n int) []models.Response {
	out := make([]models.Response, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func mixedHistory() []models.Response {
	return []models.Response{
		resp(1.2, -1.0, 0.2, 1),
		resp(0.9, 0.0, 0.25, 1),
		resp(1.5, 0.8, 0.2, 0),
		resp(1.1, 0.4, 0.2, 1),
		resp(1.3, 1.2, 0.15, 0),
		resp(0.8, -0.5, 0.2, 1),
		resp(1.7, 0.6, 0.2, 1),
		resp(1.0, 1.5, 0.2, 0),
	}
}

// collapsingHistory makes the likelihood underflow at every grid point:
// each pair demands theta above 5.9 and below -5.9 at once.
func collapsingHistory() []models.Response {
	var out []models.Response
	for i := 0; i < 40; i++ {
		out = append(out,
			models.Response{A: 50, B: 5.9, G: 0, U: 1, Answer: 1},
			models.Response{A: 50, B: -5.9, G: 0, U: 1, Answer: 0},
		)
	}
	return out
}

func TestGrid(t *testing.T) {
	if len(grid) != GridPoints {
		t.Fatalf("len(grid) = %d, want %d", len(grid), GridPoints)
	}
	if grid[0] != -6 || grid[GridPoints-1] != 6 {
		t.Errorf("grid spans [%f, %f], want [-6, 6]", grid[0], grid[GridPoints-1])
	}
	if math.Abs(grid[500]) > 1e-9 {
		t.Errorf("grid midpoint = %g, want 0", grid[500])
	}

	var sum float64
	for _, w := range priorWeights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("prior weights sum to %f, want 1", sum)
	}
}

func TestEmptyHistoryReturnsPrior(t *testing.T) {
	want := models.Estimate{Theta: 0, SE: 2}
	if got := EstimateMAP(nil, 1.7); got != want {
		t.Errorf("EstimateMAP(nil) = %+v, want %+v", got, want)
	}
	if got := EstimateEAP(nil); got != want {
		t.Errorf("EstimateEAP(nil) = %+v, want %+v", got, want)
	}
}

func TestEstimateMAPEarlyStepCap(t *testing.T) {
	// Three correct answers on hard items pull the mode well above 1.
	up := EstimateMAP(repeat(resp(1.5, 3, 0.2, 1), 3), 0)
	if up.Theta != 1.0 {
		t.Errorf("EstimateMAP(3 hard correct) theta = %f, want 1.0", up.Theta)
	}

	down := EstimateMAP(repeat(resp(1.5, -3, 0.2, 0), 3), 0)
	if down.Theta != -1.0 {
		t.Errorf("EstimateMAP(3 easy wrong) theta = %f, want -1.0", down.Theta)
	}
}

func TestEstimateMAPLateStepCap(t *testing.T) {
	got := EstimateMAP(repeat(resp(1.5, 3, 0.2, 1), 6), 0)
	if got.Theta != 0.25 {
		t.Errorf("EstimateMAP(6 hard correct) theta = %f, want 0.25", got.Theta)
	}
}

func TestEstimateMAPStepBoundProperty(t *testing.T) {
	histories := [][]models.Response{
		repeat(resp(2, 4, 0.2, 1), 2),
		repeat(resp(2, -4, 0.2, 0), 4),
		mixedHistory()[:5],
		mixedHistory(),
		repeat(resp(1.5, 3, 0.2, 1), 12),
		repeat(resp(1.5, -3, 0.2, 0), 20),
	}
	olds := []float64{-5.9, -2.3, 0, 0.7, 2.3, 5.95}

	for _, h := range histories {
		limit := MaxStepLate
		if len(h) <= 5 {
			limit = MaxStepEarly
		}
		for _, old := range olds {
			got := EstimateMAP(h, old)
			if math.Abs(got.Theta-old) > limit+1e-12 {
				t.Errorf("len=%d old=%f: |%f - old| exceeds %f", len(h), old, got.Theta, limit)
			}
			if got.Theta < -6 || got.Theta > 6 || got.SE < 0 {
				t.Errorf("len=%d old=%f: estimate %+v out of range", len(h), old, got)
			}
		}
	}
}

func TestEstimateMAPStandardError(t *testing.T) {
	h := mixedHistory()
	got := EstimateMAP(h, 0.2)

	var info float64
	for _, r := range h {
		info += irt.FisherInformation(got.Theta, r.Params())
	}
	want := 1 / math.Sqrt(info)
	if math.Abs(got.SE-want) > 1e-12 {
		t.Errorf("EstimateMAP SE = %f, want %f", got.SE, want)
	}
}

func TestEstimateMAPZeroInformationDefaultsSE(t *testing.T) {
	// An item with u == g cannot be informative anywhere.
	h := []models.Response{{A: 1, B: 0, G: 0.3, U: 0.3, Answer: 1}}
	got, diag := estimateMAP(h, 0)
	if got.SE != 1.0 {
		t.Errorf("SE = %f, want default 1.0", got.SE)
	}
	if !diag.zeroInformation {
		t.Error("zero information fallback not reported")
	}
}

func TestEstimateEAP(t *testing.T) {
	high := EstimateEAP(repeat(resp(1, 0, 0, 1), 10))
	low := EstimateEAP(repeat(resp(1, 0, 0, 0), 10))
	if high.Theta <= 0 {
		t.Errorf("EAP after all correct = %f, want > 0", high.Theta)
	}
	if low.Theta >= 0 {
		t.Errorf("EAP after all wrong = %f, want < 0", low.Theta)
	}
	// Symmetric items and prior give mirror-image estimates.
	if math.Abs(high.Theta+low.Theta) > 1e-6 {
		t.Errorf("EAP estimates not symmetric: %f vs %f", high.Theta, low.Theta)
	}

	mixed := EstimateEAP(mixedHistory())
	if mixed.SE <= 0 || mixed.SE >= PriorSD {
		t.Errorf("EAP SE = %f, want in (0, %f)", mixed.SE, PriorSD)
	}
}

func TestEstimateEAPHasNoStepCap(t *testing.T) {
	got := EstimateEAP(repeat(resp(1.5, 3, 0.2, 1), 6))
	if got.Theta <= 1.0 {
		t.Errorf("EAP theta = %f, want above the MAP step cap", got.Theta)
	}
}

func TestPosteriorCollapseFallsBackToPrior(t *testing.T) {
	h := collapsingHistory()

	eap, diag := estimateEAP(h)
	if !diag.posteriorCollapsed {
		t.Fatal("collapse not reported")
	}
	if math.Abs(eap.Theta) > 1e-9 {
		t.Errorf("EAP theta under prior = %f, want 0", eap.Theta)
	}
	if eap.SE < 1.8 || eap.SE > 2.0 {
		t.Errorf("EAP SE under prior = %f, want about 1.9", eap.SE)
	}

	mapEst, diag := estimateMAP(h, 0)
	if !diag.posteriorCollapsed {
		t.Error("collapse not reported for MAP")
	}
	if math.Abs(mapEst.Theta) > 1e-9 {
		t.Errorf("MAP theta under prior = %f, want 0", mapEst.Theta)
	}
}

func TestEstimatesAreIdempotent(t *testing.T) {
	h := mixedHistory()
	if a, b := EstimateMAP(h, 0.4), EstimateMAP(h, 0.4); a != b {
		t.Errorf("EstimateMAP not idempotent: %+v vs %+v", a, b)
	}
	if a, b := EstimateEAP(h), EstimateEAP(h); a != b {
		t.Errorf("EstimateEAP not idempotent: %+v vs %+v", a, b)
	}
}

func TestEstimatesConcurrent(t *testing.T) {
	h := mixedHistory()
	wantMAP := EstimateMAP(h, 0)
	wantEAP := EstimateEAP(h)

	var g errgroup.Group
	results := make([][2]models.Estimate, 32)
	for i := range results {
		i := i
		g.Go(func() error {
			results[i] = [2]models.Estimate{EstimateMAP(h, 0), EstimateEAP(h)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r[0] != wantMAP || r[1] != wantEAP {
			t.Errorf("goroutine %d got %+v, want [%+v %+v]", i, r, wantMAP, wantEAP)
		}
	}
}

func TestExpectedFisherInformation(t *testing.T) {
	p := irt.Params{A: 1.4, B: 0.5, G: 0.2, U: 1}

	// With no responses the expectation is taken over the prior.
	var want float64
	for i, w := range priorWeights {
		want += w * irt.FisherInformation(grid[i], p)
	}
	if got := ExpectedFisherInformation(p, nil); math.Abs(got-want) > 1e-12 {
		t.Errorf("ExpectedFisherInformation(prior) = %f, want %f", got, want)
	}

	if got := ExpectedFisherInformation(p, mixedHistory()); got <= 0 {
		t.Errorf("ExpectedFisherInformation(posterior) = %f, want > 0", got)
	}
}
