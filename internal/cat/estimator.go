package cat

import (
	"math"

	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/models"
)

const (
	// GridPoints is the number of quadrature points spanning the theta scale.
	GridPoints = 1001

	// Prior used by both estimators.
	PriorMean = 0.0
	PriorSD   = 2.0

	// MAP step caps: before EarlyResponses answers the estimate may move by
	// MaxStepEarly per call, afterwards by MaxStepLate.
	EarlyResponses = 6
	MaxStepEarly   = 1.0
	MaxStepLate    = 0.25

	// Likelihood terms are clipped to keep the posterior from degenerating.
	probClip = 1e-10
)

// grid and priorWeights are built once and only read afterwards.
var (
	grid         = quadratureGrid()
	priorWeights = normalPrior(grid)
)

func quadratureGrid() []float64 {
	pts := make([]float64, GridPoints)
	step := (models.ThetaMax - models.ThetaMin) / float64(GridPoints-1)
	for i := range pts {
		pts[i] = models.ThetaMin + float64(i)*step
	}
	pts[GridPoints-1] = models.ThetaMax
	return pts
}

// normalPrior returns Normal(PriorMean, PriorSD) density at each point,
// normalised to sum to 1. The density's constant factor cancels out.
func normalPrior(pts []float64) []float64 {
	w := make([]float64, len(pts))
	var sum float64
	for i, x := range pts {
		z := (x - PriorMean) / PriorSD
		w[i] = math.Exp(-0.5 * z * z)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// diagnostics records the numeric fallbacks taken during an estimate.
type diagnostics struct {
	posteriorCollapsed bool
	zeroInformation    bool
}

// posterior returns the normalised posterior over the grid. When the
// likelihood collapses to zero everywhere the prior is returned instead.
func posterior(responses []models.Response) ([]float64, bool) {
	post := make([]float64, GridPoints)
	for i := range post {
		post[i] = 1
	}

	for _, r := range responses {
		params := r.Params()
		correct := r.Correct()
		for i, theta := range grid {
			p := math.Min(math.Max(irt.Probability(theta, params), probClip), 1-probClip)
			if correct {
				post[i] *= p
			} else {
				post[i] *= 1 - p
			}
		}
	}

	var sum float64
	for i := range post {
		post[i] *= priorWeights[i]
		sum += post[i]
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		copy(post, priorWeights)
		return post, true
	}
	for i := range post {
		post[i] /= sum
	}
	return post, false
}

func clampTheta(theta float64) float64 {
	return math.Max(models.ThetaMin, math.Min(models.ThetaMax, theta))
}

// priorEstimate is returned for an empty history.
func priorEstimate() models.Estimate {
	return models.Estimate{Theta: PriorMean, SE: PriorSD}
}

// EstimateMAP returns the posterior mode, moved at most one step cap away
// from thetaOld. Used after every response during a test.
func EstimateMAP(responses []models.Response, thetaOld float64) models.Estimate {
	est, _ := estimateMAP(responses, thetaOld)
	return est
}

func estimateMAP(responses []models.Response, thetaOld float64) (models.Estimate, diagnostics) {
	var diag diagnostics
	if len(responses) == 0 {
		return priorEstimate(), diag
	}

	post, collapsed := posterior(responses)
	diag.posteriorCollapsed = collapsed

	best := 0
	for i := 1; i < len(post); i++ {
		if post[i] > post[best] {
			best = i
		}
	}
	theta := grid[best]

	maxStep := MaxStepLate
	if len(responses) < EarlyResponses {
		maxStep = MaxStepEarly
	}
	if change := theta - thetaOld; math.Abs(change) > maxStep {
		theta = thetaOld + math.Copysign(maxStep, change)
	}
	theta = clampTheta(theta)

	var info float64
	for _, r := range responses {
		info += irt.FisherInformation(theta, r.Params())
	}
	se := 1.0
	if info > 0 {
		se = 1 / math.Sqrt(info)
	} else {
		diag.zeroInformation = true
	}

	return models.Estimate{Theta: theta, SE: se}, diag
}

// EstimateEAP returns the posterior mean and standard deviation. It has no
// step cap and is meant for final scoring.
func EstimateEAP(responses []models.Response) models.Estimate {
	est, _ := estimateEAP(responses)
	return est
}

func estimateEAP(responses []models.Response) (models.Estimate, diagnostics) {
	var diag diagnostics
	if len(responses) == 0 {
		return priorEstimate(), diag
	}

	post, collapsed := posterior(responses)
	diag.posteriorCollapsed = collapsed

	var mean float64
	for i, w := range post {
		mean += grid[i] * w
	}
	theta := clampTheta(mean)

	var variance float64
	for i, w := range post {
		d := grid[i] - theta
		variance += d * d * w
	}

	return models.Estimate{Theta: theta, SE: math.Sqrt(variance)}, diag
}

// ExpectedFisherInformation averages an item's information over the
// current posterior (the prior when there are no responses yet).
func ExpectedFisherInformation(p irt.Params, responses []models.Response) float64 {
	post, _ := posterior(responses)
	var efi float64
	for i, w := range post {
		efi += irt.FisherInformation(grid[i], p) * w
	}
	return efi
}
