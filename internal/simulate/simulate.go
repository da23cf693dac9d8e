// Package simulate drives complete adaptive sessions against an engine for
// examinees of known ability. It backs the catctl simulate command and the
// end-to-end tests.
package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options configures one simulated session.
type Options struct {
	TrueTheta float64
	Seed      int64
	Stop      cat.StopOptions
}

// Step records one administered item.
type Step struct {
	ItemID  string  `json:"item_id"`
	B       float64 `json:"b"`
	Forced  bool    `json:"forced"`
	Correct bool    `json:"correct"`
	Theta   float64 `json:"theta"`
	SE      float64 `json:"se"`
}

// Result is the transcript of a finished session.
type Result struct {
	RunID     string         `json:"run_id"`
	TrueTheta float64        `json:"true_theta"`
	Steps     []Step         `json:"steps"`
	Theta     float64        `json:"theta"`
	SE        float64        `json:"se"`
	Score     float64        `json:"score"`
	Reason    cat.StopReason `json:"reason"`
	Message   string         `json:"message"`
}

// Run administers items until the stopping rule fires. Answers are drawn
// from the 3PL model at the true theta using a generator seeded with
// opts.Seed, so a run is reproducible.
func Run(e *cat.Engine, opts Options) Result {
	rng := rand.New(rand.NewSource(opts.Seed))
	res := Result{RunID: uuid.NewString(), TrueTheta: opts.TrueTheta}

	var (
		responses []models.Response
		used      = models.UsedSet{}
		theta     = cat.PriorMean
		se        = cat.PriorSD
	)
	for {
		d := e.CheckStopping(responses, se, used, opts.Stop)
		if d.Stop {
			res.Reason, res.Message = d.Reason, d.Message
			break
		}
		choice, ok := e.SelectItem(theta, used, responses)
		if !ok {
			res.Reason, res.Message = cat.ReasonBankExhausted, "no items available"
			break
		}

		correct := rng.Float64() < irt.Probability(opts.TrueTheta, choice.Item.Params())
		responses = append(responses, models.ResponseFor(choice.Item, correct))
		used = used.With(choice.Item.ID)

		theta = e.EstimateMAP(responses, theta).Theta
		se = e.EstimateEAP(responses).SE
		res.Steps = append(res.Steps, Step{
			ItemID:  choice.Item.ID,
			B:       choice.Item.B,
			Forced:  choice.Forced,
			Correct: correct,
			Theta:   theta,
			SE:      se,
		})
	}

	final := e.EstimateEAP(responses)
	res.Theta, res.SE = final.Theta, final.SE
	res.Score = e.Score(final.Theta)
	return res
}

// RunMany runs one session per true theta on at most workers goroutines.
// Session i is seeded with seed+i. Results keep the order of thetas.
func RunMany(ctx context.Context, e *cat.Engine, thetas []float64, workers int, seed int64, stop cat.StopOptions) ([]Result, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("invalid worker count: %d", workers)
	}
	results := make([]Result, len(thetas))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, theta := range thetas {
		i, theta := i, theta
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Run(e, Options{TrueTheta: theta, Seed: seed + int64(i), Stop: stop})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run simulations: %w", err)
	}
	return results, nil
}

// Summary aggregates a batch of results.
type Summary struct {
	Runs      int                    `json:"runs"`
	MeanItems float64                `json:"mean_items"`
	MeanBias  float64                `json:"mean_bias"`
	RMSE      float64                `json:"rmse"`
	Reasons   map[cat.StopReason]int `json:"reasons"`
}

func Summarize(results []Result) Summary {
	s := Summary{Runs: len(results), Reasons: map[cat.StopReason]int{}}
	if len(results) == 0 {
		return s
	}
	var items, bias, sq float64
	for _, r := range results {
		items += float64(len(r.Steps))
		diff := r.Theta - r.TrueTheta
		bias += diff
		sq += diff * diff
		s.Reasons[r.Reason]++
	}
	n := float64(len(results))
	s.MeanItems = items / n
	s.MeanBias = bias / n
	s.RMSE = math.Sqrt(sq / n)
	return s
}
