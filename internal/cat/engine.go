// Package cat implements the adaptive testing engine: Bayesian theta
// estimation over a fixed quadrature grid, maximum-information item
// selection with boundary forcing, the stopping rule and score conversion.
//
// Everything here is stateless per call. The only shared value is the
// item bank, which is immutable, so an Engine may serve any number of
// concurrent sessions.
package cat

import (
	"errors"

	"github.com/cat-engine/backend/internal/irt"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/models"
	"go.uber.org/zap"
)

type Engine struct {
	bank *itembank.Bank
	log  *zap.Logger
	stop StopOptions
}

type Option func(*Engine)

// WithLogger sets the logger used for selection and numeric diagnostics.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithStopOptions sets the stopping defaults used when a call leaves them unset.
func WithStopOptions(o StopOptions) Option { return func(e *Engine) { e.stop = o } }

// NewEngine builds an engine over bank. A nil bank is an initialization error.
func NewEngine(bank *itembank.Bank, opts ...Option) (*Engine, error) {
	if bank == nil || bank.Len() == 0 {
		return nil, itembank.ErrEmptyBank
	}
	e := &Engine{bank: bank, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		return nil, errors.New("cat: nil logger")
	}
	e.stop = e.stop.withDefaults()
	return e, nil
}

func (e *Engine) Bank() *itembank.Bank { return e.bank }

// StopDefaults returns the stopping options applied to unset fields.
func (e *Engine) StopDefaults() StopOptions { return e.stop }

func (e *Engine) report(method string, n int, est models.Estimate, d diagnostics) {
	if d.posteriorCollapsed {
		e.log.Warn("posterior collapsed, using prior",
			zap.String("method", method), zap.Int("responses", n))
	}
	if d.zeroInformation {
		e.log.Debug("zero total information, default SE",
			zap.String("method", method), zap.Int("responses", n), zap.Float64("theta", est.Theta))
	}
}

// EstimateMAP is the real-time estimate used after each response.
func (e *Engine) EstimateMAP(responses []models.Response, thetaOld float64) models.Estimate {
	est, d := estimateMAP(responses, thetaOld)
	e.report("MAP", len(responses), est, d)
	return est
}

// EstimateEAP is the final, unconstrained estimate.
func (e *Engine) EstimateEAP(responses []models.Response) models.Estimate {
	est, d := estimateEAP(responses)
	e.report("EAP", len(responses), est, d)
	return est
}

// ItemChoice is a selected item with diagnostics at the current estimate.
type ItemChoice struct {
	Selection
	Probability         float64
	Information         float64
	ExpectedInformation float64
	Available           int
}

// SelectItem chooses the next item. responses only feed the expected
// information diagnostic; they do not influence the choice.
func (e *Engine) SelectItem(theta float64, used models.UsedSet, responses []models.Response) (ItemChoice, bool) {
	sel, ok := SelectItem(e.bank, theta, used)
	if !ok {
		e.log.Debug("no items available", zap.Int("used", len(used)))
		return ItemChoice{}, false
	}

	available := 0
	for i := 0; i < e.bank.Len(); i++ {
		if !used.Has(e.bank.At(i).ID) {
			available++
		}
	}

	p := sel.Item.Params()
	choice := ItemChoice{
		Selection:           sel,
		Probability:         irt.Probability(theta, p),
		Information:         irt.FisherInformation(theta, p),
		ExpectedInformation: ExpectedFisherInformation(p, responses),
		Available:           available,
	}

	e.log.Debug("selected item",
		zap.String("item_id", sel.Item.ID),
		zap.Float64("b", sel.Item.B),
		zap.Float64("theta", theta),
		zap.Float64("information", choice.Information),
		zap.Bool("forced", sel.Forced),
	)
	return choice, true
}

// CheckStopping applies the stopping rule. Unset option fields take the
// engine defaults.
func (e *Engine) CheckStopping(responses []models.Response, se float64, used models.UsedSet, opts StopOptions) StopDecision {
	if opts.MaxItems <= 0 {
		opts.MaxItems = e.stop.MaxItems
	}
	if !(opts.SEThreshold > 0) {
		opts.SEThreshold = e.stop.SEThreshold
	}
	d := CheckStopping(e.bank, responses, se, used, opts)
	e.log.Debug("stopping check",
		zap.Int("responses", len(responses)),
		zap.Float64("se", se),
		zap.Int("used", len(used)),
		zap.Bool("stop", d.Stop),
		zap.String("reason", string(d.Reason)),
	)
	return d
}

// Score converts theta to the reported score.
func (e *Engine) Score(theta float64) float64 {
	return Score(theta)
}
