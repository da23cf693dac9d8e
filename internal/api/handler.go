package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/models"
	"go.uber.org/zap"
)

const (
	methodMAP = "MAP"
	methodEAP = "EAP"
	methodMI  = "MI"
	modelName = "3PL"
)

type Handler struct {
	engine  *cat.Engine
	log     *zap.Logger
	version string
}

func NewHandler(engine *cat.Engine, log *zap.Logger, version string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: engine, log: log, version: version}
}

// decodeBody decodes a JSON request body. An empty body leaves v untouched
// so every field takes its default.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// badInput answers 400 for a malformed body or a response validation error.
func badInput(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: verr.Error()})
		return
	}
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
}

func (h *Handler) EstimateTheta(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateThetaRequest
	if err := decodeBody(r, &req); err != nil {
		badInput(w, err)
		return
	}
	if len(req.Responses) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No responses provided"})
		return
	}
	responses, err := models.ParseResponses(req.Responses)
	if err != nil {
		badInput(w, err)
		return
	}

	thetaOld := 0.0
	if req.ThetaOld != nil {
		thetaOld = *req.ThetaOld
	}
	est := h.engine.EstimateMAP(responses, thetaOld)

	writeJSON(w, http.StatusOK, models.EstimateThetaResponse{
		Theta:      est.Theta,
		SE:         est.SE,
		Method:     methodMAP,
		NResponses: len(responses),
		ThetaOld:   thetaOld,
	})
}

func (h *Handler) SelectItem(w http.ResponseWriter, r *http.Request) {
	var req models.SelectItemRequest
	if err := decodeBody(r, &req); err != nil {
		badInput(w, err)
		return
	}
	responses, err := models.ParseResponses(req.Responses)
	if err != nil {
		badInput(w, err)
		return
	}

	theta := 0.0
	if req.Theta != nil {
		theta = *req.Theta
	}
	choice, ok := h.engine.SelectItem(theta, models.NewUsedSet(req.UsedItemIDs), responses)
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No items available"})
		return
	}

	writeJSON(w, http.StatusOK, models.SelectItemResponse{
		Item:                      choice.Item,
		Probability:               choice.Probability,
		Information:               choice.Information,
		FisherInformation:         choice.Information,
		ExpectedFisherInformation: choice.ExpectedInformation,
		Method:                    methodMI,
		AvailableItems:            choice.Available,
		Forced:                    choice.Forced,
	})
}

func (h *Handler) StoppingCriteria(w http.ResponseWriter, r *http.Request) {
	var req models.StoppingRequest
	if err := decodeBody(r, &req); err != nil {
		badInput(w, err)
		return
	}
	responses, err := models.ParseResponses(req.Responses)
	if err != nil {
		badInput(w, err)
		return
	}

	se := 1.0
	switch {
	case req.SE != nil:
		se = *req.SE
	case req.SEEAP != nil:
		se = *req.SEEAP
	}

	var opts cat.StopOptions
	if req.MaxItems != nil {
		opts.MaxItems = *req.MaxItems
	}
	if req.SEThreshold != nil {
		opts.SEThreshold = *req.SEThreshold
	}
	// Report the options actually applied.
	defaults := h.engine.StopDefaults()
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaults.MaxItems
	}
	if !(opts.SEThreshold > 0) {
		opts.SEThreshold = defaults.SEThreshold
	}

	used := models.NewUsedSet(req.UsedItemIDs)
	d := h.engine.CheckStopping(responses, se, used, opts)

	writeJSON(w, http.StatusOK, models.StoppingResponse{
		ShouldStop:        d.Stop,
		Reason:            string(d.Reason),
		Message:           d.Message,
		ItemsAdministered: len(used),
		MaxItems:          opts.MaxItems,
		CurrentSE:         se,
		SEThreshold:       opts.SEThreshold,
	})
}

func (h *Handler) CalculateScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := decodeBody(r, &req); err != nil {
		badInput(w, err)
		return
	}

	theta := 0.0
	if req.Theta != nil {
		theta = float64(*req.Theta)
	}
	score := h.engine.Score(theta)
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		// JSON has no NaN; the base score already reflects the bad input.
		theta = 0
	}

	writeJSON(w, http.StatusOK, models.ScoreResponse{
		Score: score,
		Theta: theta,
		Scale: cat.ScaleName,
	})
}

func (h *Handler) FinalScore(w http.ResponseWriter, r *http.Request) {
	var req models.FinalScoreRequest
	if err := decodeBody(r, &req); err != nil {
		badInput(w, err)
		return
	}
	if len(req.Responses) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No responses provided"})
		return
	}
	responses, err := models.ParseResponses(req.Responses)
	if err != nil {
		badInput(w, err)
		return
	}

	est := h.engine.EstimateEAP(responses)
	writeJSON(w, http.StatusOK, models.FinalScoreResponse{
		Theta:      est.Theta,
		SEEAP:      est.SE,
		FinalScore: h.engine.Score(est.Theta),
		Method:     methodEAP,
		NResponses: len(responses),
	})
}

func (h *Handler) ItemBank(w http.ResponseWriter, r *http.Request) {
	bank := h.engine.Bank()
	bMin, bMax := bank.DifficultyBounds()
	writeJSON(w, http.StatusOK, models.ItemBankResponse{
		Items: bank.Items(),
		Count: bank.Len(),
		BMin:  bMin,
		BMax:  bMax,
		Model: modelName,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Items:   h.engine.Bank().Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
