package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cat-engine/backend/internal/irt"
)

// ── Validation ────────────────────────────────────────────

// ValidationError reports malformed caller input. Computation is never
// attempted once one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ── Wire-level scalars ────────────────────────────────────

// ItemIDs decodes a JSON array of item identifiers given either as strings
// or as numbers, normalising every entry to its string form.
type ItemIDs []string

func (ids *ItemIDs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ids = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("item ids must be an array: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id, err := decodeID(r)
		if err != nil {
			return err
		}
		out = append(out, id)
	}
	*ids = out
	return nil
}

func decodeID(r json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(r))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("invalid item id %s", string(r))
	}
	return n.String(), nil
}

// Number is a lenient float: it accepts JSON numbers and numeric strings.
// Anything else decodes to NaN instead of failing the request.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number(v)
			return nil
		}
	}
	*n = Number(math.NaN())
	return nil
}

// ── Response payloads ─────────────────────────────────────

// ItemParamsInput carries item parameters as sent by a client. Pointers
// distinguish an absent field from a zero value.
type ItemParamsInput struct {
	ID json.RawMessage `json:"id,omitempty"`
	A  *float64        `json:"a"`
	B  *float64        `json:"b"`
	G  *float64        `json:"g"`
	U  *float64        `json:"u"`
}

// ResponseInput accepts both the flat shape {a,b,g,u,answer} and the
// nested shape {item:{a,b,g,u},answer}.
type ResponseInput struct {
	ItemParamsInput
	Item   *ItemParamsInput `json:"item,omitempty"`
	Answer *int             `json:"answer"`
}

// ToResponse validates the input and fills defaults (u = 1.0).
func (in ResponseInput) ToResponse(index int) (Response, error) {
	field := func(name string) string { return fmt.Sprintf("responses[%d].%s", index, name) }

	params := in.ItemParamsInput
	prefix := ""
	if in.Item != nil {
		params = *in.Item
		prefix = "item."
	}

	if params.A == nil || params.B == nil || params.G == nil || in.Answer == nil {
		return Response{}, &ValidationError{
			Field:   fmt.Sprintf("responses[%d]", index),
			Message: fmt.Sprintf("required keys: %sa, %sb, %sg, answer", prefix, prefix, prefix),
		}
	}

	r := Response{A: *params.A, B: *params.B, G: *params.G, U: irt.DefaultCeiling, Answer: *in.Answer}
	if params.U != nil {
		r.U = *params.U
	}

	checks := []struct {
		name string
		v    float64
	}{{"a", r.A}, {"b", r.B}, {"g", r.G}, {"u", r.U}}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return Response{}, &ValidationError{Field: field(prefix + c.name), Message: "must be a finite number"}
		}
	}
	if r.G >= r.U {
		return Response{}, &ValidationError{Field: field(prefix + "g"), Message: "must be less than u"}
	}
	if r.Answer != 0 && r.Answer != 1 {
		return Response{}, &ValidationError{Field: field("answer"), Message: "must be 0 or 1"}
	}
	return r, nil
}

// ParseResponses converts a list of wire responses into typed records.
func ParseResponses(in []ResponseInput) ([]Response, error) {
	out := make([]Response, 0, len(in))
	for i, r := range in {
		resp, err := r.ToResponse(i)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// ── API Request/Response Types ────────────────────────────

type EstimateThetaRequest struct {
	Responses []ResponseInput `json:"responses"`
	ThetaOld  *float64        `json:"theta_old,omitempty"`
}

type EstimateThetaResponse struct {
	Theta      float64 `json:"theta"`
	SE         float64 `json:"se"`
	Method     string  `json:"method"`
	NResponses int     `json:"n_responses"`
	ThetaOld   float64 `json:"theta_old"`
}

type SelectItemRequest struct {
	Theta       *float64        `json:"theta,omitempty"`
	UsedItemIDs ItemIDs         `json:"used_item_ids"`
	Responses   []ResponseInput `json:"responses"`
}

type SelectItemResponse struct {
	Item                      Item    `json:"item"`
	Probability               float64 `json:"probability"`
	Information               float64 `json:"information"`
	FisherInformation         float64 `json:"fisher_information"`
	ExpectedFisherInformation float64 `json:"expected_fisher_information"`
	Method                    string  `json:"method"`
	AvailableItems            int     `json:"available_items"`
	Forced                    bool    `json:"forced"`
}

type StoppingRequest struct {
	Responses   []ResponseInput `json:"responses"`
	SE          *float64        `json:"se,omitempty"`
	SEEAP       *float64        `json:"se_eap,omitempty"`
	UsedItemIDs ItemIDs         `json:"used_item_ids"`
	MaxItems    *int            `json:"max_items,omitempty"`
	SEThreshold *float64        `json:"se_threshold,omitempty"`
}

type StoppingResponse struct {
	ShouldStop        bool    `json:"should_stop"`
	Reason            string  `json:"reason"`
	Message           string  `json:"message"`
	ItemsAdministered int     `json:"items_administered"`
	MaxItems          int     `json:"max_items"`
	CurrentSE         float64 `json:"current_se"`
	SEThreshold       float64 `json:"se_threshold"`
}

type ScoreRequest struct {
	Theta *Number `json:"theta"`
}

type ScoreResponse struct {
	Score float64 `json:"score"`
	Theta float64 `json:"theta"`
	Scale string  `json:"scale"`
}

type FinalScoreRequest struct {
	Responses []ResponseInput `json:"responses"`
}

type FinalScoreResponse struct {
	Theta      float64 `json:"theta"`
	SEEAP      float64 `json:"se_eap"`
	FinalScore float64 `json:"final_score"`
	Method     string  `json:"method"`
	NResponses int     `json:"n_responses"`
}

type ItemBankResponse struct {
	Items []Item  `json:"items"`
	Count int     `json:"count"`
	BMin  float64 `json:"b_min"`
	BMax  float64 `json:"b_max"`
	Model string  `json:"model"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Items   int    `json:"items"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
