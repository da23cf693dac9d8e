package models

import "github.com/cat-engine/backend/internal/irt"

// Theta bounds of the reported ability scale.
const (
	ThetaMin = -6.0
	ThetaMax = 6.0
)

// Item is a calibrated test item. Items are immutable once loaded into a bank.
type Item struct {
	ID string  `json:"id" yaml:"id"`
	A  float64 `json:"a" yaml:"a"`
	B  float64 `json:"b" yaml:"b"`
	G  float64 `json:"g" yaml:"g"`
	U  float64 `json:"u" yaml:"u"`
}

// Params returns the item's 3PL parameters.
func (it Item) Params() irt.Params {
	return irt.Params{A: it.A, B: it.B, G: it.G, U: it.U}
}

// Response is one administered item: its parameters at the time of
// administration plus the scored answer (1 correct, 0 incorrect).
type Response struct {
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	G      float64 `json:"g"`
	U      float64 `json:"u"`
	Answer int     `json:"answer"`
}

// Params returns the 3PL parameters the response was administered with.
func (r Response) Params() irt.Params {
	return irt.Params{A: r.A, B: r.B, G: r.G, U: r.U}
}

// Correct reports whether the response was answered correctly.
func (r Response) Correct() bool {
	return r.Answer == 1
}

// ResponseFor builds the response record for an administered item.
func ResponseFor(it Item, correct bool) Response {
	r := Response{A: it.A, B: it.B, G: it.G, U: it.U}
	if correct {
		r.Answer = 1
	}
	return r
}

// Estimate is an ability estimate with its standard error.
type Estimate struct {
	Theta float64 `json:"theta"`
	SE    float64 `json:"se"`
}

// UsedSet is the set of item IDs already administered in a session.
type UsedSet map[string]struct{}

// NewUsedSet builds a set from a list of IDs. Duplicates collapse.
func NewUsedSet(ids []string) UsedSet {
	s := make(UsedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id was administered.
func (s UsedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// With returns a copy of the set that also contains id.
func (s UsedSet) With(id string) UsedSet {
	out := make(UsedSet, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	out[id] = struct{}{}
	return out
}
