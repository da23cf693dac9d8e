package irt

import "math"

// DefaultCeiling is the upper asymptote used when an item does not carry one.
const DefaultCeiling = 1.0

// Params holds the 3PL parameters of an item, extended with a ceiling.
type Params struct {
	A float64 // discrimination
	B float64 // difficulty
	G float64 // guessing floor
	U float64 // ceiling
}

// Probability returns the chance that an examinee with the given ability
// answers an item with parameters p correctly:
//
//	g + (u-g) / (1 + exp(-a*(theta-b)))
//
// When the exponential overflows the result saturates at g below the
// difficulty and at u above it.
func Probability(theta float64, p Params) float64 {
	e := math.Exp(-p.A * (theta - p.B))
	if math.IsInf(e, 0) || math.IsNaN(e) {
		if theta < p.B {
			return p.G
		}
		return p.U
	}
	return p.G + (p.U-p.G)/(1+e)
}

// FisherInformation returns the information an item carries at theta.
// Degenerate regions (p at either asymptote, or an undefined ratio) carry
// no information, so the result is always a finite value >= 0.
func FisherInformation(theta float64, p Params) float64 {
	prob := Probability(theta, p)
	q := 1 - prob
	if prob <= p.G || prob >= p.U || q <= 0 {
		return 0
	}

	spread := p.U - p.G
	denominator := prob * spread * spread
	if denominator <= 0 {
		return 0
	}

	info := p.A * p.A * (prob - p.G) * (prob - p.G) * q / denominator
	if math.IsNaN(info) || math.IsInf(info, 0) || info < 0 {
		return 0
	}
	return info
}
