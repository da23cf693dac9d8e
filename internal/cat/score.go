package cat

import "math"

// Reported scale: theta 0 maps to BaseScore, each unit of theta is worth
// ScorePerTheta points.
const (
	BaseScore     = 100.0
	ScorePerTheta = 15.0
	ScaleName     = "IQ-based (100 + 15*theta)"
)

// Score converts an ability estimate to the reported score. Non-numeric
// input scores BaseScore.
func Score(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return BaseScore
	}
	return BaseScore + ScorePerTheta*theta
}
