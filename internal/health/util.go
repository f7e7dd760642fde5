package health

import "math"

// round3 rounds v to three decimal places, matching the precision the
// correlation and frequency-summary results are reported at.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
