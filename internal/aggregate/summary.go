package aggregate

import (
	"math"
	"sort"

	"github.com/banshee-data/registration.report/internal/results"
	"gonum.org/v1/gonum/stat"
)

// Summary holds whole-set statistics for a result set.
type Summary struct {
	Trials           int     `json:"trials"`
	Successes        int     `json:"successes"`
	SuccessRate      float64 `json:"success_rate"`
	FiniteErrors     int     `json:"finite_errors"`
	MeanError        float64 `json:"mean_error"`
	StdError         float64 `json:"std_error"`
	MedianError      float64 `json:"median_error"`
	MeanDisplacement float64 `json:"mean_displacement"`
	StdDisplacement  float64 `json:"std_displacement"`
}

// Summarize computes overall statistics. Non-finite errors count as failures
// and are left out of the error moments. Standard deviations are sample
// deviations and are 0 with fewer than two values.
func Summarize(rs *results.ResultSet, threshold float64) Summary {
	s := Summary{Trials: rs.Len()}
	if s.Trials == 0 {
		return s
	}

	finite := make([]float64, 0, s.Trials)
	for _, t := range rs.Trials {
		if Succeeded(t.Error, threshold) {
			s.Successes++
		}
		if !math.IsNaN(t.Error) && !math.IsInf(t.Error, 0) {
			finite = append(finite, t.Error)
		}
	}
	s.SuccessRate = float64(s.Successes) / float64(s.Trials)
	s.FiniteErrors = len(finite)

	if len(finite) > 0 {
		s.MeanError, s.StdError = meanStd(finite)
		sort.Float64s(finite)
		s.MedianError = linearQuantile(finite, 0.5)
	}
	s.MeanDisplacement, s.StdDisplacement = meanStd(rs.Displacements())
	return s
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	return stat.MeanStdDev(xs, nil)
}
