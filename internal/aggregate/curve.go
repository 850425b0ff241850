// Package aggregate turns pooled registration trials into success-rate curves.
//
// Trials are split into NumBins equal-count bins over their initial
// displacement. A trial succeeds when its registration error is strictly
// below the dataset's success threshold, and each bin reports the fraction of
// its trials that succeeded.
//
// Bin edges are the k/NumBins quantiles (k = 0..NumBins) of the sorted
// displacements under the linear rule at position p*(n-1), the same rule
// pandas qcut uses, so the first and last edges are the minimum and maximum
// displacement. Trials are assigned
// by value: bin i holds edges[i] < d <= edges[i+1], and bin 0 also holds
// d == edges[0]. Equal displacements therefore always share a bin, and a run
// of tied values can leave later bins with coincident edges and no trials.
// Such bins report a NaN rate rather than zero.
package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/registration.report/internal/results"
)

// NumBins is the number of displacement quantile bins per curve.
const NumBins = 10

// SuccessRatio is the relative error below which a registration succeeds.
const SuccessRatio = 0.02

// ErrInvalidThreshold is returned for non-positive or NaN thresholds.
var ErrInvalidThreshold = errors.New("success threshold must be positive")

// SuccessThreshold returns the absolute success threshold in pixels for
// images of the given width.
func SuccessThreshold(width float64) float64 {
	return width * SuccessRatio
}

// Point is one bin of a success curve.
type Point struct {
	Lower     float64
	Upper     float64
	Center    float64
	Total     int
	Successes int
	// Rate is Successes/Total, or NaN when the bin holds no trials.
	Rate float64
}

// Defined reports whether the bin held any trials.
func (p Point) Defined() bool {
	return p.Total > 0
}

// MarshalJSON encodes an undefined rate as null.
func (p Point) MarshalJSON() ([]byte, error) {
	var rate *float64
	if p.Defined() {
		r := p.Rate
		rate = &r
	}
	return json.Marshal(struct {
		Lower     float64  `json:"lower"`
		Upper     float64  `json:"upper"`
		Center    float64  `json:"center"`
		Total     int      `json:"total"`
		Successes int      `json:"successes"`
		Rate      *float64 `json:"rate"`
	}{p.Lower, p.Upper, p.Center, p.Total, p.Successes, rate})
}

// UnmarshalJSON restores a null rate as NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lower     float64  `json:"lower"`
		Upper     float64  `json:"upper"`
		Center    float64  `json:"center"`
		Total     int      `json:"total"`
		Successes int      `json:"successes"`
		Rate      *float64 `json:"rate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Point{Lower: raw.Lower, Upper: raw.Upper, Center: raw.Center, Total: raw.Total, Successes: raw.Successes, Rate: math.NaN()}
	if raw.Rate != nil {
		p.Rate = *raw.Rate
	}
	return nil
}

// Curve is a success-rate curve over displacement quantile bins, in
// ascending displacement order.
type Curve struct {
	Selector  results.Selector `json:"selector"`
	Threshold float64          `json:"threshold"`
	Edges     []float64        `json:"edges"`
	Points    []Point          `json:"points"`
}

// Total returns the number of trials across all bins.
func (c *Curve) Total() int {
	n := 0
	for _, p := range c.Points {
		n += p.Total
	}
	return n
}

// Succeeded reports whether a registration error counts as a success.
// NaN errors never succeed.
func Succeeded(regErr, threshold float64) bool {
	return regErr < threshold
}

// QuantileEdges returns the bins+1 quantile edges of values. values is not
// modified.
func QuantileEdges(values []float64, bins int) ([]float64, error) {
	if len(values) == 0 {
		return nil, results.ErrEmptyResultSet
	}
	if bins < 1 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := make([]float64, bins+1)
	for k := range edges {
		edges[k] = linearQuantile(sorted, float64(k)/float64(bins))
	}
	// Pin the outer edges so float rounding in k/bins can never leave a
	// trial outside the partition.
	edges[0] = sorted[0]
	edges[bins] = sorted[len(sorted)-1]
	return edges, nil
}

// linearQuantile interpolates between the order statistics either side of
// position p*(n-1) of sorted.
func linearQuantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	hi := math.Ceil(h)
	a, b := sorted[int(lo)], sorted[int(hi)]
	if a == b {
		return a
	}
	return a + (h-lo)*(b-a)
}

// BinIndex returns the bin holding v: the smallest i with v <= edges[i+1].
// Values beyond the last edge are clamped into the last bin.
func BinIndex(edges []float64, v float64) int {
	upper := edges[1:]
	i := sort.SearchFloat64s(upper, v)
	if i >= len(upper) {
		i = len(upper) - 1
	}
	return i
}

// ComputeSuccessCurve bins rs by displacement and computes the success rate
// in each bin. The result depends only on the multiset of trials, not on
// their order.
func ComputeSuccessCurve(rs *results.ResultSet, threshold float64) (*Curve, error) {
	if math.IsNaN(threshold) || threshold <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	if rs.Len() == 0 {
		return nil, fmt.Errorf("compute success curve: %w", results.ErrEmptyResultSet)
	}

	edges, err := QuantileEdges(rs.Displacements(), NumBins)
	if err != nil {
		return nil, err
	}

	totals := make([]int, NumBins)
	successes := make([]int, NumBins)
	for _, t := range rs.Trials {
		i := BinIndex(edges, t.Displacement)
		totals[i]++
		if Succeeded(t.Error, threshold) {
			successes[i]++
		}
	}

	curve := &Curve{
		Selector:  rs.Selector,
		Threshold: threshold,
		Edges:     edges,
		Points:    make([]Point, NumBins),
	}
	for i := range curve.Points {
		rate := math.NaN()
		if totals[i] > 0 {
			rate = float64(successes[i]) / float64(totals[i])
		}
		curve.Points[i] = Point{
			Lower:     edges[i],
			Upper:     edges[i+1],
			Center:    0.5 * (edges[i] + edges[i+1]),
			Total:     totals[i],
			Successes: successes[i],
			Rate:      rate,
		}
	}
	return curve, nil
}
