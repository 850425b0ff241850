package aggregate

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/banshee-data/registration.report/internal/results"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultSet(trials ...results.Trial) *results.ResultSet {
	return &results.ResultSet{
		Selector: results.Selector{Method: "SIFT", Mode: "b2a", Preprocess: "nopre"},
		Trials:   trials,
	}
}

func TestSuccessThreshold(t *testing.T) {
	assert.InDelta(t, 16.68, SuccessThreshold(834), 1e-9)
	assert.InDelta(t, 6.0, SuccessThreshold(300), 1e-9)
}

// 100 uniformly spread trials fall ten to a bin, and each bin's rate is its
// own success count over ten.
func TestComputeSuccessCurve_UniformExample(t *testing.T) {
	var trials []results.Trial
	for i := 0; i < 100; i++ {
		regErr := 10.0
		// every third trial succeeds under a threshold of 6
		if i%3 == 0 {
			regErr = 1.0
		}
		trials = append(trials, results.Trial{Displacement: float64(i), Error: regErr})
	}

	curve, err := ComputeSuccessCurve(resultSet(trials...), 6)
	require.NoError(t, err)
	require.Len(t, curve.Points, NumBins)
	require.Len(t, curve.Edges, NumBins+1)

	assert.Equal(t, 0.0, curve.Edges[0])
	assert.Equal(t, 99.0, curve.Edges[NumBins])

	for i, p := range curve.Points {
		assert.Equal(t, 10, p.Total, "bin %d", i)

		want := 0
		for d := i * 10; d < i*10+10; d++ {
			if d%3 == 0 {
				want++
			}
		}
		assert.Equal(t, want, p.Successes, "bin %d", i)
		assert.InDelta(t, float64(want)/10, p.Rate, 1e-12, "bin %d", i)
		assert.InDelta(t, 0.5*(curve.Edges[i]+curve.Edges[i+1]), p.Center, 1e-12)
	}
	assert.Equal(t, 100, curve.Total())
	assert.Equal(t, 6.0, curve.Threshold)
}

func TestComputeSuccessCurve_ThresholdIsStrict(t *testing.T) {
	curve, err := ComputeSuccessCurve(resultSet(
		results.Trial{Displacement: 1, Error: 6},
		results.Trial{Displacement: 2, Error: 5.999},
		results.Trial{Displacement: 3, Error: math.NaN()},
	), 6)
	require.NoError(t, err)

	successes := 0
	for _, p := range curve.Points {
		successes += p.Successes
	}
	assert.Equal(t, 1, successes)
}

func TestComputeSuccessCurve_EmptyInput(t *testing.T) {
	curve, err := ComputeSuccessCurve(resultSet(), 6)
	assert.Nil(t, curve)
	assert.ErrorIs(t, err, results.ErrEmptyResultSet)

	curve, err = ComputeSuccessCurve(nil, 6)
	assert.Nil(t, curve)
	assert.ErrorIs(t, err, results.ErrEmptyResultSet)
}

func TestComputeSuccessCurve_InvalidThreshold(t *testing.T) {
	rs := resultSet(results.Trial{Displacement: 1, Error: 1})
	for _, thr := range []float64{0, -1, math.NaN()} {
		_, err := ComputeSuccessCurve(rs, thr)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", thr)
	}
}

// A run of tied displacements collapses several edges; the bins between the
// coincident edges are empty and must report NaN without disturbing the rest.
func TestComputeSuccessCurve_DegenerateBins(t *testing.T) {
	var trials []results.Trial
	for i := 0; i < 30; i++ {
		trials = append(trials, results.Trial{Displacement: 5, Error: 1})
	}
	for d := 6; d <= 75; d++ {
		trials = append(trials, results.Trial{Displacement: float64(d), Error: 100})
	}

	curve, err := ComputeSuccessCurve(resultSet(trials...), 6)
	require.NoError(t, err)

	// Position 0.3*99 = 29.7 sits between the last 5 and the first 6.
	assert.Equal(t, []float64{5, 5, 5}, curve.Edges[:3])
	assert.InDelta(t, 5.7, curve.Edges[3], 1e-9)

	assert.Equal(t, 30, curve.Points[0].Total)
	assert.Equal(t, 1.0, curve.Points[0].Rate)
	for _, i := range []int{1, 2} {
		assert.False(t, curve.Points[i].Defined(), "bin %d", i)
		assert.True(t, math.IsNaN(curve.Points[i].Rate), "bin %d", i)
	}
	assert.Equal(t, 5.0, curve.Points[1].Center)
	assert.InDelta(t, 5.35, curve.Points[2].Center, 1e-9)
	for i := 3; i < NumBins; i++ {
		assert.Equal(t, 10, curve.Points[i].Total, "bin %d", i)
		assert.Equal(t, 0.0, curve.Points[i].Rate, "bin %d", i)
	}
	assert.Equal(t, 100, curve.Total())
}

func TestComputeSuccessCurve_SingleTrial(t *testing.T) {
	curve, err := ComputeSuccessCurve(resultSet(results.Trial{Displacement: 7, Error: 1}), 6)
	require.NoError(t, err)

	assert.Equal(t, 1, curve.Points[0].Total)
	for i := 1; i < NumBins; i++ {
		assert.False(t, curve.Points[i].Defined())
	}
	for _, e := range curve.Edges {
		assert.Equal(t, 7.0, e)
	}
}

func randomTrials(r *rand.Rand, n int) []results.Trial {
	trials := make([]results.Trial, n)
	for i := range trials {
		// coarse rounding produces ties
		d := math.Round(r.Float64()*80*4) / 4
		trials[i] = results.Trial{Displacement: d, Error: r.ExpFloat64() * d / 4}
	}
	return trials
}

func TestComputeSuccessCurve_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for _, n := range []int{1, 2, 9, 10, 11, 57, 100, 1000} {
		trials := randomTrials(r, n)
		curve, err := ComputeSuccessCurve(resultSet(trials...), 6)
		require.NoError(t, err)

		assert.Equal(t, n, curve.Total(), "bins must partition all %d trials", n)
		for i := 1; i < len(curve.Edges); i++ {
			assert.LessOrEqual(t, curve.Edges[i-1], curve.Edges[i], "edges must be non-decreasing")
		}
		for _, p := range curve.Points {
			if p.Defined() {
				assert.GreaterOrEqual(t, p.Rate, 0.0)
				assert.LessOrEqual(t, p.Rate, 1.0)
			} else {
				assert.True(t, math.IsNaN(p.Rate))
			}
		}
	}
}

func TestComputeSuccessCurve_OrderInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	trials := randomTrials(r, 500)

	want, err := ComputeSuccessCurve(resultSet(trials...), 6)
	require.NoError(t, err)

	shuffled := make([]results.Trial, len(trials))
	copy(shuffled, trials)
	for i := 0; i < 5; i++ {
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := ComputeSuccessCurve(resultSet(shuffled...), 6)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
			t.Fatalf("curve depends on trial order (-want +got):\n%s", diff)
		}
	}
}

func TestQuantileEdges(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	edges, err := QuantileEdges(values, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 4}, edges)
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input must not be reordered")

	_, err = QuantileEdges(nil, 10)
	assert.ErrorIs(t, err, results.ErrEmptyResultSet)

	_, err = QuantileEdges(values, 0)
	assert.Error(t, err)
}

// Reference values from pandas.qcut(range(1, 16), 10).
func TestComputeSuccessCurve_MatchesQcut(t *testing.T) {
	var trials []results.Trial
	for d := 1; d <= 15; d++ {
		trials = append(trials, results.Trial{Displacement: float64(d), Error: 0})
	}
	curve, err := ComputeSuccessCurve(resultSet(trials...), 6)
	require.NoError(t, err)

	wantEdges := []float64{1, 2.4, 3.8, 5.2, 6.6, 8, 9.4, 10.8, 12.2, 13.6, 15}
	if diff := cmp.Diff(wantEdges, curve.Edges, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	wantCounts := []int{2, 1, 2, 1, 2, 1, 1, 2, 1, 2}
	counts := make([]int, len(curve.Points))
	for i, p := range curve.Points {
		counts[i] = p.Total
	}
	assert.Equal(t, wantCounts, counts)
	assert.InDelta(t, 1.7, curve.Points[0].Center, 1e-9)
}

func TestBinIndex(t *testing.T) {
	edges := []float64{0, 5, 5, 10}
	testCases := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{3, 0},
		{5, 0},
		{5.5, 2},
		{10, 2},
		{11, 2},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, BinIndex(edges, tc.v), "value %v", tc.v)
	}
}

func TestPoint_JSON(t *testing.T) {
	defined := Point{Lower: 0, Upper: 2, Center: 1, Total: 4, Successes: 1, Rate: 0.25}
	empty := Point{Lower: 2, Upper: 2, Center: 2, Rate: math.NaN()}

	data, err := json.Marshal([]Point{defined, empty})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"lower":0,"upper":2,"center":1,"total":4,"successes":1,"rate":0.25},
		{"lower":2,"upper":2,"center":2,"total":0,"successes":0,"rate":null}
	]`, string(data))

	var back []Point
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff([]Point{defined, empty}, back, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
