package mc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAnalysis(t *testing.T) {
	results := &RunResults{
		Samplers: map[string][][]float64{
			"x": {{1.0}, {3.0}},
		},
	}
	functions := map[string]ResultsAnalysisFunction{
		"mean_x": NewResultsAnalysisFunction("mean_x", "Mean of x", nil,
			func(r *RunResults) ([]float64, error) {
				var sum float64
				for _, row := range r.Samplers["x"] {
					sum += row[0]
				}
				return []float64{sum / float64(len(r.Samplers["x"]))}, nil
			}),
		"failing": NewResultsAnalysisFunction("failing", "Always fails", nil,
			func(r *RunResults) ([]float64, error) {
				return nil, assert.AnError
			}),
		"panicking": NewResultsAnalysisFunction("panicking", "Always panics", []int{2},
			func(r *RunResults) ([]float64, error) {
				panic("boom")
			}),
	}

	analysis := MakeAnalysis(results, functions)

	// a failure is recovered locally as NaNs; the other analyses proceed
	require.Len(t, analysis, 3)
	assert.Equal(t, []float64{2.0}, analysis["mean_x"])
	require.Len(t, analysis["failing"], 1)
	assert.True(t, math.IsNaN(analysis["failing"][0]))
	require.Len(t, analysis["panicking"], 2)
	assert.True(t, math.IsNaN(analysis["panicking"][0]))
	assert.True(t, math.IsNaN(analysis["panicking"][1]))
}

func TestMakeAnalysis_WidthMismatchBecomesNaN(t *testing.T) {
	functions := map[string]ResultsAnalysisFunction{
		"wide": NewResultsAnalysisFunction("wide", "Wrong width", []int{2},
			func(r *RunResults) ([]float64, error) {
				return []float64{1.0}, nil
			}),
	}

	analysis := MakeAnalysis(&RunResults{}, functions)
	require.Len(t, analysis["wide"], 2)
	assert.True(t, math.IsNaN(analysis["wide"][0]))
}
