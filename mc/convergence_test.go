package mc

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvergenceCheck_MixedResults(t *testing.T) {
	// GIVEN one quiet and one noisy component
	rng := rand.New(rand.NewSource(19))
	quiet := NewSampler(nil, nil)
	noisy := NewSampler(nil, nil)
	for i := 0; i < 400; i++ {
		require.NoError(t, quiet.PushBack([]float64{2.0 + 0.001*rng.NormFloat64()}))
		require.NoError(t, noisy.PushBack([]float64{2.0 + 10.0*rng.NormFloat64()}))
	}
	samplers := map[string]*Sampler{"quiet": quiet, "noisy": noisy}
	requested := map[SamplerComponent]RequestedPrecision{
		{"quiet", 0, "0"}: AbsPrecision(0.01),
		{"noisy", 0, "0"}: AbsPrecision(0.01),
	}

	results := ConvergenceCheck(samplers, NewSampler(nil, nil), requested, 400,
		NewBasicStatisticsCalculator().Calc)

	assert.False(t, results.AllConverged)
	assert.Equal(t, 400, results.NSamplesForStatistics)
	assert.True(t, results.IndividualResults[SamplerComponent{"quiet", 0, "0"}].IsConverged)
	assert.False(t, results.IndividualResults[SamplerComponent{"noisy", 0, "0"}].IsConverged)
	assert.InDelta(t, 2.0, results.IndividualResults[SamplerComponent{"quiet", 0, "0"}].Stats.Mean, 0.001)
}

func TestConvergenceCheck_StatisticsFailureYieldsNaN(t *testing.T) {
	sampler := NewSampler(nil, nil)
	require.NoError(t, sampler.PushBack([]float64{1.0}))
	samplers := map[string]*Sampler{"x": sampler}
	requested := map[SamplerComponent]RequestedPrecision{
		{"x", 0, "0"}: AbsPrecision(0.01),
	}
	failing := func(observations, sampleWeight []float64) (BasicStatistics, error) {
		return BasicStatistics{}, assert.AnError
	}

	results := ConvergenceCheck(samplers, NewSampler(nil, nil), requested, 1, failing)

	individual := results.IndividualResults[SamplerComponent{"x", 0, "0"}]
	assert.False(t, results.AllConverged)
	assert.False(t, individual.IsConverged)
	assert.True(t, math.IsNaN(individual.Stats.Mean))
}

func TestConvergenceCheckResults_JSON(t *testing.T) {
	sampler := NewSampler(nil, []string{"a"})
	for i := 0; i < 20; i++ {
		require.NoError(t, sampler.PushBack([]float64{1.0}))
	}
	samplers := map[string]*Sampler{"x": sampler}
	requested := map[SamplerComponent]RequestedPrecision{
		{"x", 0, "a"}: AbsPrecision(0.01),
	}

	results := ConvergenceCheck(samplers, NewSampler(nil, nil), requested, 20,
		NewBasicStatisticsCalculator().Calc)

	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"all_converged":true`)
	assert.Contains(t, string(data), `"x(a)"`)
	assert.Contains(t, string(data), `"component_index":0`)
}
