package mc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEquilibrationCheck_StationarySeries(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := normalSeries(rng, 200, 1.0, 0.05)

	result := DefaultEquilibrationCheck(x, nil, AbsPrecision(0.1))
	assert.True(t, result.IsEquilibrated)
	assert.Equal(t, 0, result.NSamplesForEquilibration)
}

func TestDefaultEquilibrationCheck_TransientHead(t *testing.T) {
	// GIVEN a series with a long transient head before a flat tail
	x := make([]float64, 250)
	for i := 0; i < 50; i++ {
		x[i] = 10.0
	}

	result := DefaultEquilibrationCheck(x, nil, AbsPrecision(0.5))

	// THEN equilibration is found shortly before the head has fully
	// decayed out of the first half-mean
	require.True(t, result.IsEquilibrated)
	assert.Greater(t, result.NSamplesForEquilibration, 30)
	assert.LessOrEqual(t, result.NSamplesForEquilibration, 50)
}

func TestDefaultEquilibrationCheck_NeverStationary(t *testing.T) {
	// monotone drift never passes the half-means test at tight precision
	x := make([]float64, 200)
	for i := range x {
		x[i] = float64(i)
	}

	result := DefaultEquilibrationCheck(x, nil, AbsPrecision(1.0))
	assert.False(t, result.IsEquilibrated)
	assert.Equal(t, len(x), result.NSamplesForEquilibration)
}

func TestDefaultEquilibrationCheck_TooShort(t *testing.T) {
	result := DefaultEquilibrationCheck([]float64{1, 2, 3}, nil, AbsPrecision(10))
	assert.False(t, result.IsEquilibrated)
}

func TestDefaultEquilibrationCheck_Weighted(t *testing.T) {
	// a heavily down-weighted transient head equilibrates immediately
	x := make([]float64, 100)
	w := make([]float64, 100)
	for i := range x {
		w[i] = 1.0
	}
	x[0] = 1000.0
	w[0] = 1e-9

	result := DefaultEquilibrationCheck(x, w, AbsPrecision(0.5))
	assert.True(t, result.IsEquilibrated)
	assert.Equal(t, 0, result.NSamplesForEquilibration)
}

func TestRunEquilibrationChecks_Aggregation(t *testing.T) {
	flat := NewSampler(nil, nil)
	drift := NewSampler(nil, nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, flat.PushBack([]float64{1.0}))
		require.NoError(t, drift.PushBack([]float64{float64(i)}))
	}
	samplers := map[string]*Sampler{"flat": flat, "drift": drift}
	requested := map[SamplerComponent]RequestedPrecision{
		{"flat", 0, "0"}:  AbsPrecision(0.1),
		{"drift", 0, "0"}: AbsPrecision(0.1),
	}

	results := RunEquilibrationChecks(DefaultEquilibrationCheck, samplers, NewSampler(nil, nil), requested)

	assert.False(t, results.AllEquilibrated)
	assert.True(t, results.IndividualResults[SamplerComponent{"flat", 0, "0"}].IsEquilibrated)
	assert.False(t, results.IndividualResults[SamplerComponent{"drift", 0, "0"}].IsEquilibrated)
	assert.Equal(t, 100, results.NSamplesForAllToEquilibrate)
}
