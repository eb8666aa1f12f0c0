package ising

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-mc/lattice-mc/mc"
)

func defaultFixtureParams(t *testing.T, calculator *Calculator) []mc.SamplingFixtureParams {
	t.Helper()
	functions := calculator.DefaultSamplingFunctions()

	samplingParams := mc.DefaultSamplingParams(1.0)
	samplingParams.SamplerNames = []string{"param_composition", "formation_energy", "potential_energy"}

	completionParams := mc.NewCompletionCheckParams()
	minSample := int64(100)
	completionParams.CutoffParams.MinSample = &minSample
	completionParams.CheckBegin = 100
	completionParams.CheckPeriod = 10
	completionParams.RequestedPrecision[mc.SamplerComponent{SamplerName: "param_composition", ComponentIndex: 0, ComponentName: "0"}] = mc.AbsPrecision(0.001)
	completionParams.RequestedPrecision[mc.SamplerComponent{SamplerName: "potential_energy", ComponentIndex: 0, ComponentName: "0"}] = mc.AbsPrecision(0.001)

	return []mc.SamplingFixtureParams{{
		Label:            "thermo",
		SamplingParams:   samplingParams,
		CompletionParams: completionParams,
		Functions:        functions,
	}}
}

func TestSemiGrandCanonicalRun(t *testing.T) {
	// GIVEN a 25x25 all +1 lattice at T=2000K, mu=0, J=0.1, converging
	// the potential energy and parametric composition to 1e-3 with at
	// least 100 samples
	calculator := NewCalculator(NewSystem(
		NewFormationEnergy(0.1),
		NewParamComposition(),
	))
	state := NewState(25, 25, 1, 2000.0, 0.0)
	rng := mc.NewPartitionedRNG(mc.NewSimulationKey(42))

	// WHEN the run executes to completion
	require.NoError(t, calculator.Run(state, defaultFixtureParams(t, calculator), rng))

	// THEN the run terminated complete with at least 100 samples
	require.Contains(t, calculator.Results, "thermo")
	results := calculator.Results["thermo"]
	check := results.CompletionCheckResults
	assert.True(t, check.IsComplete)
	assert.GreaterOrEqual(t, check.NSamples, 100)
	assert.False(t, check.HasAnyMaximumMet, "no maximum cutoffs were set")

	// with no maximum cutoffs, completion implies equilibration and
	// convergence of every requested component
	require.NotNil(t, check.EquilibrationCheckResults)
	assert.True(t, check.EquilibrationCheckResults.AllEquilibrated)
	require.NotNil(t, check.ConvergenceCheckResults)
	assert.True(t, check.ConvergenceCheckResults.AllConverged)
	require.Len(t, check.ConvergenceCheckResults.IndividualResults, 2)
	for component, individual := range check.ConvergenceCheckResults.IndividualResults {
		assert.Less(t, individual.Stats.CalculatedPrecision, 0.001, component.Key())
	}

	// sampled rows align positionally with the sample counts
	assert.Len(t, results.SampleCount, check.NSamples)
	for name, rows := range results.Samplers {
		assert.Len(t, rows, check.NSamples, name)
	}

	// at T=2000K, beta*J ~ 0.58 is below the square-lattice critical
	// point, so the all +1 start stays ordered: the spontaneous
	// magnetization puts the composition near 0.98
	composition := check.ConvergenceCheckResults.IndividualResults[mc.SamplerComponent{
		SamplerName: "param_composition", ComponentIndex: 0, ComponentName: "0"}]
	assert.InDelta(t, 0.98, composition.Stats.Mean, 0.02)
}

func TestSemiGrandCanonicalRun_Deterministic(t *testing.T) {
	run := func() map[string]*mc.RunResults {
		calculator := NewCalculator(NewSystem(
			NewFormationEnergy(0.1),
			NewParamComposition(),
		))
		state := NewState(10, 10, 1, 2000.0, 0.0)
		fixtureParams := defaultFixtureParams(t, calculator)
		maxSample := int64(150)
		fixtureParams[0].CompletionParams.CutoffParams.MaxSample = &maxSample
		rng := mc.NewPartitionedRNG(mc.NewSimulationKey(7))
		require.NoError(t, calculator.Run(state, fixtureParams, rng))
		return calculator.Results
	}

	first := run()
	second := run()
	assert.Equal(t, first["thermo"].Samplers, second["thermo"].Samplers,
		"a fixed seed must reproduce the run bit-for-bit")
	assert.Equal(t, first["thermo"].SampleCount, second["thermo"].SampleCount)
}
