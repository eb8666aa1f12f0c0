package mc

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// IndividualEquilibrationResult reports whether one component's series has
// passed its transient head, and where the stationary tail begins.
type IndividualEquilibrationResult struct {
	IsEquilibrated           bool `json:"is_equilibrated"`
	NSamplesForEquilibration int  `json:"n_samples_for_equilibration"`
}

// EquilibrationCheckFunc locates the smallest prefix length k such that the
// tail observations[k:] is statistically indistinguishable from stationary at
// the requested precision.
type EquilibrationCheckFunc func(observations, sampleWeight []float64, requestedPrecision RequestedPrecision) IndividualEquilibrationResult

// EquilibrationCheckResults aggregates per-component equilibration results.
type EquilibrationCheckResults struct {
	AllEquilibrated             bool
	NSamplesForAllToEquilibrate int
	IndividualResults           map[SamplerComponent]IndividualEquilibrationResult
}

// minEquilibrationTail is the shortest tail the half-means test is run on.
const minEquilibrationTail = 10

// DefaultEquilibrationCheck tests stationarity of tails by comparing the
// means of the two halves of each candidate tail: the series is considered
// equilibrated after index k when |mean(first half) - mean(second half)| of
// observations[k:] is less than the requested precision. Weighted means are
// used when sampleWeight is non-empty.
func DefaultEquilibrationCheck(observations, sampleWeight []float64, requestedPrecision RequestedPrecision) IndividualEquilibrationResult {
	n := len(observations)
	if n < minEquilibrationTail {
		return IndividualEquilibrationResult{IsEquilibrated: false, NSamplesForEquilibration: n}
	}
	// coarse scan keeps long series O(n * resolution)
	step := n / 100
	if step < 1 {
		step = 1
	}
	for k := 0; n-k >= minEquilibrationTail; k += step {
		tail := observations[k:]
		var wTail []float64
		if len(sampleWeight) == n {
			wTail = sampleWeight[k:]
		}
		if tailIsStationary(tail, wTail, requestedPrecision) {
			return IndividualEquilibrationResult{IsEquilibrated: true, NSamplesForEquilibration: k}
		}
	}
	return IndividualEquilibrationResult{IsEquilibrated: false, NSamplesForEquilibration: n}
}

func tailIsStationary(tail, wTail []float64, requestedPrecision RequestedPrecision) bool {
	half := len(tail) / 2
	var w1, w2 []float64
	if wTail != nil {
		w1, w2 = wTail[:half], wTail[half:]
	}
	m1 := stat.Mean(tail[:half], w1)
	m2 := stat.Mean(tail[half:], w2)
	tol := precisionTarget(requestedPrecision, stat.Mean(tail, wTail))
	return math.Abs(m1-m2) < tol
}

// precisionTarget resolves a RequestedPrecision into an absolute tolerance,
// scaling the relative target by the magnitude of the mean and taking the
// stricter target when both are enabled.
func precisionTarget(r RequestedPrecision, mean float64) float64 {
	tol := math.Inf(1)
	if r.AbsConvergenceIsRequired {
		tol = r.AbsPrecision
	}
	if r.RelConvergenceIsRequired {
		rel := r.RelPrecision * math.Abs(mean)
		if rel < tol {
			tol = rel
		}
	}
	return tol
}

// RunEquilibrationChecks applies the check to every requested component and
// aggregates the results. NSamplesForAllToEquilibrate is the largest
// individual equilibration point, and is only meaningful when
// AllEquilibrated is true.
func RunEquilibrationChecks(
	checkF EquilibrationCheckFunc,
	samplers map[string]*Sampler,
	sampleWeight *Sampler,
	requestedPrecision map[SamplerComponent]RequestedPrecision,
) EquilibrationCheckResults {
	results := EquilibrationCheckResults{
		AllEquilibrated:   true,
		IndividualResults: make(map[SamplerComponent]IndividualEquilibrationResult),
	}
	var weights []float64
	if sampleWeight.NSamples() > 0 {
		weights = sampleWeight.Component(0)
	}
	for _, component := range SortedComponents(requestedPrecision) {
		sampler, ok := samplers[component.SamplerName]
		if !ok {
			results.AllEquilibrated = false
			results.IndividualResults[component] = IndividualEquilibrationResult{}
			continue
		}
		observations := sampler.Component(component.ComponentIndex)
		individual := checkF(observations, weights, requestedPrecision[component])
		results.IndividualResults[component] = individual
		if !individual.IsEquilibrated {
			results.AllEquilibrated = false
		}
		if individual.NSamplesForEquilibration > results.NSamplesForAllToEquilibrate {
			results.NSamplesForAllToEquilibrate = individual.NSamplesForEquilibration
		}
	}
	return results
}
