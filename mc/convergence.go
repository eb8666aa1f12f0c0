package mc

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// IndividualConvergenceResult reports whether one component's precision of
// the mean meets its request, carrying the numeric values for reporting.
type IndividualConvergenceResult struct {
	IsConverged        bool               `json:"is_converged"`
	RequestedPrecision RequestedPrecision `json:"requested_precision"`
	Stats              BasicStatistics    `json:"stats"`
}

// ConvergenceCheckResults aggregates per-component convergence results.
type ConvergenceCheckResults struct {
	AllConverged          bool
	NSamplesForStatistics int
	IndividualResults     map[SamplerComponent]IndividualConvergenceResult
}

// ConvergenceCheck computes statistics on the post-equilibration tail of
// every requested component and tests the enabled absolute/relative
// criteria. A statistics failure yields NaN stats and non-convergence for
// that component; other components proceed.
func ConvergenceCheck(
	samplers map[string]*Sampler,
	sampleWeight *Sampler,
	requestedPrecision map[SamplerComponent]RequestedPrecision,
	nSamplesForStatistics int,
	calcStatisticsF CalcStatisticsFunc,
) ConvergenceCheckResults {
	results := ConvergenceCheckResults{
		AllConverged:          true,
		NSamplesForStatistics: nSamplesForStatistics,
		IndividualResults:     make(map[SamplerComponent]IndividualConvergenceResult),
	}
	var weights []float64
	if sampleWeight.NSamples() > 0 {
		weights = sampleWeight.Component(0)
	}
	for _, component := range SortedComponents(requestedPrecision) {
		sampler, ok := samplers[component.SamplerName]
		if !ok {
			results.AllConverged = false
			results.IndividualResults[component] = IndividualConvergenceResult{
				RequestedPrecision: requestedPrecision[component],
				Stats:              NaNStatistics(),
			}
			continue
		}
		observations := sampler.Component(component.ComponentIndex)
		observations = observations[len(observations)-nSamplesForStatistics:]
		var weightTail []float64
		if weights != nil && len(weights) >= nSamplesForStatistics {
			weightTail = weights[len(weights)-nSamplesForStatistics:]
		}
		request := requestedPrecision[component]
		individual := IndividualConvergenceResult{RequestedPrecision: request}
		stats, err := calcStatisticsF(observations, weightTail)
		if err != nil {
			logrus.Errorf("convergence check for %s failed: %v", component.Key(), err)
			stats = NaNStatistics()
		}
		individual.Stats = stats
		individual.IsConverged = err == nil && request.IsConvergedWith(stats)
		results.IndividualResults[component] = individual
		if !individual.IsConverged {
			results.AllConverged = false
		}
	}
	return results
}

// === JSON serialisation ===

// componentKeyed serialises a SamplerComponent-keyed map as a
// self-describing object keyed by "sampler_name(component_name)", with
// the component identity embedded in each entry.
func componentKeyed[V any](m map[SamplerComponent]V) map[string]componentEntry[V] {
	out := make(map[string]componentEntry[V], len(m))
	for component, value := range m {
		out[component.Key()] = componentEntry[V]{Component: component, Result: value}
	}
	return out
}

type componentEntry[V any] struct {
	Component SamplerComponent `json:"component"`
	Result    V                `json:"result"`
}

// MarshalJSON writes the aggregate flags and the individual results keyed by
// component.
func (r EquilibrationCheckResults) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AllEquilibrated             bool                                                      `json:"all_equilibrated"`
		NSamplesForAllToEquilibrate int                                                       `json:"n_samples_for_all_to_equilibrate"`
		IndividualResults           map[string]componentEntry[IndividualEquilibrationResult] `json:"individual_results"`
	}{
		AllEquilibrated:             r.AllEquilibrated,
		NSamplesForAllToEquilibrate: r.NSamplesForAllToEquilibrate,
		IndividualResults:           componentKeyed(r.IndividualResults),
	})
}

// MarshalJSON writes the aggregate flags and the individual results keyed by
// component.
func (r ConvergenceCheckResults) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AllConverged          bool                                                    `json:"all_converged"`
		NSamplesForStatistics int                                                     `json:"n_samples_for_statistics"`
		IndividualResults     map[string]componentEntry[IndividualConvergenceResult] `json:"individual_results"`
	}{
		AllConverged:          r.AllConverged,
		NSamplesForStatistics: r.NSamplesForStatistics,
		IndividualResults:     componentKeyed(r.IndividualResults),
	})
}
