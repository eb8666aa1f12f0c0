package mc

import (
	"math"
	"math/rand"
)

// OccEventGenerator proposes occupation events for Metropolis sampling.
// The returned event may be reused between calls; Apply consumes it before
// the next proposal.
type OccEventGenerator interface {
	Propose(rng *rand.Rand) *OccEvent
}

// DeltaPotentialFunc returns the change in the (extensive) potential that
// applying the event would cause.
type DeltaPotentialFunc func(e *OccEvent) float64

// Metropolis runs a semi-grand canonical Metropolis Monte Carlo loop to
// completion: propose an event, accept with probability min(1, exp(-beta
// dE)), apply accepted events through the occupant location tracker, advance
// every sampling fixture, and stop when the run manager reports completion.
//
// Samples are taken before the event of the current step is applied, so the
// state at count c is observed exactly once even when the schedule lands on
// the loop boundary.
func Metropolis(
	occupation []int,
	occLocation *OccLocation,
	generator OccEventGenerator,
	deltaPotential DeltaPotentialFunc,
	beta float64,
	rng *rand.Rand,
	runManager *RunManager,
) error {
	if err := runManager.InitializeRun(int64(occLocation.MolSize())); err != nil {
		return err
	}
	for !runManager.IsComplete() {
		runManager.WriteStatusIfDue()

		if err := runManager.SampleDataByCountIfDue(occupation, nil, nil); err != nil {
			return err
		}

		e := generator.Propose(rng)
		dE := deltaPotential(e)
		if dE <= 0 || rng.Float64() < math.Exp(-beta*dE) {
			runManager.IncrementNAccept()
			if err := occLocation.Apply(e, occupation); err != nil {
				return err
			}
		} else {
			runManager.IncrementNReject()
		}

		runManager.IncrementStep()
	}
	return nil
}
