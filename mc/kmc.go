package mc

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// EventSelector selects events for kinetic Monte Carlo. SelectEvent returns
// the chosen event id and the residence-time increment, which must be >= 0.
type EventSelector interface {
	TotalRate() float64
	SelectEvent(rng *rand.Rand) (eventID int, timeIncrement float64)
}

// GetEventFunc maps a selected event id to its occupation event.
type GetEventFunc func(eventID int) *OccEvent

// KMCData carries data made available to KMC sampling functions along with
// the current state.
type KMCData struct {
	// SamplingFixtureLabel is set to the current fixture before sampling.
	SamplingFixtureLabel string

	// StateSampler points to the current fixture's sampler while sampling.
	StateSampler *StateSampler

	// TotalRate is the total event rate at sampling time, obtained before
	// event selection.
	TotalRate float64

	// Time is the current simulation time. For time-based sampling it is
	// pinned to the scheduled sample time; for count-based sampling it is
	// the time the event occurred.
	Time float64

	// PrevTime is the simulation time at the last sample, by fixture label.
	PrevTime map[string]float64

	// AtomPositionsCart holds the current atom positions (3 x n_atoms,
	// Cartesian), refreshed just before each sample. Sampling functions
	// can use it to calculate displacements.
	AtomPositionsCart *mat.Dense

	// PrevAtomPositionsCart holds the atom positions at the last sample,
	// by fixture label.
	PrevAtomPositionsCart map[string]*mat.Dense
}

// KineticMonteCarlo runs a rejection-free Monte Carlo loop to completion:
// select an event and its time increment, sample any fixture that is due by
// count or by time, apply the event through the occupant location tracker,
// advance the clock and counters, and stop when the run manager reports
// completion.
//
// The pre-sample hook captures atom positions and the total rate just
// before sampling; for a by-time fixture it also pins the recorded time to
// the scheduled next_sample_time so sample times stay on a regular lattice,
// even though the observables are evaluated at the current post-event
// configuration.
func KineticMonteCarlo(
	occupation []int,
	occLocation *OccLocation,
	kmcData *KMCData,
	selector EventSelector,
	getEvent GetEventFunc,
	rng *rand.Rand,
	runManager *RunManager,
) error {
	kmcData.Time = 0.0
	kmcData.AtomPositionsCart = occLocation.AtomPositionsCart()
	kmcData.PrevTime = make(map[string]float64, len(runManager.Fixtures()))
	kmcData.PrevAtomPositionsCart = make(map[string]*mat.Dense, len(runManager.Fixtures()))
	for _, fixture := range runManager.Fixtures() {
		kmcData.PrevTime[fixture.Label()] = kmcData.Time
		kmcData.PrevAtomPositionsCart[fixture.Label()] = kmcData.AtomPositionsCart
	}

	var totalRate float64

	preSample := func(fixture *SamplingFixture) {
		kmcData.SamplingFixtureLabel = fixture.Label()
		kmcData.StateSampler = fixture.StateSampler
		kmcData.AtomPositionsCart = occLocation.AtomPositionsCart()
		kmcData.TotalRate = totalRate
		if fixture.StateSampler.SampleMode == SampleByTime {
			kmcData.Time = fixture.StateSampler.NextSampleTime
		}
	}

	postSample := func(fixture *SamplingFixture) {
		kmcData.PrevTime[fixture.Label()] = kmcData.Time
		kmcData.PrevAtomPositionsCart[fixture.Label()] = kmcData.AtomPositionsCart
	}

	if err := runManager.InitializeRun(int64(occLocation.MolSize())); err != nil {
		return err
	}
	for !runManager.IsComplete() {
		runManager.WriteStatusIfDue()

		// select an event
		totalRate = selector.TotalRate()
		eventID, timeIncrement := selector.SelectEvent(rng)
		if timeIncrement < 0 {
			return fmt.Errorf("kinetic monte carlo: event selector returned time increment %v < 0", timeIncrement)
		}
		eventTime := kmcData.Time + timeIncrement

		// sample data, if a sample is due by count
		if err := runManager.SampleDataByCountIfDue(occupation, preSample, postSample); err != nil {
			return err
		}

		// sample data, if a sample is due by time
		if err := runManager.SampleDataByTimeIfDue(eventTime, occupation, preSample, postSample); err != nil {
			return err
		}

		// apply the event
		runManager.IncrementNAccept()
		if err := occLocation.Apply(getEvent(eventID), occupation); err != nil {
			return err
		}
		kmcData.Time = eventTime

		runManager.SetTime(eventTime)
		runManager.IncrementStep()
	}
	return nil
}
