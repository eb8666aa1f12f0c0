package mc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ringHopSelector always hops the single atom one site to the right, with a
// fixed residence time per event.
type ringHopSelector struct {
	occLocation *OccLocation
	occupation  []int
	nSites      int
	dt          float64
	event       OccEvent
}

func (s *ringHopSelector) TotalRate() float64 {
	return 1.0 / s.dt
}

func (s *ringHopSelector) SelectEvent(rng *rand.Rand) (int, float64) {
	return 0, s.dt
}

func (s *ringHopSelector) getEvent(eventID int) *OccEvent {
	var from int
	for l, occ := range s.occupation {
		if occ == 1 {
			from = l
		}
	}
	to := (from + 1) % s.nSites
	s.event = *hopEvent(s.occLocation, from, to, UnitCell{1, 0, 0})
	return &s.event
}

func TestKineticMonteCarlo_RingWalk(t *testing.T) {
	// GIVEN a 4-site ring with one atom and a deterministic right-hop
	// selector with residence time 0.5
	convert := newChainConversions(4)
	candidates := NewOccCandidateList(convert)
	occupation := []int{1, 0, 0, 0}
	occLocation := NewOccLocation(convert, candidates, true)
	require.NoError(t, occLocation.Initialize(occupation))

	selector := &ringHopSelector{
		occLocation: occLocation,
		occupation:  occupation,
		nSites:      4,
		dt:          0.5,
	}

	// sample the atom's unwrapped x position by time, once per unit time
	samplingParams := DefaultSamplingParams(1.0)
	samplingParams.SampleMode = SampleByTime
	samplingParams.DoSampleTime = true
	samplingParams.SamplerNames = []string{"atom_x"}
	functions := map[string]StateSamplingFunction{
		"atom_x": NewStateSamplingFunction("atom_x", "Unwrapped atom x position", nil, func() []float64 {
			return []float64{occLocation.AtomPositionsCart().At(0, 0)}
		}),
	}
	completionParams := NewCompletionCheckParams()
	maxTime := 5.0
	completionParams.CutoffParams.MaxTime = &maxTime

	rng := NewPartitionedRNG(NewSimulationKey(99))
	runManager, err := NewRunManager(rng, []SamplingFixtureParams{{
		Label:            "walk",
		SamplingParams:   samplingParams,
		CompletionParams: completionParams,
		Functions:        functions,
	}})
	require.NoError(t, err)

	var kmcData KMCData
	err = KineticMonteCarlo(occupation, occLocation, &kmcData,
		selector, selector.getEvent, rng.ForSubsystem(SubsystemEvents), runManager)
	require.NoError(t, err)

	ss := runManager.Fixtures()[0].StateSampler

	// THEN sample times sit on the schedule lattice
	require.GreaterOrEqual(t, len(ss.SampleTime), 5)
	for i, sampleTime := range ss.SampleTime {
		assert.Equal(t, float64(i), sampleTime)
	}

	// and the sampled positions advance two hops per unit time: the
	// sample before the events at time t sees the t/dt - 1 applied hops
	positions := ss.Samplers["atom_x"].Component(0)
	for i, x := range positions {
		if i == 0 {
			assert.Equal(t, 0.0, x)
			continue
		}
		assert.Equal(t, float64(2*i-1), x, "sample %d", i)
	}

	// hooks populated the KMC side-channel data
	assert.Equal(t, "walk", kmcData.SamplingFixtureLabel)
	assert.Equal(t, 2.0, kmcData.TotalRate)
	assert.Contains(t, kmcData.PrevTime, "walk")

	// atom bookkeeping stayed consistent through the walk
	checkOccLocationInvariants(t, occLocation, occupation)
	atom := occLocation.Atoms()[0]
	assert.Equal(t, int(ss.NAccept), atom.DeltaIJK[0])
}

func TestKineticMonteCarlo_NegativeTimeIncrementFails(t *testing.T) {
	convert := newChainConversions(4)
	candidates := NewOccCandidateList(convert)
	occupation := []int{1, 0, 0, 0}
	occLocation := NewOccLocation(convert, candidates, true)
	require.NoError(t, occLocation.Initialize(occupation))

	selector := &ringHopSelector{
		occLocation: occLocation,
		occupation:  occupation,
		nSites:      4,
		dt:          -1.0,
	}
	completionParams := NewCompletionCheckParams()
	maxTime := 5.0
	completionParams.CutoffParams.MaxTime = &maxTime
	samplingParams := DefaultSamplingParams(1.0)
	samplingParams.SampleMode = SampleByTime
	samplingParams.DoSampleTime = true

	rng := NewPartitionedRNG(NewSimulationKey(1))
	runManager, err := NewRunManager(rng, []SamplingFixtureParams{{
		Label:            "walk",
		SamplingParams:   samplingParams,
		CompletionParams: completionParams,
	}})
	require.NoError(t, err)

	var kmcData KMCData
	err = KineticMonteCarlo(occupation, occLocation, &kmcData,
		selector, selector.getEvent, rng.ForSubsystem(SubsystemEvents), runManager)
	assert.Error(t, err)
}
