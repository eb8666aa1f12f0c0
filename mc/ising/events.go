package ising

import (
	"math/rand"

	"github.com/lattice-mc/lattice-mc/mc"
)

// EventGenerator proposes semi-grand canonical single-site flip events,
// uniformly over sites. The proposed event is held in OccEvent and reused
// between proposals.
type EventGenerator struct {
	OccEvent mc.OccEvent

	state       *State
	occLocation *mc.OccLocation
}

// NewEventGenerator creates an EventGenerator with a single-site event
// buffer.
func NewEventGenerator() *EventGenerator {
	return &EventGenerator{
		OccEvent: mc.OccEvent{
			LinearSiteIndex: make([]int, 1),
			NewOcc:          make([]int, 1),
			OccTransform:    make([]mc.OccTransform, 1),
		},
	}
}

// SetState points the generator at the state and occupant tracker the
// events will be proposed for.
func (g *EventGenerator) SetState(state *State, occLocation *mc.OccLocation) {
	g.state = state
	g.occLocation = occLocation
}

// Propose fills OccEvent with a flip of a uniformly chosen site.
func (g *EventGenerator) Propose(rng *rand.Rand) *mc.OccEvent {
	config := g.state.Configuration
	convert := g.occLocation.Convert()

	l := rng.Intn(config.NSites())
	current := config.Occ(l)
	next := -current

	asym := convert.AsymUnit(l)
	g.OccEvent.LinearSiteIndex[0] = l
	g.OccEvent.NewOcc[0] = next
	g.OccEvent.OccTransform[0] = mc.OccTransform{
		L:           l,
		MolID:       g.occLocation.LToMolID(l),
		Asym:        asym,
		FromSpecies: convert.SpeciesIndex(asym, current),
		ToSpecies:   convert.SpeciesIndex(asym, next),
	}
	return &g.OccEvent
}

var _ mc.OccEventGenerator = (*EventGenerator)(nil)
