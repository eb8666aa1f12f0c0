package ising

import (
	"fmt"

	"github.com/lattice-mc/lattice-mc/mc"
)

// System bundles the property calculators of the Ising semi-grand canonical
// model.
type System struct {
	FormationEnergy  *FormationEnergy
	ParamComposition *ParamComposition
}

// NewSystem creates the system from its calculators.
func NewSystem(formationEnergy *FormationEnergy, paramComposition *ParamComposition) *System {
	return &System{FormationEnergy: formationEnergy, ParamComposition: paramComposition}
}

// Calculator runs semi-grand canonical Metropolis Monte Carlo on the Ising
// system. After Run, Results holds the per-fixture results and the
// collaborating calculators remain set to the final state.
type Calculator struct {
	System    *System
	State     *State
	Potential *SemiGrandCanonicalPotential

	OccLocation *mc.OccLocation
	RunManager  *mc.RunManager
	Results     map[string]*mc.RunResults
}

// NewCalculator creates a calculator for the system.
func NewCalculator(system *System) *Calculator {
	return &Calculator{
		System:    system,
		Potential: NewSemiGrandCanonicalPotential(system.FormationEnergy, system.ParamComposition),
	}
}

// DefaultSamplingFunctions returns the sampling functions of the Ising
// semi-grand canonical model, evaluated against the calculator's current
// state:
//
//	formation_energy: intensive formation energy (scalar)
//	potential_energy: intensive semi-grand canonical energy (scalar)
//	param_composition: parametric composition (vector of one)
func (calc *Calculator) DefaultSamplingFunctions() map[string]mc.StateSamplingFunction {
	functions := map[string]mc.StateSamplingFunction{}
	add := func(f mc.StateSamplingFunction) {
		functions[f.Name] = f
	}
	add(mc.NewStateSamplingFunction(
		"formation_energy",
		"Intensive formation energy",
		nil,
		func() []float64 {
			return []float64{calc.System.FormationEnergy.PerUnitcell()}
		}))
	add(mc.NewStateSamplingFunction(
		"potential_energy",
		"Intensive semi-grand canonical energy",
		nil,
		func() []float64 {
			return []float64{calc.Potential.PerUnitcell()}
		}))
	add(mc.NewStateSamplingFunction(
		"param_composition",
		"Parametric composition",
		[]int{1},
		func() []float64 {
			return calc.System.ParamComposition.PerUnitcell()
		}))
	return functions
}

// Run executes the Metropolis loop on the given state until the sampling
// fixtures report completion, then finalizes the results.
func (calc *Calculator) Run(
	state *State,
	fixtureParams []mc.SamplingFixtureParams,
	rng *mc.PartitionedRNG,
) error {
	calc.State = state
	calc.Potential.SetState(state)

	config := state.Configuration
	convert := NewConversions(config.Rows, config.Cols)
	candidateList := mc.NewOccCandidateList(convert)
	calc.OccLocation = mc.NewOccLocation(convert, candidateList, false)
	if err := calc.OccLocation.Initialize(config.Occupation()); err != nil {
		return fmt.Errorf("ising run: %w", err)
	}

	generator := NewEventGenerator()
	generator.SetState(state, calc.OccLocation)

	runManager, err := mc.NewRunManager(rng, fixtureParams)
	if err != nil {
		return fmt.Errorf("ising run: %w", err)
	}
	calc.RunManager = runManager

	deltaPotential := func(e *mc.OccEvent) float64 {
		return calc.Potential.OccDeltaPerSupercell(e.LinearSiteIndex, e.NewOcc)
	}

	err = mc.Metropolis(
		config.Occupation(),
		calc.OccLocation,
		generator,
		deltaPotential,
		state.Conditions.Beta(),
		rng.ForSubsystem(mc.SubsystemMetropolis),
		runManager,
	)
	if err != nil {
		return fmt.Errorf("ising run: %w", err)
	}

	calc.Results = runManager.Finalize()
	return nil
}
