// Package mc provides the core engine for Monte Carlo simulations of
// lattice occupation problems (semi-grand canonical Metropolis and
// kinetic / rejection-free Monte Carlo).
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - occ_location.go: occupant and atom bookkeeping, O(1) event selection
//     and O(site-locality) event application
//   - state_sampler.go: step/pass/time counters, linear/log/stochastic
//     sample scheduling, and data capture
//   - completion.go: cutoff, equilibration, and convergence checks that
//     decide when a run is finished
//
// # Architecture
//
// The mc package defines interfaces and the driving-loop bridge types;
// concrete systems live in sub-packages:
//   - mc/ising/: 2D Ising semi-grand canonical reference system
//
// The driving loops (Metropolis in metropolis.go, KineticMonteCarlo in
// kmc.go) mutate the occupation vector through OccLocation.Apply, advance
// every sampling fixture's counters through RunManager, and exit when
// RunManager.IsComplete reports completion.
//
// # Key Interfaces
//
// The extension points are small interfaces and tagged function objects:
//   - Conversions: site index <-> (asymmetric unit, species) mapping and
//     lattice geometry, injected at construction time
//   - OccEventGenerator: propose occupation events for Metropolis sampling
//   - EventSelector: select (event id, time increment) pairs for KMC
//   - StateSamplingFunction: a named callable returning a fixed-width
//     observation vector
//   - CalcStatisticsFunc / EquilibrationCheckFunc: pluggable series analysis
package mc
