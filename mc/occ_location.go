package mc

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Mol is the record for one mutating occupant currently residing on a site.
type Mol struct {
	ID           int   // location in OccLocation.mol
	L            int   // site index it sits on
	Asym         int   // asymmetric unit of L
	SpeciesIndex int   // must stay consistent with occupation[L]
	Component    []int // atom ids, one per atomic component (KMC mode)
	Loc          int   // location within the per-candidate bucket
}

// Atom is the record for one atomic component of a molecule (KMC mode).
type Atom struct {
	SpeciesIndex int
	AtomIndex    int // which component of its species
	ID           int // location in OccLocation.atoms
	BijkBegin    UnitCell
	DeltaIJK     UnitCell
	MolCompBegin int // initial position within its parent Mol's Component list
}

// OccTransform describes the occupation change on one site.
type OccTransform struct {
	L           int
	MolID       int
	Asym        int
	FromSpecies int
	ToSpecies   int
}

// AtomLocation identifies an atom by its molecule and component slot.
type AtomLocation struct {
	L       int
	MolID   int
	MolComp int
}

// AtomTraj records one atom's move during an event (KMC mode).
type AtomTraj struct {
	From     AtomLocation
	To       AtomLocation
	DeltaIJK UnitCell
}

// OccEvent describes a Monte Carlo event that modifies occupation.
// LinearSiteIndex, NewOcc, and OccTransform are parallel arrays.
type OccEvent struct {
	LinearSiteIndex []int
	NewOcc          []int
	OccTransform    []OccTransform
	AtomTraj        []AtomTraj
}

// OccLocation tracks occupant locations to enable O(1) stochastic selection
// and O(site-locality) application of occupation-changing events.
//
// Back-references are integer indices over parallel slices: loc buckets hold
// Mol ids per candidate, and each Mol records its position in its bucket so
// swap-with-last removal stays O(1).
type OccLocation struct {
	convert       Conversions
	candidateList *OccCandidateList

	mol    []Mol
	atoms  []Atom
	loc    [][]int // [candidate index] -> Mol ids of that candidate type
	lToMol []int   // [l] -> Mol id, len(mol) for non-mutating sites

	updateAtoms bool
	tmol        []Mol // scratch for staged atom-component rearrangement
}

// NewOccLocation creates a tracker borrowing the given Conversions and
// OccCandidateList, which must outlive it. When updateAtoms is true, atom
// trajectories are tracked through Apply for kinetic Monte Carlo.
func NewOccLocation(convert Conversions, candidateList *OccCandidateList, updateAtoms bool) *OccLocation {
	return &OccLocation{
		convert:       convert,
		candidateList: candidateList,
		updateAtoms:   updateAtoms,
	}
}

// Initialize rebuilds all tables from the occupation vector.
func (o *OccLocation) Initialize(occupation []int) error {
	if len(occupation) != o.convert.NSites() {
		return fmt.Errorf("occ location: occupation has %d sites, conversions expect %d",
			len(occupation), o.convert.NSites())
	}
	o.mol = o.mol[:0]
	o.atoms = o.atoms[:0]
	o.loc = make([][]int, o.candidateList.Size())
	o.lToMol = make([]int, len(occupation))
	for l := range o.lToMol {
		o.lToMol[l] = -1
	}

	for l, occ := range occupation {
		asym := o.convert.AsymUnit(l)
		if len(o.convert.OccupantIndices(asym)) < 2 {
			continue // non-mutating site
		}
		species := o.convert.SpeciesIndex(asym, occ)
		candIndex := o.candidateList.Index(asym, species)
		if candIndex == o.candidateList.Size() {
			return fmt.Errorf("occ location: site %d occupation %d is not a valid candidate", l, occ)
		}
		m := Mol{
			ID:           len(o.mol),
			L:            l,
			Asym:         asym,
			SpeciesIndex: species,
		}
		if o.updateAtoms {
			for comp := 0; comp < o.convert.NComponents(species); comp++ {
				a := Atom{
					SpeciesIndex: species,
					AtomIndex:    comp,
					ID:           len(o.atoms),
					BijkBegin:    o.convert.LatticeCoordinate(l),
					MolCompBegin: comp,
				}
				m.Component = append(m.Component, a.ID)
				o.atoms = append(o.atoms, a)
			}
		}
		m.Loc = len(o.loc[candIndex])
		o.loc[candIndex] = append(o.loc[candIndex], m.ID)
		o.lToMol[l] = m.ID
		o.mol = append(o.mol, m)
	}

	// sentinel for non-mutating sites
	for l := range o.lToMol {
		if o.lToMol[l] == -1 {
			o.lToMol[l] = len(o.mol)
		}
	}
	o.tmol = make([]Mol, len(o.mol))
	return nil
}

// ChooseMol draws a uniform occupant of the given candidate type. O(1).
func (o *OccLocation) ChooseMol(candIndex int, rng *rand.Rand) (*Mol, error) {
	bucket := o.loc[candIndex]
	if len(bucket) == 0 {
		return nil, fmt.Errorf("occ location: no occupants of candidate %s",
			o.candidateList.Candidate(candIndex))
	}
	return &o.mol[bucket[rng.Intn(len(bucket))]], nil
}

// Apply updates the occupation vector and the tracking tables to reflect
// that the event occurred. O(|OccTransform| + |AtomTraj|).
func (o *OccLocation) Apply(e *OccEvent, occupation []int) error {
	// stage reads before any commit: atom rearrangement reads the
	// pre-event Component lists through the tmol scratch
	if o.updateAtoms {
		for _, t := range e.OccTransform {
			o.tmol[t.MolID] = o.mol[t.MolID]
			o.tmol[t.MolID].Component = append([]int(nil), o.mol[t.MolID].Component...)
		}
	}

	for i, t := range e.OccTransform {
		if t.L < 0 || t.L >= len(o.lToMol) || o.lToMol[t.L] != t.MolID {
			return fmt.Errorf("occ location apply: site %d has no Mol record %d", t.L, t.MolID)
		}
		m := &o.mol[t.MolID]
		fromCand := o.candidateList.Index(m.Asym, m.SpeciesIndex)
		toCand := o.candidateList.Index(t.Asym, t.ToSpecies)
		if fromCand == o.candidateList.Size() || toCand == o.candidateList.Size() {
			return fmt.Errorf("occ location apply: transform on site %d references an invalid candidate", t.L)
		}

		// remove from the old bucket by swap-with-last-and-pop
		bucket := o.loc[fromCand]
		last := bucket[len(bucket)-1]
		bucket[m.Loc] = last
		o.mol[last].Loc = m.Loc
		o.loc[fromCand] = bucket[:len(bucket)-1]

		m.SpeciesIndex = t.ToSpecies
		if o.updateAtoms {
			m.Component = resizeComponents(m.Component, o.convert.NComponents(t.ToSpecies))
		}

		m.Loc = len(o.loc[toCand])
		o.loc[toCand] = append(o.loc[toCand], m.ID)

		occupation[t.L] = e.NewOcc[i]
	}

	if o.updateAtoms {
		for _, traj := range e.AtomTraj {
			atomID := o.tmol[traj.From.MolID].Component[traj.From.MolComp]
			o.mol[traj.To.MolID].Component[traj.To.MolComp] = atomID
			o.atoms[atomID].DeltaIJK = o.atoms[atomID].DeltaIJK.Add(traj.DeltaIJK)
		}
	}
	return nil
}

func resizeComponents(component []int, n int) []int {
	for len(component) < n {
		component = append(component, -1)
	}
	return component[:n]
}

// AtomPositionsCart composes each atom's BijkBegin + DeltaIJK through the
// injected Cartesian basis, producing a 3 x n_atoms matrix.
func (o *OccLocation) AtomPositionsCart() *mat.Dense {
	if len(o.atoms) == 0 {
		return &mat.Dense{}
	}
	frac := mat.NewDense(3, len(o.atoms), nil)
	for j, a := range o.atoms {
		pos := a.BijkBegin.Add(a.DeltaIJK)
		for i := 0; i < 3; i++ {
			frac.Set(i, j, float64(pos[i]))
		}
	}
	var cart mat.Dense
	cart.Mul(o.convert.CartesianBasis(), frac)
	return &cart
}

// MolSize returns the total number of mutating sites.
func (o *OccLocation) MolSize() int {
	return len(o.mol)
}

// Mol returns the Mol with the given id.
func (o *OccLocation) Mol(molID int) *Mol {
	return &o.mol[molID]
}

// Atoms returns the atom records (KMC mode).
func (o *OccLocation) Atoms() []Atom {
	return o.atoms
}

// CandSize returns the number of occupants of the given candidate type.
func (o *OccLocation) CandSize(candIndex int) int {
	return len(o.loc[candIndex])
}

// MolID returns the Mol id at position loc of the given candidate's bucket.
func (o *OccLocation) MolID(candIndex, loc int) int {
	return o.loc[candIndex][loc]
}

// LToMolID returns the Mol id on site l, or MolSize() for non-mutating sites.
func (o *OccLocation) LToMolID(l int) int {
	return o.lToMol[l]
}

// CandidateList returns the borrowed OccCandidateList.
func (o *OccLocation) CandidateList() *OccCandidateList {
	return o.candidateList
}

// Convert returns the borrowed Conversions.
func (o *OccLocation) Convert() Conversions {
	return o.convert
}
