package mc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// UnitCell is an integral lattice coordinate.
type UnitCell [3]int

// Add returns the componentwise sum.
func (u UnitCell) Add(v UnitCell) UnitCell {
	return UnitCell{u[0] + v[0], u[1] + v[1], u[2] + v[2]}
}

// Sub returns the componentwise difference.
func (u UnitCell) Sub(v UnitCell) UnitCell {
	return UnitCell{u[0] - v[0], u[1] - v[1], u[2] - v[2]}
}

// Conversions maps between linear site indices and (asymmetric unit,
// species) pairs, and provides lattice geometry. It is injected at
// construction time and treated as a black box; implementations must be
// pure and must outlive any OccLocation borrowing them.
type Conversions interface {
	// NSites is the number of linear sites in the configuration.
	NSites() int

	// NAsym is the number of asymmetric units.
	NAsym() int

	// AsymUnit returns the asymmetric unit of site l.
	AsymUnit(l int) int

	// OccupantIndices enumerates the occupation indices allowed on sites
	// of the given asymmetric unit. A site is mutating when more than one
	// occupation index is allowed.
	OccupantIndices(asym int) []int

	// SpeciesIndex returns the species id for an occupation index on the
	// given asymmetric unit.
	SpeciesIndex(asym, occIndex int) int

	// OccIndex is the inverse of SpeciesIndex.
	OccIndex(asym, speciesIndex int) int

	// SpeciesAllowed reports whether the species may occupy sites of the
	// given asymmetric unit.
	SpeciesAllowed(asym, speciesIndex int) bool

	// NSpecies is the number of species ids.
	NSpecies() int

	// NComponents is the number of atomic components of a species.
	NComponents(speciesIndex int) int

	// LatticeCoordinate returns the integral lattice coordinate of site l.
	LatticeCoordinate(l int) UnitCell

	// CartesianBasis returns the 3x3 column basis composing lattice
	// coordinates into Cartesian positions.
	CartesianBasis() *mat.Dense
}

// OccCandidate is an (asymmetric unit, species index) equivalence class
// enumerating the kinds of occupants the simulation may select from.
type OccCandidate struct {
	Asym         int `json:"asym"`
	SpeciesIndex int `json:"species_index"`
}

// OccCandidateList enumerates all valid OccCandidate pairs and maps
// (asym, species) to a candidate index. Pairs on non-mutating asymmetric
// units, and species not allowed on an asymmetric unit, are invalid.
type OccCandidateList struct {
	candidates []OccCandidate
	index      [][]int // [asym][species] -> candidate index, or len(candidates)
}

// NewOccCandidateList builds the candidate enumeration from Conversions.
func NewOccCandidateList(convert Conversions) *OccCandidateList {
	cl := &OccCandidateList{}
	cl.index = make([][]int, convert.NAsym())
	invalid := -1 // patched to len(candidates) below
	for asym := range cl.index {
		cl.index[asym] = make([]int, convert.NSpecies())
		for species := range cl.index[asym] {
			cl.index[asym][species] = invalid
		}
		if len(convert.OccupantIndices(asym)) < 2 {
			continue
		}
		for _, occ := range convert.OccupantIndices(asym) {
			species := convert.SpeciesIndex(asym, occ)
			if cl.index[asym][species] != invalid {
				continue
			}
			cl.index[asym][species] = len(cl.candidates)
			cl.candidates = append(cl.candidates, OccCandidate{Asym: asym, SpeciesIndex: species})
		}
	}
	for asym := range cl.index {
		for species := range cl.index[asym] {
			if cl.index[asym][species] == invalid {
				cl.index[asym][species] = len(cl.candidates)
			}
		}
	}
	return cl
}

// Size returns the number of candidates.
func (cl *OccCandidateList) Size() int {
	return len(cl.candidates)
}

// Candidate returns the candidate with the given index.
func (cl *OccCandidateList) Candidate(candIndex int) OccCandidate {
	return cl.candidates[candIndex]
}

// Index returns the candidate index for (asym, species), or Size() if the
// pair is not a valid candidate.
func (cl *OccCandidateList) Index(asym, speciesIndex int) int {
	if asym < 0 || asym >= len(cl.index) {
		return len(cl.candidates)
	}
	row := cl.index[asym]
	if speciesIndex < 0 || speciesIndex >= len(row) {
		return len(cl.candidates)
	}
	return row[speciesIndex]
}

// IndexOf returns the candidate index for a candidate pair, or Size().
func (cl *OccCandidateList) IndexOf(cand OccCandidate) int {
	return cl.Index(cand.Asym, cand.SpeciesIndex)
}

// IsValid reports whether the pair is an enumerated candidate.
func (cl *OccCandidateList) IsValid(asym, speciesIndex int) bool {
	return cl.Index(asym, speciesIndex) != len(cl.candidates)
}

func (c OccCandidate) String() string {
	return fmt.Sprintf("(asym=%d, species=%d)", c.Asym, c.SpeciesIndex)
}
