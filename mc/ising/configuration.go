// Package ising implements a 2D periodic square-lattice Ising model with
// semi-grand canonical sampling, used as the reference system for the mc
// engine and by the command-line demo.
package ising

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lattice-mc/lattice-mc/mc"
)

// Boltzmann constant, eV/K.
const KB = 8.617333262e-5

// Configuration is a rows x cols spin lattice stored row-major, with
// occupation values +1 or -1.
type Configuration struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	occupation []int
}

// NewConfiguration creates a lattice with every site set to fillValue.
func NewConfiguration(rows, cols, fillValue int) *Configuration {
	c := &Configuration{Rows: rows, Cols: cols}
	c.occupation = make([]int, rows*cols)
	for i := range c.occupation {
		c.occupation[i] = fillValue
	}
	return c
}

// NSites returns the number of lattice sites.
func (c *Configuration) NSites() int {
	return c.Rows * c.Cols
}

// Occupation returns the live occupation vector.
func (c *Configuration) Occupation() []int {
	return c.occupation
}

// Occ returns the occupation of one site.
func (c *Configuration) Occ(l int) int {
	return c.occupation[l]
}

// SetOcc sets the occupation of one site.
func (c *Configuration) SetOcc(l, value int) {
	c.occupation[l] = value
}

// neighbors returns the four periodic neighbors of site l.
func (c *Configuration) neighbors(l int) [4]int {
	i, j := l/c.Cols, l%c.Cols
	up := ((i-1+c.Rows)%c.Rows)*c.Cols + j
	down := ((i + 1) % c.Rows) * c.Cols + j
	left := i*c.Cols + (j-1+c.Cols)%c.Cols
	right := i*c.Cols + (j+1)%c.Cols
	return [4]int{up, down, left, right}
}

// Conditions are the thermodynamic conditions of a semi-grand canonical
// calculation.
type Conditions struct {
	Temperature       float64   `json:"temperature"`
	ExchangePotential []float64 `json:"exchange_potential"`
}

// Beta returns 1/(kB T).
func (c Conditions) Beta() float64 {
	return 1.0 / (KB * c.Temperature)
}

// State is the configuration together with the conditions.
type State struct {
	Configuration *Configuration
	Conditions    Conditions
}

// NewState constructs a state over a fresh lattice.
func NewState(rows, cols, fillValue int, temperature, mu float64) *State {
	return &State{
		Configuration: NewConfiguration(rows, cols, fillValue),
		Conditions: Conditions{
			Temperature:       temperature,
			ExchangePotential: []float64{mu},
		},
	}
}

// Conversions maps the Ising lattice onto the engine's site/species model:
// one asymmetric unit, occupation values +1 and -1 mapping to species 0 and
// 1, identity Cartesian basis, row-major lattice coordinates.
type Conversions struct {
	rows, cols int
	basis      *mat.Dense
}

// NewConversions creates Conversions for a rows x cols lattice.
func NewConversions(rows, cols int) *Conversions {
	return &Conversions{
		rows:  rows,
		cols:  cols,
		basis: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
	}
}

func (c *Conversions) NSites() int {
	return c.rows * c.cols
}

func (c *Conversions) NAsym() int {
	return 1
}

func (c *Conversions) AsymUnit(l int) int {
	return 0
}

func (c *Conversions) OccupantIndices(asym int) []int {
	return []int{+1, -1}
}

func (c *Conversions) SpeciesIndex(asym, occIndex int) int {
	if occIndex == +1 {
		return 0
	}
	return 1
}

func (c *Conversions) OccIndex(asym, speciesIndex int) int {
	if speciesIndex == 0 {
		return +1
	}
	return -1
}

func (c *Conversions) SpeciesAllowed(asym, speciesIndex int) bool {
	return speciesIndex == 0 || speciesIndex == 1
}

func (c *Conversions) NSpecies() int {
	return 2
}

func (c *Conversions) NComponents(speciesIndex int) int {
	return 1
}

func (c *Conversions) LatticeCoordinate(l int) mc.UnitCell {
	return mc.UnitCell{l / c.cols, l % c.cols, 0}
}

func (c *Conversions) CartesianBasis() *mat.Dense {
	return c.basis
}

var _ mc.Conversions = (*Conversions)(nil)

func (c *Configuration) String() string {
	return fmt.Sprintf("ising %dx%d", c.Rows, c.Cols)
}
