package ising

// FormationEnergy calculates the Ising formation energy
// E = -J sum_<ij> s_i s_j over nearest-neighbor pairs of the periodic
// square lattice, and its change under occupation events.
type FormationEnergy struct {
	J     float64
	state *State
}

// NewFormationEnergy creates a calculator with coupling J.
func NewFormationEnergy(j float64) *FormationEnergy {
	return &FormationEnergy{J: j}
}

// SetState points the calculator at a state.
func (f *FormationEnergy) SetState(state *State) {
	f.state = state
}

// PerSupercell returns the extensive formation energy.
func (f *FormationEnergy) PerSupercell() float64 {
	config := f.state.Configuration
	var sum int
	for l := 0; l < config.NSites(); l++ {
		nn := config.neighbors(l)
		// count each pair once: down and right neighbors
		sum += config.Occ(l) * (config.Occ(nn[1]) + config.Occ(nn[3]))
	}
	return -f.J * float64(sum)
}

// PerUnitcell returns the intensive formation energy.
func (f *FormationEnergy) PerUnitcell() float64 {
	return f.PerSupercell() / float64(f.state.Configuration.NSites())
}

// OccDeltaPerSupercell returns the change in the extensive formation energy
// if the given sites took the given new occupations. Multi-site events are
// evaluated sequentially; the configuration is left unchanged.
func (f *FormationEnergy) OccDeltaPerSupercell(linearSiteIndex, newOcc []int) float64 {
	config := f.state.Configuration
	if len(linearSiteIndex) == 1 {
		// fast path for single-flip events, no temporary mutation
		l := linearSiteIndex[0]
		var nnSum int
		for _, m := range config.neighbors(l) {
			nnSum += config.Occ(m)
		}
		return -f.J * float64((newOcc[0]-config.Occ(l))*nnSum)
	}
	saved := make([]int, len(linearSiteIndex))
	var dE float64
	for k, l := range linearSiteIndex {
		var nnSum int
		for _, m := range config.neighbors(l) {
			nnSum += config.Occ(m)
		}
		dE += -f.J * float64((newOcc[k]-config.Occ(l))*nnSum)
		saved[k] = config.Occ(l)
		config.SetOcc(l, newOcc[k])
	}
	for k := len(linearSiteIndex) - 1; k >= 0; k-- {
		config.SetOcc(linearSiteIndex[k], saved[k])
	}
	return dE
}

// ParamComposition calculates the parametric composition x = n(+1)/n_sites
// and its change under occupation events.
type ParamComposition struct {
	state *State
}

// NewParamComposition creates the composition calculator.
func NewParamComposition() *ParamComposition {
	return &ParamComposition{}
}

// SetState points the calculator at a state.
func (p *ParamComposition) SetState(state *State) {
	p.state = state
}

// PerSupercell returns the extensive composition (count of +1 spins).
func (p *ParamComposition) PerSupercell() []float64 {
	config := p.state.Configuration
	var n int
	for l := 0; l < config.NSites(); l++ {
		if config.Occ(l) == +1 {
			n++
		}
	}
	return []float64{float64(n)}
}

// PerUnitcell returns the intensive composition.
func (p *ParamComposition) PerUnitcell() []float64 {
	value := p.PerSupercell()
	value[0] /= float64(p.state.Configuration.NSites())
	return value
}

// OccDeltaPerSupercell returns the change in the extensive composition if
// the given sites took the given new occupations.
func (p *ParamComposition) OccDeltaPerSupercell(linearSiteIndex, newOcc []int) []float64 {
	config := p.state.Configuration
	var d int
	for k, l := range linearSiteIndex {
		if newOcc[k] == +1 && config.Occ(l) != +1 {
			d++
		}
		if newOcc[k] != +1 && config.Occ(l) == +1 {
			d--
		}
	}
	return []float64{float64(d)}
}

// SemiGrandCanonicalPotential calculates the semi-grand canonical energy
// E_sgc = Ef - n_unitcells * (mu . x) and its change under occupation
// events.
type SemiGrandCanonicalPotential struct {
	FormationEnergy  *FormationEnergy
	ParamComposition *ParamComposition
	state            *State
}

// NewSemiGrandCanonicalPotential wires the potential to its collaborating
// calculators.
func NewSemiGrandCanonicalPotential(formationEnergy *FormationEnergy, paramComposition *ParamComposition) *SemiGrandCanonicalPotential {
	return &SemiGrandCanonicalPotential{
		FormationEnergy:  formationEnergy,
		ParamComposition: paramComposition,
	}
}

// SetState points the potential and its collaborators at a state.
func (p *SemiGrandCanonicalPotential) SetState(state *State) {
	p.state = state
	p.FormationEnergy.SetState(state)
	p.ParamComposition.SetState(state)
}

// PerSupercell returns the extensive semi-grand canonical energy.
func (p *SemiGrandCanonicalPotential) PerSupercell() float64 {
	value := p.FormationEnergy.PerSupercell()
	mu := p.state.Conditions.ExchangePotential
	for i, x := range p.ParamComposition.PerSupercell() {
		value -= mu[i] * x
	}
	return value
}

// PerUnitcell returns the intensive semi-grand canonical energy.
func (p *SemiGrandCanonicalPotential) PerUnitcell() float64 {
	return p.PerSupercell() / float64(p.state.Configuration.NSites())
}

// OccDeltaPerSupercell returns the change in the extensive semi-grand
// canonical energy if the given sites took the given new occupations.
func (p *SemiGrandCanonicalPotential) OccDeltaPerSupercell(linearSiteIndex, newOcc []int) float64 {
	dE := p.FormationEnergy.OccDeltaPerSupercell(linearSiteIndex, newOcc)
	mu := p.state.Conditions.ExchangePotential
	for i, dx := range p.ParamComposition.OccDeltaPerSupercell(linearSiteIndex, newOcc) {
		dE -= mu[i] * dx
	}
	return dE
}
