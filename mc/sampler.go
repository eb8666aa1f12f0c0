package mc

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
)

// Sampler stores a two-dimensional observation matrix. Rows are individual
// samples of a fixed-width vector; columns are the components of the sampled
// quantity. Rows are stored contiguously so appends are amortised O(1).
//
// The logical shape of the sampled quantity is recorded alongside the data:
// scalar: [], vector: [n], matrix: [m, n], etc. Matrices are unrolled in
// column-major order by the caller before PushBack.
type Sampler struct {
	shape          []int
	componentNames []string
	nComponents    int
	values         []float64 // row-major, len == nSamples*nComponents
}

// NewSampler creates an empty Sampler for a quantity with the given logical
// shape and component names. If componentNames is nil, default names are
// generated from the shape.
func NewSampler(shape []int, componentNames []string) *Sampler {
	if componentNames == nil {
		componentNames = DefaultComponentNames(shape)
	}
	return &Sampler{
		shape:          append([]int(nil), shape...),
		componentNames: append([]string(nil), componentNames...),
		nComponents:    len(componentNames),
	}
}

// DefaultComponentNames generates component names for a quantity of the given
// logical shape: "0" for a scalar, "0".."n-1" for a vector, and column-major
// "i,j" pairs for a matrix.
func DefaultComponentNames(shape []int) []string {
	switch len(shape) {
	case 0:
		return []string{"0"}
	case 1:
		names := make([]string, shape[0])
		for i := range names {
			names[i] = fmt.Sprintf("%d", i)
		}
		return names
	default:
		// column-major unrolling
		names := make([]string, 0, shape[0]*shape[1])
		for j := 0; j < shape[1]; j++ {
			for i := 0; i < shape[0]; i++ {
				names = append(names, fmt.Sprintf("%d,%d", i, j))
			}
		}
		return names
	}
}

// PushBack appends one observation row. The vector width must equal the
// number of components.
func (s *Sampler) PushBack(v []float64) error {
	if len(v) != s.nComponents {
		return fmt.Errorf("sampler push_back: observation has %d components, want %d", len(v), s.nComponents)
	}
	s.values = append(s.values, v...)
	return nil
}

// Clear drops all rows, keeping shape and component names.
func (s *Sampler) Clear() {
	s.values = s.values[:0]
}

// NSamples returns the number of rows.
func (s *Sampler) NSamples() int {
	if s.nComponents == 0 {
		return 0
	}
	return len(s.values) / s.nComponents
}

// NComponents returns the observation width.
func (s *Sampler) NComponents() int {
	return s.nComponents
}

// Component returns the series of the i-th component over all samples,
// as a newly allocated slice.
func (s *Sampler) Component(i int) []float64 {
	n := s.NSamples()
	out := make([]float64, n)
	for row := 0; row < n; row++ {
		out[row] = s.values[row*s.nComponents+i]
	}
	return out
}

// Data returns the raw row-major observation data.
func (s *Sampler) Data() []float64 {
	return s.values
}

// Rows returns the observation matrix as a slice of rows.
func (s *Sampler) Rows() [][]float64 {
	n := s.NSamples()
	out := make([][]float64, n)
	for row := 0; row < n; row++ {
		out[row] = append([]float64(nil), s.values[row*s.nComponents:(row+1)*s.nComponents]...)
	}
	return out
}

// ComponentNames returns the component names.
func (s *Sampler) ComponentNames() []string {
	return s.componentNames
}

// Shape returns the logical shape of the sampled quantity.
func (s *Sampler) Shape() []int {
	return s.shape
}

// GetNSamples returns the number of samples taken so far. All samplers in
// the map hold the same number of rows, so the first is representative.
func GetNSamples(samplers map[string]*Sampler) int {
	for _, s := range samplers {
		return s.NSamples()
	}
	return 0
}

// === SamplerComponent / RequestedPrecision ===

// SamplerComponent identifies one component of one named sampled quantity.
type SamplerComponent struct {
	SamplerName    string `json:"sampler_name"`
	ComponentIndex int    `json:"component_index"`
	ComponentName  string `json:"component_name"`
}

// Key returns a stable string form, used for map keys in serialised results.
func (c SamplerComponent) Key() string {
	return fmt.Sprintf("%s(%s)", c.SamplerName, c.ComponentName)
}

// SortedComponents returns the keys of a requested-precision map in a
// deterministic order.
func SortedComponents(requested map[SamplerComponent]RequestedPrecision) []SamplerComponent {
	keys := maps.Keys(requested)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SamplerName != keys[j].SamplerName {
			return keys[i].SamplerName < keys[j].SamplerName
		}
		return keys[i].ComponentIndex < keys[j].ComponentIndex
	})
	return keys
}

// RequestedPrecision is the target half-width of the confidence interval of
// the mean. Absolute and relative targets are enabled independently; the
// relative target is scaled by the magnitude of the mean.
type RequestedPrecision struct {
	AbsConvergenceIsRequired bool    `json:"abs_convergence_is_required"`
	AbsPrecision             float64 `json:"abs_precision"`
	RelConvergenceIsRequired bool    `json:"rel_convergence_is_required"`
	RelPrecision             float64 `json:"rel_precision"`
}

// AbsPrecision requests absolute convergence only.
func AbsPrecision(value float64) RequestedPrecision {
	return RequestedPrecision{AbsConvergenceIsRequired: true, AbsPrecision: value}
}

// RelPrecision requests relative convergence only.
func RelPrecision(value float64) RequestedPrecision {
	return RequestedPrecision{RelConvergenceIsRequired: true, RelPrecision: value}
}

// AbsAndRelPrecision requests both absolute and relative convergence.
func AbsAndRelPrecision(absValue, relValue float64) RequestedPrecision {
	return RequestedPrecision{
		AbsConvergenceIsRequired: true,
		AbsPrecision:             absValue,
		RelConvergenceIsRequired: true,
		RelPrecision:             relValue,
	}
}

// IsConvergedWith tests the enabled criteria against calculated statistics.
func (r RequestedPrecision) IsConvergedWith(stats BasicStatistics) bool {
	if math.IsNaN(stats.CalculatedPrecision) {
		return false
	}
	if r.AbsConvergenceIsRequired && stats.CalculatedPrecision > r.AbsPrecision {
		return false
	}
	if r.RelConvergenceIsRequired && stats.CalculatedPrecision > r.RelPrecision*math.Abs(stats.Mean) {
		return false
	}
	return true
}

// === RequestedPrecisionConstructor ===

// RequestedPrecisionConstructor builds a requested-precision map for the
// components of one named sampler. Constructed via Converge; select a subset
// with Component / ComponentByName, then set targets.
type RequestedPrecisionConstructor struct {
	samplerName string
	sampler     *Sampler
	requested   map[SamplerComponent]RequestedPrecision
}

// Converge starts a RequestedPrecisionConstructor selecting all components of
// the named sampler, each with an empty RequestedPrecision.
func Converge(samplers map[string]*Sampler, samplerName string) (*RequestedPrecisionConstructor, error) {
	sampler, ok := samplers[samplerName]
	if !ok {
		return nil, fmt.Errorf("converge: did not find a sampler named %q", samplerName)
	}
	rpc := &RequestedPrecisionConstructor{
		samplerName: samplerName,
		sampler:     sampler,
		requested:   make(map[SamplerComponent]RequestedPrecision),
	}
	for i, name := range sampler.ComponentNames() {
		rpc.requested[SamplerComponent{samplerName, i, name}] = RequestedPrecision{}
	}
	return rpc, nil
}

// Component restricts the selection to a single component by index.
func (rpc *RequestedPrecisionConstructor) Component(componentIndex int) (*RequestedPrecisionConstructor, error) {
	names := rpc.sampler.ComponentNames()
	if componentIndex < 0 || componentIndex >= len(names) {
		return nil, fmt.Errorf("converge: component index %d out of range for sampler %q", componentIndex, rpc.samplerName)
	}
	component := SamplerComponent{rpc.samplerName, componentIndex, names[componentIndex]}
	chosen := rpc.requested[component]
	rpc.requested = map[SamplerComponent]RequestedPrecision{component: chosen}
	return rpc, nil
}

// ComponentByName restricts the selection to a single component by name.
func (rpc *RequestedPrecisionConstructor) ComponentByName(componentName string) (*RequestedPrecisionConstructor, error) {
	for i, name := range rpc.sampler.ComponentNames() {
		if name == componentName {
			return rpc.Component(i)
		}
	}
	return nil, fmt.Errorf("converge: cannot find component %q for sampler %q", componentName, rpc.samplerName)
}

// SetAbsPrecision sets an absolute target on the selected components.
func (rpc *RequestedPrecisionConstructor) SetAbsPrecision(value float64) *RequestedPrecisionConstructor {
	for k, v := range rpc.requested {
		v.AbsConvergenceIsRequired = true
		v.AbsPrecision = value
		rpc.requested[k] = v
	}
	return rpc
}

// SetRelPrecision sets a relative target on the selected components.
func (rpc *RequestedPrecisionConstructor) SetRelPrecision(value float64) *RequestedPrecisionConstructor {
	for k, v := range rpc.requested {
		v.RelConvergenceIsRequired = true
		v.RelPrecision = value
		rpc.requested[k] = v
	}
	return rpc
}

// Map returns the accumulated requested-precision map.
func (rpc *RequestedPrecisionConstructor) Map() map[SamplerComponent]RequestedPrecision {
	return rpc.requested
}
