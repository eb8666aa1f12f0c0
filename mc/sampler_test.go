package mc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_PushBackAndAccessors(t *testing.T) {
	s := NewSampler([]int{2}, []string{"a", "b"})

	require.NoError(t, s.PushBack([]float64{1, 2}))
	require.NoError(t, s.PushBack([]float64{3, 4}))

	assert.Equal(t, 2, s.NSamples())
	assert.Equal(t, 2, s.NComponents())
	assert.Equal(t, []float64{1, 3}, s.Component(0))
	assert.Equal(t, []float64{2, 4}, s.Component(1))
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Data())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, s.Rows())
	assert.Equal(t, []string{"a", "b"}, s.ComponentNames())
	assert.Equal(t, []int{2}, s.Shape())
}

func TestSampler_PushBackWidthMismatch(t *testing.T) {
	s := NewSampler([]int{2}, nil)
	err := s.PushBack([]float64{1})
	require.Error(t, err)
	assert.Equal(t, 0, s.NSamples())
}

func TestSampler_Clear(t *testing.T) {
	s := NewSampler(nil, nil)
	require.NoError(t, s.PushBack([]float64{1}))
	s.Clear()
	assert.Equal(t, 0, s.NSamples())
	assert.Equal(t, []string{"0"}, s.ComponentNames())
}

func TestDefaultComponentNames(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		want  []string
	}{
		{"scalar", nil, []string{"0"}},
		{"vector", []int{3}, []string{"0", "1", "2"}},
		{"matrix column-major", []int{2, 2}, []string{"0,0", "1,0", "0,1", "1,1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultComponentNames(tt.shape))
		})
	}
}

func TestRequestedPrecision_IsConvergedWith(t *testing.T) {
	stats := BasicStatistics{Mean: 2.0, CalculatedPrecision: 0.01}

	assert.True(t, AbsPrecision(0.02).IsConvergedWith(stats))
	assert.False(t, AbsPrecision(0.005).IsConvergedWith(stats))

	// relative is scaled by |mean|: 0.01 <= 0.01*2.0
	assert.True(t, RelPrecision(0.01).IsConvergedWith(stats))
	assert.False(t, RelPrecision(0.001).IsConvergedWith(stats))

	// both enabled: every enabled test must pass
	assert.False(t, AbsAndRelPrecision(0.02, 0.001).IsConvergedWith(stats))
	assert.True(t, AbsAndRelPrecision(0.02, 0.01).IsConvergedWith(stats))

	assert.False(t, AbsPrecision(1.0).IsConvergedWith(NaNStatistics()))
}

func TestConverge_Builder(t *testing.T) {
	samplers := map[string]*Sampler{
		"comp": NewSampler([]int{3}, []string{"Mg", "Va", "O"}),
	}

	// all components
	rpc, err := Converge(samplers, "comp")
	require.NoError(t, err)
	requested := rpc.SetAbsPrecision(0.01).Map()
	require.Len(t, requested, 3)
	assert.Equal(t, AbsPrecision(0.01), requested[SamplerComponent{"comp", 1, "Va"}])

	// single component by name
	rpc, err = Converge(samplers, "comp")
	require.NoError(t, err)
	rpc, err = rpc.ComponentByName("O")
	require.NoError(t, err)
	requested = rpc.SetRelPrecision(0.1).Map()
	require.Len(t, requested, 1)
	assert.Equal(t, RelPrecision(0.1), requested[SamplerComponent{"comp", 2, "O"}])

	// unknown sampler
	_, err = Converge(samplers, "missing")
	assert.Error(t, err)

	// out of range component
	rpc, err = Converge(samplers, "comp")
	require.NoError(t, err)
	_, err = rpc.Component(5)
	assert.Error(t, err)

	// unknown component name
	rpc, err = Converge(samplers, "comp")
	require.NoError(t, err)
	_, err = rpc.ComponentByName("Ni")
	assert.Error(t, err)
}
