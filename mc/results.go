package mc

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// ResultsAnalysisFunction calculates a function of the sampled data at the
// end of a run (for example, a covariance matrix of sampled compositions).
type ResultsAnalysisFunction struct {
	Name           string
	Description    string
	Shape          []int // column-major unrolling for matrices
	ComponentNames []string
	Function       func(results *RunResults) ([]float64, error)
}

// NewResultsAnalysisFunction creates an analysis function with default
// component names derived from the shape.
func NewResultsAnalysisFunction(name, description string, shape []int, function func(results *RunResults) ([]float64, error)) ResultsAnalysisFunction {
	return ResultsAnalysisFunction{
		Name:           name,
		Description:    description,
		Shape:          shape,
		ComponentNames: DefaultComponentNames(shape),
		Function:       function,
	}
}

// MakeAnalysis evaluates all analysis functions against final run results.
// An individual failure is recovered locally: the corresponding output is a
// vector of NaNs and the other analyses proceed.
func MakeAnalysis(results *RunResults, analysisFunctions map[string]ResultsAnalysisFunction) map[string][]float64 {
	analysis := make(map[string][]float64, len(analysisFunctions))
	names := maps.Keys(analysisFunctions)
	sort.Strings(names)
	for _, name := range names {
		f := analysisFunctions[name]
		value, err := evalAnalysis(f, results)
		if err != nil {
			logrus.Errorf("results analysis %q failed: %v", name, err)
			value = nanVector(len(f.ComponentNames))
		} else if len(value) != len(f.ComponentNames) {
			logrus.Errorf("results analysis %q returned %d components, want %d",
				name, len(value), len(f.ComponentNames))
			value = nanVector(len(f.ComponentNames))
		}
		analysis[name] = value
	}
	return analysis
}

func evalAnalysis(f ResultsAnalysisFunction, results *RunResults) (value []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Function(results)
}

func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}
