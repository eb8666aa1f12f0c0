package mc

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SamplingConfig is the YAML-facing form of SamplingParams. Option names and
// defaults:
//
//	sample_by: pass | step | time (time only if the method allows it)
//	spacing: linear | log (default linear)
//	begin: 0.0
//	period: required
//	samples_per_period: 1.0
//	shift: 0.0
//	stochastic_sample_period: false
//	quantities: list of sampler names to activate
//	sample_trajectory: false
type SamplingConfig struct {
	SampleBy               string   `yaml:"sample_by"`
	Spacing                string   `yaml:"spacing"`
	Begin                  float64  `yaml:"begin"`
	Period                 *float64 `yaml:"period"`
	SamplesPerPeriod       *float64 `yaml:"samples_per_period"`
	Shift                  float64  `yaml:"shift"`
	StochasticSamplePeriod bool     `yaml:"stochastic_sample_period"`
	Quantities             []string `yaml:"quantities"`
	SampleTrajectory       bool     `yaml:"sample_trajectory"`
}

// SamplingParams validates the configuration against the known sampling
// function names and returns the parameters. All problems are reported
// together; a non-nil error rejects the parameters before the run starts.
func (cfg SamplingConfig) SamplingParams(functionNames map[string]bool, timeSamplingAllowed bool) (SamplingParams, error) {
	var errs []error
	params := SamplingParams{
		Begin:                  cfg.Begin,
		Shift:                  cfg.Shift,
		StochasticSamplePeriod: cfg.StochasticSamplePeriod,
		DoSampleTrajectory:     cfg.SampleTrajectory,
		DoSampleTime:           timeSamplingAllowed,
		SamplesPerPeriod:       1.0,
		SamplerNames:           cfg.Quantities,
	}

	switch cfg.SampleBy {
	case "pass":
		params.SampleMode = SampleByPass
	case "step":
		params.SampleMode = SampleByStep
	case "time":
		if timeSamplingAllowed {
			params.SampleMode = SampleByTime
		} else {
			errs = append(errs, fmt.Errorf("sample_by: \"time\" is not allowed for this method"))
		}
	default:
		if timeSamplingAllowed {
			errs = append(errs, fmt.Errorf("sample_by: must be one of \"pass\", \"step\", or \"time\", got %q", cfg.SampleBy))
		} else {
			errs = append(errs, fmt.Errorf("sample_by: must be one of \"pass\" or \"step\", got %q", cfg.SampleBy))
		}
	}

	switch cfg.Spacing {
	case "", "linear":
		params.SampleMethod = SampleLinear
	case "log":
		params.SampleMethod = SampleLog
	default:
		errs = append(errs, fmt.Errorf("spacing: must be one of \"linear\", \"log\", got %q", cfg.Spacing))
	}

	if cfg.Period == nil {
		errs = append(errs, fmt.Errorf("period: required"))
	} else {
		params.Period = *cfg.Period
		if params.SampleMethod == SampleLog && params.Period <= 1.0 {
			errs = append(errs, fmt.Errorf("period: for spacing \"log\", period must be > 1.0"))
		}
		if params.SampleMethod == SampleLinear && params.Period <= 0.0 {
			errs = append(errs, fmt.Errorf("period: for spacing \"linear\", period must be > 0.0"))
		}
	}

	if cfg.SamplesPerPeriod != nil {
		params.SamplesPerPeriod = *cfg.SamplesPerPeriod
		if params.SamplesPerPeriod <= 0.0 {
			errs = append(errs, fmt.Errorf("samples_per_period: must be > 0.0"))
		}
	}

	for _, name := range cfg.Quantities {
		if !functionNames[name] {
			errs = append(errs, fmt.Errorf("quantities: %q is not a sampling option", name))
		}
	}

	return params, errors.Join(errs...)
}

// MinMaxIntConfig is an optional (min, max) pair of integer cutoffs.
type MinMaxIntConfig struct {
	Min *int64 `yaml:"min"`
	Max *int64 `yaml:"max"`
}

// MinMaxFloatConfig is an optional (min, max) pair of float cutoffs.
type MinMaxFloatConfig struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// CutoffConfig is the YAML-facing form of CutoffCheckParams.
type CutoffConfig struct {
	Count     MinMaxIntConfig   `yaml:"count"`
	Sample    MinMaxIntConfig   `yaml:"sample"`
	Time      MinMaxFloatConfig `yaml:"time"`
	Clocktime MinMaxFloatConfig `yaml:"clocktime"`
}

// CutoffCheckParams converts the configuration form.
func (cfg CutoffConfig) CutoffCheckParams() CutoffCheckParams {
	return CutoffCheckParams{
		MinCount:     cfg.Count.Min,
		MaxCount:     cfg.Count.Max,
		MinSample:    cfg.Sample.Min,
		MaxSample:    cfg.Sample.Max,
		MinTime:      cfg.Time.Min,
		MaxTime:      cfg.Time.Max,
		MinClocktime: cfg.Clocktime.Min,
		MaxClocktime: cfg.Clocktime.Max,
	}
}

// ConvergenceConfig selects components of a sampled quantity to converge.
// Omitting both component_index and component_name converges all components;
// specifying both is an error. "precision" is a deprecated alias for
// "abs_precision".
type ConvergenceConfig struct {
	Quantity       string   `yaml:"quantity"`
	AbsPrecision   *float64 `yaml:"abs_precision"`
	RelPrecision   *float64 `yaml:"rel_precision"`
	Precision      *float64 `yaml:"precision"`
	ComponentIndex []int    `yaml:"component_index"`
	ComponentName  []string `yaml:"component_name"`
}

// CompletionConfig is the YAML-facing form of CompletionCheckParams. Option
// names and defaults:
//
//	cutoff: {count, sample, time, clocktime} x {min, max}
//	spacing: linear | log (default linear)
//	begin: 0.0
//	period: 10.0
//	checks_per_period: 1.0
//	shift: 1.0
//	confidence: 0.95
//	weighted_observations_method: 1
//	n_resamples: 10000
//	convergence: list of ConvergenceConfig
type CompletionConfig struct {
	Cutoff                     CutoffConfig        `yaml:"cutoff"`
	Spacing                    string              `yaml:"spacing"`
	Begin                      float64             `yaml:"begin"`
	Period                     *float64            `yaml:"period"`
	ChecksPerPeriod            *float64            `yaml:"checks_per_period"`
	Shift                      *float64            `yaml:"shift"`
	Confidence                 *float64            `yaml:"confidence"`
	WeightedObservationsMethod *int                `yaml:"weighted_observations_method"`
	NResamples                 *int                `yaml:"n_resamples"`
	Convergence                []ConvergenceConfig `yaml:"convergence"`
}

// CompletionCheckParams validates the configuration against the known
// sampling functions and returns the parameters. All problems are reported
// together.
func (cfg CompletionConfig) CompletionCheckParams(functions map[string]StateSamplingFunction) (CompletionCheckParams, error) {
	var errs []error
	params := NewCompletionCheckParams()
	params.CutoffParams = cfg.Cutoff.CutoffCheckParams()
	params.CheckBegin = cfg.Begin

	switch cfg.Spacing {
	case "", "linear":
		params.LogSpacing = false
	case "log":
		params.LogSpacing = true
	default:
		errs = append(errs, fmt.Errorf("spacing: must be one of \"linear\", \"log\", got %q", cfg.Spacing))
	}

	if cfg.Period != nil {
		params.CheckPeriod = *cfg.Period
	}
	if params.LogSpacing && params.CheckPeriod <= 1.0 {
		errs = append(errs, fmt.Errorf("period: for spacing \"log\", period must be > 1.0"))
	}
	if !params.LogSpacing && params.CheckPeriod <= 0.0 {
		errs = append(errs, fmt.Errorf("period: for spacing \"linear\", period must be > 0.0"))
	}
	if cfg.ChecksPerPeriod != nil {
		params.ChecksPerPeriod = *cfg.ChecksPerPeriod
	}
	if cfg.Shift != nil {
		params.CheckShift = *cfg.Shift
	}

	calculator := NewBasicStatisticsCalculator()
	if cfg.Confidence != nil {
		calculator.Confidence = *cfg.Confidence
		if calculator.Confidence <= 0 || calculator.Confidence >= 1 {
			errs = append(errs, fmt.Errorf("confidence: must be in (0, 1), got %v", calculator.Confidence))
		}
	}
	if cfg.WeightedObservationsMethod != nil {
		calculator.WeightedObservationsMethod = *cfg.WeightedObservationsMethod
		if calculator.WeightedObservationsMethod != 1 && calculator.WeightedObservationsMethod != 2 {
			errs = append(errs, fmt.Errorf("weighted_observations_method: must be 1 or 2, got %d", calculator.WeightedObservationsMethod))
		}
	}
	if cfg.NResamples != nil {
		calculator.NResamples = *cfg.NResamples
		if calculator.NResamples < 1 {
			errs = append(errs, fmt.Errorf("n_resamples: must be >= 1, got %d", calculator.NResamples))
		}
	}
	params.CalcStatisticsF = calculator.Calc

	for i, entry := range cfg.Convergence {
		if err := parseConvergenceEntry(entry, functions, params.RequestedPrecision); err != nil {
			errs = append(errs, fmt.Errorf("convergence[%d]: %w", i, err))
		}
	}

	return params, errors.Join(errs...)
}

func parseConvergenceEntry(
	entry ConvergenceConfig,
	functions map[string]StateSamplingFunction,
	requested map[SamplerComponent]RequestedPrecision,
) error {
	function, ok := functions[entry.Quantity]
	if !ok {
		return fmt.Errorf("quantity: %q is not a sampling option", entry.Quantity)
	}

	var precision RequestedPrecision
	abs := entry.AbsPrecision
	if abs == nil {
		abs = entry.Precision
	}
	if abs != nil {
		precision.AbsConvergenceIsRequired = true
		precision.AbsPrecision = *abs
	}
	if entry.RelPrecision != nil {
		precision.RelConvergenceIsRequired = true
		precision.RelPrecision = *entry.RelPrecision
	}
	if !precision.AbsConvergenceIsRequired && !precision.RelConvergenceIsRequired {
		return fmt.Errorf("one of abs_precision, rel_precision is required")
	}

	hasIndex := len(entry.ComponentIndex) > 0
	hasName := len(entry.ComponentName) > 0
	switch {
	case hasIndex && hasName:
		return fmt.Errorf("cannot specify both component_index and component_name")
	case hasIndex:
		for _, index := range entry.ComponentIndex {
			if index < 0 || index >= len(function.ComponentNames) {
				return fmt.Errorf("component index %d is out of range for %q, valid range is [0,%d)",
					index, function.Name, len(function.ComponentNames))
			}
			requested[SamplerComponent{function.Name, index, function.ComponentNames[index]}] = precision
		}
	case hasName:
		for _, name := range entry.ComponentName {
			index := componentIndexOf(function.ComponentNames, name)
			if index < 0 {
				return fmt.Errorf("component name %q is not valid for %q", name, function.Name)
			}
			requested[SamplerComponent{function.Name, index, name}] = precision
		}
	default:
		// converge all components
		for index, name := range function.ComponentNames {
			requested[SamplerComponent{function.Name, index, name}] = precision
		}
	}
	return nil
}

func componentIndexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// RunConfig bundles the sampling and completion configuration of one
// sampling fixture.
type RunConfig struct {
	Sampling   SamplingConfig   `yaml:"sampling"`
	Completion CompletionConfig `yaml:"completion"`
}

// LoadRunConfig reads a RunConfig from a YAML file, rejecting unknown
// fields.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("run config %s: %w", path, err)
	}
	return &cfg, nil
}
