package mc

import (
	"fmt"
	"math"
)

// CutoffCheckParams are hard limits that prevent a run from stopping too
// soon, or force it to stop. Nil means no bound.
type CutoffCheckParams struct {
	MinCount *int64
	MaxCount *int64

	MinSample *int64
	MaxSample *int64

	MinTime *float64
	MaxTime *float64

	MinClocktime *float64
	MaxClocktime *float64
}

// AllMinimumsMet reports whether every configured minimum is satisfied.
func (p CutoffCheckParams) AllMinimumsMet(count int64, nSamples int, time, clocktime float64) bool {
	if p.MinCount != nil && count < *p.MinCount {
		return false
	}
	if p.MinSample != nil && int64(nSamples) < *p.MinSample {
		return false
	}
	if p.MinTime != nil && time < *p.MinTime {
		return false
	}
	if p.MinClocktime != nil && clocktime < *p.MinClocktime {
		return false
	}
	return true
}

// AnyMaximumMet reports whether any configured maximum has been reached.
func (p CutoffCheckParams) AnyMaximumMet(count int64, nSamples int, time, clocktime float64) bool {
	if p.MaxCount != nil && count >= *p.MaxCount {
		return true
	}
	if p.MaxSample != nil && int64(nSamples) >= *p.MaxSample {
		return true
	}
	if p.MaxTime != nil && time >= *p.MaxTime {
		return true
	}
	if p.MaxClocktime != nil && clocktime >= *p.MaxClocktime {
		return true
	}
	return false
}

// CompletionCheckParams configure when a run is complete.
type CompletionCheckParams struct {
	CutoffParams       CutoffCheckParams
	RequestedPrecision map[SamplerComponent]RequestedPrecision

	EquilibrationCheckF EquilibrationCheckFunc
	CalcStatisticsF     CalcStatisticsFunc

	// schedule of the (expensive) convergence check, in units of samples,
	// using the same linear/log formula as sample scheduling
	LogSpacing      bool
	CheckBegin      float64
	CheckPeriod     float64
	ChecksPerPeriod float64
	CheckShift      float64
}

// NewCompletionCheckParams returns params with the default equilibration
// check, the default statistics calculator, and linear check spacing with
// begin 0, period 10, one check per period, and shift 1.
func NewCompletionCheckParams() CompletionCheckParams {
	return CompletionCheckParams{
		RequestedPrecision:  make(map[SamplerComponent]RequestedPrecision),
		EquilibrationCheckF: DefaultEquilibrationCheck,
		CalcStatisticsF:     NewBasicStatisticsCalculator().Calc,
		LogSpacing:          false,
		CheckBegin:          0.0,
		CheckPeriod:         10.0,
		ChecksPerPeriod:     1.0,
		CheckShift:          1.0,
	}
}

// CompletionCheckResults are the outcome of the most recent completion
// check. They serialise to a self-describing object; the convergence-related
// fields are present only when a convergence check has run.
type CompletionCheckResults struct {
	HasAllMinimumsMet bool    `json:"has_all_minimums_met"`
	HasAnyMaximumMet  bool    `json:"has_any_maximum_met"`
	Count             int64   `json:"count"`
	Time              float64 `json:"time"`
	Clocktime         float64 `json:"clocktime"`
	NSamples          int     `json:"n_samples"`
	IsComplete        bool    `json:"is_complete"`

	NSamplesAtConvergenceCheck *int                       `json:"n_samples_at_convergence_check,omitempty"`
	EquilibrationCheckResults  *EquilibrationCheckResults `json:"equilibration_check_results,omitempty"`
	ConvergenceCheckResults    *ConvergenceCheckResults   `json:"convergence_check_results,omitempty"`
}

// CompletionCheck decides when a run is finished by combining hard cutoffs
// with statistical equilibration and convergence tests on the sampled
// quantities.
type CompletionCheck struct {
	params  CompletionCheckParams
	results CompletionCheckResults

	nCheckIndex       int // convergence checks scheduled so far
	nextCheckNSamples int64
}

// NewCompletionCheck validates the parameters and prepares the check
// schedule.
func NewCompletionCheck(params CompletionCheckParams) (*CompletionCheck, error) {
	if params.LogSpacing && params.CheckPeriod <= 1.0 {
		return nil, fmt.Errorf("completion check: for log spacing, period must be > 1.0, got %v", params.CheckPeriod)
	}
	if !params.LogSpacing && params.CheckPeriod <= 0.0 {
		return nil, fmt.Errorf("completion check: for linear spacing, period must be > 0.0, got %v", params.CheckPeriod)
	}
	if params.ChecksPerPeriod <= 0.0 {
		return nil, fmt.Errorf("completion check: checks_per_period must be > 0.0, got %v", params.ChecksPerPeriod)
	}
	if params.EquilibrationCheckF == nil {
		params.EquilibrationCheckF = DefaultEquilibrationCheck
	}
	if params.CalcStatisticsF == nil {
		params.CalcStatisticsF = NewBasicStatisticsCalculator().Calc
	}
	c := &CompletionCheck{params: params}
	c.nextCheckNSamples = c.CheckAt(0)
	return c, nil
}

// Params returns the configured parameters.
func (c *CompletionCheck) Params() CompletionCheckParams {
	return c.params
}

// Results returns the outcome of the most recent check.
func (c *CompletionCheck) Results() CompletionCheckResults {
	return c.results
}

// CheckAt returns the number of samples at which the checkIndex-th
// convergence check is scheduled.
func (c *CompletionCheck) CheckAt(checkIndex int) int64 {
	n := float64(checkIndex)
	var value float64
	if c.params.LogSpacing {
		value = c.params.CheckBegin + math.Pow(c.params.CheckPeriod, (n+c.params.CheckShift)/c.params.ChecksPerPeriod)
	} else {
		value = c.params.CheckBegin + (c.params.CheckPeriod/c.params.ChecksPerPeriod)*n
	}
	return int64(math.Round(value))
}

// IsComplete evaluates the completion rule: the run is complete iff any
// maximum cutoff has been breached, or all minimums are met, convergence is
// requested, the sample index matches the check schedule, and every
// requested component is equilibrated and converged.
func (c *CompletionCheck) IsComplete(
	samplers map[string]*Sampler,
	sampleWeight *Sampler,
	count int64,
	time float64,
	clocktime float64,
) bool {
	nSamples := GetNSamples(samplers)
	c.results = CompletionCheckResults{
		HasAllMinimumsMet: c.params.CutoffParams.AllMinimumsMet(count, nSamples, time, clocktime),
		HasAnyMaximumMet:  c.params.CutoffParams.AnyMaximumMet(count, nSamples, time, clocktime),
		Count:             count,
		Time:              time,
		Clocktime:         clocktime,
		NSamples:          nSamples,
	}

	if c.results.HasAnyMaximumMet {
		c.results.IsComplete = true
		return true
	}
	if !c.results.HasAllMinimumsMet || len(c.params.RequestedPrecision) == 0 {
		return false
	}
	if int64(nSamples) < c.nextCheckNSamples {
		return false
	}
	c.checkConvergence(samplers, sampleWeight, nSamples)

	// advance the schedule strictly beyond the current sample index
	for c.nextCheckNSamples <= int64(nSamples) {
		c.nCheckIndex++
		next := c.CheckAt(c.nCheckIndex)
		if next > c.nextCheckNSamples {
			c.nextCheckNSamples = next
		} else {
			c.nextCheckNSamples++
		}
	}
	return c.results.IsComplete
}

func (c *CompletionCheck) checkConvergence(samplers map[string]*Sampler, sampleWeight *Sampler, nSamples int) {
	c.results.NSamplesAtConvergenceCheck = &nSamples

	equilibration := RunEquilibrationChecks(
		c.params.EquilibrationCheckF, samplers, sampleWeight, c.params.RequestedPrecision)
	c.results.EquilibrationCheckResults = &equilibration
	if !equilibration.AllEquilibrated {
		return
	}

	nForStatistics := nSamples - equilibration.NSamplesForAllToEquilibrate
	if nForStatistics < 1 {
		return
	}
	convergence := ConvergenceCheck(
		samplers, sampleWeight, c.params.RequestedPrecision, nForStatistics, c.params.CalcStatisticsF)
	c.results.ConvergenceCheckResults = &convergence
	c.results.IsComplete = convergence.AllConverged
}
