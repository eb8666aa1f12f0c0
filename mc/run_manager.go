package mc

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SamplingFixtureParams bundle the configuration of one named sampling
// fixture: what to sample, when, and when its part of the run is complete.
type SamplingFixtureParams struct {
	Label            string
	SamplingParams   SamplingParams
	CompletionParams CompletionCheckParams
	Functions        map[string]StateSamplingFunction
}

// SamplingFixture is a named (StateSampler, CompletionCheck) pair evaluated
// over the same driving loop.
type SamplingFixture struct {
	label           string
	StateSampler    *StateSampler
	CompletionCheck *CompletionCheck
}

// NewSamplingFixture constructs the fixture's StateSampler and
// CompletionCheck from its params.
func NewSamplingFixture(params SamplingFixtureParams, rng *PartitionedRNG) (*SamplingFixture, error) {
	ss, err := NewStateSampler(rng.ForSubsystem(SubsystemSampling(params.Label)), params.SamplingParams, params.Functions)
	if err != nil {
		return nil, fmt.Errorf("sampling fixture %q: %w", params.Label, err)
	}
	cc, err := NewCompletionCheck(params.CompletionParams)
	if err != nil {
		return nil, fmt.Errorf("sampling fixture %q: %w", params.Label, err)
	}
	for component := range params.CompletionParams.RequestedPrecision {
		if _, ok := ss.Samplers[component.SamplerName]; !ok {
			return nil, fmt.Errorf("sampling fixture %q: convergence requested for %q, which is not sampled",
				params.Label, component.SamplerName)
		}
	}
	return &SamplingFixture{label: params.Label, StateSampler: ss, CompletionCheck: cc}, nil
}

// Label returns the fixture name.
func (f *SamplingFixture) Label() string {
	return f.label
}

// SampleHook runs immediately before or after a fixture takes a sample.
// KMC uses the pre-sample hook to capture atom positions "just before"
// sampling, and the post-sample hook to roll previous-sample data forward.
type SampleHook func(fixture *SamplingFixture)

// RunResults are the serialisable outcome of one fixture's run: completion
// check results plus the sampled data, with sampler rows positionally
// aligned with the side channels.
type RunResults struct {
	Label                  string                 `json:"label"`
	CompletionCheckResults CompletionCheckResults `json:"completion_check_results"`
	NAccept                int64                  `json:"n_accept"`
	NReject                int64                  `json:"n_reject"`
	Samplers               map[string][][]float64 `json:"samplers"`
	SampleCount            []int64                `json:"sample_count"`
	SampleTime             []float64              `json:"sample_time,omitempty"`
	SampleClocktime        []float64              `json:"sample_clocktime,omitempty"`
	SampleTrajectory       [][]int                `json:"sample_trajectory,omitempty"`
	SampleWeight           [][]float64            `json:"sample_weight,omitempty"`
	Analysis               map[string][]float64   `json:"analysis,omitempty"`
}

// RunManager multiplexes several sampling fixtures over one simulation run.
type RunManager struct {
	fixtures []*SamplingFixture

	// fixture whose next by-time sample instant is smallest, nil when no
	// fixture samples by time
	nextSamplingFixture *SamplingFixture

	startTime time.Time

	// StatusPeriod is the wall-clock spacing of status log lines, in
	// seconds. Zero disables status reporting.
	StatusPeriod float64
	lastStatus   time.Time
}

// NewRunManager builds one fixture per params entry. Fixture labels must be
// unique; each fixture draws from its own rng subsystem.
func NewRunManager(rng *PartitionedRNG, params []SamplingFixtureParams) (*RunManager, error) {
	rm := &RunManager{StatusPeriod: 10.0}
	seen := make(map[string]bool)
	for _, p := range params {
		if seen[p.Label] {
			return nil, fmt.Errorf("run manager: duplicate sampling fixture label %q", p.Label)
		}
		seen[p.Label] = true
		fixture, err := NewSamplingFixture(p, rng)
		if err != nil {
			return nil, err
		}
		rm.fixtures = append(rm.fixtures, fixture)
	}
	return rm, nil
}

// Fixtures returns the sampling fixtures.
func (rm *RunManager) Fixtures() []*SamplingFixture {
	return rm.fixtures
}

// InitializeRun resets every fixture for a run with the given steps per
// pass, and selects the next sampling fixture.
func (rm *RunManager) InitializeRun(stepsPerPass int64) error {
	rm.startTime = time.Now()
	rm.lastStatus = rm.startTime
	for _, f := range rm.fixtures {
		if err := f.StateSampler.Reset(stepsPerPass); err != nil {
			return fmt.Errorf("sampling fixture %q: %w", f.label, err)
		}
	}
	rm.UpdateNextSamplingFixture()
	return nil
}

// IncrementStep advances every fixture's counters by one step.
func (rm *RunManager) IncrementStep() {
	for _, f := range rm.fixtures {
		f.StateSampler.IncrementStep()
	}
}

// SetTime sets the simulated time on every fixture.
func (rm *RunManager) SetTime(eventTime float64) {
	for _, f := range rm.fixtures {
		f.StateSampler.SetTime(eventTime)
	}
}

// IncrementNAccept records one accepted step on every fixture.
func (rm *RunManager) IncrementNAccept() {
	for _, f := range rm.fixtures {
		f.StateSampler.IncrementNAccept()
	}
}

// IncrementNReject records one rejected step on every fixture.
func (rm *RunManager) IncrementNReject() {
	for _, f := range rm.fixtures {
		f.StateSampler.IncrementNReject()
	}
}

// UpdateNextSamplingFixture reselects the fixture whose next by-time sample
// instant is smallest, so callers can ask for the next sample time without
// scanning.
func (rm *RunManager) UpdateNextSamplingFixture() {
	rm.nextSamplingFixture = nil
	for _, f := range rm.fixtures {
		if f.StateSampler.SampleMode != SampleByTime {
			continue
		}
		if rm.nextSamplingFixture == nil ||
			f.StateSampler.NextSampleTime < rm.nextSamplingFixture.StateSampler.NextSampleTime {
			rm.nextSamplingFixture = f
		}
	}
}

// NextSamplingFixture returns the fixture selected by
// UpdateNextSamplingFixture, or nil when no fixture samples by time.
func (rm *RunManager) NextSamplingFixture() *SamplingFixture {
	return rm.nextSamplingFixture
}

// NextSampleTime returns the smallest next by-time sample instant. The
// second result is false when no fixture samples by time.
func (rm *RunManager) NextSampleTime() (float64, bool) {
	if rm.nextSamplingFixture == nil {
		return 0, false
	}
	return rm.nextSamplingFixture.StateSampler.NextSampleTime, true
}

// SampleDataByCountIfDue fans out to every fixture due for a count-based
// sample, wrapping each sample with the pre and post hooks (either may be
// nil).
func (rm *RunManager) SampleDataByCountIfDue(occupation []int, pre, post SampleHook) error {
	for _, f := range rm.fixtures {
		ss := f.StateSampler
		if ss.SampleMode == SampleByTime || ss.Count != ss.NextSampleCount {
			continue
		}
		if pre != nil {
			pre(f)
		}
		if err := ss.SampleData(occupation); err != nil {
			return fmt.Errorf("sampling fixture %q: %w", f.label, err)
		}
		if post != nil {
			post(f)
		}
	}
	return nil
}

// SampleDataByTimeIfDue fans out to every fixture due for a time-based
// sample at the given event time, wrapping each sample with the pre and
// post hooks, then reselects the next sampling fixture.
func (rm *RunManager) SampleDataByTimeIfDue(eventTime float64, occupation []int, pre, post SampleHook) error {
	for _, f := range rm.fixtures {
		ss := f.StateSampler
		if ss.SampleMode != SampleByTime || eventTime < ss.NextSampleTime {
			continue
		}
		if pre != nil {
			pre(f)
		}
		ss.Time = ss.NextSampleTime
		if err := ss.SampleData(occupation); err != nil {
			return fmt.Errorf("sampling fixture %q: %w", f.label, err)
		}
		if post != nil {
			post(f)
		}
	}
	rm.UpdateNextSamplingFixture()
	return nil
}

// IsComplete runs each fixture's completion check and reports the
// conjunction over fixtures.
func (rm *RunManager) IsComplete() bool {
	clocktime := time.Since(rm.startTime).Seconds()
	complete := true
	for _, f := range rm.fixtures {
		ss := f.StateSampler
		if !f.CompletionCheck.IsComplete(ss.Samplers, ss.SampleWeight, ss.Count, ss.Time, clocktime) {
			complete = false
		}
	}
	return complete
}

// WriteStatusIfDue logs one status line per fixture when the configured
// wall-clock status period has elapsed.
func (rm *RunManager) WriteStatusIfDue() {
	if rm.StatusPeriod <= 0 || time.Since(rm.lastStatus).Seconds() < rm.StatusPeriod {
		return
	}
	rm.lastStatus = time.Now()
	for _, f := range rm.fixtures {
		ss := f.StateSampler
		logrus.Infof("fixture %s: pass=%d step=%d count=%d time=%g n_samples=%d n_accept=%d n_reject=%d",
			f.label, ss.Pass, ss.Step, ss.Count, ss.Time, GetNSamples(ss.Samplers), ss.NAccept, ss.NReject)
	}
}

// Finalize collects every fixture's results, keyed by fixture label.
func (rm *RunManager) Finalize() map[string]*RunResults {
	out := make(map[string]*RunResults, len(rm.fixtures))
	for _, f := range rm.fixtures {
		ss := f.StateSampler
		results := &RunResults{
			Label:                  f.label,
			CompletionCheckResults: f.CompletionCheck.Results(),
			NAccept:                ss.NAccept,
			NReject:                ss.NReject,
			Samplers:               make(map[string][][]float64, len(ss.Samplers)),
			SampleCount:            ss.SampleCount,
			SampleTime:             ss.SampleTime,
			SampleClocktime:        ss.SampleClocktime,
			SampleTrajectory:       ss.SampleTrajectory,
		}
		for name, sampler := range ss.Samplers {
			results.Samplers[name] = sampler.Rows()
		}
		if ss.SampleWeight.NSamples() > 0 {
			results.SampleWeight = ss.SampleWeight.Rows()
		}
		out[f.label] = results
	}
	return out
}
