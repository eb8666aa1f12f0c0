package mc

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SampleMode selects what is counted when deciding if a sample is due.
type SampleMode int

const (
	SampleByPass SampleMode = iota
	SampleByStep
	SampleByTime
)

func (m SampleMode) String() string {
	switch m {
	case SampleByPass:
		return "pass"
	case SampleByStep:
		return "step"
	case SampleByTime:
		return "time"
	}
	return fmt.Sprintf("SampleMode(%d)", int(m))
}

// SampleMethod selects linear or logarithmic sample spacing.
type SampleMethod int

const (
	SampleLinear SampleMethod = iota
	SampleLog
)

func (m SampleMethod) String() string {
	switch m {
	case SampleLinear:
		return "linear"
	case SampleLog:
		return "log"
	}
	return fmt.Sprintf("SampleMethod(%d)", int(m))
}

// SamplingParams describes what to sample and when.
//
// For SampleLinear, the n-th sample is taken when:
//
//	count = round( begin + (period / samples_per_period) * n )
//	 time = begin + (period / samples_per_period) * n
//
// For SampleLog, the n-th sample is taken when:
//
//	count = round( begin + period ^ ( (n + shift) / samples_per_period ) )
//	 time = begin + period ^ ( (n + shift) / samples_per_period )
//
// If StochasticSamplePeriod is true, the deterministic spacing is replaced
// by a renewal process whose instantaneous rate is the inverse of the
// deterministic spacing's derivative.
type SamplingParams struct {
	SampleMode             SampleMode
	SampleMethod           SampleMethod
	Begin                  float64
	Period                 float64
	SamplesPerPeriod       float64
	Shift                  float64
	StochasticSamplePeriod bool
	DoSampleTrajectory     bool
	DoSampleTime           bool
	SamplerNames           []string
}

// DefaultSamplingParams returns by-pass linear sampling with the given
// period and one sample per period.
func DefaultSamplingParams(period float64) SamplingParams {
	return SamplingParams{
		SampleMode:       SampleByPass,
		SampleMethod:     SampleLinear,
		Period:           period,
		SamplesPerPeriod: 1.0,
	}
}

// StateSamplingFunction is a function to be evaluated when taking a sample,
// returning a fixed-width observation vector for the current state.
type StateSamplingFunction struct {
	Name           string
	Description    string
	Shape          []int // column-major unrolling for matrices
	ComponentNames []string
	Function       func() []float64
}

// NewStateSamplingFunction creates a sampling function with default
// component names derived from the shape.
func NewStateSamplingFunction(name, description string, shape []int, function func() []float64) StateSamplingFunction {
	return StateSamplingFunction{
		Name:           name,
		Description:    description,
		Shape:          shape,
		ComponentNames: DefaultComponentNames(shape),
		Function:       function,
	}
}

// StateSampler holds step/pass/time counters, decides when a sample is due,
// evaluates the sampling functions, and stores the observations.
type StateSampler struct {
	rng *rand.Rand

	// parameters, see SamplingParams
	SampleMode             SampleMode
	SampleMethod           SampleMethod
	Begin                  float64
	Period                 float64
	SamplesPerPeriod       float64
	Shift                  float64
	StochasticSamplePeriod bool
	DoSampleTrajectory     bool
	DoSampleTime           bool

	// functions evaluated at each sample
	Functions []StateSamplingFunction

	// step / pass / time tracking
	Step         int64
	Pass         int64
	StepsPerPass int64
	Count        int64 // steps or passes, depending on SampleMode
	Time         float64
	NAccept      int64
	NReject      int64

	// schedule
	NextSampleCount int64
	NextSampleTime  float64

	// sampled data
	Samplers         map[string]*Sampler
	SampleCount      []int64
	SampleTime       []float64
	SampleWeight     *Sampler
	SampleClocktime  []float64
	SampleTrajectory [][]int

	startTime time.Time
}

// NewStateSampler creates a StateSampler drawing from its own rng stream.
// It fails when params names an unknown sampling function or the period
// violates the spacing rules.
func NewStateSampler(rng *rand.Rand, params SamplingParams, functions map[string]StateSamplingFunction) (*StateSampler, error) {
	if params.SampleMethod == SampleLog && params.Period <= 1.0 {
		return nil, fmt.Errorf("state sampler: for log spacing, period must be > 1.0, got %v", params.Period)
	}
	if params.SampleMethod == SampleLinear && params.Period <= 0.0 {
		return nil, fmt.Errorf("state sampler: for linear spacing, period must be > 0.0, got %v", params.Period)
	}
	if params.SamplesPerPeriod <= 0.0 {
		return nil, fmt.Errorf("state sampler: samples_per_period must be > 0.0, got %v", params.SamplesPerPeriod)
	}
	ss := &StateSampler{
		rng:                    rng,
		SampleMode:             params.SampleMode,
		SampleMethod:           params.SampleMethod,
		Begin:                  params.Begin,
		Period:                 params.Period,
		SamplesPerPeriod:       params.SamplesPerPeriod,
		Shift:                  params.Shift,
		StochasticSamplePeriod: params.StochasticSamplePeriod,
		DoSampleTrajectory:     params.DoSampleTrajectory,
		DoSampleTime:           params.DoSampleTime,
	}
	for _, name := range params.SamplerNames {
		f, ok := functions[name]
		if !ok {
			return nil, fmt.Errorf("state sampler: %q is not a sampling option", name)
		}
		ss.Functions = append(ss.Functions, f)
	}
	if err := ss.Reset(1); err != nil {
		return nil, err
	}
	return ss, nil
}

// Reset zeroes all counters, clears all sampled data, sets the steps per
// pass, and schedules the first sample.
func (ss *StateSampler) Reset(stepsPerPass int64) error {
	ss.StepsPerPass = stepsPerPass
	ss.Step = 0
	ss.Pass = 0
	ss.Count = 0
	ss.Time = 0.0
	ss.NAccept = 0
	ss.NReject = 0
	ss.Samplers = make(map[string]*Sampler, len(ss.Functions))
	for _, f := range ss.Functions {
		ss.Samplers[f.Name] = NewSampler(f.Shape, f.ComponentNames)
	}
	ss.SampleCount = nil
	ss.SampleTime = nil
	ss.SampleWeight = NewSampler(nil, nil)
	ss.SampleClocktime = nil
	ss.SampleTrajectory = nil
	ss.startTime = time.Now()

	if ss.SampleMode == SampleByTime {
		ss.NextSampleCount = 0
		ss.NextSampleTime = ss.SampleAt(0)
		if ss.NextSampleTime < 0.0 {
			return fmt.Errorf("state sampler: sampling period parameter error, next_sample_time < 0.0")
		}
	} else {
		ss.NextSampleTime = 0.0
		ss.NextSampleCount = int64(math.Round(ss.SampleAt(0)))
		if ss.NextSampleCount < 0 {
			return fmt.Errorf("state sampler: sampling period parameter error, next_sample_count < 0")
		}
	}
	return nil
}

// SampleAt returns the count or time at which the sampleIndex-th sample
// should be taken. With StochasticSamplePeriod, sampleIndex must equal the
// number of samples already taken, and the target is drawn from a renewal
// process starting at the previous sample instant.
func (ss *StateSampler) SampleAt(sampleIndex int) float64 {
	if ss.StochasticSamplePeriod {
		if sampleIndex == 0 {
			return ss.Begin
		}
		n := float64(sampleIndex)
		var rate float64
		if ss.SampleMethod == SampleLinear {
			rate = 1.0 / (ss.Period / ss.SamplesPerPeriod)
		} else {
			rate = ss.SamplesPerPeriod /
				(math.Log(ss.Period) * math.Pow(ss.Period, (n+ss.Shift)/ss.SamplesPerPeriod))
		}
		if ss.SampleMode == SampleByTime {
			return ss.SampleTime[len(ss.SampleTime)-1] + ss.stochasticTimeStep(rate)
		}
		return float64(ss.SampleCount[len(ss.SampleCount)-1]) + float64(ss.stochasticCountStep(rate))
	}
	n := float64(sampleIndex)
	if ss.SampleMethod == SampleLinear {
		return ss.Begin + (ss.Period/ss.SamplesPerPeriod)*n
	}
	return ss.Begin + math.Pow(ss.Period, (n+ss.Shift)/ss.SamplesPerPeriod)
}

// stochasticCountStep draws how many counts until the next sample from a
// geometric trial with the given per-count rate.
func (ss *StateSampler) stochasticCountStep(sampleRate float64) int64 {
	dn := int64(1)
	for {
		if ss.rng.Float64() < sampleRate {
			return dn
		}
		dn++
	}
}

// stochasticTimeStep draws how much time until the next sample from an
// exponential with the given rate.
func (ss *StateSampler) stochasticTimeStep(sampleRate float64) float64 {
	// 1 - Float64() is in (0, 1]
	return -math.Log(1.0-ss.rng.Float64()) / sampleRate
}

// IncrementStep advances by one step, updating pass and count as
// appropriate for the sample mode.
func (ss *StateSampler) IncrementStep() {
	ss.Step++
	if ss.SampleMode == SampleByStep {
		ss.Count++
	}
	if ss.Step == ss.StepsPerPass {
		ss.Pass++
		if ss.SampleMode != SampleByStep {
			ss.Count++
		}
		ss.Step = 0
	}
}

// SetTime sets the simulated time.
func (ss *StateSampler) SetTime(eventTime float64) {
	ss.Time = eventTime
}

// IncrementNAccept records one accepted step.
func (ss *StateSampler) IncrementNAccept() {
	ss.NAccept++
}

// IncrementNReject records one rejected step.
func (ss *StateSampler) IncrementNReject() {
	ss.NReject++
}

// PushBackSampleWeight sets the weight given to the next sample (N-fold way
// residence-time weighting).
func (ss *StateSampler) PushBackSampleWeight(weight float64) error {
	return ss.SampleWeight.PushBack([]float64{weight})
}

// SampleData takes a sample: records count, time, clocktime, and optionally
// the configuration, evaluates every sampling function, and schedules the
// next sample. The occupation slice is only read (and copied, when the
// trajectory is sampled).
//
// It fails when a sampling function returns a vector of the wrong width, or
// when the schedule does not advance strictly beyond the current position.
func (ss *StateSampler) SampleData(occupation []int) error {
	ss.SampleCount = append(ss.SampleCount, ss.Count)
	if ss.DoSampleTime {
		ss.SampleTime = append(ss.SampleTime, ss.Time)
	}
	ss.SampleClocktime = append(ss.SampleClocktime, time.Since(ss.startTime).Seconds())
	if ss.DoSampleTrajectory {
		ss.SampleTrajectory = append(ss.SampleTrajectory, append([]int(nil), occupation...))
	}

	for _, f := range ss.Functions {
		if err := ss.Samplers[f.Name].PushBack(f.Function()); err != nil {
			return fmt.Errorf("state sampler: sampling function %q: %w", f.Name, err)
		}
	}

	if ss.SampleMode == SampleByTime {
		ss.NextSampleTime = ss.SampleAt(len(ss.SampleTime))
		if ss.NextSampleTime <= ss.Time {
			return fmt.Errorf("state sampler: sampling period parameter error, next_sample_time <= current time")
		}
	} else {
		ss.NextSampleCount = int64(math.Round(ss.SampleAt(len(ss.SampleCount))))
		if ss.NextSampleCount <= ss.Count {
			return fmt.Errorf("state sampler: sampling period parameter error, next_sample_count <= current count")
		}
	}
	return nil
}

// SampleDataByCountIfDue takes a sample if count-based sampling is active
// and the count has reached the next scheduled sample. It reports whether a
// sample was taken.
func (ss *StateSampler) SampleDataByCountIfDue(occupation []int) (bool, error) {
	if ss.SampleMode != SampleByTime && ss.Count == ss.NextSampleCount {
		return true, ss.SampleData(occupation)
	}
	return false, nil
}

// SampleDataByTimeIfDue takes a sample if time-based sampling is active and
// the next event's time has reached the next scheduled sample. The recorded
// time is the scheduled next_sample_time, not the event time, so sample
// times stay on the schedule lattice even though the observables are
// evaluated at the current post-event configuration.
func (ss *StateSampler) SampleDataByTimeIfDue(eventTime float64, occupation []int) (bool, error) {
	if ss.SampleMode == SampleByTime && eventTime >= ss.NextSampleTime {
		ss.Time = ss.NextSampleTime
		return true, ss.SampleData(occupation)
	}
	return false, nil
}
