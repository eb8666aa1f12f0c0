package mc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// BasicStatistics holds the mean of an observation series and the estimated
// half-width of the confidence interval of the mean, incorporating
// autocorrelation.
type BasicStatistics struct {
	Mean                float64 `json:"mean"`
	CalculatedPrecision float64 `json:"calculated_precision"`
}

// NaNStatistics marks statistics that could not be calculated.
func NaNStatistics() BasicStatistics {
	return BasicStatistics{Mean: math.NaN(), CalculatedPrecision: math.NaN()}
}

// CalcStatisticsFunc calculates statistics of an observation series with
// optional per-sample weights. An empty sampleWeight means unweighted.
type CalcStatisticsFunc func(observations, sampleWeight []float64) (BasicStatistics, error)

// autocorrCutoff stops the autocorrelation sum once rho(k) decays below it.
const autocorrCutoff = 0.05

// BasicStatisticsCalculator estimates the precision of the mean of a series.
//
// Unweighted series: the autocorrelation function rho(k) is summed while it
// stays above a cutoff into the integrated autocorrelation time
// tau = sum (1 - k/n) rho(k), the effective sample size is
// N_eff = n / (1 + 2 tau), and precision = z(alpha) * sqrt(Var(x) / N_eff).
//
// Weighted series (N-fold way residence weighting) with selectable method:
//
//  1. sample variance from the weighted series directly, with the
//     autocorrelation factor (1+rho)/(1-rho) estimated from a resampled
//     trajectory of NResamples equi-weight pseudo-observations
//  2. all statistics from the resampled trajectory
type BasicStatisticsCalculator struct {
	// Confidence is the two-sided confidence level for the precision of
	// the mean, in (0, 1).
	Confidence float64

	// WeightedObservationsMethod selects how autocorrelation is estimated
	// when per-sample weights are not uniform. 1 or 2.
	WeightedObservationsMethod int

	// NResamples is the length of the equi-weight resampled trajectory.
	NResamples int
}

// NewBasicStatisticsCalculator returns a calculator with the default
// confidence (0.95), weighted observations method (1), and number of
// resamples (10000).
func NewBasicStatisticsCalculator() BasicStatisticsCalculator {
	return BasicStatisticsCalculator{
		Confidence:                 0.95,
		WeightedObservationsMethod: 1,
		NResamples:                 10000,
	}
}

// zAlpha returns the two-sided normal quantile for the configured confidence.
func (c BasicStatisticsCalculator) zAlpha() float64 {
	return distuv.UnitNormal.Quantile(0.5 + c.Confidence/2.0)
}

// Calc calculates BasicStatistics for the given series. An empty sampleWeight
// selects the unweighted path; otherwise sampleWeight must be the same length
// as observations.
func (c BasicStatisticsCalculator) Calc(observations, sampleWeight []float64) (BasicStatistics, error) {
	if len(observations) == 0 {
		return NaNStatistics(), fmt.Errorf("statistics: no observations")
	}
	if len(sampleWeight) == 0 {
		return c.calcUnweighted(observations)
	}
	if len(sampleWeight) != len(observations) {
		return NaNStatistics(), fmt.Errorf("statistics: %d observations but %d weights",
			len(observations), len(sampleWeight))
	}
	switch c.WeightedObservationsMethod {
	case 1:
		return c.calcWeightedMethod1(observations, sampleWeight)
	case 2:
		return c.calcWeightedMethod2(observations, sampleWeight)
	default:
		return NaNStatistics(), fmt.Errorf("statistics: unknown weighted_observations_method %d",
			c.WeightedObservationsMethod)
	}
}

func (c BasicStatisticsCalculator) calcUnweighted(x []float64) (BasicStatistics, error) {
	n := len(x)
	mean := stat.Mean(x, nil)
	if n == 1 {
		return BasicStatistics{Mean: mean, CalculatedPrecision: math.Inf(1)}, nil
	}
	variance := stat.Variance(x, nil)
	if variance == 0 {
		return BasicStatistics{Mean: mean, CalculatedPrecision: 0}, nil
	}
	nEff := effectiveSampleSize(x, mean)
	precision := c.zAlpha() * math.Sqrt(variance/nEff)
	return BasicStatistics{Mean: mean, CalculatedPrecision: precision}, nil
}

func (c BasicStatisticsCalculator) calcWeightedMethod1(x, w []float64) (BasicStatistics, error) {
	mean := stat.Mean(x, w)
	variance := stat.Variance(x, w)
	resampled := ResampleByWeight(x, w, c.NResamples)
	rho := lagOneAutocorrelation(resampled)
	// clamp: a resampled trajectory of near-constant runs can push rho to 1
	if rho > 1.0-1e-10 {
		rho = 1.0 - 1e-10
	}
	if rho < 0 {
		rho = 0
	}
	// the factor folds both the duplication of heavy samples and the
	// series' own autocorrelation into an effective count of equi-weight
	// pseudo-observations
	factor := (1 + rho) / (1 - rho)
	nEff := float64(len(resampled)) / factor
	precision := c.zAlpha() * math.Sqrt(variance/nEff)
	return BasicStatistics{Mean: mean, CalculatedPrecision: precision}, nil
}

func (c BasicStatisticsCalculator) calcWeightedMethod2(x, w []float64) (BasicStatistics, error) {
	resampled := ResampleByWeight(x, w, c.NResamples)
	return c.calcUnweighted(resampled)
}

// effectiveSampleSize returns n / (1 + 2 tau) where tau is the integrated
// autocorrelation time of the centered series.
func effectiveSampleSize(x []float64, mean float64) float64 {
	n := len(x)
	d := make([]float64, n)
	for i, v := range x {
		d[i] = v - mean
	}
	var cov0 float64
	for _, v := range d {
		cov0 += v * v
	}
	cov0 /= float64(n)
	if cov0 == 0 {
		return float64(n)
	}
	var tau float64
	for k := 1; k < n; k++ {
		var cov float64
		for i := 0; i < n-k; i++ {
			cov += d[i] * d[i+k]
		}
		cov /= float64(n)
		rho := cov / cov0
		if rho < autocorrCutoff {
			break
		}
		tau += (1 - float64(k)/float64(n)) * rho
	}
	return float64(n) / (1 + 2*tau)
}

// lagOneAutocorrelation returns rho(1) of the series.
func lagOneAutocorrelation(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	mean := stat.Mean(x, nil)
	var cov0, cov1 float64
	for i := 0; i < n; i++ {
		d := x[i] - mean
		cov0 += d * d
		if i < n-1 {
			cov1 += d * (x[i+1] - mean)
		}
	}
	if cov0 == 0 {
		return 0
	}
	return cov1 / cov0
}

// ResampleByWeight builds a trajectory of nResamples equi-weight
// pseudo-observations from a weighted series, by systematic resampling over
// the cumulative weights: sample i contributes in proportion to
// w[i] / sum(w). Equal weights reproduce each observation equally often.
func ResampleByWeight(x, w []float64, nResamples int) []float64 {
	total := floats.Sum(w)
	out := make([]float64, 0, nResamples)
	cum := 0.0
	i := 0
	for k := 0; k < nResamples; k++ {
		target := (float64(k) + 0.5) * total / float64(nResamples)
		for i < len(x)-1 && cum+w[i] <= target {
			cum += w[i]
			i++
		}
		out = append(out, x[i])
	}
	return out
}
