// Package beta implements the Beta-Binomial posterior algebra the
// routine learner and scorer are built on: a per-(slot, channel) belief
// about how likely that cell is to be active, updated one observation
// per day.
package beta

import "math"

// zForLevel maps a two-sided confidence level to its normal-approximation
// z-score. Values outside this table are not supported.
var zForLevel = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// Posterior is an immutable Beta(alpha, beta) belief over a binary
// occupancy probability. Every method is a pure function; Update
// returns a new value rather than mutating the receiver.
type Posterior struct {
	Alpha float64
	Beta  float64
}

// New returns the posterior seeded with the given prior pseudo-counts.
func New(alpha, beta float64) Posterior {
	return Posterior{Alpha: alpha, Beta: beta}
}

// Mean is the posterior expectation E[p] = alpha / (alpha + beta).
func (p Posterior) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

// Variance is the posterior variance of p.
func (p Posterior) Variance() float64 {
	a, b := p.Alpha, p.Beta
	s := a + b
	return (a * b) / (s * s * (s + 1))
}

// Std is the posterior standard deviation of p.
func (p Posterior) Std() float64 {
	return math.Sqrt(p.Variance())
}

// CredibleInterval returns the normal-approximation two-sided credible
// interval at the given level (one of 0.90, 0.95, 0.99), clamped to
// [0, 1]. Accuracy versus the exact Beta quantile is within 2% once
// alpha+beta >= 7 and effectively exact by alpha+beta >= 14; behaviour
// at the extremes (mean < 0.01 or > 0.99) is not guaranteed.
func (p Posterior) CredibleInterval(level float64) (lo, hi float64) {
	z, ok := zForLevel[level]
	if !ok {
		z = zForLevel[0.90]
	}
	mean, std := p.Mean(), p.Std()
	lo = math.Max(0.0, mean-z*std)
	hi = math.Min(1.0, mean+z*std)
	return lo, hi
}

// CIWidth returns the width of the 90% credible interval.
func (p Posterior) CIWidth() float64 {
	lo, hi := p.CredibleInterval(0.90)
	return hi - lo
}

// minProb/maxProb bound the probability used inside NLL to avoid
// log(0) on cells that have seen only one outcome so far.
const (
	minProb = 0.001
	maxProb = 0.999
)

// NLL returns the negative log-likelihood of the observed bit (0 or 1)
// under this posterior's mean probability, clamped to [minProb, maxProb].
// Always non-negative.
func (p Posterior) NLL(observed int) float64 {
	prob := math.Max(minProb, math.Min(maxProb, p.Mean()))
	if observed == 1 {
		return -math.Log(prob)
	}
	return -math.Log(1 - prob)
}

// Update returns a new posterior conditioned on one binary observation.
// It never mutates the receiver: Update(1) increments Alpha,
// Update(0) increments Beta.
func (p Posterior) Update(observed int) Posterior {
	if observed == 1 {
		return Posterior{Alpha: p.Alpha + 1, Beta: p.Beta}
	}
	return Posterior{Alpha: p.Alpha, Beta: p.Beta + 1}
}
