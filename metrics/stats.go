package metrics

import (
	"math"
	"time"
)

// durationStats estimates the mean and variance of round durations with Welford's online algorithm.
type durationStats struct {
	mean  float64
	m2    float64
	count uint64
}

// add adds a duration, in milliseconds, to the estimate.
func (s *durationStats) add(d time.Duration) {
	val := float64(d) / float64(time.Millisecond)
	s.count++
	delta := val - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (val - s.mean)
}

// get returns the mean and sample variance. The variance is NaN for fewer than two samples.
func (s *durationStats) get() (mean, variance float64, count uint64) {
	if s.count < 2 {
		return s.mean, math.NaN(), s.count
	}
	return s.mean, s.m2 / float64(s.count-1), s.count
}

func (s *durationStats) reset() {
	*s = durationStats{}
}
