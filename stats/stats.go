// Package stats keeps running statistics for build reports.
package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance (Welford's algorithm) with the
// extremes seen so far. The zero value is empty and ready to use.
type Statistic struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

func (s *Statistic) Push(val float64) {
	s.n++
	if s.n == 1 {
		s.mean, s.m2 = val, 0
		s.min, s.max = val, val
		return
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
	s.min = math.Min(s.min, val)
	s.max = math.Max(s.max, val)
}

// Merge folds o into s, as if every value pushed to o had been pushed to s.
// https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Parallel_algorithm
func (s *Statistic) Merge(o *Statistic) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.m2 += o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.mean += delta * float64(o.n) / float64(n)
	s.n = n
	s.min = math.Min(s.min, o.min)
	s.max = math.Max(s.max, o.max)
}

func (s *Statistic) Mean() float64 {
	return s.mean
}

func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Min() float64 { return s.min }
func (s *Statistic) Max() float64 { return s.max }
func (s *Statistic) Count() int   { return s.n }

// Summary is a printable snapshot.
type Summary struct {
	Count int     `yaml:"count"`
	Mean  float64 `yaml:"mean"`
	Stdev float64 `yaml:"stdev"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	// Half-width of the 95% confidence interval of the mean.
	CI95 float64 `yaml:"ci95"`
}

func (s *Statistic) Summary() Summary {
	return Summary{
		Count: s.n,
		Mean:  s.Mean(),
		Stdev: s.Stdev(),
		Min:   s.min,
		Max:   s.max,
		CI95:  s.ConfidenceInterval(95),
	}
}
