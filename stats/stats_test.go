package stats

import (
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		values []int
		mean   float64
		stdev  float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]int{1}, 1, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, v := range c.values {
			s.Push(float64(v))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
		is.Equal(s.Count(), len(c.values))
	}
}

func TestMinMax(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	for _, v := range []float64{3, -2, 9, 4} {
		s.Push(v)
	}
	is.Equal(s.Min(), -2.0)
	is.Equal(s.Max(), 9.0)
}

func TestMergeMatchesSequential(t *testing.T) {
	is := is.New(t)
	values := []float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}
	for split := 0; split <= len(values); split++ {
		a, b, all := &Statistic{}, &Statistic{}, &Statistic{}
		for i, v := range values {
			all.Push(v)
			if i < split {
				a.Push(v)
			} else {
				b.Push(v)
			}
		}
		a.Merge(b)
		is.Equal(a.Count(), all.Count())
		is.True(FuzzyEqual(a.Mean(), all.Mean()))
		is.True(FuzzyEqual(a.Variance(), all.Variance()))
		is.Equal(a.Min(), all.Min())
		is.Equal(a.Max(), all.Max())
	}
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(FuzzyEqual(ZVal(95), 1.959963984540054))
	is.True(FuzzyEqual(ZVal(99), 2.5758293035489))
}

func TestSummary(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	is.Equal(s.Summary().CI95, 0.0)
	for _, v := range []float64{10, 12, 23, 23, 16, 23, 21, 16} {
		s.Push(v)
	}
	sum := s.Summary()
	is.Equal(sum.Count, 8)
	is.True(FuzzyEqual(sum.CI95, 1.959963984540054*s.StandardError()))
}
