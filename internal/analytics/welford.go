package analytics

import "math"

// welford keeps a running mean and sum of squared deviations.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) Reset() {
	*w = welford{}
}

func (w *welford) Add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// SampleStd is the n-1 standard deviation; 0 until two observations exist.
func (w *welford) SampleStd() float64 {
	if w.n < 2 {
		return 0
	}
	v := w.m2 / float64(w.n-1)
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}
