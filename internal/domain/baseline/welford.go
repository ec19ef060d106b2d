package baseline

import "math"

// welford is a single-pass mean/variance accumulator. No raw sample history
// is retained; sampleCount only ever grows.
type welford struct {
	count int64
	mean  float64
	m2    float64
}

func (w *welford) add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (x - w.mean)
}

// variance returns the sample variance, zero until two samples exist.
func (w *welford) variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

func (w *welford) stdDev() float64 {
	return math.Sqrt(w.variance())
}
