package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelfordMeanAndVariance(t *testing.T) {
	var w welford
	for _, x := range []float64{90, 90, 100, 110, 110} {
		w.add(x)
	}

	assert.Equal(t, int64(5), w.count)
	assert.InDelta(t, 100.0, w.mean, 1e-9)
	assert.InDelta(t, 100.0, w.variance(), 1e-9) // m2=400, n-1=4
	assert.InDelta(t, 10.0, w.stdDev(), 1e-9)
}

func TestWelfordDegenerateCases(t *testing.T) {
	var w welford
	assert.Equal(t, 0.0, w.variance())

	w.add(42)
	assert.Equal(t, 42.0, w.mean)
	assert.Equal(t, 0.0, w.variance(), "single sample has no spread")

	// Identical samples keep variance at zero.
	w.add(42)
	w.add(42)
	assert.InDelta(t, 0.0, w.variance(), 1e-9)
	assert.InDelta(t, 0.0, w.stdDev(), 1e-9)
}

func TestWelfordCountOnlyGrows(t *testing.T) {
	var w welford
	for i := 0; i < 1000; i++ {
		w.add(float64(i % 7))
	}
	assert.Equal(t, int64(1000), w.count)
}
