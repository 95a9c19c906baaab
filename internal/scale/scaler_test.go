package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	kib = 1024.0
	mib = 1024.0 * 1024.0
	gib = 1024.0 * 1024.0 * 1024.0
)

func TestGenericRung(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 1},
		{0.5, 1},
		{1, 1},
		{1.5, 2},
		{3, 5},
		{7, 10},
		{10, 10},
		{11, 20},
		{42, 50},
		{99, 100},
		{101, 200},
		{600, 1000},
		{4999, 5000},
	}

	s := NewScaler(KindGeneric)
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.rungFor(tt.in), "rungFor(%v)", tt.in)
	}
}

func TestByteRung(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{500, 500},
		{900, 1024},
		{1500, 2 * kib},
		{3 * kib, 5 * kib},
		{700 * kib, 1 * mib},
		{1.5 * mib, 2 * mib},
		{800 * mib, 1 * gib},
	}

	s := NewScaler(KindBytes)
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.rungFor(tt.in), "rungFor(%v)", tt.in)
	}
}

func TestFitStaysAtMetricScale(t *testing.T) {
	// A throughput series well under 1 MiB/s must get a KiB or MiB scale
	// bound, never a GiB-scale one fixed at startup.
	s := NewScaler(KindBytes)

	_, upper, _ := s.Fit([]float64{100 * kib, 300 * kib, 250 * kib})
	assert.LessOrEqual(t, upper, mib)
	assert.GreaterOrEqual(t, upper, 300*kib)
}

func TestFitGrowsImmediately(t *testing.T) {
	s := NewScaler(KindBytes)

	_, upper, _ := s.Fit([]float64{100 * kib})
	assert.Equal(t, 200*kib, upper, "105%% headroom over 100 KiB needs the 200 KiB rung")

	_, upper, _ = s.Fit([]float64{100 * kib, 3 * mib})
	assert.Equal(t, 5*mib, upper, "a spike must raise the bound on the same tick")
}

func TestFitShrinkHysteresis(t *testing.T) {
	s := NewScaler(KindBytes)

	s.Fit([]float64{3 * mib})
	assert.Equal(t, 5*mib, s.Upper())

	quiet := []float64{50 * kib}

	// The bound must hold for shrinkAfter-1 quiet ticks, then drop.
	_, upper, _ := s.Fit(quiet)
	assert.Equal(t, 5*mib, upper)
	_, upper, _ = s.Fit(quiet)
	assert.Equal(t, 5*mib, upper)
	_, upper, _ = s.Fit(quiet)
	assert.Equal(t, 100*kib, upper, "third quiet tick shrinks the bound")
}

func TestFitOscillationDoesNotFlicker(t *testing.T) {
	s := NewScaler(KindGeneric)

	s.Fit([]float64{900})
	assert.Equal(t, 1000.0, s.Upper())

	// Bouncing between a quiet value and one near the rung boundary must
	// not flicker the axis, since the quiet streak keeps restarting.
	for i := 0; i < 10; i++ {
		s.Fit([]float64{300})
		s.Fit([]float64{940})
	}
	assert.Equal(t, 1000.0, s.Upper())
}

func TestFitSpikeResetsShrinkCounter(t *testing.T) {
	s := NewScaler(KindGeneric)

	s.Fit([]float64{90}) // upper = 100
	s.Fit([]float64{10}) // below, 1
	s.Fit([]float64{10}) // below, 2
	s.Fit([]float64{90}) // back at scale, counter resets
	s.Fit([]float64{10}) // below, 1
	s.Fit([]float64{10}) // below, 2
	assert.Equal(t, 100.0, s.Upper(), "counter must restart after the series returns to scale")

	_, upper, _ := s.Fit([]float64{10})
	assert.Equal(t, 20.0, upper)
}

func TestFitIgnoresNaNAndInf(t *testing.T) {
	s := NewScaler(KindGeneric)

	_, upper, _ := s.Fit([]float64{math.NaN(), math.Inf(1), 30})
	assert.Equal(t, 50.0, upper)
}

func TestFitEmptySeries(t *testing.T) {
	s := NewScaler(KindBytes)

	lower, upper, step := s.Fit(nil)
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, 1.0, upper, "an empty series still gets a usable axis")
	assert.Equal(t, 0.25, step)
}

func TestFitPercentFixed(t *testing.T) {
	s := NewScaler(KindPercent)

	lower, upper, step := s.Fit([]float64{350})
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, 100.0, upper)
	assert.Equal(t, 25.0, step)
}

func TestRate(t *testing.T) {
	assert.Equal(t, 100.0, Rate(1000, 1200, 2))
	assert.Equal(t, 0.0, Rate(1000, 500, 2), "counter reset clamps to zero")
	assert.Equal(t, 0.0, Rate(0, 100, 0), "zero elapsed never divides")
}
