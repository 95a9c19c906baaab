// Package scale computes display axis bounds for metric graphs. Bounds snap
// to "nice" ladder rungs and resist flicker when a series oscillates around
// a rung boundary.
package scale

import (
	"math"
)

// Kind selects the ladder a scaler snaps to.
type Kind int

const (
	// KindGeneric uses a 1-2-5 decimal ladder (1, 2, 5, 10, 20, 50, ...).
	KindGeneric Kind = iota
	// KindBytes uses a 1-2-5 ladder within each power of 1024, so rungs land
	// on 1 KiB, 2 KiB, 5 KiB, ... 1 MiB, 2 MiB and so on.
	KindBytes
	// KindPercent pins bounds to 0..100 regardless of observed values.
	KindPercent
)

const (
	// defaultHeadroom keeps the peak off the axis edge.
	defaultHeadroom = 1.05
	// defaultShrinkAfter is how many consecutive fits the observed max must
	// stay below the next-smaller rung before the bound shrinks.
	defaultShrinkAfter = 3
	// minRung is the smallest bound ever produced, so an all-zero series
	// still renders with a sane axis.
	minRung = 1.0
)

// Scaler tracks the current axis bound for one metric series. It is not
// safe for concurrent use; each graph owns one.
type Scaler struct {
	kind        Kind
	headroom    float64
	shrinkAfter int

	upper      float64
	belowCount int
}

// NewScaler returns a scaler with the standard headroom and hysteresis.
func NewScaler(kind Kind) *Scaler {
	return &Scaler{
		kind:        kind,
		headroom:    defaultHeadroom,
		shrinkAfter: defaultShrinkAfter,
	}
}

// NewScalerWith overrides headroom and the shrink hysteresis count.
// Non-positive arguments fall back to the defaults.
func NewScalerWith(kind Kind, headroom float64, shrinkAfter int) *Scaler {
	s := NewScaler(kind)
	if headroom > 0 {
		s.headroom = headroom
	}
	if shrinkAfter > 0 {
		s.shrinkAfter = shrinkAfter
	}
	return s
}

// Fit inspects the visible window of a series and returns the axis bounds
// and label step to render it with. The lower bound is always 0. Growth is
// immediate when the peak exceeds the current bound; shrinking waits until
// the peak has stayed below the next-smaller rung for the hysteresis count,
// so an axis does not flicker when usage hovers near a rung boundary.
func (s *Scaler) Fit(values []float64) (lower, upper, step float64) {
	if s.kind == KindPercent {
		return 0, 100, 25
	}

	max := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > max {
			max = v
		}
	}

	needed := s.rungFor(max * s.headroom)

	switch {
	case s.upper == 0 || needed > s.upper:
		s.upper = needed
		s.belowCount = 0
	case needed < s.upper:
		s.belowCount++
		if s.belowCount >= s.shrinkAfter {
			s.upper = needed
			s.belowCount = 0
		}
	default:
		s.belowCount = 0
	}

	return 0, s.upper, s.upper / 4
}

// Upper returns the current bound without refitting.
func (s *Scaler) Upper() float64 {
	if s.kind == KindPercent {
		return 100
	}
	return s.upper
}

// rungFor returns the smallest ladder rung >= v.
func (s *Scaler) rungFor(v float64) float64 {
	if v <= minRung {
		return minRung
	}
	if s.kind == KindBytes {
		return byteRung(v)
	}
	return genericRung(v)
}

// genericRung climbs the 1-2-5 decimal ladder.
func genericRung(v float64) float64 {
	exp := math.Floor(math.Log10(v))
	base := math.Pow(10, exp)
	for _, m := range []float64{1, 2, 5, 10} {
		if m*base >= v {
			return m * base
		}
	}
	return 10 * base
}

// byteRung climbs a 1-2-5 ladder within each power of 1024, so bounds land
// on familiar byte magnitudes.
func byteRung(v float64) float64 {
	base := 1.0
	for v > 1024*base {
		base *= 1024
	}
	for _, m := range []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1024} {
		if m*base >= v {
			return m * base
		}
	}
	return 1024 * base
}

// Rate converts two cumulative counter totals into a per-second rate,
// clamped to zero so counter resets never produce negative throughput.
func Rate(prevTotal, curTotal int64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 || curTotal < prevTotal {
		return 0
	}
	return float64(curTotal-prevTotal) / elapsedSeconds
}
