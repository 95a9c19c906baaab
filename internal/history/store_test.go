package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitals-sh/vitals/internal/logger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fill(s *Store, metric string, n int, step time.Duration) {
	for i := 0; i < n; i++ {
		s.Append(metric, t0.Add(time.Duration(i)*step), float64(i))
	}
}

func TestAppendAndLatest(t *testing.T) {
	s := NewStore(time.Minute, time.Second, logger.Noop())

	assert.True(t, s.Append("cpu.avg", t0, 10))
	assert.True(t, s.Append("cpu.avg", t0.Add(time.Second), 20))

	assert.Equal(t, 2, s.Len("cpu.avg"))

	p, ok := s.Latest("cpu.avg")
	require.True(t, ok)
	assert.Equal(t, 20.0, p.Value)
	assert.Equal(t, t0.Add(time.Second), p.Timestamp)
}

func TestOutOfOrderRejected(t *testing.T) {
	log := logger.NewBufferLogger()
	s := NewStore(time.Minute, time.Second, log)

	require.True(t, s.Append("mem.used", t0, 1))
	assert.False(t, s.Append("mem.used", t0, 2), "equal timestamp must be rejected")
	assert.False(t, s.Append("mem.used", t0.Add(-time.Second), 3), "older timestamp must be rejected")

	assert.Equal(t, 1, s.Len("mem.used"))
	p, ok := s.Latest("mem.used")
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Value, "rejected samples must not overwrite retained data")

	assert.True(t, log.HasLevel("warn"), "rejections should be logged")
}

func TestCapacityNeverExceeded(t *testing.T) {
	s := NewStore(10*time.Second, time.Second, logger.Noop())
	require.Equal(t, 10, s.Capacity())

	fill(s, "net.rx", 1000, time.Second)

	assert.LessOrEqual(t, s.Len("net.rx"), s.Capacity())

	p, ok := s.Latest("net.rx")
	require.True(t, ok)
	assert.Equal(t, 999.0, p.Value)
}

func TestWindowEviction(t *testing.T) {
	s := NewStore(10*time.Second, time.Second, logger.Noop())
	fill(s, "cpu.avg", 5, time.Second)

	// A sample far in the future pushes everything else out of the window.
	require.True(t, s.Append("cpu.avg", t0.Add(time.Hour), 99))

	assert.Equal(t, 1, s.Len("cpu.avg"))
	p, _ := s.Latest("cpu.avg")
	assert.Equal(t, 99.0, p.Value)
}

func TestRangeSubset(t *testing.T) {
	s := NewStore(time.Minute, time.Second, logger.Noop())
	fill(s, "cpu.avg", 10, time.Second)

	got := s.Values("cpu.avg", t0.Add(3*time.Second), t0.Add(6*time.Second))
	assert.Equal(t, []float64{3, 4, 5, 6}, got)
}

func TestRangeUnknownMetric(t *testing.T) {
	s := NewStore(time.Minute, time.Second, logger.Noop())

	cur := s.Range("nope", t0, t0.Add(time.Hour))
	_, ok := cur.Next()
	assert.False(t, ok)

	assert.Empty(t, s.Values("nope", t0, t0.Add(time.Hour)))
}

func TestRangeBeforeRetainedData(t *testing.T) {
	s := NewStore(5*time.Second, time.Second, logger.Noop())
	fill(s, "cpu.avg", 100, time.Second)

	// Everything this range asks for has already been evicted.
	got := s.Values("cpu.avg", t0, t0.Add(3*time.Second))
	assert.Empty(t, got)
}

func TestCursorRestart(t *testing.T) {
	s := NewStore(time.Minute, time.Second, logger.Noop())
	fill(s, "cpu.avg", 5, time.Second)

	cur := s.Range("cpu.avg", t0.Add(time.Second), t0.Add(3*time.Second))

	var first []float64
	for {
		p, ok := cur.Next()
		if !ok {
			break
		}
		first = append(first, p.Value)
	}
	require.Equal(t, []float64{1, 2, 3}, first)

	cur.Reset()
	var second []float64
	for {
		p, ok := cur.Next()
		if !ok {
			break
		}
		second = append(second, p.Value)
	}
	assert.Equal(t, first, second)
}

func TestRangeAfterWraparound(t *testing.T) {
	s := NewStore(5*time.Second, time.Second, logger.Noop())
	require.Equal(t, 5, s.Capacity())

	fill(s, "cpu.avg", 20, time.Second)

	// Only the newest window survives; the ring has wrapped several times.
	got := s.Values("cpu.avg", t0, t0.Add(time.Hour))
	assert.Equal(t, []float64{15, 16, 17, 18, 19}, got)
}

func TestIndependentSeries(t *testing.T) {
	s := NewStore(time.Minute, time.Second, logger.Noop())
	fill(s, "net.rx", 3, time.Second)
	fill(s, "net.tx", 7, time.Second)

	assert.Equal(t, 3, s.Len("net.rx"))
	assert.Equal(t, 7, s.Len("net.tx"))
	assert.ElementsMatch(t, []string{"net.rx", "net.tx"}, s.Metrics())
}

func TestDefaultsApplied(t *testing.T) {
	s := NewStore(0, 0, nil)
	assert.Equal(t, DefaultWindow, s.Window())
	assert.True(t, s.Append("cpu.avg", t0, 1))
}
