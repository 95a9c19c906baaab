// Package history provides bounded time-series storage for telemetry
// metrics. Each metric holds an ordered sequence of (timestamp, value)
// points retained for a configured window; memory is fixed at construction
// and never grows with uptime.
package history

import (
	"time"

	"github.com/vitals-sh/vitals/internal/logger"
)

// DefaultWindow is the retention span used when none is configured.
const DefaultWindow = 10 * time.Minute

// Point is one sample of a metric series.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Store holds bounded history for any number of named metric series.
// It is owned by the control thread; it is not safe for concurrent use.
type Store struct {
	window   time.Duration
	capacity int
	log      logger.Logger
	series   map[string]*series
}

// series is a fixed-size ring of points in strictly increasing timestamp
// order. head is the next write position; the oldest retained point sits at
// (head - count) mod capacity.
type series struct {
	points []Point
	head   int
	count  int
}

// NewStore creates a store retaining window's worth of samples taken every
// interval. Capacity per series is window/interval rounded up, so a series
// never retains more points than one full window holds.
func NewStore(window, interval time.Duration, log logger.Logger) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logger.Noop()
	}

	capacity := int((window + interval - 1) / interval)
	if capacity < 1 {
		capacity = 1
	}

	return &Store{
		window:   window,
		capacity: capacity,
		log:      log,
		series:   make(map[string]*series),
	}
}

// Window returns the configured retention span.
func (s *Store) Window() time.Duration {
	return s.window
}

// Capacity returns the per-series point capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// Append records one sample. Timestamps must be strictly increasing per
// metric; an out-of-order sample is rejected and logged rather than
// corrupting the ordering. Appending evicts points that fell out of the
// retention window, checking only the ends of the ring, never scanning it.
func (s *Store) Append(metric string, t time.Time, v float64) bool {
	ser, ok := s.series[metric]
	if !ok {
		ser = &series{points: make([]Point, s.capacity)}
		s.series[metric] = ser
	}

	if ser.count > 0 {
		newest := ser.at(ser.count - 1)
		if !t.After(newest.Timestamp) {
			s.log.Warn("history: out-of-order sample for %s dropped (%s <= %s)",
				metric, t.Format(time.RFC3339Nano), newest.Timestamp.Format(time.RFC3339Nano))
			return false
		}
	}

	// Evict from the front anything older than the window ending at t.
	cutoff := t.Add(-s.window)
	for ser.count > 0 && ser.at(0).Timestamp.Before(cutoff) {
		ser.popFront()
	}

	ser.points[ser.head] = Point{Timestamp: t, Value: v}
	ser.head = (ser.head + 1) % len(ser.points)
	if ser.count < len(ser.points) {
		ser.count++
	}
	return true
}

// Len returns the number of retained points for a metric.
func (s *Store) Len(metric string) int {
	if ser, ok := s.series[metric]; ok {
		return ser.count
	}
	return 0
}

// Metrics returns the names of all series that have ever been appended to.
func (s *Store) Metrics() []string {
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names
}

// Latest returns the newest retained point for a metric.
func (s *Store) Latest(metric string) (Point, bool) {
	ser, ok := s.series[metric]
	if !ok || ser.count == 0 {
		return Point{}, false
	}
	return ser.at(ser.count - 1), true
}

// Range returns a lazy, restartable cursor over points with
// from <= timestamp <= to. An unknown metric or a window that predates all
// retained data yields an empty cursor, never an error. The cursor is valid
// until the next Append on the same metric.
func (s *Store) Range(metric string, from, to time.Time) *Cursor {
	ser, ok := s.series[metric]
	if !ok {
		return &Cursor{}
	}

	// Binary search the ring for the first point >= from.
	lo, hi := 0, ser.count
	for lo < hi {
		mid := (lo + hi) / 2
		if ser.at(mid).Timestamp.Before(from) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return &Cursor{ser: ser, start: lo, to: to, idx: lo}
}

// Slice materializes a Range into a []Point. Convenient for graph code
// that hands the whole visible window to the renderer anyway.
func (s *Store) Slice(metric string, from, to time.Time) []Point {
	cur := s.Range(metric, from, to)
	var out []Point
	for {
		p, ok := cur.Next()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// Values returns just the values of a Range, oldest first.
func (s *Store) Values(metric string, from, to time.Time) []float64 {
	cur := s.Range(metric, from, to)
	var out []float64
	for {
		p, ok := cur.Next()
		if !ok {
			break
		}
		out = append(out, p.Value)
	}
	return out
}

// Cursor iterates over a time range of one series, oldest first.
type Cursor struct {
	ser   *series
	start int
	to    time.Time
	idx   int
}

// Next returns the next point, or ok=false when the range is exhausted.
func (c *Cursor) Next() (Point, bool) {
	if c.ser == nil || c.idx >= c.ser.count {
		return Point{}, false
	}
	p := c.ser.at(c.idx)
	if p.Timestamp.After(c.to) {
		return Point{}, false
	}
	c.idx++
	return p, true
}

// Reset rewinds the cursor to the start of its range.
func (c *Cursor) Reset() {
	c.idx = c.start
}

// at returns the i-th retained point, 0 being the oldest.
func (ser *series) at(i int) Point {
	pos := (ser.head - ser.count + i + len(ser.points)) % len(ser.points)
	return ser.points[pos]
}

// popFront discards the oldest retained point.
func (ser *series) popFront() {
	ser.count--
}
