// Package app owns the per-run state of the monitor: the latest snapshot,
// the metric history, and the user's current view settings. All methods run
// on the control thread; the sampler goroutine hands off completed
// snapshots through a channel and never touches this state afterward.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	vErrors "github.com/vitals-sh/vitals/internal/errors"
	"github.com/vitals-sh/vitals/internal/history"
	"github.com/vitals-sh/vitals/internal/kill"
	"github.com/vitals-sh/vitals/internal/logger"
	"github.com/vitals-sh/vitals/internal/metrics"
	"github.com/vitals-sh/vitals/internal/procview"
	"github.com/vitals-sh/vitals/internal/query"
	"github.com/vitals-sh/vitals/internal/scale"
)

// ViewMode selects how the process table is shaped.
type ViewMode int

const (
	ModeFlat ViewMode = iota
	ModeTree
	ModeGrouped
)

// Metric key naming. Per-core, per-disk, and per-sensor series derive from
// these prefixes.
const (
	MetricCPUAvg  = "cpu.avg"
	MetricMemUsed = "mem.used"
	MetricMemSwap = "mem.swap"
	MetricNetRx   = "net.rx"
	MetricNetTx   = "net.tx"
)

// MetricCPUCore names the series for one core.
func MetricCPUCore(core int) string {
	return fmt.Sprintf("cpu.core%d", core)
}

// MetricDisk names a per-device throughput series, dir is "read" or "write".
func MetricDisk(device, dir string) string {
	return fmt.Sprintf("disk.%s.%s", device, dir)
}

// MetricTemp names a sensor series.
func MetricTemp(sensor string) string {
	return fmt.Sprintf("temp.%s", sensor)
}

// Config carries the session knobs resolved from flags and the config file.
type Config struct {
	Interval      time.Duration
	Retention     time.Duration
	Window        time.Duration
	CaseSensitive bool
	ShrinkAfter   int
}

// View is everything the presentation layer needs to draw one frame of the
// process table. Exactly one of Flat, Tree, Groups is populated per Mode.
type View struct {
	Mode     ViewMode
	Snapshot *metrics.Snapshot
	Flat     []metrics.ProcessRecord
	Tree     *procview.Tree
	Groups   []procview.Grouped
	// Stale is set when the sampler has missed a tick and the view is
	// rendered from an old snapshot.
	Stale bool
	// QueryErr holds the parse error of the last rejected filter, if any.
	// The previous valid filter stays in effect while it is set.
	QueryErr *query.ParseError
}

// Session is the single-threaded model behind the dashboard.
type Session struct {
	cfg  Config
	log  logger.Logger
	hist *history.Store
	coor *kill.Coordinator

	sampler   *metrics.Sampler
	snapshots chan *metrics.Snapshot
	done      <-chan struct{}
	cancel    context.CancelFunc

	latest *metrics.Snapshot
	prev   *metrics.Snapshot

	filterText string
	filter     query.Node
	queryErr   *query.ParseError
	sort       procview.SortState
	mode       ViewMode
	window     time.Duration
	frozen     bool

	scalers map[string]*scale.Scaler
	bounds  map[string]axis

	now func() time.Time
}

// axis is one fitted graph axis, cached until the underlying data changes.
type axis struct {
	lower, upper, step float64
}

// NewSession builds a session. Signaler may be nil for the OS default.
func NewSession(cfg Config, sig kill.Signaler, log logger.Logger) *Session {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = history.DefaultWindow
	}
	if cfg.Window <= 0 || cfg.Window > cfg.Retention {
		cfg.Window = cfg.Retention
	}

	return &Session{
		cfg:       cfg,
		log:       log,
		hist:      history.NewStore(cfg.Retention, cfg.Interval, log),
		coor:      kill.NewCoordinator(sig, log),
		sampler:   metrics.NewSampler(log),
		snapshots: make(chan *metrics.Snapshot, 1),
		sort:      procview.DefaultSort,
		window:    cfg.Window,
		scalers:   make(map[string]*scale.Scaler),
		bounds:    make(map[string]axis),
		now:       time.Now,
	}
}

// Start launches the sampler goroutine. The session takes ownership of
// stopping it via Close.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = s.sampler.Run(ctx, s.cfg.Interval, s.snapshots)
	s.log.Debug("session: sampler started, interval %s", s.cfg.Interval)
}

// Close stops the sampler and waits for it with a bounded timeout, so a
// stuck collection can never wedge shutdown.
func (s *Session) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-time.After(2 * time.Second):
		return vErrors.New(vErrors.ErrInternal,
			"sampler did not stop within 2s",
			"This is a bug in vitals; please report it")
	}
}

// Advance drains any pending snapshots without blocking, keeps the newest,
// and folds it into history. It returns true when the model changed. While
// frozen the channel is left alone; the sampler's own drop-oldest send
// keeps it from backing up.
func (s *Session) Advance() bool {
	if s.frozen {
		return false
	}
	updated := false
	for {
		select {
		case snap := <-s.snapshots:
			s.ingest(snap)
			updated = true
		default:
			return updated
		}
	}
}

// ingest records one snapshot's derived series. Gauges store native units,
// cumulative counters store per-second rates against the previous snapshot.
func (s *Session) ingest(snap *metrics.Snapshot) {
	if pid, ok := snap.ValidatePIDs(); !ok {
		s.log.Error("%v", vErrors.Internalf("duplicate pid %d in snapshot", pid))
	}

	s.prev, s.latest = s.latest, snap
	s.invalidateBounds()
	t := snap.Timestamp

	s.hist.Append(MetricCPUAvg, t, snap.CPUAvg.Percent)
	for _, cpu := range snap.CPUs {
		s.hist.Append(MetricCPUCore(cpu.Core), t, cpu.Percent)
	}

	if snap.Memory.Total > 0 {
		s.hist.Append(MetricMemUsed, t, percent(snap.Memory.Used, snap.Memory.Total))
	}
	if snap.Memory.SwapTotal > 0 {
		s.hist.Append(MetricMemSwap, t, percent(snap.Memory.SwapUsed, snap.Memory.SwapTotal))
	}

	if s.prev != nil {
		elapsed := t.Sub(s.prev.Timestamp).Seconds()
		s.hist.Append(MetricNetRx, t, scale.Rate(s.prev.Network.RxBytesTotal, snap.Network.RxBytesTotal, elapsed))
		s.hist.Append(MetricNetTx, t, scale.Rate(s.prev.Network.TxBytesTotal, snap.Network.TxBytesTotal, elapsed))
		for _, disk := range snap.Disks {
			prev, ok := findDisk(s.prev.Disks, disk.Name)
			if !ok {
				continue
			}
			s.hist.Append(MetricDisk(disk.Name, "read"), t, scale.Rate(prev.ReadBytesTotal, disk.ReadBytesTotal, elapsed))
			s.hist.Append(MetricDisk(disk.Name, "write"), t, scale.Rate(prev.WriteBytesTotal, disk.WriteBytesTotal, elapsed))
		}
	}

	for _, temp := range snap.Temps {
		s.hist.Append(MetricTemp(temp.Sensor), t, temp.Celsius)
	}

	for _, warn := range snap.Warnings {
		s.log.Warn("collect: %s", warn)
	}
}

// CurrentView builds the frame's process table: filter, then shape, then
// sort. The whole rebuild is O(n log n) in process count.
func (s *Session) CurrentView() View {
	v := View{
		Mode:     s.mode,
		Snapshot: s.latest,
		Stale:    s.Stale(),
		QueryErr: s.queryErr,
	}
	if s.latest == nil {
		return v
	}

	switch s.mode {
	case ModeTree:
		tree := procview.BuildTree(s.latest).Filter(s.filter)
		procview.SortTree(tree, s.sort)
		v.Tree = tree
	case ModeGrouped:
		groups := procview.Group(procview.FilterRecords(s.latest.Processes, s.filter))
		procview.SortGrouped(groups, s.sort)
		v.Groups = groups
	default:
		flat := procview.FilterRecords(s.latest.Processes, s.filter)
		if s.filter != nil {
			// FilterRecords returned a fresh slice; an empty filter aliases
			// the snapshot, which the sort must not reorder.
			v.Flat = flat
		} else {
			v.Flat = append([]metrics.ProcessRecord(nil), flat...)
		}
		procview.SortFlat(v.Flat, s.sort)
	}
	return v
}

// Stale reports whether the newest snapshot is older than two collection
// intervals, meaning at least one tick was missed.
func (s *Session) Stale() bool {
	if s.latest == nil {
		return false
	}
	return s.now().Sub(s.latest.Timestamp) > 2*s.cfg.Interval
}

// HistorySlice returns the visible window of one metric, oldest first,
// anchored at the newest sample.
func (s *Session) HistorySlice(metric string) []float64 {
	to := s.historyNow()
	return s.hist.Values(metric, to.Add(-s.window), to)
}

// GraphBounds returns the axis for one metric over the visible window. Each
// metric keeps its own scaler so hysteresis state survives across snapshots;
// the fitted axis is cached per snapshot so re-renders of the same data
// (key presses, resizes) never advance the shrink countdown.
func (s *Session) GraphBounds(metric string) (lower, upper, step float64) {
	if a, ok := s.bounds[metric]; ok {
		return a.lower, a.upper, a.step
	}
	sc, ok := s.scalers[metric]
	if !ok {
		sc = scale.NewScalerWith(scalerKind(metric), 0, s.cfg.ShrinkAfter)
		s.scalers[metric] = sc
	}
	lower, upper, step = sc.Fit(s.HistorySlice(metric))
	s.bounds[metric] = axis{lower, upper, step}
	return lower, upper, step
}

// invalidateBounds drops cached axes after anything that changes the visible
// data behind them.
func (s *Session) invalidateBounds() {
	for k := range s.bounds {
		delete(s.bounds, k)
	}
}

// SubmitKill resolves the selection against the live process state at call
// time and delivers the signals. Group membership is re-read here, never
// taken from an earlier tick's view.
func (s *Session) SubmitKill(sel kill.Selection, force bool) (kill.Report, error) {
	if s.latest == nil {
		return kill.Report{}, vErrors.New(vErrors.ErrKill,
			"no process data collected yet",
			"Wait for the first sample to arrive")
	}
	groups := procview.Group(s.latest.Processes)
	return s.coor.Kill(sel, groups, force)
}

// SetQuery parses and installs a new filter. A malformed expression leaves
// the previous filter in effect and is surfaced through the view, never
// aborting the session.
func (s *Session) SetQuery(text string) error {
	node, err := query.ParseWith(text, query.Options{CaseSensitive: s.cfg.CaseSensitive})
	if err != nil {
		s.queryErr = err.(*query.ParseError)
		s.log.Debug("session: query rejected: %v", err)
		return err
	}
	s.filterText = text
	s.filter = node
	s.queryErr = nil
	return nil
}

// Query returns the last accepted filter text.
func (s *Session) Query() string {
	return s.filterText
}

// SetSort installs a new ordering. Selecting the current column flips the
// direction, matching the usual table interaction.
func (s *Session) SetSort(col procview.Column) {
	if s.sort.Column == col {
		s.sort.Descending = !s.sort.Descending
		return
	}
	s.sort = procview.SortState{Column: col, Descending: defaultDescending(col)}
}

// Sort returns the current ordering.
func (s *Session) Sort() procview.SortState {
	return s.sort
}

// SetMode switches the table shape.
func (s *Session) SetMode(mode ViewMode) {
	s.mode = mode
}

// Mode returns the current table shape.
func (s *Session) Mode() ViewMode {
	return s.mode
}

// SetWindow adjusts the visible graph span, clamped to what the history
// store retains. Stored history is never discarded by a window change.
func (s *Session) SetWindow(w time.Duration) {
	const minWindow = 15 * time.Second
	if w < minWindow {
		w = minWindow
	}
	if w > s.cfg.Retention {
		w = s.cfg.Retention
	}
	if w != s.window {
		s.window = w
		s.invalidateBounds()
	}
}

// Window returns the visible graph span.
func (s *Session) Window() time.Duration {
	return s.window
}

// ToggleFreeze pauses or resumes snapshot consumption. Frozen sessions keep
// rendering the last state; collection continues in the background.
func (s *Session) ToggleFreeze() bool {
	s.frozen = !s.frozen
	return s.frozen
}

// Frozen reports whether the session is paused.
func (s *Session) Frozen() bool {
	return s.frozen
}

// Latest returns the newest snapshot, which may be nil before the first
// sample lands.
func (s *Session) Latest() *metrics.Snapshot {
	return s.latest
}

// historyNow anchors window math on the newest sample rather than the wall
// clock, so a frozen or stale view still shows a full window.
func (s *Session) historyNow() time.Time {
	if s.latest != nil {
		return s.latest.Timestamp
	}
	return s.now()
}

// scalerKind picks the axis ladder for a metric family.
func scalerKind(metric string) scale.Kind {
	switch {
	case strings.HasPrefix(metric, "cpu.") || strings.HasPrefix(metric, "mem."):
		return scale.KindPercent
	case strings.HasPrefix(metric, "net.") || strings.HasPrefix(metric, "disk."):
		return scale.KindBytes
	default:
		return scale.KindGeneric
	}
}

// defaultDescending picks the natural first direction for a column: usage
// columns start high-to-low, identity columns low-to-high.
func defaultDescending(col procview.Column) bool {
	switch col {
	case procview.ColPID, procview.ColName, procview.ColUser, procview.ColState:
		return false
	}
	return true
}

func percent(part, total int64) float64 {
	return float64(part) / float64(total) * 100
}

func findDisk(disks []metrics.DiskReading, name string) (metrics.DiskReading, bool) {
	for _, d := range disks {
		if d.Name == name {
			return d, true
		}
	}
	return metrics.DiskReading{}, false
}
