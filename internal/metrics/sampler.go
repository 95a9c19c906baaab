package metrics

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vitals-sh/vitals/internal/errors"
	"github.com/vitals-sh/vitals/internal/logger"
)

// clockTicksPerSecond is the kernel USER_HZ value used for /proc/<pid>/stat
// time fields. Fixed at 100 on every mainstream Linux architecture.
const clockTicksPerSecond = 100

// cpuJiffies stores one /proc/stat reading for delta calculation.
type cpuJiffies struct {
	total int64
	idle  int64
}

// procJiffies stores one per-process CPU time reading for delta calculation.
type procJiffies struct {
	active int64 // utime + stime, in clock ticks
}

// Sampler reads host telemetry from procfs and sysfs and assembles complete
// Snapshots. File access goes through injectable functions so tests can feed
// fixture text without a real /proc.
type Sampler struct {
	log logger.Logger

	// prev readings for rate-free delta computation between polls
	prevCPU     map[int]cpuJiffies // keyed by core, -1 = aggregate
	prevProc    map[int]procJiffies
	bootTime    time.Time
	userCache   map[string]string // uid -> username
	firstSample bool

	// Overridable accessors for testing.
	readFile  func(path string) (string, error)
	listDir   func(path string) ([]string, error)
	listPIDs  func() ([]int, error)
	lookupUID func(uid string) (string, error)
}

// NewSampler creates a Sampler that reads the real /proc and /sys trees.
// If log is nil, logging is discarded.
func NewSampler(log logger.Logger) *Sampler {
	if log == nil {
		log = logger.Noop()
	}
	return &Sampler{
		log:         log,
		prevCPU:     make(map[int]cpuJiffies),
		prevProc:    make(map[int]procJiffies),
		userCache:   make(map[string]string),
		firstSample: true,
		readFile: func(path string) (string, error) {
			b, err := os.ReadFile(path)
			return string(b), err
		},
		listDir: func(path string) ([]string, error) {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		},
		listPIDs: listProcPIDs,
		lookupUID: func(uid string) (string, error) {
			u, err := user.LookupId(uid)
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
	}
}

// listProcPIDs enumerates numeric entries of /proc.
func listProcPIDs() ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Poll assembles one complete Snapshot. Partial failures (a vanished pid,
// an unreadable sensor) degrade that one series and are recorded as
// warnings; only a total failure of the core sources returns an error.
func (s *Sampler) Poll(ctx context.Context) (*Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	snap := &Snapshot{Timestamp: time.Now()}

	stat, err := s.readFile("/proc/stat")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCollect,
			"Cannot read /proc/stat",
			"vitals requires a mounted procfs")
	}
	totalDelta := s.parseCPU(stat, snap)

	if meminfo, err := s.readFile("/proc/meminfo"); err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("meminfo: %v", err))
	} else if mem, err := parseMeminfo(meminfo); err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("meminfo: %v", err))
	} else {
		snap.Memory = mem
	}

	if netdev, err := s.readFile("/proc/net/dev"); err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("net: %v", err))
	} else {
		snap.Network = parseNetDev(netdev)
	}

	if diskstats, err := s.readFile("/proc/diskstats"); err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("disk: %v", err))
	} else {
		snap.Disks = parseDiskstats(diskstats)
	}

	s.collectTemps(snap)
	s.collectProcesses(snap, totalDelta)

	if s.firstSample {
		s.firstSample = false
	}

	if pid, ok := snap.ValidatePIDs(); !ok {
		// Sampler bug, not a user error. Surface it upward.
		return nil, errors.Internalf("duplicate pid %d in snapshot", pid)
	}

	for _, w := range snap.Warnings {
		s.log.Debug("partial collection: %s", w)
	}

	return snap, nil
}

// parseCPU parses /proc/stat into per-core readings plus the average, using
// the delta between this reading and the previous one. The first call seeds
// the counters and reports 0%. Returns the aggregate jiffies delta for
// per-process CPU normalization, and the boot time when present.
func (s *Sampler) parseCPU(procStat string, snap *Snapshot) int64 {
	var aggregateDelta int64

	for _, line := range strings.Split(procStat, "\n") {
		if strings.HasPrefix(line, "btime ") {
			fields := strings.Fields(line)
			if len(fields) == 2 {
				if sec, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
					s.bootTime = time.Unix(sec, 0)
				}
			}
			continue
		}
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		core := -1
		if len(fields[0]) > 3 {
			n, err := strconv.Atoi(fields[0][3:])
			if err != nil {
				continue
			}
			core = n
		}

		var total, idle int64
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				break
			}
			total += val
			// idle is field 4, iowait is field 5
			if i == 4 || i == 5 {
				idle += val
			}
		}

		prev, hasPrev := s.prevCPU[core]
		s.prevCPU[core] = cpuJiffies{total: total, idle: idle}

		var pct float64
		if hasPrev && total > prev.total {
			totalDelta := total - prev.total
			idleDelta := idle - prev.idle
			pct = float64(totalDelta-idleDelta) / float64(totalDelta) * 100
			if core == -1 {
				aggregateDelta = totalDelta
			}
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}

		reading := CPUReading{Core: core, Percent: pct}
		if core == -1 {
			snap.CPUAvg = reading
		} else {
			snap.CPUs = append(snap.CPUs, reading)
		}
	}

	sort.Slice(snap.CPUs, func(i, j int) bool { return snap.CPUs[i].Core < snap.CPUs[j].Core })
	return aggregateDelta
}

// parseMeminfo extracts memory and swap usage from /proc/meminfo text.
func parseMeminfo(text string) (MemoryReading, error) {
	var memTotal, memAvailable, swapTotal, swapFree int64
	found := 0

	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		val, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		bytes := val * 1024

		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			memTotal = bytes
			found++
		case "MemAvailable":
			memAvailable = bytes
			found++
		case "SwapTotal":
			swapTotal = bytes
			found++
		case "SwapFree":
			swapFree = bytes
			found++
		}
	}

	if found < 2 {
		return MemoryReading{}, fmt.Errorf("insufficient fields in /proc/meminfo")
	}

	return MemoryReading{
		Total:     memTotal,
		Used:      memTotal - memAvailable,
		SwapTotal: swapTotal,
		SwapUsed:  swapTotal - swapFree,
	}, nil
}

// parseNetDev sums cumulative rx/tx byte counters across non-loopback
// interfaces from /proc/net/dev text.
func parseNetDev(text string) NetworkReading {
	var net NetworkReading

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		// First two lines are headers.
		if i < 2 {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "lo" {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) < 16 {
			continue
		}
		rx, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		tx, err := strconv.ParseInt(fields[8], 10, 64)
		if err != nil {
			continue
		}
		net.RxBytesTotal += rx
		net.TxBytesTotal += tx
	}

	return net
}

// sectorSize is the unit of the sector counters in /proc/diskstats,
// fixed at 512 bytes independent of the device's real sector size.
const sectorSize = 512

// parseDiskstats extracts cumulative per-device I/O byte counters from
// /proc/diskstats, skipping partitions, loop and ram devices.
func parseDiskstats(text string) []DiskReading {
	var disks []DiskReading

	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		// major minor name reads ... sectors-read(6) ... writes ... sectors-written(10)
		if len(fields) < 14 {
			continue
		}
		name := fields[2]
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") {
			continue
		}
		// Skip partitions: a trailing digit on a name that also exists bare
		// (sda1 vs sda, nvme0n1p2 vs nvme0n1).
		if isPartitionOf(name, disks) {
			continue
		}

		sectorsRead, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			continue
		}
		sectorsWritten, err := strconv.ParseInt(fields[9], 10, 64)
		if err != nil {
			continue
		}

		disks = append(disks, DiskReading{
			Name:            name,
			ReadBytesTotal:  sectorsRead * sectorSize,
			WriteBytesTotal: sectorsWritten * sectorSize,
		})
	}

	return disks
}

// isPartitionOf reports whether name extends an already-seen device name
// (e.g. "sda1" after "sda", "nvme0n1p1" after "nvme0n1").
func isPartitionOf(name string, disks []DiskReading) bool {
	for _, d := range disks {
		if strings.HasPrefix(name, d.Name) && len(name) > len(d.Name) {
			return true
		}
	}
	return false
}

// collectTemps reads hwmon sensors. Any unreadable sensor degrades to a
// warning; a missing hwmon tree yields no temperature series at all.
func (s *Sampler) collectTemps(snap *Snapshot) {
	const hwmonRoot = "/sys/class/hwmon"

	entries, err := s.listDir(hwmonRoot)
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("temps: %v", err))
		return
	}

	for _, entry := range entries {
		base := filepath.Join(hwmonRoot, entry)

		name := entry
		if raw, err := s.readFile(filepath.Join(base, "name")); err == nil {
			name = strings.TrimSpace(raw)
		}

		for i := 1; ; i++ {
			raw, err := s.readFile(filepath.Join(base, fmt.Sprintf("temp%d_input", i)))
			if err != nil {
				break
			}
			milli, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				snap.Warnings = append(snap.Warnings, fmt.Sprintf("temps: %s/temp%d: %v", name, i, err))
				continue
			}

			sensor := name
			if label, err := s.readFile(filepath.Join(base, fmt.Sprintf("temp%d_label", i))); err == nil {
				sensor = name + " " + strings.TrimSpace(label)
			} else if i > 1 {
				sensor = fmt.Sprintf("%s #%d", name, i)
			}

			snap.Temps = append(snap.Temps, TemperatureReading{
				Sensor:  sensor,
				Celsius: float64(milli) / 1000.0,
			})
		}
	}
}

// collectProcesses walks /proc/<pid> entries. A pid that vanishes mid-walk
// is skipped silently; that is ordinary process churn, not a failure.
// totalDelta is the aggregate CPU jiffies delta for this tick, used to
// normalize per-process CPU time into a percentage.
func (s *Sampler) collectProcesses(snap *Snapshot, totalDelta int64) {
	pids, err := s.listPIDs()
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("processes: %v", err))
		return
	}

	seen := make(map[int]struct{}, len(pids))
	nCores := len(snap.CPUs)
	if nCores == 0 {
		nCores = 1
	}

	for _, pid := range pids {
		rec, active, ok := s.readProcess(pid)
		if !ok {
			continue
		}

		prev, hasPrev := s.prevProc[pid]
		s.prevProc[pid] = procJiffies{active: active}
		seen[pid] = struct{}{}

		if hasPrev && totalDelta > 0 && active > prev.active {
			// totalDelta aggregates all cores; scale so one busy core = 100%.
			rec.CPUPercent = float64(active-prev.active) / float64(totalDelta) * 100 * float64(nCores)
		}

		snap.Processes = append(snap.Processes, rec)
	}

	// Drop delta state for exited pids so reused pids don't inherit it.
	for pid := range s.prevProc {
		if _, live := seen[pid]; !live {
			delete(s.prevProc, pid)
		}
	}

	sort.Slice(snap.Processes, func(i, j int) bool {
		return snap.Processes[i].PID < snap.Processes[j].PID
	})
}

// readProcess reads one /proc/<pid> entry. Returns ok=false when the pid
// vanished between listing and reading.
func (s *Sampler) readProcess(pid int) (ProcessRecord, int64, bool) {
	base := fmt.Sprintf("/proc/%d", pid)

	stat, err := s.readFile(base + "/stat")
	if err != nil {
		return ProcessRecord{}, 0, false
	}
	rec, active, ok := s.parseProcStat(pid, stat)
	if !ok {
		return ProcessRecord{}, 0, false
	}

	if cmdline, err := s.readFile(base + "/cmdline"); err == nil {
		rec.Command = strings.TrimSpace(strings.ReplaceAll(cmdline, "\x00", " "))
	}
	if rec.Command == "" {
		rec.Command = "[" + rec.Name + "]"
	}

	if status, err := s.readFile(base + "/status"); err == nil {
		rec.User = s.userFromStatus(status)
	}

	// /proc/<pid>/io needs ptrace permission for foreign processes; treat
	// denial as zeros, not a warning, to avoid flooding every tick.
	if io, err := s.readFile(base + "/io"); err == nil {
		rec.ReadBytesTotal, rec.WriteBytesTotal = parseProcIO(io)
	}

	return rec, active, true
}

// parseProcStat parses /proc/<pid>/stat. The comm field may contain spaces
// and parentheses, so fields are located relative to the last ')'.
func (s *Sampler) parseProcStat(pid int, stat string) (ProcessRecord, int64, bool) {
	open := strings.IndexByte(stat, '(')
	closing := strings.LastIndexByte(stat, ')')
	if open < 0 || closing < 0 || closing < open {
		return ProcessRecord{}, 0, false
	}

	rec := ProcessRecord{PID: pid, Name: stat[open+1 : closing]}

	// Fields after comm, 0-indexed: 0=state 1=ppid ... 11=utime 12=stime
	// ... 19=starttime 21=vsize 22=rss(pages)
	rest := strings.Fields(stat[closing+1:])
	if len(rest) < 23 {
		return ProcessRecord{}, 0, false
	}

	rec.State = ParseProcState(rest[0][0])
	if ppid, err := strconv.Atoi(rest[1]); err == nil && ppid > 0 {
		rec.ParentPID = ppid
	}

	utime, _ := strconv.ParseInt(rest[11], 10, 64)
	stime, _ := strconv.ParseInt(rest[12], 10, 64)

	if startTicks, err := strconv.ParseInt(rest[19], 10, 64); err == nil && !s.bootTime.IsZero() {
		rec.StartTime = s.bootTime.Add(time.Duration(startTicks) * time.Second / clockTicksPerSecond)
	}

	if rssPages, err := strconv.ParseInt(rest[21], 10, 64); err == nil {
		rec.MemBytes = rssPages * int64(os.Getpagesize())
	}

	return rec, utime + stime, true
}

// userFromStatus resolves the real uid from /proc/<pid>/status to a
// username, caching lookups. Falls back to the numeric uid.
func (s *Sampler) userFromStatus(status string) string {
	for _, line := range strings.Split(status, "\n") {
		if !strings.HasPrefix(line, "Uid:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return ""
		}
		uid := fields[1]
		if name, ok := s.userCache[uid]; ok {
			return name
		}
		name, err := s.lookupUID(uid)
		if err != nil {
			name = uid
		}
		s.userCache[uid] = name
		return name
	}
	return ""
}

// parseProcIO extracts cumulative read_bytes/write_bytes from /proc/<pid>/io.
func parseProcIO(text string) (readBytes, writeBytes int64) {
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		val, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "read_bytes:":
			readBytes = val
		case "write_bytes:":
			writeBytes = val
		}
	}
	return readBytes, writeBytes
}
