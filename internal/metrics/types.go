// Package metrics defines the snapshot data model for one collection tick
// and the Linux /proc sampler that produces it. A Snapshot is built in full
// by the sampler goroutine and handed to the control thread over a channel;
// after publication the sampler never touches it again.
package metrics

import "time"

// ProcState is the scheduling state of a process.
type ProcState int

const (
	StateUnknown ProcState = iota
	StateRunning
	StateSleeping
	StateStopped
	StateZombie
	StateIdle
)

// String returns the human-readable name for a ProcState.
func (s ProcState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	case StateZombie:
		return "zombie"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// ParseProcState maps a /proc/<pid>/stat state character to a ProcState.
func ParseProcState(c byte) ProcState {
	switch c {
	case 'R':
		return StateRunning
	case 'S', 'D':
		return StateSleeping
	case 'T', 't':
		return StateStopped
	case 'Z':
		return StateZombie
	case 'I':
		return StateIdle
	default:
		return StateUnknown
	}
}

// ProcessRecord holds per-process metrics for a single tick. Records are
// owned by the Snapshot that produced them and are never mutated afterwards;
// the next tick allocates fresh records.
type ProcessRecord struct {
	PID             int
	ParentPID       int // 0 when the parent is unknown
	Name            string
	Command         string
	User            string
	State           ProcState
	CPUPercent      float64
	MemBytes        int64
	ReadBytesTotal  int64 // cumulative
	WriteBytesTotal int64 // cumulative
	StartTime       time.Time
}

// CPUReading is the usage of one core (or the average) for a tick.
type CPUReading struct {
	Core    int // -1 for the average
	Percent float64
}

// MemoryReading holds memory usage for a tick, in bytes.
type MemoryReading struct {
	Total     int64
	Used      int64
	SwapTotal int64
	SwapUsed  int64
}

// NetworkReading holds cumulative network counters summed over
// non-loopback interfaces.
type NetworkReading struct {
	RxBytesTotal int64
	TxBytesTotal int64
}

// DiskReading holds cumulative I/O counters for one block device.
type DiskReading struct {
	Name            string
	ReadBytesTotal  int64
	WriteBytesTotal int64
}

// TemperatureReading is one sensor sample. Always collected in Celsius;
// unit conversion is a presentation concern.
type TemperatureReading struct {
	Sensor  string
	Celsius float64
}

// Snapshot is one complete telemetry sample across all tracked metrics.
// Counters are monotonically non-decreasing cumulative totals; rates are
// derived downstream, never stored here. PIDs are unique within a Snapshot.
type Snapshot struct {
	Timestamp time.Time

	Processes []ProcessRecord
	CPUs      []CPUReading // per core
	CPUAvg    CPUReading   // Core == -1
	Memory    MemoryReading
	Network   NetworkReading
	Disks     []DiskReading
	Temps     []TemperatureReading

	// Warnings records per-series partial failures (one unreadable sensor,
	// one vanished pid). A warning never fails the tick.
	Warnings []string
}

// FindProcess returns the record for pid, or nil if absent this tick.
func (s *Snapshot) FindProcess(pid int) *ProcessRecord {
	for i := range s.Processes {
		if s.Processes[i].PID == pid {
			return &s.Processes[i]
		}
	}
	return nil
}

// ValidatePIDs reports the first duplicated pid, if any. A duplicate is an
// invariant violation in the sampler, not a user error.
func (s *Snapshot) ValidatePIDs() (int, bool) {
	seen := make(map[int]struct{}, len(s.Processes))
	for i := range s.Processes {
		pid := s.Processes[i].PID
		if _, dup := seen[pid]; dup {
			return pid, false
		}
		seen[pid] = struct{}{}
	}
	return 0, true
}
