// Package kill resolves a user's process selection into target pids and
// issues termination requests. Resolution always reads the live grouped
// state at call time, since group membership can change between ticks.
package kill

import (
	"errors"
	"fmt"

	vErrors "github.com/vitals-sh/vitals/internal/errors"
	"github.com/vitals-sh/vitals/internal/logger"
	"github.com/vitals-sh/vitals/internal/procview"
)

// Signaler delivers a termination signal to one pid. The default
// implementation sends SIGTERM, or SIGKILL when forced.
type Signaler interface {
	Signal(pid int, force bool) error
}

// Selection is what the user picked in the process table: a single pid, or
// a grouped row identified by name.
type Selection struct {
	PID       int
	GroupName string
}

// Grouped reports whether the selection targets a whole name group.
func (s Selection) Grouped() bool {
	return s.GroupName != ""
}

// Report is the outcome of one termination request batch.
type Report struct {
	Succeeded []int
	Failed    map[int]string
}

// AllSucceeded reports whether every target accepted the signal.
func (r Report) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// Coordinator turns selections into signal deliveries.
type Coordinator struct {
	signaler Signaler
	log      logger.Logger
}

// NewCoordinator builds a coordinator around a signaler. A nil signaler
// gets the OS default.
func NewCoordinator(sig Signaler, log logger.Logger) *Coordinator {
	if sig == nil {
		sig = defaultSignaler()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Coordinator{signaler: sig, log: log}
}

// Resolve expands a selection into concrete target pids against the live
// grouped state. A grouped selection takes every member pid the group holds
// right now, not a list cached from an earlier tick. The synthetic tree
// root is never a valid target.
func (c *Coordinator) Resolve(sel Selection, groups []procview.Grouped) ([]int, error) {
	if sel.Grouped() {
		for i := range groups {
			if groups[i].Name == sel.GroupName {
				targets := make([]int, len(groups[i].MemberPIDs))
				copy(targets, groups[i].MemberPIDs)
				return targets, nil
			}
		}
		return nil, vErrors.New(vErrors.ErrKill,
			fmt.Sprintf("no running processes named %q", sel.GroupName),
			"The group may have exited since the last refresh")
	}

	if sel.PID <= 0 {
		return nil, vErrors.New(vErrors.ErrKill,
			fmt.Sprintf("pid %d is not a killable process", sel.PID),
			"Select a real process row and try again")
	}
	return []int{sel.PID}, nil
}

// Execute signals every target, continuing past individual failures so one
// dead or protected pid never blocks the rest of the batch.
func (c *Coordinator) Execute(targets []int, force bool) Report {
	report := Report{Failed: make(map[int]string)}
	for _, pid := range targets {
		if err := c.signaler.Signal(pid, force); err != nil {
			reason := failureReason(err)
			report.Failed[pid] = reason
			c.log.Warn("kill: pid %d: %s", pid, reason)
			continue
		}
		report.Succeeded = append(report.Succeeded, pid)
	}
	c.log.Debug("kill: %d succeeded, %d failed", len(report.Succeeded), len(report.Failed))
	return report
}

// Kill resolves and executes in one step.
func (c *Coordinator) Kill(sel Selection, groups []procview.Grouped, force bool) (Report, error) {
	targets, err := c.Resolve(sel, groups)
	if err != nil {
		return Report{}, err
	}
	return c.Execute(targets, force), nil
}

// failureReason maps signal errors onto short, user-facing reasons.
func failureReason(err error) string {
	switch {
	case errors.Is(err, errPermission):
		return "permission denied"
	case errors.Is(err, errNoProcess):
		return "no such process"
	default:
		return err.Error()
	}
}
