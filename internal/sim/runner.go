package sim

import (
	"fmt"

	"github.com/shenjiangqiu/satacc/internal/debug"
	"github.com/shenjiangqiu/satacc/internal/nlog"
)

// LivelockHook lets the shared status react to a detected livelock (e.g.
// raise its own verbose flag) without the kernel knowing the status type's
// shape beyond this one method.
type LivelockHook interface {
	SetVerbose(bool)
}

// livelockDiagnosticTicks is the bounded window the scheduler runs after
// detecting busy-without-updated, per spec §4.1/§7.
const livelockDiagnosticTicks = 100

// ErrLivelock is returned by Run when a component reports busy without
// updated for the full diagnostic window.
type ErrLivelock struct {
	Cycle uint64
}

func (e *ErrLivelock) Error() string {
	return fmt.Sprintf("livelock detected at cycle %d: component busy but made no progress", e.Cycle)
}

// Runner drives a root component once per tick until quiescence or
// livelock, grounded on sim.rs's SimRunner.
type Runner[Status any] struct {
	root   Component[Status]
	status *Status
	cycle  uint64
}

func NewRunner[Status any](root Component[Status], status *Status) *Runner[Status] {
	return &Runner[Status]{root: root, status: status}
}

func (r *Runner[Status]) CurrentCycle() uint64 { return r.cycle }
func (r *Runner[Status]) Status() *Status      { return r.status }
func (r *Runner[Status]) Root() Component[Status] { return r.root }

// Run ticks the root component until it reports busy=false, or returns
// ErrLivelock if a busy-without-updated condition persists through the
// diagnostic window.
func (r *Runner[Status]) Run() error {
	for {
		startCycle := r.cycle
		busy, updated := r.root.Update(r.status, r.cycle)
		debug.Assert(r.cycle >= startCycle, "cycle counter must not regress within a tick")
		if !busy {
			return nil
		}
		if updated {
			r.cycle++
			continue
		}
		// busy && !updated: livelock candidate.
		if hook, ok := any(r.status).(LivelockHook); ok {
			hook.SetVerbose(true)
		}
		nlog.SetLevel(nlog.LevelDebug)
		nlog.Errorln("livelock candidate at cycle", r.cycle, "running diagnostic window")
		for i := 0; i < livelockDiagnosticTicks; i++ {
			r.cycle++
			busy, updated = r.root.Update(r.status, r.cycle)
			if !busy {
				return nil
			}
			if updated {
				// progress resumed; the cycle just consumed already produced
				// it, so advance past it before returning to the outer loop.
				r.cycle++
				break
			}
			if i == livelockDiagnosticTicks-1 {
				return &ErrLivelock{Cycle: r.cycle}
			}
		}
	}
}
