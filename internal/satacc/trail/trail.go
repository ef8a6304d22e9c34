// Package trail implements the decision-round dispatcher and the
// top-level simulator assembly, grounded on
// original_source/rusttools/src/satacc/{trail,simulator}.rs.
package trail

import (
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

// Mode selects the Trail's scheduling policy, per SPEC_FULL.md §4.10.
type Mode int

const (
	ModeAsync Mode = iota
	ModeLevelSync
)

// Trail owns one SingleRoundTask at a time and dispatches its WatcherTasks
// to the owning tiles, either greedily (ModeAsync) or gated on a
// per-level completion barrier (ModeLevelSync). Grounded on
// satacc/trail.rs::Trail, generalized with the level-sync policy.
type Trail struct {
	taskIn        sim.InPort[*satacc.SingleRoundTask]
	watcherOut    []sim.Port[satacc.WatcherTask]
	totalWatcher  int
	mode          Mode
	dispatchedAny bool

	current *satacc.SingleRoundTask
	pending *satacc.WatcherTask // popped but not yet dispatched (level-sync mismatch or send refusal)
}

func NewTrail(taskIn sim.InPort[*satacc.SingleRoundTask], watcherOut []sim.Port[satacc.WatcherTask], totalWatcher int, mode Mode) *Trail {
	return &Trail{taskIn: taskIn, watcherOut: watcherOut, totalWatcher: totalWatcher, mode: mode}
}

// SetMode switches the scheduling policy. Per Open Question #2, switching
// after at least one round has already been dispatched is surprising
// (mid-run reordering semantics) and is logged rather than refused.
func (t *Trail) SetMode(mode Mode) {
	if t.dispatchedAny && mode != t.mode {
		nlog.Warningln("trail: switching dispatch mode mid-run")
	}
	t.mode = mode
}

func (t *Trail) dispatch(status *satacc.Status, task *satacc.WatcherTask) (sent, updated bool) {
	id := task.GetWatcherPEID(t.totalWatcher)
	ok, _ := t.watcherOut[id].Send(*task)
	if !ok {
		return false, false
	}
	t.dispatchedAny = true
	if t.mode == ModeLevelSync {
		status.AddLevelRemaining(task.GetTotalLevelTasks())
	}
	return true, true
}

func (t *Trail) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	busy = t.current != nil || t.pending != nil

	if t.pending == nil && t.current != nil {
		t.pending = t.current.PopNextTask()
		if t.pending == nil {
			t.current = nil
		}
	}

	if t.pending != nil {
		switch t.mode {
		case ModeAsync:
			if sent, upd := t.dispatch(status, t.pending); sent {
				busy, updated = true, upd
				t.pending = nil
			}
		case ModeLevelSync:
			level := t.pending.Level
			if level != status.CurrentLevel() {
				if status.LevelBarrierClear() {
					nlog.Debugln("trail advancing level to", level)
					status.AdvanceLevel(level)
				}
				// barrier not clear: hold pending, report busy-without-update
			} else {
				if sent, upd := t.dispatch(status, t.pending); sent {
					busy, updated = true, upd
					t.pending = nil
				}
			}
		}
	}

	if t.current == nil && t.pending == nil {
		if round, ok := t.taskIn.Recv(); ok {
			t.current = round
			busy, updated = true, true
		}
	}
	return busy, updated
}
