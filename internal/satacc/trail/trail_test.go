package trail

import (
	"testing"

	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

func TestTrailAsyncDispatchesToOwningWatcher(t *testing.T) {
	roundOutBase, roundOutFar := sim.NewPorts[*satacc.SingleRoundTask](2)
	w0Base, w0Far := sim.NewPorts[satacc.WatcherTask](2)
	w1Base, w1Far := sim.NewPorts[satacc.WatcherTask](2)

	tr := NewTrail(roundOutFar, []sim.Port[satacc.WatcherTask]{w0Base, w1Base}, 2, ModeAsync)
	status := satacc.NewStatus(satacc.DefaultConfig())

	round := &satacc.SingleRoundTask{Assignments: []*satacc.WatcherTask{
		{WatcherID: 0, Level: 0}, // (0/2)%2 = 0 -> watcher 0
		{WatcherID: 2, Level: 0}, // (2/2)%2 = 1 -> watcher 1
	}}
	if ok, _ := roundOutBase.Send(round); !ok {
		t.Fatal("could not submit round")
	}

	for cycle := uint64(0); cycle < 5; cycle++ {
		tr.Update(status, cycle)
	}

	if _, ok := w0Far.Recv(); !ok {
		t.Fatal("expected watcher 0 to receive its task")
	}
	if _, ok := w1Far.Recv(); !ok {
		t.Fatal("expected watcher 1 to receive its task")
	}
}

func TestTrailLevelSyncGatesOnBarrier(t *testing.T) {
	roundOutBase, roundOutFar := sim.NewPorts[*satacc.SingleRoundTask](2)
	w0Base, w0Far := sim.NewPorts[satacc.WatcherTask](2)

	tr := NewTrail(roundOutFar, []sim.Port[satacc.WatcherTask]{w0Base}, 1, ModeLevelSync)
	status := satacc.NewStatus(satacc.DefaultConfig())

	round := &satacc.SingleRoundTask{Assignments: []*satacc.WatcherTask{
		{WatcherID: 0, Level: 0},
		{WatcherID: 0, Level: 1},
	}}
	roundOutBase.Send(round)

	var cycle uint64
	var gotLevel0 bool
	for ; cycle < 10 && !gotLevel0; cycle++ {
		tr.Update(status, cycle)
		if _, ok := w0Far.Recv(); ok {
			gotLevel0 = true
		}
	}
	if !gotLevel0 {
		t.Fatal("expected the level-0 task to dispatch (barrier starts clear)")
	}

	// Barrier is not yet clear for level 1: level 0 added 1 remaining
	// credit that nothing has finished yet.
	for i := 0; i < 5; i++ {
		tr.Update(status, cycle)
		cycle++
		if _, ok := w0Far.Recv(); ok {
			t.Fatal("level-1 task should not dispatch before level 0's barrier clears")
		}
	}

	status.IncrLevelFinished()
	var gotLevel1 bool
	for i := 0; i < 10 && !gotLevel1; i++ {
		tr.Update(status, cycle)
		cycle++
		if _, ok := w0Far.Recv(); ok {
			gotLevel1 = true
		}
	}
	if !gotLevel1 {
		t.Fatal("expected the level-1 task to dispatch once the barrier cleared")
	}
}
