package pe

import (
	"testing"

	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

func TestWatcherNoClauseSubTaskCreditsLevelWithoutClauseDispatch(t *testing.T) {
	taskOutBase, taskOutFar := sim.NewPorts[satacc.WatcherTask](4)
	clauseOutBase, clauseOutFar := sim.NewPorts[icnt.Wrapper[satacc.ClauseTask]](4)
	memBase, memFar := sim.NewInOutPortArray[icnt.Wrapper[satacc.MemReq]](8, 1)

	w := NewWatcher(taskOutFar, clauseOutBase, memBase[0], 1, 0, 64)
	status := satacc.NewStatus(satacc.DefaultConfig())

	wt := satacc.WatcherTask{
		Level:              0,
		MetaDataAddr:       0,
		WatcherAddr:        64,
		WatcherID:          0,
		SingleWatcherTasks: []*satacc.ClauseTask{{WatcherID: 0, BlockerAddr: 512}},
	}
	if ok, _ := taskOutBase.Send(wt); !ok {
		t.Fatal("could not submit watcher task")
	}

	startLevel := status.CurrentLevelFinished()
	for cycle := uint64(0); cycle < 20; cycle++ {
		w.Update(status, cycle)
		driveMemEcho(t, memFar[0])
	}

	// One credit for the watcher task's own completion, one for the
	// clause-less sub-task being dropped: total 2.
	if got := status.CurrentLevelFinished(); got != startLevel+2 {
		t.Fatalf("expected 2 level-finished credits, got %d", got-startLevel)
	}
	if _, ok := clauseOutFar.Recv(); ok {
		t.Fatal("a clause-less sub-task should never reach the clause icnt")
	}
}

func TestWatcherClauseBearingSubTaskDispatchesToClauseICNT(t *testing.T) {
	taskOutBase, taskOutFar := sim.NewPorts[satacc.WatcherTask](4)
	clauseOutBase, clauseOutFar := sim.NewPorts[icnt.Wrapper[satacc.ClauseTask]](4)
	memBase, memFar := sim.NewInOutPortArray[icnt.Wrapper[satacc.MemReq]](8, 1)

	w := NewWatcher(taskOutFar, clauseOutBase, memBase[0], 1, 0, 64)
	status := satacc.NewStatus(satacc.DefaultConfig())

	wt := satacc.WatcherTask{
		WatcherID:    0,
		MetaDataAddr: 0,
		WatcherAddr:  64,
		SingleWatcherTasks: []*satacc.ClauseTask{{
			WatcherID:   0,
			BlockerAddr: 512,
			ClauseData: &satacc.ClauseData{
				ClauseID:             0,
				ClauseAddr:           1024,
				ClauseProcessingTime: 1,
			},
		}},
	}
	taskOutBase.Send(wt)

	var dispatched bool
	for cycle := uint64(0); cycle < 20 && !dispatched; cycle++ {
		w.Update(status, cycle)
		driveMemEcho(t, memFar[0])
		if _, ok := clauseOutFar.Recv(); ok {
			dispatched = true
		}
	}
	if !dispatched {
		t.Fatal("expected the clause-bearing sub-task to reach the clause icnt within 20 cycles")
	}
}
