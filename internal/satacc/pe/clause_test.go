package pe

import (
	"testing"

	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

// driveMemEcho plays the part of the mem ICNT: every request the clause
// unit sends is echoed straight back as its own response, one per Update
// call, in FIFO order.
func driveMemEcho(t *testing.T, far sim.InOutPort[icnt.Wrapper[satacc.MemReq]]) {
	t.Helper()
	if msg, ok := far.In.Recv(); ok {
		far.Out.Send(msg)
	}
}

func TestClauseUnitNonPipelinedLifecycle(t *testing.T) {
	taskOutBase, taskOutFar := sim.NewPorts[icnt.Wrapper[satacc.ClauseTask]](4)
	memBase, memFar := sim.NewInOutPortArray[icnt.Wrapper[satacc.MemReq]](4, 1)

	c := NewClauseUnit(taskOutFar, memBase[0], 0, 1, 0, false)
	status := satacc.NewStatus(satacc.DefaultConfig())

	task := satacc.ClauseTask{
		WatcherID: 0,
		ClauseData: &satacc.ClauseData{
			ClauseID:             0,
			ClauseAddr:           128,
			ClauseProcessingTime: 3,
			ClauseValueAddr:      []uint64{256, 320},
			ClauseValueID:        []int{0, 1},
		},
	}
	if ok, _ := taskOutBase.Send(icnt.Wrapper[satacc.ClauseTask]{Msg: task}); !ok {
		t.Fatal("could not submit clause task")
	}

	startLevel := status.CurrentLevelFinished()

	// Drive enough cycles for: data fetch, 2 value fetches, 3-cycle
	// processing, and the final IncrLevelFinished credit.
	for cycle := uint64(0); cycle < 20; cycle++ {
		c.Update(status, cycle)
		driveMemEcho(t, memFar[0])
	}

	if got := status.CurrentLevelFinished(); got != startLevel+1 {
		t.Fatalf("expected exactly one level-finished credit, got %d", got-startLevel)
	}
	stat := status.Statistics.ClauseStatistics[0].SingleClause[0]
	if stat.TotalClauseReceived != 1 {
		t.Fatalf("expected one clause received, got %d", stat.TotalClauseReceived)
	}
	if stat.TotalValueRead != 2 {
		t.Fatalf("expected two value reads, got %d", stat.TotalValueRead)
	}
}

func TestClauseUnitPipelinedLifecycle(t *testing.T) {
	taskOutBase, taskOutFar := sim.NewPorts[icnt.Wrapper[satacc.ClauseTask]](4)
	memBase, memFar := sim.NewInOutPortArray[icnt.Wrapper[satacc.MemReq]](8, 1)

	c := NewClauseUnit(taskOutFar, memBase[0], 0, 1, 0, true)
	status := satacc.NewStatus(satacc.DefaultConfig())

	task := satacc.ClauseTask{
		WatcherID: 0,
		ClauseData: &satacc.ClauseData{
			ClauseID:             0,
			ClauseAddr:           64,
			ClauseProcessingTime: 2,
			ClauseValueAddr:      []uint64{192},
			ClauseValueID:        []int{0},
		},
	}
	taskOutBase.Send(icnt.Wrapper[satacc.ClauseTask]{Msg: task})

	startLevel := status.CurrentLevelFinished()
	for cycle := uint64(0); cycle < 20; cycle++ {
		c.Update(status, cycle)
		driveMemEcho(t, memFar[0])
	}
	if got := status.CurrentLevelFinished(); got != startLevel+1 {
		t.Fatalf("expected exactly one level-finished credit in pipelined mode, got %d", got-startLevel)
	}
}
