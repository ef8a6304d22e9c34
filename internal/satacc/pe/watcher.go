package pe

import (
	"github.com/shenjiangqiu/satacc/internal/cos"
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

type watcherIdleReason int

const (
	watcherIdleNoTask watcherIdleReason = iota
	watcherIdleCannotSendL3
	watcherIdleCannotSendPrivate
	watcherIdleCannotSendClause
	watcherIdleWaitingL3
	watcherIdleWaitingL1
)

const watcherProcessTime = 2

// Watcher reads a watcher task's metadata and list, expands it into clause
// sub-tasks, reads each sub-task's blocker, and dispatches clause-bearing
// sub-tasks onward. Grounded on satacc/watcher.rs::Watcher, with the
// blocker read moved from the private cache onto the shared L3 ICNT per
// the refactor this build carries (SPEC_FULL.md §4.6).
type Watcher struct {
	taskIn     sim.InPort[satacc.WatcherTask]
	clauseIcnt sim.Port[icnt.Wrapper[satacc.ClauseTask]]
	memIcnt    sim.InOutPort[icnt.Wrapper[satacc.MemReq]]

	totalWatchers int
	watcherPEID   int
	maxInFlight   int

	metaFinished []*satacc.WatcherTask
	dataFinished []*satacc.WatcherTask
	subTaskQueue []*satacc.ClauseTask

	blockerFinished []*satacc.ClauseTask
	processDone     []*satacc.ClauseTask

	currentProcessing       *satacc.ClauseTask
	currentProcessingDoneAt uint64

	memReqIDToWatcherTask map[uint64]*satacc.WatcherTask
	memReqIDToClauseTask  map[uint64]*satacc.ClauseTask
}

func NewWatcher(taskIn sim.InPort[satacc.WatcherTask], clauseIcnt sim.Port[icnt.Wrapper[satacc.ClauseTask]], memIcnt sim.InOutPort[icnt.Wrapper[satacc.MemReq]], totalWatchers, watcherPEID, maxInFlight int) *Watcher {
	return &Watcher{
		taskIn:                taskIn,
		clauseIcnt:            clauseIcnt,
		memIcnt:               memIcnt,
		totalWatchers:         totalWatchers,
		watcherPEID:           watcherPEID,
		maxInFlight:           maxInFlight,
		memReqIDToWatcherTask: make(map[uint64]*satacc.WatcherTask),
		memReqIDToClauseTask:  make(map[uint64]*satacc.ClauseTask),
	}
}

func (w *Watcher) stat(status *satacc.Status) *satacc.WatcherStatistics {
	return &status.Statistics.WatcherStatistics[w.watcherPEID]
}

func (w *Watcher) sendMem(req satacc.MemReq) bool {
	wrapped := icnt.Wrapper[satacc.MemReq]{Msg: req, MemTargetPort: w.totalWatchers + req.MemID}
	sent, _ := w.memIcnt.Out.Send(wrapped)
	return sent
}

func (w *Watcher) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	idle := watcherIdleNoTask

	if task, ok := w.taskIn.Recv(); ok {
		nlog.Debugln("watcher receive task")
		req := task.GetMetaDataReq(w.totalWatchers, status, w.watcherPEID)
		if w.sendMem(req) {
			w.memReqIDToWatcherTask[req.ID] = &task
			busy, updated = true, true
			w.stat(status).TotalAssignments++
		} else {
			w.taskIn.Ret(task)
			idle = watcherIdleCannotSendL3
		}
	}

	if len(w.metaFinished) > 0 {
		task := w.metaFinished[0]
		req := task.GetWatcherDataReq(w.totalWatchers, status, w.watcherPEID)
		if w.sendMem(req) {
			w.metaFinished = w.metaFinished[1:]
			w.memReqIDToWatcherTask[req.ID] = task
			busy, updated = true, true
		} else {
			idle = watcherIdleCannotSendL3
		}
	}

	if len(w.dataFinished) > 0 {
		task := w.dataFinished[0]
		w.dataFinished = w.dataFinished[1:]
		busy, updated = true, true
		w.subTaskQueue = append(w.subTaskQueue, task.SingleWatcherTasks...)
		status.IncrLevelFinished()
	}

	if len(w.subTaskQueue) > 0 && len(w.memReqIDToClauseTask) < w.maxInFlight {
		task := w.subTaskQueue[0]
		req := task.GetBlockerReq(w.totalWatchers, status)
		if w.sendMem(req) {
			w.subTaskQueue = w.subTaskQueue[1:]
			w.memReqIDToClauseTask[req.ID] = task
			busy, updated = true, true
		} else {
			idle = watcherIdleCannotSendL3
		}
	}

	if w.currentProcessing != nil {
		busy = true
		if w.currentProcessingDoneAt > cycle {
			// still checking
		} else {
			w.processDone = append(w.processDone, w.currentProcessing)
			w.currentProcessing = nil
		}
	}

	if w.currentProcessing == nil && len(w.blockerFinished) > 0 {
		task := w.blockerFinished[0]
		w.blockerFinished = w.blockerFinished[1:]
		busy, updated = true, true
		w.currentProcessing = task
		w.currentProcessingDoneAt = cycle + watcherProcessTime
	}

	if len(w.processDone) > 0 {
		task := w.processDone[0]
		if task.HasClauseData() {
			msg := icnt.Wrapper[satacc.ClauseTask]{Msg: *task, MemTargetPort: task.GetWatcherPEID(w.totalWatchers)}
			if sent, _ := w.clauseIcnt.Send(msg); sent {
				w.processDone = w.processDone[1:]
				busy, updated = true, true
				w.stat(status).TotalClausesSent++
			} else {
				idle = watcherIdleCannotSendClause
			}
		} else {
			w.processDone = w.processDone[1:]
			status.IncrLevelFinished()
		}
	}

	if msg, ok := w.memIcnt.In.Recv(); ok {
		busy = true
		req := msg.Msg
		switch req.ReqType.Kind {
		case satacc.WatcherReadMetaData:
			task := w.memReqIDToWatcherTask[req.ID]
			delete(w.memReqIDToWatcherTask, req.ID)
			w.metaFinished = append(w.metaFinished, task)
			updated = true
		case satacc.WatcherReadData:
			task := w.memReqIDToWatcherTask[req.ID]
			delete(w.memReqIDToWatcherTask, req.ID)
			w.dataFinished = append(w.dataFinished, task)
			updated = true
		case satacc.WatcherReadBlocker:
			task := w.memReqIDToClauseTask[req.ID]
			delete(w.memReqIDToClauseTask, req.ID)
			w.blockerFinished = append(w.blockerFinished, task)
			updated = true
		default:
			panic("watcher received unexpected mem req type " + req.ReqType.Kind.String())
		}
	}

	st := w.stat(status)
	if updated {
		st.BusyCycle++
	} else {
		st.IdleCycle++
		if len(w.memReqIDToWatcherTask) > 0 || len(w.memReqIDToClauseTask) > 0 {
			idle = watcherIdleWaitingL3
		}
		switch idle {
		case watcherIdleNoTask:
			st.IdleStat.IdleNoTask++
		case watcherIdleCannotSendL3:
			st.IdleStat.IdleCannotSendL3++
		case watcherIdleCannotSendPrivate:
			st.IdleStat.IdleCannotSendPriv++
		case watcherIdleCannotSendClause:
			st.IdleStat.IdleCannotSendClause++
		case watcherIdleWaitingL3:
			st.IdleStat.IdleWaitingL3++
		case watcherIdleWaitingL1:
			st.IdleStat.IdleWaitingL1++
		}
	}
	if busy && !updated && cos.FastV(status.Verbose(), 3, cos.SmoduleSim) {
		nlog.Debugln("watcher busy but not updated, idle reason", idle)
	}
	return busy, updated
}
