// Package pe implements the Watcher and Clause processing elements and
// the tile (WatcherInterface) that bundles them with local routing (no
// private cache is wired into the tile), grounded on original_source/rusttools/src/satacc/{watcher,clause,
// watcher_interface}.rs.
package pe

import (
	"github.com/shenjiangqiu/satacc/internal/cos"
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

type clauseIdleReason int

const (
	clauseIdleNoTask clauseIdleReason = iota
	clauseIdleWaitingL1
	clauseIdleWaitingL3
	clauseIdleSendingL1
	clauseIdleSendingL3
)

type valueTracker struct {
	task             *satacc.ClauseTask
	waitingToSend    []icnt.Wrapper[satacc.MemReq]
	unfinishedReqIDs map[uint64]struct{}
}

const maxInFlightClause = 256

// ClauseUnit reads a clause body, reads every literal's value, processes
// for a fixed number of cycles, then credits the level barrier. Grounded
// on satacc/clause.rs::ClauseUnit.
type ClauseUnit struct {
	clauseTaskIn sim.InPort[icnt.Wrapper[satacc.ClauseTask]]
	memPort      sim.InOutPort[icnt.Wrapper[satacc.MemReq]]

	watcherPEID   int
	totalWatchers int
	clausePEID    int
	pipelined     bool

	clauseDataReady  []*satacc.ClauseTask
	clauseValueReady []*satacc.ClauseTask

	currentProcessing       *satacc.ClauseTask
	currentProcessingDoneAt uint64

	// pipelined mode bookkeeping
	currentTaskID          uint64
	waitingReqs            []icnt.Wrapper[satacc.MemReq]
	waitingTasks           map[uint64]*pipelinedEntry
	reqIDToTaskID          map[uint64]uint64

	// non-pipelined mode bookkeeping
	currentReading *valueTracker

	memReqIDToClauseTask map[uint64]*satacc.ClauseTask
	dataMemOngoing       int
	valueMemOngoing      int
}

type pipelinedEntry struct {
	remaining int
	task      *satacc.ClauseTask
}

func NewClauseUnit(clauseTaskIn sim.InPort[icnt.Wrapper[satacc.ClauseTask]], memPort sim.InOutPort[icnt.Wrapper[satacc.MemReq]], watcherPEID, totalWatchers, clausePEID int, pipelined bool) *ClauseUnit {
	return &ClauseUnit{
		clauseTaskIn:         clauseTaskIn,
		memPort:              memPort,
		watcherPEID:          watcherPEID,
		totalWatchers:        totalWatchers,
		clausePEID:           clausePEID,
		pipelined:            pipelined,
		waitingTasks:         make(map[uint64]*pipelinedEntry),
		reqIDToTaskID:        make(map[uint64]uint64),
		memReqIDToClauseTask: make(map[uint64]*satacc.ClauseTask),
	}
}

func (c *ClauseUnit) stat(status *satacc.Status) *satacc.SingleClauseStatistics {
	return &status.Statistics.ClauseStatistics[c.watcherPEID].SingleClause[c.clausePEID]
}

func (c *ClauseUnit) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	busy = c.currentProcessing != nil
	idle := clauseIdleNoTask

	if c.dataMemOngoing < maxInFlightClause && len(c.clauseDataReady) < maxInFlightClause {
		if msg, ok := c.clauseTaskIn.Recv(); ok {
			busy = true
			task := msg.Msg
			req := task.GetClauseDataReq(status, c.watcherPEID, c.clausePEID)
			wrapped := icnt.Wrapper[satacc.MemReq]{Msg: req, MemTargetPort: c.totalWatchers + req.MemID}
			if sent, refused := c.memPort.Out.Send(wrapped); sent {
				c.memReqIDToClauseTask[req.ID] = &task
				c.stat(status).TotalClauseReceived++
				updated = true
				c.dataMemOngoing++
			} else {
				_ = refused
				c.clauseTaskIn.Ret(msg)
				idle = clauseIdleSendingL3
			}
		}
	}

	if c.pipelined {
		if len(c.waitingTasks) < maxInFlightClause {
			if len(c.clauseDataReady) > 0 {
				task := c.clauseDataReady[0]
				c.clauseDataReady = c.clauseDataReady[1:]
				busy, updated = true, true
				reqs := task.GetClauseValueReqs(status, c.watcherPEID, c.clausePEID)
				for _, r := range reqs {
					c.reqIDToTaskID[r.ID] = c.currentTaskID
					c.waitingReqs = append(c.waitingReqs, icnt.Wrapper[satacc.MemReq]{Msg: r, MemTargetPort: c.totalWatchers + r.MemID})
				}
				c.waitingTasks[c.currentTaskID] = &pipelinedEntry{remaining: len(reqs), task: task}
				c.currentTaskID++
				c.stat(status).TotalValueRead += uint64(len(reqs))
			}
		} else {
			busy = true
		}
	} else {
		if c.currentReading == nil && len(c.clauseDataReady) > 0 {
			task := c.clauseDataReady[0]
			c.clauseDataReady = c.clauseDataReady[1:]
			busy, updated = true, true
			reqs := task.GetClauseValueReqs(status, c.watcherPEID, c.clausePEID)
			wrapped := make([]icnt.Wrapper[satacc.MemReq], len(reqs))
			for i, r := range reqs {
				wrapped[i] = icnt.Wrapper[satacc.MemReq]{Msg: r, MemTargetPort: c.totalWatchers + r.MemID}
			}
			c.stat(status).TotalValueRead += uint64(len(reqs))
			c.currentReading = &valueTracker{
				task:             task,
				waitingToSend:    wrapped,
				unfinishedReqIDs: make(map[uint64]struct{}),
			}
		}
	}

	if c.valueMemOngoing < maxInFlightClause && len(c.clauseValueReady) < maxInFlightClause {
		if c.pipelined {
			if len(c.waitingReqs) > 0 {
				req := c.waitingReqs[0]
				busy = true
				if sent, refused := c.memPort.Out.Send(req); sent {
					updated = true
					c.valueMemOngoing++
					c.waitingReqs = c.waitingReqs[1:]
				} else {
					_ = refused
					idle = clauseIdleSendingL1
				}
			}
		} else if c.currentReading != nil && len(c.currentReading.waitingToSend) > 0 {
			req := c.currentReading.waitingToSend[0]
			busy = true
			if sent, refused := c.memPort.Out.Send(req); sent {
				updated = true
				c.currentReading.unfinishedReqIDs[req.Msg.ID] = struct{}{}
				c.valueMemOngoing++
				c.currentReading.waitingToSend = c.currentReading.waitingToSend[1:]
			} else {
				_ = refused
				idle = clauseIdleSendingL1
			}
		}
	} else {
		busy = true
	}

	if c.currentProcessing != nil {
		busy, updated = true, true
		if c.currentProcessingDoneAt > cycle {
			// still running
		} else {
			status.IncrLevelFinished()
			nlog.Debugln("clause unit finished task")
			c.currentProcessing = nil
		}
	}
	if c.currentProcessing == nil && len(c.clauseValueReady) > 0 {
		task := c.clauseValueReady[0]
		c.clauseValueReady = c.clauseValueReady[1:]
		busy, updated = true, true
		c.currentProcessing = task
		c.currentProcessingDoneAt = cycle + task.GetProcessTime()
	}

	if msg, ok := c.memPort.In.Recv(); ok {
		busy, updated = true, true
		req := msg.Msg
		switch req.ReqType.Kind {
		case satacc.ClauseReadData:
			c.dataMemOngoing--
			task := c.memReqIDToClauseTask[req.ID]
			delete(c.memReqIDToClauseTask, req.ID)
			c.clauseDataReady = append(c.clauseDataReady, task)
		case satacc.ClauseReadValue:
			c.valueMemOngoing--
			if c.pipelined {
				taskID := c.reqIDToTaskID[req.ID]
				delete(c.reqIDToTaskID, req.ID)
				entry := c.waitingTasks[taskID]
				entry.remaining--
				if entry.remaining == 0 {
					delete(c.waitingTasks, taskID)
					c.clauseValueReady = append(c.clauseValueReady, entry.task)
				}
			} else {
				delete(c.currentReading.unfinishedReqIDs, req.ID)
				if len(c.currentReading.unfinishedReqIDs) == 0 {
					c.clauseValueReady = append(c.clauseValueReady, c.currentReading.task)
					c.currentReading = nil
				}
			}
		default:
			panic("clause unit received unexpected mem req type " + req.ReqType.Kind.String())
		}
	}

	st := c.stat(status)
	if updated {
		st.BusyCycle++
	} else {
		st.IdleCycle++
		if len(c.memReqIDToClauseTask) > 0 {
			idle = clauseIdleWaitingL3
		}
		if len(c.waitingTasks) > 0 {
			idle = clauseIdleWaitingL1
		}
		switch idle {
		case clauseIdleNoTask:
			st.IdleStat.IdleNoTask++
		case clauseIdleWaitingL1:
			st.IdleStat.IdleWaitingL1++
		case clauseIdleWaitingL3:
			st.IdleStat.IdleWaitingL3++
		case clauseIdleSendingL1:
			st.IdleStat.IdleSendingL1++
		case clauseIdleSendingL3:
			st.IdleStat.IdleSendingL3++
		}
	}
	if busy && !updated && cos.FastV(status.Verbose(), 3, cos.SmoduleSim) {
		nlog.Debugln("clause unit busy but not updated, idle reason", idle)
	}
	return busy, updated
}
