// Package icnt implements the mesh interconnect model carrying typed
// messages between PEs and caches, grounded on
// original_source/rusttools/src/satacc/icnt.rs.
package icnt

import (
	"github.com/shenjiangqiu/satacc/internal/cos"
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

// maxInTransit bounds how many messages the mesh can hold in flight at
// once, per spec §4.9.
const maxInTransit = 1024

// Message is the capability every ICNT payload implements: where it's
// headed. Grounded on icnt.rs::IcntMessage.
type Message interface {
	TargetPort() int
}

// Wrapper adapts any payload T into an ICNT message by attaching the
// target port, grounded on icnt.rs::IcntMsgWrapper<T>.
type Wrapper[T any] struct {
	Msg           T
	MemTargetPort int
}

func (w Wrapper[T]) TargetPort() int { return w.MemTargetPort }

// SimpleIcnt is a mesh interconnect parameterized by exactly one payload
// type, grounded on icnt.rs::SimpleIcnt<T>.
type SimpleIcnt[T Message] struct {
	ports      []sim.InOutPort[T]
	inTransit  *sim.WaitingHeap[T]
	rowSize    int
	idealIcnt  bool
}

// NewSimpleIcnt wraps pre-built ports (e.g. the far side of an
// InOutPortArray) into a mesh with row_size = floor(sqrt(N)), clamped to
// at least 1, per spec §4.9.
func NewSimpleIcnt[T Message](ports []sim.InOutPort[T], idealIcnt bool) *SimpleIcnt[T] {
	n := len(ports)
	rowSize := isqrt(n)
	if rowSize == 0 {
		rowSize = 1
	}
	return &SimpleIcnt[T]{
		ports:     ports,
		inTransit: sim.NewWaitingHeap[T](),
		rowSize:   rowSize,
		idealIcnt: idealIcnt,
	}
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func (c *SimpleIcnt[T]) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	busy = c.inTransit.Len() > 0

	if c.inTransit.Len() < maxInTransit {
		for inputPort := range c.ports {
			if c.inTransit.Len() >= maxInTransit {
				break
			}
			msg, ok := c.ports[inputPort].In.Recv()
			if !ok {
				continue
			}
			var cyclesToGo uint64
			if c.idealIcnt {
				cyclesToGo = 1
			} else {
				outputPort := msg.TargetPort()
				inRow, inCol := inputPort/c.rowSize, inputPort%c.rowSize
				outRow, outCol := outputPort/c.rowSize, outputPort%c.rowSize
				cyclesToGo = uint64(abs(inRow-outRow) + abs(inCol-outCol))
			}
			status.Statistics.ICNTStatistics.AverageLatency.Add(cyclesToGo)
			status.Statistics.ICNTStatistics.TotalMessages++
			c.inTransit.Push(msg, cycle+cyclesToGo)
			busy, updated = true, true
			if cos.FastV(status.Verbose(), 5, cos.SmoduleIcnt) {
				nlog.Debugln("icnt recv message from port", inputPort)
			}
		}
	}

	for {
		leavingCycle, msg, ok := c.inTransit.Peek()
		if !ok {
			break
		}
		busy = true
		if leavingCycle > cycle {
			break
		}
		c.inTransit.Pop()
		outputPort := msg.TargetPort()
		if sent, refused := c.ports[outputPort].Out.Send(msg); sent {
			updated = true
			_ = refused
		} else {
			c.inTransit.Push(refused, leavingCycle)
			break
		}
	}

	if updated {
		status.Statistics.ICNTStatistics.BusyCycle++
	} else {
		status.Statistics.ICNTStatistics.IdleCycle++
		if busy {
			nlog.Debugln("icnt is busy but not updated")
		}
	}
	return busy, updated
}
