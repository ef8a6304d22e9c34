package cache

import (
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

// WithDRAM is the DRAM-backed cache model: hits bypass the oracle; misses
// are submitted to it, with a single-slot "blocked" retry register taking
// priority over new inbound requests every tick (fairness guarantee).
// Grounded on cache/cache_with_ramulator.rs::CacheWithRamulator.
type WithDRAM struct {
	fast       *FastCache
	oracle     satacc.DRAMOracle
	reqPorts   []sim.InOutPort[reqMsg]
	onGoing    *sim.WaitingHeap[satacc.MemReq] // keyed by the full request, not the tag
	onDRAMReqs map[uint64][]satacc.MemReq       // tag -> coalesced requests awaiting the oracle
	hitLatency uint64
	blocked    *satacc.MemReq // single-slot register; nil when empty
	cacheID    satacc.CacheID
}

func NewWithDRAM(g Geometry, reqPorts []sim.InOutPort[reqMsg], oracle satacc.DRAMOracle, hitLatency uint64, id satacc.CacheID) *WithDRAM {
	return &WithDRAM{
		fast:       NewFastCache(g),
		oracle:     oracle,
		reqPorts:   reqPorts,
		onGoing:    sim.NewWaitingHeap[satacc.MemReq](),
		onDRAMReqs: make(map[uint64][]satacc.MemReq),
		hitLatency: hitLatency,
		cacheID:    id,
	}
}

func (c *WithDRAM) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	busy = c.onGoing.Len() > 0 || len(c.onDRAMReqs) > 0
	updated = len(c.onDRAMReqs) > 0

	if c.blocked != nil {
		busy = true
		req := *c.blocked
		c.blocked = nil
		tag := c.fast.tagOf(req.Addr)
		if entry, found := c.onDRAMReqs[tag]; found {
			c.onDRAMReqs[tag] = append(entry, req)
		} else if c.oracle.Available(tag, req.IsWrite) {
			updated = true
			nlog.Debugln("send blocked req to dram")
			c.oracle.Send(tag, req.IsWrite)
			c.onDRAMReqs[tag] = []satacc.MemReq{req}
		} else {
			c.blocked = &req
		}
	} else {
		for portIdx := range c.reqPorts {
			msg, ok := c.reqPorts[portIdx].In.Recv()
			if !ok {
				continue
			}
			busy, updated = true, true
			req := msg.Msg
			result := c.fast.Access(req.Addr)
			if result.Hit {
				if entry, found := c.onDRAMReqs[result.Tag]; found {
					c.onDRAMReqs[result.Tag] = append(entry, req)
				} else {
					status.Statistics.UpdateHit(c.cacheID)
					c.onGoing.Push(req, cycle+c.hitLatency)
				}
				continue
			}
			status.Statistics.UpdateMiss(c.cacheID)
			if entry, found := c.onDRAMReqs[result.Tag]; found {
				c.onDRAMReqs[result.Tag] = append(entry, req)
				continue
			}
			if c.oracle.Available(result.Tag, req.IsWrite) {
				c.onDRAMReqs[result.Tag] = []satacc.MemReq{req}
				c.oracle.Send(result.Tag, req.IsWrite)
			} else {
				r := req
				c.blocked = &r
				// the register holds one request: leave the other ports
				// unread until it drains
				break
			}
		}
	}

	for {
		leavingCycle, req, ok := c.onGoing.Peek()
		if !ok {
			break
		}
		busy = true
		if leavingCycle > cycle {
			break
		}
		c.onGoing.Pop()
		wrapped := reqMsg{Msg: req, MemTargetPort: req.WatcherPEID}
		if sent, refused := c.reqPorts[req.MemID].Out.Send(wrapped); sent {
			updated = true
		} else {
			c.onGoing.Push(refused.Msg, leavingCycle)
			break
		}
	}

	for c.oracle.RetAvailable() {
		busy, updated = true, true
		tag := c.oracle.Pop()
		entries, found := c.onDRAMReqs[tag]
		if !found {
			panic("no entry for tag " + itoa(tag))
		}
		delete(c.onDRAMReqs, tag)
		for _, req := range entries {
			c.onGoing.Push(req, cycle+c.hitLatency)
		}
	}

	c.oracle.Cycle()
	return busy, updated
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
