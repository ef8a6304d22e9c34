package satacc

import "container/list"

// DRAMOracle is the opaque DRAM timing module's contract, grounded on
// SPEC_FULL.md §6.2 / cache_with_ramulator.rs's use of ramulator_wrapper.
// Exactly five operations; Cycle must be called exactly once per tick by
// the owning cache regardless of which other branch executed.
type DRAMOracle interface {
	Available(tag uint64, isWrite bool) bool
	Send(tag uint64, isWrite bool)
	RetAvailable() bool
	Pop() uint64
	Cycle()
}

// referenceDRAM is a deterministic, fixed-round-trip-latency reference
// implementation. No DRAM timing library exists anywhere in the example
// pack (the original's ramulator_wrapper crate is an FFI binding to a C++
// simulator with no Go equivalent in the retrieved corpus), so this models
// the oracle's observable contract rather than cycle-exact DRAM behavior,
// consistent with spec §1's non-goal of cycle-exact DRAM modeling.
type referenceDRAM struct {
	latency   uint64
	queueCap  int
	cycle     uint64
	inflight  *list.List // of pendingDRAMReq, ordered by completion cycle
	completed []uint64
}

type pendingDRAMReq struct {
	tag            uint64
	completionCycle uint64
}

// NewReferenceDRAM builds a reference oracle for the given preset. Presets
// only affect round-trip latency and the in-flight queue depth, matching
// the preset-selects-timing-table role RamulatorWrapper::new_with_preset
// plays in the original.
func NewReferenceDRAM(preset DramType) DRAMOracle {
	switch preset {
	case DramHBM:
		return &referenceDRAM{latency: 40, queueCap: 64, inflight: list.New()}
	default: // DDR4 and any unrecognized preset fall back to the slower table
		return &referenceDRAM{latency: 80, queueCap: 32, inflight: list.New()}
	}
}

func (d *referenceDRAM) Available(uint64, bool) bool {
	return d.inflight.Len() < d.queueCap
}

func (d *referenceDRAM) Send(tag uint64, _ bool) {
	d.inflight.PushBack(pendingDRAMReq{tag: tag, completionCycle: d.cycle + d.latency})
}

func (d *referenceDRAM) RetAvailable() bool {
	return len(d.completed) > 0
}

func (d *referenceDRAM) Pop() uint64 {
	tag := d.completed[0]
	d.completed = d.completed[1:]
	return tag
}

func (d *referenceDRAM) Cycle() {
	d.cycle++
	for e := d.inflight.Front(); e != nil; {
		next := e.Next()
		req := e.Value.(pendingDRAMReq)
		if req.completionCycle <= d.cycle {
			d.completed = append(d.completed, req.tag)
			d.inflight.Remove(e)
		}
		e = next
	}
}
