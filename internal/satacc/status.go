package satacc

import "sync/atomic"

// Status is the single simulation-global value threaded by pointer through
// every component's Update call, grounded on satacc/mod.rs::SataccStatus
// and expanded per SPEC_FULL.md §3.1 with the level-sync barrier counters.
// The request-id counter and the level-barrier counters are atomics; the
// Statistics counters are plain integers, written only by the
// single-threaded simulation loop.
type Status struct {
	currentMemReqID         atomic.Uint64
	verbose                 atomic.Bool
	currentLevelFinished    atomic.Uint64
	currentLevelRemaining   atomic.Uint64
	currentLevel            atomic.Uint64

	Statistics Statistics
}

func NewStatus(cfg Config) *Status {
	return &Status{Statistics: NewStatistics(cfg)}
}

// NextMemID hands out the next globally unique memory-request id.
func (s *Status) NextMemID() uint64 {
	return s.currentMemReqID.Add(1)
}

// SetVerbose implements sim.LivelockHook.
func (s *Status) SetVerbose(v bool) { s.verbose.Store(v) }

func (s *Status) Verbose() bool { return s.verbose.Load() }

// Level-sync barrier accessors (spec §4.10). Trail reads/resets these;
// Clause PEs only ever increment CurrentLevelFinished on completion.

func (s *Status) CurrentLevel() uint64 { return s.currentLevel.Load() }

func (s *Status) CurrentLevelRemaining() uint64 { return s.currentLevelRemaining.Load() }

func (s *Status) CurrentLevelFinished() uint64 { return s.currentLevelFinished.Load() }

func (s *Status) AddLevelRemaining(credits uint64) {
	s.currentLevelRemaining.Add(credits)
}

// IncrLevelFinished is called by a Clause PE when it completes processing
// a clause, or by the Watcher PE when a no-clause sub-task or the watcher
// task itself completes its credit.
func (s *Status) IncrLevelFinished() {
	s.currentLevelFinished.Add(1)
}

// AdvanceLevel resets both barrier counters and moves to a new level,
// called by Trail once current_level_remaining == current_level_finished.
func (s *Status) AdvanceLevel(level uint64) {
	s.currentLevel.Store(level)
	s.currentLevelRemaining.Store(0)
	s.currentLevelFinished.Store(0)
}

func (s *Status) LevelBarrierClear() bool {
	return s.currentLevelRemaining.Load() == s.currentLevelFinished.Load()
}
