package trail

import (
	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/cache"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/satacc/pe"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

type memWrap = icnt.Wrapper[satacc.MemReq]
type clauseWrap = icnt.Wrapper[satacc.ClauseTask]

// RunMode selects which busy flags the root reports. Trail and the rest of
// the pipeline are updated every tick in both modes; NoGapBetweenRounds
// reports only Trail's busy flag, so a run ends once Trail has dispatched
// everything, while RealRoundGap also reports the rest of the pipeline's,
// so a run ends only when the whole pipeline is drained. Grounded on
// simulator.rs::RunMode/TrailAndOthers::update.
type RunMode int

const (
	RunModeNoGapBetweenRounds RunMode = iota
	RunModeRealRoundGap
)

// top bundles Trail with every tile, both ICNTs and the shared L3 cache
// into the single root component SimRunner drives. Grounded on
// simulator.rs::TrailAndOthers.
type top struct {
	trail *Trail
	others sim.Composite[satacc.Status]
	mode   RunMode
}

func (t *top) Update(status *satacc.Status, cycle uint64) (busy, updated bool) {
	switch t.mode {
	case RunModeNoGapBetweenRounds:
		tb, tu := t.trail.Update(status, cycle)
		_, ou := t.others.Update(status, cycle)
		return tb, tu || ou
	default: // RunModeRealRoundGap
		tb, tu := t.trail.Update(status, cycle)
		ob, ou := t.others.Update(status, cycle)
		return tb || ob, tu || ou
	}
}

// Simulator is the handle-side assembly root: it owns the task-submission
// port and the composed root component the scheduler runs. Grounded on
// simulator.rs::Simulator/SimulatorWapper.
type Simulator struct {
	Config   satacc.Config
	taskOut  sim.Port[*satacc.SingleRoundTask]
	Root     sim.Component[satacc.Status]
	topNode  *top
}

// Build assembles the mesh ICNTs, the per-watcher tiles, Trail and the
// shared L3 cache from cfg, grounded on simulator.rs::Simulator::build.
func Build(cfg satacc.Config) *Simulator {
	nlog.Infoln("building simulator", "n_watchers", cfg.NWatchers, "n_clauses", cfg.NClauses)

	trailToWatcherBase, trailToWatcherFar := sim.NewInOutPortArray[satacc.WatcherTask](cfg.ChannelCapacity, cfg.NWatchers)
	outerToTrailBase, outerToTrailFar := sim.NewPorts[*satacc.SingleRoundTask](cfg.ChannelCapacity)

	trailMode := ModeAsync
	if cfg.LevelSync {
		trailMode = ModeLevelSync
	}
	watcherOutPorts := make([]sim.Port[satacc.WatcherTask], cfg.NWatchers)
	for i, p := range trailToWatcherBase {
		watcherOutPorts[i] = p.Out
	}
	trailComp := NewTrail(outerToTrailFar, watcherOutPorts, cfg.NWatchers, trailMode)

	numMemPorts := cfg.NWatchers + cfg.NMemChannels
	memIcntBase, memIcntFar := sim.NewInOutPortArray[memWrap](cfg.ChannelCapacity, numMemPorts)
	memIcnt := icnt.NewSimpleIcnt[memWrap](memIcntFar, cfg.IdealICNT)

	clauseIcntBase, clauseIcntFar := sim.NewInOutPortArray[clauseWrap](cfg.ChannelCapacity, cfg.NWatchers)
	clauseIcnt := icnt.NewSimpleIcnt[clauseWrap](clauseIcntFar, cfg.IdealICNT)

	tiles := make([]sim.Component[satacc.Status], cfg.NWatchers)
	for w := 0; w < cfg.NWatchers; w++ {
		tiles[w] = pe.NewTile(
			memIcntBase[w],
			clauseIcntBase[w],
			trailToWatcherFar[w].In,
			cfg.ChannelCapacity,
			cfg.NClauses,
			w,
			cfg.NWatchers,
			cfg.MaxInFlight,
			cfg.PipelinedValues,
		)
	}

	l3ReqPorts := make([]sim.InOutPort[memWrap], cfg.NMemChannels)
	for i := 0; i < cfg.NMemChannels; i++ {
		l3ReqPorts[i] = memIcntBase[cfg.NWatchers+i]
	}
	var l3 sim.Component[satacc.Status]
	switch cfg.L3CacheType {
	case satacc.CacheRamu:
		oracle := satacc.NewReferenceDRAM(cfg.DramPreset)
		l3 = cache.NewWithDRAM(cache.Geometry(cfg.L3Geometry), l3ReqPorts, oracle, cfg.L3HitLatency, satacc.L3CacheID())
	default:
		l3 = cache.NewWithFixedLatency(cache.Geometry(cfg.L3Geometry), l3ReqPorts, cfg.L3HitLatency, cfg.MissLatency, satacc.L3CacheID())
	}

	others := append(sim.Composite[satacc.Status]{}, tiles...)
	others = append(others, memIcnt, clauseIcnt, l3)

	mode := RunModeNoGapBetweenRounds
	if cfg.InitRunMode == satacc.RunModeRealRoundGap {
		mode = RunModeRealRoundGap
	}
	tn := &top{trail: trailComp, others: others, mode: mode}

	return &Simulator{
		Config:  cfg,
		taskOut: outerToTrailBase,
		Root:    tn,
		topNode: tn,
	}
}

// SubmitRound hands one decision round to Trail's input channel. Returns
// false if the channel is at capacity (caller should retry after a run).
func (s *Simulator) SubmitRound(round *satacc.SingleRoundTask) bool {
	ok, _ := s.taskOut.Send(round)
	return ok
}

// SetRunMode switches which busy flags the root reports (see RunMode),
// grounded on
// simulator.rs::finish_simulator setting RunMode::RealRoundGap before the
// drain pass.
func (s *Simulator) SetRunMode(mode RunMode) {
	s.topNode.mode = mode
}
