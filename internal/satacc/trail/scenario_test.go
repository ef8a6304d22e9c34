package trail

import (
	"testing"

	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

func testConfig() satacc.Config {
	cfg := satacc.DefaultConfig()
	cfg.NWatchers = 2
	cfg.NClauses = 2
	cfg.NMemChannels = 2
	cfg.ChannelCapacity = 8
	// drain the whole pipeline, not just Trail, before Run returns
	cfg.InitRunMode = satacc.RunModeRealRoundGap
	return cfg
}

func TestScenarioEmptyRoundQuiesces(t *testing.T) {
	cfg := testConfig()
	s := Build(cfg)
	status := satacc.NewStatus(cfg)
	runner := sim.NewRunner(s.Root, status)

	if !s.SubmitRound(&satacc.SingleRoundTask{}) {
		t.Fatal("could not submit empty round")
	}
	if err := runner.Run(); err != nil {
		t.Fatalf("empty round should quiesce cleanly, got %v", err)
	}
}

func TestScenarioSingleWatcherNoClausesCompletes(t *testing.T) {
	cfg := testConfig()
	cfg.LevelSync = true
	s := Build(cfg)
	status := satacc.NewStatus(cfg)
	runner := sim.NewRunner(s.Root, status)

	round := &satacc.SingleRoundTask{Assignments: []*satacc.WatcherTask{
		{
			Level:        0,
			MetaDataAddr: 0,
			WatcherAddr:  64,
			WatcherID:    0,
			SingleWatcherTasks: []*satacc.ClauseTask{
				{WatcherID: 0, BlockerAddr: 512},
			},
		},
	}}
	if !s.SubmitRound(round) {
		t.Fatal("could not submit round")
	}
	if err := runner.Run(); err != nil {
		t.Fatalf("single-watcher no-clause scenario should quiesce, got %v", err)
	}
	if status.Statistics.WatcherStatistics[0].TotalAssignments != 1 {
		t.Fatalf("expected watcher 0 to record one assignment, got %+v", status.Statistics.WatcherStatistics[0])
	}
}

func TestScenarioSingleWatcherFullClauseCompletes(t *testing.T) {
	cfg := testConfig()
	s := Build(cfg)
	status := satacc.NewStatus(cfg)
	runner := sim.NewRunner(s.Root, status)

	round := &satacc.SingleRoundTask{Assignments: []*satacc.WatcherTask{
		{
			Level:        0,
			MetaDataAddr: 0,
			WatcherAddr:  64,
			WatcherID:    0,
			SingleWatcherTasks: []*satacc.ClauseTask{
				{
					WatcherID:   0,
					BlockerAddr: 512,
					ClauseData: &satacc.ClauseData{
						ClauseID:             0,
						ClauseAddr:           1024,
						ClauseProcessingTime: 4,
						ClauseValueAddr:      []uint64{2048, 2112},
						ClauseValueID:        []int{0, 1},
					},
				},
			},
		},
	}}
	if !s.SubmitRound(round) {
		t.Fatal("could not submit round")
	}
	if err := runner.Run(); err != nil {
		t.Fatalf("single-watcher full-clause scenario should quiesce, got %v", err)
	}
	wStat := status.Statistics.WatcherStatistics[0]
	if wStat.TotalClausesSent != 1 {
		t.Fatalf("expected exactly one clause sent, got %+v", wStat)
	}
	cStat := status.Statistics.ClauseStatistics[0].SingleClause[0]
	if cStat.TotalClauseReceived != 1 || cStat.TotalValueRead != 2 {
		t.Fatalf("expected the clause unit to process the dispatched clause, got %+v", cStat)
	}

	l3 := status.Statistics.L3CacheStatistics
	if l3.CacheHits+l3.CacheMisses == 0 {
		t.Fatalf("expected mem requests to actually reach the L3 cache, got %+v", l3)
	}
}
