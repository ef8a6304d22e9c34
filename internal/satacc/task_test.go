package satacc

import "testing"

func TestWatcherPEIDRoutesLiteralAndNegationTogether(t *testing.T) {
	lit := &WatcherTask{WatcherID: 4}
	neg := &WatcherTask{WatcherID: 5}
	if lit.GetWatcherPEID(3) != neg.GetWatcherPEID(3) {
		t.Fatalf("literal and negation must land on the same tile")
	}
}

func TestSingleRoundTaskPopRet(t *testing.T) {
	a := &WatcherTask{WatcherID: 0}
	b := &WatcherTask{WatcherID: 2}
	round := &SingleRoundTask{Assignments: []*WatcherTask{a, b}}
	got := round.PopNextTask()
	if got != a {
		t.Fatalf("expected a first")
	}
	round.RetTask(got)
	got2 := round.PopNextTask()
	if got2 != a {
		t.Fatalf("ret must restore head-of-line")
	}
}

func TestAddrToMemIDMatchesBoundaryContract(t *testing.T) {
	req := (&ClauseTask{ClauseData: &ClauseData{}}).GetClauseDataReq(NewStatus(DefaultConfig()), 0, 0)
	_ = req
	cases := []struct {
		addr uint64
		want int
	}{
		{0, 0},
		{1 << 6, 1},
		{8 << 6, 0},
		{9 << 6, 1},
	}
	for _, c := range cases {
		if got := addrToMemID(c.addr); got != c.want {
			t.Fatalf("addrToMemID(%d) = %d, want %d", c.addr, got, c.want)
		}
	}
}

func TestTaskBuilderMatchesHostAPISequence(t *testing.T) {
	b := NewSataccMinisatTask()
	b.StartNewAssign()
	b.AddWatcherTask(0, 0x10, 0x20, 1)
	b.AddSingleWatcherTaskNoClause(0x30, 1)
	b.AddSingleWatcherTask(0x40, 0x50, 3, 7, 1)
	b.AddSingleWatcherClauseValueAddr(0x60, 9)
	b.AddSingleWatcherClauseValueAddr(0x61, 10)

	round := b.PopNextTask()
	if round == nil || len(round.Assignments) != 1 {
		t.Fatalf("expected one watcher task in round")
	}
	wt := round.Assignments[0]
	if len(wt.SingleWatcherTasks) != 2 {
		t.Fatalf("expected two sub-tasks, got %d", len(wt.SingleWatcherTasks))
	}
	full := wt.SingleWatcherTasks[1]
	if full.ClauseData == nil || len(full.ClauseData.ClauseValueAddr) != 2 {
		t.Fatalf("expected two value addrs on the clause task")
	}
}
