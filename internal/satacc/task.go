package satacc

// MemReqType discriminates the five memory-request kinds a PE can issue,
// grounded on satacc/mod.rs::MemReqType. ClauseReadData/ClauseReadValue
// carry the clause PE id they must be routed back to inside the tile.
type MemReqType struct {
	Kind       MemReqKind
	ClausePEID int // valid when Kind is ClauseReadData or ClauseReadValue
}

type MemReqKind int

const (
	WatcherReadMetaData MemReqKind = iota
	WatcherReadData
	WatcherReadBlocker
	ClauseReadData
	ClauseReadValue
)

func (k MemReqKind) String() string {
	switch k {
	case WatcherReadMetaData:
		return "WatcherReadMetaData"
	case WatcherReadData:
		return "WatcherReadData"
	case WatcherReadBlocker:
		return "WatcherReadBlocker"
	case ClauseReadData:
		return "ClauseReadData"
	case ClauseReadValue:
		return "ClauseReadValue"
	default:
		return "Unknown"
	}
}

// MemReq is a single memory access in flight, grounded on satacc/mod.rs::MemReq.
type MemReq struct {
	Addr        uint64
	ID          uint64
	WatcherPEID int
	MemID       int // DRAM channel index, addrToMemID(Addr)
	IsWrite     bool
	ReqType     MemReqType
}

// addrToMemID implements the boundary contract in SPEC_FULL.md §6.1:
// mem_id = (addr >> 6) & ((1 << 3) - 1) — 8 channels, 64-byte blocks.
func addrToMemID(addr uint64) int {
	return int((addr >> 6) & 7)
}

// ClauseData is present on a ClauseTask whose clause must be fetched and
// evaluated, grounded on satacc_minisat_task.rs::ClauseData.
type ClauseData struct {
	ClauseID            int
	ClauseAddr          uint64
	ClauseProcessingTime uint64
	ClauseValueAddr     []uint64
	ClauseValueID       []int
}

// ClauseTask is one sub-task of a WatcherTask: a blocker read, optionally
// followed by a full clause fetch+evaluate. Grounded on
// satacc_minisat_task.rs::ClauseTask.
type ClauseTask struct {
	WatcherID   int
	BlockerAddr uint64
	ClauseData  *ClauseData
}

func (t *ClauseTask) HasClauseData() bool { return t.ClauseData != nil }

// GetWatcherPEID returns the tile that owns this clause task: a literal
// and its negation (ids 2k and 2k+1) always land on the same tile.
func (t *ClauseTask) GetWatcherPEID(totalWatchers int) int {
	return (t.WatcherID / 2) % totalWatchers
}

// GetInnerClausePEID selects the Clause PE within the owning tile.
func (t *ClauseTask) GetInnerClausePEID(nClausesPerTile int) int {
	return t.ClauseData.ClauseID % nClausesPerTile
}

func (t *ClauseTask) GetProcessTime() uint64 { return t.ClauseData.ClauseProcessingTime }

// GetBlockerReq builds the WatcherReadBlocker memory request for this task.
func (t *ClauseTask) GetBlockerReq(totalWatchers int, status *Status) MemReq {
	return MemReq{
		Addr:        t.BlockerAddr,
		ID:          status.NextMemID(),
		WatcherPEID: t.GetWatcherPEID(totalWatchers),
		MemID:       addrToMemID(t.BlockerAddr),
		IsWrite:     false,
		ReqType:     MemReqType{Kind: WatcherReadBlocker},
	}
}

// GetClauseDataReq builds the ClauseReadData memory request, targeted at
// the mem ICNT port for the clause body's DRAM channel.
func (t *ClauseTask) GetClauseDataReq(status *Status, watcherPEID, clausePEID int) MemReq {
	cd := t.ClauseData
	return MemReq{
		Addr:        cd.ClauseAddr,
		ID:          status.NextMemID(),
		WatcherPEID: watcherPEID,
		MemID:       addrToMemID(cd.ClauseAddr),
		IsWrite:     false,
		ReqType:     MemReqType{Kind: ClauseReadData, ClausePEID: clausePEID},
	}
}

// GetClauseValueReqs builds one ClauseReadValue request per literal address.
func (t *ClauseTask) GetClauseValueReqs(status *Status, watcherPEID, clausePEID int) []MemReq {
	cd := t.ClauseData
	reqs := make([]MemReq, len(cd.ClauseValueAddr))
	for i, addr := range cd.ClauseValueAddr {
		reqs[i] = MemReq{
			Addr:        addr,
			ID:          status.NextMemID(),
			WatcherPEID: watcherPEID,
			MemID:       addrToMemID(addr),
			IsWrite:     false,
			ReqType:     MemReqType{Kind: ClauseReadValue, ClausePEID: clausePEID},
		}
	}
	return reqs
}

// WatcherTask is one assignment within a decision round: a watcher-list
// walk that expands into zero or more ClauseTasks. Grounded on
// satacc_minisat_task.rs::WatcherTask.
type WatcherTask struct {
	Level              uint64
	MetaDataAddr       uint64
	WatcherAddr        uint64
	WatcherID          int
	SingleWatcherTasks []*ClauseTask
}

func (t *WatcherTask) GetWatcherPEID(totalWatchers int) int {
	return (t.WatcherID / 2) % totalWatchers
}

// GetTotalLevelTasks is the number of completion credits this watcher task
// consumes from the level-sync barrier: itself, plus one per sub-task.
func (t *WatcherTask) GetTotalLevelTasks() uint64 {
	return uint64(len(t.SingleWatcherTasks)) + 1
}

func (t *WatcherTask) GetMetaDataReq(totalWatchers int, status *Status, watcherPEID int) MemReq {
	return MemReq{
		Addr:        t.MetaDataAddr,
		ID:          status.NextMemID(),
		WatcherPEID: watcherPEID,
		MemID:       addrToMemID(t.MetaDataAddr),
		IsWrite:     false,
		ReqType:     MemReqType{Kind: WatcherReadMetaData},
	}
}

func (t *WatcherTask) GetWatcherDataReq(totalWatchers int, status *Status, watcherPEID int) MemReq {
	return MemReq{
		Addr:        t.WatcherAddr,
		ID:          status.NextMemID(),
		WatcherPEID: watcherPEID,
		MemID:       addrToMemID(t.WatcherAddr),
		IsWrite:     false,
		ReqType:     MemReqType{Kind: WatcherReadData},
	}
}

// SingleRoundTask is one SAT decision: an ordered sequence of WatcherTask.
// Grounded on satacc_minisat_task.rs::SingleRoundTask.
type SingleRoundTask struct {
	Assignments []*WatcherTask
}

// PopNextTask removes and returns the front WatcherTask, or nil if empty.
func (t *SingleRoundTask) PopNextTask() *WatcherTask {
	if len(t.Assignments) == 0 {
		return nil
	}
	head := t.Assignments[0]
	t.Assignments = t.Assignments[1:]
	return head
}

// RetTask unshifts a WatcherTask back to the head, used when a dispatch
// attempt was refused downstream.
func (t *SingleRoundTask) RetTask(task *WatcherTask) {
	t.Assignments = append([]*WatcherTask{task}, t.Assignments...)
}

func (t *SingleRoundTask) IsEmpty() bool { return len(t.Assignments) == 0 }

// SingleRoundStatistics is a per-round summary folded into the running
// Statistics.AverageStat accumulators, grounded on
// satacc_minisat_task.rs::SingleRoundStatistics.
type SingleRoundStatistics struct {
	TotalAssignments int
	TotalWatchers    int
	TotalClauses     int
}

func (t *SingleRoundTask) GetStatistics() SingleRoundStatistics {
	var stat SingleRoundStatistics
	for _, wt := range t.Assignments {
		stat.TotalAssignments++
		for _, ct := range wt.SingleWatcherTasks {
			stat.TotalWatchers++
			if ct.HasClauseData() {
				stat.TotalClauses++
			}
		}
	}
	return stat
}

// SataccMinisatTask is the host-side append-only task builder: a queue of
// decision rounds awaiting submission to Trail. Grounded on
// satacc_minisat_task.rs::SataccMinisatTask.
type SataccMinisatTask struct {
	Decisions []*SingleRoundTask
}

func NewSataccMinisatTask() *SataccMinisatTask {
	return &SataccMinisatTask{}
}

func (t *SataccMinisatTask) PopNextTask() *SingleRoundTask {
	if len(t.Decisions) == 0 {
		return nil
	}
	head := t.Decisions[0]
	t.Decisions = t.Decisions[1:]
	return head
}

func (t *SataccMinisatTask) StartNewAssign() {
	t.Decisions = append(t.Decisions, &SingleRoundTask{})
}

func (t *SataccMinisatTask) lastRound() *SingleRoundTask {
	return t.Decisions[len(t.Decisions)-1]
}

func (t *SataccMinisatTask) AddWatcherTask(level uint64, metaDataAddr, watcherAddr uint64, watcherID int) {
	round := t.lastRound()
	round.Assignments = append(round.Assignments, &WatcherTask{
		Level:        level,
		MetaDataAddr: metaDataAddr,
		WatcherAddr:  watcherAddr,
		WatcherID:    watcherID,
	})
}

func (t *SataccMinisatTask) lastWatcherTask() *WatcherTask {
	round := t.lastRound()
	return round.Assignments[len(round.Assignments)-1]
}

func (t *SataccMinisatTask) AddSingleWatcherTaskNoClause(blockerAddr uint64, watcherID int) {
	wt := t.lastWatcherTask()
	wt.SingleWatcherTasks = append(wt.SingleWatcherTasks, &ClauseTask{
		WatcherID:   watcherID,
		BlockerAddr: blockerAddr,
	})
}

func (t *SataccMinisatTask) AddSingleWatcherTask(blockerAddr, clauseAddr uint64, clauseID int, processingTime uint64, watcherID int) {
	wt := t.lastWatcherTask()
	wt.SingleWatcherTasks = append(wt.SingleWatcherTasks, &ClauseTask{
		WatcherID:   watcherID,
		BlockerAddr: blockerAddr,
		ClauseData: &ClauseData{
			ClauseID:             clauseID,
			ClauseAddr:           clauseAddr,
			ClauseProcessingTime: processingTime,
		},
	})
}

func (t *SataccMinisatTask) AddSingleWatcherClauseValueAddr(valueAddr uint64, valueID int) {
	wt := t.lastWatcherTask()
	ct := wt.SingleWatcherTasks[len(wt.SingleWatcherTasks)-1]
	ct.ClauseData.ClauseValueAddr = append(ct.ClauseData.ClauseValueAddr, valueAddr)
	ct.ClauseData.ClauseValueID = append(ct.ClauseData.ClauseValueID, valueID)
}
