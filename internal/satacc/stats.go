package satacc

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/shenjiangqiu/satacc/internal/cos"
)

// AverageStat accumulates count/total pairs, grounded on statistics.rs::AverageStat.
type AverageStat struct {
	Count uint64 `json:"count"`
	Total uint64 `json:"total"`
}

func (a *AverageStat) Add(v uint64) {
	a.Count++
	a.Total += v
}

func (a AverageStat) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Total) / float64(a.Count)
}

// CacheStatistics is a hit/miss counter pair, grounded on statistics.rs::CacheStatistics.
type CacheStatistics struct {
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`
}

// WatcherIdleStat breaks down idle cycles by reason, grounded on
// statistics.rs::WatcherIdleStat and spec §4.6's idle taxonomy.
type WatcherIdleStat struct {
	IdleNoTask           uint64 `json:"idle_no_task"`
	IdleCannotSendL3     uint64 `json:"idle_cannot_send_l3"`
	IdleCannotSendPriv   uint64 `json:"idle_cannot_send_private"`
	IdleCannotSendClause uint64 `json:"idle_cannot_send_clause"`
	IdleWaitingL3        uint64 `json:"idle_waiting_l3"`
	IdleWaitingL1        uint64 `json:"idle_waiting_l1"`
}

type WatcherStatistics struct {
	TotalAssignments uint64          `json:"total_assignments"`
	TotalClausesSent uint64          `json:"total_clauses_sent"`
	IdleCycle        uint64          `json:"idle_cycle"`
	BusyCycle        uint64          `json:"busy_cycle"`
	IdleStat         WatcherIdleStat `json:"idle_stat"`
}

// ClauseIdleStat mirrors clause.rs::IdleReason — a distinct taxonomy from
// the watcher's, kept separate per PE rather than unified.
type ClauseIdleStat struct {
	IdleNoTask    uint64 `json:"idle_no_task"`
	IdleWaitingL1 uint64 `json:"idle_waiting_l1"`
	IdleWaitingL3 uint64 `json:"idle_waiting_l3"`
	IdleSendingL1 uint64 `json:"idle_sending_l1"`
	IdleSendingL3 uint64 `json:"idle_sending_l3"`
}

type SingleClauseStatistics struct {
	TotalClauseReceived uint64         `json:"total_clause_received"`
	TotalValueRead       uint64         `json:"total_value_read"`
	IdleCycle            uint64         `json:"idle_cycle"`
	BusyCycle            uint64         `json:"busy_cycle"`
	IdleStat             ClauseIdleStat `json:"idle_stat"`
}

type ClauseStatistics struct {
	SingleClause []SingleClauseStatistics `json:"single_clause"`
}

type IcntStat struct {
	TotalMessages   uint64      `json:"total_messages"`
	AverageLatency  AverageStat `json:"average_latency"`
	IdleCycle       uint64      `json:"idle_cycle"`
	BusyCycle       uint64      `json:"busy_cycle"`
}

// Statistics is the full persisted-on-shutdown stats object, grounded on
// statistics.rs::Statistics.
type Statistics struct {
	TotalCycle         uint64              `json:"total_cycle"`
	AverageAssignments AverageStat         `json:"average_assignments"`
	AverageWatchers    AverageStat         `json:"average_watchers"`
	AverageClauses     AverageStat         `json:"average_clauses"`
	WatcherStatistics  []WatcherStatistics `json:"watcher_statistics"`
	ClauseStatistics   []ClauseStatistics  `json:"clause_statistics"`
	PrivateCacheStats  []CacheStatistics   `json:"private_cache_statistics"`
	ICNTStatistics     IcntStat            `json:"icnt_statistics"`
	L3CacheStatistics  CacheStatistics     `json:"l3_cache_statistics"`
	Config             Config              `json:"config"`
}

func NewStatistics(cfg Config) Statistics {
	clauseStats := make([]ClauseStatistics, cfg.NWatchers)
	for i := range clauseStats {
		clauseStats[i] = ClauseStatistics{SingleClause: make([]SingleClauseStatistics, cfg.NClauses)}
	}
	return Statistics{
		Config:            cfg,
		WatcherStatistics: make([]WatcherStatistics, cfg.NWatchers),
		ClauseStatistics:  clauseStats,
		PrivateCacheStats: make([]CacheStatistics, cfg.NWatchers),
	}
}

// CacheID distinguishes the shared L3 from one of the per-tile private
// caches for stat-update routing, grounded on cache/mod.rs::CacheId.
type CacheID struct {
	IsL3    bool
	TileIdx int
}

func L3CacheID() CacheID             { return CacheID{IsL3: true} }
func PrivateCacheID(tile int) CacheID { return CacheID{IsL3: false, TileIdx: tile} }

func (st *Statistics) UpdateHit(id CacheID) {
	if id.IsL3 {
		st.L3CacheStatistics.CacheHits++
	} else {
		st.PrivateCacheStats[id.TileIdx].CacheHits++
	}
}

func (st *Statistics) UpdateMiss(id CacheID) {
	if id.IsL3 {
		st.L3CacheStatistics.CacheMisses++
	} else {
		st.PrivateCacheStats[id.TileIdx].CacheMisses++
	}
}

func (st *Statistics) UpdateSingleRoundTask(task *SingleRoundTask) {
	s := task.GetStatistics()
	st.AverageAssignments.Add(uint64(s.TotalAssignments))
	st.AverageWatchers.Add(uint64(s.TotalWatchers))
	st.AverageClauses.Add(uint64(s.TotalClauses))
}

// SaveJSON persists the statistics object as pretty JSON, grounded on
// statistics.rs's serde_json::to_writer_pretty usage and the teacher's
// atomic-rename file-write idiom (internal/cos.WriteFileAtomic).
func (st *Statistics) SaveJSON(path string) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal statistics")
	}
	return cos.WriteFileAtomic(path, data, 0o644)
}

// SaveMsgp persists a compact binary snapshot alongside statistics.json,
// the CLI's --binary-stats alternate format (SPEC_FULL.md domain stack).
// There is no generated msgp codec for Statistics (msgp's codegen requires
// running `go generate`, which this build never does), so the top-level
// summary fields are written directly against msgp.Writer's streaming API
// instead — a deliberately partial snapshot (totals only, not the full
// per-watcher/per-clause breakdown that statistics.json carries).
func (st *Statistics) SaveMsgp(path string) error {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteMapHeader(4); err != nil {
		return errors.Wrap(err, "cannot encode statistics as msgp")
	}
	fields := []struct {
		name string
		val  uint64
	}{
		{"total_cycle", st.TotalCycle},
		{"icnt_total_messages", st.ICNTStatistics.TotalMessages},
		{"l3_cache_hits", st.L3CacheStatistics.CacheHits},
		{"l3_cache_misses", st.L3CacheStatistics.CacheMisses},
	}
	for _, f := range fields {
		if err := w.WriteString(f.name); err != nil {
			return errors.Wrap(err, "cannot encode statistics as msgp")
		}
		if err := w.WriteUint64(f.val); err != nil {
			return errors.Wrap(err, "cannot encode statistics as msgp")
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "cannot flush msgp writer")
	}
	return cos.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// SaveCycleCount persists the plain total-cycles file, grounded on
// simulator.rs::release_simulator's cycle.json output.
func SaveCycleCount(path string, cycles uint64) error {
	data, err := jsoniter.Marshal(map[string]uint64{"total_cycle": cycles})
	if err != nil {
		return errors.Wrap(err, "cannot marshal cycle count")
	}
	return cos.WriteFileAtomic(path, data, 0o644)
}
