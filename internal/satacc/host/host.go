// Package host exposes the C-style embedding surface a SAT solver drives:
// build a task, submit it, run the simulator, collect statistics. Handles
// are opaque strings (teris-io/shortid) rather than raw pointers, since
// this build never crosses the cgo boundary. Grounded on
// original_source/rusttools/src/satacc/simulator.rs's #[no_mangle] extern
// "C" functions, renamed to Go method names per SPEC_FULL.md §6.1.
package host

import (
	"sync"

	"github.com/pkg/errors"
	shortid "github.com/teris-io/shortid"
	"github.com/tidwall/buntdb"

	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/trail"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

type Handle string

// simEntry bundles the assembled root component with the runner and an
// optional run ledger (a per-round completion log kept in buntdb, mirroring
// the teacher's run-record idiom — see DESIGN.md).
type simEntry struct {
	sim         *trail.Simulator
	runner      *sim.Runner[satacc.Status]
	totalRounds uint64
	ledger      *buntdb.DB
}

var (
	mu    sync.Mutex
	sims  = make(map[Handle]*simEntry)
	tasks = make(map[Handle]*satacc.SataccMinisatTask)
)

func newHandle() Handle {
	id, err := shortid.Generate()
	if err != nil {
		panic(errors.Wrap(err, "cannot generate handle"))
	}
	return Handle(id)
}

// GetSimulator loads the config at path (or the built-in default when path
// is empty) and returns a fresh simulator handle.
func GetSimulator(configPath string) (Handle, error) {
	cfg := satacc.DefaultConfig()
	if configPath != "" {
		loaded, err := satacc.LoadConfig(configPath)
		if err != nil {
			return "", errors.Wrap(err, "cannot load config")
		}
		cfg = loaded
	}
	s := trail.Build(cfg)
	status := satacc.NewStatus(cfg)
	runner := sim.NewRunner(s.Root, status)

	ledger, err := buntdb.Open(":memory:")
	if err != nil {
		return "", errors.Wrap(err, "cannot open run ledger")
	}

	h := newHandle()
	mu.Lock()
	sims[h] = &simEntry{sim: s, runner: runner, ledger: ledger}
	mu.Unlock()
	return h, nil
}

// CreateEmptyTask returns a fresh task-builder handle.
func CreateEmptyTask() Handle {
	h := newHandle()
	mu.Lock()
	tasks[h] = satacc.NewSataccMinisatTask()
	mu.Unlock()
	return h
}

func getTask(h Handle) (*satacc.SataccMinisatTask, error) {
	mu.Lock()
	defer mu.Unlock()
	t, ok := tasks[h]
	if !ok {
		return nil, errors.Errorf("unknown task handle %q", h)
	}
	return t, nil
}

func getSim(h Handle) (*simEntry, error) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := sims[h]
	if !ok {
		return nil, errors.Errorf("unknown simulator handle %q", h)
	}
	return s, nil
}

func StartNewAssign(h Handle) error {
	t, err := getTask(h)
	if err != nil {
		return err
	}
	t.StartNewAssign()
	return nil
}

func AddWatcherTask(h Handle, level, metaAddr, watcherAddr uint64, watcherID int) error {
	t, err := getTask(h)
	if err != nil {
		return err
	}
	t.AddWatcherTask(level, metaAddr, watcherAddr, watcherID)
	return nil
}

func AddSingleWatcherTask(h Handle, blockerAddr, clauseAddr uint64, clauseID int, processingTime uint64, watcherID int) error {
	t, err := getTask(h)
	if err != nil {
		return err
	}
	t.AddSingleWatcherTask(blockerAddr, clauseAddr, clauseID, processingTime, watcherID)
	return nil
}

func AddSingleWatcherTaskNoClause(h Handle, blockerAddr uint64, watcherID int) error {
	t, err := getTask(h)
	if err != nil {
		return err
	}
	t.AddSingleWatcherTaskNoClause(blockerAddr, watcherID)
	return nil
}

func AddSingleWatcherClauseValueAddr(h Handle, valueAddr uint64, valueID int) error {
	t, err := getTask(h)
	if err != nil {
		return err
	}
	t.AddSingleWatcherClauseValueAddr(valueAddr, valueID)
	return nil
}

// RunSingleTask pops the front round off taskHandle and runs simHandle
// until quiescence. Returns false (without error) on livelock, after the
// scheduler's own 100-tick diagnostic window has already run.
func RunSingleTask(taskHandle, simHandle Handle) (bool, error) {
	t, err := getTask(taskHandle)
	if err != nil {
		return false, err
	}
	round := t.PopNextTask()
	if round == nil {
		return false, errors.New("task has no remaining rounds")
	}
	entry, err := getSim(simHandle)
	if err != nil {
		return false, err
	}
	if !entry.sim.SubmitRound(round) {
		return false, errors.New("cannot submit round: trail input is full")
	}
	if err := entry.runner.Run(); err != nil {
		nlog.Errorln("run_single_task: simulation error", err)
		return false, nil
	}
	entry.totalRounds++
	if entry.totalRounds%1000 == 0 {
		nlog.Infoln("total rounds", entry.totalRounds)
	}
	entry.recordRound(round)
	return true, nil
}

// recordRound folds the finished round's per-round statistics into the
// simulator's running totals and appends a completion marker to the
// in-memory ledger: a fresh random key whose value is the round's finish
// cycle.
func (e *simEntry) recordRound(round *satacc.SingleRoundTask) {
	e.runner.Status().Statistics.UpdateSingleRoundTask(round)
	key := "round:" + string(newHandle())
	_ = e.ledger.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, itoa(e.runner.CurrentCycle()), nil)
		return err
	})
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

func (h Handle) String() string { return string(h) }

// StatusAndCycle exposes the running simulator's shared status and current
// cycle to a metrics exporter. The Statistics counters are plain fields,
// so a reader samples them between RunSingleTask calls, not during one;
// see internal/satacc/metrics.Collectors.Sample.
func StatusAndCycle(simHandle Handle) (*satacc.Status, uint64, error) {
	entry, err := getSim(simHandle)
	if err != nil {
		return nil, 0, err
	}
	return entry.runner.Status(), entry.runner.CurrentCycle(), nil
}

// FinishSimulator switches the root to RealRoundGap, so the run lasts
// until the whole pipeline is idle, and drains every in-flight round.
// Trail's dispatch mode is left as configured. Grounded on simulator.rs::finish_simulator.
func FinishSimulator(simHandle Handle) (bool, error) {
	entry, err := getSim(simHandle)
	if err != nil {
		return false, err
	}
	entry.sim.SetRunMode(trail.RunModeRealRoundGap)
	if err := entry.runner.Run(); err != nil {
		nlog.Errorln("finish_simulator: simulation error", err)
		return false, nil
	}
	nlog.Infoln("finish simulator cycle", entry.runner.CurrentCycle())
	return true, nil
}

// ReleaseSimulator persists statistics and the cycle count, then frees the
// handle. Grounded on simulator.rs::release_simulator.
func ReleaseSimulator(simHandle Handle, statsPath, cyclePath string) error {
	entry, err := getSim(simHandle)
	if err != nil {
		return err
	}
	status := entry.runner.Status()
	status.Statistics.TotalCycle = entry.runner.CurrentCycle()
	if err := status.Statistics.SaveJSON(statsPath); err != nil {
		return err
	}
	if err := satacc.SaveCycleCount(cyclePath, entry.runner.CurrentCycle()); err != nil {
		return err
	}
	entry.ledger.Close()
	mu.Lock()
	delete(sims, simHandle)
	mu.Unlock()
	return nil
}

func ReleaseTask(taskHandle Handle) {
	mu.Lock()
	delete(tasks, taskHandle)
	mu.Unlock()
}

// RunFullExpr combines GetSimulator/RunSingleTask*/FinishSimulator/
// ReleaseSimulator into one call, always in RealRoundGap mode, grounded on
// simulator.rs::run_full_expr.
func RunFullExpr(taskHandle Handle, configPath, statsPath, cyclePath string) (bool, error) {
	simHandle, err := GetSimulator(configPath)
	if err != nil {
		return false, err
	}
	defer ReleaseSimulator(simHandle, statsPath, cyclePath)

	entry, err := getSim(simHandle)
	if err != nil {
		return false, err
	}
	entry.sim.SetRunMode(trail.RunModeRealRoundGap)

	t, err := getTask(taskHandle)
	if err != nil {
		return false, err
	}
	for {
		round := t.PopNextTask()
		if round == nil {
			break
		}
		if !entry.sim.SubmitRound(round) {
			return false, errors.New("cannot submit round: trail input is full")
		}
		if err := entry.runner.Run(); err != nil {
			nlog.Errorln("run_full_expr: simulation error", err)
			return false, nil
		}
		entry.recordRound(round)
	}
	nlog.Infoln("simulator finished, total cycles", entry.runner.CurrentCycle())
	return true, nil
}
