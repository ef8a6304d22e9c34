// Command satacc-sim drives the simulator from a JSON trace of decision
// rounds, grounded on the pack's urfave/cli + mpb/v4 CLI idiom.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc/host"
	"github.com/shenjiangqiu/satacc/internal/satacc/metrics"
)

// traceRound is the on-disk shape of one decision round in the input
// trace file, mirroring SataccMinisatTask's builder call sequence.
type traceRound struct {
	Watchers []struct {
		Level       uint64 `json:"level"`
		MetaAddr    uint64 `json:"meta_addr"`
		WatcherAddr uint64 `json:"watcher_addr"`
		WatcherID   int    `json:"watcher_id"`
		SubTasks    []struct {
			BlockerAddr    uint64   `json:"blocker_addr"`
			ClauseAddr     uint64   `json:"clause_addr,omitempty"`
			ClauseID       int      `json:"clause_id,omitempty"`
			ProcessingTime uint64   `json:"processing_time,omitempty"`
			HasClause      bool     `json:"has_clause"`
			ValueAddrs     []uint64 `json:"value_addrs,omitempty"`
			ValueIDs       []int    `json:"value_ids,omitempty"`
		} `json:"sub_tasks"`
	} `json:"watchers"`
}

func main() {
	app := cli.NewApp()
	app.Name = "satacc-sim"
	app.Usage = "run the SAT-accelerator micro-architectural simulator"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to a config JSON file"},
		cli.StringFlag{Name: "trace", Usage: "path to the decision-round trace JSON file", Required: true},
		cli.StringFlag{Name: "stats-out", Value: "statistics.json", Usage: "where to write the final statistics"},
		cli.StringFlag{Name: "cycle-out", Value: "cycle.json", Usage: "where to write the total cycle count"},
		cli.BoolFlag{Name: "binary-stats", Usage: "also write a compact msgp snapshot alongside stats-out"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress the progress bar"},
		cli.StringFlag{Name: "metrics-addr", Usage: "host:port to serve live Prometheus metrics on (disabled if empty)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		nlog.Errorln("satacc-sim:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	rounds, err := loadTrace(c.String("trace"))
	if err != nil {
		return errors.Wrap(err, "cannot load trace")
	}

	taskHandle := host.CreateEmptyTask()
	defer host.ReleaseTask(taskHandle)
	if err := buildTask(taskHandle, rounds); err != nil {
		return errors.Wrap(err, "cannot build task")
	}

	simHandle, err := host.GetSimulator(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "cannot create simulator")
	}

	var collectors *metrics.Collectors
	if addr := c.String("metrics-addr"); addr != "" {
		metricsHost, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return errors.Wrap(err, "invalid metrics-addr")
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return errors.Wrap(err, "invalid metrics-addr port")
		}
		collectors = metrics.NewCollectors()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := collectors.Serve(ctx, metricsHost, port); err != nil {
				nlog.Errorln("metrics server stopped:", err)
			}
		}()
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if !c.Bool("quiet") {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(rounds)),
			mpb.PrependDecorators(decor.Name("rounds", decor.WC{W: 8})),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d"), decor.Elapsed(decor.ET_STYLE_GO, time.Now())),
		)
	}

	for range rounds {
		ok, err := host.RunSingleTask(taskHandle, simHandle)
		if err != nil {
			return errors.Wrap(err, "run_single_task failed")
		}
		if !ok {
			nlog.Warningln("satacc-sim: simulator reported livelock, stopping early")
			break
		}
		if collectors != nil {
			if status, cycle, err := host.StatusAndCycle(simHandle); err == nil {
				collectors.Sample(cycle, status)
			}
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if progress != nil {
		progress.Wait()
	}

	ok, err := host.FinishSimulator(simHandle)
	if err != nil {
		return errors.Wrap(err, "finish_simulator failed")
	}
	if !ok {
		nlog.Warningln("satacc-sim: drain pass reported livelock")
	}

	statsPath := c.String("stats-out")
	if c.Bool("binary-stats") {
		status, cycle, err := host.StatusAndCycle(simHandle)
		if err != nil {
			return errors.Wrap(err, "cannot read statistics")
		}
		status.Statistics.TotalCycle = cycle
		msgpPath := strings.TrimSuffix(statsPath, filepath.Ext(statsPath)) + ".msgp"
		if err := status.Statistics.SaveMsgp(msgpPath); err != nil {
			return errors.Wrap(err, "cannot write binary stats")
		}
		nlog.Infoln("binary stats snapshot written to", msgpPath)
	}
	if err := host.ReleaseSimulator(simHandle, statsPath, c.String("cycle-out")); err != nil {
		return errors.Wrap(err, "release_simulator failed")
	}
	fmt.Println("done:", statsPath)
	return nil
}

func loadTrace(path string) ([]traceRound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rounds []traceRound
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &rounds); err != nil {
		return nil, errors.Wrap(err, "cannot parse trace JSON")
	}
	return rounds, nil
}

func buildTask(h host.Handle, rounds []traceRound) error {
	for _, round := range rounds {
		if err := host.StartNewAssign(h); err != nil {
			return err
		}
		for _, w := range round.Watchers {
			if err := host.AddWatcherTask(h, w.Level, w.MetaAddr, w.WatcherAddr, w.WatcherID); err != nil {
				return err
			}
			for _, st := range w.SubTasks {
				if !st.HasClause {
					if err := host.AddSingleWatcherTaskNoClause(h, st.BlockerAddr, w.WatcherID); err != nil {
						return err
					}
					continue
				}
				if err := host.AddSingleWatcherTask(h, st.BlockerAddr, st.ClauseAddr, st.ClauseID, st.ProcessingTime, w.WatcherID); err != nil {
					return err
				}
				for i, addr := range st.ValueAddrs {
					if err := host.AddSingleWatcherClauseValueAddr(h, addr, st.ValueIDs[i]); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
