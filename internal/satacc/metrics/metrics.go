// Package metrics exports live simulator counters over Prometheus, grounded
// on the exporter shape used across the pack's service metrics packages
// (prometheus/client_golang + promhttp).
package metrics

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shenjiangqiu/satacc/internal/nlog"
	"github.com/shenjiangqiu/satacc/internal/satacc"
)

// Collectors holds the gauges a running simulation keeps current. Values
// are pulled from *satacc.Status/Statistics on every Sample call rather
// than updated inline by the hot path, keeping the simulation loop free of
// Prometheus client locking.
type Collectors struct {
	registry *prometheus.Registry

	cycle        prometheus.Gauge
	watcherBusy  *prometheus.GaugeVec
	watcherIdle  *prometheus.GaugeVec
	clauseBusy   *prometheus.GaugeVec
	clauseIdle   *prometheus.GaugeVec
	icntAvgLat   *prometheus.GaugeVec
	cacheHitRate *prometheus.GaugeVec
	levelCurrent prometheus.Gauge
}

func NewCollectors() *Collectors {
	r := prometheus.NewRegistry()
	c := &Collectors{
		registry: r,
		cycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "cycle_total", Help: "current simulation cycle",
		}),
		watcherBusy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "watcher_busy_cycles", Help: "busy cycles per watcher PE",
		}, []string{"watcher"}),
		watcherIdle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "watcher_idle_cycles", Help: "idle cycles per watcher PE",
		}, []string{"watcher"}),
		clauseBusy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "clause_busy_cycles", Help: "busy cycles per clause PE",
		}, []string{"watcher", "clause"}),
		clauseIdle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "clause_idle_cycles", Help: "idle cycles per clause PE",
		}, []string{"watcher", "clause"}),
		icntAvgLat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "icnt_avg_latency", Help: "running average message latency",
		}, []string{"icnt"}),
		cacheHitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "cache_hit_rate", Help: "hits / (hits+misses)",
		}, []string{"cache"}),
		levelCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "satacc", Name: "level_current", Help: "current level-sync barrier level",
		}),
	}
	r.MustRegister(c.cycle, c.watcherBusy, c.watcherIdle, c.clauseBusy, c.clauseIdle,
		c.icntAvgLat, c.cacheHitRate, c.levelCurrent)
	return c
}

// Sample reads the current counters off status and pushes them into the
// gauges. CurrentLevel is read atomically; the Statistics counters are
// plain fields, so a Sample that overlaps a run races with it (the CLI
// samples between rounds).
func (c *Collectors) Sample(cycle uint64, status *satacc.Status) {
	c.cycle.Set(float64(cycle))
	c.levelCurrent.Set(float64(status.CurrentLevel()))

	for i, ws := range status.Statistics.WatcherStatistics {
		label := strconv.Itoa(i)
		c.watcherBusy.WithLabelValues(label).Set(float64(ws.BusyCycle))
		c.watcherIdle.WithLabelValues(label).Set(float64(ws.IdleCycle))
	}
	for w, cs := range status.Statistics.ClauseStatistics {
		wLabel := strconv.Itoa(w)
		for cl, s := range cs.SingleClause {
			clLabel := strconv.Itoa(cl)
			c.clauseBusy.WithLabelValues(wLabel, clLabel).Set(float64(s.BusyCycle))
			c.clauseIdle.WithLabelValues(wLabel, clLabel).Set(float64(s.IdleCycle))
		}
	}
	c.icntAvgLat.WithLabelValues("mem").Set(status.Statistics.ICNTStatistics.AverageLatency.Average())

	l3 := status.Statistics.L3CacheStatistics
	total := l3.CacheHits + l3.CacheMisses
	if total > 0 {
		c.cacheHitRate.WithLabelValues("l3").Set(float64(l3.CacheHits) / float64(total))
	}
}

// Serve runs the metrics HTTP endpoint until ctx is cancelled, returning
// when the listener shuts down cleanly. Grounded on the pack's
// ListenAndServeContext exporter shape.
func (c *Collectors) Serve(ctx context.Context, hostname string, port int) error {
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	server := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nlog.Infoln("metrics: listening on", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
