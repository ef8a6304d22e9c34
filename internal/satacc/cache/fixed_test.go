package cache

import (
	"testing"

	"github.com/shenjiangqiu/satacc/internal/satacc"
	"github.com/shenjiangqiu/satacc/internal/satacc/icnt"
	"github.com/shenjiangqiu/satacc/internal/sim"
)

func newTestFixedCache(t *testing.T, hit, miss uint64) (*WithFixedLatency, []sim.InOutPort[reqMsg]) {
	t.Helper()
	g := Geometry{Sets: 4, Associativity: 2, BlockSize: 64, Channels: 1}
	base, far := sim.NewInOutPortArray[reqMsg](4, 1)
	c := NewWithFixedLatency(g, base, hit, miss, satacc.L3CacheID())
	return c, far
}

func sendReq(t *testing.T, port sim.InOutPort[reqMsg], addr uint64, id uint64) {
	t.Helper()
	req := satacc.MemReq{Addr: addr, ID: id, ReqType: satacc.MemReqType{Kind: satacc.WatcherReadMetaData}}
	ok, _ := port.Out.Send(icnt.Wrapper[satacc.MemReq]{Msg: req})
	if !ok {
		t.Fatalf("could not send request addr=%d", addr)
	}
}

func TestWithFixedLatencyMissThenHitLatencies(t *testing.T) {
	c, far := newTestFixedCache(t, 2, 10)
	status := satacc.NewStatus(satacc.DefaultConfig())

	sendReq(t, far[0], 0, 1)
	busy, updated := c.Update(status, 0)
	if !busy || !updated {
		t.Fatalf("expected busy+updated on request intake, got %v %v", busy, updated)
	}
	if status.Statistics.L3CacheStatistics.CacheMisses != 1 {
		t.Fatalf("expected one miss recorded, got %+v", status.Statistics.L3CacheStatistics)
	}

	// response not ready until cycle 10 (miss latency)
	for cyc := uint64(1); cyc < 10; cyc++ {
		if _, ok := far[0].In.Recv(); ok {
			t.Fatalf("response arrived too early at cycle %d", cyc)
		}
		c.Update(status, cyc)
	}
	c.Update(status, 10)
	msg, ok := far[0].In.Recv()
	if !ok {
		t.Fatalf("expected response at cycle 10")
	}
	if msg.Msg.Addr != 0 {
		t.Fatalf("got response for wrong address: %d", msg.Msg.Addr)
	}

	// second access to same block should now hit
	sendReq(t, far[0], 0, 2)
	c.Update(status, 11)
	if status.Statistics.L3CacheStatistics.CacheHits != 1 {
		t.Fatalf("expected one hit recorded, got %+v", status.Statistics.L3CacheStatistics)
	}
	for cyc := uint64(12); cyc <= 13; cyc++ {
		c.Update(status, cyc)
	}
	if _, ok := far[0].In.Recv(); !ok {
		t.Fatalf("expected hit response by cycle 13")
	}
}

func TestWithFixedLatencyCoalescesSameTagRequests(t *testing.T) {
	c, far := newTestFixedCache(t, 2, 10)
	status := satacc.NewStatus(satacc.DefaultConfig())

	sendReq(t, far[0], 0, 1)
	c.Update(status, 0)
	sendReq(t, far[0], 1, 2) // same block as addr 0
	c.Update(status, 1)

	if status.Statistics.L3CacheStatistics.CacheMisses != 1 {
		t.Fatalf("expected coalesced request not to record a second miss, got %+v", status.Statistics.L3CacheStatistics)
	}

	var got []uint64
	for cyc := uint64(2); cyc <= 10; cyc++ {
		c.Update(status, cyc)
		for {
			msg, ok := far[0].In.Recv()
			if !ok {
				break
			}
			got = append(got, msg.Msg.ID)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected both coalesced requests to return, got %v", got)
	}
}
