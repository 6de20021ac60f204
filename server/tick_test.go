package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	n  atomic.Int64
	dt atomic.Value
}

func (c *countingTicker) Tick(dt float64) {
	c.dt.Store(dt)
	c.n.Add(1)
}

func TestRunTickerFixedStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ct := &countingTicker{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunTicker(ctx, 200, ct)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ct.n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunTicker did not stop on cancel")
	}
	if ct.n.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ct.n.Load())
	}
	if dt := ct.dt.Load().(float64); dt != 1.0/200 {
		t.Errorf("dt = %v, want fixed 1/200", dt)
	}
}
