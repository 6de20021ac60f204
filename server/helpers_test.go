package server

import (
	"context"
	"testing"
	"time"

	"battle2d/game"
	"battle2d/netcode"
)

const testDt = 1.0 / 60

// arenaMap 四周是墙的空场地
func arenaMap(t *testing.T) *game.Map {
	t.Helper()
	return buildArena(t, nil)
}

// platformMap 场地中间多一条平台
func platformMap(t *testing.T) *game.Map {
	t.Helper()
	return buildArena(t, func(cells []bool, w, h int) {
		for x := 10; x < 20; x++ {
			cells[15*w+x] = true
		}
	})
}

func buildArena(t *testing.T, extra func(cells []bool, w, h int)) *game.Map {
	t.Helper()
	w, h := game.DefaultGridWidth, game.DefaultGridHeight
	cells := make([]bool, w*h)
	for x := 0; x < w; x++ {
		cells[x] = true
		cells[(h-1)*w+x] = true
	}
	for y := 0; y < h; y++ {
		cells[y*w] = true
		cells[y*w+w-1] = true
	}
	if extra != nil {
		extra(cells, w, h)
	}
	m, err := game.NewMap(w, h, cells)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// cycleGenerator 依次返回给定地图，并记录调用次数
type cycleGenerator struct {
	maps  []*game.Map
	calls int
}

func (g *cycleGenerator) Generate() *game.Map {
	m := g.maps[g.calls%len(g.maps)]
	g.calls++
	return m
}

func startEndpoint(t *testing.T, n *netcode.MemoryNetwork, addr netcode.Addr) *netcode.Endpoint {
	t.Helper()
	tr, err := n.Listen(addr)
	if err != nil {
		t.Fatal(err)
	}
	ep := netcode.NewEndpoint(tr, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ep.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = ep.Close()
		<-done
	})
	return ep
}

func newTestHost(t *testing.T, n *netcode.MemoryNetwork, gen game.MapGenerator, cfg HostConfig) *Host {
	t.Helper()
	h, err := NewHost(startEndpoint(t, n, "host"), gen, cfg)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	return h
}

func newTestClient(t *testing.T, n *netcode.MemoryNetwork, cfg ClientConfig) *Client {
	t.Helper()
	addr := netcode.Addr("client-" + cfg.Name)
	if cfg.Observe {
		addr = "observer"
	}
	cfg.HostAddr = "host"
	c := NewClient(startEndpoint(t, n, addr), cfg)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c
}

// tickUntil 推进所有节点直到条件成立
func tickUntil(t *testing.T, what string, cond func() bool, nodes ...Ticker) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		for _, n := range nodes {
			n.Tick(testDt)
		}
		time.Sleep(time.Millisecond)
	}
}

func findPlayer(s *game.Snapshot, name string) (game.PlayerState, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return game.PlayerState{}, false
}
