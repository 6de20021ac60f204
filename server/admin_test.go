package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"battle2d/game"
	"battle2d/netcode"
)

func TestAdminRouterHost(t *testing.T) {
	gen := &cycleGenerator{maps: []*game.Map{arenaMap(t)}}
	n := netcode.NewMemoryNetwork(1)
	h := newTestHost(t, n, gen, HostConfig{LocalName: "admin"})
	h.Tick(testDt)

	srv := httptest.NewServer(NewAdminRouter(h, nil))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, _ := get("/healthz"); code != http.StatusOK {
		t.Errorf("healthz status %d", code)
	}

	code, body := get("/admin/state")
	if code != http.StatusOK {
		t.Fatalf("state status %d", code)
	}
	var snap game.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(snap.Players) != 1 || snap.Players[0].Name != "admin" || snap.MapWidth != game.DefaultGridWidth {
		t.Errorf("unexpected state %+v", snap)
	}

	if code, body := get("/admin/stats"); code != http.StatusOK || !strings.Contains(body, "tick_count") {
		t.Errorf("stats %d %s", code, body)
	}
	if code, body := get("/admin/peers"); code != http.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Errorf("peers %d %s", code, body)
	}
	if code, body := get("/metrics"); code != http.StatusOK || !strings.Contains(body, "game_tick_duration_seconds") {
		t.Errorf("metrics %d missing tick histogram", code)
	}

	resp, err := http.Post(srv.URL+"/admin/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("reset status %d", resp.StatusCode)
	}
	h.Tick(testDt)
	if gen.calls != 2 {
		t.Errorf("reset not applied on tick, calls=%d", gen.calls)
	}
	if code, _ := get("/ws"); code != http.StatusNotFound {
		t.Errorf("ws route should not exist without transport, got %d", code)
	}
}

func TestAdminRouterClient(t *testing.T) {
	n := netcode.NewMemoryNetwork(1)
	c := NewClient(startEndpoint(t, n, "c"), ClientConfig{HostAddr: "host", Observe: true})

	srv := httptest.NewServer(NewAdminRouter(c, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("client must not accept reset, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/admin/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["state"] != "connecting" {
		t.Errorf("expected connecting state, got %v", stats["state"])
	}
}
