package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"battle2d/game"
	"battle2d/netcode"
)

// AdminNode 管理接口可观察的节点（Host 或 Client）
type AdminNode interface {
	Snapshot() *game.Snapshot
	Metrics() *Metrics
	Endpoint() *netcode.Endpoint
}

// NewAdminRouter 管理与监控路由；ws 非空时在 /ws 挂载 WebSocket 接入
//
//	GET  /healthz
//	GET  /admin/state   最近一帧快照
//	GET  /admin/stats   计数器
//	GET  /admin/peers   已连接对端（仅主机）
//	POST /admin/reset   强制换局（仅主机）
//	GET  /metrics       prometheus
func NewAdminRouter(node AdminNode, ws http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, node.Snapshot())
		})
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			payload := map[string]any{
				"metrics": node.Metrics().Snapshot(),
				"net":     node.Endpoint().Stats(),
			}
			if c, ok := node.(*Client); ok {
				payload["state"] = c.State()
			}
			writeJSON(w, http.StatusOK, payload)
		})
		r.Get("/peers", func(w http.ResponseWriter, r *http.Request) {
			h, ok := node.(*Host)
			if !ok {
				http.Error(w, "not a host", http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, h.Peers().List())
		})
		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			h, ok := node.(*Host)
			if !ok {
				http.Error(w, "not a host", http.StatusNotFound)
				return
			}
			queued := h.RequestReset()
			Log.Infof("admin reset requested: queued=%v", queued)
			writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "queued": queued})
		})
	})

	r.Method(http.MethodGet, "/metrics", node.Metrics().Handler())
	if ws != nil {
		r.Handle("/ws", ws)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
