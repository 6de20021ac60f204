package server

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"battle2d/netcode"
)

// Metrics 记录主机/客户端运行期的关键指标（用于监控与调试）。
// 原子计数供 /admin/stats 输出，同时镜像到独立的 prometheus registry。
type Metrics struct {
	TickCount      int64 // 统计的 Tick 次数
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
	InputsAccepted int64 // 被接受的输入数
	RateLimited    int64 // 因限流被拒绝的输入数
	Unbound        int64 // 未登记名字的对端发来的输入
	NamesAccepted  int64
	NamesRejected  int64
	RoundResets    int64
	PlayerUpdates  int64 // 发出的 PlayerUpdate 条数
	ShotUpdates    int64 // 发出的 ShotUpdate 条数

	registry     *prometheus.Registry
	tickDuration prometheus.Histogram
	players      prometheus.Gauge
	shots        prometheus.Gauge
	inputs       *prometheus.CounterVec
	updates      *prometheus.CounterVec
	names        *prometheus.CounterVec
	resets       prometheus.Counter
}

// NewMetrics role 为 "host" 或 "client"；ep 的计数以 CounterFunc 形式导出
func NewMetrics(role string, ep *netcode.Endpoint) *Metrics {
	labels := prometheus.Labels{"role": role}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "game_tick_duration_seconds",
			Help:        "Time spent in one simulation tick",
			Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
			ConstLabels: labels,
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "game_player_count",
			Help:        "Current number of players",
			ConstLabels: labels,
		}),
		shots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "game_shot_count",
			Help:        "Current number of live shots",
			ConstLabels: labels,
		}),
		inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "game_inputs_total",
			Help:        "Remote input updates by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}), // accepted / rate_limited / unbound
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "game_entity_updates_sent_total",
			Help:        "Entity delta messages sent",
			ConstLabels: labels,
		}, []string{"entity"}), // player / shot
		names: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "game_name_requests_total",
			Help:        "SetName requests by result",
			ConstLabels: labels,
		}, []string{"result"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "game_round_resets_total",
			Help:        "Rounds ended and maps regenerated",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.tickDuration, m.players, m.shots, m.inputs, m.updates, m.names, m.resets)

	if ep != nil {
		endpointCounter := func(name, help string, read func(netcode.EndpointStats) uint64) prometheus.Collector {
			return prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name:        name,
				Help:        help,
				ConstLabels: labels,
			}, func() float64 { return float64(read(ep.Stats())) })
		}
		m.registry.MustRegister(
			endpointCounter("net_messages_received_total", "Decoded inbound messages", func(s netcode.EndpointStats) uint64 { return s.Received }),
			endpointCounter("net_messages_malformed_total", "Inbound packets dropped as malformed", func(s netcode.EndpointStats) uint64 { return s.Malformed }),
			endpointCounter("net_inbox_dropped_total", "Inbound messages dropped because the inbox was full", func(s netcode.EndpointStats) uint64 { return s.InboxFull }),
			endpointCounter("net_messages_sent_total", "Outbound packets handed to the transport", func(s netcode.EndpointStats) uint64 { return s.Sent }),
			endpointCounter("net_send_failed_total", "Outbound packets that failed to send", func(s netcode.EndpointStats) uint64 { return s.SendFailed }),
		)
	}
	return m
}

func (m *Metrics) IncAccepted() {
	atomic.AddInt64(&m.InputsAccepted, 1)
	m.inputs.WithLabelValues("accepted").Inc()
}

func (m *Metrics) IncRateLimited() {
	atomic.AddInt64(&m.RateLimited, 1)
	m.inputs.WithLabelValues("rate_limited").Inc()
}

func (m *Metrics) IncUnbound() {
	atomic.AddInt64(&m.Unbound, 1)
	m.inputs.WithLabelValues("unbound").Inc()
}

func (m *Metrics) IncName(accepted bool) {
	if accepted {
		atomic.AddInt64(&m.NamesAccepted, 1)
		m.names.WithLabelValues("accepted").Inc()
		return
	}
	atomic.AddInt64(&m.NamesRejected, 1)
	m.names.WithLabelValues("rejected").Inc()
}

func (m *Metrics) IncRoundReset() {
	atomic.AddInt64(&m.RoundResets, 1)
	m.resets.Inc()
}

func (m *Metrics) AddUpdates(players, shots int) {
	atomic.AddInt64(&m.PlayerUpdates, int64(players))
	atomic.AddInt64(&m.ShotUpdates, int64(shots))
	m.updates.WithLabelValues("player").Add(float64(players))
	m.updates.WithLabelValues("shot").Add(float64(shots))
}

func (m *Metrics) AddTick(ns int64, players, shots int) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
	m.tickDuration.Observe(float64(ns) / 1e9)
	m.players.Set(float64(players))
	m.shots.Set(float64(shots))
}

// Handler prometheus 文本格式输出
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"avg_tick_ms":     avgMs,
		"inputs_accepted": atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":    atomic.LoadInt64(&m.RateLimited),
		"unbound_inputs":  atomic.LoadInt64(&m.Unbound),
		"names_accepted":  atomic.LoadInt64(&m.NamesAccepted),
		"names_rejected":  atomic.LoadInt64(&m.NamesRejected),
		"round_resets":    atomic.LoadInt64(&m.RoundResets),
		"player_updates":  atomic.LoadInt64(&m.PlayerUpdates),
		"shot_updates":    atomic.LoadInt64(&m.ShotUpdates),
	}
}
