package server

import (
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"battle2d/game"
	"battle2d/netcode"
)

// MaxNameLength 玩家名最大字节数
const MaxNameLength = 32

var ErrInvalidName = errors.New("server: invalid player name")

// HostConfig 主机配置
type HostConfig struct {
	LocalName string // 非空时主机本地也参与游戏
	Seed      uint64 // 出生点随机种子
	RateLimit RateLimitConfig
	MaxShots  int
}

// Host 权威主机：世界状态维护在内存，由单个 Tick goroutine 推进。
// 网络 goroutine 只把解码后的消息写入端点的有界队列，Tick 中非阻塞 drain。
type Host struct {
	ep      *netcode.Endpoint
	world   *game.World
	gen     game.MapGenerator
	peers   *Peers
	metrics *Metrics
	log     *zap.SugaredLogger

	local string
	input InputSource

	// joined 历史上成功登记过的玩家数（含本地玩家）
	joined int

	resetReq chan struct{}
	resetNow bool

	snapshot atomic.Pointer[game.Snapshot]
}

// NewHost 生成首张地图；配置了 LocalName 时直接登记本地玩家
func NewHost(ep *netcode.Endpoint, gen game.MapGenerator, cfg HostConfig) (*Host, error) {
	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	world := game.NewWorld(gen.Generate(), true)
	world.Rand = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5bd1e995))
	if cfg.MaxShots > 0 {
		world.MaxShots = cfg.MaxShots
	}

	h := &Host{
		ep:       ep,
		world:    world,
		gen:      gen,
		peers:    NewPeers(cfg.RateLimit),
		metrics:  NewMetrics("host", ep),
		log:      Named("host"),
		resetReq: make(chan struct{}, 1),
	}
	if cfg.LocalName != "" {
		if err := h.register(cfg.LocalName); err != nil {
			return nil, err
		}
		h.local = cfg.LocalName
	}
	h.publish()
	return h, nil
}

// SetLocalInput 本地玩家输入来源
func (h *Host) SetLocalInput(src InputSource) { h.input = src }

// Tick 网络入 → 本地输入 → 模拟 → 换局检测 → 增量广播 → 发布快照
func (h *Host) Tick(dt float64) {
	start := time.Now()

	h.ep.Drain(h.handle)
	h.applyLocalInput()
	h.world.Step(dt)

	select {
	case <-h.resetReq:
		h.log.Infof("round reset requested by admin")
		h.resetRound()
	default:
		if h.joined > 1 && h.world.AliveCount() <= 1 {
			h.resetRound()
		}
	}

	h.broadcastDelta()
	h.publish()

	h.metrics.AddTick(time.Since(start).Nanoseconds(), len(h.world.Players()), len(h.world.Shots()))
}

func (h *Host) handle(in netcode.Inbound) {
	switch m := in.Message.(type) {
	case netcode.Connect:
		h.onConnect(in.From)
	case netcode.Disconnect:
		h.onDisconnect(in.From)
	case netcode.SetName:
		h.onSetName(in.From, m.Name)
	case netcode.UpdateInputs:
		h.onInputs(in.From, m.Inputs)
	default:
		h.log.Debugf("ignore %s from %s", in.Message.Kind(), in.From)
	}
}

// onConnect 新连接补发当前地图与所有实体（可靠）
func (h *Host) onConnect(addr netcode.Addr) {
	h.peers.Add(addr)
	h.log.Infof("peer connected: %s", addr)

	if err := h.ep.Send(addr, netcode.SetMap{Map: h.world.Map}, netcode.Reliable); err != nil {
		h.log.Warnf("catch-up map to %s failed: %v", addr, err)
		return
	}
	for _, p := range h.world.Players() {
		if err := h.ep.Send(addr, netcode.PlayerUpdate{State: p.State, Inputs: p.Inputs}, netcode.Reliable); err != nil {
			h.log.Warnf("catch-up player %s to %s failed: %v", p.State.Name, addr, err)
		}
	}
	for _, s := range h.world.Shots() {
		if s.State.Lives == 0 {
			continue
		}
		if err := h.ep.Send(addr, netcode.ShotUpdate{State: s.State}, netcode.Reliable); err != nil {
			h.log.Warnf("catch-up shot %s to %s failed: %v", s.State.ID, addr, err)
		}
	}
}

// onDisconnect 只停止向该连接广播；玩家实体保留到进程结束
func (h *Host) onDisconnect(addr netcode.Addr) {
	name, ok := h.peers.Remove(addr)
	if !ok {
		return
	}
	if name != "" {
		h.log.Infof("peer %s (%s) disconnected, player kept", addr, name)
	} else {
		h.log.Infof("peer %s disconnected", addr)
	}
}

func (h *Host) onSetName(addr netcode.Addr, name string) {
	h.peers.Add(addr)

	err := h.validateName(addr, name)
	if err == nil {
		err = h.register(name)
	}
	accepted := err == nil
	h.metrics.IncName(accepted)

	if sendErr := h.ep.Send(addr, netcode.SetNameResponse{Accepted: accepted}, netcode.Reliable); sendErr != nil {
		h.log.Warnf("name response to %s failed: %v", addr, sendErr)
	}
	if !accepted {
		h.log.Infof("reject name %q from %s: %v", name, addr, err)
		return
	}

	h.peers.Bind(addr, name)
	p, _ := h.world.Player(name)
	if err := h.ep.Broadcast(h.peers.Addrs(), netcode.PlayerUpdate{State: p.State, Inputs: p.Inputs}, netcode.Reliable); err != nil {
		h.log.Warnf("broadcast new player %s: %v", name, err)
	}
	p.Dirty = false
	h.log.Infof("player %q joined from %s", name, addr)
}

func (h *Host) validateName(addr netcode.Addr, name string) error {
	if name == "" || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if bound, ok := h.peers.Name(addr); ok {
		return errors.New("peer already joined as " + bound)
	}
	return nil
}

func (h *Host) register(name string) error {
	if _, err := h.world.AddPlayer(name); err != nil {
		return err
	}
	h.joined++
	return nil
}

func (h *Host) onInputs(addr netcode.Addr, in game.Inputs) {
	name, ok := h.peers.Name(addr)
	if !ok {
		h.metrics.IncUnbound()
		return
	}
	if !h.peers.Allow(addr) {
		h.metrics.IncRateLimited()
		return
	}
	p, ok := h.world.Player(name)
	if !ok {
		return
	}
	p.Inputs = mergeInputs(p.Inputs, in)
	h.metrics.IncAccepted()
}

func (h *Host) applyLocalInput() {
	if h.local == "" || h.input == nil {
		return
	}
	in, changed := h.input.Poll()
	if !changed {
		return
	}
	if p, ok := h.world.Player(h.local); ok {
		p.Inputs = mergeInputs(p.Inputs, in)
	}
}

// resetRound 新地图可靠广播；本帧的实体增量也改用可靠通道
func (h *Host) resetRound() {
	m := h.gen.Generate()
	h.world.ResetRound(m)
	if err := h.ep.Broadcast(h.peers.Addrs(), netcode.SetMap{Map: m}, netcode.Reliable); err != nil {
		h.log.Warnf("broadcast new map: %v", err)
	}
	h.resetNow = true
	h.metrics.IncRoundReset()
	h.log.Infof("round over at tick %d, map regenerated", h.world.Tick())
}

// broadcastDelta 只发送脏实体；没有脏实体时不发送任何消息
func (h *Host) broadcastDelta() {
	delivery := netcode.Unreliable
	if h.resetNow {
		delivery = netcode.Reliable
		h.resetNow = false
	}

	players, shots := h.world.DirtyPlayers(), h.world.DirtyShots()
	addrs := h.peers.Addrs()
	for _, p := range players {
		if err := h.ep.Broadcast(addrs, netcode.PlayerUpdate{State: p.State, Inputs: p.Inputs}, delivery); err != nil {
			h.log.Debugf("player update %s: %v", p.State.Name, err)
		}
	}
	for _, s := range shots {
		if err := h.ep.Broadcast(addrs, netcode.ShotUpdate{State: s.State}, delivery); err != nil {
			h.log.Debugf("shot update %s: %v", s.State.ID, err)
		}
	}
	h.world.ClearDirty()
	if len(addrs) > 0 {
		h.metrics.AddUpdates(len(players), len(shots))
	}
}

func (h *Host) publish() {
	h.snapshot.Store(h.world.Snapshot())
}

// RequestReset 请求在 Tick 线程中强制换局；已有待处理请求时返回 false
func (h *Host) RequestReset() bool {
	select {
	case h.resetReq <- struct{}{}:
		return true
	default:
		return false
	}
}

// Snapshot 最近一帧的只读快照，可在任意 goroutine 调用
func (h *Host) Snapshot() *game.Snapshot { return h.snapshot.Load() }

func (h *Host) Peers() *Peers { return h.peers }

func (h *Host) Metrics() *Metrics { return h.metrics }

func (h *Host) Endpoint() *netcode.Endpoint { return h.ep }
