package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"battle2d/game"
	"battle2d/netcode"
)

// DefaultNameAttempts 名字被拒后的最大尝试次数（含第一次）
const DefaultNameAttempts = 5

type clientState int32

const (
	clientConnecting clientState = iota
	clientNaming
	clientJoined
	clientObserving
	clientDisconnected
)

func (s clientState) String() string {
	switch s {
	case clientConnecting:
		return "connecting"
	case clientNaming:
		return "naming"
	case clientJoined:
		return "joined"
	case clientObserving:
		return "observing"
	case clientDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ClientConfig 客户端配置
type ClientConfig struct {
	HostAddr     netcode.Addr
	Name         string
	Observe      bool // 只观战，不登记名字
	NameAttempts int
}

// Client 远端副本：应用主机下发的状态，本地只做运动推算，
// 并在本地输入变化时向主机发送 UpdateInputs。
type Client struct {
	ep      *netcode.Endpoint
	world   *game.World
	metrics *Metrics
	log     *zap.SugaredLogger
	input   InputSource

	host     netcode.Addr
	baseName string
	name     string
	attempts int
	maxTries int
	observe  bool

	state  atomic.Int32
	inputs game.Inputs
	dirty  bool

	snapshot atomic.Pointer[game.Snapshot]
}

func NewClient(ep *netcode.Endpoint, cfg ClientConfig) *Client {
	if cfg.NameAttempts <= 0 {
		cfg.NameAttempts = DefaultNameAttempts
	}
	c := &Client{
		ep:       ep,
		world:    game.NewWorld(nil, false),
		metrics:  NewMetrics("client", ep),
		log:      Named("client"),
		host:     cfg.HostAddr,
		baseName: cfg.Name,
		name:     cfg.Name,
		maxTries: cfg.NameAttempts,
		observe:  cfg.Observe,
	}
	c.publish()
	return c
}

// SetInput 本地输入来源；观战模式下忽略
func (c *Client) SetInput(src InputSource) { c.input = src }

// Start 发起连接；SetName 在收到 Connect 后发送
func (c *Client) Start() error {
	if err := c.ep.Connect(c.host); err != nil {
		return fmt.Errorf("connect to host %s: %w", c.host, err)
	}
	return nil
}

// Tick 网络入 → 本地输入 → 副本推算 → 发送输入 → 发布快照
func (c *Client) Tick(dt float64) {
	start := time.Now()

	c.ep.Drain(c.handle)
	c.pollInput()
	c.world.Step(dt)
	c.sendInputs()
	c.publish()

	c.metrics.AddTick(time.Since(start).Nanoseconds(), len(c.world.Players()), len(c.world.Shots()))
}

func (c *Client) handle(in netcode.Inbound) {
	switch m := in.Message.(type) {
	case netcode.Connect:
		if in.From == c.host || c.host == "" {
			c.onConnect()
		}
	case netcode.Disconnect:
		if in.From == c.host {
			c.setState(clientDisconnected)
			c.log.Warnf("host %s disconnected", in.From)
		}
	case netcode.SetNameResponse:
		c.onNameResponse(m.Accepted)
	case netcode.SetMap:
		c.world.SetMap(m.Map)
	case netcode.PlayerUpdate:
		c.applyPlayer(m.State, m.Inputs)
	case netcode.ShotUpdate:
		c.applyShot(m.State)
	default:
		c.log.Debugf("ignore %s from %s", in.Message.Kind(), in.From)
	}
}

func (c *Client) onConnect() {
	c.log.Infof("connected to host %s", c.host)
	if c.observe || c.name == "" {
		c.setState(clientObserving)
		return
	}
	c.requestName()
}

func (c *Client) requestName() {
	c.attempts++
	c.setState(clientNaming)
	if err := c.ep.Send(c.host, netcode.SetName{Name: c.name}, netcode.Reliable); err != nil {
		c.log.Errorf("send name %q: %v", c.name, err)
	}
}

// onNameResponse 被拒时依次尝试 name-2、name-3 …，用尽后转为观战
func (c *Client) onNameResponse(accepted bool) {
	if c.current() != clientNaming {
		return
	}
	if accepted {
		c.setState(clientJoined)
		c.metrics.IncName(true)
		c.log.Infof("joined as %q", c.name)
		if p, ok := c.world.Player(c.name); ok {
			p.Inputs = c.inputs
		}
		return
	}
	c.metrics.IncName(false)
	if c.attempts >= c.maxTries {
		c.log.Warnf("name %q rejected, giving up after %d attempts; observing", c.name, c.attempts)
		c.setState(clientObserving)
		return
	}
	rejected := c.name
	c.name = fmt.Sprintf("%s-%d", c.baseName, c.attempts+1)
	c.log.Infof("name %q rejected, retrying as %q", rejected, c.name)
	c.requestName()
}

// applyPlayer 本地玩家：lives / 颜色总是采用主机值；
// 位置与速度仅在未按方向/跳跃键且着地时采用；输入从不被覆盖
func (c *Client) applyPlayer(state game.PlayerState, in game.Inputs) {
	if c.isLocal(state.Name) {
		if p, ok := c.world.Player(state.Name); ok {
			p.State.Lives = state.Lives
			p.State.Color = state.Color
			if !c.inputs.Left && !c.inputs.Right && !c.inputs.Jump && p.OnGround {
				p.State.X, p.State.Y = state.X, state.Y
				p.State.DX, p.State.DY = state.DX, state.DY
				p.State.W, p.State.H = state.W, state.H
			}
			return
		}
		c.world.UpsertPlayer(state, c.inputs)
		return
	}
	c.world.UpsertPlayer(state, in)
}

// applyShot 按 ShotID 插入或覆盖；新子弹的颜色取归属玩家颜色
func (c *Client) applyShot(state game.ShotState) {
	if s, ok := c.world.Shot(state.ID); ok {
		state.Color = s.State.Color
	} else {
		state.Color = c.world.ColorOf(state.ID.Owner)
	}
	c.world.UpsertShot(state)
}

func (c *Client) isLocal(name string) bool {
	return c.current() == clientJoined && name == c.name
}

func (c *Client) pollInput() {
	if c.input == nil || c.observe {
		return
	}
	in, changed := c.input.Poll()
	if changed && significantChange(c.inputs, in) {
		c.dirty = true
	}
	if changed {
		c.inputs = mergeInputs(c.inputs, in)
	}
	if p, ok := c.world.Player(c.name); ok && c.isLocal(c.name) {
		p.Inputs = c.inputs
	}
}

// sendInputs 仅在输入变化时发送（不可靠），发送后清除边沿输入
func (c *Client) sendInputs() {
	if !c.dirty || c.current() != clientJoined {
		return
	}
	if err := c.ep.Send(c.host, netcode.UpdateInputs{Inputs: c.inputs}, netcode.Unreliable); err != nil {
		c.log.Debugf("send inputs: %v", err)
	}
	c.dirty = false
	c.inputs.Jump, c.inputs.Shoot = false, false
}

func (c *Client) publish() {
	c.snapshot.Store(c.world.Snapshot())
}

func (c *Client) setState(s clientState) { c.state.Store(int32(s)) }

func (c *Client) current() clientState { return clientState(c.state.Load()) }

// State 连接状态：connecting / naming / joined / observing / disconnected
func (c *Client) State() string { return c.current().String() }

// Name 当前使用（或正在申请）的名字
func (c *Client) Name() string { return c.name }

// Snapshot 最近一帧的只读快照，可在任意 goroutine 调用
func (c *Client) Snapshot() *game.Snapshot { return c.snapshot.Load() }

func (c *Client) Metrics() *Metrics { return c.metrics }

func (c *Client) Endpoint() *netcode.Endpoint { return c.ep }
