package netcode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultInboxSize 入站队列容量
const DefaultInboxSize = 1024

// Inbound 已解码的入站消息
type Inbound struct {
	From    Addr
	Message Message
}

// EndpointStats 端点计数（只增不减）
type EndpointStats struct {
	Received   uint64 `json:"received"`
	Malformed  uint64 `json:"malformed"`
	InboxFull  uint64 `json:"inboxFull"`
	Sent       uint64 `json:"sent"`
	SendFailed uint64 `json:"sendFailed"`
}

// Endpoint 传输层 + 编解码 + 有界入站队列。
// 数据包非阻塞写入，队列满即丢弃；Connect / Disconnect 不丢，
// 阻塞到模拟线程 Drain、ctx 取消或端点关闭。
type Endpoint struct {
	t     Transport
	inbox chan Inbound
	log   *zap.SugaredLogger

	closed    chan struct{}
	closeOnce sync.Once

	received   atomic.Uint64
	malformed  atomic.Uint64
	inboxFull  atomic.Uint64
	sent       atomic.Uint64
	sendFailed atomic.Uint64
}

// NewEndpoint inboxSize <= 0 时使用默认容量；log 可为 nil
func NewEndpoint(t Transport, inboxSize int, log *zap.SugaredLogger) *Endpoint {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Endpoint{
		t:      t,
		inbox:  make(chan Inbound, inboxSize),
		log:    log,
		closed: make(chan struct{}),
	}
}

// Run 阻塞运行传输层接收循环
func (e *Endpoint) Run(ctx context.Context) error {
	return e.t.Run(ctx, func(ev Event) { e.deliver(ctx, ev) })
}

func (e *Endpoint) deliver(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventConnect:
		e.deliverPresence(ctx, Inbound{From: ev.From, Message: Connect{}})
	case EventDisconnect:
		e.deliverPresence(ctx, Inbound{From: ev.From, Message: Disconnect{}})
	case EventReceive:
		msg, err := Decode(ev.Payload)
		if err != nil {
			e.malformed.Add(1)
			e.log.Debugf("drop malformed packet from %s: %v", ev.From, err)
			return
		}
		e.received.Add(1)
		select {
		case e.inbox <- Inbound{From: ev.From, Message: msg}:
		default:
			e.inboxFull.Add(1)
			e.log.Debugf("inbox full, drop %s from %s", msg.Kind(), ev.From)
		}
	}
}

// deliverPresence 保持与数据包的先后顺序，只在退出时放弃
func (e *Endpoint) deliverPresence(ctx context.Context, in Inbound) {
	select {
	case e.inbox <- in:
		e.received.Add(1)
	case <-ctx.Done():
	case <-e.closed:
	}
}

// Drain 非阻塞取出当前队列中的所有消息，返回条数
func (e *Endpoint) Drain(fn func(Inbound)) int {
	n := 0
	for {
		select {
		case in := <-e.inbox:
			fn(in)
			n++
		default:
			return n
		}
	}
}

// Send 编码并发送单条消息
func (e *Endpoint) Send(to Addr, m Message, d Delivery) error {
	b, err := Encode(m)
	if err != nil {
		e.sendFailed.Add(1)
		return err
	}
	return e.sendRaw(to, b, d)
}

// Broadcast 编码一次，发送给所有对端；返回遇到的全部发送错误
func (e *Endpoint) Broadcast(to []Addr, m Message, d Delivery) error {
	if len(to) == 0 {
		return nil
	}
	b, err := Encode(m)
	if err != nil {
		e.sendFailed.Add(1)
		return err
	}
	var errs []error
	for _, addr := range to {
		if err := e.sendRaw(addr, b, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Endpoint) sendRaw(to Addr, b []byte, d Delivery) error {
	if err := e.t.Send(to, b, d); err != nil {
		e.sendFailed.Add(1)
		return err
	}
	e.sent.Add(1)
	return nil
}

func (e *Endpoint) Connect(to Addr) error { return e.t.Connect(to) }

func (e *Endpoint) LocalAddr() Addr { return e.t.LocalAddr() }

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })
	return e.t.Close()
}

// Stats 计数快照
func (e *Endpoint) Stats() EndpointStats {
	return EndpointStats{
		Received:   e.received.Load(),
		Malformed:  e.malformed.Load(),
		InboxFull:  e.inboxFull.Load(),
		Sent:       e.sent.Load(),
		SendFailed: e.sendFailed.Load(),
	}
}
