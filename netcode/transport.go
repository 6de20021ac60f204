package netcode

import (
	"context"
	"errors"
)

var (
	ErrQueueFull   = errors.New("netcode: send queue full")
	ErrClosed      = errors.New("netcode: transport closed")
	ErrUnknownPeer = errors.New("netcode: unknown peer")
)

// Delivery 投递保证
type Delivery uint8

const (
	// Reliable 重传直到确认，保序
	Reliable Delivery = iota
	// Unreliable 发出即忘，可能丢失或乱序
	Unreliable
)

func (d Delivery) String() string {
	if d == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// Addr 对端标识（ENet 为 ip:port，WebSocket 为连接 uuid）
type Addr string

type EventKind uint8

const (
	EventConnect EventKind = iota + 1
	EventDisconnect
	EventReceive
)

// Event 传输层事件；Payload 仅 EventReceive 有效，归接收方所有
type Event struct {
	Kind    EventKind
	From    Addr
	Payload []byte
}

// Transport 双通道（可靠 / 不可靠）数据报传输。
// Run 在独立 goroutine 中阻塞接收，直到 ctx 取消或传输关闭；
// deliver 在该 goroutine 中调用；数据包不阻塞，连接事件可能等待入站队列腾出空间。
// Send / Connect 可在任意 goroutine 调用。
type Transport interface {
	Run(ctx context.Context, deliver func(Event)) error
	Send(to Addr, payload []byte, d Delivery) error
	Connect(to Addr) error
	LocalAddr() Addr
	Close() error
}
