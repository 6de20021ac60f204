package netcode

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

const memoryQueueSize = 256

// MemoryNetwork 进程内网络，用于测试与单进程演示。
// DropRate / ReorderRate 只作用于不可靠通道。
type MemoryNetwork struct {
	mu          sync.Mutex
	nodes       map[Addr]*MemoryTransport
	dropRate    float64
	reorderRate float64
	rand        *rand.Rand
}

func NewMemoryNetwork(seed uint64) *MemoryNetwork {
	return &MemoryNetwork{
		nodes: make(map[Addr]*MemoryTransport),
		rand:  rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// SetLoss 设置不可靠通道的丢包率与乱序率（0..1）
func (n *MemoryNetwork) SetLoss(drop, reorder float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropRate, n.reorderRate = drop, reorder
}

// Listen 在网络中注册一个节点
func (n *MemoryNetwork) Listen(addr Addr) (*MemoryTransport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.nodes[addr]; ok {
		return nil, fmt.Errorf("memory listen %s: address in use", addr)
	}
	t := &MemoryTransport{
		net:    n,
		addr:   addr,
		events: make(chan Event, memoryQueueSize),
		done:   make(chan struct{}),
		peers:  make(map[Addr]bool),
		held:   make(map[Addr][]byte),
	}
	n.nodes[addr] = t
	return t, nil
}

func (n *MemoryNetwork) node(addr Addr) *MemoryTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nodes[addr]
}

func (n *MemoryNetwork) roll(p float64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return p > 0 && n.rand.Float64() < p
}

func (n *MemoryNetwork) rates() (float64, float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropRate, n.reorderRate
}

// MemoryTransport MemoryNetwork 上的一个节点
type MemoryTransport struct {
	net    *MemoryNetwork
	addr   Addr
	events chan Event
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	peers map[Addr]bool
	held  map[Addr][]byte
}

func (t *MemoryTransport) Run(ctx context.Context, deliver func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.done:
			return nil
		case ev := <-t.events:
			deliver(ev)
		}
	}
}

func (t *MemoryTransport) Send(to Addr, payload []byte, d Delivery) error {
	if t.closed() {
		return ErrClosed
	}
	dst := t.net.node(to)
	t.mu.Lock()
	connected := t.peers[to]
	t.mu.Unlock()
	if dst == nil || !connected {
		return fmt.Errorf("send to %s: %w", to, ErrUnknownPeer)
	}

	b := append([]byte(nil), payload...)
	if d == Reliable {
		return dst.push(Event{Kind: EventReceive, From: t.addr, Payload: b}, d)
	}

	drop, reorder := t.net.rates()
	if t.net.roll(drop) {
		return nil
	}
	t.mu.Lock()
	prev, hasPrev := t.held[to]
	if !hasPrev && t.net.roll(reorder) {
		t.held[to] = b
		t.mu.Unlock()
		return nil
	}
	delete(t.held, to)
	t.mu.Unlock()

	_ = dst.push(Event{Kind: EventReceive, From: t.addr, Payload: b}, d)
	if hasPrev {
		_ = dst.push(Event{Kind: EventReceive, From: t.addr, Payload: prev}, d)
	}
	return nil
}

// Connect 双方都会收到 EventConnect
func (t *MemoryTransport) Connect(to Addr) error {
	if t.closed() {
		return ErrClosed
	}
	dst := t.net.node(to)
	if dst == nil || dst == t {
		return fmt.Errorf("connect %s: %w", to, ErrUnknownPeer)
	}
	t.addPeer(to)
	dst.addPeer(t.addr)
	if err := dst.push(Event{Kind: EventConnect, From: t.addr}, Reliable); err != nil {
		return err
	}
	return t.push(Event{Kind: EventConnect, From: to}, Reliable)
}

func (t *MemoryTransport) LocalAddr() Addr { return t.addr }

// Close 从网络注销，并通知所有已连接对端
func (t *MemoryTransport) Close() error {
	t.once.Do(func() {
		t.net.mu.Lock()
		delete(t.net.nodes, t.addr)
		t.net.mu.Unlock()

		t.mu.Lock()
		peers := make([]Addr, 0, len(t.peers))
		for p := range t.peers {
			peers = append(peers, p)
		}
		t.mu.Unlock()

		for _, p := range peers {
			if dst := t.net.node(p); dst != nil {
				dst.removePeer(t.addr)
				_ = dst.push(Event{Kind: EventDisconnect, From: t.addr}, Reliable)
			}
		}
		close(t.done)
	})
	return nil
}

func (t *MemoryTransport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *MemoryTransport) addPeer(a Addr) {
	t.mu.Lock()
	t.peers[a] = true
	t.mu.Unlock()
}

func (t *MemoryTransport) removePeer(a Addr) {
	t.mu.Lock()
	delete(t.peers, a)
	delete(t.held, a)
	t.mu.Unlock()
}

// push 队列满时：不可靠丢弃，可靠返回 ErrQueueFull
func (t *MemoryTransport) push(ev Event, d Delivery) error {
	select {
	case t.events <- ev:
		return nil
	default:
		if d == Reliable {
			return ErrQueueFull
		}
		return nil
	}
}
