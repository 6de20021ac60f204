package netcode

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/codecat/go-enet"
	"go.uber.org/zap"
)

const (
	enetChannels       = 2
	enetReliableChan   = 0
	enetUnreliableChan = 1
	enetServiceMs      = 5
	enetOutboxSize     = 4096
)

var enetInit sync.Once

type enetOutgoing struct {
	to      Addr
	payload []byte
	d       Delivery
	connect bool
}

// ENetTransport ENet（UDP）双通道传输：通道 0 可靠，通道 1 不可靠。
// ENet host 非并发安全，所有对 host / peer 的调用都在 Run goroutine 内完成，
// Send / Connect 只向 outbox 投递。
type ENetTransport struct {
	host  enet.Host
	local Addr
	log   *zap.SugaredLogger

	outbox chan enetOutgoing
	done   chan struct{}

	closeOnce   sync.Once
	destroyOnce sync.Once
	running     atomic.Bool

	mu    sync.Mutex
	peers map[Addr]enet.Peer
	// aliases 解析后的 ip:port → Connect 时使用的地址，保证事件来源与调用方一致
	aliases map[string]Addr
}

// ListenENet 主机端：监听 UDP 端口，最多 maxPeers 个连接
func ListenENet(port uint16, maxPeers uint64, log *zap.SugaredLogger) (*ENetTransport, error) {
	enetInit.Do(func() { enet.Initialize() })
	host, err := enet.NewHost(enet.NewListenAddress(port), maxPeers, enetChannels, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("enet listen :%d: %w", port, err)
	}
	return newENetTransport(host, Addr(fmt.Sprintf(":%d", port)), log), nil
}

// DialENet 客户端：不绑定端口，随后通过 Connect 连接主机
func DialENet(log *zap.SugaredLogger) (*ENetTransport, error) {
	enetInit.Do(func() { enet.Initialize() })
	host, err := enet.NewHost(nil, 1, enetChannels, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("enet client host: %w", err)
	}
	return newENetTransport(host, "enet-client", log), nil
}

func newENetTransport(host enet.Host, local Addr, log *zap.SugaredLogger) *ENetTransport {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ENetTransport{
		host:    host,
		local:   local,
		log:     log,
		outbox:  make(chan enetOutgoing, enetOutboxSize),
		done:    make(chan struct{}),
		peers:   make(map[Addr]enet.Peer),
		aliases: make(map[string]Addr),
	}
}

func (t *ENetTransport) peerAddr(p enet.Peer) Addr {
	a := p.GetAddress()
	key := hostPort(a.String(), a.GetPort())
	t.mu.Lock()
	defer t.mu.Unlock()
	if alias, ok := t.aliases[key]; ok {
		return alias
	}
	return Addr(key)
}

// hostPort 对端键 ip:port；enet Address.String() 只返回 ip
func hostPort(ip string, port uint16) string {
	return net.JoinHostPort(ip, strconv.Itoa(int(port)))
}

// resolveDial 解析 host:port，返回 IPv4 地址、端口与对应的对端键
func resolveDial(to Addr) (string, uint16, string, error) {
	hostname, portStr, err := net.SplitHostPort(string(to))
	if err != nil {
		return "", 0, "", err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, "", fmt.Errorf("bad port: %w", err)
	}
	ip := hostname
	if net.ParseIP(hostname) == nil {
		resolved, err := net.ResolveIPAddr("ip4", hostname)
		if err != nil {
			return "", 0, "", err
		}
		ip = resolved.IP.String()
	}
	return ip, uint16(port), hostPort(ip, uint16(port)), nil
}

func (t *ENetTransport) Run(ctx context.Context, deliver func(Event)) error {
	t.running.Store(true)
	defer t.destroy()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.done:
			return nil
		default:
		}

		t.flush()

		ev := t.host.Service(enetServiceMs)
		switch ev.GetType() {
		case enet.EventConnect:
			peer := ev.GetPeer()
			addr := t.peerAddr(peer)
			t.mu.Lock()
			t.peers[addr] = peer
			t.mu.Unlock()
			t.log.Infof("enet peer connected: %s", addr)
			deliver(Event{Kind: EventConnect, From: addr})

		case enet.EventDisconnect:
			addr := t.peerAddr(ev.GetPeer())
			t.mu.Lock()
			delete(t.peers, addr)
			t.mu.Unlock()
			t.log.Infof("enet peer disconnected: %s", addr)
			deliver(Event{Kind: EventDisconnect, From: addr})

		case enet.EventReceive:
			pkt := ev.GetPacket()
			data := append([]byte(nil), pkt.GetData()...)
			pkt.Destroy()
			deliver(Event{Kind: EventReceive, From: t.peerAddr(ev.GetPeer()), Payload: data})
		}
	}
}

// flush 在 Run goroutine 中执行 outbox 里的发送与连接请求
func (t *ENetTransport) flush() {
	for {
		select {
		case o := <-t.outbox:
			if o.connect {
				t.dial(o.to)
				continue
			}
			t.mu.Lock()
			peer, ok := t.peers[o.to]
			t.mu.Unlock()
			if !ok {
				continue
			}
			channel, flags := uint8(enetUnreliableChan), enet.PacketFlags(0)
			if o.d == Reliable {
				channel, flags = enetReliableChan, enet.PacketFlagReliable
			}
			if err := peer.SendBytes(o.payload, channel, flags); err != nil {
				t.log.Warnf("enet send to %s failed: %v", o.to, err)
			}
		default:
			return
		}
	}
}

func (t *ENetTransport) dial(to Addr) {
	ip, port, key, err := resolveDial(to)
	if err != nil {
		t.log.Errorf("enet connect %s: %v", to, err)
		return
	}
	t.mu.Lock()
	t.aliases[key] = to
	t.mu.Unlock()
	if _, err := t.host.Connect(enet.NewAddress(ip, port), enetChannels, 0); err != nil {
		t.log.Errorf("enet connect %s: %v", to, err)
	}
}

// Send 仅对已连接的对端有效；outbox 满时不可靠消息丢弃，可靠消息返回 ErrQueueFull
func (t *ENetTransport) Send(to Addr, payload []byte, d Delivery) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	t.mu.Lock()
	_, ok := t.peers[to]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", to, ErrUnknownPeer)
	}
	select {
	case t.outbox <- enetOutgoing{to: to, payload: payload, d: d}:
		return nil
	default:
		if d == Reliable {
			return ErrQueueFull
		}
		return nil
	}
}

// Connect 异步连接；成功后 Run 会投递 EventConnect
func (t *ENetTransport) Connect(to Addr) error {
	select {
	case t.outbox <- enetOutgoing{to: to, connect: true}:
		return nil
	case <-t.done:
		return ErrClosed
	}
}

func (t *ENetTransport) LocalAddr() Addr { return t.local }

func (t *ENetTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	if !t.running.Load() {
		t.destroy()
	}
	return nil
}

func (t *ENetTransport) destroy() {
	t.destroyOnce.Do(func() {
		t.mu.Lock()
		for _, p := range t.peers {
			p.Disconnect(0)
		}
		t.mu.Unlock()
		t.host.Service(enetServiceMs)
		t.host.Destroy()
	})
}
