package netcode

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendQueue    = 64
	wsEventQueue   = 1024
	wsWriteTimeout = 5 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingPeriod   = 25 * time.Second
)

// wsConn 单个 WebSocket 连接：读写各一个协程
type wsConn struct {
	id     Addr
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWSConn(id Addr, ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, wsSendQueue),
		closed: make(chan struct{}),
	}
}

// enqueue 非阻塞：队列满时不可靠消息丢弃，可靠消息返回 ErrQueueFull
func (c *wsConn) enqueue(b []byte, d Delivery) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		if d == Reliable {
			return ErrQueueFull
		}
		return nil
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *wsConn) writePump() {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	defer c.close()
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// WSTransport WebSocket 传输。TCP 本身可靠有序，Delivery 只决定队列满时的处理方式。
// 主机端作为 http.Handler 挂载到路由上；客户端用 Connect 拨号（to 为 ws:// URL）。
// 主机端连接以 uuid 标识。
type WSTransport struct {
	local    Addr
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	events  chan Event
	dropped atomic.Uint64 // 事件队列满时丢弃的数据包
	done    chan struct{}
	once    sync.Once

	mu    sync.RWMutex
	conns map[Addr]*wsConn
}

func NewWSTransport(local Addr, log *zap.SugaredLogger) *WSTransport {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WSTransport{
		local: local,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  MaxPayload,
			WriteBufferSize: MaxPayload,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		dialer: websocket.DefaultDialer,
		events: make(chan Event, wsEventQueue),
		done:   make(chan struct{}),
		conns:  make(map[Addr]*wsConn),
	}
}

// ServeHTTP 升级为 WebSocket 并登记连接
func (t *WSTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warnf("ws upgrade error: %v", err)
		return
	}
	t.attach(Addr(uuid.NewString()), ws)
}

// Connect 客户端拨号
func (t *WSTransport) Connect(to Addr) error {
	ws, _, err := t.dialer.Dial(string(to), nil)
	if err != nil {
		return fmt.Errorf("ws dial %s: %w", to, err)
	}
	t.attach(to, ws)
	return nil
}

func (t *WSTransport) attach(id Addr, ws *websocket.Conn) {
	c := newWSConn(id, ws)
	t.mu.Lock()
	t.conns[id] = c
	t.mu.Unlock()
	t.log.Infof("ws connected: %s (%s)", id, ws.RemoteAddr())

	t.emit(Event{Kind: EventConnect, From: id})
	go c.writePump()
	go t.readPump(c)
}

// readPump 读出的数据包经 offer 写入事件队列；连接断开时注销并上报 Disconnect
func (t *WSTransport) readPump(c *wsConn) {
	defer func() {
		t.mu.Lock()
		delete(t.conns, c.id)
		t.mu.Unlock()
		c.close()
		t.log.Infof("ws disconnected: %s", c.id)
		t.emit(Event{Kind: EventDisconnect, From: c.id})
	}()

	c.ws.SetReadLimit(MaxPayload)
	c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		t.offer(Event{Kind: EventReceive, From: c.id, Payload: payload})
	}
}

// offer 数据包非阻塞入队，队列满时丢弃并计数
func (t *WSTransport) offer(ev Event) bool {
	select {
	case t.events <- ev:
		return true
	default:
		t.dropped.Add(1)
		t.log.Debugf("ws event queue full, drop packet from %s", ev.From)
		return false
	}
}

// Dropped 因事件队列满而丢弃的数据包数
func (t *WSTransport) Dropped() uint64 { return t.dropped.Load() }

// emit 连接事件不可丢，阻塞到写入或传输关闭
func (t *WSTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

func (t *WSTransport) Run(ctx context.Context, deliver func(Event)) error {
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

func (t *WSTransport) Send(to Addr, payload []byte, d Delivery) error {
	t.mu.RLock()
	c, ok := t.conns[to]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", to, ErrUnknownPeer)
	}
	return c.enqueue(payload, d)
}

func (t *WSTransport) LocalAddr() Addr { return t.local }

func (t *WSTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
		t.mu.Lock()
		for _, c := range t.conns {
			c.close()
		}
		t.mu.Unlock()
	})
	return nil
}
