package server

import (
	"slices"
	"sync"

	"golang.org/x/time/rate"

	"battle2d/netcode"
)

// RateLimitConfig 每个对端的输入限流
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// DefaultRateLimit 60 TPS 下允许每帧约两次输入更新
var DefaultRateLimit = RateLimitConfig{PerSecond: 120, Burst: 30}

type peer struct {
	addr    netcode.Addr
	name    string // 空表示尚未登记
	limiter *rate.Limiter
}

// Peers 已连接对端的注册表：对端 → 玩家名绑定，以及每对端的输入限流器。
// 只有 Tick 线程写入；管理接口可并发读取。
type Peers struct {
	mu    sync.RWMutex
	peers map[netcode.Addr]*peer
	limit RateLimitConfig
}

func NewPeers(limit RateLimitConfig) *Peers {
	return &Peers{peers: make(map[netcode.Addr]*peer), limit: limit}
}

// Add 登记新连接；已存在时保持原绑定
func (ps *Peers) Add(addr netcode.Addr) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.peers[addr]; ok {
		return
	}
	ps.peers[addr] = &peer{
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(ps.limit.PerSecond), ps.limit.Burst),
	}
}

// Remove 忘记连接，返回其绑定的玩家名
func (ps *Peers) Remove(addr netcode.Addr) (string, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.peers[addr]
	if !ok {
		return "", false
	}
	delete(ps.peers, addr)
	return p.name, true
}

// Bind 将对端绑定到玩家名
func (ps *Peers) Bind(addr netcode.Addr, name string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p, ok := ps.peers[addr]; ok {
		p.name = name
	}
}

// Name 对端绑定的玩家名；未连接或未登记返回 false
func (ps *Peers) Name(addr netcode.Addr) (string, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.peers[addr]
	if !ok || p.name == "" {
		return "", false
	}
	return p.name, true
}

func (ps *Peers) Known(addr netcode.Addr) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	_, ok := ps.peers[addr]
	return ok
}

// Allow 消耗对端的一个令牌
func (ps *Peers) Allow(addr netcode.Addr) bool {
	ps.mu.RLock()
	p, ok := ps.peers[addr]
	ps.mu.RUnlock()
	return ok && p.limiter.Allow()
}

// Addrs 所有已连接对端（排序，保证广播顺序稳定）
func (ps *Peers) Addrs() []netcode.Addr {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]netcode.Addr, 0, len(ps.peers))
	for a := range ps.peers {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// PeerInfo 管理接口输出
type PeerInfo struct {
	Addr string `json:"addr"`
	Name string `json:"name,omitempty"`
}

func (ps *Peers) List() []PeerInfo {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]PeerInfo, 0, len(ps.peers))
	for _, p := range ps.peers {
		out = append(out, PeerInfo{Addr: string(p.addr), Name: p.name})
	}
	slices.SortFunc(out, func(a, b PeerInfo) int {
		if a.Addr < b.Addr {
			return -1
		}
		if a.Addr > b.Addr {
			return 1
		}
		return 0
	})
	return out
}

func (ps *Peers) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.peers)
}
