package server

import (
	"context"
	"time"
)

const (
	// DefaultTicksPerSecond 模拟频率（60 TPS）
	DefaultTicksPerSecond = 60
)

// Ticker 每帧被调用一次；Host 与 Client 都实现它
type Ticker interface {
	Tick(dt float64)
}

// RunTicker 单 goroutine 固定步长推进，直到 ctx 取消。
// dt 固定为 1/tps，与实际调度抖动无关。
func RunTicker(ctx context.Context, tps int, t Ticker) {
	if tps <= 0 {
		tps = DefaultTicksPerSecond
	}
	interval := time.Second / time.Duration(tps)
	dt := 1 / float64(tps)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// 核心循环：网络入 → 模拟 → 网络出（由 t.Tick 内部完成）
			t.Tick(dt)
		}
	}
}
