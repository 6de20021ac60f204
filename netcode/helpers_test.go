package netcode

import (
	"context"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func mustMarshalMap(t *testing.T, wm wireMap) []byte {
	t.Helper()
	b, err := msgpack.Marshal(wm)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// runEndpoint 在后台运行端点，测试结束时取消
func runEndpoint(t *testing.T, e *Endpoint) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// collect 轮询 Drain 直到收到 n 条消息或超时
func collect(t *testing.T, e *Endpoint, n int) []Inbound {
	t.Helper()
	var got []Inbound
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		e.Drain(func(in Inbound) { got = append(got, in) })
		time.Sleep(time.Millisecond)
	}
	if len(got) < n {
		t.Fatalf("expected %d messages, got %d: %+v", n, len(got), got)
	}
	return got
}
