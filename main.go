package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"battle2d/config"
	"battle2d/game"
	"battle2d/netcode"
	"battle2d/server"
)

// node Host 或 Client
type node interface {
	server.Ticker
	server.AdminNode
}

// battle2d 入口：-host 启动权威主机，-join 连接主机（-observe 只观战）
func main() {
	// .env 可选
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	if err := server.InitLogger(server.LogOptions{File: cfg.LogFile, Level: cfg.LogLevel, Console: cfg.LogConsole}); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, ws, err := openTransport(cfg)
	if err != nil {
		server.Log.Fatalf("transport: %v", err)
	}
	ep := netcode.NewEndpoint(transport, netcode.DefaultInboxSize, server.Named("net"))
	go func() {
		if err := ep.Run(ctx); err != nil {
			server.Log.Errorf("endpoint stopped: %v", err)
		}
	}()

	var n node
	if cfg.Host {
		n, err = startHost(cfg, ep)
	} else {
		n, err = startClient(cfg, ep)
	}
	if err != nil {
		server.Log.Fatalf("start: %v", err)
	}

	var srv *http.Server
	if cfg.Admin != "" {
		srv = &http.Server{Addr: cfg.Admin, Handler: server.NewAdminRouter(n, ws)}
		go func() {
			server.Log.Infof("admin listening on %s", cfg.Admin)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				server.Log.Fatalf("admin listen: %v", err)
			}
		}()
	}

	server.Log.Infof("battle2d running: host=%v transport=%s tps=%d", cfg.Host, cfg.Transport, cfg.TPS)
	server.RunTicker(ctx, cfg.TPS, n)

	server.Log.Info("Shutting down...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	_ = ep.Close()
}

// openTransport ws 传输同时返回需要挂到管理路由上的 handler
func openTransport(cfg config.Config) (netcode.Transport, http.Handler, error) {
	log := server.Named("transport")
	switch cfg.Transport {
	case config.TransportWS:
		t := netcode.NewWSTransport(netcode.Addr(cfg.Admin), log)
		if cfg.Host {
			return t, t, nil
		}
		return t, nil, nil
	default:
		if cfg.Host {
			t, err := netcode.ListenENet(cfg.Port, cfg.MaxPeers, log)
			return t, nil, err
		}
		t, err := netcode.DialENet(log)
		return t, nil, err
	}
}

func startHost(cfg config.Config, ep *netcode.Endpoint) (node, error) {
	h, err := server.NewHost(ep, game.NewRandomGenerator(cfg.Seed), server.HostConfig{
		LocalName: cfg.Name,
		Seed:      cfg.Seed,
		RateLimit: server.RateLimitConfig{PerSecond: cfg.RatePerSecond, Burst: cfg.RateBurst},
		MaxShots:  cfg.MaxShots,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func startClient(cfg config.Config, ep *netcode.Endpoint) (node, error) {
	c := server.NewClient(ep, server.ClientConfig{
		HostAddr: netcode.Addr(cfg.Join),
		Name:     cfg.Name,
		Observe:  cfg.Observe,
	})
	if err := c.Start(); err != nil {
		return nil, err
	}
	return c, nil
}
