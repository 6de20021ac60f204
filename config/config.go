package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	TransportENet = "enet"
	TransportWS   = "ws"
)

// Config 进程配置：默认值 → 环境变量（BATTLE_*）→ 命令行参数
type Config struct {
	Host      bool   `env:"BATTLE_HOST"`
	Port      uint16 `env:"BATTLE_PORT"      envDefault:"7777"`
	Join      string `env:"BATTLE_JOIN"`
	Name      string `env:"BATTLE_NAME"`
	Observe   bool   `env:"BATTLE_OBSERVE"`
	Transport string `env:"BATTLE_TRANSPORT" envDefault:"enet"`
	TPS       int    `env:"BATTLE_TPS"       envDefault:"60"`
	MaxPeers  uint64 `env:"BATTLE_MAX_PEERS" envDefault:"32"`
	MaxShots  int    `env:"BATTLE_MAX_SHOTS" envDefault:"256"`
	Seed      uint64 `env:"BATTLE_SEED"`

	RatePerSecond float64 `env:"BATTLE_INPUT_RATE"  envDefault:"120"`
	RateBurst     int     `env:"BATTLE_INPUT_BURST" envDefault:"30"`

	// Admin HTTP 监听地址，空表示关闭；ws 传输复用该端口的 /ws
	Admin string `env:"BATTLE_ADMIN" envDefault:":8080"`

	LogFile    string `env:"BATTLE_LOG_FILE"    envDefault:"battle2d.log"`
	LogLevel   string `env:"BATTLE_LOG_LEVEL"   envDefault:"info"`
	LogConsole bool   `env:"BATTLE_LOG_CONSOLE" envDefault:"true"`
}

// Load 先读环境变量，再用 args 覆盖；args 不含程序名
func Load(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("battle2d", flag.ContinueOnError)
	port := uint(cfg.Port)
	fs.BoolVar(&cfg.Host, "host", cfg.Host, "run as authoritative host")
	fs.UintVar(&port, "port", port, "ENet listen port (host)")
	fs.StringVar(&cfg.Join, "join", cfg.Join, "host address to join: host:port for enet, ws://host:8080/ws for ws")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "player name; on a host, empty runs a dedicated server")
	fs.BoolVar(&cfg.Observe, "observe", cfg.Observe, "join without a player")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport: enet | ws")
	fs.IntVar(&cfg.TPS, "tps", cfg.TPS, "simulation ticks per second")
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "admin HTTP listen address, empty to disable")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "rolling log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug | info | warn | error")
	fs.BoolVar(&cfg.LogConsole, "log-console", cfg.LogConsole, "also log to stderr")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "map and spawn seed, 0 picks one from the clock")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if port > 65535 {
		return cfg, fmt.Errorf("port %d out of range", port)
	}
	cfg.Port = uint16(port)

	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return cfg, cfg.Validate()
}

// Validate 检查模式与参数组合
func (c Config) Validate() error {
	var errs []error
	switch {
	case c.Host && c.Join != "":
		errs = append(errs, errors.New("-host and -join are mutually exclusive"))
	case !c.Host && c.Join == "":
		errs = append(errs, errors.New("either -host or -join is required"))
	}
	if c.Host && c.Observe {
		errs = append(errs, errors.New("-observe only applies to clients"))
	}
	if c.Join != "" && c.Name == "" && !c.Observe {
		errs = append(errs, errors.New("client needs -name or -observe"))
	}
	if len(c.Name) > 32 {
		errs = append(errs, fmt.Errorf("name %q longer than 32 bytes", c.Name))
	}
	switch c.Transport {
	case TransportENet:
		if c.Host && c.Port == 0 {
			errs = append(errs, errors.New("enet host needs a port"))
		}
	case TransportWS:
		if c.Host && c.Admin == "" {
			errs = append(errs, errors.New("ws host needs -admin to serve /ws"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.TPS <= 0 || c.TPS > 1000 {
		errs = append(errs, fmt.Errorf("tps %d out of range", c.TPS))
	}
	if c.RatePerSecond <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("input rate limit must be positive"))
	}
	return errors.Join(errs...)
}
