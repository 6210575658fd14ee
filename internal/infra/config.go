package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"everdex/internal/domain"
)

// Config holds every application setting. Sensitive or host-specific
// values can be overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	DB struct {
		Path string `yaml:"path"` // empty = OS default location
	} `yaml:"db"`

	Server struct {
		WSAddr    string `yaml:"ws_addr"`    // websocket event feed
		PprofAddr string `yaml:"pprof_addr"` // localhost only
	} `yaml:"server"`

	Engine struct {
		MinTradeQuote    uint64 `yaml:"min_trade_quote"`
		MaxTradeQuote    uint64 `yaml:"max_trade_quote"`
		MinTradeBase     uint64 `yaml:"min_trade_base"`
		MaxTradeBase     uint64 `yaml:"max_trade_base"`
		RefundTimeoutSec int64  `yaml:"refund_timeout_sec"`
	} `yaml:"engine"`

	Keeper struct {
		IntervalMS int `yaml:"interval_ms"`
	} `yaml:"keeper"`

	Alerts struct {
		// PremiumThreshold is the effective-over-organic premium (%) above
		// which the market service raises an alert.
		PremiumThreshold decimal.Decimal `yaml:"premium_threshold"`
	} `yaml:"alerts"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Engine.MinTradeQuote == 0 || c.Engine.MinTradeBase == 0 {
		return &domain.ConfigError{Field: "engine", Err: errors.New("minimum trade amounts must be positive")}
	}
	if c.Engine.MaxTradeQuote < c.Engine.MinTradeQuote {
		return &domain.ConfigError{Field: "engine.max_trade_quote", Err: fmt.Errorf("%d below min_trade_quote %d",
			c.Engine.MaxTradeQuote, c.Engine.MinTradeQuote)}
	}
	if c.Engine.MaxTradeBase < c.Engine.MinTradeBase {
		return &domain.ConfigError{Field: "engine.max_trade_base", Err: fmt.Errorf("%d below min_trade_base %d",
			c.Engine.MaxTradeBase, c.Engine.MinTradeBase)}
	}
	if c.Engine.RefundTimeoutSec <= 0 {
		return &domain.ConfigError{Field: "engine.refund_timeout_sec", Err: errors.New("must be positive")}
	}
	if c.Keeper.IntervalMS <= 0 {
		return &domain.ConfigError{Field: "keeper.interval_ms", Err: errors.New("must be positive")}
	}
	if c.Server.WSAddr == "" {
		return &domain.ConfigError{Field: "server.ws_addr", Err: errors.New("required")}
	}
	return nil
}

// overrideWithEnv overrides settings from environment variables when present.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("EVERDEX_DB_PATH"); path != "" {
		cfg.DB.Path = path
	}
	if addr := os.Getenv("EVERDEX_WS_ADDR"); addr != "" {
		cfg.Server.WSAddr = addr
	}
	if level := os.Getenv("EVERDEX_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if timeout := os.Getenv("EVERDEX_REFUND_TIMEOUT_SEC"); timeout != "" {
		if v, err := strconv.ParseInt(timeout, 10, 64); err == nil && v > 0 {
			cfg.Engine.RefundTimeoutSec = v
		}
	}
}
