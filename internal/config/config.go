package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

const (
	DefaultPath        = "config/config.yaml"
	defaultSymbol      = "BTCUSD_PERP"
	defaultAsset       = "BTC"
	defaultReference   = "100000"
	defaultTakeProfit  = "-0.01"
	defaultStopLoss    = "-0.02"
	defaultQuantity    = "1"
	defaultMinBalance  = "1"
	defaultInterval    = time.Minute
	defaultStoragePath = "orders.db"
	defaultPort        = 8080
)

var defaultOffsets = []string{"0.02", "0.04", "0.06", "0.08", "0.10"}

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Exchange     ExchangeConfig   `yaml:"exchange"`
	Strategies   []StrategyConfig `yaml:"strategies"`
	OrderTimeout time.Duration    `yaml:"order_timeout"`
	Logging      struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

type ExchangeConfig struct {
	Name         string `yaml:"name"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	RESTEndpoint string `yaml:"rest_endpoint"`
	WSEndpoint   string `yaml:"ws_endpoint"`
	Testnet      bool   `yaml:"testnet"`
}

// StrategyConfig holds one ladder. Numbers are kept as strings until
// converted so prices never pass through float64.
type StrategyConfig struct {
	Symbol         string        `yaml:"symbol"`
	Asset          string        `yaml:"asset"`
	ReferencePrice string        `yaml:"reference_price"`
	EntryOffsets   []string      `yaml:"entry_offsets"`
	TakeProfitPct  string        `yaml:"take_profit_pct"`
	StopLossPct    string        `yaml:"stop_loss_pct"`
	Quantity       string        `yaml:"quantity"`
	MinBalance     string        `yaml:"min_balance"`
	Interval       time.Duration `yaml:"interval"`
}

// Load reads path, overlays API_KEY/API_SECRET from the environment (and
// .env when present), fills defaults and validates.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.Exchange.Name == "" {
		c.Exchange.Name = "binance_delivery"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []StrategyConfig{{}}
	}
	for i := range c.Strategies {
		c.Strategies[i].applyDefaults()
	}
}

func (s *StrategyConfig) applyDefaults() {
	setDefault(&s.Symbol, defaultSymbol)
	setDefault(&s.Asset, defaultAsset)
	setDefault(&s.ReferencePrice, defaultReference)
	setDefault(&s.TakeProfitPct, defaultTakeProfit)
	setDefault(&s.StopLossPct, defaultStopLoss)
	setDefault(&s.Quantity, defaultQuantity)
	setDefault(&s.MinBalance, defaultMinBalance)
	if len(s.EntryOffsets) == 0 {
		s.EntryOffsets = append([]string(nil), defaultOffsets...)
	}
	if s.Interval == 0 {
		s.Interval = defaultInterval
	}
}

func setDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// Validate checks every strategy can be turned into LadderParams.
func (c *Config) Validate() error {
	if c.OrderTimeout < 0 {
		return fmt.Errorf("%w: order_timeout must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]bool)
	for i := range c.Strategies {
		p, err := c.Strategies[i].ToParams()
		if err != nil {
			return err
		}
		if seen[p.Symbol] {
			return fmt.Errorf("%w: duplicate strategy for %s", ErrInvalidConfig, p.Symbol)
		}
		seen[p.Symbol] = true
	}
	return nil
}

// Params converts every strategy.
func (c *Config) Params() ([]domain.LadderParams, error) {
	out := make([]domain.LadderParams, 0, len(c.Strategies))
	for i := range c.Strategies {
		p, err := c.Strategies[i].ToParams()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Warnings lists settings that are accepted but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	for _, s := range c.Strategies {
		tp, err := decimal.NewFromString(s.TakeProfitPct)
		if err == nil && tp.IsNegative() {
			out = append(out, fmt.Sprintf("%s: take_profit_pct %s is negative, take profit triggers below the entry price", s.Symbol, s.TakeProfitPct))
		}
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		out = append(out, "API_KEY or API_SECRET is empty, signed requests will fail")
	}
	return out
}

func (s StrategyConfig) ToParams() (domain.LadderParams, error) {
	p := domain.LadderParams{
		Symbol:   s.Symbol,
		Asset:    s.Asset,
		Interval: s.Interval,
	}
	if p.Symbol == "" {
		return p, fmt.Errorf("%w: strategy symbol is empty", ErrInvalidConfig)
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"reference_price", s.ReferencePrice, &p.ReferencePrice},
		{"take_profit_pct", s.TakeProfitPct, &p.TakeProfitPct},
		{"stop_loss_pct", s.StopLossPct, &p.StopLossPct},
		{"quantity", s.Quantity, &p.Quantity},
		{"min_balance", s.MinBalance, &p.MinBalance},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return p, fmt.Errorf("%w: %s %s %q: %v", ErrInvalidConfig, p.Symbol, f.name, f.raw, err)
		}
		*f.dst = d
	}

	if !p.ReferencePrice.IsPositive() {
		return p, fmt.Errorf("%w: %s reference_price must be positive", ErrInvalidConfig, p.Symbol)
	}
	if !p.Quantity.IsPositive() {
		return p, fmt.Errorf("%w: %s quantity must be positive", ErrInvalidConfig, p.Symbol)
	}
	if p.Interval <= 0 {
		return p, fmt.Errorf("%w: %s interval must be positive", ErrInvalidConfig, p.Symbol)
	}
	if len(s.EntryOffsets) == 0 {
		return p, fmt.Errorf("%w: %s entry_offsets is empty", ErrInvalidConfig, p.Symbol)
	}

	for i, raw := range s.EntryOffsets {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return p, fmt.Errorf("%w: %s entry_offsets[%d] %q: %v", ErrInvalidConfig, p.Symbol, i, raw, err)
		}
		if i > 0 && !d.GreaterThan(p.EntryOffsets[i-1]) {
			return p, fmt.Errorf("%w: %s entry_offsets must be distinct and ascending", ErrInvalidConfig, p.Symbol)
		}
		p.EntryOffsets = append(p.EntryOffsets, d)
	}
	return p, nil
}
