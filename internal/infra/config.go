package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the application.
// Values loaded by LoadConfig may be overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Strategy struct {
		Name           string          `yaml:"name"`
		BasketSymbol   string          `yaml:"basket_symbol"`
		TradeBasket    bool            `yaml:"trade_basket"`
		PerOrderVolume decimal.Decimal `yaml:"per_order_volume"`
		AutoStart      bool            `yaml:"auto_start"`
	} `yaml:"strategy"`

	Basket struct {
		Contracts  []domain.Contract                       `yaml:"contracts"`
		Components map[string][]domain.ComponentDescriptor `yaml:"components"` // basket symbol -> ordered components
	} `yaml:"basket"`

	Feed struct {
		WSURL   string   `yaml:"ws_url"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"feed"`

	Webhook struct {
		Listen string `yaml:"listen"` // empty disables the HTTP surface
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	Storage struct {
		Driver string `yaml:"driver"` // sqlite (default) or postgres
		Path   string `yaml:"path"`   // sqlite file
		DSN    string `yaml:"dsn"`    // postgres connection string
	} `yaml:"storage"`

	Engine struct {
		InboxSize int `yaml:"inbox_size"`
	} `yaml:"engine"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, applies env overrides and validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.Name == "" {
		c.Strategy.Name = "etf_basket"
	}
	if c.Strategy.PerOrderVolume.IsZero() {
		c.Strategy.PerOrderVolume = decimal.NewFromInt(100000)
	}
	if c.Engine.InboxSize <= 0 {
		c.Engine.InboxSize = 1024
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Strategy.BasketSymbol == "" {
		return &domain.ConfigError{Field: "strategy.basket_symbol", Err: errors.New("required")}
	}
	if c.Strategy.PerOrderVolume.IsNegative() {
		return &domain.ConfigError{Field: "strategy.per_order_volume", Err: errors.New("must be positive")}
	}

	known := make(map[string]bool, len(c.Basket.Contracts))
	for _, ct := range c.Basket.Contracts {
		if ct.Symbol == "" || ct.Exchange == "" {
			return &domain.ConfigError{Field: "basket.contracts", Err: fmt.Errorf("symbol and exchange required: %+v", ct)}
		}
		known[ct.Symbol] = true
	}
	if !known[c.Strategy.BasketSymbol] {
		return &domain.ConfigError{Field: "basket.contracts", Err: fmt.Errorf("no contract for %s", c.Strategy.BasketSymbol)}
	}

	for basketSymbol, comps := range c.Basket.Components {
		for _, comp := range comps {
			if comp.Symbol == "" {
				return &domain.ConfigError{Field: "basket.components." + basketSymbol, Err: errors.New("component without symbol")}
			}
		}
	}

	switch c.Storage.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return &domain.ConfigError{Field: "storage.dsn", Err: errors.New("required for postgres")}
		}
	default:
		return &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unknown driver %q", c.Storage.Driver)}
	}

	if c.Feed.WSURL != "" && !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return &domain.ConfigError{Field: "feed.ws_url", Err: fmt.Errorf("invalid websocket url %q", c.Feed.WSURL)}
	}

	return nil
}

// overrideWithEnv replaces settings with environment variables when set.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("BASKET_FEED_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if path := os.Getenv("BASKET_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if secret := os.Getenv("BASKET_WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	if dsn := os.Getenv("BASKET_DB_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if level := os.Getenv("BASKET_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
