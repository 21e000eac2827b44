package infra

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: etf-basket
strategy:
  name: hs300-arb
  basket_symbol: 510300.SSE
  trade_basket: true
  per_order_volume: 50000
basket:
  contracts:
    - {symbol: 510300.SSE, exchange: SSE}
  components:
    510300.SSE:
      - {symbol: 600000.SSE, exchange: SSE, share: 100, class: 0}
      - {symbol: 600519.SSE, exchange: SSE, share: "0.5", class: LIMIT_CHECK_REQUIRED}
      - {symbol: 000001.SZSE, exchange: SZSE, share: 200, class: 2}
feed:
  ws_url: ws://localhost:9000/ticks
logging:
  level: debug
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "hs300-arb", cfg.Strategy.Name)
	assert.True(t, cfg.Strategy.TradeBasket)
	assert.True(t, cfg.Strategy.PerOrderVolume.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, 1024, cfg.Engine.InboxSize, "default inbox size")
	assert.Equal(t, "logs", cfg.Logging.Dir)

	comps := cfg.Basket.Components["510300.SSE"]
	require.Len(t, comps, 3)
	assert.Equal(t, "600000.SSE", comps[0].Symbol)
	assert.True(t, comps[1].Share.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, domain.TradableLimitCheck, comps[1].Class)
	assert.Equal(t, domain.TradableHalted, comps[2].Class)
	assert.Equal(t, "SZSE", comps[2].Exchange)
}

func TestParseConfig_EnvOverride(t *testing.T) {
	t.Setenv("BASKET_FEED_URL", "wss://feed.example.com/ws")
	t.Setenv("BASKET_LOG_LEVEL", "warn")

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "wss://feed.example.com/ws", cfg.Feed.WSURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"missing basket", "strategy: {name: x}", "strategy.basket_symbol"},
		{"no contract", "strategy: {basket_symbol: 510300.SSE}", "basket.contracts"},
		{"bad feed url", `
strategy: {basket_symbol: E}
basket: {contracts: [{symbol: E, exchange: SSE}]}
feed: {ws_url: "http://x"}`, "feed.ws_url"},
		{"postgres without dsn", `
strategy: {basket_symbol: E}
basket: {contracts: [{symbol: E, exchange: SSE}]}
storage: {driver: postgres}`, "storage.dsn"},
		{"unknown driver", `
strategy: {basket_symbol: E}
basket: {contracts: [{symbol: E, exchange: SSE}]}
storage: {driver: mysql}`, "storage.driver"},
		{"negative clip", `
strategy: {basket_symbol: E, per_order_volume: -1}
basket: {contracts: [{symbol: E, exchange: SSE}]}`, "strategy.per_order_volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseConfig_BadClass(t *testing.T) {
	_, err := ParseConfig([]byte(`
strategy: {basket_symbol: E}
basket:
  contracts: [{symbol: E, exchange: SSE}]
  components:
    E: [{symbol: A, exchange: SSE, share: 1, class: 9}]
`))
	assert.Error(t, err)
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "510300.SSE", cfg.Strategy.BasketSymbol)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  string
	}{
		{0, "1s"},
		{1, "2s"},
		{3, "8s"},
		{5, "32s"},
		{6, "1m0s"},
		{50, "1m0s"},
	}
	for _, tt := range tests {
		if got := CalculateBackoff(tt.retry).String(); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %s, want %s", tt.retry, got, tt.want)
		}
	}
}
