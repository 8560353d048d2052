package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/coinwatch/internal/market"
)

var configEnvKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "POLL_INTERVAL", "POLL_INTERVAL_SECONDS",
	"FIRST_POLL_DELAY", "FETCH_TIMEOUT", "MARKET_CAP_FLOOR", "RAPID_MOVE_THRESHOLD",
	"RAPID_MOVE_WINDOW", "FLOOR_GATES_RAPID_MOVE", "BASELINE_FIRST_CYCLE",
	"COINGECKO_API_URL", "COINGECKO_API_KEY", "VS_CURRENCY", "MARKET_ORDER",
	"PER_PAGE", "PAGE", "SOURCE_LABEL", "DATABASE_PATH", "DEBUG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-10042")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(-10042), cfg.TelegramChatID)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.FirstPollDelay)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.MarketCapFloor.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, cfg.RapidMoveThreshold.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, market.Window1h, cfg.RapidMoveWindow)
	assert.False(t, cfg.FloorGatesRapidMove)
	assert.False(t, cfg.BaselineFirstCycle)
	assert.Equal(t, "usd", cfg.VsCurrency)
	assert.Equal(t, "volume_desc", cfg.MarketOrder)
	assert.Equal(t, 100, cfg.PerPage)
	assert.Equal(t, 1, cfg.Page)
	assert.Equal(t, "CoinGecko", cfg.SourceLabel)
	assert.Equal(t, "data/coinwatch.db", cfg.DatabasePath)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "7")
	t.Setenv("POLL_INTERVAL_SECONDS", "30")
	t.Setenv("MARKET_CAP_FLOOR", "2500000.5")
	t.Setenv("RAPID_MOVE_THRESHOLD", "7.5")
	t.Setenv("RAPID_MOVE_WINDOW", "24H")
	t.Setenv("FLOOR_GATES_RAPID_MOVE", "true")
	t.Setenv("BASELINE_FIRST_CYCLE", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "2500000.5", cfg.MarketCapFloor.String())
	assert.Equal(t, "7.5", cfg.RapidMoveThreshold.String())
	assert.Equal(t, market.Window24h, cfg.RapidMoveWindow)
	assert.True(t, cfg.FloorGatesRapidMove)
	assert.True(t, cfg.BaselineFirstCycle)
	assert.Equal(t, 20*time.Second, cfg.EffectiveFetchTimeout())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing token", map[string]string{"TELEGRAM_CHAT_ID": "1"}, "TELEGRAM_BOT_TOKEN"},
		{"missing chat", map[string]string{"TELEGRAM_BOT_TOKEN": "t"}, "TELEGRAM_CHAT_ID"},
		{"bad chat", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "abc"}, "invalid TELEGRAM_CHAT_ID"},
		{"bad window", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "1", "RAPID_MOVE_WINDOW": "7d"}, "RAPID_MOVE_WINDOW"},
		{"bad seconds", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "1", "POLL_INTERVAL_SECONDS": "x"}, "POLL_INTERVAL_SECONDS"},
		{"zero interval", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "1", "POLL_INTERVAL_SECONDS": "0"}, "poll interval"},
		{"negative floor", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "1", "MARKET_CAP_FLOOR": "-1"}, "MARKET_CAP_FLOOR"},
		{"page size", map[string]string{"TELEGRAM_BOT_TOKEN": "t", "TELEGRAM_CHAT_ID": "1", "PER_PAGE": "500"}, "PER_PAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEffectiveFetchTimeout_CappedByInterval(t *testing.T) {
	cfg := &Config{PollInterval: 10 * time.Second, FetchTimeout: 20 * time.Second}
	assert.Equal(t, 10*time.Second, cfg.EffectiveFetchTimeout())
}
