// Package config
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
wallex_api_key: "key"
mode: "live"
live_trading_enabled: true
check_margin: true
price_band_percent: 15.0
cycle_interval: 2m
instruments:
  - symbol_token: "BTC-USDT"
    timeframe: "5m"
    short_window: 9
    long_window: 21
    validity_window: 10m
    quantity: 2
    active: true
  - symbol_token: "ETH-USDT"
    active: false
`

func TestConfig_YAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), &cfg))
	cfg.ApplyDefaults()

	assert.Equal(t, "live", cfg.Mode)
	assert.True(t, cfg.LiveTradingEnabled)
	assert.True(t, cfg.CheckMargin)
	assert.Equal(t, 15.0, cfg.PriceBandPercent)
	assert.Equal(t, 2*time.Minute, cfg.CycleInterval)

	require.Len(t, cfg.Instruments, 2)
	btc := cfg.Instruments[0]
	assert.Equal(t, "BTC-USDT", btc.SymbolToken)
	assert.Equal(t, "BTC-USDT", btc.TradingSymbol) // defaulted from token
	assert.Equal(t, "5m", btc.Timeframe)
	assert.Equal(t, 10*time.Minute, btc.Validity)
	assert.Equal(t, 2, btc.Quantity)

	// Unset fields pick up defaults.
	eth := cfg.Instruments[1]
	assert.Equal(t, "1m", eth.Timeframe)
	assert.Equal(t, 9, eth.ShortWindow)
	assert.Equal(t, 21, eth.LongWindow)
	assert.Equal(t, 100, eth.CandleCount)
	assert.Equal(t, 5*time.Minute, eth.Validity)

	require.NoError(t, cfg.Validate())
}

func TestConfig_ActiveInstruments(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), &cfg))
	cfg.ApplyDefaults()

	active := cfg.ActiveInstruments()
	require.Len(t, active, 1)
	assert.Equal(t, "BTC-USDT", active[0].SymbolToken)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Mode: "dry-run",
			Instruments: []InstrumentConfig{{
				SymbolToken: "BTC-USDT",
				Active:      true,
			}},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad mode", func(c *Config) { c.Mode = "backtest" }, "unsupported mode"},
		{"no instruments", func(c *Config) { c.Instruments = nil }, "no instruments"},
		{"empty token", func(c *Config) { c.Instruments[0].SymbolToken = "" }, "symbol_token"},
		{"bad timeframe", func(c *Config) { c.Instruments[0].Timeframe = "2h" }, "timeframe"},
		{"windows inverted", func(c *Config) { c.Instruments[0].ShortWindow = 30 }, "short window"},
		{"candle count too small", func(c *Config) { c.Instruments[0].CandleCount = 1 }, "candle count"},
		{"negative quantity", func(c *Config) { c.Instruments[0].Quantity = -1 }, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
