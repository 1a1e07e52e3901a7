// Package config
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/tfutils"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
wallex_api_key: "..."
quote_asset: "USDT"
db_conn_str: "postgres://..."
db_max_open: 10
db_max_idle: 5
mode: "dry-run"
live_trading_enabled: false
check_margin: true
price_band_percent: 20.0
cycle_interval: 1m
telegram_token: "..."
telegram_chat_id: "..."
instruments:
  - symbol_token: "BTC-USDT"
    trading_symbol: "BTC-USDT"
    exchange: "wallex"
    timeframe: "1m"
    candle_count: 100
    short_window: 9
    long_window: 21
    validity_window: 5m
    quantity: 1
    active: true
*/

// InstrumentConfig holds per-instrument strategy and execution parameters.
type InstrumentConfig struct {
	SymbolToken   string        `yaml:"symbol_token"`
	TradingSymbol string        `yaml:"trading_symbol"`
	Exchange      string        `yaml:"exchange"`
	Timeframe     string        `yaml:"timeframe"`
	CandleCount   int           `yaml:"candle_count"`
	ShortWindow   int           `yaml:"short_window"`
	LongWindow    int           `yaml:"long_window"`
	Validity      time.Duration `yaml:"validity_window"`
	Quantity      int           `yaml:"quantity"`
	Active        bool          `yaml:"active"`
}

type Config struct {
	WallexAPIKey        string             `yaml:"wallex_api_key"`
	QuoteAsset          string             `yaml:"quote_asset"`
	DBConnStr           string             `yaml:"db_conn_str"`
	DBMaxOpen           int                `yaml:"db_max_open"`
	DBMaxIdle           int                `yaml:"db_max_idle"`
	Mode                string             `yaml:"mode"` // "dry-run", "paper", "live"
	LiveTradingEnabled  bool               `yaml:"live_trading_enabled"`
	CheckMargin         bool               `yaml:"check_margin"`
	PriceBandPercent    float64            `yaml:"price_band_percent"`
	CycleInterval       time.Duration      `yaml:"cycle_interval"`
	TelegramToken       string             `yaml:"telegram_token"`
	TelegramChatID      string             `yaml:"telegram_chat_id"`
	NotificationRetries int                `yaml:"notification_retries"`
	NotificationDelay   time.Duration      `yaml:"notification_delay"`
	ForceSignal         string             `yaml:"force_signal"` // "BUY"/"SELL", testing only
	Instruments         []InstrumentConfig `yaml:"instruments"`
}

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	if c.QuoteAsset == "" {
		c.QuoteAsset = "USDT"
	}
	if c.DBMaxOpen == 0 {
		c.DBMaxOpen = 10
	}
	if c.DBMaxIdle == 0 {
		c.DBMaxIdle = 5
	}
	if c.Mode == "" {
		c.Mode = "dry-run"
	}
	if c.PriceBandPercent == 0 {
		c.PriceBandPercent = 20.0
	}
	if c.CycleInterval == 0 {
		c.CycleInterval = time.Minute
	}
	if c.NotificationRetries == 0 {
		c.NotificationRetries = 3
	}
	if c.NotificationDelay == 0 {
		c.NotificationDelay = 5 * time.Second
	}
	for i := range c.Instruments {
		inst := &c.Instruments[i]
		if inst.TradingSymbol == "" {
			inst.TradingSymbol = inst.SymbolToken
		}
		if inst.Exchange == "" {
			inst.Exchange = "wallex"
		}
		if inst.Timeframe == "" {
			inst.Timeframe = "1m"
		}
		if inst.CandleCount == 0 {
			inst.CandleCount = 100
		}
		if inst.ShortWindow == 0 {
			inst.ShortWindow = 9
		}
		if inst.LongWindow == 0 {
			inst.LongWindow = 21
		}
		if inst.Validity == 0 {
			inst.Validity = 5 * time.Minute
		}
		if inst.Quantity == 0 {
			inst.Quantity = 1
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Mode {
	case "dry-run", "paper", "live":
	default:
		return fmt.Errorf("unsupported mode: %s", c.Mode)
	}
	switch c.ForceSignal {
	case "", "BUY", "SELL":
	default:
		return fmt.Errorf("unsupported force signal: %s", c.ForceSignal)
	}
	if len(c.Instruments) == 0 {
		return errors.New("no instruments configured")
	}
	for _, inst := range c.Instruments {
		if inst.SymbolToken == "" {
			return errors.New("instrument symbol_token cannot be empty")
		}
		if !tfutils.IsValidTimeframe(inst.Timeframe) {
			return fmt.Errorf("instrument %s: unsupported timeframe %s (supported: %s)",
				inst.SymbolToken, inst.Timeframe, strings.Join(tfutils.GetSupportedTimeframes(), ", "))
		}
		if inst.ShortWindow <= 0 || inst.LongWindow <= 0 || inst.ShortWindow >= inst.LongWindow {
			return fmt.Errorf("instrument %s: short window must be positive and smaller than long window", inst.SymbolToken)
		}
		if inst.CandleCount < 2 {
			return fmt.Errorf("instrument %s: candle count must be at least 2", inst.SymbolToken)
		}
		if inst.Validity <= 0 {
			return fmt.Errorf("instrument %s: validity window must be positive", inst.SymbolToken)
		}
		if inst.Quantity <= 0 {
			return fmt.Errorf("instrument %s: quantity must be positive", inst.SymbolToken)
		}
	}
	return nil
}

// ActiveInstruments returns the instruments with Active set, in config order.
func (c *Config) ActiveInstruments() []InstrumentConfig {
	var active []InstrumentConfig
	for _, inst := range c.Instruments {
		if inst.Active {
			active = append(active, inst)
		}
	}
	return active
}

// Load parses command-line flags, optionally overridden by a YAML file.
func Load() Config {
	mode := flag.String("mode", "dry-run", "Mode: dry-run, paper or live")
	liveEnabled := flag.Bool("live-enabled", false, "Global kill switch: allow real broker orders")
	checkMargin := flag.Bool("check-margin", false, "Check available margin before BUY orders")
	priceBand := flag.Float64("price-band-percent", 20.0, "Protective limit premium over last close (percent)")
	cycleInterval := flag.Duration("cycle-interval", time.Minute, "Delay between trading cycles")
	instrumentsFlag := flag.String("instruments", "", "Comma-separated symbol:timeframe:short:long quads (e.g., BTC-USDT:1m:9:21)")
	quoteAsset := flag.String("quote-asset", "USDT", "Quote asset used for margin checks")
	telegramToken := flag.String("telegram-token", "", "Telegram bot token for notifications")
	telegramChatID := flag.String("telegram-chat", "", "Telegram chat ID for notifications")
	notificationRetries := flag.Int("notification-retries", 3, "Number of notification send attempts")
	notificationDelay := flag.Duration("notification-delay", 5*time.Second, "Delay between notification retries (e.g., 5s)")
	forceSignal := flag.String("force-signal", "", "Force BUY or SELL on every cycle (testing only)")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			log.Fatalf("Failed to parse config file: %v", err)
		}
		fileCfg.ApplyDefaults()
		return fileCfg
	}

	var instruments []InstrumentConfig
	if *instrumentsFlag != "" {
		for _, quad := range strings.Split(*instrumentsFlag, ",") {
			parts := strings.Split(quad, ":")
			if len(parts) != 4 {
				continue
			}
			short, _ := strconv.Atoi(parts[2])
			long, _ := strconv.Atoi(parts[3])
			instruments = append(instruments, InstrumentConfig{
				SymbolToken: parts[0],
				Timeframe:   parts[1],
				ShortWindow: short,
				LongWindow:  long,
				Active:      true,
			})
		}
	}

	cfg := Config{
		WallexAPIKey:        os.Getenv("WALLEX_API_KEY"),
		QuoteAsset:          *quoteAsset,
		DBConnStr:           os.Getenv("DB_CONN_STR"),
		Mode:                *mode,
		LiveTradingEnabled:  *liveEnabled,
		CheckMargin:         *checkMargin,
		PriceBandPercent:    *priceBand,
		CycleInterval:       *cycleInterval,
		TelegramToken:       *telegramToken,
		TelegramChatID:      *telegramChatID,
		NotificationRetries: *notificationRetries,
		NotificationDelay:   *notificationDelay,
		ForceSignal:         *forceSignal,
		Instruments:         instruments,
	}
	cfg.ApplyDefaults()
	return cfg
}
