package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/broker"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/config"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/db"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/engine"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/notifier"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/strategy"
)

func buildStorage(cfg config.Config) (db.Storage, error) {
	if cfg.DBConnStr == "" {
		log.Println("No DB connection string, using in-memory storage")
		return db.NewMemory(), nil
	}
	pg, err := db.NewPostgres(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.InitSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func buildBroker(cfg config.Config) broker.Broker {
	if cfg.Mode == "paper" {
		sim := broker.NewSimulator(1_000_000)
		end := time.Now().UTC()
		for _, inst := range cfg.Instruments {
			sim.LoadCandles(inst.SymbolToken,
				broker.SyntheticCandles(inst.SymbolToken, inst.Timeframe, inst.CandleCount, 100, end))
		}
		return sim
	}
	return broker.NewWallexBroker(cfg.WallexAPIKey, cfg.QuoteAsset)
}

func buildNotifier(cfg config.Config) notifier.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
		return notifier.NoopNotifier{}
	}
	return notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID,
		cfg.NotificationRetries, cfg.NotificationDelay)
}

func runCycle(ctx context.Context, e *engine.Engine, cfg config.Config) {
	force := strategy.SignalKind(cfg.ForceSignal)
	instruments := cfg.ActiveInstruments()
	results := e.RunBatch(ctx, instruments, force)

	for _, r := range results {
		outcome := r.Result.Outcome
		log.Printf("[%s] signal=%s state=%s reason=%q order=%s broker_status=%s",
			r.Symbol, r.Result.Signal.Kind, outcome.State, outcome.Reason,
			outcome.OrderID, outcome.BrokerStatus)
	}

	// The broker session has no concurrency contract, so the re-poll of
	// unresolved orders shares the cycle instead of running in background.
	e.ResolvePendingExecutions(ctx, instruments)
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	storage, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	n := buildNotifier(cfg)
	b := buildBroker(cfg)

	opts := engine.ExecutorOptions{
		DryRun:             cfg.Mode == "dry-run",
		LiveTradingEnabled: cfg.LiveTradingEnabled,
		CheckMargin:        cfg.CheckMargin,
		PriceBandPercent:   cfg.PriceBandPercent,
	}
	e := engine.New(b, storage, n, opts)

	log.Printf("Starting engine: mode=%s live_enabled=%v instruments=%d cycle=%s",
		cfg.Mode, cfg.LiveTradingEnabled, len(cfg.ActiveInstruments()), cfg.CycleInterval)
	if cfg.ForceSignal != "" {
		log.Printf("WARNING: force signal enabled: %s", cfg.ForceSignal)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("Received signal %v, shutting down", s)
		cancel()
	}()

	// Discrete triggered cycles: each batch runs to completion before the
	// next tick is considered.
	ticker := time.NewTicker(cfg.CycleInterval)
	defer ticker.Stop()

	runCycle(ctx, e, cfg)
	for {
		select {
		case <-ctx.Done():
			log.Println("Engine stopped")
			return
		case <-ticker.C:
			runCycle(ctx, e, cfg)
		}
	}
}
