package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"coinflow/internal/app"
	"coinflow/internal/domain"
	"coinflow/internal/infra/metrics"

	"github.com/joho/godotenv"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	account := flag.String("account", "", "account to trade on, e.g. bithumb_user1 (default: first configured)")
	fromFlag := flag.String("from", "", "one-shot conversion source, e.g. \"100 USDT\"")
	toFlag := flag.String("to", "", "one-shot conversion target currency, e.g. BTC")
	flag.Parse()

	// Secrets may come from a local .env file instead of the shell.
	_ = godotenv.Load()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Metrics endpoint
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			slog.Info("✅ Metrics server started", slog.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				slog.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	// 5. Order book streams
	workers, err := bootstrap.StartStreams()
	if err != nil {
		slog.Error("❌ Stream setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, worker := range workers {
		if err := worker.Connect(ctx); err != nil {
			slog.Error("Failed to connect stream", slog.Any("error", err))
		}
		defer worker.Disconnect()
	}

	// 6. One-shot conversion mode
	if *fromFlag != "" || *toFlag != "" {
		if err := runConversion(ctx, bootstrap, *account, *fromFlag, *toFlag); err != nil {
			slog.Error("❌ Conversion failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	slog.InfoContext(ctx, "✨ Coinflow fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}

// runConversion executes a single conversion on the selected account and logs
// the outcome, including partial fills.
func runConversion(ctx context.Context, bootstrap *app.Bootstrap, account, fromSpec, toSpec string) error {
	if account == "" {
		account = bootstrap.Config.Exchanges[0].Account().String()
	}
	trader, err := bootstrap.Trader(account)
	if err != nil {
		return err
	}

	from, err := domain.ParseMonetaryAmount(fromSpec)
	if err != nil {
		return err
	}
	to := domain.ParseCurrencyCode(toSpec)

	opts, err := bootstrap.TradeOptions()
	if err != nil {
		return err
	}

	result, err := trader.Trade(ctx, from, to, opts)
	if err != nil {
		return err
	}

	if result.IsComplete {
		slog.Info("✨ Conversion complete",
			slog.String("account", account),
			slog.String("traded", result.Traded.String()),
			slog.Int("hops", result.Hops))
	} else {
		slog.Warn("⚠️ Conversion partially filled",
			slog.String("account", account),
			slog.String("traded", result.Traded.String()),
			slog.Int("hops", result.Hops))
	}
	return nil
}
