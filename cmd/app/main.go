package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"etf_basket/internal/app"
	"etf_basket/internal/event"

	"github.com/joho/godotenv"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Warm the event pools before the feed starts
	event.Warmup()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, *configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 5. Sequencer, feed and strategy
	if err := bootstrap.Start(ctx); err != nil {
		slog.Error("Startup failed", slog.Any("error", err))
		stop()
		bootstrap.Shutdown()
		os.Exit(1)
	}

	slog.InfoContext(ctx, "ETF basket engine operational. Press Ctrl+C to exit.",
		slog.String("strategy", bootstrap.Config.Strategy.Name),
		slog.String("basket", bootstrap.Config.Strategy.BasketSymbol))

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	bootstrap.Shutdown()
}
