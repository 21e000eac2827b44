package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"etf_basket/internal/engine"
	"etf_basket/internal/event"
	"etf_basket/internal/execution"
	"etf_basket/internal/infra"
	"etf_basket/internal/infra/feed"
	"etf_basket/internal/infra/storage"
	"etf_basket/internal/infra/webhook"
	"etf_basket/internal/service"
	"etf_basket/internal/strategy"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Reference  *service.ReferenceService
	Market     *service.MarketService
	Metrics    *infra.Metrics
	Sequencer  *engine.Sequencer
	Strategy   *strategy.BasketStrategy
	Dispatcher *execution.PaperDispatcher
	Feed       *feed.Worker
	Webhook    *http.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the config file at path and wires every component.
func (b *Bootstrap) Initialize(ctx context.Context, path string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping ETF basket engine", slog.String("config", path))

	// 3. Initialize Storage (DB)
	dsn := cfg.Storage.Path
	if cfg.Storage.Driver == storage.DriverPostgres {
		dsn = cfg.Storage.DSN
	}
	store, err := storage.Open(cfg.Storage.Driver, dsn)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized", slog.String("driver", cfg.Storage.Driver))

	return b.Wire(ctx, cfg)
}

// Wire builds the engine from a parsed config. Storage is optional.
func (b *Bootstrap) Wire(ctx context.Context, cfg *infra.Config) error {
	b.Config = cfg
	if b.Metrics == nil {
		b.Metrics = infra.GlobalMetrics
	}

	// Reference data
	b.Reference = service.NewReferenceService()
	for _, c := range cfg.Basket.Contracts {
		b.Reference.AddContract(c)
	}
	for basketSymbol, comps := range cfg.Basket.Components {
		b.Reference.SetBasket(basketSymbol, comps)
	}
	slog.Info("Reference data loaded",
		slog.Int("contracts", len(cfg.Basket.Contracts)),
		slog.Int("baskets", len(cfg.Basket.Components)))

	b.Market = service.NewMarketService()

	var stateStore engine.StateStore
	var journal execution.OrderJournal
	if b.Storage != nil {
		stateStore = b.Storage
		journal = b.Storage
	}

	b.Sequencer = engine.NewSequencer(cfg.Engine.InboxSize, b.Market, stateStore, nil, func(st strategy.State) {
		slog.Debug("Strategy state updated",
			slog.String("etf_pos", st.EtfPos.String()),
			slog.Bool("basket_pos_defined", st.BasketPosDefined),
			slog.String("basket_pos", st.BasketPos.String()))
	}).WithMetrics(b.Metrics)

	b.Dispatcher = execution.NewPaperDispatcher(cfg.Strategy.Name, b.Market, b.Sequencer.Inbox(), journal)

	b.Strategy = strategy.NewBasketStrategy(
		strategy.BasketConfig{
			Name:           cfg.Strategy.Name,
			BasketSymbol:   cfg.Strategy.BasketSymbol,
			TradeBasket:    cfg.Strategy.TradeBasket,
			PerOrderVolume: cfg.Strategy.PerOrderVolume,
		},
		strategy.BasketDeps{
			Contracts:    b.Reference,
			Compositions: b.Reference,
			Market:       b.Market,
			Dispatcher:   b.Dispatcher,
			Recorder:     b.Metrics,
			Logger:       slog.Default(),
		},
	)
	if err := b.restore(ctx); err != nil {
		return err
	}
	b.Sequencer.SetStrategy(b.Strategy)

	if cfg.Feed.WSURL != "" {
		b.Feed = feed.NewWorker(cfg.Feed.WSURL, b.feedSymbols(), b.Sequencer.Inbox(), b.Metrics, slog.Default())
	}

	if cfg.Webhook.Listen != "" {
		var signer *webhook.Signer
		if cfg.Webhook.Secret != "" {
			signer = webhook.NewSigner(cfg.Webhook.Secret, 30*time.Second)
		} else {
			slog.Warn("Webhook accepts unsigned fills and commands", slog.String("listen", cfg.Webhook.Listen))
		}
		routes := webhook.Routes{
			Fills:      webhook.NewFillHandler(b.Sequencer.Inbox(), signer, slog.Default()),
			Commands:   b.Sequencer,
			Components: b.Reference,
			Strategy:   cfg.Strategy.Name,
			State:      func() any { return b.Strategy.State() },
			Metrics:    b.Metrics.Snapshot,
			Signer:     signer,
			Logger:     slog.Default(),
		}
		if b.Storage != nil {
			routes.Journal = b.Storage
		}
		b.Webhook = webhook.NewServer(cfg.Webhook.Listen, routes)
	}
	return nil
}

func (b *Bootstrap) restore(ctx context.Context) error {
	if b.Storage == nil {
		return nil
	}
	saved, err := b.Storage.LoadState(ctx, b.Config.Strategy.Name)
	if err != nil {
		return fmt.Errorf("load strategy state: %w", err)
	}
	if saved == nil {
		return nil
	}
	if err := b.Strategy.Restore(saved.TargetBasketPos, saved.Positions); err != nil {
		return err
	}
	slog.Info("Strategy state restored",
		slog.String("target_basket_pos", saved.TargetBasketPos.String()),
		slog.Int("positions", len(saved.Positions)),
		slog.String("last_lifecycle", saved.Lifecycle))
	return nil
}

// feedSymbols returns the configured feed symbols, or the basket symbol
// plus its components when none are configured.
func (b *Bootstrap) feedSymbols() []string {
	if len(b.Config.Feed.Symbols) > 0 {
		return b.Config.Feed.Symbols
	}
	basketSymbol := b.Config.Strategy.BasketSymbol
	symbols := []string{basketSymbol}
	comps := b.Reference.GetBasketComponents(basketSymbol)
	rest := make([]string, 0, len(comps))
	for _, c := range comps {
		rest = append(rest, c.Symbol)
	}
	sort.Strings(rest)
	return append(symbols, rest...)
}

// Start runs the sequencer, connects the feed and, when configured,
// initializes and starts the strategy.
func (b *Bootstrap) Start(ctx context.Context) error {
	go b.Sequencer.Run(ctx)
	slog.InfoContext(ctx, "Sequencer started")

	if b.Feed != nil {
		if err := b.Feed.Connect(ctx); err != nil {
			slog.Error("Failed to connect feed", slog.Any("error", err))
		}
	}

	if b.Webhook != nil {
		go func() {
			slog.Info("Webhook listening", slog.String("addr", b.Webhook.Addr))
			if err := b.Webhook.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Webhook failed", slog.Any("error", err))
			}
		}()
	}

	if !b.Config.Strategy.AutoStart {
		return nil
	}
	if err := b.Sequencer.Lifecycle(ctx, event.ActionInit); err != nil {
		return fmt.Errorf("init strategy: %w", err)
	}
	if err := b.Sequencer.Lifecycle(ctx, event.ActionStart); err != nil {
		return fmt.Errorf("start strategy: %w", err)
	}
	return nil
}

// Shutdown releases connections. Call after the Run context is cancelled;
// state was already persisted after every fill and command.
func (b *Bootstrap) Shutdown() {
	if b.Feed != nil {
		b.Feed.Disconnect()
	}
	if b.Webhook != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.Webhook.Shutdown(ctx); err != nil {
			slog.Warn("Failed to stop webhook", slog.Any("error", err))
		}
		cancel()
	}
	if b.Dispatcher != nil {
		b.Dispatcher.Wait()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}
