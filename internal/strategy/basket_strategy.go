package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"etf_basket/internal/basket"
	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultPerOrderVolume is the clip used when none is configured.
var DefaultPerOrderVolume = decimal.NewFromInt(100000)

// BasketConfig holds the parameters of a BasketStrategy.
type BasketConfig struct {
	Name           string
	BasketSymbol   string // the ETF whose components are traded
	TradeBasket    bool
	PerOrderVolume decimal.Decimal
}

// BasketDeps are the collaborators a BasketStrategy reads from and sends to.
type BasketDeps struct {
	Contracts    domain.ContractProvider
	Compositions domain.BasketCompositionProvider
	Market       domain.MarketConditionProvider
	Dispatcher   domain.OrderDispatcher
	Recorder     Recorder
	Logger       *slog.Logger
}

type aggregateTarget struct {
	target     decimal.Decimal
	limitPrice decimal.Decimal
	maxClip    decimal.Decimal
}

// BasketStrategy trades an ETF and its component basket. It holds the
// ledger and the basket target for the life of the instance.
type BasketStrategy struct {
	cfg  BasketConfig
	deps BasketDeps
	log  *slog.Logger

	mu        sync.RWMutex
	lifecycle domain.Lifecycle
	ledger    *domain.PositionLedger

	targetBasketPos decimal.Decimal
	etfPos          decimal.Decimal
	last            basket.Result
	aggregate       *aggregateTarget
}

// NewBasketStrategy creates a strategy in CREATED state.
func NewBasketStrategy(cfg BasketConfig, deps BasketDeps) *BasketStrategy {
	if !cfg.PerOrderVolume.IsPositive() {
		cfg.PerOrderVolume = DefaultPerOrderVolume
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BasketStrategy{
		cfg:    cfg,
		deps:   deps,
		log:    logger.With(slog.String("strategy", cfg.Name)),
		ledger: domain.NewPositionLedger(),
	}
}

func (s *BasketStrategy) Name() string { return s.cfg.Name }

// Restore loads persisted holdings and target. Only valid before Init.
func (s *BasketStrategy) Restore(target decimal.Decimal, positions map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle.State() != domain.StateCreated {
		return fmt.Errorf("%w: restore in %s", domain.ErrInvalidTransition, s.lifecycle.State())
	}
	for sym, qty := range positions {
		s.ledger.Set(sym, qty)
	}
	s.targetBasketPos = target
	return nil
}

// Init computes the first reconciliation and moves to INITIALIZED.
func (s *BasketStrategy) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Init(); err != nil {
		return err
	}
	s.reconcile()
	s.log.Info("Strategy initialized",
		slog.String("basket", s.cfg.BasketSymbol),
		slog.String("etf_pos", s.etfPos.String()),
		slog.Int("components", len(s.deps.Compositions.GetBasketComponents(s.cfg.BasketSymbol))))
	return nil
}

// Start enables order dispatch.
func (s *BasketStrategy) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Start(); err != nil {
		return err
	}
	s.log.Info("Strategy trading")
	return nil
}

// Stop disables order dispatch. Ledger and target are kept.
func (s *BasketStrategy) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Stop(); err != nil {
		return err
	}
	s.aggregate = nil
	s.log.Info("Strategy stopped")
	return nil
}

// UpdatePosition applies a fill to the ledger.
func (s *BasketStrategy) UpdatePosition(trade domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Apply(trade)
}

// OnTrade refreshes the ETF position and the reconciliation for reporting.
// It never dispatches.
func (s *BasketStrategy) OnTrade(_ context.Context, trade domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconcile()
	s.log.Debug("Trade processed",
		slog.String("symbol", trade.Symbol),
		slog.String("direction", string(trade.Direction)),
		slog.String("volume", trade.Volume.String()),
		slog.String("etf_pos", s.etfPos.String()))
}

// OnTick drives the aggregate target, one clip per basket tick.
// Each clip assumes earlier clips have already filled into the ledger.
func (s *BasketStrategy) OnTick(ctx context.Context, tick domain.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tick.Symbol != s.cfg.BasketSymbol || s.aggregate == nil || !s.lifecycle.Trading() {
		return
	}

	price := s.aggregate.limitPrice
	if price.IsZero() {
		price = tick.LastPrice
	}
	if _, _, err := s.buySellWithTarget(ctx, price, s.aggregate.target, s.aggregate.maxClip, domain.OrderFlags{}); err != nil {
		s.log.Warn("Aggregate clip failed", slog.Any("error", err))
	}
}

// SetBasketTarget records the target basket position, reconciles, and
// sends one unsliced order per component still off target. To exit the
// basket set target to zero.
func (s *BasketStrategy) SetBasketTarget(ctx context.Context, target decimal.Decimal) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targetBasketPos = target
	res := s.reconcile()
	if !s.lifecycle.Trading() {
		return nil, domain.ErrNotTrading
	}

	// TODO: clip component orders with PerOrderVolume once venues reject oversized basket legs.
	intents := basket.IntentsForDeltas(res.Deltas)
	ids := make([]string, 0, len(intents))
	var errs []error
	for _, intent := range intents {
		id, err := s.send(ctx, intent)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, id)
	}
	s.log.Info("Basket target applied",
		slog.String("target", target.String()),
		slog.Int("orders", len(ids)),
		slog.Int("skipped", len(res.Skipped)))
	return ids, errors.Join(errs...)
}

// SetAggregateTarget makes every following basket tick send one clip of at
// most maxClip toward target. A zero limitPrice uses the tick's last price
// and a zero maxClip uses the configured per order volume.
func (s *BasketStrategy) SetAggregateTarget(target, limitPrice, maxClip decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aggregate = &aggregateTarget{target: target, limitPrice: limitPrice, maxClip: maxClip}
}

// BuySellWithTarget sends one clip of the ETF itself toward target.
// It returns false when the ETF is already at target.
func (s *BasketStrategy) BuySellWithTarget(ctx context.Context, limitPrice, target, perOrderMax decimal.Decimal, flags domain.OrderFlags) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buySellWithTarget(ctx, limitPrice, target, perOrderMax, flags)
}

func (s *BasketStrategy) buySellWithTarget(ctx context.Context, limitPrice, target, perOrderMax decimal.Decimal, flags domain.OrderFlags) (string, bool, error) {
	if perOrderMax.IsZero() {
		perOrderMax = s.cfg.PerOrderVolume
	}
	s.etfPos = s.ledger.Get(s.cfg.BasketSymbol)

	intent, ok := basket.SliceOrder(s.etfPos, target, perOrderMax, basket.SliceParams{
		Symbol:     s.cfg.BasketSymbol,
		LimitPrice: limitPrice,
		Flags:      flags,
	})
	if !ok {
		return "", false, nil
	}
	id, err := s.send(ctx, intent)
	return id, true, err
}

// Purchase sends a creation order for volume ETF units.
func (s *BasketStrategy) Purchase(ctx context.Context, volume decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.send(ctx, basket.PurchaseIntent(s.cfg.BasketSymbol, volume))
}

// Redemption sends a redemption order for volume ETF units.
func (s *BasketStrategy) Redemption(ctx context.Context, volume decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.send(ctx, basket.RedemptionIntent(s.cfg.BasketSymbol, volume))
}

// Reconcile re-runs reconciliation against the current ledger and market.
func (s *BasketStrategy) Reconcile() basket.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reconcile()
}

// State returns a copy of the reportable state.
func (s *BasketStrategy) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Name:             s.cfg.Name,
		BasketSymbol:     s.cfg.BasketSymbol,
		Lifecycle:        s.lifecycle.State(),
		Inited:           s.lifecycle.Inited(),
		Trading:          s.lifecycle.Trading(),
		TradeBasket:      s.cfg.TradeBasket,
		EtfPos:           s.etfPos,
		BasketPos:        s.last.Synthetic.Value,
		BasketPosDefined: s.last.Synthetic.Defined,
		TargetBasketPos:  s.targetBasketPos,
		RequiredDeltas:   append([]basket.Delta(nil), s.last.Deltas...),
		Positions:        s.ledger.Snapshot(),
	}
}

// reconcile must be called with lock held
func (s *BasketStrategy) reconcile() basket.Result {
	s.etfPos = s.ledger.Get(s.cfg.BasketSymbol)

	contract, ok := s.deps.Contracts.GetContract(s.cfg.BasketSymbol)
	if !ok {
		s.log.Info("No contract for basket", slog.String("symbol", s.cfg.BasketSymbol))
		s.last = basket.Result{}
		s.deps.Recorder.RecordReconcile(0)
		return s.last
	}

	s.last = basket.Reconcile(basket.Input{
		Exchange:   contract.Exchange,
		Target:     s.targetBasketPos,
		Ledger:     s.ledger,
		Components: s.deps.Compositions.GetBasketComponents(s.cfg.BasketSymbol),
		Market:     s.deps.Market,
		Logger:     s.log,
	})
	s.deps.Recorder.RecordReconcile(len(s.last.Skipped))
	return s.last
}

// send must be called with lock held
func (s *BasketStrategy) send(ctx context.Context, intent domain.OrderIntent) (string, error) {
	if !s.lifecycle.Trading() {
		return "", domain.ErrNotTrading
	}

	id, err := s.deps.Dispatcher.SendOrder(ctx, intent)
	if err != nil {
		s.deps.Recorder.RecordDispatchError()
		s.log.Error("Order dispatch failed", slog.String("intent", intent.String()), slog.Any("error", err))
		return "", fmt.Errorf("send %s: %w", intent.Symbol, err)
	}
	s.deps.Recorder.RecordOrderDispatched()
	s.log.Info("Order sent", slog.String("id", id), slog.String("intent", intent.String()))
	return id, nil
}
