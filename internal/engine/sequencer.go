package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"
	"etf_basket/internal/infra"
	"etf_basket/internal/service"
	"etf_basket/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StateStore persists fills and the strategy state after each fill.
// SaveTrade returns false for a trade id it has already recorded.
type StateStore interface {
	SaveTrade(ctx context.Context, strategyName string, trade domain.Trade) (bool, error)
	SaveState(ctx context.Context, st strategy.State) error
}

// Sequencer is the core single-threaded event processor. Ticks, fills and
// commands for one strategy are applied strictly one at a time.
type Sequencer struct {
	inbox   chan event.Event
	nextSeq uint64
	market  *service.MarketService
	store   StateStore
	metrics *infra.Metrics

	// trade ids seen when running without a store
	seenTrades map[string]struct{}

	strategy strategy.Strategy

	// Boundary: used to notify UI or other systems of state changes
	onStateUpdate func(strategy.State)

	mu sync.RWMutex // Used only for external reads (e.g. UI)
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, market *service.MarketService, store StateStore, strat strategy.Strategy, onUpdate func(strategy.State)) *Sequencer {
	if market == nil {
		market = service.NewMarketService()
	}
	return &Sequencer{
		inbox:         make(chan event.Event, inboxSize),
		nextSeq:       1,
		market:        market,
		store:         store,
		metrics:       infra.GlobalMetrics,
		strategy:      strat,
		onStateUpdate: onUpdate,
		seenTrades:    make(map[string]struct{}),
	}
}

// WithMetrics replaces the global metrics sink.
func (s *Sequencer) WithMetrics(m *infra.Metrics) *Sequencer {
	s.metrics = m
	return s
}

// SetStrategy attaches the strategy. Must be called before Run; a
// dispatcher feeding fills back needs the inbox before the strategy exists.
func (s *Sequencer) SetStrategy(strat strategy.Strategy) {
	s.mu.Lock()
	s.strategy = strat
	s.mu.Unlock()
}

// Inbox returns the event channel. External workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ctx, ev)
		}
	}
}

func (s *Sequencer) processEvent(ctx context.Context, ev event.Event) {
	start := time.Now()

	s.mu.Lock()
	ev.SetSeq(s.nextSeq)
	s.nextSeq++
	s.mu.Unlock()

	switch e := ev.(type) {
	case *event.TickEvent:
		s.handleTick(ctx, e)
		event.ReleaseTickEvent(e)
	case *event.TradeEvent:
		s.handleTrade(ctx, e)
		event.ReleaseTradeEvent(e)
	case *event.BasketTargetEvent:
		s.handleBasketTarget(ctx, e)
	case *event.AggregateTargetEvent:
		s.handleAggregateTarget(e)
	case *event.CreationEvent:
		s.handleCreation(ctx, e)
	case *event.LifecycleEvent:
		s.handleLifecycle(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	s.metrics.RecordEvent(time.Since(start).Nanoseconds())
}

func (s *Sequencer) handleTick(ctx context.Context, e *event.TickEvent) {
	tick := s.market.UpdateTick(e.Tick)
	if s.strategy != nil {
		s.strategy.OnTick(ctx, tick)
	}
}

func (s *Sequencer) handleTrade(ctx context.Context, e *event.TradeEvent) {
	if s.strategy == nil {
		s.metrics.RecordFill()
		return
	}
	if e.Trade.TradeID == "" {
		e.Trade.TradeID = uuid.NewString()
	}

	// A fill must be written even during shutdown.
	saveCtx := context.WithoutCancel(ctx)
	if !s.claimTrade(saveCtx, e.Trade) {
		slog.Warn("Duplicate fill ignored",
			slog.String("trade_id", e.Trade.TradeID),
			slog.String("symbol", e.Trade.Symbol))
		return
	}
	s.metrics.RecordFill()

	s.strategy.UpdatePosition(e.Trade)
	s.strategy.OnTrade(ctx, e.Trade)
	st := s.strategy.State()

	// Persistence failure halts: a lost fill means the ledger can no longer be trusted.
	if s.store != nil {
		if err := s.store.SaveState(saveCtx, st); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	if s.onStateUpdate != nil {
		s.onStateUpdate(st)
	}
}

// claimTrade records the fill and reports whether it is new. Only new fills
// reach the ledger.
func (s *Sequencer) claimTrade(ctx context.Context, trade domain.Trade) bool {
	if s.store == nil {
		if _, dup := s.seenTrades[trade.TradeID]; dup {
			return false
		}
		s.seenTrades[trade.TradeID] = struct{}{}
		return true
	}

	inserted, err := s.store.SaveTrade(ctx, s.strategy.Name(), trade)
	if err != nil {
		panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
	}
	return inserted
}

func (s *Sequencer) handleBasketTarget(ctx context.Context, e *event.BasketTargetEvent) {
	trader, ok := s.trader()
	if !ok {
		reply(e.Reply, event.Result{Err: errNoBasketTrader})
		return
	}
	ids, err := trader.SetBasketTarget(ctx, e.Target)
	if err != nil {
		s.metrics.RecordError()
		slog.Warn("Basket target dispatch incomplete", slog.String("target", e.Target.String()), slog.Any("error", err))
	}
	s.saveState(ctx)
	reply(e.Reply, event.Result{OrderIDs: ids, Err: err})
}

func (s *Sequencer) handleAggregateTarget(e *event.AggregateTargetEvent) {
	trader, ok := s.trader()
	if !ok {
		slog.Warn("Strategy does not trade baskets", slog.String("event", e.GetType().String()))
		return
	}
	trader.SetAggregateTarget(e.Target, e.LimitPrice, e.MaxClip)
}

func (s *Sequencer) handleCreation(ctx context.Context, e *event.CreationEvent) {
	trader, ok := s.trader()
	if !ok {
		reply(e.Reply, event.Result{Err: errNoBasketTrader})
		return
	}

	var (
		id  string
		err error
	)
	switch e.Direction {
	case domain.DirectionPurchase:
		id, err = trader.Purchase(ctx, e.Volume)
	case domain.DirectionRedemption:
		id, err = trader.Redemption(ctx, e.Volume)
	default:
		err = fmt.Errorf("unsupported creation direction %q", e.Direction)
	}
	if err != nil {
		reply(e.Reply, event.Result{Err: err})
		return
	}
	reply(e.Reply, event.Result{OrderIDs: []string{id}})
}

func (s *Sequencer) handleLifecycle(e *event.LifecycleEvent) {
	if s.strategy == nil {
		reply(e.Reply, event.Result{Err: errNoBasketTrader})
		return
	}

	var err error
	switch e.Action {
	case event.ActionInit:
		err = s.strategy.Init()
	case event.ActionStart:
		err = s.strategy.Start()
	case event.ActionStop:
		err = s.strategy.Stop()
	default:
		err = fmt.Errorf("unknown lifecycle action %q", e.Action)
	}
	if err == nil {
		s.saveState(context.Background())
	}
	reply(e.Reply, event.Result{Err: err})
}

func (s *Sequencer) saveState(ctx context.Context) {
	if s.store == nil || s.strategy == nil {
		return
	}
	if err := s.store.SaveState(ctx, s.strategy.State()); err != nil {
		s.metrics.RecordError()
		slog.Error("Failed to save strategy state", slog.Any("error", err))
	}
}

func (s *Sequencer) trader() (strategy.BasketTrader, bool) {
	t, ok := s.strategy.(strategy.BasketTrader)
	return t, ok
}

var errNoBasketTrader = errors.New("sequencer has no basket strategy")

func reply(ch chan<- event.Result, res event.Result) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
		slog.Warn("Command reply dropped")
	}
}

// ======================================================================================
// Command helpers (called from outside the hotpath)
// ======================================================================================

// SetBasketTarget enqueues a basket target and waits for the dispatch result.
func (s *Sequencer) SetBasketTarget(ctx context.Context, target decimal.Decimal) ([]string, error) {
	res := make(chan event.Result, 1)
	return s.await(ctx, &event.BasketTargetEvent{Target: target, Reply: res}, res)
}

// SetAggregateTarget enqueues a new ETF target for the tick-driven slicer.
func (s *Sequencer) SetAggregateTarget(ctx context.Context, target, limitPrice, maxClip decimal.Decimal) error {
	ev := &event.AggregateTargetEvent{Target: target, LimitPrice: limitPrice, MaxClip: maxClip}
	select {
	case s.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Purchase enqueues a creation order and waits for its handle.
func (s *Sequencer) Purchase(ctx context.Context, volume decimal.Decimal) (string, error) {
	return s.creation(ctx, domain.DirectionPurchase, volume)
}

// Redemption enqueues a redemption order and waits for its handle.
func (s *Sequencer) Redemption(ctx context.Context, volume decimal.Decimal) (string, error) {
	return s.creation(ctx, domain.DirectionRedemption, volume)
}

func (s *Sequencer) creation(ctx context.Context, dir domain.Direction, volume decimal.Decimal) (string, error) {
	res := make(chan event.Result, 1)
	ids, err := s.await(ctx, &event.CreationEvent{Direction: dir, Volume: volume, Reply: res}, res)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

// Lifecycle enqueues a lifecycle action and waits until it is applied.
func (s *Sequencer) Lifecycle(ctx context.Context, action event.LifecycleAction) error {
	res := make(chan event.Result, 1)
	_, err := s.await(ctx, &event.LifecycleEvent{Action: action, Reply: res}, res)
	return err
}

func (s *Sequencer) await(ctx context.Context, ev event.Event, res <-chan event.Result) ([]string, error) {
	select {
	case s.inbox <- ev:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-res:
		return r.OrderIDs, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StrategyState returns a snapshot of the strategy state (external read).
func (s *Sequencer) StrategyState() (strategy.State, bool) {
	if s.strategy == nil {
		return strategy.State{}, false
	}
	return s.strategy.State(), true
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	data := struct {
		NextSeq  uint64          `json:"next_seq"`
		Strategy *strategy.State `json:"strategy,omitempty"`
		Ticks    []domain.Tick   `json:"ticks"`
	}{
		NextSeq: s.nextSeq,
		Ticks:   s.market.GetAllTicks(),
	}
	s.mu.RUnlock()

	if st, ok := s.StrategyState(); ok {
		data.Strategy = &st
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
