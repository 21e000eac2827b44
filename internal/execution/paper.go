package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderJournal records every order handed to a dispatcher.
type OrderJournal interface {
	SaveOrder(ctx context.Context, order domain.Order) error
}

// PaperDispatcher fills every accepted intent immediately and in full.
// Fills are fed back to the Sequencer inbox as TradeEvents, so they are
// applied after the command that produced them completes.
type PaperDispatcher struct {
	strategy string
	market   domain.MarketConditionProvider
	inbox    chan<- event.Event
	journal  OrderJournal

	mu     sync.Mutex
	orders []domain.Order
	fills  []domain.Trade
	wg     sync.WaitGroup
}

// NewPaperDispatcher creates a paper venue. market and journal may be nil.
func NewPaperDispatcher(strategyName string, market domain.MarketConditionProvider, inbox chan<- event.Event, journal OrderJournal) *PaperDispatcher {
	return &PaperDispatcher{
		strategy: strategyName,
		market:   market,
		inbox:    inbox,
		journal:  journal,
	}
}

// SendOrder accepts an intent and schedules its fill.
func (p *PaperDispatcher) SendOrder(ctx context.Context, intent domain.OrderIntent) (string, error) {
	if !intent.Volume.IsPositive() {
		return "", fmt.Errorf("%w: volume %s", domain.ErrDispatchRejected, intent.Volume)
	}
	if intent.Direction.Sign() == 0 {
		return "", fmt.Errorf("%w: direction %q", domain.ErrDispatchRejected, intent.Direction)
	}

	now := time.Now()
	order := domain.Order{
		ID:        uuid.NewString(),
		Strategy:  p.strategy,
		Intent:    intent,
		Status:    domain.OrderStatusSubmitted,
		CreatedAt: now,
	}
	trade := domain.Trade{
		TradeID:   uuid.NewString(),
		OrderID:   order.ID,
		Symbol:    intent.Symbol,
		Direction: intent.Direction,
		Offset:    intent.Offset,
		Price:     p.fillPrice(intent),
		Volume:    intent.Volume,
		Time:      now,
	}

	if p.journal != nil {
		if err := p.journal.SaveOrder(ctx, order); err != nil {
			slog.Error("Failed to journal order", slog.String("id", order.ID), slog.Any("error", err))
		}
	}

	p.mu.Lock()
	p.orders = append(p.orders, order)
	p.fills = append(p.fills, trade)
	p.mu.Unlock()

	p.deliver(ctx, trade)
	return order.ID, nil
}

// fillPrice uses the limit price, or the last traded price for venue-priced
// orders. Creation orders carry no price.
func (p *PaperDispatcher) fillPrice(intent domain.OrderIntent) decimal.Decimal {
	if !intent.Price.IsZero() || p.market == nil {
		return intent.Price
	}
	if tick, ok := p.market.GetTick(intent.Symbol); ok {
		return tick.LastPrice
	}
	return intent.Price
}

// deliver hands the fill to the inbox. The order is journaled FILLED only
// once the fill is in the inbox; a dropped fill leaves it SUBMITTED.
func (p *PaperDispatcher) deliver(ctx context.Context, trade domain.Trade) {
	if p.inbox == nil {
		p.markFilled(ctx, trade.OrderID)
		return
	}
	ev := event.AcquireTradeEvent()
	ev.Ts = trade.Time
	ev.Trade = trade

	// The caller usually runs on the Sequencer goroutine; sending inline
	// would block on a full inbox.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case p.inbox <- ev:
			p.markFilled(context.WithoutCancel(ctx), trade.OrderID)
		case <-ctx.Done():
			event.ReleaseTradeEvent(ev)
			slog.Warn("Paper fill dropped", slog.String("order_id", trade.OrderID))
		}
	}()
}

func (p *PaperDispatcher) markFilled(ctx context.Context, orderID string) {
	var (
		order domain.Order
		found bool
	)
	p.mu.Lock()
	for i := range p.orders {
		if p.orders[i].ID == orderID {
			p.orders[i].Status = domain.OrderStatusFilled
			order, found = p.orders[i], true
			break
		}
	}
	p.mu.Unlock()

	if !found || p.journal == nil {
		return
	}
	if err := p.journal.SaveOrder(ctx, order); err != nil {
		slog.Error("Failed to journal fill", slog.String("id", orderID), slog.Any("error", err))
	}
}

// Wait blocks until every scheduled fill has been delivered or dropped.
func (p *PaperDispatcher) Wait() {
	p.wg.Wait()
}

// GetOrders returns all accepted orders.
func (p *PaperDispatcher) GetOrders() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]domain.Order(nil), p.orders...)
}

// GetFills returns all generated fills.
func (p *PaperDispatcher) GetFills() []domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]domain.Trade(nil), p.fills...)
}
