package strategy

import (
	"context"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// Strategy is the interface that all trading strategies must implement.
// It is called synchronously by the Sequencer.
type Strategy interface {
	Name() string

	// Init, Start and Stop drive the lifecycle. Orders are only sent while trading.
	Init() error
	Start() error
	Stop() error

	// OnTick is called after the market cache has been updated.
	OnTick(ctx context.Context, tick domain.Tick)

	// UpdatePosition applies a fill to the strategy's ledger. The Sequencer
	// always calls it before OnTrade.
	UpdatePosition(trade domain.Trade)

	// OnTrade is called once the ledger reflects the fill.
	OnTrade(ctx context.Context, trade domain.Trade)

	// State returns a copy of the reportable state.
	State() State
}

// BasketTrader is implemented by strategies that accept basket commands.
type BasketTrader interface {
	SetBasketTarget(ctx context.Context, target decimal.Decimal) ([]string, error)
	SetAggregateTarget(target, limitPrice, maxClip decimal.Decimal)
	Purchase(ctx context.Context, volume decimal.Decimal) (string, error)
	Redemption(ctx context.Context, volume decimal.Decimal) (string, error)
}

// Recorder receives strategy counters.
type Recorder interface {
	RecordReconcile(skipped int)
	RecordOrderDispatched()
	RecordDispatchError()
}

type nopRecorder struct{}

func (nopRecorder) RecordReconcile(int)    {}
func (nopRecorder) RecordOrderDispatched() {}
func (nopRecorder) RecordDispatchError()   {}
