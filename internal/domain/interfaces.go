package domain

import (
	"context"
)

// ContractProvider resolves reference data for an instrument.
type ContractProvider interface {
	GetContract(symbol string) (Contract, bool)
}

// BasketCompositionProvider yields the ordered components of a basket.
type BasketCompositionProvider interface {
	GetBasketComponents(basketSymbol string) []ComponentDescriptor
}

// MarketConditionProvider returns the latest cached tick. A miss means
// unavailable; implementations must not block.
type MarketConditionProvider interface {
	GetTick(symbol string) (Tick, bool)
}

// OrderDispatcher accepts order intents and returns an order handle.
// Success or failure of the order itself is observed later through trades.
type OrderDispatcher interface {
	SendOrder(ctx context.Context, intent OrderIntent) (string, error)
}

// ExchangeWorker defines the interface for market data connectors
type ExchangeWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
