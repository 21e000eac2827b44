package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of an order or trade.
type Direction string

// Offset tells the venue whether an order opens or closes a position.
type Offset string

// OrderType is the pricing instruction of an order.
type OrderType string

const (
	DirectionLong       Direction = "LONG"
	DirectionShort      Direction = "SHORT"
	DirectionPurchase   Direction = "PURCHASE"   // ETF creation
	DirectionRedemption Direction = "REDEMPTION" // ETF redemption

	OffsetNone  Offset = "NONE"
	OffsetOpen  Offset = "OPEN"
	OffsetClose Offset = "CLOSE"

	OrderTypeLimit       OrderType = "LIMIT"
	OrderTypeMarket      OrderType = "MARKET"
	OrderTypeBestOrLimit OrderType = "BEST_OR_LIMIT"

	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusFilled    = "FILLED"
	OrderStatusRejected  = "REJECTED"
)

// Sign returns +1 for directions that add to a holding and -1 for those
// that reduce it.
func (d Direction) Sign() int64 {
	switch d {
	case DirectionLong, DirectionPurchase:
		return 1
	case DirectionShort, DirectionRedemption:
		return -1
	default:
		return 0
	}
}

// OrderFlags are pass-through order options. They are never interpreted
// by the reconciliation core.
type OrderFlags struct {
	SignalPrice *decimal.Decimal `json:"signal_price,omitempty"`
	Stop        bool             `json:"stop"`
	Lock        bool             `json:"lock"`
	Net         bool             `json:"net"`
}

// OrderIntent is a request to trade, not yet acknowledged by a venue.
type OrderIntent struct {
	Symbol    string          `json:"symbol"`
	Direction Direction       `json:"direction"`
	Offset    Offset          `json:"offset"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Type      OrderType       `json:"type"`
	Flags     OrderFlags      `json:"flags"`
}

// IsBuy reports whether the intent increases the holding.
func (o OrderIntent) IsBuy() bool {
	return o.Direction.Sign() > 0
}

func (o OrderIntent) String() string {
	return fmt.Sprintf("%s %s/%s %s @ %s (%s)", o.Symbol, o.Direction, o.Offset, o.Volume, o.Price, o.Type)
}

// Order is an intent that has been handed to a dispatcher.
type Order struct {
	ID        string
	Strategy  string
	Intent    OrderIntent
	Status    string
	CreatedAt time.Time
}
