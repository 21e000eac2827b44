package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a fill reported by the venue.
type Trade struct {
	TradeID   string          `json:"trade_id"`
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Direction Direction       `json:"direction"`
	Offset    Offset          `json:"offset"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Time      time.Time       `json:"time"`
}

// SignedVolume returns the filled quantity with the sign of its effect on
// the holding.
func (t Trade) SignedVolume() decimal.Decimal {
	return t.Volume.Mul(decimal.NewFromInt(t.Direction.Sign()))
}
