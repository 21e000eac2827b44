package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is the latest known market condition of an instrument.
type Tick struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
	LimitUp   decimal.Decimal `json:"limit_up"`
	LimitDown decimal.Decimal `json:"limit_down"`
	Volume    decimal.Decimal `json:"volume"`
	Time      time.Time       `json:"time"`
}

// IsLimitUp returns true if the last price is pinned at the upper limit.
func (t Tick) IsLimitUp() bool {
	return t.LastPrice.Equal(t.LimitUp)
}

// IsLimitDown returns true if the last price is pinned at the lower limit.
func (t Tick) IsLimitDown() bool {
	return t.LastPrice.Equal(t.LimitDown)
}

// IsLimitPinned reports whether the instrument cannot currently trade
// because its price sits on either limit.
func (t Tick) IsLimitPinned() bool {
	return t.IsLimitUp() || t.IsLimitDown()
}
