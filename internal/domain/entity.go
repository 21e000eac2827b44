package domain

import (
	"time"
)

// StrategyRecord is the persisted state surface of one strategy instance.
type StrategyRecord struct {
	Name            string    `gorm:"primaryKey" json:"name"`
	BasketSymbol    string    `json:"basket_symbol"`
	Lifecycle       string    `json:"lifecycle"`
	TradeBasket     bool      `json:"trade_basket"`
	TargetBasketPos string    `json:"target_basket_pos"` // decimal string
	BasketPos       string    `json:"basket_pos"`        // empty when undefined
	EtfPos          string    `json:"etf_pos"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PositionRecord is one ledger entry of a strategy.
type PositionRecord struct {
	Strategy  string    `gorm:"primaryKey" json:"strategy"`
	Symbol    string    `gorm:"primaryKey" json:"symbol"`
	Quantity  string    `json:"quantity"` // decimal string
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderRecord is an audit row for every dispatched intent.
type OrderRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Strategy  string    `gorm:"index" json:"strategy"`
	Symbol    string    `gorm:"index" json:"symbol"`
	Direction string    `json:"direction"`
	Offset    string    `json:"offset"`
	Type      string    `json:"type"`
	Price     string    `json:"price"`
	Volume    string    `json:"volume"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TradeRecord is an audit row for every fill applied to a ledger.
type TradeRecord struct {
	TradeID   string    `gorm:"primaryKey" json:"trade_id"`
	OrderID   string    `gorm:"index" json:"order_id"`
	Strategy  string    `gorm:"index" json:"strategy"`
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Offset    string    `json:"offset"`
	Price     string    `json:"price"`
	Volume    string    `json:"volume"`
	Time      time.Time `json:"time"`
}
