package strategy

import (
	"etf_basket/internal/basket"
	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// State is the reporting surface of a strategy. It is consumed by
// monitoring and persistence, never by the strategy's own logic.
type State struct {
	Name             string                     `json:"name"`
	BasketSymbol     string                     `json:"basket_symbol"`
	Lifecycle        domain.LifecycleState      `json:"lifecycle"`
	Inited           bool                       `json:"inited"`
	Trading          bool                       `json:"trading"`
	TradeBasket      bool                       `json:"trade_basket"`
	EtfPos           decimal.Decimal            `json:"etf_pos"`
	BasketPos        decimal.Decimal            `json:"basket_pos"`
	BasketPosDefined bool                       `json:"basket_pos_defined"`
	TargetBasketPos  decimal.Decimal            `json:"target_basket_pos"`
	RequiredDeltas   []basket.Delta             `json:"required_deltas"`
	Positions        map[string]decimal.Decimal `json:"positions"`
}
