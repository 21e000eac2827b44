package basket

import (
	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// IntentForDelta maps a signed component delta to its order: buys open a
// long, sells close it. Component orders are priced by the venue.
func IntentForDelta(symbol string, delta decimal.Decimal) (domain.OrderIntent, bool) {
	intent := domain.OrderIntent{
		Symbol: symbol,
		Price:  decimal.Zero,
		Volume: delta.Abs(),
		Type:   domain.OrderTypeBestOrLimit,
	}
	switch delta.Sign() {
	case 1:
		intent.Direction, intent.Offset = domain.DirectionLong, domain.OffsetOpen
	case -1:
		intent.Direction, intent.Offset = domain.DirectionShort, domain.OffsetClose
	default:
		return domain.OrderIntent{}, false
	}
	return intent, true
}

// IntentsForDeltas maps every delta of a pass, one intent per component.
// Volumes are not clipped.
func IntentsForDeltas(deltas []Delta) []domain.OrderIntent {
	out := make([]domain.OrderIntent, 0, len(deltas))
	for _, d := range deltas {
		if intent, ok := IntentForDelta(d.Symbol, d.Qty); ok {
			out = append(out, intent)
		}
	}
	return out
}

// PurchaseIntent is a creation order for volume basket units at market.
func PurchaseIntent(symbol string, volume decimal.Decimal) domain.OrderIntent {
	return creationIntent(symbol, domain.DirectionPurchase, volume)
}

// RedemptionIntent is a redemption order for volume basket units at market.
func RedemptionIntent(symbol string, volume decimal.Decimal) domain.OrderIntent {
	return creationIntent(symbol, domain.DirectionRedemption, volume)
}

func creationIntent(symbol string, dir domain.Direction, volume decimal.Decimal) domain.OrderIntent {
	return domain.OrderIntent{
		Symbol:    symbol,
		Direction: dir,
		Offset:    domain.OffsetNone,
		Price:     decimal.Zero,
		Volume:    volume,
		Type:      domain.OrderTypeMarket,
	}
}
