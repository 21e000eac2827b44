package basket

import (
	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// SliceParams are passed through unchanged into the sliced intent.
type SliceParams struct {
	Symbol     string
	LimitPrice decimal.Decimal
	Flags      domain.OrderFlags
}

// SliceOrder returns the next clip toward target: at most maxClip, in the
// direction of the gap. There is no in-flight tracking; callers re-derive
// current from the ledger and call again until the gap closes.
func SliceOrder(current, target, maxClip decimal.Decimal, p SliceParams) (domain.OrderIntent, bool) {
	if !maxClip.IsPositive() {
		return domain.OrderIntent{}, false
	}

	gap := target.Sub(current)
	intent := domain.OrderIntent{
		Symbol: p.Symbol,
		Price:  p.LimitPrice,
		Volume: decimal.Min(gap.Abs(), maxClip),
		Type:   domain.OrderTypeLimit,
		Flags:  p.Flags,
	}

	switch gap.Sign() {
	case 1:
		intent.Direction, intent.Offset = domain.DirectionLong, domain.OffsetOpen
	case -1:
		intent.Direction, intent.Offset = domain.DirectionShort, domain.OffsetClose
	default:
		return domain.OrderIntent{}, false
	}
	return intent, true
}
