// Package basket turns a basket target and per-component holdings into
// the component orders needed to track it.
package basket

import (
	"log/slog"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// SkipReason explains why a component was left out of a pass.
type SkipReason string

const (
	SkipCrossMarket SkipReason = "CROSS_MARKET"
	SkipZeroShare   SkipReason = "ZERO_SHARE"
	SkipBadShare    SkipReason = "INVALID_SHARE"
	SkipHalted      SkipReason = "HALTED"
	SkipNoTick      SkipReason = "NO_TICK"
	SkipLimitPinned SkipReason = "LIMIT_PINNED"
)

// Skip records one excluded component.
type Skip struct {
	Symbol string
	Reason SkipReason
}

// Delta is the signed quantity a component still has to trade.
type Delta struct {
	Symbol string          `json:"symbol"`
	Qty    decimal.Decimal `json:"qty"`
}

// SyntheticPosition is the basket exposure implied by component holdings.
// Defined is false when no component was eligible; Value is then meaningless.
type SyntheticPosition struct {
	Value   decimal.Decimal
	Defined bool
}

// Input bundles everything one reconciliation pass reads.
type Input struct {
	Exchange   string // home exchange of the basket instrument
	Target     decimal.Decimal
	Ledger     domain.PositionReader
	Components []domain.ComponentDescriptor
	Market     domain.MarketConditionProvider
	Logger     *slog.Logger
}

// Result of one pass. Deltas keep provider order and never hold zeros.
type Result struct {
	Deltas    []Delta
	Synthetic SyntheticPosition
	Skipped   []Skip
}

// Delta returns the required quantity for a symbol.
func (r Result) Delta(symbol string) (decimal.Decimal, bool) {
	for _, d := range r.Deltas {
		if d.Symbol == symbol {
			return d.Qty, true
		}
	}
	return decimal.Zero, false
}

// DeltaMap returns the deltas keyed by symbol.
func (r Result) DeltaMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(r.Deltas))
	for _, d := range r.Deltas {
		m[d.Symbol] = d.Qty
	}
	return m
}

// Reconcile computes, from scratch, the required delta of every eligible
// component and the synthetic basket position as the minimum coverage
// ratio across them. Ineligible components are skipped, never errors.
func Reconcile(in Input) Result {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	minRatio := decimal.Zero

	for _, comp := range in.Components {
		if reason, ok := eligible(comp, in, logger); !ok {
			res.Skipped = append(res.Skipped, Skip{Symbol: comp.Symbol, Reason: reason})
			continue
		}

		cur := in.Ledger.Get(comp.Symbol)
		ratio := cur.Div(comp.Share)
		if !res.Synthetic.Defined || ratio.LessThan(minRatio) {
			minRatio = ratio
			res.Synthetic.Defined = true
		}

		need := comp.Share.Mul(in.Target).Sub(cur)
		if !need.IsZero() {
			res.Deltas = append(res.Deltas, Delta{Symbol: comp.Symbol, Qty: need})
		}
	}

	res.Synthetic.Value = minRatio
	return res
}

func eligible(comp domain.ComponentDescriptor, in Input, logger *slog.Logger) (SkipReason, bool) {
	// cross-market legs are never auto-traded
	if comp.Exchange != in.Exchange {
		return SkipCrossMarket, false
	}
	if comp.Share.IsZero() {
		return SkipZeroShare, false
	}
	if comp.Share.IsNegative() {
		logger.Warn("Component share is invalid", slog.String("symbol", comp.Symbol), slog.String("share", comp.Share.String()))
		return SkipBadShare, false
	}

	switch comp.Class {
	case domain.TradableHalted:
		return SkipHalted, false
	case domain.TradableLimitCheck:
		if in.Market == nil {
			return SkipNoTick, false
		}
		tick, ok := in.Market.GetTick(comp.Symbol)
		if !ok {
			logger.Info("No tick for limit check", slog.String("symbol", comp.Symbol))
			return SkipNoTick, false
		}
		if tick.IsLimitPinned() {
			logger.Warn("Component at price limit",
				slog.String("symbol", comp.Symbol),
				slog.String("last", tick.LastPrice.String()),
				slog.String("limit_up", tick.LimitUp.String()),
				slog.String("limit_down", tick.LimitDown.String()))
			return SkipLimitPinned, false
		}
	}
	return "", true
}
