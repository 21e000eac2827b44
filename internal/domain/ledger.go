package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PositionReader is the read side of a ledger.
type PositionReader interface {
	Get(symbol string) decimal.Decimal
}

// PositionLedger maps instrument id to signed holding (positive = long).
// Absent symbols read as zero and reading never creates an entry.
type PositionLedger struct {
	positions map[string]decimal.Decimal
}

// NewPositionLedger creates an empty ledger.
func NewPositionLedger() *PositionLedger {
	return &PositionLedger{
		positions: make(map[string]decimal.Decimal),
	}
}

// Get returns the holding for a symbol, zero if never traded.
func (l *PositionLedger) Get(symbol string) decimal.Decimal {
	return l.positions[symbol]
}

// Apply adds the signed volume of a fill to the traded instrument.
func (l *PositionLedger) Apply(trade Trade) decimal.Decimal {
	qty := l.positions[trade.Symbol].Add(trade.SignedVolume())
	l.positions[trade.Symbol] = qty
	return qty
}

// Set overwrites a holding. Used when restoring persisted state.
func (l *PositionLedger) Set(symbol string, qty decimal.Decimal) {
	l.positions[symbol] = qty
}

// Symbols returns every symbol with an entry, sorted.
func (l *PositionLedger) Symbols() []string {
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of all holdings (for state dump).
func (l *PositionLedger) Snapshot() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(l.positions))
	for k, v := range l.positions {
		result[k] = v
	}
	return result
}
