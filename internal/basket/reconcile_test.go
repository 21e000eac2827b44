package basket

import (
	"testing"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickMap map[string]domain.Tick

func (m tickMap) GetTick(symbol string) (domain.Tick, bool) {
	t, ok := m[symbol]
	return t, ok
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledgerOf(kv map[string]string) *domain.PositionLedger {
	l := domain.NewPositionLedger()
	for k, v := range kv {
		l.Set(k, dec(v))
	}
	return l
}

func comp(symbol, share string, class domain.TradabilityClass) domain.ComponentDescriptor {
	return domain.ComponentDescriptor{Symbol: symbol, Exchange: "SSE", Share: dec(share), Class: class}
}

func TestReconcile_TwoComponents(t *testing.T) {
	res := Reconcile(Input{
		Exchange: "SSE",
		Target:   dec("100"),
		Ledger:   ledgerOf(map[string]string{"A": "40", "B": "70"}),
		Components: []domain.ComponentDescriptor{
			comp("A", "1", domain.TradableNormal),
			comp("B", "2", domain.TradableNormal),
		},
	})

	require.Len(t, res.Deltas, 2)
	assert.Equal(t, "A", res.Deltas[0].Symbol)
	assert.True(t, res.Deltas[0].Qty.Equal(dec("60")), "A delta = %s", res.Deltas[0].Qty)
	assert.Equal(t, "B", res.Deltas[1].Symbol)
	assert.True(t, res.Deltas[1].Qty.Equal(dec("130")), "B delta = %s", res.Deltas[1].Qty)

	require.True(t, res.Synthetic.Defined)
	assert.True(t, res.Synthetic.Value.Equal(dec("35")), "synthetic = %s", res.Synthetic.Value)
	assert.Empty(t, res.Skipped)
}

func TestReconcile_LimitPinnedExcluded(t *testing.T) {
	market := tickMap{
		"B": {Symbol: "B", LastPrice: dec("11"), LimitUp: dec("11"), LimitDown: dec("9")},
	}
	res := Reconcile(Input{
		Exchange: "SSE",
		Target:   dec("100"),
		Ledger:   ledgerOf(map[string]string{"A": "40", "B": "70"}),
		Components: []domain.ComponentDescriptor{
			comp("A", "1", domain.TradableNormal),
			comp("B", "2", domain.TradableLimitCheck),
		},
		Market: market,
	})

	deltas := res.DeltaMap()
	require.Len(t, deltas, 1)
	assert.True(t, deltas["A"].Equal(dec("60")))
	require.True(t, res.Synthetic.Defined)
	assert.True(t, res.Synthetic.Value.Equal(dec("40")))
	assert.Equal(t, []Skip{{Symbol: "B", Reason: SkipLimitPinned}}, res.Skipped)
}

func TestReconcile_LimitCheckWithTradableTick(t *testing.T) {
	market := tickMap{
		"B": {Symbol: "B", LastPrice: dec("10"), LimitUp: dec("11"), LimitDown: dec("9")},
	}
	res := Reconcile(Input{
		Exchange:   "SSE",
		Target:     dec("10"),
		Ledger:     domain.NewPositionLedger(),
		Components: []domain.ComponentDescriptor{comp("B", "2", domain.TradableLimitCheck)},
		Market:     market,
	})

	qty, ok := res.Delta("B")
	require.True(t, ok)
	assert.True(t, qty.Equal(dec("20")))
	assert.True(t, res.Synthetic.Value.IsZero())
}

func TestReconcile_Skips(t *testing.T) {
	tests := []struct {
		name   string
		comp   domain.ComponentDescriptor
		market tickMap
		want   SkipReason
	}{
		{"zero share", comp("X", "0", domain.TradableNormal), nil, SkipZeroShare},
		{"negative share", comp("X", "-1", domain.TradableNormal), nil, SkipBadShare},
		{"halted", comp("X", "1", domain.TradableHalted), nil, SkipHalted},
		{"no tick", comp("X", "1", domain.TradableLimitCheck), tickMap{}, SkipNoTick},
		{"no market provider", comp("X", "1", domain.TradableLimitCheck), nil, SkipNoTick},
		{"limit down", comp("X", "1", domain.TradableLimitCheck),
			tickMap{"X": {LastPrice: dec("9"), LimitUp: dec("11"), LimitDown: dec("9")}}, SkipLimitPinned},
		{"cross market", domain.ComponentDescriptor{Symbol: "X", Exchange: "SZSE", Share: dec("1")}, nil, SkipCrossMarket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				Exchange:   "SSE",
				Target:     dec("100"),
				Ledger:     ledgerOf(map[string]string{"X": "1"}),
				Components: []domain.ComponentDescriptor{tt.comp},
			}
			if tt.market != nil {
				in.Market = tt.market
			}
			res := Reconcile(in)

			assert.Empty(t, res.Deltas)
			assert.False(t, res.Synthetic.Defined, "no eligible component means undefined synthetic position")
			require.Len(t, res.Skipped, 1)
			assert.Equal(t, tt.want, res.Skipped[0].Reason)
		})
	}
}

func TestReconcile_SkippedNeverInfluenceSynthetic(t *testing.T) {
	// Y holds nothing, so it would drag the minimum to zero if it counted.
	res := Reconcile(Input{
		Exchange: "SSE",
		Target:   dec("5"),
		Ledger:   ledgerOf(map[string]string{"A": "50"}),
		Components: []domain.ComponentDescriptor{
			comp("A", "10", domain.TradableNormal),
			comp("Y", "3", domain.TradableHalted),
			{Symbol: "Z", Exchange: "SZSE", Share: dec("1")},
		},
	})

	assert.True(t, res.Synthetic.Value.Equal(dec("5")))
	assert.Empty(t, res.Deltas, "A already holds share*target")
	assert.Len(t, res.Skipped, 2)
}

func TestReconcile_Conservative(t *testing.T) {
	ledger := ledgerOf(map[string]string{"A": "300", "B": "90", "C": "-20", "D": "1000"})
	comps := []domain.ComponentDescriptor{
		comp("A", "3", domain.TradableNormal),
		comp("B", "0.5", domain.TradableNormal),
		comp("C", "4", domain.TradableNormal),
		comp("D", "7", domain.TradableNormal),
	}
	res := Reconcile(Input{Exchange: "SSE", Target: dec("100"), Ledger: ledger, Components: comps})

	require.True(t, res.Synthetic.Defined)
	for _, c := range comps {
		ratio := ledger.Get(c.Symbol).Div(c.Share)
		assert.True(t, res.Synthetic.Value.LessThanOrEqual(ratio), "%s ratio %s < synthetic %s", c.Symbol, ratio, res.Synthetic.Value)

		want := c.Share.Mul(dec("100")).Sub(ledger.Get(c.Symbol))
		got, ok := res.Delta(c.Symbol)
		if want.IsZero() {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok, c.Symbol)
		assert.True(t, got.Equal(want), "%s delta %s want %s", c.Symbol, got, want)
	}
	assert.True(t, res.Synthetic.Value.Equal(dec("-5")))
}

func TestReconcile_Idempotent(t *testing.T) {
	in := Input{
		Exchange: "SSE",
		Target:   dec("100"),
		Ledger:   ledgerOf(map[string]string{"A": "40", "B": "70"}),
		Components: []domain.ComponentDescriptor{
			comp("A", "1", domain.TradableNormal),
			comp("B", "2", domain.TradableLimitCheck),
		},
		Market: tickMap{"B": {LastPrice: dec("10"), LimitUp: dec("11"), LimitDown: dec("9")}},
	}

	first := Reconcile(in)
	second := Reconcile(in)
	assert.Equal(t, first, second)
}

func BenchmarkReconcile(b *testing.B) {
	ledger := domain.NewPositionLedger()
	comps := make([]domain.ComponentDescriptor, 0, 50)
	for i := 0; i < 50; i++ {
		sym := decimal.NewFromInt(int64(600000 + i)).String()
		comps = append(comps, comp(sym, "100", domain.TradableNormal))
		ledger.Set(sym, decimal.NewFromInt(int64(i*100)))
	}
	in := Input{Exchange: "SSE", Target: dec("10"), Ledger: ledger, Components: comps}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Reconcile(in)
	}
}
