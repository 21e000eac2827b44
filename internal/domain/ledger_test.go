package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPositionLedger_GetDoesNotInsert(t *testing.T) {
	l := NewPositionLedger()

	if !l.Get("600000.SSE").IsZero() {
		t.Error("absent symbol should read as zero")
	}
	if len(l.Symbols()) != 0 {
		t.Errorf("Get must not create entries, got %v", l.Symbols())
	}
}

func TestPositionLedger_Apply(t *testing.T) {
	l := NewPositionLedger()

	l.Apply(Trade{Symbol: "A", Direction: DirectionLong, Volume: decimal.NewFromInt(100)})
	l.Apply(Trade{Symbol: "A", Direction: DirectionShort, Volume: decimal.NewFromInt(40)})
	l.Apply(Trade{Symbol: "ETF", Direction: DirectionPurchase, Volume: decimal.NewFromInt(10)})
	qty := l.Apply(Trade{Symbol: "ETF", Direction: DirectionRedemption, Volume: decimal.NewFromInt(10)})

	if !l.Get("A").Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected A=60, got %s", l.Get("A"))
	}
	if !qty.IsZero() {
		t.Errorf("Expected ETF=0, got %s", qty)
	}

	// zero is a valid steady state, the entry stays
	snap := l.Snapshot()
	if _, ok := snap["ETF"]; !ok {
		t.Error("zeroed entry should not be deleted")
	}

	snap["A"] = decimal.NewFromInt(999)
	if !l.Get("A").Equal(decimal.NewFromInt(60)) {
		t.Error("Snapshot must return a copy")
	}
}

func TestLifecycle(t *testing.T) {
	var lc Lifecycle

	if lc.State() != StateCreated || lc.Inited() || lc.Trading() {
		t.Fatalf("unexpected initial state %s", lc.State())
	}

	if err := lc.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start before Init should fail, got %v", err)
	}

	steps := []struct {
		name string
		fn   func() error
		want LifecycleState
	}{
		{"init", lc.Init, StateInitialized},
		{"start", lc.Start, StateTrading},
		{"stop", lc.Stop, StateStopped},
		{"restart", lc.Start, StateTrading},
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if lc.State() != st.want {
			t.Fatalf("%s: expected %s, got %s", st.name, st.want, lc.State())
		}
	}

	if err := lc.Init(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Init should fail, got %v", err)
	}

	parsed, err := ParseLifecycleState("STOPPED")
	if err != nil || parsed != StateStopped {
		t.Errorf("ParseLifecycleState(STOPPED) = %s, %v", parsed, err)
	}
}
