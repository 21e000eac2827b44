package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTick_IsLimitPinned(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name string
		tick Tick
		want bool
	}{
		{"inside band", Tick{LastPrice: d("10.5"), LimitUp: d("11"), LimitDown: d("9")}, false},
		{"limit up", Tick{LastPrice: d("11"), LimitUp: d("11.00"), LimitDown: d("9")}, true},
		{"limit down", Tick{LastPrice: d("9"), LimitUp: d("11"), LimitDown: d("9")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tick.IsLimitPinned(); got != tt.want {
				t.Errorf("IsLimitPinned() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTradabilityClass(t *testing.T) {
	tests := []struct {
		in      string
		want    TradabilityClass
		wantErr bool
	}{
		{"0", TradableNormal, false},
		{"1", TradableLimitCheck, false},
		{"2", TradableHalted, false},
		{"halted", TradableHalted, false},
		{"LIMIT_CHECK_REQUIRED", TradableLimitCheck, false},
		{"", TradableNormal, false},
		{"7", TradableNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTradabilityClass(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTradabilityClass(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTradabilityClass(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
