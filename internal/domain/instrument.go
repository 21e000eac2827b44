package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Contract is the reference data of a tradable instrument.
type Contract struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Exchange string `json:"exchange" yaml:"exchange"`
	Name     string `json:"name,omitempty" yaml:"name"`
}

// TradabilityClass classifies whether a basket component may be traded.
type TradabilityClass int

const (
	TradableNormal TradabilityClass = iota
	TradableLimitCheck
	TradableHalted
)

// String returns the string representation of TradabilityClass
func (c TradabilityClass) String() string {
	switch c {
	case TradableNormal:
		return "NORMAL"
	case TradableLimitCheck:
		return "LIMIT_CHECK_REQUIRED"
	case TradableHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// ParseTradabilityClass accepts either the class name or the exchange
// cash flag (0 normal, 1 limit check, 2 halted).
func ParseTradabilityClass(s string) (TradabilityClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "0", "NORMAL":
		return TradableNormal, nil
	case "1", "LIMIT_CHECK_REQUIRED", "LIMIT_CHECK":
		return TradableLimitCheck, nil
	case "2", "HALTED":
		return TradableHalted, nil
	default:
		return TradableNormal, fmt.Errorf("unknown tradability class %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c TradabilityClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *TradabilityClass) UnmarshalText(b []byte) error {
	parsed, err := ParseTradabilityClass(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ComponentDescriptor describes one constituent of a basket.
// Share is the quantity of the component backing one basket unit.
type ComponentDescriptor struct {
	Symbol   string           `json:"symbol" yaml:"symbol"`
	Exchange string           `json:"exchange" yaml:"exchange"`
	Share    decimal.Decimal  `json:"share" yaml:"share"`
	Class    TradabilityClass `json:"class" yaml:"class"`
}
