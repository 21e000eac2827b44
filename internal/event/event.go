package event

import (
	"time"

	"etf_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// EventType identifies the concrete event.
type EventType int

const (
	EventTick EventType = iota + 1
	EventTrade
	EventBasketTarget
	EventAggregateTarget
	EventCreation
	EventLifecycle
)

// String returns the string representation of EventType
func (t EventType) String() string {
	switch t {
	case EventTick:
		return "TICK"
	case EventTrade:
		return "TRADE"
	case EventBasketTarget:
		return "BASKET_TARGET"
	case EventAggregateTarget:
		return "AGGREGATE_TARGET"
	case EventCreation:
		return "CREATION"
	case EventLifecycle:
		return "LIFECYCLE"
	default:
		return "UNKNOWN"
	}
}

// Event is anything the Sequencer consumes.
type Event interface {
	GetSeq() uint64
	SetSeq(seq uint64)
	GetType() EventType
}

// BaseEvent carries the sequence number stamped by the Sequencer.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64    { return e.Seq }
func (e *BaseEvent) SetSeq(seq uint64) { e.Seq = seq }

// Result is the reply of a command event.
type Result struct {
	OrderIDs []string
	Err      error
}

// TickEvent delivers a market condition update.
type TickEvent struct {
	BaseEvent
	Tick domain.Tick
}

func (e *TickEvent) GetType() EventType { return EventTick }

// TradeEvent delivers a fill.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade
}

func (e *TradeEvent) GetType() EventType { return EventTrade }

// BasketTargetEvent sets a new basket target and dispatches component orders.
type BasketTargetEvent struct {
	BaseEvent
	Target decimal.Decimal
	Reply  chan<- Result
}

func (e *BasketTargetEvent) GetType() EventType { return EventBasketTarget }

// AggregateTargetEvent sets the ETF position the strategy clips toward on ticks.
type AggregateTargetEvent struct {
	BaseEvent
	Target     decimal.Decimal
	LimitPrice decimal.Decimal
	MaxClip    decimal.Decimal
}

func (e *AggregateTargetEvent) GetType() EventType { return EventAggregateTarget }

// CreationEvent requests a purchase or a redemption.
type CreationEvent struct {
	BaseEvent
	Direction domain.Direction // DirectionPurchase or DirectionRedemption
	Volume    decimal.Decimal
	Reply     chan<- Result
}

func (e *CreationEvent) GetType() EventType { return EventCreation }

// LifecycleAction is a lifecycle command.
type LifecycleAction string

const (
	ActionInit  LifecycleAction = "INIT"
	ActionStart LifecycleAction = "START"
	ActionStop  LifecycleAction = "STOP"
)

// LifecycleEvent drives the strategy state machine.
type LifecycleEvent struct {
	BaseEvent
	Action LifecycleAction
	Reply  chan<- Result
}

func (e *LifecycleEvent) GetType() EventType { return EventLifecycle }
