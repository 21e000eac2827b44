package event

import (
	"sync"
	"time"

	"etf_basket/internal/domain"
)

// EventPool provides sync.Pool for high-frequency event allocation.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireTickEvent()
//	ev.Tick = tick
//	// ... send to the Sequencer ...
//	ReleaseTickEvent(ev)  // Sequencer returns it after processing
var tickPool = sync.Pool{
	New: func() interface{} {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent returns a TickEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = time.Time{}
	ev.Tick = domain.Tick{}

	tickPool.Put(ev)
}

// TradeEvent pool
var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = time.Time{}
	ev.Trade = domain.Trade{}

	tradePool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	tickEvs := make([]*TickEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		tickEvs = append(tickEvs, AcquireTickEvent())
	}
	for _, ev := range tickEvs {
		ReleaseTickEvent(ev)
	}

	tradeEvs := make([]*TradeEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		tradeEvs = append(tradeEvs, AcquireTradeEvent())
	}
	for _, ev := range tradeEvs {
		ReleaseTradeEvent(ev)
	}
}
