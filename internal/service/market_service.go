package service

import (
	"sort"
	"sync"

	"etf_basket/internal/domain"
)

// MarketService caches the latest tick per instrument. It is the
// MarketConditionProvider of the strategy: lookups never wait.
type MarketService struct {
	mu    sync.RWMutex
	ticks map[string]domain.Tick
}

// NewMarketService creates a new MarketService instance
func NewMarketService() *MarketService {
	return &MarketService{
		ticks: make(map[string]domain.Tick),
	}
}

// GetTick returns the latest tick of a symbol.
func (s *MarketService) GetTick(symbol string) (domain.Tick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.ticks[symbol]
	return t, ok
}

// GetAllTicks returns every cached tick sorted by symbol
func (s *MarketService) GetAllTicks() []domain.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Tick, 0, len(s.ticks))
	for _, t := range s.ticks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}

// UpdateTick stores one tick and returns the merged value.
func (s *MarketService) UpdateTick(tick domain.Tick) domain.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.merge(tick)
}

// merge keeps the previously known price limits when a tick carries none.
// Limits are set once per session while prices stream continuously.
// Must be called with lock held
func (s *MarketService) merge(tick domain.Tick) domain.Tick {
	if prev, ok := s.ticks[tick.Symbol]; ok {
		if tick.LimitUp.IsZero() {
			tick.LimitUp = prev.LimitUp
		}
		if tick.LimitDown.IsZero() {
			tick.LimitDown = prev.LimitDown
		}
	}
	s.ticks[tick.Symbol] = tick
	return tick
}
