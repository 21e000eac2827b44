package service

import (
	"fmt"
	"sync"

	"etf_basket/internal/domain"
)

// ReferenceService serves contracts and basket compositions. It implements
// both ContractProvider and BasketCompositionProvider.
type ReferenceService struct {
	mu        sync.RWMutex
	contracts map[string]domain.Contract
	baskets   map[string][]domain.ComponentDescriptor
}

// NewReferenceService creates an empty reference data store
func NewReferenceService() *ReferenceService {
	return &ReferenceService{
		contracts: make(map[string]domain.Contract),
		baskets:   make(map[string][]domain.ComponentDescriptor),
	}
}

// AddContract registers or replaces a contract.
func (s *ReferenceService) AddContract(c domain.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[c.Symbol] = c
}

// GetContract returns the contract of a symbol.
func (s *ReferenceService) GetContract(symbol string) (domain.Contract, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[symbol]
	return c, ok
}

// SetBasket replaces the composition of a basket. Order is preserved.
func (s *ReferenceService) SetBasket(basketSymbol string, comps []domain.ComponentDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baskets[basketSymbol] = append([]domain.ComponentDescriptor(nil), comps...)
}

// GetBasketComponents returns a copy of the ordered composition.
func (s *ReferenceService) GetBasketComponents(basketSymbol string) []domain.ComponentDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.ComponentDescriptor(nil), s.baskets[basketSymbol]...)
}

// SetComponentClass updates the tradability of one component, e.g. when a
// halt is announced intraday.
func (s *ReferenceService) SetComponentClass(basketSymbol, symbol string, class domain.TradabilityClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comps := s.baskets[basketSymbol]
	for i := range comps {
		if comps[i].Symbol == symbol {
			comps[i].Class = class
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in basket %s", domain.ErrUnknownContract, symbol, basketSymbol)
}
