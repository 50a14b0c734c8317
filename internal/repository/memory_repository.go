package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Roseyco-management/puxxireland-sub001/internal/domain"
)

// MemoryRepository is an in-process CartRepository used in development mode
// and in tests. It applies the same versioned-write rules as the Mongo
// implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts: make(map[string]*domain.Cart),
	}
}

func (s *MemoryRepository) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, exists := s.carts[cartID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (s *MemoryRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	stored, exists := s.carts[cart.ID]
	if !exists {
		if cart.Version != 0 {
			return ErrVersionConflict
		}
	} else if stored.Version != cart.Version {
		return ErrVersionConflict
	}

	cart.Version++
	s.carts[cart.ID] = copyCart(cart)
	return nil
}

func (s *MemoryRepository) DeleteCart(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.carts[cartID]; !exists {
		return ErrCartNotFound
	}
	delete(s.carts, cartID)
	return nil
}

// copyCart detaches the stored document from the caller's cart so later
// mutations don't leak through the map.
func copyCart(cart *domain.Cart) *domain.Cart {
	c := *cart
	c.Items = make([]domain.CartItem, len(cart.Items))
	copy(c.Items, cart.Items)
	return &c
}
