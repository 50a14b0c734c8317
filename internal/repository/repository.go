package repository

import (
	"context"
	"errors"

	"github.com/Roseyco-management/puxxireland-sub001/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict means another writer persisted the cart since it
	// was read. The caller should re-read and retry the mutation.
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// CartRepository is the durable store for cart sessions. The whole item list
// is written on every mutation; invariants are enforced in the domain layer
// before a cart reaches SaveCart.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, cartID string) error
}
