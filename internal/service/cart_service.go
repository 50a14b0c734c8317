package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Roseyco-management/puxxireland-sub001/internal/cache"
	"github.com/Roseyco-management/puxxireland-sub001/internal/catalog"
	"github.com/Roseyco-management/puxxireland-sub001/internal/domain"
	"github.com/Roseyco-management/puxxireland-sub001/internal/events"
	"github.com/Roseyco-management/puxxireland-sub001/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CatalogClient is what the cart needs from the catalog: live product
// records for add-time snapshots and fresh stock for checkout validation.
type CatalogClient interface {
	Product(ctx context.Context, id int64) (*catalog.Product, error)
	FreshStock(ctx context.Context, ids []int64) (map[int64]int, error)
}

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog CatalogClient
	events  events.Publisher // nil disables change broadcasting
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cartCache cache.CartCache, catalogClient CatalogClient, publisher events.Publisher, log *slog.Logger) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cartCache,
		catalog: catalogClient,
		events:  publisher,
		log:     log,
	}
}

// GetCart hydrates the cart for a session: cache first, then the repository,
// and an empty cart when the session has never stored one. A cart is always
// returned for a valid session id.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get error", "cart_id", cartID, "error", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, cartID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(cartID), nil // first access, nothing persisted yet
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, cartID, cart); errSet != nil {
				s.log.Warn("cache set error", "cart_id", cartID, "error", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem snapshots the live product and adds it to the cart. Stock and
// quantity rules are enforced by the domain transition before anything is
// persisted.
func (s *CartService) AddItem(ctx context.Context, cartID string, productID int64, quantity int) (*domain.Cart, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, "item_added", func(cart *domain.Cart) error {
		return cart.AddItem(product.Snapshot(), quantity)
	})
}

// UpdateQuantity sets an absolute quantity for a line; zero or less removes
// the line.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID string, productID int64, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, "quantity_updated", func(cart *domain.Cart) error {
		return cart.UpdateQuantity(productID, quantity)
	})
}

// RemoveItem deletes a line. Removing an absent line still persists (and is
// harmless), keeping the operation idempotent for retrying clients.
func (s *CartService) RemoveItem(ctx context.Context, cartID string, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, "item_removed", func(cart *domain.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
}

// ClearCart empties the cart unconditionally.
func (s *CartService) ClearCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, "cleared", func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
}

// ValidationResult pairs the domain report with whether it was computed from
// live catalog stock. Stale results must not be trusted to finalize an
// order.
type ValidationResult struct {
	Report     domain.Report `json:"report"`
	FreshStock bool          `json:"fresh_stock"`
}

// Validate runs pre-checkout validation. Stock levels are re-fetched from
// the catalog; if the catalog is unavailable the cart's add-time snapshots
// are used and the result is marked stale.
func (s *CartService) Validate(ctx context.Context, cartID string) (*ValidationResult, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if len(cart.Items) == 0 {
		return &ValidationResult{Report: cart.Validate(), FreshStock: true}, nil
	}

	ids := make([]int64, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.Product.ID
	}

	stock, err := s.catalog.FreshStock(ctx, ids)
	if err != nil {
		s.log.Warn("falling back to snapshot stock", "cart_id", cartID, "error", err)
		return &ValidationResult{Report: cart.Validate(), FreshStock: false}, nil
	}

	return &ValidationResult{Report: cart.ValidateWithStock(stock), FreshStock: true}, nil
}

// mutate is the shared read-modify-write path: load the current cart, apply
// a pure domain transition, persist with a versioned write, then fan out the
// fire-and-forget side effects (cache invalidation, change event).
func (s *CartService) mutate(ctx context.Context, cartID, action string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = domain.NewCart(cartID)
	} else if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.log.Warn("cart save failed", "cart_id", cartID, "action", action, "error", err)
		return nil, err
	}

	s.invalidateCache(cartID)
	s.publishChange(cartID, action, cart.Version)

	return cart, nil
}

func (s *CartService) invalidateCache(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.log.Warn("cache invalidate error", "cart_id", cartID, "error", err)
	}
}

func (s *CartService) publishChange(cartID, action string, version int64) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.events.CartChanged(ctx, events.CartEvent{
		CartID:     cartID,
		Action:     action,
		Version:    version,
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.log.Warn("cart event publish error", "cart_id", cartID, "action", action, "error", err)
	}
}
