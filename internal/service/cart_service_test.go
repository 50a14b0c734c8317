package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Roseyco-management/puxxireland-sub001/internal/cache"
	"github.com/Roseyco-management/puxxireland-sub001/internal/catalog"
	"github.com/Roseyco-management/puxxireland-sub001/internal/domain"
	"github.com/Roseyco-management/puxxireland-sub001/internal/events"
	"github.com/Roseyco-management/puxxireland-sub001/internal/repository"
	"github.com/Roseyco-management/puxxireland-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[string]*domain.Cart)}
}

func (m *mockRepository) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	c := *cart
	c.Items = append([]domain.CartItem(nil), cart.Items...)
	return &c, nil
}

func (m *mockRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	cart.Version++
	c := *cart
	c.Items = append([]domain.CartItem(nil), cart.Items...)
	m.carts[cart.ID] = &c
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, cartID)
	return nil
}

func (m *mockRepository) stored(cartID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[cartID]
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockCatalog struct {
	products map[int64]*catalog.Product
	err      error
}

func (m *mockCatalog) Product(_ context.Context, id int64) (*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) FreshStock(_ context.Context, ids []int64) (map[int64]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	stock := make(map[int64]int, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			stock[id] = p.StockQuantity
		} else {
			stock[id] = 0
		}
	}
	return stock, nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []events.CartEvent
	err    error
}

func (m *mockPublisher) CartChanged(_ context.Context, event events.CartEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) published() []events.CartEvent {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]events.CartEvent(nil), m.events...)
}

func coolMint(stock int) *catalog.Product {
	return &catalog.Product{
		ID:               1,
		Name:             "PUXX Cool Mint",
		Slug:             "puxx-cool-mint",
		Price:            "15.00",
		NicotineStrength: "16mg",
		Flavor:           "mint",
		StockQuantity:    stock,
		SKU:              "PUXX-CM-16",
	}
}

func newSut(repo *mockRepository, c *mockCache, cat *mockCatalog, pub *mockPublisher) *CartService {
	return NewCartService(repo, c, cat, pub, logger.New("test"))
}

func TestGetCart_FirstAccessReturnsEmptyCart(t *testing.T) {
	sut := newSut(newMockRepository(), &mockCache{}, &mockCatalog{}, &mockPublisher{})

	cart, err := sut.GetCart(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", cart.ID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.Version)
}

func TestGetCart_CacheHit(t *testing.T) {
	cached := domain.NewCart("session-1")
	require.NoError(t, cached.AddItem(coolMint(25).Snapshot(), 3))

	mockRepo := newMockRepository()
	mockRepo.err = fmt.Errorf("repo should not be called")

	sut := newSut(mockRepo, &mockCache{cart: cached}, &mockCatalog{}, &mockPublisher{})

	cart, err := sut.GetCart(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestGetCart_CacheMissBackfillsCache(t *testing.T) {
	mockRepo := newMockRepository()
	stored := domain.NewCart("session-1")
	require.NoError(t, stored.AddItem(coolMint(25).Snapshot(), 5))
	mockRepo.carts["session-1"] = stored

	mockC := &mockCache{}
	sut := newSut(mockRepo, mockC, &mockCatalog{}, &mockPublisher{})

	cart, err := sut.GetCart(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 5, cart.TotalItems())

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGetCart_RepoError(t *testing.T) {
	mockRepo := newMockRepository()
	mockRepo.err = fmt.Errorf("database error")

	sut := newSut(mockRepo, &mockCache{}, &mockCatalog{}, &mockPublisher{})

	cart, err := sut.GetCart(context.Background(), "session-1")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, cart)
}

func TestAddItem_Success(t *testing.T) {
	mockRepo := newMockRepository()
	mockC := &mockCache{cart: domain.NewCart("session-1")}
	pub := &mockPublisher{}
	sut := newSut(mockRepo, mockC, &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}, pub)

	cart, err := sut.AddItem(context.Background(), "session-1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalItems())
	assert.Equal(t, int64(1), cart.Version)

	stored := mockRepo.stored("session-1")
	require.NotNil(t, stored)
	assert.Equal(t, "15.00", stored.Items[0].Product.Price)
	assert.Equal(t, "PUXX-CM-16", stored.Items[0].Product.SKU)

	// Cache was invalidated and a change event went out.
	assert.Nil(t, mockC.getCart())
	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, "item_added", published[0].Action)
	assert.Equal(t, int64(1), published[0].Version)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	sut := newSut(newMockRepository(), &mockCache{}, &mockCatalog{}, &mockPublisher{})

	_, err := sut.AddItem(context.Background(), "session-1", 42, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestAddItem_InsufficientStock_NothingPersisted(t *testing.T) {
	mockRepo := newMockRepository()
	pub := &mockPublisher{}
	sut := newSut(mockRepo, &mockCache{}, &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(5)}}, pub)

	_, err := sut.AddItem(context.Background(), "session-1", 1, 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, mockRepo.stored("session-1"))
	assert.Empty(t, pub.published())
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	mockRepo := newMockRepository()
	sut := newSut(mockRepo, &mockCache{}, &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}, &mockPublisher{})

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 3)
	require.NoError(t, err)
	cart, err := sut.AddItem(ctx, "session-1", 1, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, cart.ItemCount())
	assert.Equal(t, 7, cart.TotalItems())
	assert.Equal(t, int64(2), cart.Version)
}

func TestUpdateQuantity_Success(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	sut := newSut(mockRepo, &mockCache{}, cat, &mockPublisher{})

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 3)
	require.NoError(t, err)

	cart, err := sut.UpdateQuantity(ctx, "session-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, cart.TotalItems())
	assert.Equal(t, 10, mockRepo.stored("session-1").Items[0].Quantity)
}

func TestUpdateQuantity_ItemNotFound(t *testing.T) {
	sut := newSut(newMockRepository(), &mockCache{}, &mockCatalog{}, &mockPublisher{})

	_, err := sut.UpdateQuantity(context.Background(), "session-1", 99, 3)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	sut := newSut(mockRepo, &mockCache{}, cat, &mockPublisher{})

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 3)
	require.NoError(t, err)

	cart, err := sut.UpdateQuantity(ctx, "session-1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.ItemCount())
	assert.Empty(t, mockRepo.stored("session-1").Items)
}

func TestRemoveItem_AbsentIsStillPersistedNoop(t *testing.T) {
	mockRepo := newMockRepository()
	sut := newSut(mockRepo, &mockCache{}, &mockCatalog{}, &mockPublisher{})

	cart, err := sut.RemoveItem(context.Background(), "session-1", 99)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearCart(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	pub := &mockPublisher{}
	sut := newSut(mockRepo, &mockCache{}, cat, pub)

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 3)
	require.NoError(t, err)

	cart, err := sut.ClearCart(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Empty(t, mockRepo.stored("session-1").Items)

	published := pub.published()
	require.Len(t, published, 2)
	assert.Equal(t, "cleared", published[1].Action)
}

func TestMutate_SaveErrorPropagates(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	sut := newSut(mockRepo, &mockCache{}, cat, &mockPublisher{})

	mockRepo.err = repository.ErrVersionConflict
	_, err := sut.AddItem(context.Background(), "session-1", 1, 1)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	pub := &mockPublisher{err: fmt.Errorf("broker down")}
	sut := newSut(mockRepo, &mockCache{}, cat, pub)

	cart, err := sut.AddItem(context.Background(), "session-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems())
}

func TestValidate_FreshStockWins(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	sut := newSut(mockRepo, &mockCache{}, cat, &mockPublisher{})

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 5)
	require.NoError(t, err)

	// Stock sold out after the item was added.
	cat.products[1].StockQuantity = 0

	result, err := sut.Validate(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, result.FreshStock)
	assert.False(t, result.Report.Valid)
	require.Len(t, result.Report.Errors, 1)
	assert.Equal(t, domain.IssueOutOfStock, result.Report.Errors[0].Kind)
	assert.Equal(t, int64(1), result.Report.Errors[0].ProductID)
}

func TestValidate_CatalogDownFallsBackToSnapshots(t *testing.T) {
	mockRepo := newMockRepository()
	cat := &mockCatalog{products: map[int64]*catalog.Product{1: coolMint(25)}}
	sut := newSut(mockRepo, &mockCache{}, cat, &mockPublisher{})

	ctx := context.Background()
	_, err := sut.AddItem(ctx, "session-1", 1, 5)
	require.NoError(t, err)

	cat.err = catalog.ErrCatalogUnavailable

	result, err := sut.Validate(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, result.FreshStock)
	assert.True(t, result.Report.Valid, "snapshot stock of 25 covers quantity 5")
}

func TestValidate_EmptyCart(t *testing.T) {
	sut := newSut(newMockRepository(), &mockCache{}, &mockCatalog{}, &mockPublisher{})

	result, err := sut.Validate(context.Background(), "session-1")
	require.NoError(t, err)
	assert.False(t, result.Report.Valid)
	require.Len(t, result.Report.Errors, 1)
	assert.Equal(t, domain.IssueMinimumOrder, result.Report.Errors[0].Kind)
}
