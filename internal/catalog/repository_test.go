package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/Roseyco-management/puxxireland-sub001/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	// Use in-memory database for tests
	repo, err := catalog.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}

	// Run migrations
	if err := repo.RunMigrations("./migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return repo
}

func TestGetAllProducts_ReturnsSeedSet(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	products, err := repo.GetAllProducts(context.Background())

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if len(products) != 6 { // seed migration inserts 6 products
		t.Errorf("Expected 6 products, got %d", len(products))
	}
}

func TestGetAllProducts_WithContext(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*1)
	defer cancel()

	products, err := repo.GetAllProducts(ctx)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if len(products) != 6 {
		t.Errorf("Expected 6 products, got %d", len(products))
	}
}

func TestGetProduct_Found(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	product, err := repo.GetProduct(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "PUXX Cool Mint", product.Name)
	assert.Equal(t, "puxx-cool-mint", product.Slug)
	assert.Equal(t, "15.00", product.Price)
	assert.Equal(t, "16mg", product.NicotineStrength)
	assert.Equal(t, 120, product.StockQuantity)
	assert.Equal(t, "PUXX-CM-16", product.SKU)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	_, err := repo.GetProduct(context.Background(), 9999)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestGetProductBySlug(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	product, err := repo.GetProductBySlug(context.Background(), "puxx-citrus-burst")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), product.ID)
	assert.Equal(t, "citrus", product.Flavor)

	_, err = repo.GetProductBySlug(context.Background(), "no-such-slug")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestSetStock(t *testing.T) {
	repo := setupTestDB(t)
	defer repo.Close()

	ctx := context.Background()

	err := repo.SetStock(ctx, 5, 75)
	assert.NoError(t, err)

	product, err := repo.GetProduct(ctx, 5)
	assert.NoError(t, err)
	assert.Equal(t, 75, product.StockQuantity)

	assert.ErrorIs(t, repo.SetStock(ctx, 9999, 10), catalog.ErrProductNotFound)
}
