package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCatalogUnavailable is returned when the catalog cannot be reached or
// the circuit breaker is open. Callers fall back to cart snapshots.
var ErrCatalogUnavailable = errors.New("catalog is unavailable")

// Client is the HTTP client cartd uses to look products up in catalogd. All
// calls run through a circuit breaker so a dead catalog degrades cart
// operations instead of hanging them.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*Product]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A missing product is an answer, not an outage.
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker[*Product](settings),
	}
}

// Product fetches a single live product record.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	product, err := c.cb.Execute(func() (*Product, error) {
		return c.fetchProduct(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCatalogUnavailable
		}
		return nil, err
	}
	return product, nil
}

// FreshStock fetches current stock levels for the given product ids.
// Products the catalog no longer knows are reported as zero stock.
func (c *Client) FreshStock(ctx context.Context, ids []int64) (map[int64]int, error) {
	stock := make(map[int64]int, len(ids))
	for _, id := range ids {
		product, err := c.Product(ctx, id)
		if errors.Is(err, ErrProductNotFound) {
			stock[id] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		stock[id] = product.StockQuantity
	}
	return stock, nil
}

func (c *Client) fetchProduct(ctx context.Context, id int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/v1/products/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	default:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return &product, nil
}
