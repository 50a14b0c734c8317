package catalog

import (
	"time"

	"github.com/Roseyco-management/puxxireland-sub001/internal/domain"
)

// Product is a live catalog record. Carts never hold these directly; they
// hold the snapshot produced by Snapshot at add time.
type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Price            string    `json:"price"`
	NicotineStrength string    `json:"nicotine_strength,omitempty"`
	Flavor           string    `json:"flavor,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	StockQuantity    int       `json:"stock_quantity"`
	SKU              string    `json:"sku,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Snapshot freezes the fields the cart needs.
func (p Product) Snapshot() domain.CartProduct {
	return domain.CartProduct{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Price:            p.Price,
		NicotineStrength: p.NicotineStrength,
		Flavor:           p.Flavor,
		ImageURL:         p.ImageURL,
		StockQuantity:    p.StockQuantity,
		SKU:              p.SKU,
	}
}
