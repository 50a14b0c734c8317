package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business rules for the PUXX storefront. Pouches are sold in bulk, so the
// cart enforces a minimum total quantity before checkout is allowed.
const (
	MaxItemQuantity  = 100
	MinOrderQuantity = 5
)

var (
	FreeShippingThreshold = decimal.NewFromInt(150)
	FlatShippingRate      = decimal.NewFromInt(10)
)

// CartProduct is the snapshot of a catalog product taken when it entered the
// cart. It is not refreshed afterwards; checkout re-validates against the
// live catalog.
type CartProduct struct {
	ID               int64  `json:"id" bson:"id"`
	Name             string `json:"name" bson:"name"`
	Slug             string `json:"slug" bson:"slug"`
	Price            string `json:"price" bson:"price"`
	NicotineStrength string `json:"nicotine_strength,omitempty" bson:"nicotine_strength,omitempty"`
	Flavor           string `json:"flavor,omitempty" bson:"flavor,omitempty"`
	ImageURL         string `json:"image_url,omitempty" bson:"image_url,omitempty"`
	StockQuantity    int    `json:"stock_quantity" bson:"stock_quantity"`
	SKU              string `json:"sku,omitempty" bson:"sku,omitempty"`
}

// UnitPrice parses the decimal price string. Unparsable prices count as zero
// rather than failing a totals computation.
func (p CartProduct) UnitPrice() decimal.Decimal {
	d, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type CartItem struct {
	Product  CartProduct `json:"product" bson:"product"`
	Quantity int         `json:"quantity" bson:"quantity"`
	AddedAt  time.Time   `json:"added_at" bson:"added_at"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the aggregate root: an ordered list of items, at most one per
// product id. Version supports optimistic-concurrency writes in the
// repository; it is bumped there, not here.
type Cart struct {
	ID        string     `json:"id" bson:"cart_id"`
	Items     []CartItem `json:"items" bson:"items"`
	Version   int64      `json:"version" bson:"version"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func NewCart(id string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Item returns the line for productID, if present.
func (c *Cart) Item(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// AddItem inserts a new line for the product or increments an existing one.
// The resulting quantity is validated against the product's snapshot stock
// and the per-line ceiling before anything is applied, so a failed add
// leaves the cart untouched.
func (c *Cart) AddItem(product CartProduct, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	existing := 0
	if item, ok := c.Item(product.ID); ok {
		existing = item.Quantity
	}

	if err := checkQuantity(existing+quantity, product.StockQuantity); err != nil {
		return err
	}

	for i := range c.Items {
		if c.Items[i].Product.ID == product.ID {
			c.Items[i].Quantity += quantity
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{
		Product:  product,
		Quantity: quantity,
		AddedAt:  time.Now(),
	})
	return nil
}

// UpdateQuantity replaces the line's quantity. The new quantity is absolute,
// not incremental, and is re-validated from scratch. Zero or negative
// delegates to RemoveItem.
func (c *Cart) UpdateQuantity(productID int64, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return nil
	}

	item, ok := c.Item(productID)
	if !ok {
		return ErrItemNotFound
	}

	if err := checkQuantity(quantity, item.Product.StockQuantity); err != nil {
		return err
	}

	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes the line for productID. Removing an absent product is a
// no-op, not an error.
func (c *Cart) RemoveItem(productID int64) {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.Items = nil
}

func checkQuantity(resulting, stock int) error {
	if stock <= 0 {
		return ErrOutOfStock
	}
	if resulting > stock {
		return ErrInsufficientStock
	}
	if resulting > MaxItemQuantity {
		return ErrMaxQuantityExceeded
	}
	return nil
}
