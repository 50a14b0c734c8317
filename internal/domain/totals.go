package domain

import "github.com/shopspring/decimal"

// Derived totals are recomputed from the item list on every call. The cart
// is small (at most a few dozen lines) so there is nothing worth caching.

// ItemCount is the number of distinct product lines.
func (c *Cart) ItemCount() int {
	return len(c.Items)
}

// TotalItems is the sum of quantities across all lines.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal sums unit price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// ShippingCost is the flat rate, waived once the subtotal reaches the
// free-shipping threshold.
func (c *Cart) ShippingCost() decimal.Decimal {
	if c.IsFreeShipping() {
		return decimal.Zero
	}
	return FlatShippingRate
}

// Total is subtotal plus shipping.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.ShippingCost())
}

// HasMinimumOrder reports whether the total quantity meets the storefront's
// bulk minimum.
func (c *Cart) HasMinimumOrder() bool {
	return c.TotalItems() >= MinOrderQuantity
}

// IsFreeShipping reports whether the subtotal qualifies for free shipping.
func (c *Cart) IsFreeShipping() bool {
	return c.Subtotal().GreaterThanOrEqual(FreeShippingThreshold)
}
