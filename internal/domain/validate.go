package domain

import "fmt"

type IssueKind string

const (
	IssueMinimumOrder      IssueKind = "minimum_order"
	IssueOutOfStock        IssueKind = "out_of_stock"
	IssueInsufficientStock IssueKind = "insufficient_stock"
	IssueFreeShipping      IssueKind = "free_shipping"
)

// Issue is a single validation finding, optionally tied to a product.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	ProductID int64     `json:"product_id,omitempty"`
	Message   string    `json:"message"`
}

// Report is the structured result of pre-checkout validation. Errors block
// checkout; warnings are advisory.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Validate checks the cart against the stock captured in the product
// snapshots. It reflects add-time data and may be stale; use
// ValidateWithStock with freshly fetched quantities before finalizing an
// order.
func (c *Cart) Validate() Report {
	return c.ValidateWithStock(nil)
}

// ValidateWithStock validates the cart using stock levels from the given map
// where present, falling back to each item's snapshot otherwise. It never
// fails; all findings are collected into the report.
func (c *Cart) ValidateWithStock(stock map[int64]int) Report {
	report := Report{Valid: true}

	if len(c.Items) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, Issue{
			Kind:    IssueMinimumOrder,
			Message: "cart is empty",
		})
		return report
	}

	if total := c.TotalItems(); total < MinOrderQuantity {
		report.Valid = false
		report.Errors = append(report.Errors, Issue{
			Kind:    IssueMinimumOrder,
			Message: fmt.Sprintf("minimum order is %d units, cart has %d", MinOrderQuantity, total),
		})
	}

	for _, item := range c.Items {
		available := item.Product.StockQuantity
		if stock != nil {
			if fresh, ok := stock[item.Product.ID]; ok {
				available = fresh
			}
		}

		switch {
		case available <= 0:
			report.Valid = false
			report.Errors = append(report.Errors, Issue{
				Kind:      IssueOutOfStock,
				ProductID: item.Product.ID,
				Message:   fmt.Sprintf("%s is out of stock", item.Product.Name),
			})
		case item.Quantity > available:
			report.Valid = false
			report.Errors = append(report.Errors, Issue{
				Kind:      IssueInsufficientStock,
				ProductID: item.Product.ID,
				Message:   fmt.Sprintf("only %d units of %s available, cart has %d", available, item.Product.Name, item.Quantity),
			})
		}
	}

	subtotal := c.Subtotal()
	if subtotal.IsPositive() && subtotal.LessThan(FreeShippingThreshold) {
		remaining := FreeShippingThreshold.Sub(subtotal)
		report.Warnings = append(report.Warnings, Issue{
			Kind:    IssueFreeShipping,
			Message: fmt.Sprintf("spend %s more to qualify for free shipping", remaining.StringFixed(2)),
		})
	}

	return report
}
