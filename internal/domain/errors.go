package domain

import "errors"

var (
	ErrOutOfStock          = errors.New("product is out of stock")
	ErrInsufficientStock   = errors.New("requested quantity exceeds available stock")
	ErrMaxQuantityExceeded = errors.New("quantity exceeds the per-product maximum")
	ErrItemNotFound        = errors.New("item not found in cart")
)
