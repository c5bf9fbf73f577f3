package products

import "errors"

var (
	ErrSKURequired   = errors.New("products: sku is required")
	ErrNameRequired  = errors.New("products: name is required")
	ErrNegativePrice = errors.New("products: sale price cannot be negative")
)
