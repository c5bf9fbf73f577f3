package products

import "strings"

func validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return ErrSKURequired
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.SalePrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
