package cart

import "github.com/ariefcatur/go-shop-payments/internal/catalog"

type Item struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ItemView is a cart line enriched with the current product. Product is nil
// when the product has since been removed.
type ItemView struct {
	Item
	Product *catalog.Product `json:"product,omitempty"`
}
