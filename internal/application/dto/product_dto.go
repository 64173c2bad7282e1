package dto

import "github.com/shopspring/decimal"

// CreateProductRequest body para POST /api/products.
// InitialStock se registra como movimiento de entrada, no como escritura directa
// del contador, para que el libro arranque consistente.
type CreateProductRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	MinStock     int             `json:"min_stock"`
	InitialStock int             `json:"initial_stock"`
}

// UpdateProductRequest edición administrativa. Sin stock: el contador solo lo
// escribe la unidad de control de stock.
type UpdateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MinStock    int             `json:"min_stock"`
	Active      *bool           `json:"active,omitempty"`
}

// ProductResponse producto para respuestas HTTP.
type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStock      int             `json:"min_stock"`
	Active        bool            `json:"active"`
}
