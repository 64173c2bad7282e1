package dto

import "github.com/shopspring/decimal"

// SaleItemRequest línea del carrito.
type SaleItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"` // 0 = usar precio de catálogo
}

// CreateSaleRequest body para POST /api/sales.
type CreateSaleRequest struct {
	CustomerID     string            `json:"customer_id,omitempty"`
	PaymentMethod  string            `json:"payment_method"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Items          []SaleItemRequest `json:"items"`
}

// SaleItemResult resultado por línea. Success=false lleva el stock disponible
// y lo solicitado; Success=true las fotos previa/posterior y lo descontado.
type SaleItemResult struct {
	ProductID       string `json:"product_id"`
	Success         bool   `json:"success"`
	MovementID      string `json:"movement_id,omitempty"`
	PreviousStock   int    `json:"previous_stock,omitempty"`
	NewStock        int    `json:"new_stock,omitempty"`
	QuantityReduced int    `json:"quantity_reduced,omitempty"`
	CurrentStock    int    `json:"current_stock,omitempty"`
	Requested       int    `json:"requested,omitempty"`
}

// SaleResult respuesta de ProcessSale.
type SaleResult struct {
	SaleID         string           `json:"sale_id"`
	Status         string           `json:"status"`
	HasStockErrors bool             `json:"has_stock_errors"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	FinalAmount    decimal.Decimal  `json:"final_amount"`
	Items          []SaleItemResult `json:"items"`
}

// SaleItemResponse línea persistida de una venta.
type SaleItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// SaleResponse venta con sus líneas (GET /api/sales/:id).
type SaleResponse struct {
	ID             string             `json:"id"`
	CustomerID     string             `json:"customer_id,omitempty"`
	Status         string             `json:"status"`
	PaymentMethod  string             `json:"payment_method"`
	PaymentStatus  string             `json:"payment_status"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	FinalAmount    decimal.Decimal    `json:"final_amount"`
	CreatedAt      string             `json:"created_at"`
	Items          []SaleItemResponse `json:"items"`
}
