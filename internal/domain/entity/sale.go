package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta. Transiciones válidas: pending -> completed | cancelled,
// completed -> cancelled (acción compensatoria, ver CancelSale).
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Estados de pago.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Sale es la cabecera de una venta. Se crea una sola vez al inicio de la
// transacción (su ID es la referencia de idempotencia de cada línea) y su
// conjunto de líneas es inmutable después del commit: una corrección es una
// venta nueva, no una edición.
type Sale struct {
	ID             string
	CustomerID     string // opcional, vacío = venta de mostrador
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Status         string // pending, completed, cancelled
	PaymentMethod  string
	PaymentStatus  string // pending, paid, refunded
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
