package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo.
// StockQuantity es el contador vivo de inventario: solo lo escribe la unidad
// de control de stock (ventas, entradas, ajustes); las ediciones administrativas
// de precio/nombre nunca lo tocan.
type Product struct {
	ID            string
	SKU           string // código único
	Name          string
	Description   string
	Price         decimal.Decimal // precio de venta
	StockQuantity int             // invariante: >= 0
	MinStock      int             // umbral informativo de reposición
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BelowMinStock indica si el producto está en o por debajo del umbral de reposición.
func (p *Product) BelowMinStock() bool {
	return p.StockQuantity <= p.MinStock
}
