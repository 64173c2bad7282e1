package entity

import "github.com/shopspring/decimal"

// SaleItem es una línea de venta. Se inserta una sola vez y nunca se actualiza
// en sitio: un cambio de cantidad requiere cancelar y recrear la venta.
type SaleItem struct {
	ID        string
	SaleID    string
	ProductID string
	Quantity  int             // > 0
	UnitPrice decimal.Decimal // >= 0
	// TotalPrice derivado: Quantity * UnitPrice.
	TotalPrice decimal.Decimal
}

// ComputeTotal recalcula el total derivado de la línea.
func (i *SaleItem) ComputeTotal() {
	i.TotalPrice = decimal.NewFromInt(int64(i.Quantity)).Mul(i.UnitPrice)
}
