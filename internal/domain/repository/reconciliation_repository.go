package repository

import (
	"context"
	"time"
)

// ProductLedgerTotals agrega, por producto y sobre una ventana, las unidades
// vendidas (líneas de ventas no canceladas), las unidades egresadas del libro
// (saida) y las ya corregidas por conciliaciones previas. La firma del bug de
// duplicación es MovedOut > Sold + Corrected.
type ProductLedgerTotals struct {
	ProductID   string
	ProductName string
	Sold        int
	MovedOut    int
	Corrected   int
}

// Excess devuelve las unidades egresadas de más, netas de correcciones previas.
// Nunca negativo: vendido > egresado no es un defecto que corrija el auditor.
func (t ProductLedgerTotals) Excess() int {
	excess := t.MovedOut - t.Sold - t.Corrected
	if excess < 0 {
		return 0
	}
	return excess
}

// ReconciliationRepository consultas de solo lectura para el auditor.
type ReconciliationRepository interface {
	GetProductLedgerTotals(ctx context.Context, from, to time.Time) ([]ProductLedgerTotals, error)
}
