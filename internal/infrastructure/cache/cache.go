// Package cache expone cachés opcionales sobre Redis con variantes noop para
// correr sin Redis (desarrollo y tests).
package cache

import (
	"context"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/application/dto"
)

// LowStockCache amortiza el listado de reposición: la consulta recorre todo el
// catálogo y el tablero del operador la refresca con frecuencia.
type LowStockCache interface {
	GetLowStock(ctx context.Context) ([]dto.ProductResponse, bool, error)
	SetLowStock(ctx context.Context, products []dto.ProductResponse, ttl time.Duration) error
}

// ReportCache guarda el último reporte de conciliación para consulta.
type ReportCache interface {
	SetLastReport(ctx context.Context, report *dto.ReconciliationReport) error
	GetLastReport(ctx context.Context) (*dto.ReconciliationReport, bool, error)
}

type NoopLowStockCache struct{}

func (NoopLowStockCache) GetLowStock(_ context.Context) ([]dto.ProductResponse, bool, error) {
	return nil, false, nil
}

func (NoopLowStockCache) SetLowStock(_ context.Context, _ []dto.ProductResponse, _ time.Duration) error {
	return nil
}

// NoopReportCache retiene el último reporte en memoria del proceso: sin Redis
// el reporte sobrevive dentro del proceso pero no entre reinicios.
type NoopReportCache struct {
	report *dto.ReconciliationReport
}

func (c *NoopReportCache) SetLastReport(_ context.Context, report *dto.ReconciliationReport) error {
	c.report = report
	return nil
}

func (c *NoopReportCache) GetLastReport(_ context.Context) (*dto.ReconciliationReport, bool, error) {
	if c.report == nil {
		return nil, false, nil
	}
	return c.report, true, nil
}
