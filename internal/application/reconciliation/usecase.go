package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
	"github.com/puntoventa/pos-backoffice/pkg/logger"
)

// StockAdjuster corrige el stock de un producto a un valor absoluto usando los
// repositorios del caller (la implementa la unidad de control de stock: toda
// corrección pasa por la misma disciplina bloqueo-mutación-registro).
type StockAdjuster interface {
	AdjustToInTx(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		productID string,
		target int,
		referenceID, notes string,
		now time.Time,
	) (*stock.MovementResult, error)
}

// ReportStore guarda el último reporte para consulta del operador.
type ReportStore interface {
	SetLastReport(ctx context.Context, report *dto.ReconciliationReport) error
	GetLastReport(ctx context.Context) (*dto.ReconciliationReport, bool, error)
}

// ReconciliationUseCase es el auditor: compara unidades vendidas contra
// unidades egresadas del libro por producto sobre una ventana y, cuando
// egresado > vendido (la firma del bug de descuento duplicado), restituye el
// exceso con un ajuste correctivo. Nunca borra ni modifica los movimientos
// ofensores: la corrección es una fila más del libro.
type ReconciliationUseCase struct {
	reconRepo repository.ReconciliationRepository
	txRunner  stock.TxRunner
	adjuster  StockAdjuster
	reports   ReportStore
	log       *logger.Logger
}

// NewReconciliationUseCase construye el auditor.
func NewReconciliationUseCase(
	reconRepo repository.ReconciliationRepository,
	txRunner stock.TxRunner,
	adjuster StockAdjuster,
	reports ReportStore,
	log *logger.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		reconRepo: reconRepo,
		txRunner:  txRunner,
		adjuster:  adjuster,
		reports:   reports,
		log:       log,
	}
}

// Run ejecuta una conciliación sobre [from, to]. Idempotente entre corridas:
// el exceso se calcula neto de correcciones previas, así que una segunda
// corrida sin ventas nuevas no aplica una segunda corrección. Los errores por
// producto se registran en el hallazgo y no detienen al resto.
func (uc *ReconciliationUseCase) Run(ctx context.Context, from, to time.Time) (*dto.ReconciliationReport, error) {
	totals, err := uc.reconRepo.GetProductLedgerTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("totales por producto: %w", err)
	}

	report := &dto.ReconciliationReport{
		RunAt:           time.Now(),
		WindowFrom:      from,
		WindowTo:        to,
		ProductsAudited: len(totals),
		Findings:        make([]dto.ReconciliationFinding, 0),
	}

	for _, t := range totals {
		excess := t.Excess()
		if excess == 0 {
			continue
		}
		report.ProductsFlagged++
		finding := dto.ReconciliationFinding{
			ProductID:   t.ProductID,
			ProductName: t.ProductName,
			Sold:        t.Sold,
			MovedOut:    t.MovedOut,
			Corrected:   t.Corrected,
			Excess:      excess,
		}

		var res *stock.MovementResult
		err := uc.txRunner.Run(ctx, func(
			movRepo repository.StockMovementRepository,
			productRepo repository.ProductRepository,
		) error {
			product, err := productRepo.GetForUpdate(t.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %s no existe", t.ProductID)
			}
			notes := fmt.Sprintf(
				"corrección de conciliación: %d unidades egresadas de más (vendidas %d, egresadas %d)",
				excess, t.Sold, t.MovedOut,
			)
			res, err = uc.adjuster.AdjustToInTx(
				movRepo, productRepo,
				t.ProductID,
				product.StockQuantity+excess,
				stock.RefPrefixReconciliation+uuid.New().String(),
				notes,
				time.Now(),
			)
			return err
		})
		if err != nil {
			// Registrar y seguir: un producto fallido no detiene la auditoría.
			finding.Error = err.Error()
			uc.log.Error().Err(err).
				Str("product_id", t.ProductID).
				Int("excess", excess).
				Msg("corrección de conciliación fallida")
		} else {
			finding.PreviousStock = res.PreviousStock
			finding.CorrectedStock = res.NewStock
			finding.MovementID = res.MovementID
			report.UnitsRestored += excess
			uc.log.Warn().
				Str("product_id", t.ProductID).
				Int("sold", t.Sold).
				Int("moved_out", t.MovedOut).
				Int("excess", excess).
				Int("corrected_stock", res.NewStock).
				Msg("exceso de egresos corregido")
		}
		report.Findings = append(report.Findings, finding)
	}

	if uc.reports != nil {
		if err := uc.reports.SetLastReport(ctx, report); err != nil {
			uc.log.Warn().Err(err).Msg("no se pudo guardar el último reporte de conciliación")
		}
	}
	uc.log.Info().
		Int("products_audited", report.ProductsAudited).
		Int("products_flagged", report.ProductsFlagged).
		Int("units_restored", report.UnitsRestored).
		Msg("conciliación finalizada")
	return report, nil
}

// LastReport devuelve el último reporte guardado, si existe.
func (uc *ReconciliationUseCase) LastReport(ctx context.Context) (*dto.ReconciliationReport, bool, error) {
	if uc.reports == nil {
		return nil, false, nil
	}
	return uc.reports.GetLastReport(ctx)
}
