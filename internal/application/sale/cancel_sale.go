package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// CancelSale anula una venta ya comiteada. No es un rollback: otros lectores
// pudieron ver el stock descontado, así que se compensa revirtiendo cada
// movimiento de salida de la venta (filas nuevas en el libro, las originales
// quedan intactas) y moviendo la cabecera a cancelled. Todo en una transacción;
// las reversas son idempotentes por referencia, reintentar es seguro.
func (uc *ProcessSaleUseCase) CancelSale(ctx context.Context, saleID string) error {
	if saleID == "" {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.RunSale(ctx, func(
		saleRepo repository.SaleRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		sale, err := saleRepo.GetByID(saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		if sale.Status != entity.SaleStatusCompleted {
			return domain.ErrSaleNotCancellable
		}

		now := time.Now()
		movements, err := movRepo.ListByReference(saleID)
		if err != nil {
			return err
		}
		for _, mov := range movements {
			if mov.Type != entity.MovementTypeSaida {
				continue
			}
			if _, err := uc.stockSvc.RevertInTx(
				movRepo, productRepo,
				mov.ID,
				fmt.Sprintf("anulación de venta %s", saleID),
				now,
			); err != nil {
				return err
			}
		}

		paymentStatus := sale.PaymentStatus
		if paymentStatus == entity.PaymentStatusPaid {
			paymentStatus = entity.PaymentStatusRefunded
		}
		return saleRepo.UpdateStatus(saleID, entity.SaleStatusCancelled, paymentStatus)
	})
}
