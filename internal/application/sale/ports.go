package sale

import (
	"context"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción que incluye los
// repositorios de ventas e inventario (una sola tx para cabecera, líneas y
// descuentos de stock).
type TxRunner interface {
	RunSale(ctx context.Context, fn func(
		saleRepo repository.SaleRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// StockService integra el coordinador de ventas con la unidad de control de
// stock. Las dos operaciones usan los repositorios del caller (misma
// transacción); si retornan error el caller debe hacer rollback. La
// insuficiencia de stock NO es error: viene en el MovementResult.
type StockService interface {
	ReduceInTx(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		productID string,
		quantity int,
		referenceID, notes string,
		now time.Time,
	) (*stock.MovementResult, error)
	RevertInTx(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		movementID, notes string,
		now time.Time,
	) (*stock.MovementResult, error)
}
