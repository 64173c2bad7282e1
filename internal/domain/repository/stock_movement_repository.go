package repository

import (
	"time"

	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
)

// StockMovementRepository define el puerto del libro de movimientos.
// Solo inserta y consulta: el puerto no expone Update ni Delete a propósito,
// una fila del libro es inmutable después del insert.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	// GetByReference busca el movimiento de un tipo para (producto, referencia).
	// Es la consulta de idempotencia: nil sin error cuando no existe.
	GetByReference(productID, referenceID, movementType string) (*entity.StockMovement, error)
	ListByReference(referenceID string) ([]*entity.StockMovement, error)
	ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
}
