package entity

import (
	"fmt"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/domain"
)

// Tipos de movimiento de inventario. Los valores literales vienen del esquema
// heredado del sistema original ("saida", no "salida") y son parte del contrato
// de datos: no renombrar.
const (
	MovementTypeEntrada = "entrada" // ingreso de unidades
	MovementTypeSaida   = "saida"   // salida por venta o egreso manual
	MovementTypeAjuste  = "ajuste"  // ajuste a un valor absoluto (delta registrado)
)

// StockMovement es una entrada del libro de movimientos: append-only, nunca se
// actualiza ni se borra. Cada fila lleva la foto previa y posterior del stock
// y la referencia al evento que la causó (venta, operación manual, reversa o
// corrección de conciliación). ReferenceID es la clave de idempotencia:
// para un par (ProductID, ReferenceID) y un tipo dado existe a lo sumo una fila.
type StockMovement struct {
	ID            string
	ProductID     string
	Type          string // entrada, saida, ajuste
	Quantity      int    // magnitud siempre positiva; el signo lo implica Type
	PreviousStock int
	NewStock      int
	ReferenceID   string // venta, manual:<uuid>, reversa:<mov>, reconciliacion:<uuid>
	Notes         string
	CreatedAt     time.Time
}

// SignedQuantity devuelve la cantidad con signo según el tipo: positiva para
// entrada, negativa para saida. Para ajuste el signo sale de la diferencia
// de las fotos (el ajuste puede subir o bajar el stock).
func (m *StockMovement) SignedQuantity() int {
	switch m.Type {
	case MovementTypeEntrada:
		return m.Quantity
	case MovementTypeSaida:
		return -m.Quantity
	case MovementTypeAjuste:
		return m.NewStock - m.PreviousStock
	}
	return 0
}

// Validate verifica el invariante del libro: NewStock == PreviousStock ± Quantity
// según el tipo, cantidad positiva y stock resultante no negativo. Se ejecuta
// antes de cada insert; una violación es fatal y aborta la transacción.
func (m *StockMovement) Validate() error {
	if m.Quantity <= 0 {
		return errInvariant("cantidad no positiva")
	}
	if m.NewStock < 0 {
		return errInvariant("stock resultante negativo")
	}
	switch m.Type {
	case MovementTypeEntrada:
		if m.NewStock != m.PreviousStock+m.Quantity {
			return errInvariant("entrada: new_stock != previous_stock + quantity")
		}
	case MovementTypeSaida:
		if m.NewStock != m.PreviousStock-m.Quantity {
			return errInvariant("saida: new_stock != previous_stock - quantity")
		}
	case MovementTypeAjuste:
		diff := m.NewStock - m.PreviousStock
		if diff < 0 {
			diff = -diff
		}
		if diff != m.Quantity {
			return errInvariant("ajuste: |new_stock - previous_stock| != quantity")
		}
	default:
		return errInvariant("tipo de movimiento desconocido: " + m.Type)
	}
	return nil
}

func errInvariant(detail string) error {
	return fmt.Errorf("%w: %s", domain.ErrLedgerInvariant, detail)
}
