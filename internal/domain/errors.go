package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrLedgerInvariant indica una foto previa/posterior inconsistente en un
	// movimiento. Es fatal: aborta la transacción y nunca se absorbe en silencio.
	ErrLedgerInvariant = errors.New("invariante del libro de movimientos violado")

	// ErrNegativeStock rechaza cualquier operación manual que dejaría el stock
	// por debajo de cero; no es un estado corregible.
	ErrNegativeStock = errors.New("el stock no puede quedar negativo")

	// ErrSaleNotCancellable la venta no está en un estado cancelable.
	ErrSaleNotCancellable = errors.New("la venta no admite cancelación")
)
