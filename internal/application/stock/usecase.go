package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// Prefijos de referencia para movimientos que no nacen de una venta.
// La referencia es la clave de idempotencia del libro; los prefijos permiten
// distinguir el origen sin tablas adicionales.
const (
	RefPrefixManual         = "manual:"
	RefPrefixRevert         = "reversa:"
	RefPrefixReconciliation = "reconciliacion:"
)

// Estados posibles de MovementResult.
const (
	StatusApplied      = "applied"            // el movimiento se aplicó en esta llamada
	StatusDuplicate    = "duplicate"          // ya existía un movimiento para (producto, referencia); replay seguro
	StatusInsufficient = "insufficient_stock" // stock menor al solicitado; sin mutación
	StatusNoop         = "noop"               // ajuste cuyo objetivo coincide con el stock actual
)

// MovementResult resultado estructurado de una operación de stock.
// Insuficiencia de stock y replays idempotentes NO son errores: se reportan
// aquí para que el caller decida sin abortar su transacción.
type MovementResult struct {
	Status        string `json:"status"`
	MovementID    string `json:"movement_id,omitempty"`
	ProductID     string `json:"product_id"`
	Type          string `json:"type,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
	// Solo para insufficient_stock.
	Available int `json:"available,omitempty"`
	Requested int `json:"requested,omitempty"`
}

// Applied indica si esta llamada mutó el stock.
func (r *MovementResult) Applied() bool { return r.Status == StatusApplied }

// StockUseCase es el único mutador autorizado de product.stock_quantity.
// Toda escritura ocurre con la fila del producto bloqueada (SELECT FOR UPDATE)
// y junto al insert de exactamente una fila en el libro, en la misma transacción.
// Ningún otro componente escribe el contador: las ventas, las operaciones
// manuales y las correcciones del auditor entran todas por aquí.
type StockUseCase struct {
	txRunner TxRunner
}

// NewStockUseCase construye la unidad de control de stock.
func NewStockUseCase(txRunner TxRunner) *StockUseCase {
	return &StockUseCase{txRunner: txRunner}
}

// ReduceStockInput entrada para descontar stock por una referencia.
type ReduceStockInput struct {
	ProductID   string
	Quantity    int
	ReferenceID string // clave de idempotencia: ID de venta o manual:<uuid>
	Notes       string
}

// ReduceStock descuenta stock de forma idempotente por (producto, referencia).
// Repetir la llamada con la misma referencia no descuenta dos veces: retorna
// el resultado original con estado duplicate. Este es el arreglo estructural
// del doble descuento que producían los mutadores descoordinados del sistema
// heredado.
func (uc *StockUseCase) ReduceStock(ctx context.Context, in ReduceStockInput) (*MovementResult, error) {
	if in.ProductID == "" || in.ReferenceID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var result *MovementResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		result, err = uc.ReduceInTx(movRepo, productRepo, in.ProductID, in.Quantity, in.ReferenceID, in.Notes, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReduceInTx ejecuta el descuento usando los repositorios del caller (misma
// transacción). Lo usa el coordinador de ventas para descontar línea por línea
// dentro de su propia tx. Orden del tramo crítico: bloquear fila, consultar
// idempotencia, verificar suficiencia, actualizar contador, insertar en el libro.
func (uc *StockUseCase) ReduceInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	productID string,
	quantity int,
	referenceID, notes string,
	now time.Time,
) (*MovementResult, error) {
	if quantity <= 0 || referenceID == "" {
		return nil, domain.ErrInvalidInput
	}
	// Bloquea la fila del producto antes de leer el contador: dos ventas
	// concurrentes del mismo producto serializan aquí.
	product, err := productRepo.GetForUpdate(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	// Idempotencia: si ya hay una saida para (producto, referencia), el evento
	// ya se aplicó (trigger duplicado, reintento de red, doble submit).
	prior, err := movRepo.GetByReference(productID, referenceID, entity.MovementTypeSaida)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return &MovementResult{
			Status:        StatusDuplicate,
			MovementID:    prior.ID,
			ProductID:     productID,
			Type:          prior.Type,
			Quantity:      prior.Quantity,
			PreviousStock: prior.PreviousStock,
			NewStock:      prior.NewStock,
		}, nil
	}
	if product.StockQuantity < quantity {
		return &MovementResult{
			Status:        StatusInsufficient,
			ProductID:     productID,
			Available:     product.StockQuantity,
			Requested:     quantity,
			PreviousStock: product.StockQuantity,
			NewStock:      product.StockQuantity,
		}, nil
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     productID,
		Type:          entity.MovementTypeSaida,
		Quantity:      quantity,
		PreviousStock: product.StockQuantity,
		NewStock:      product.StockQuantity - quantity,
		ReferenceID:   referenceID,
		Notes:         notes,
		CreatedAt:     now,
	}
	return uc.applyInTx(movRepo, productRepo, mov)
}

// RestockInput entrada para registrar un ingreso de unidades.
type RestockInput struct {
	ProductID   string
	Quantity    int
	ReferenceID string
	Notes       string
}

// Restock registra una entrada con la misma disciplina de bloqueo e
// idempotencia que ReduceStock (simétrico).
func (uc *StockUseCase) Restock(ctx context.Context, in RestockInput) (*MovementResult, error) {
	if in.ProductID == "" || in.ReferenceID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var result *MovementResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		product, err := productRepo.GetForUpdate(in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		prior, err := movRepo.GetByReference(in.ProductID, in.ReferenceID, entity.MovementTypeEntrada)
		if err != nil {
			return err
		}
		if prior != nil {
			result = &MovementResult{
				Status:        StatusDuplicate,
				MovementID:    prior.ID,
				ProductID:     in.ProductID,
				Type:          prior.Type,
				Quantity:      prior.Quantity,
				PreviousStock: prior.PreviousStock,
				NewStock:      prior.NewStock,
			}
			return nil
		}
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			ProductID:     in.ProductID,
			Type:          entity.MovementTypeEntrada,
			Quantity:      in.Quantity,
			PreviousStock: product.StockQuantity,
			NewStock:      product.StockQuantity + in.Quantity,
			ReferenceID:   in.ReferenceID,
			Notes:         in.Notes,
			CreatedAt:     time.Now(),
		}
		result, err = uc.applyInTx(movRepo, productRepo, mov)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustTo lleva el stock de un producto a un valor absoluto y registra en el
// libro un ajuste cuyo Quantity es el delta necesario para llegar al objetivo.
// Un objetivo negativo se rechaza: el stock negativo no es un estado corregible.
func (uc *StockUseCase) AdjustTo(ctx context.Context, productID string, target int, notes string) (*MovementResult, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if target < 0 {
		return nil, domain.ErrNegativeStock
	}
	var result *MovementResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		result, err = uc.AdjustToInTx(movRepo, productRepo, productID, target, RefPrefixManual+uuid.New().String(), notes, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustToInTx versión con repositorios del caller; la usa el auditor de
// conciliación para aplicar la corrección dentro de su propia transacción.
func (uc *StockUseCase) AdjustToInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	productID string,
	target int,
	referenceID, notes string,
	now time.Time,
) (*MovementResult, error) {
	if target < 0 {
		return nil, domain.ErrNegativeStock
	}
	product, err := productRepo.GetForUpdate(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	delta := target - product.StockQuantity
	if delta == 0 {
		return &MovementResult{
			Status:        StatusNoop,
			ProductID:     productID,
			PreviousStock: product.StockQuantity,
			NewStock:      product.StockQuantity,
		}, nil
	}
	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     productID,
		Type:          entity.MovementTypeAjuste,
		Quantity:      quantity,
		PreviousStock: product.StockQuantity,
		NewStock:      target,
		ReferenceID:   referenceID,
		Notes:         notes,
		CreatedAt:     now,
	}
	return uc.applyInTx(movRepo, productRepo, mov)
}

// RevertMovement aplica el inverso de un movimiento (entrada revierte saida y
// viceversa) escribiendo una fila nueva en el libro; jamás borra ni modifica la
// original. Se usa al anular una venta. Idempotente por la referencia
// reversa:<movementID>.
func (uc *StockUseCase) RevertMovement(ctx context.Context, movementID, notes string) (*MovementResult, error) {
	if movementID == "" {
		return nil, domain.ErrInvalidInput
	}
	var result *MovementResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		result, err = uc.RevertInTx(movRepo, productRepo, movementID, notes, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevertInTx versión con repositorios del caller (la usa CancelSale para
// revertir todas las líneas de una venta en una sola transacción).
func (uc *StockUseCase) RevertInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	movementID, notes string,
	now time.Time,
) (*MovementResult, error) {
	orig, err := movRepo.GetByID(movementID)
	if err != nil {
		return nil, err
	}
	if orig == nil {
		return nil, domain.ErrNotFound
	}
	var inverseType string
	switch orig.Type {
	case entity.MovementTypeSaida:
		inverseType = entity.MovementTypeEntrada
	case entity.MovementTypeEntrada:
		inverseType = entity.MovementTypeSaida
	default:
		// Un ajuste no tiene inverso mecánico; corregirlo es otro ajuste.
		return nil, domain.ErrInvalidInput
	}
	referenceID := RefPrefixRevert + movementID
	product, err := productRepo.GetForUpdate(orig.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	prior, err := movRepo.GetByReference(orig.ProductID, referenceID, inverseType)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return &MovementResult{
			Status:        StatusDuplicate,
			MovementID:    prior.ID,
			ProductID:     orig.ProductID,
			Type:          prior.Type,
			Quantity:      prior.Quantity,
			PreviousStock: prior.PreviousStock,
			NewStock:      prior.NewStock,
		}, nil
	}
	newStock := product.StockQuantity + orig.Quantity
	if inverseType == entity.MovementTypeSaida {
		if product.StockQuantity < orig.Quantity {
			return &MovementResult{
				Status:        StatusInsufficient,
				ProductID:     orig.ProductID,
				Available:     product.StockQuantity,
				Requested:     orig.Quantity,
				PreviousStock: product.StockQuantity,
				NewStock:      product.StockQuantity,
			}, nil
		}
		newStock = product.StockQuantity - orig.Quantity
	}
	if notes == "" {
		notes = fmt.Sprintf("reversa del movimiento %s", movementID)
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     orig.ProductID,
		Type:          inverseType,
		Quantity:      orig.Quantity,
		PreviousStock: product.StockQuantity,
		NewStock:      newStock,
		ReferenceID:   referenceID,
		Notes:         notes,
		CreatedAt:     now,
	}
	return uc.applyInTx(movRepo, productRepo, mov)
}

// ManualMovementInput entrada del API de ajuste manual de stock.
// Para entrada/saida, Quantity es la magnitud del movimiento; para ajuste,
// Quantity es el valor absoluto objetivo del stock.
type ManualMovementInput struct {
	ProductID string
	Type      string
	Quantity  int
	Notes     string
}

// RegisterManualMovement enruta una operación manual por la misma unidad de
// control: genera una referencia sintética manual:<uuid> como clave de
// idempotencia del evento.
func (uc *StockUseCase) RegisterManualMovement(ctx context.Context, in ManualMovementInput) (*MovementResult, error) {
	if in.ProductID == "" || in.Quantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	switch in.Type {
	case entity.MovementTypeEntrada:
		return uc.Restock(ctx, RestockInput{
			ProductID:   in.ProductID,
			Quantity:    in.Quantity,
			ReferenceID: RefPrefixManual + uuid.New().String(),
			Notes:       in.Notes,
		})
	case entity.MovementTypeSaida:
		return uc.ReduceStock(ctx, ReduceStockInput{
			ProductID:   in.ProductID,
			Quantity:    in.Quantity,
			ReferenceID: RefPrefixManual + uuid.New().String(),
			Notes:       in.Notes,
		})
	case entity.MovementTypeAjuste:
		return uc.AdjustTo(ctx, in.ProductID, in.Quantity, in.Notes)
	}
	return nil, domain.ErrInvalidInput
}

// applyInTx valida el invariante del libro, escribe el contador y agrega la
// fila del movimiento. Llega aquí todo movimiento, sin excepción: o ambas
// escrituras comitean o ninguna.
func (uc *StockUseCase) applyInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	mov *entity.StockMovement,
) (*MovementResult, error) {
	if err := mov.Validate(); err != nil {
		return nil, err
	}
	if err := productRepo.UpdateStock(mov.ProductID, mov.NewStock); err != nil {
		return nil, err
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}
	return &MovementResult{
		Status:        StatusApplied,
		MovementID:    mov.ID,
		ProductID:     mov.ProductID,
		Type:          mov.Type,
		Quantity:      mov.Quantity,
		PreviousStock: mov.PreviousStock,
		NewStock:      mov.NewStock,
	}, nil
}

// IsReconciliationReference indica si una referencia pertenece a una corrección
// del auditor (usada por las consultas del auditor para netear correcciones previas).
func IsReconciliationReference(ref string) bool {
	return strings.HasPrefix(ref, RefPrefixReconciliation)
}
