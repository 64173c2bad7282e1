package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// StockHandler maneja las peticiones HTTP de stock y del libro de movimientos
// (protegido).
type StockHandler struct {
	uc      *stock.StockUseCase
	movRepo repository.StockMovementRepository
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *stock.StockUseCase, movRepo repository.StockMovementRepository) *StockHandler {
	return &StockHandler{uc: uc, movRepo: movRepo}
}

// RegisterMovement godoc
// @Summary      Registrar un movimiento manual de stock
// @Description  entrada/saida: quantity es la magnitud. ajuste: quantity es el
//
//	valor absoluto objetivo del stock.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ManualMovementRequest  true  "product_id, movement_type, quantity, notes"
// @Success      201   {object}  stock.MovementResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.ManualMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.RegisterManualMovement(c.Context(), stock.ManualMovementInput{
		ProductID: in.ProductID,
		Type:      in.MovementType,
		Quantity:  in.Quantity,
		Notes:     in.Notes,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	if result.Status == stock.StatusInsufficient {
		return c.Status(fiber.StatusConflict).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// RevertMovement godoc
// @Summary      Revertir un movimiento del libro
// @Description  Compensación: agrega el movimiento inverso referenciado al
//
//	original (reversa:<id>). El original no se modifica. Idempotente.
//
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento a revertir"
// @Success      201  {object}  stock.MovementResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/{id}/revert [post]
func (h *StockHandler) RevertMovement(c *fiber.Ctx) error {
	id := c.Params("id")
	result, err := h.uc.RevertMovement(c.Context(), id, c.Query("notes"))
	if err != nil {
		return h.mapError(c, err)
	}
	if result.Status == stock.StatusInsufficient {
		return c.Status(fiber.StatusConflict).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListByProduct godoc
// @Summary      Historial de movimientos de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        from    query  string  false  "Desde (RFC3339)"
// @Param        to      query  string  false  "Hasta (RFC3339)"
// @Param        limit   query  int     false  "Límite (default 20)"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/movements [get]
func (h *StockHandler) ListByProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido, formato RFC3339"})
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido, formato RFC3339"})
	}

	movements, err := h.movRepo.ListByProduct(productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(fiber.Map{
		"total":     len(movements),
		"movements": toMovementResponses(movements),
	})
}

// ListByReference godoc
// @Summary      Movimientos de una referencia (venta u operación)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        reference_id  query  string  true  "Referencia (ID de venta, manual:<uuid>, ...)"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListByReference(c *fiber.Ctx) error {
	referenceID := c.Query("reference_id")
	if referenceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "reference_id requerido"})
	}
	movements, err := h.movRepo.ListByReference(referenceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(fiber.Map{
		"total":     len(movements),
		"movements": toMovementResponses(movements),
	})
}

func (h *StockHandler) mapError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNegativeStock) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto o movimiento no encontrado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func parseTimeQuery(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toMovementResponses(movements []*entity.StockMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementResponse{
			ID:            m.ID,
			ProductID:     m.ProductID,
			Type:          m.Type,
			Quantity:      m.Quantity,
			PreviousStock: m.PreviousStock,
			NewStock:      m.NewStock,
			ReferenceID:   m.ReferenceID,
			Notes:         m.Notes,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
