package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/application/reconciliation"
)

// ReconciliationHandler expone al operador la corrida bajo demanda del auditor
// y la consulta del último reporte (protegido, solo admin).
type ReconciliationHandler struct {
	uc *reconciliation.ReconciliationUseCase
}

// NewReconciliationHandler construye el handler.
func NewReconciliationHandler(uc *reconciliation.ReconciliationUseCase) *ReconciliationHandler {
	return &ReconciliationHandler{uc: uc}
}

// Run godoc
// @Summary      Ejecutar una conciliación bajo demanda
// @Description  Audita vendido contra egresado por producto sobre la ventana
//
//	indicada y restituye el exceso con ajustes correctivos. Idempotente
//	entre corridas.
//
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Param        window_hours  query  int  false  "Ventana hacia atrás en horas (default 24)"
// @Success      200  {object}  dto.ReconciliationReport
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reconciliation/run [post]
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	windowHours := c.QueryInt("window_hours", 24)
	if windowHours <= 0 || windowHours > 24*90 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "window_hours fuera de rango"})
	}
	to := time.Now()
	from := to.Add(-time.Duration(windowHours) * time.Hour)
	report, err := h.uc.Run(c.Context(), from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(report)
}

// LastReport godoc
// @Summary      Último reporte de conciliación
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconciliationReport
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reconciliation/report [get]
func (h *ReconciliationHandler) LastReport(c *fiber.Ctx) error {
	report, ok, err := h.uc.LastReport(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "todavía no hay corridas de conciliación"})
	}
	return c.JSON(report)
}
