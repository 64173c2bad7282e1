package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/puntoventa/pos-backoffice/internal/application/product"
	"github.com/puntoventa/pos-backoffice/internal/application/reconciliation"
	"github.com/puntoventa/pos-backoffice/internal/application/sale"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC        *product.ProductUseCase
	StockUC          *stock.StockUseCase
	ProcessSale      *sale.ProcessSaleUseCase
	ReconciliationUC *reconciliation.ReconciliationUseCase
	MovementRepo     repository.StockMovementRepository
	JWTSecret        string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", RequireRole(RoleAdmin, RoleOperator), productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", RequireRole(RoleAdmin, RoleOperator), productHandler.Update)

	// Sales (protegido)
	sales := protected.Group("/sales")
	saleHandler := NewSaleHandler(deps.ProcessSale)
	sales.Post("/", saleHandler.Create)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Post("/:id/cancel", RequireRole(RoleAdmin, RoleOperator), saleHandler.Cancel)

	// Stock y libro de movimientos (protegido)
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.StockUC, deps.MovementRepo)
	stockGroup.Post("/movements", RequireRole(RoleAdmin, RoleOperator), stockHandler.RegisterMovement)
	stockGroup.Get("/movements", stockHandler.ListByReference)
	stockGroup.Post("/movements/:id/revert", RequireRole(RoleAdmin, RoleOperator), stockHandler.RevertMovement)
	stockGroup.Get("/products/:id/movements", stockHandler.ListByProduct)

	// Conciliación (protegido, solo admin)
	recon := protected.Group("/reconciliation", RequireRole(RoleAdmin))
	reconHandler := NewReconciliationHandler(deps.ReconciliationUC)
	recon.Post("/run", reconHandler.Run)
	recon.Get("/report", reconHandler.LastReport)
}
