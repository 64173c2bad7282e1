package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/pos-backoffice/internal/application/product"
	"github.com/puntoventa/pos-backoffice/internal/application/reconciliation"
	"github.com/puntoventa/pos-backoffice/internal/application/sale"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/cache"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/memory"
	apphttp "github.com/puntoventa/pos-backoffice/internal/interfaces/http"
	"github.com/puntoventa/pos-backoffice/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildAPI arma la aplicación completa sobre el store en memoria, igual que
// main pero sin PostgreSQL ni Redis.
func buildAPI() (*fiber.App, *memory.Store) {
	store := memory.New()
	stockUC := stock.NewStockUseCase(store)
	productUC := product.NewProductUseCase(store, stockUC, cache.NoopLowStockCache{})
	processSaleUC := sale.NewProcessSaleUseCase(store, stockUC, store, store.CustomerRepo(), store.SaleRepo(), store.MovementRepo())
	reconUC := reconciliation.NewReconciliationUseCase(store, store, stockUC, store, logger.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:        productUC,
		StockUC:          stockUC,
		ProcessSale:      processSaleUC,
		ReconciliationUC: reconUC,
		MovementRepo:     store.MovementRepo(),
		JWTSecret:        testJWTSecret,
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, role string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo: alta de producto → venta → libro → conciliación
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FlujoCompleto(t *testing.T) {
	app, store := buildAPI()

	// Alta de producto con stock inicial (queda como entrada en el libro).
	resp := doJSON(t, app, http.MethodPost, "/api/products", apphttp.RoleAdmin, fiber.Map{
		"sku": "SKU-001", "name": "Café molido 500g",
		"price": "120.50", "min_stock": 5, "initial_stock": 20,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID            string `json:"id"`
		StockQuantity int    `json:"stock_quantity"`
	}
	decodeBody(t, resp, &created)
	assert.Equal(t, 20, created.StockQuantity)

	// Venta de 3 unidades.
	resp = doJSON(t, app, http.MethodPost, "/api/sales", apphttp.RoleCashier, fiber.Map{
		"payment_method": "efectivo",
		"items": []fiber.Map{
			{"product_id": created.ID, "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saleResult struct {
		SaleID string `json:"sale_id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &saleResult)
	assert.Equal(t, entity.SaleStatusCompleted, saleResult.Status)

	// El libro registra la venta con su referencia.
	resp = doJSON(t, app, http.MethodGet, "/api/stock/movements?reference_id="+saleResult.SaleID, apphttp.RoleCashier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ledger struct {
		Total int `json:"total"`
	}
	decodeBody(t, resp, &ledger)
	assert.Equal(t, 1, ledger.Total)

	// Consulta de la venta persistida.
	resp = doJSON(t, app, http.MethodGet, "/api/sales/"+saleResult.SaleID, apphttp.RoleCashier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Sin excesos: la conciliación no encuentra nada.
	resp = doJSON(t, app, http.MethodPost, "/api/reconciliation/run", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		ProductsFlagged int `json:"products_flagged"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, 0, report.ProductsFlagged)

	p, err := store.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, p.StockQuantity)
}

func TestAPI_ConciliacionCorrigeExceso(t *testing.T) {
	app, store := buildAPI()
	store.SeedProduct(entity.Product{
		ID: "prod-1", SKU: "SKU-1", Name: "Leche 1L",
		Price: decimal.NewFromInt(30), StockQuantity: 50, Active: true,
	})

	// Egreso fantasma: referencia de venta sin venta persistida.
	stockUC := stock.NewStockUseCase(store)
	_, err := stockUC.ReduceStock(context.Background(), stock.ReduceStockInput{
		ProductID: "prod-1", Quantity: 10, ReferenceID: "evento-duplicado",
	})
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/api/reconciliation/run?window_hours=48", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		ProductsFlagged int `json:"products_flagged"`
		UnitsRestored   int `json:"units_restored"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, 1, report.ProductsFlagged)
	assert.Equal(t, 10, report.UnitsRestored)

	// El reporte queda disponible para consulta.
	resp = doJSON(t, app, http.MethodGet, "/api/reconciliation/report", apphttp.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos manuales y códigos de error
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_MovimientoManual_InsuficienteDevuelve409(t *testing.T) {
	app, store := buildAPI()
	store.SeedProduct(entity.Product{
		ID: "prod-1", SKU: "SKU-1", Name: "Pan integral",
		Price: decimal.NewFromInt(10), StockQuantity: 2, Active: true,
	})

	resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", apphttp.RoleOperator, fiber.Map{
		"product_id": "prod-1", "movement_type": "saida", "quantity": 5,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	p, err := store.GetByID("prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.StockQuantity, "sin mutación")
}

func TestAPI_VentaSinStock_RespondeConErroresPorLinea(t *testing.T) {
	app, store := buildAPI()
	store.SeedProduct(entity.Product{
		ID: "prod-1", SKU: "SKU-1", Name: "Queso fresco",
		Price: decimal.NewFromInt(80), StockQuantity: 1, Active: true,
	})

	resp := doJSON(t, app, http.MethodPost, "/api/sales", apphttp.RoleCashier, fiber.Map{
		"payment_method": "efectivo",
		"items":          []fiber.Map{{"product_id": "prod-1", "quantity": 10}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result struct {
		Status         string `json:"status"`
		HasStockErrors bool   `json:"has_stock_errors"`
	}
	decodeBody(t, resp, &result)
	assert.Equal(t, entity.SaleStatusCancelled, result.Status)
	assert.True(t, result.HasStockErrors)
}

func TestAPI_ProductoDuplicado_Devuelve409(t *testing.T) {
	app, _ := buildAPI()
	body := fiber.Map{"sku": "SKU-001", "name": "Café", "price": "10", "min_stock": 1}

	resp := doJSON(t, app, http.MethodPost, "/api/products", apphttp.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/products", apphttp.RoleAdmin, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_LowStock_ListaBajoUmbral(t *testing.T) {
	app, store := buildAPI()
	store.SeedProduct(entity.Product{
		ID: "ok", SKU: "SKU-1", Name: "Bien surtido",
		Price: decimal.NewFromInt(1), StockQuantity: 50, MinStock: 5, Active: true,
	})
	store.SeedProduct(entity.Product{
		ID: "bajo", SKU: "SKU-2", Name: "Casi agotado",
		Price: decimal.NewFromInt(1), StockQuantity: 2, MinStock: 5, Active: true,
	})

	resp := doJSON(t, app, http.MethodGet, "/api/products/low-stock", apphttp.RoleOperator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Total    int `json:"total"`
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
	}
	decodeBody(t, resp, &out)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "bajo", out.Products[0].ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// RBAC sobre las rutas
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_RBAC(t *testing.T) {
	app, _ := buildAPI()

	cases := []struct {
		method, path, role string
		want               int
	}{
		{http.MethodPost, "/api/reconciliation/run", apphttp.RoleCashier, http.StatusForbidden},
		{http.MethodGet, "/api/reconciliation/report", apphttp.RoleOperator, http.StatusForbidden},
		{http.MethodPost, "/api/products", apphttp.RoleCashier, http.StatusForbidden},
		{http.MethodPost, "/api/stock/movements", apphttp.RoleCashier, http.StatusForbidden},
		{http.MethodGet, "/api/products", "", http.StatusUnauthorized}, // sin token
	}
	for _, tc := range cases {
		resp := doJSON(t, app, tc.method, tc.path, tc.role, nil)
		assert.Equalf(t, tc.want, resp.StatusCode, "%s %s con rol %q", tc.method, tc.path, tc.role)
		resp.Body.Close()
	}
}

// El health check es público.
func TestAPI_HealthPublico(t *testing.T) {
	app, _ := buildAPI()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
