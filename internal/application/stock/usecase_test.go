package stock_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testProductID = "00000000-0000-0000-0000-0000000000aa"

// buildStore construye un store en memoria con un producto sembrado.
func buildStore(stockQty int) (*memory.Store, *stock.StockUseCase) {
	store := memory.New()
	store.SeedProduct(entity.Product{
		ID:            testProductID,
		SKU:           "SKU-001",
		Name:          "Café molido 500g",
		StockQuantity: stockQty,
		MinStock:      5,
		Active:        true,
	})
	return store, stock.NewStockUseCase(store)
}

func stockOf(t *testing.T, store *memory.Store, productID string) int {
	t.Helper()
	p, err := store.GetByID(productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

// ──────────────────────────────────────────────────────────────────────────────
// ReduceStock — descuento idempotente
// ──────────────────────────────────────────────────────────────────────────────

func TestReduceStock_DescuentaYRegistraEnElLibro(t *testing.T) {
	store, uc := buildStore(50)

	result, err := uc.ReduceStock(context.Background(), stock.ReduceStockInput{
		ProductID:   testProductID,
		Quantity:    3,
		ReferenceID: "venta-001",
	})
	require.NoError(t, err)

	assert.Equal(t, stock.StatusApplied, result.Status)
	assert.Equal(t, 50, result.PreviousStock)
	assert.Equal(t, 47, result.NewStock)
	assert.Equal(t, 47, stockOf(t, store, testProductID))

	// Exactamente una fila en el libro, con las fotos previa y posterior.
	movements, err := store.MovementRepo().ListByReference("venta-001")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementTypeSaida, movements[0].Type)
	assert.Equal(t, 3, movements[0].Quantity)
	assert.Equal(t, 50, movements[0].PreviousStock)
	assert.Equal(t, 47, movements[0].NewStock)
}

// El replay con la misma referencia NO descuenta dos veces: devuelve el
// resultado original con estado duplicate.
func TestReduceStock_ReplayMismaReferencia_NoDescuentaDosVeces(t *testing.T) {
	store, uc := buildStore(50)
	ctx := context.Background()

	first, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 3, ReferenceID: "venta-001",
	})
	require.NoError(t, err)
	require.Equal(t, stock.StatusApplied, first.Status)

	second, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 3, ReferenceID: "venta-001",
	})
	require.NoError(t, err)

	assert.Equal(t, stock.StatusDuplicate, second.Status)
	assert.Equal(t, first.MovementID, second.MovementID, "debe devolver el movimiento original")
	assert.Equal(t, 47, stockOf(t, store, testProductID), "el stock se descuenta una sola vez")

	movements, err := store.MovementRepo().ListByReference("venta-001")
	require.NoError(t, err)
	assert.Len(t, movements, 1, "el libro debe tener una sola fila para la referencia")
}

// Referencias distintas para el mismo producto sí descuentan cada una.
func TestReduceStock_ReferenciasDistintas_DescuentanCadaUna(t *testing.T) {
	store, uc := buildStore(50)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
			ProductID:   testProductID,
			Quantity:    2,
			ReferenceID: fmt.Sprintf("venta-%03d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, stock.StatusApplied, result.Status)
	}
	assert.Equal(t, 44, stockOf(t, store, testProductID))
}

// Stock insuficiente es un resultado, no un error, y no muta nada.
func TestReduceStock_StockInsuficiente_NoMuta(t *testing.T) {
	store, uc := buildStore(2)

	result, err := uc.ReduceStock(context.Background(), stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 5, ReferenceID: "venta-001",
	})
	require.NoError(t, err, "insuficiencia no debe reportarse como error")

	assert.Equal(t, stock.StatusInsufficient, result.Status)
	assert.Equal(t, 2, result.Available)
	assert.Equal(t, 5, result.Requested)
	assert.Equal(t, 2, stockOf(t, store, testProductID), "el contador no debe cambiar")

	movements, err := store.MovementRepo().ListByReference("venta-001")
	require.NoError(t, err)
	assert.Empty(t, movements, "no debe quedar fila en el libro")
}

// El descuento exacto del stock disponible deja el contador en cero (no es insuficiencia).
func TestReduceStock_DescuentaHastaCero(t *testing.T) {
	store, uc := buildStore(5)

	result, err := uc.ReduceStock(context.Background(), stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 5, ReferenceID: "venta-001",
	})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, result.Status)
	assert.Equal(t, 0, stockOf(t, store, testProductID))
}

func TestReduceStock_EntradasInvalidas(t *testing.T) {
	_, uc := buildStore(10)
	ctx := context.Background()

	cases := []stock.ReduceStockInput{
		{ProductID: "", Quantity: 1, ReferenceID: "r"},
		{ProductID: testProductID, Quantity: 0, ReferenceID: "r"},
		{ProductID: testProductID, Quantity: -1, ReferenceID: "r"},
		{ProductID: testProductID, Quantity: 1, ReferenceID: ""},
	}
	for _, in := range cases {
		_, err := uc.ReduceStock(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestReduceStock_ProductoInexistente(t *testing.T) {
	_, uc := buildStore(10)
	_, err := uc.ReduceStock(context.Background(), stock.ReduceStockInput{
		ProductID: "no-existe", Quantity: 1, ReferenceID: "venta-001",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia — el tramo crítico serializa bajo el lock de fila
// ──────────────────────────────────────────────────────────────────────────────

// N goroutines con referencias distintas: todas aplican, ninguna unidad se
// pierde ni se descuenta de más, y la cadena de fotos del libro es consistente.
func TestReduceStock_Concurrente_ReferenciasDistintas(t *testing.T) {
	const n = 50
	store, uc := buildStore(100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
				ProductID:   testProductID,
				Quantity:    1,
				ReferenceID: fmt.Sprintf("venta-%03d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100-n, stockOf(t, store, testProductID))

	movements, err := store.MovementRepo().ListByProduct(testProductID, nil, nil, n+10, 0)
	require.NoError(t, err)
	require.Len(t, movements, n)
	for _, m := range movements {
		assert.Equal(t, m.PreviousStock-m.Quantity, m.NewStock)
	}
}

// N goroutines con la MISMA referencia: exactamente una aplica, el resto ve
// duplicate. Esta es la condición de carrera del doble descuento.
func TestReduceStock_Concurrente_MismaReferencia_AplicaUnaSola(t *testing.T) {
	const n = 20
	store, uc := buildStore(100)
	ctx := context.Background()

	results := make([]*stock.MovementResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
				ProductID: testProductID, Quantity: 4, ReferenceID: "venta-777",
			})
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.Applied() {
			applied++
		} else {
			assert.Equal(t, stock.StatusDuplicate, r.Status)
		}
	}
	assert.Equal(t, 1, applied, "solo una llamada debe aplicar el descuento")
	assert.Equal(t, 96, stockOf(t, store, testProductID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Restock y ajustes
// ──────────────────────────────────────────────────────────────────────────────

func TestRestock_AgregaConIdempotencia(t *testing.T) {
	store, uc := buildStore(10)
	ctx := context.Background()

	first, err := uc.Restock(ctx, stock.RestockInput{
		ProductID: testProductID, Quantity: 15, ReferenceID: "manual:abc",
	})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, first.Status)
	assert.Equal(t, 25, stockOf(t, store, testProductID))

	second, err := uc.Restock(ctx, stock.RestockInput{
		ProductID: testProductID, Quantity: 15, ReferenceID: "manual:abc",
	})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusDuplicate, second.Status)
	assert.Equal(t, 25, stockOf(t, store, testProductID), "el replay no debe sumar dos veces")
}

func TestAdjustTo_SubeYBaja(t *testing.T) {
	store, uc := buildStore(10)
	ctx := context.Background()

	up, err := uc.AdjustTo(ctx, testProductID, 30, "conteo físico")
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, up.Status)
	assert.Equal(t, entity.MovementTypeAjuste, up.Type)
	assert.Equal(t, 20, up.Quantity, "quantity del ajuste es el delta absoluto")
	assert.Equal(t, 30, stockOf(t, store, testProductID))

	down, err := uc.AdjustTo(ctx, testProductID, 12, "merma")
	require.NoError(t, err)
	assert.Equal(t, 18, down.Quantity)
	assert.Equal(t, 12, stockOf(t, store, testProductID))
}

func TestAdjustTo_ObjetivoIgualAlActual_EsNoop(t *testing.T) {
	store, uc := buildStore(10)

	result, err := uc.AdjustTo(context.Background(), testProductID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, stock.StatusNoop, result.Status)

	movements, err := store.MovementRepo().ListByProduct(testProductID, nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, movements, "un noop no escribe en el libro")
}

func TestAdjustTo_ObjetivoNegativo_Rechazado(t *testing.T) {
	_, uc := buildStore(10)
	_, err := uc.AdjustTo(context.Background(), testProductID, -1, "")
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reversas — compensación sin tocar la fila original
// ──────────────────────────────────────────────────────────────────────────────

func TestRevertMovement_ReponeYEsIdempotente(t *testing.T) {
	store, uc := buildStore(50)
	ctx := context.Background()

	sale, err := uc.ReduceStock(ctx, stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 8, ReferenceID: "venta-001",
	})
	require.NoError(t, err)
	require.Equal(t, 42, stockOf(t, store, testProductID))

	revert, err := uc.RevertMovement(ctx, sale.MovementID, "")
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, revert.Status)
	assert.Equal(t, entity.MovementTypeEntrada, revert.Type)
	assert.Equal(t, 50, stockOf(t, store, testProductID))

	// El movimiento original sigue intacto en el libro.
	orig, err := store.MovementRepo().GetByID(sale.MovementID)
	require.NoError(t, err)
	require.NotNil(t, orig)
	assert.Equal(t, entity.MovementTypeSaida, orig.Type)
	assert.Equal(t, 8, orig.Quantity)

	// Repetir la reversa no repone dos veces.
	again, err := uc.RevertMovement(ctx, sale.MovementID, "")
	require.NoError(t, err)
	assert.Equal(t, stock.StatusDuplicate, again.Status)
	assert.Equal(t, 50, stockOf(t, store, testProductID))
}

func TestRevertMovement_AjusteNoEsRevertible(t *testing.T) {
	store, uc := buildStore(10)
	ctx := context.Background()

	adj, err := uc.AdjustTo(ctx, testProductID, 20, "")
	require.NoError(t, err)

	_, err = uc.RevertMovement(ctx, adj.MovementID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 20, stockOf(t, store, testProductID))
}

// Revertir una entrada cuando las unidades ya se vendieron reporta insuficiencia.
func TestRevertMovement_EntradaSinStockDisponible_Insuficiente(t *testing.T) {
	store, uc := buildStore(0)
	ctx := context.Background()

	in, err := uc.Restock(ctx, stock.RestockInput{
		ProductID: testProductID, Quantity: 10, ReferenceID: "manual:abc",
	})
	require.NoError(t, err)

	// Se venden 8 de las 10 unidades ingresadas.
	_, err = uc.ReduceStock(ctx, stock.ReduceStockInput{
		ProductID: testProductID, Quantity: 8, ReferenceID: "venta-001",
	})
	require.NoError(t, err)

	result, err := uc.RevertMovement(ctx, in.MovementID, "")
	require.NoError(t, err)
	assert.Equal(t, stock.StatusInsufficient, result.Status)
	assert.Equal(t, 2, stockOf(t, store, testProductID), "sin mutación")
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos manuales
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterManualMovement_EnrutaPorTipo(t *testing.T) {
	store, uc := buildStore(10)
	ctx := context.Background()

	in, err := uc.RegisterManualMovement(ctx, stock.ManualMovementInput{
		ProductID: testProductID, Type: entity.MovementTypeEntrada, Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, in.Status)
	assert.Equal(t, 15, stockOf(t, store, testProductID))

	out, err := uc.RegisterManualMovement(ctx, stock.ManualMovementInput{
		ProductID: testProductID, Type: entity.MovementTypeSaida, Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusApplied, out.Status)
	assert.Equal(t, 12, stockOf(t, store, testProductID))

	// Para ajuste, Quantity es el objetivo absoluto.
	adj, err := uc.RegisterManualMovement(ctx, stock.ManualMovementInput{
		ProductID: testProductID, Type: entity.MovementTypeAjuste, Quantity: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 28, adj.Quantity)
	assert.Equal(t, 40, stockOf(t, store, testProductID))

	_, err = uc.RegisterManualMovement(ctx, stock.ManualMovementInput{
		ProductID: testProductID, Type: "transferencia", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariante del libro
// ──────────────────────────────────────────────────────────────────────────────

func TestStockMovement_Validate(t *testing.T) {
	now := time.Now()
	valid := entity.StockMovement{
		ID: "m1", ProductID: testProductID, Type: entity.MovementTypeSaida,
		Quantity: 3, PreviousStock: 10, NewStock: 7, CreatedAt: now,
	}
	assert.NoError(t, valid.Validate())

	broken := valid
	broken.NewStock = 8 // no cierra la aritmética
	assert.ErrorIs(t, broken.Validate(), domain.ErrLedgerInvariant)

	negative := valid
	negative.PreviousStock = 2
	negative.NewStock = -1
	assert.ErrorIs(t, negative.Validate(), domain.ErrLedgerInvariant)
}
