package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// ProcessSaleUseCase coordina la creación de una venta: cabecera + N líneas,
// llamando a la unidad de control de stock exactamente una vez por línea,
// todo dentro de una sola transacción. El ID de la venta es la clave de
// idempotencia de cada descuento de stock.
type ProcessSaleUseCase struct {
	txRunner     TxRunner
	stockSvc     StockService
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	movRepo      repository.StockMovementRepository
}

// NewProcessSaleUseCase construye el coordinador. productRepo/customerRepo/
// saleRepo/movRepo son los atados al pool (lecturas fuera de transacción).
func NewProcessSaleUseCase(
	txRunner TxRunner,
	stockSvc StockService,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	movRepo repository.StockMovementRepository,
) *ProcessSaleUseCase {
	return &ProcessSaleUseCase{
		txRunner:     txRunner,
		stockSvc:     stockSvc,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		movRepo:      movRepo,
	}
}

// ProcessSale valida el carrito, abre una transacción, inserta la cabecera
// (pending), descuenta stock línea por línea y cierra la venta. Una línea con
// stock insuficiente se reporta como fallida pero no aborta el resto del
// carrito (despacho parcial); errores de almacenamiento o de invariante sí
// abortan todo con rollback, cabecera incluida.
func (uc *ProcessSaleUseCase) ProcessSale(ctx context.Context, in dto.CreateSaleRequest) (*dto.SaleResult, error) {
	if len(in.Items) == 0 || in.PaymentMethod == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.DiscountAmount.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	// Validar productos y precios fuera de la tx (solo lectura).
	productsByID := make(map[string]*entity.Product, len(in.Items))
	for i := range in.Items {
		item := &in.Items[i]
		if item.ProductID == "" || item.Quantity <= 0 || item.UnitPrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		// La clave de idempotencia es (producto, venta): dos líneas del mismo
		// producto en un carrito colisionarían; el caller debe consolidarlas.
		if _, dup := productsByID[item.ProductID]; dup {
			return nil, domain.ErrInvalidInput
		}
		product, err := uc.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.Active {
			return nil, domain.ErrNotFound
		}
		productsByID[item.ProductID] = product
		// Precio cero significa "usar el precio de catálogo"; una línea
		// gratuita se expresa con discount_amount, no con precio 0.
		if item.UnitPrice.IsZero() {
			in.Items[i].UnitPrice = product.Price
		}
	}

	if in.CustomerID != "" {
		customer, err := uc.customerRepo.GetByID(in.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, domain.ErrNotFound
		}
	}

	now := time.Now()
	saleID := uuid.New().String()
	result := &dto.SaleResult{
		SaleID: saleID,
		Items:  make([]dto.SaleItemResult, 0, len(in.Items)),
	}

	err := uc.txRunner.RunSale(ctx, func(
		saleRepo repository.SaleRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		// Cabecera primero: su ID referencia cada movimiento de las líneas.
		header := &entity.Sale{
			ID:            saleID,
			CustomerID:    in.CustomerID,
			Status:        entity.SaleStatusPending,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: entity.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := saleRepo.Create(header); err != nil {
			return err
		}

		total := decimal.Zero
		fulfilled := 0
		for _, item := range in.Items {
			res, err := uc.stockSvc.ReduceInTx(
				movRepo, productRepo,
				item.ProductID, item.Quantity,
				saleID, // referencia de idempotencia
				fmt.Sprintf("venta %s", saleID),
				now,
			)
			if err != nil {
				// Fatal (invariante, almacenamiento): rollback de toda la venta.
				return err
			}
			if res.Status == stock.StatusInsufficient {
				result.HasStockErrors = true
				result.Items = append(result.Items, dto.SaleItemResult{
					ProductID:    item.ProductID,
					Success:      false,
					CurrentStock: res.Available,
					Requested:    res.Requested,
				})
				continue
			}
			line := &entity.SaleItem{
				ID:        uuid.New().String(),
				SaleID:    saleID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			}
			line.ComputeTotal()
			if err := saleRepo.CreateItem(line); err != nil {
				return err
			}
			total = total.Add(line.TotalPrice)
			fulfilled++
			result.Items = append(result.Items, dto.SaleItemResult{
				ProductID:       item.ProductID,
				Success:         true,
				MovementID:      res.MovementID,
				PreviousStock:   res.PreviousStock,
				NewStock:        res.NewStock,
				QuantityReduced: res.Quantity,
			})
		}

		// Totales sobre las líneas despachadas; el descuento se acota al total.
		discount := in.DiscountAmount
		if discount.GreaterThan(total) {
			discount = total
		}
		header.TotalAmount = total
		header.DiscountAmount = discount
		header.FinalAmount = total.Sub(discount)

		if fulfilled > 0 {
			header.Status = entity.SaleStatusCompleted
			header.PaymentStatus = entity.PaymentStatusPaid
		} else {
			// Carrito completo sin stock: la venta queda cancelada, sin efectos.
			header.Status = entity.SaleStatusCancelled
		}
		header.UpdatedAt = now
		if err := saleRepo.UpdateTotals(header); err != nil {
			return err
		}

		result.Status = header.Status
		result.TotalAmount = header.TotalAmount
		result.DiscountAmount = header.DiscountAmount
		result.FinalAmount = header.FinalAmount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSale obtiene una venta con sus líneas.
func (uc *ProcessSaleUseCase) GetSale(ctx context.Context, id string) (*dto.SaleResponse, error) {
	sale, err := uc.saleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.saleRepo.GetItems(id)
	if err != nil {
		return nil, err
	}
	resp := &dto.SaleResponse{
		ID:             sale.ID,
		CustomerID:     sale.CustomerID,
		Status:         sale.Status,
		PaymentMethod:  sale.PaymentMethod,
		PaymentStatus:  sale.PaymentStatus,
		TotalAmount:    sale.TotalAmount,
		DiscountAmount: sale.DiscountAmount,
		FinalAmount:    sale.FinalAmount,
		CreatedAt:      sale.CreatedAt.Format(time.RFC3339),
		Items:          make([]dto.SaleItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return resp, nil
}
