// Package product implementa el CRUD administrativo del catálogo.
// Ninguna operación de este paquete escribe stock_quantity directamente: el
// stock inicial de un alta entra como movimiento de entrada por la unidad de
// control de stock, y la edición administrativa nunca toca el contador.
package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

// lowStockTTL vida del listado de reposición en caché.
const lowStockTTL = time.Minute

// ListCache caché opcional del listado de reposición (lo implementa Redis o
// una variante noop).
type ListCache interface {
	GetLowStock(ctx context.Context) ([]dto.ProductResponse, bool, error)
	SetLowStock(ctx context.Context, products []dto.ProductResponse, ttl time.Duration) error
}

// ProductUseCase casos de uso del catálogo.
type ProductUseCase struct {
	repo    repository.ProductRepository
	stockUC *stock.StockUseCase
	cache   ListCache
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, stockUC *stock.StockUseCase, cache ListCache) *ProductUseCase {
	return &ProductUseCase{repo: repo, stockUC: stockUC, cache: cache}
}

// Create da de alta un producto. El stock arranca en cero y el stock inicial,
// si viene, se registra como entrada para que el libro quede consistente desde
// la primera fila.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" || in.Price.IsNegative() || in.MinStock < 0 || in.InitialStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetBySKU(in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	p := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		MinStock:    in.MinStock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(p); err != nil {
		return nil, err
	}

	if in.InitialStock > 0 {
		result, err := uc.stockUC.Restock(ctx, stock.RestockInput{
			ProductID:   p.ID,
			Quantity:    in.InitialStock,
			ReferenceID: stock.RefPrefixManual + uuid.New().String(),
			Notes:       "stock inicial",
		})
		if err != nil {
			return nil, err
		}
		p.StockQuantity = result.NewStock
	}
	resp := toResponse(p)
	return &resp, nil
}

// GetByID devuelve un producto del catálogo.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	p, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(p)
	return &resp, nil
}

// List lista el catálogo con paginación.
func (uc *ProductUseCase) List(ctx context.Context, onlyActive bool, page dto.PageRequest) ([]dto.ProductResponse, error) {
	page.DefaultPage()
	products, err := uc.repo.List(onlyActive, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toResponse(p))
	}
	return out, nil
}

// Update edición administrativa: nombre, precio, umbral, activo. El contador
// de stock queda explícitamente fuera.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Price.IsNegative() || in.MinStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	p, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.MinStock = in.MinStock
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := uc.repo.Update(p); err != nil {
		return nil, err
	}
	resp := toResponse(p)
	return &resp, nil
}

// LowStock lista los productos activos en o por debajo de su umbral de
// reposición, con caché corta para el tablero del operador.
func (uc *ProductUseCase) LowStock(ctx context.Context) ([]dto.ProductResponse, error) {
	if uc.cache != nil {
		if cached, ok, err := uc.cache.GetLowStock(ctx); err == nil && ok {
			return cached, nil
		}
	}
	products, err := uc.repo.ListBelowMinStock()
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toResponse(p))
	}
	if uc.cache != nil {
		// Mejor esfuerzo: un fallo del caché no debe romper el listado.
		_ = uc.cache.SetLowStock(ctx, out, lowStockTTL)
	}
	return out, nil
}

func toResponse(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		MinStock:      p.MinStock,
		Active:        p.Active,
	}
}
