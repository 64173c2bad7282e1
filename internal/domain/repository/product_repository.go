package repository

import "github.com/puntoventa/pos-backoffice/internal/domain/entity"

// ProductRepository define el puerto de persistencia para Product.
// UpdateStock es el único camino de escritura del contador stock_quantity y
// solo debe llamarse desde la unidad de control de stock, con la fila
// bloqueada (GetForUpdate) dentro de la misma transacción.
type ProductRepository interface {
	Create(product *entity.Product) error
	GetByID(id string) (*entity.Product, error)
	GetBySKU(sku string) (*entity.Product, error)
	List(onlyActive bool, limit, offset int) ([]*entity.Product, error)
	ListBelowMinStock() ([]*entity.Product, error)
	// Update edición administrativa (nombre, precio, umbral). No toca stock_quantity.
	Update(product *entity.Product) error
	// GetForUpdate obtiene el producto y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(id string) (*entity.Product, error)
	UpdateStock(id string, quantity int) error
}
