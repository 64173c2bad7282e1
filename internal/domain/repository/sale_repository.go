package repository

import "github.com/puntoventa/pos-backoffice/internal/domain/entity"

// SaleRepository define el puerto de persistencia para ventas y sus líneas.
// Las líneas solo se insertan; la cabecera solo cambia totales y estado
// (transiciones documentadas en entity.Sale).
type SaleRepository interface {
	Create(sale *entity.Sale) error
	CreateItem(item *entity.SaleItem) error
	GetByID(id string) (*entity.Sale, error)
	GetItems(saleID string) ([]*entity.SaleItem, error)
	// UpdateTotals fija totales calculados al cierre de la transacción de venta.
	UpdateTotals(sale *entity.Sale) error
	UpdateStatus(id, status, paymentStatus string) error
}
