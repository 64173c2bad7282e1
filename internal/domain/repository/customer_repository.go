package repository

import "github.com/puntoventa/pos-backoffice/internal/domain/entity"

// CustomerRepository puerto mínimo: el coordinador solo valida la referencia
// opcional de cliente; el CRUD completo pertenece a otro subsistema.
type CustomerRepository interface {
	GetByID(id string) (*entity.Customer, error)
}
