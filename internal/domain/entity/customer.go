package entity

import "time"

// Customer cliente opcional de una venta. El CRUD de clientes vive en otro
// subsistema; aquí solo se necesita para validar la referencia.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}
