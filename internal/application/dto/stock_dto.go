package dto

// ManualMovementRequest body para POST /api/stock/movements.
// Para entrada/saida Quantity es la magnitud; para ajuste, el objetivo absoluto.
type ManualMovementRequest struct {
	ProductID    string `json:"product_id"`
	MovementType string `json:"movement_type"` // entrada, saida, ajuste
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes,omitempty"`
}

// MovementResponse fila del libro para listados de consulta.
type MovementResponse struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	Type          string `json:"type"`
	Quantity      int    `json:"quantity"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
	ReferenceID   string `json:"reference_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}
