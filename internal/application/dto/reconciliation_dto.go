package dto

import "time"

// ReconciliationFinding hallazgo por producto: unidades egresadas de más y la
// corrección aplicada. Error lleva el motivo cuando la corrección falló (el
// auditor registra y sigue con el siguiente producto).
type ReconciliationFinding struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Sold           int    `json:"sold"`
	MovedOut       int    `json:"moved_out"`
	Corrected      int    `json:"previously_corrected"`
	Excess         int    `json:"excess"`
	PreviousStock  int    `json:"previous_stock"`
	CorrectedStock int    `json:"corrected_stock"`
	MovementID     string `json:"movement_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ReconciliationReport reporte de una corrida del auditor, para revisión del
// operador (JSON serializable).
type ReconciliationReport struct {
	RunAt            time.Time               `json:"run_at"`
	WindowFrom       time.Time               `json:"window_from"`
	WindowTo         time.Time               `json:"window_to"`
	ProductsAudited  int                     `json:"products_audited"`
	ProductsFlagged  int                     `json:"products_flagged"`
	UnitsRestored    int                     `json:"units_restored"`
	Findings         []ReconciliationFinding `json:"findings"`
}
