package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

var _ repository.ReconciliationRepository = (*ReconciliationRepo)(nil)

// ReconciliationRepo consultas de solo lectura para el auditor.
type ReconciliationRepo struct {
	pool *pgxpool.Pool
}

// NewReconciliationRepository construye el adaptador del auditor.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepo {
	return &ReconciliationRepo{pool: pool}
}

// GetProductLedgerTotals agrega por producto, sobre la ventana:
//   - sold: líneas de ventas no canceladas.
//   - moved_out: salidas del libro atribuidas a ventas (se excluyen egresos
//     manuales y reversas, que no corresponden a unidades vendidas), netas de
//     las reversas por anulación (la entrada reversa:<mov> descuenta la salida
//     original para no confundir una anulación con el bug de duplicación).
//   - corrected: ajustes positivos de conciliaciones previas, para que una
//     segunda corrida sin ventas nuevas no corrija dos veces.
func (r *ReconciliationRepo) GetProductLedgerTotals(ctx context.Context, from, to time.Time) ([]repository.ProductLedgerTotals, error) {
	const query = `
	WITH sold AS (
	    SELECT si.product_id, SUM(si.quantity) AS units
	    FROM sale_items si
	    JOIN sales s ON s.id = si.sale_id
	    WHERE s.status <> 'cancelled'
	      AND s.created_at BETWEEN $1 AND $2
	    GROUP BY si.product_id
	),
	moved AS (
	    SELECT m.product_id, SUM(m.quantity) AS units
	    FROM stock_movements m
	    WHERE m.movement_type = 'saida'
	      AND m.created_at BETWEEN $1 AND $2
	      AND (m.reference_id IS NULL OR (
	           m.reference_id NOT LIKE 'manual:%'
	       AND m.reference_id NOT LIKE 'reversa:%'
	       AND m.reference_id NOT LIKE 'reconciliacion:%'))
	    GROUP BY m.product_id
	),
	reverted AS (
	    -- Solo netea reversas cuya salida original cuenta en moved: revertir
	    -- un egreso manual no debe descontar salidas atribuidas a ventas.
	    SELECT o.product_id, SUM(e.quantity) AS units
	    FROM stock_movements e
	    JOIN stock_movements o ON e.reference_id = 'reversa:' || o.id
	    WHERE e.movement_type = 'entrada'
	      AND o.movement_type = 'saida'
	      AND (o.reference_id IS NULL OR (
	           o.reference_id NOT LIKE 'manual:%'
	       AND o.reference_id NOT LIKE 'reversa:%'
	       AND o.reference_id NOT LIKE 'reconciliacion:%'))
	      AND e.created_at BETWEEN $1 AND $2
	    GROUP BY o.product_id
	),
	corrected AS (
	    SELECT m.product_id, SUM(m.new_stock - m.previous_stock) AS units
	    FROM stock_movements m
	    WHERE m.movement_type = 'ajuste'
	      AND m.reference_id LIKE 'reconciliacion:%'
	      AND m.new_stock > m.previous_stock
	      AND m.created_at BETWEEN $1 AND $2
	    GROUP BY m.product_id
	)
	SELECT
	    p.id,
	    p.name,
	    COALESCE(sold.units, 0)                                    AS sold,
	    COALESCE(moved.units, 0) - COALESCE(reverted.units, 0)     AS moved_out,
	    COALESCE(corrected.units, 0)                               AS corrected
	FROM products p
	LEFT JOIN sold      ON sold.product_id      = p.id
	LEFT JOIN moved     ON moved.product_id     = p.id
	LEFT JOIN reverted  ON reverted.product_id  = p.id
	LEFT JOIN corrected ON corrected.product_id = p.id
	WHERE sold.product_id IS NOT NULL OR moved.product_id IS NOT NULL
	ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("reconciliation.GetProductLedgerTotals: %w", err)
	}
	defer rows.Close()

	var results []repository.ProductLedgerTotals
	for rows.Next() {
		var t repository.ProductLedgerTotals
		if err := rows.Scan(&t.ProductID, &t.ProductName, &t.Sold, &t.MovedOut, &t.Corrected); err != nil {
			return nil, fmt.Errorf("scan ledger totals: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}
