// Package memory implementa los puertos de persistencia sobre estructuras en
// memoria. Lo usan los tests de casos de uso y handlers, y sirve de fallback
// de desarrollo sin PostgreSQL. Las transacciones se emulan con un mutex
// global más snapshot/restore del estado: el mutex garantiza la misma
// serialización por producto que el SELECT FOR UPDATE (de grano más grueso) y
// el snapshot da rollback real ante errores.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/application/dto"
	"github.com/puntoventa/pos-backoffice/internal/domain"
	"github.com/puntoventa/pos-backoffice/internal/domain/entity"
	"github.com/puntoventa/pos-backoffice/internal/domain/repository"
)

type state struct {
	products  map[string]entity.Product
	movements []entity.StockMovement
	sales     map[string]entity.Sale
	saleItems map[string][]entity.SaleItem
	customers map[string]entity.Customer
	report    *dto.ReconciliationReport
}

func newState() state {
	return state{
		products:  make(map[string]entity.Product),
		sales:     make(map[string]entity.Sale),
		saleItems: make(map[string][]entity.SaleItem),
		customers: make(map[string]entity.Customer),
	}
}

func (s *state) clone() state {
	c := state{
		products:  make(map[string]entity.Product, len(s.products)),
		movements: append([]entity.StockMovement(nil), s.movements...),
		sales:     make(map[string]entity.Sale, len(s.sales)),
		saleItems: make(map[string][]entity.SaleItem, len(s.saleItems)),
		customers: s.customers, // solo lectura, no necesita copia
		report:    s.report,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.saleItems {
		c.saleItems[k] = append([]entity.SaleItem(nil), v...)
	}
	return c
}

// Store contenedor con todos los repositorios y el TxRunner en memoria.
// Sus métodos públicos (vista "pool") toman el mutex; Run/RunSale entregan
// vistas atadas a la transacción que operan sin re-tomarlo.
type Store struct {
	mu sync.Mutex
	st state
}

// New construye un Store vacío.
func New() *Store {
	return &Store{st: newState()}
}

// SeedProduct inserta o reemplaza un producto (para tests y datos de arranque).
func (s *Store) SeedProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// SeedCustomer inserta o reemplaza un cliente.
func (s *Store) SeedCustomer(c entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.customers[c.ID] = c
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

// Run emula una transacción: mutex global + snapshot para rollback.
func (s *Store) Run(_ context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txMovementRepo{&s.st}, &txProductRepo{&s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// RunSale transacción con repos de ventas e inventario.
func (s *Store) RunSale(_ context.Context, fn func(
	saleRepo repository.SaleRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txSaleRepo{&s.st}, &txMovementRepo{&s.st}, &txProductRepo{&s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ── Vistas atadas a la transacción (sin locking propio) ──────────────────────

type txProductRepo struct{ st *state }

func (r *txProductRepo) Create(p *entity.Product) error     { return r.st.createProduct(p) }
func (r *txProductRepo) GetByID(id string) (*entity.Product, error) { return r.st.getProduct(id), nil }
func (r *txProductRepo) GetBySKU(sku string) (*entity.Product, error) {
	return r.st.getProductBySKU(sku), nil
}
func (r *txProductRepo) GetForUpdate(id string) (*entity.Product, error) {
	// El "lock de fila" es el mutex global que ya sostiene Run.
	return r.st.getProduct(id), nil
}
func (r *txProductRepo) UpdateStock(id string, quantity int) error {
	return r.st.updateStock(id, quantity)
}
func (r *txProductRepo) Update(p *entity.Product) error { return r.st.updateProduct(p) }
func (r *txProductRepo) List(onlyActive bool, limit, offset int) ([]*entity.Product, error) {
	return r.st.listProducts(onlyActive, limit, offset), nil
}
func (r *txProductRepo) ListBelowMinStock() ([]*entity.Product, error) {
	return r.st.listBelowMinStock(), nil
}

type txMovementRepo struct{ st *state }

func (r *txMovementRepo) Create(m *entity.StockMovement) error { return r.st.createMovement(m) }
func (r *txMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	return r.st.getMovement(id), nil
}
func (r *txMovementRepo) GetByReference(productID, referenceID, movementType string) (*entity.StockMovement, error) {
	return r.st.getMovementByReference(productID, referenceID, movementType), nil
}
func (r *txMovementRepo) ListByReference(referenceID string) ([]*entity.StockMovement, error) {
	return r.st.listMovementsByReference(referenceID), nil
}
func (r *txMovementRepo) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.st.listMovementsByProduct(productID, from, to, limit, offset), nil
}

type txSaleRepo struct{ st *state }

func (r *txSaleRepo) Create(sale *entity.Sale) error         { return r.st.createSale(sale) }
func (r *txSaleRepo) CreateItem(item *entity.SaleItem) error { return r.st.createSaleItem(item) }
func (r *txSaleRepo) GetByID(id string) (*entity.Sale, error) {
	return r.st.getSale(id), nil
}
func (r *txSaleRepo) GetItems(saleID string) ([]*entity.SaleItem, error) {
	return r.st.getSaleItems(saleID), nil
}
func (r *txSaleRepo) UpdateTotals(sale *entity.Sale) error { return r.st.updateSaleTotals(sale) }
func (r *txSaleRepo) UpdateStatus(id, status, paymentStatus string) error {
	return r.st.updateSaleStatus(id, status, paymentStatus)
}

// ── Vista "pool" (fuera de transacción): Store implementa los puertos ────────

var (
	_ repository.ProductRepository        = (*Store)(nil)
	_ repository.ReconciliationRepository = (*Store)(nil)
	_ repository.StockMovementRepository  = (*poolMovementRepo)(nil)
	_ repository.SaleRepository           = (*poolSaleRepo)(nil)
	_ repository.CustomerRepository       = (*poolCustomerRepo)(nil)
)

func (s *Store) Create(p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createProduct(p)
}

func (s *Store) GetByID(id string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getProduct(id), nil
}

func (s *Store) GetBySKU(sku string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getProductBySKU(sku), nil
}

func (s *Store) GetForUpdate(id string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getProduct(id), nil
}

func (s *Store) UpdateStock(id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updateStock(id, quantity)
}

func (s *Store) Update(p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updateProduct(p)
}

func (s *Store) List(onlyActive bool, limit, offset int) ([]*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listProducts(onlyActive, limit, offset), nil
}

func (s *Store) ListBelowMinStock() ([]*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listBelowMinStock(), nil
}

// MovementRepo devuelve la vista de movimientos del Store (los nombres de
// método colisionarían con los de productos en el propio Store).
func (s *Store) MovementRepo() repository.StockMovementRepository { return &poolMovementRepo{s} }

// SaleRepo devuelve la vista de ventas del Store.
func (s *Store) SaleRepo() repository.SaleRepository { return &poolSaleRepo{s} }

// CustomerRepo devuelve la vista de clientes del Store.
func (s *Store) CustomerRepo() repository.CustomerRepository { return &poolCustomerRepo{s} }

type poolMovementRepo struct{ s *Store }

func (r *poolMovementRepo) Create(m *entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.createMovement(m)
}
func (r *poolMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.getMovement(id), nil
}
func (r *poolMovementRepo) GetByReference(productID, referenceID, movementType string) (*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.getMovementByReference(productID, referenceID, movementType), nil
}
func (r *poolMovementRepo) ListByReference(referenceID string) ([]*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.listMovementsByReference(referenceID), nil
}
func (r *poolMovementRepo) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.listMovementsByProduct(productID, from, to, limit, offset), nil
}

type poolSaleRepo struct{ s *Store }

func (r *poolSaleRepo) Create(sale *entity.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.createSale(sale)
}
func (r *poolSaleRepo) CreateItem(item *entity.SaleItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.createSaleItem(item)
}
func (r *poolSaleRepo) GetByID(id string) (*entity.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.getSale(id), nil
}
func (r *poolSaleRepo) GetItems(saleID string) ([]*entity.SaleItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.getSaleItems(saleID), nil
}
func (r *poolSaleRepo) UpdateTotals(sale *entity.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.updateSaleTotals(sale)
}
func (r *poolSaleRepo) UpdateStatus(id, status, paymentStatus string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.updateSaleStatus(id, status, paymentStatus)
}

type poolCustomerRepo struct{ s *Store }

func (r *poolCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.st.customers[id]; ok {
		cc := c
		return &cc, nil
	}
	return nil, nil
}

// Interfaces de Store con nombres en conflicto (Customer GetByID vs Product
// GetByID): el puerto de clientes se obtiene vía CustomerRepo().

// ── ReconciliationRepository ─────────────────────────────────────────────────

// GetProductLedgerTotals replica la agregación del adaptador PostgreSQL:
// vendido (ventas no canceladas), egresado por ventas neto de reversas y
// corregido por conciliaciones previas, todo dentro de la ventana.
func (s *Store) GetProductLedgerTotals(_ context.Context, from, to time.Time) ([]repository.ProductLedgerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inWindow := func(t time.Time) bool { return !t.Before(from) && !t.After(to) }

	sold := make(map[string]int)
	for saleID, items := range s.st.saleItems {
		sale, ok := s.st.sales[saleID]
		if !ok || sale.Status == entity.SaleStatusCancelled || !inWindow(sale.CreatedAt) {
			continue
		}
		for _, it := range items {
			sold[it.ProductID] += it.Quantity
		}
	}

	byID := make(map[string]entity.StockMovement, len(s.st.movements))
	for _, m := range s.st.movements {
		byID[m.ID] = m
	}

	// Una salida cuenta como egreso atribuido a ventas solo si su referencia
	// no es de un flujo administrativo (manual, reversa o conciliación).
	isSaleEgress := func(m entity.StockMovement) bool {
		return m.Type == entity.MovementTypeSaida &&
			!strings.HasPrefix(m.ReferenceID, "manual:") &&
			!strings.HasPrefix(m.ReferenceID, "reversa:") &&
			!strings.HasPrefix(m.ReferenceID, "reconciliacion:")
	}

	moved := make(map[string]int)
	corrected := make(map[string]int)
	for _, m := range s.st.movements {
		if !inWindow(m.CreatedAt) {
			continue
		}
		switch m.Type {
		case entity.MovementTypeSaida:
			if !isSaleEgress(m) {
				continue
			}
			moved[m.ProductID] += m.Quantity
		case entity.MovementTypeEntrada:
			// Netea la reversa solo si la salida original contaba en moved;
			// revertir un egreso manual no descuenta salidas de ventas.
			if origID, ok := strings.CutPrefix(m.ReferenceID, "reversa:"); ok {
				if orig, found := byID[origID]; found && isSaleEgress(orig) {
					moved[orig.ProductID] -= m.Quantity
				}
			}
		case entity.MovementTypeAjuste:
			if strings.HasPrefix(m.ReferenceID, "reconciliacion:") && m.NewStock > m.PreviousStock {
				corrected[m.ProductID] += m.NewStock - m.PreviousStock
			}
		}
	}

	seen := make(map[string]bool)
	var totals []repository.ProductLedgerTotals
	appendTotals := func(productID string) {
		if seen[productID] {
			return
		}
		seen[productID] = true
		name := productID
		if p, ok := s.st.products[productID]; ok {
			name = p.Name
		}
		totals = append(totals, repository.ProductLedgerTotals{
			ProductID:   productID,
			ProductName: name,
			Sold:        sold[productID],
			MovedOut:    moved[productID],
			Corrected:   corrected[productID],
		})
	}
	for id := range sold {
		appendTotals(id)
	}
	for id := range moved {
		appendTotals(id)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].ProductName < totals[j].ProductName })
	return totals, nil
}

// ── ReportStore ──────────────────────────────────────────────────────────────

// SetLastReport guarda el último reporte de conciliación.
func (s *Store) SetLastReport(_ context.Context, report *dto.ReconciliationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.report = report
	return nil
}

// GetLastReport devuelve el último reporte, si existe.
func (s *Store) GetLastReport(_ context.Context) (*dto.ReconciliationReport, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.report == nil {
		return nil, false, nil
	}
	return s.st.report, true, nil
}

// ── Operaciones internas sobre el estado ─────────────────────────────────────

func (s *state) createProduct(p *entity.Product) error {
	if _, exists := s.products[p.ID]; exists {
		return domain.ErrDuplicate
	}
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	s.products[p.ID] = *p
	return nil
}

func (s *state) getProduct(id string) *entity.Product {
	if p, ok := s.products[id]; ok {
		pp := p
		return &pp
	}
	return nil
}

func (s *state) getProductBySKU(sku string) *entity.Product {
	for _, p := range s.products {
		if p.SKU == sku {
			pp := p
			return &pp
		}
	}
	return nil
}

func (s *state) updateStock(id string, quantity int) error {
	p, ok := s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

func (s *state) updateProduct(in *entity.Product) error {
	p, ok := s.products[in.ID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.MinStock = in.MinStock
	p.Active = in.Active
	p.UpdatedAt = time.Now()
	s.products[in.ID] = p
	return nil
}

func (s *state) listProducts(onlyActive bool, limit, offset int) []*entity.Product {
	var all []*entity.Product
	for _, p := range s.products {
		if onlyActive && !p.Active {
			continue
		}
		pp := p
		all = append(all, &pp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

func (s *state) listBelowMinStock() []*entity.Product {
	var all []*entity.Product
	for _, p := range s.products {
		if p.Active && p.StockQuantity <= p.MinStock {
			pp := p
			all = append(all, &pp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StockQuantity-all[i].MinStock < all[j].StockQuantity-all[j].MinStock
	})
	return all
}

func (s *state) createMovement(m *entity.StockMovement) error {
	if m.ReferenceID != "" {
		if prior := s.getMovementByReference(m.ProductID, m.ReferenceID, m.Type); prior != nil {
			return domain.ErrDuplicate
		}
	}
	s.movements = append(s.movements, *m)
	return nil
}

func (s *state) getMovement(id string) *entity.StockMovement {
	for i := range s.movements {
		if s.movements[i].ID == id {
			m := s.movements[i]
			return &m
		}
	}
	return nil
}

func (s *state) getMovementByReference(productID, referenceID, movementType string) *entity.StockMovement {
	for i := range s.movements {
		m := s.movements[i]
		if m.ProductID == productID && m.ReferenceID == referenceID && m.Type == movementType {
			return &m
		}
	}
	return nil
}

func (s *state) listMovementsByReference(referenceID string) []*entity.StockMovement {
	var list []*entity.StockMovement
	for i := range s.movements {
		if s.movements[i].ReferenceID == referenceID {
			m := s.movements[i]
			list = append(list, &m)
		}
	}
	return list
}

func (s *state) listMovementsByProduct(productID string, from, to *time.Time, limit, offset int) []*entity.StockMovement {
	var list []*entity.StockMovement
	for i := range s.movements {
		m := s.movements[i]
		if m.ProductID != productID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		mm := m
		list = append(list, &mm)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func (s *state) createSale(sale *entity.Sale) error {
	if _, exists := s.sales[sale.ID]; exists {
		return domain.ErrDuplicate
	}
	s.sales[sale.ID] = *sale
	return nil
}

func (s *state) createSaleItem(item *entity.SaleItem) error {
	s.saleItems[item.SaleID] = append(s.saleItems[item.SaleID], *item)
	return nil
}

func (s *state) getSale(id string) *entity.Sale {
	if sale, ok := s.sales[id]; ok {
		ss := sale
		return &ss
	}
	return nil
}

func (s *state) getSaleItems(saleID string) []*entity.SaleItem {
	items := s.saleItems[saleID]
	out := make([]*entity.SaleItem, 0, len(items))
	for i := range items {
		it := items[i]
		out = append(out, &it)
	}
	return out
}

func (s *state) updateSaleTotals(in *entity.Sale) error {
	sale, ok := s.sales[in.ID]
	if !ok {
		return domain.ErrNotFound
	}
	sale.TotalAmount = in.TotalAmount
	sale.DiscountAmount = in.DiscountAmount
	sale.FinalAmount = in.FinalAmount
	sale.Status = in.Status
	sale.PaymentStatus = in.PaymentStatus
	sale.UpdatedAt = time.Now()
	s.sales[in.ID] = sale
	return nil
}

func (s *state) updateSaleStatus(id, status, paymentStatus string) error {
	sale, ok := s.sales[id]
	if !ok {
		return domain.ErrNotFound
	}
	sale.Status = status
	sale.PaymentStatus = paymentStatus
	sale.UpdatedAt = time.Now()
	s.sales[id] = sale
	return nil
}
