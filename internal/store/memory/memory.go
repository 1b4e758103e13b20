package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/store"
)

// Store is a mutex-guarded in-memory Repository. It backs the dev mode
// (no DATABASE_URL) and the test suites. The single write lock gives
// checkout the same all-or-nothing and no-lost-update behavior the
// postgres store gets from its database transaction.
type Store struct {
	mu sync.RWMutex

	products   map[int64]domain.Product
	categories map[int64]domain.Category
	ledger     []domain.Transaction
	settings   *domain.Settings

	nextProductID     int64
	nextCategoryID    int64
	nextTransactionID int64
}

func New() *Store {
	return &Store{
		products:          make(map[int64]domain.Product),
		categories:        make(map[int64]domain.Category),
		ledger:            make([]domain.Transaction, 0, 64),
		nextProductID:     1,
		nextCategoryID:    1,
		nextTransactionID: 1,
	}
}

// NewSeeded returns a store preloaded with a small demo catalog for local
// development.
func NewSeeded() *Store {
	s := New()

	seedProducts := []domain.Product{
		{Name: "Kopi Susu Gula Aren", Price: 18000, Category: "Minuman", Stock: 50, Status: domain.ProductStatusAvailable},
		{Name: "Es Teh Manis", Price: 8000, Category: "Minuman", Stock: 80, Status: domain.ProductStatusAvailable},
		{Name: "Nasi Goreng Spesial", Price: 25000, Category: "Makanan", Stock: 30, Status: domain.ProductStatusAvailable},
		{Name: "Mie Goreng", Price: 20000, Category: "Makanan", Stock: 30, Status: domain.ProductStatusAvailable},
		{Name: "Keripik Singkong", Price: 12000, Category: "Camilan", Stock: 40, Status: domain.ProductStatusAvailable},
		{Name: "Roti Bakar Coklat", Price: 15000, Category: "Camilan", Stock: 25, Status: domain.ProductStatusAvailable},
	}
	for _, p := range seedProducts {
		p.ID = s.nextProductID
		s.nextProductID++
		s.products[p.ID] = p
	}

	for _, name := range []string{"Minuman", "Makanan", "Camilan", "Operasional"} {
		c := domain.Category{ID: s.nextCategoryID, Name: name}
		s.nextCategoryID++
		s.categories[c.ID] = c
	}

	return s
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Status == "" {
		product.Status = domain.ProductStatusAvailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextProductID
	s.nextProductID++
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID < 1 || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.products, id)
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Name == name {
			return nil, store.ErrDuplicateName
		}
	}

	c := domain.Category{ID: s.nextCategoryID, Name: name}
	s.nextCategoryID++
	s.categories[c.ID] = c

	created := c
	return &created, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.categories, id)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]domain.Transaction, len(s.ledger))
	copy(transactions, s.ledger)
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].ID > transactions[j].ID })
	return transactions, nil
}

func (s *Store) CreateCheckout(ctx context.Context, tx domain.Transaction, lines []domain.CartItem) (*domain.Transaction, error) {
	if tx.Type != domain.TxTypeIncome && tx.Type != domain.TxTypeExpense {
		return nil, store.ErrInvalidInput
	}
	if tx.Amount < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every line before touching any state so a failing line
	// leaves the ledger and all stocks untouched.
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		product, ok := s.products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, store.ErrNotFound)
		}
		if product.Stock < line.Quantity {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, store.ErrInsufficientStock)
		}
	}

	for _, line := range lines {
		product := s.products[line.ProductID]
		product.Stock -= line.Quantity
		s.products[line.ProductID] = product
	}

	tx.ID = s.nextTransactionID
	s.nextTransactionID++
	s.ledger = append(s.ledger, tx)

	created := tx
	return &created, nil
}

func (s *Store) ResetTransactions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := int64(len(s.ledger))
	s.ledger = s.ledger[:0]
	return purged, nil
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.ID = 1
	s.settings = &settings
	return nil
}

func (s *Store) GetStats(ctx context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.Stats
	for _, tx := range s.ledger {
		switch tx.Type {
		case domain.TxTypeIncome:
			stats.Income += tx.Amount
		case domain.TxTypeExpense:
			stats.Expense += tx.Amount
		}
		stats.TransactionCount++
	}
	stats.Balance = stats.Income - stats.Expense
	return stats, nil
}

func (s *Store) GetMonthlyReport(ctx context.Context, months int) ([]domain.MonthlyReportRow, error) {
	if months < 1 {
		months = 6
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byMonth := make(map[string]*domain.MonthlyReportRow)
	for _, tx := range s.ledger {
		month := tx.OccurredAt.UTC().Format("2006-01")
		row, ok := byMonth[month]
		if !ok {
			row = &domain.MonthlyReportRow{Month: month}
			byMonth[month] = row
		}
		switch tx.Type {
		case domain.TxTypeIncome:
			row.Income += tx.Amount
		case domain.TxTypeExpense:
			row.Expense += tx.Amount
		}
	}

	report := make([]domain.MonthlyReportRow, 0, len(byMonth))
	for _, row := range byMonth {
		report = append(report, *row)
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Month < report[j].Month })
	if len(report) > months {
		report = report[len(report)-months:]
	}
	return report, nil
}

func (s *Store) GetCategoryBreakdown(ctx context.Context) ([]domain.CategoryReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[string]int64)
	for _, tx := range s.ledger {
		if tx.Type != domain.TxTypeIncome {
			continue
		}
		byCategory[tx.Category] += tx.Amount
	}

	breakdown := make([]domain.CategoryReportRow, 0, len(byCategory))
	for name, value := range byCategory {
		breakdown = append(breakdown, domain.CategoryReportRow{Name: name, Value: value})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Value != breakdown[j].Value {
			return breakdown[i].Value > breakdown[j].Value
		}
		return breakdown[i].Name < breakdown[j].Name
	})
	return breakdown, nil
}
