package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/store"
	"kasumkm/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	svc := New(repo, nil, 0, zerolog.Nop())
	return svc, repo
}

func TestRecordTransactionAppliesDefaults(t *testing.T) {
	svc, _ := newTestService()

	tx, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Amount: 18000,
	})
	if err != nil {
		t.Fatalf("record transaction failed: %v", err)
	}
	if tx.Type != domain.TxTypeIncome {
		t.Fatalf("expected default type income, got %q", tx.Type)
	}
	if tx.Category != domain.DefaultSalesCategory {
		t.Fatalf("expected default category %q, got %q", domain.DefaultSalesCategory, tx.Category)
	}
	if tx.Status != domain.TxStatusCompleted {
		t.Fatalf("expected default status %q, got %q", domain.TxStatusCompleted, tx.Status)
	}
	if tx.Date == "" {
		t.Fatal("expected server-filled date string")
	}
	if tx.OccurredAt.IsZero() {
		t.Fatal("expected canonical timestamp to be set")
	}
}

func TestRecordTransactionRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Type:   "transfer",
		Amount: 1000,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestCheckoutDecrementsStockAndCollapsesLines(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	before, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type:   domain.TxTypeIncome,
		Amount: 54000,
		Items: []domain.CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	after, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != before.Stock-3 {
		t.Fatalf("expected stock %d, got %d", before.Stock-3, after.Stock)
	}
}

func TestCheckoutInsufficientStockLeavesStateUntouched(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	before, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type:   domain.TxTypeIncome,
		Amount: 999000,
		Items: []domain.CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 6, Quantity: 9999},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != before.Stock {
		t.Fatalf("expected no partial decrement, stock went %d -> %d", before.Stock, after.Stock)
	}

	ledger, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(ledger) != 0 {
		t.Fatalf("expected empty ledger after failed checkout, got %d entries", len(ledger))
	}
}

func TestCheckoutUnknownProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Type:   domain.TxTypeIncome,
		Amount: 5000,
		Items:  []domain.CartItem{{ProductID: 404, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestExpenseIgnoresCartItems(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	before, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type:     domain.TxTypeExpense,
		Category: "Operasional",
		Amount:   150000,
		Items:    []domain.CartItem{{ProductID: 1, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	after, err := repo.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != before.Stock {
		t.Fatalf("expense must not touch stock, went %d -> %d", before.Stock, after.Stock)
	}
}

func TestConcurrentCheckoutsNeverLoseDecrements(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := repo.CreateProduct(ctx, domain.Product{
		Name: "Air Mineral", Price: 5000, Category: "Minuman", Stock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
				Type:   domain.TxTypeIncome,
				Amount: 20000,
				Items:  []domain.CartItem{{ProductID: created.ID, Quantity: 4}},
			})
			if err != nil {
				t.Errorf("concurrent checkout failed: %v", err)
			}
		}()
	}
	wg.Wait()

	after, err := repo.GetProduct(ctx, created.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 2 {
		t.Fatalf("expected stock 2 after 10-4-4, got %d", after.Stock)
	}
}

func TestStatsAndReset(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type: domain.TxTypeIncome, Amount: 5000,
	}); err != nil {
		t.Fatalf("income failed: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type: domain.TxTypeExpense, Category: "Operasional", Amount: 2000,
	}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Income != 5000 || stats.Expense != 2000 || stats.Balance != 3000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TransactionCount != 2 {
		t.Fatalf("expected 2 transactions, got %d", stats.TransactionCount)
	}

	resp, err := svc.ResetTransactions(ctx)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !resp.Success || resp.Message != "All transaction history deleted." {
		t.Fatalf("unexpected reset response: %+v", resp)
	}

	stats, err = svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats after reset failed: %v", err)
	}
	if stats.TransactionCount != 0 || stats.Balance != 0 {
		t.Fatalf("expected zeroed stats after reset, got %+v", stats)
	}
}

func TestReportGroupsByCanonicalMonth(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entries := []domain.TransactionCreateRequest{
		{Type: domain.TxTypeIncome, Amount: 4500000, Date: "10/01/2026 09.00.00"},
		{Type: domain.TxTypeExpense, Category: "Operasional", Amount: 2100000, Date: "20/01/2026 14.30.00"},
		{Type: domain.TxTypeIncome, Amount: 5200000, Date: "05/02/2026 11.15.00"},
		{Type: domain.TxTypeExpense, Category: "Operasional", Amount: 2800000, Date: "18/02/2026 16.45.00"},
	}
	for _, entry := range entries {
		if _, err := svc.RecordTransaction(ctx, entry); err != nil {
			t.Fatalf("record %q failed: %v", entry.Date, err)
		}
	}

	report, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.ChartData) != 2 {
		t.Fatalf("expected 2 monthly rows, got %d: %+v", len(report.ChartData), report.ChartData)
	}

	jan, feb := report.ChartData[0], report.ChartData[1]
	if jan.Month != "2026-01" || jan.Income != 4500000 || jan.Expense != 2100000 {
		t.Fatalf("unexpected january row: %+v", jan)
	}
	if feb.Month != "2026-02" || feb.Income != 5200000 || feb.Expense != 2800000 {
		t.Fatalf("unexpected february row: %+v", feb)
	}
}

func TestReportCategoryBreakdownCountsIncomeOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entries := []domain.TransactionCreateRequest{
		{Type: domain.TxTypeIncome, Category: "Penjualan", Amount: 3000},
		{Type: domain.TxTypeIncome, Category: "Jasa", Amount: 5000},
		{Type: domain.TxTypeExpense, Category: "Operasional", Amount: 1000},
	}
	for _, entry := range entries {
		if _, err := svc.RecordTransaction(ctx, entry); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	report, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.CategoryData) != 2 {
		t.Fatalf("expected 2 categories, got %+v", report.CategoryData)
	}
	if report.CategoryData[0].Name != "Jasa" || report.CategoryData[0].Value != 5000 {
		t.Fatalf("expected Jasa first with 5000, got %+v", report.CategoryData[0])
	}
	if report.CategoryData[1].Name != "Penjualan" || report.CategoryData[1].Value != 3000 {
		t.Fatalf("expected Penjualan with 3000, got %+v", report.CategoryData[1])
	}
}

func TestEmptyLedgerYieldsEmptyReport(t *testing.T) {
	svc, _ := newTestService()

	report, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.ChartData) != 0 || len(report.CategoryData) != 0 {
		t.Fatalf("expected empty report for empty ledger, got %+v", report)
	}
}

func TestSettingsDefaultsAndUpsert(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settings.StoreName != "KasUMKM" || settings.Currency != "IDR" {
		t.Fatalf("unexpected default settings: %+v", settings)
	}

	settings.StoreName = "Warung Bu Sari"
	settings.ID = 99
	if err := svc.UpsertSettings(ctx, settings); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	saved, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if saved.ID != 1 {
		t.Fatalf("settings row must stay singleton id 1, got %d", saved.ID)
	}
	if saved.StoreName != "Warung Bu Sari" {
		t.Fatalf("expected updated store name, got %q", saved.StoreName)
	}
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateCategory(context.Background(), domain.CategoryCreateRequest{Name: "Minuman"})
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestDeleteCategoryIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.DeleteCategory(ctx, 2); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := svc.DeleteCategory(ctx, 2); err != nil {
		t.Fatalf("repeated delete must succeed, got %v", err)
	}
}

// failingCache always errors; reads and writes must degrade to the store.
type failingCache struct{}

func (failingCache) GetStats(ctx context.Context) (*domain.Stats, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) SetStats(ctx context.Context, stats *domain.Stats, ttl time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) GetReport(ctx context.Context) (*domain.Report, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Invalidate(ctx context.Context) error {
	return errors.New("cache down")
}

func TestStatsFallsBackWhenCacheFails(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, failingCache{}, time.Second, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type: domain.TxTypeIncome, Amount: 7000,
	}); err != nil {
		t.Fatalf("record failed despite failing cache: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats must fall back to the store, got %v", err)
	}
	if stats.Income != 7000 {
		t.Fatalf("expected income 7000, got %d", stats.Income)
	}
}

func TestCollapseLinesPreservesFirstSeenOrder(t *testing.T) {
	collapsed := collapseLines([]domain.CartItem{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	})
	if len(collapsed) != 2 {
		t.Fatalf("expected 2 collapsed lines, got %d", len(collapsed))
	}
	if collapsed[0].ProductID != 3 || collapsed[0].Quantity != 5 {
		t.Fatalf("unexpected first line: %+v", collapsed[0])
	}
	if collapsed[1].ProductID != 1 || collapsed[1].Quantity != 2 {
		t.Fatalf("unexpected second line: %+v", collapsed[1])
	}
}
