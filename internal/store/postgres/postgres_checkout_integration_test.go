package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/store"
)

func TestCheckoutShortLineRollsBackEverything(t *testing.T) {
	databaseURL := os.Getenv("KASUMKM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KASUMKM_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	full, err := s.CreateProduct(ctx, domain.Product{
		Name: "Produk IT Penuh", Price: 10000, Category: "Makanan", Stock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	short, err := s.CreateProduct(ctx, domain.Product{
		Name: "Produk IT Kosong", Price: 8000, Category: "Makanan", Stock: 1,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id IN ($1, $2)`, full.ID, short.ID)
	})

	now := time.Now().UTC()
	_, err = s.CreateCheckout(ctx, domain.Transaction{
		Type:       domain.TxTypeIncome,
		Category:   domain.DefaultSalesCategory,
		Amount:     50000,
		Date:       now.Format(domain.DisplayDateLayout),
		OccurredAt: now,
		Status:     domain.TxStatusCompleted,
	}, []domain.CartItem{
		{ProductID: full.ID, Quantity: 3},
		{ProductID: short.ID, Quantity: 5},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, err := s.GetProduct(ctx, full.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", after.Stock)
	}
}
