package store

import (
	"context"
	"errors"

	"kasumkm/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateName     = errors.New("duplicate name")
)

// Repository is the persistence contract shared by the postgres and
// in-memory stores. CreateCheckout is the one multi-statement operation:
// the transaction insert and every stock decrement commit as a single
// atomic unit or not at all.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	CreateCheckout(ctx context.Context, tx domain.Transaction, lines []domain.CartItem) (*domain.Transaction, error)
	ResetTransactions(ctx context.Context) (int64, error)

	GetSettings(ctx context.Context) (domain.Settings, error)
	UpsertSettings(ctx context.Context, settings domain.Settings) error

	GetStats(ctx context.Context) (domain.Stats, error)
	GetMonthlyReport(ctx context.Context, months int) ([]domain.MonthlyReportRow, error)
	GetCategoryBreakdown(ctx context.Context) ([]domain.CategoryReportRow, error)
}
