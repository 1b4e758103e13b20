package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kasumkm/backend/internal/cache"
	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/store"
)

// Service applies business rules (defaults, normalization, validation) on
// top of the Repository and keeps the report cache coherent with ledger
// writes.
type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration
	months   int
	logger   zerolog.Logger
	now      func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		reports:  reports,
		cacheTTL: cacheTTL,
		months:   6,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.ProductStatusAvailable
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Stock:    req.Stock,
		Status:   status,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, req domain.ProductUpdateRequest) (domain.Product, error) {
	if req.ID < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProduct(ctx, req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = *req.Price
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Stock = *req.Stock
	}
	if req.Status != nil {
		updated.Status = strings.TrimSpace(*req.Status)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if id < 1 {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

// DeleteCategory is idempotent. Products and transactions reference
// categories by name, so a delete never cascades.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if id < 1 {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// RecordTransaction performs the checkout operation: it fills in ledger
// defaults, collapses duplicate cart lines, and submits the insert plus the
// stock decrements to the store as one atomic batch. Cart lines are applied
// only for income transactions.
func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	txType := strings.TrimSpace(req.Type)
	if txType == "" {
		txType = domain.TxTypeIncome
	}
	if txType != domain.TxTypeIncome && txType != domain.TxTypeExpense {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	if req.Amount < 0 {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.DefaultSalesCategory
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.TxStatusCompleted
	}

	occurredAt := s.now()
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = occurredAt.Format(domain.DisplayDateLayout)
	} else if parsed, err := time.ParseInLocation(domain.DisplayDateLayout, date, time.UTC); err == nil {
		occurredAt = parsed
	}

	var lines []domain.CartItem
	if txType == domain.TxTypeIncome {
		lines = collapseLines(req.Items)
	}

	created, err := s.repo.CreateCheckout(ctx, domain.Transaction{
		Type:       txType,
		Category:   category,
		Amount:     req.Amount,
		Date:       date,
		OccurredAt: occurredAt,
		Status:     status,
		Note:       strings.TrimSpace(req.Note),
	}, lines)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.invalidateReports(ctx)
	return *created, nil
}

func (s *Service) ResetTransactions(ctx context.Context) (domain.ResetResponse, error) {
	purged, err := s.repo.ResetTransactions(ctx)
	if err != nil {
		return domain.ResetResponse{}, err
	}

	s.invalidateReports(ctx)
	s.logger.Info().Int64("purged", purged).Msg("transaction history reset")
	return domain.ResetResponse{Success: true, Message: "All transaction history deleted."}, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpsertSettings(ctx context.Context, settings domain.Settings) error {
	settings.StoreName = strings.TrimSpace(settings.StoreName)
	if settings.StoreName == "" {
		return store.ErrInvalidInput
	}
	settings.ID = 1
	return s.repo.UpsertSettings(ctx, settings)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	if cached, ok, err := s.reports.GetStats(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache read failed, falling back to store")
	} else if ok {
		return *cached, nil
	}

	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	if err := s.reports.SetStats(ctx, &stats, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache write failed")
	}
	return stats, nil
}

// Report assembles the monthly series and the income category breakdown.
// An empty ledger yields empty slices, never fabricated sample figures.
func (s *Service) Report(ctx context.Context) (domain.Report, error) {
	if cached, ok, err := s.reports.GetReport(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("report cache read failed, falling back to store")
	} else if ok {
		return *cached, nil
	}

	chartData, err := s.repo.GetMonthlyReport(ctx, s.months)
	if err != nil {
		return domain.Report{}, err
	}
	categoryData, err := s.repo.GetCategoryBreakdown(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	report := domain.Report{ChartData: chartData, CategoryData: categoryData}
	if err := s.reports.SetReport(ctx, &report, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("report cache write failed")
	}
	return report, nil
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

// collapseLines merges repeated product ids by summing quantities. The
// per-line decrement is associative and commutative, so this changes only
// the statement count, never the final stock value.
func collapseLines(items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return nil
	}

	order := make([]int64, 0, len(items))
	byProduct := make(map[int64]int, len(items))
	for _, item := range items {
		if _, seen := byProduct[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		byProduct[item.ProductID] += item.Quantity
	}

	collapsed := make([]domain.CartItem, 0, len(order))
	for _, id := range order {
		collapsed = append(collapsed, domain.CartItem{ProductID: id, Quantity: byProduct[id]})
	}
	return collapsed
}
