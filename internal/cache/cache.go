package cache

import (
	"context"
	"time"

	"kasumkm/backend/internal/domain"
)

// ReportCache holds short-lived copies of the aggregate views so dashboard
// polling does not hit the ledger on every request. Entries are invalidated
// on any write to the transactions table; a failing cache is advisory and
// callers fall back to the store.
type ReportCache interface {
	GetStats(ctx context.Context) (*domain.Stats, bool, error)
	SetStats(ctx context.Context, stats *domain.Stats, ttl time.Duration) error
	GetReport(ctx context.Context) (*domain.Report, bool, error)
	SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) GetStats(ctx context.Context) (*domain.Stats, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetStats(ctx context.Context, stats *domain.Stats, ttl time.Duration) error {
	return nil
}

func (NoopReportCache) GetReport(ctx context.Context) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(ctx context.Context) error {
	return nil
}
