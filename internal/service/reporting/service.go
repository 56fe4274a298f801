package reporting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
)

// LedgerReader aggregates the transaction ledger.
type LedgerReader interface {
	Summary(ctx context.Context, start, end time.Time) (*models.TransactionSummary, error)
}

// ReportStore persists generated reports.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Service builds and stores the daily financial summary.
type Service struct {
	ledger LedgerReader
	store  ReportStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(ledger LedgerReader, store ReportStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, store: store, logger: logger, now: time.Now}
}

// GenerateDailyReport aggregates the ledger for the given day and persists the
// result.
func (s *Service) GenerateDailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)

	summary, err := s.ledger.Summary(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := models.DailyReport{
		Date:         start,
		TotalIncome:  summary.TotalIncome,
		TotalExpense: summary.TotalExpense,
		Net:          summary.Net,
		EntryCount:   summary.Count,
		CreatedAt:    s.now(),
	}

	if err := s.store.SaveDailyReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("daily report generated",
		zap.Time("date", report.Date),
		zap.Float64("income", report.TotalIncome),
		zap.Float64("expense", report.TotalExpense),
		zap.Int("entries", report.EntryCount))
	return &report, nil
}
