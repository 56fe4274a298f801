package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phamqv/storefront/internal/domain/models"
)

// Mock LedgerReader
type mockLedgerReader struct {
	summary *models.TransactionSummary
	start   time.Time
	end     time.Time
	err     error
}

func (m *mockLedgerReader) Summary(ctx context.Context, start, end time.Time) (*models.TransactionSummary, error) {
	m.start = start
	m.end = end
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

// Mock ReportStore
type mockReportStore struct {
	saved []models.DailyReport
	err   error
}

func (m *mockReportStore) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, report)
	return nil
}

func TestGenerateDailyReport(t *testing.T) {
	ledger := &mockLedgerReader{
		summary: &models.TransactionSummary{TotalIncome: 200, TotalExpense: 80, Net: 120, Count: 7},
	}
	store := &mockReportStore{}
	svc := NewService(ledger, store, nil)

	day := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	report, err := svc.GenerateDailyReport(context.Background(), day)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !ledger.start.Equal(wantStart) {
		t.Errorf("expected window start %v, got %v", wantStart, ledger.start)
	}
	if !ledger.end.Before(wantStart.Add(24 * time.Hour)) {
		t.Errorf("window end must stay inside the day, got %v", ledger.end)
	}

	if report.TotalIncome != 200 || report.TotalExpense != 80 || report.Net != 120 || report.EntryCount != 7 {
		t.Errorf("report must carry the aggregation, got %+v", report)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one saved report, got %d", len(store.saved))
	}
	if !store.saved[0].Date.Equal(wantStart) {
		t.Errorf("expected report dated %v, got %v", wantStart, store.saved[0].Date)
	}
}

func TestGenerateDailyReport_LedgerFailure(t *testing.T) {
	ledger := &mockLedgerReader{err: errors.New("aggregation failed")}
	store := &mockReportStore{}
	svc := NewService(ledger, store, nil)

	if _, err := svc.GenerateDailyReport(context.Background(), time.Now()); err == nil {
		t.Error("expected ledger failure to surface")
	}
	if len(store.saved) != 0 {
		t.Errorf("nothing must be saved on failure, got %d", len(store.saved))
	}
}

func TestGenerateDailyReport_StoreFailure(t *testing.T) {
	ledger := &mockLedgerReader{summary: &models.TransactionSummary{}}
	store := &mockReportStore{err: errors.New("write failed")}
	svc := NewService(ledger, store, nil)

	if _, err := svc.GenerateDailyReport(context.Background(), time.Now()); err == nil {
		t.Error("expected store failure to surface")
	}
}
