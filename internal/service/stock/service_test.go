package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phamqv/storefront/internal/domain/models"
)

// Mock Ledger
type mockLedger struct {
	mu          sync.Mutex
	items       map[primitive.ObjectID]*models.Product
	failReserve map[primitive.ObjectID]error
}

func newMockLedger() *mockLedger {
	return &mockLedger{items: make(map[primitive.ObjectID]*models.Product)}
}

func (m *mockLedger) add(name string, costPrice float64, quantity int) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.items[id] = &models.Product{ID: id, Name: name, CostPrice: costPrice, Unit: "kg", Quantity: quantity}
	return id
}

func (m *mockLedger) quantity(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Quantity
}

func (m *mockLedger) Item(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockLedger) Reserve(ctx context.Context, id primitive.ObjectID, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failReserve[id]; ok {
		return 0, err
	}
	product, ok := m.items[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	if product.Quantity < qty {
		return 0, models.ErrInsufficientStock
	}
	product.Quantity -= qty
	return product.Quantity, nil
}

func (m *mockLedger) Release(ctx context.Context, id primitive.ObjectID, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.items[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	product.Quantity += qty
	return product.Quantity, nil
}

// Mock Recorder
type mockRecorder struct {
	mu      sync.Mutex
	imports []float64
	exports []float64
}

func (m *mockRecorder) RecordVoucherImport(ctx context.Context, voucherID primitive.ObjectID, totalValue float64, createdBy primitive.ObjectID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = append(m.imports, totalValue)
	return &models.Transaction{ID: primitive.NewObjectID()}, nil
}

func (m *mockRecorder) RecordVoucherExport(ctx context.Context, voucherID primitive.ObjectID, totalCost float64, createdBy primitive.ObjectID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports = append(m.exports, totalCost)
	return &models.Transaction{ID: primitive.NewObjectID()}, nil
}

// Mock VoucherStore
type mockVoucherStore struct {
	mu       sync.Mutex
	vouchers map[primitive.ObjectID]*models.StockVoucher
}

func newMockVoucherStore() *mockVoucherStore {
	return &mockVoucherStore{vouchers: make(map[primitive.ObjectID]*models.StockVoucher)}
}

func (m *mockVoucherStore) Insert(ctx context.Context, voucher *models.StockVoucher) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	copied := *voucher
	copied.ID = id
	m.vouchers[id] = &copied
	return id, nil
}

func (m *mockVoucherStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.StockVoucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	voucher, ok := m.vouchers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *voucher
	return &copied, nil
}

func (m *mockVoucherStore) List(ctx context.Context, filter models.VoucherFilter) ([]models.StockVoucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StockVoucher
	for _, voucher := range m.vouchers {
		if filter.Type != "" && voucher.Type != filter.Type {
			continue
		}
		if filter.Status != "" && voucher.Status != filter.Status {
			continue
		}
		out = append(out, *voucher)
	}
	return out, nil
}

func (m *mockVoucherStore) claim(id primitive.ObjectID, to models.VoucherStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	voucher, ok := m.vouchers[id]
	if !ok || voucher.Status != models.VoucherStatusPending {
		return false
	}
	voucher.Status = to
	return true
}

func (m *mockVoucherStore) ClaimApproval(ctx context.Context, id, approvedBy primitive.ObjectID, at time.Time) (bool, error) {
	return m.claim(id, models.VoucherStatusApproved), nil
}

func (m *mockVoucherStore) ClaimRejection(ctx context.Context, id, rejectedBy primitive.ObjectID, at time.Time, reason string) (bool, error) {
	return m.claim(id, models.VoucherStatusRejected), nil
}

func (m *mockVoucherStore) ClaimCancellation(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return m.claim(id, models.VoucherStatusCancelled), nil
}

// Mock HistoryStore
type mockHistoryStore struct {
	mu      sync.Mutex
	entries []models.StockHistoryEntry
}

func (m *mockHistoryStore) Insert(ctx context.Context, entry *models.StockHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistoryStore) List(ctx context.Context, filter models.HistoryFilter) ([]models.StockHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StockHistoryEntry(nil), m.entries...), nil
}

type fixture struct {
	ledger   *mockLedger
	recorder *mockRecorder
	vouchers *mockVoucherStore
	history  *mockHistoryStore
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		ledger:   newMockLedger(),
		recorder: &mockRecorder{},
		vouchers: newMockVoucherStore(),
		history:  &mockHistoryStore{},
	}
	f.svc = NewService(f.ledger, f.recorder, f.vouchers, f.history, nil)
	return f
}

func (f *fixture) createVoucher(t *testing.T, voucherType models.VoucherType, items ...VoucherItemInput) *models.StockVoucher {
	t.Helper()
	voucher, err := f.svc.Create(context.Background(), CreateVoucherInput{
		Type:      voucherType,
		Reason:    "restock",
		Items:     items,
		CreatedBy: primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	return voucher
}

func TestCreate_RejectsUnknownTypeAndEmptyItems(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)

	_, err := f.svc.Create(context.Background(), CreateVoucherInput{
		Type:      "adjustment",
		Items:     []VoucherItemInput{{Product: rice, Quantity: 1}},
		CreatedBy: primitive.NewObjectID(),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown type: expected ErrValidation, got: %v", err)
	}

	_, err = f.svc.Create(context.Background(), CreateVoucherInput{
		Type:      models.VoucherTypeImport,
		CreatedBy: primitive.NewObjectID(),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("empty items: expected ErrValidation, got: %v", err)
	}
}

func TestCreate_ExportChecksAvailableStock(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 3)

	_, err := f.svc.Create(context.Background(), CreateVoucherInput{
		Type:      models.VoucherTypeExport,
		Reason:    "shipment",
		Items:     []VoucherItemInput{{Product: rice, Quantity: 5}},
		CreatedBy: primitive.NewObjectID(),
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}
	if f.ledger.quantity(rice) != 3 {
		t.Errorf("creation must not touch stock, got %d", f.ledger.quantity(rice))
	}
}

func TestCreate_SnapshotsProductDetails(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)

	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	if voucher.Status != models.VoucherStatusPending {
		t.Errorf("expected pending, got %s", voucher.Status)
	}
	item := voucher.Items[0]
	if item.ProductName != "rice" || item.Unit != "kg" || item.CostPrice != 1.5 {
		t.Errorf("expected product snapshot on the line item, got %+v", item)
	}
	if voucher.TotalValue() != 6.0 {
		t.Errorf("expected total value 6.0, got %f", voucher.TotalValue())
	}
}

func TestApproveImport_IncreasesStockAndRecordsAudit(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	approved, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if approved.Status != models.VoucherStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if f.ledger.quantity(rice) != 14 {
		t.Errorf("expected stock 14, got %d", f.ledger.quantity(rice))
	}

	if len(f.history.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(f.history.entries))
	}
	entry := f.history.entries[0]
	if entry.QuantityBefore != 10 || entry.QuantityChange != 4 || entry.QuantityAfter != 14 {
		t.Errorf("expected history 10 +4 14, got %d %+d %d", entry.QuantityBefore, entry.QuantityChange, entry.QuantityAfter)
	}
	if entry.VoucherNumber != voucher.VoucherNumber {
		t.Errorf("history must reference the voucher, got %s", entry.VoucherNumber)
	}

	if len(f.recorder.imports) != 1 || f.recorder.imports[0] != 6.0 {
		t.Errorf("expected one import expense of 6.0, got %v", f.recorder.imports)
	}
}

func TestApproveExport_DecreasesStockAndRecordsAudit(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeExport, VoucherItemInput{Product: rice, Quantity: 4})

	if _, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if f.ledger.quantity(rice) != 6 {
		t.Errorf("expected stock 6, got %d", f.ledger.quantity(rice))
	}

	entry := f.history.entries[0]
	if entry.QuantityBefore != 10 || entry.QuantityChange != -4 || entry.QuantityAfter != 6 {
		t.Errorf("expected history 10 -4 6, got %d %+d %d", entry.QuantityBefore, entry.QuantityChange, entry.QuantityAfter)
	}

	if len(f.recorder.exports) != 1 || f.recorder.exports[0] != 6.0 {
		t.Errorf("expected one cost-of-goods entry of 6.0, got %v", f.recorder.exports)
	}
}

func TestApprove_SecondApprovalRejected(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	if _, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	_, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got: %v", err)
	}
	if f.ledger.quantity(rice) != 14 {
		t.Errorf("stock must be applied once, got %d", f.ledger.quantity(rice))
	}
	if len(f.recorder.imports) != 1 {
		t.Errorf("expected a single expense entry, got %d", len(f.recorder.imports))
	}
}

func TestApprove_ConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 100)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 5})

	var wg sync.WaitGroup
	var successes, conflicts int
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrInvalidTransition):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one approval to win, got %d", successes)
	}
	if successes+conflicts != 10 {
		t.Errorf("expected every other approval to conflict, got %d conflicts", conflicts)
	}
	if len(f.recorder.imports) != 1 {
		t.Errorf("expected a single expense entry, got %d", len(f.recorder.imports))
	}
}

func TestApproveExport_InsufficientStockKeepsVoucherPending(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeExport, VoucherItemInput{Product: rice, Quantity: 8})

	// Stock drains between creation and approval.
	if _, err := f.ledger.Reserve(context.Background(), rice, 5); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	_, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	current, _ := f.vouchers.FindByID(context.Background(), voucher.ID)
	if current.Status != models.VoucherStatusPending {
		t.Errorf("voucher must stay pending, got %s", current.Status)
	}
	if f.ledger.quantity(rice) != 5 {
		t.Errorf("advisory check must not touch stock, got %d", f.ledger.quantity(rice))
	}
}

func TestApproveExport_PartialFailureLeavesEarlierItemsApplied(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	beans := f.ledger.add("beans", 2.0, 10)
	voucher := f.createVoucher(t, models.VoucherTypeExport,
		VoucherItemInput{Product: rice, Quantity: 4},
		VoucherItemInput{Product: beans, Quantity: 6},
	)

	// The advisory pre-check passes; the second item's write then fails, as
	// if the stock drained between the check and the apply loop reaching it.
	f.ledger.mu.Lock()
	f.ledger.failReserve = map[primitive.ObjectID]error{beans: models.ErrInsufficientStock}
	f.ledger.mu.Unlock()

	_, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock from the second item, got: %v", err)
	}

	// The first item stays decremented; there is no automatic rollback.
	if f.ledger.quantity(rice) != 6 {
		t.Errorf("expected rice stock 6 after partial failure, got %d", f.ledger.quantity(rice))
	}
	if f.ledger.quantity(beans) != 10 {
		t.Errorf("expected beans stock untouched at 10, got %d", f.ledger.quantity(beans))
	}

	current, _ := f.vouchers.FindByID(context.Background(), voucher.ID)
	if current.Status != models.VoucherStatusPending {
		t.Errorf("voucher must stay pending after partial failure, got %s", current.Status)
	}
	if len(f.history.entries) != 1 {
		t.Errorf("expected an audit entry for the applied item only, got %d", len(f.history.entries))
	}
	if len(f.recorder.exports) != 0 {
		t.Errorf("no expense entry on failed approval, got %d", len(f.recorder.exports))
	}
}

func TestReject_NoStockMutation(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	rejected, err := f.svc.Reject(context.Background(), voucher.ID, primitive.NewObjectID(), "wrong supplier")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if rejected.Status != models.VoucherStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason != "wrong supplier" {
		t.Errorf("expected rejection reason, got %q", rejected.RejectionReason)
	}
	if f.ledger.quantity(rice) != 10 {
		t.Errorf("rejection must not touch stock, got %d", f.ledger.quantity(rice))
	}
	if len(f.history.entries) != 0 {
		t.Errorf("rejection must not write history, got %d", len(f.history.entries))
	}
}

func TestReject_ApprovedVoucherRejected(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	if _, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err := f.svc.Reject(context.Background(), voucher.ID, primitive.NewObjectID(), "too late")
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestCancel_PendingOnly(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 10)
	voucher := f.createVoucher(t, models.VoucherTypeImport, VoucherItemInput{Product: rice, Quantity: 4})

	cancelled, err := f.svc.Cancel(context.Background(), voucher.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.VoucherStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	_, err = f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID())
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("cancelled voucher cannot be approved, got: %v", err)
	}
}

func TestCreateExportFromOrder_LinksOrderWithoutStockCheck(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 0)

	order := &models.Order{
		ID: primitive.NewObjectID(),
		Items: []models.OrderItem{
			{Product: rice, ProductName: "rice", Quantity: 3},
		},
	}

	// Zero stock: the order already holds the reservation, so the advisory
	// export check must be skipped.
	voucher, err := f.svc.CreateExportFromOrder(context.Background(), order, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("create from order failed: %v", err)
	}

	if voucher.Type != models.VoucherTypeExport {
		t.Errorf("expected export voucher, got %s", voucher.Type)
	}
	if voucher.RelatedOrder == nil || *voucher.RelatedOrder != order.ID {
		t.Error("voucher must reference the order")
	}
	if voucher.Status != models.VoucherStatusPending {
		t.Errorf("expected pending, got %s", voucher.Status)
	}
}

func TestCreateImportFromRefund_RestoresStockOnlyOnApproval(t *testing.T) {
	f := newFixture()
	rice := f.ledger.add("rice", 1.5, 6)

	order := &models.Order{
		ID: primitive.NewObjectID(),
		Items: []models.OrderItem{
			{Product: rice, ProductName: "rice", Quantity: 4},
		},
	}

	voucher, err := f.svc.CreateImportFromRefund(context.Background(), order, "damaged", primitive.NewObjectID())
	if err != nil {
		t.Fatalf("create from refund failed: %v", err)
	}
	if f.ledger.quantity(rice) != 6 {
		t.Errorf("creation must not restock, got %d", f.ledger.quantity(rice))
	}

	if _, err := f.svc.Approve(context.Background(), voucher.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if f.ledger.quantity(rice) != 10 {
		t.Errorf("approval must restock to 10, got %d", f.ledger.quantity(rice))
	}
}
