package service

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"stock2coat/internal/model"
	"stock2coat/internal/repository"
	"stock2coat/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyConsumption_Success(t *testing.T) {
	newStock, newStatus, err := applyConsumption(20, 10, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newStock != 15 {
		t.Errorf("expected new stock 15, got %v", newStock)
	}
	if newStatus != model.StatusMedium {
		t.Errorf("expected GEM, got %s", newStatus)
	}
}

func TestApplyConsumption_ToZero(t *testing.T) {
	newStock, newStatus, err := applyConsumption(5, 10, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newStock != 0 {
		t.Errorf("expected new stock 0, got %v", newStock)
	}
	if newStatus != model.StatusEmpty {
		t.Errorf("expected UIT at zero stock, got %s", newStatus)
	}
}

func TestApplyConsumption_HitsThreshold(t *testing.T) {
	// Landing exactly on min stock already triggers the warning tier.
	_, newStatus, err := applyConsumption(15, 10, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newStatus != model.StatusLow {
		t.Errorf("expected LAAG at threshold, got %s", newStatus)
	}
}

func TestApplyConsumption_InsufficientStock(t *testing.T) {
	_, _, err := applyConsumption(5, 10, 10)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestApplyConsumption_RejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []float64{0, -3} {
		_, _, err := applyConsumption(20, 10, quantity)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("quantity %v: expected ErrInvalidQuantity, got %v", quantity, err)
		}
	}
}

// --- Authority flow tests (mocked repositories, no database) ---

// stubItemRepo serves one in-memory item and counts stock writes.
type stubItemRepo struct {
	item             *model.InventoryItem
	findErr          error
	updateStockErr   error
	updateStockCalls int
	lastStock        float64
	lastStatus       model.StockStatus
}

func (r *stubItemRepo) Create(item *model.InventoryItem) error          { return nil }
func (r *stubItemRepo) FindAll() ([]model.InventoryItem, error)         { return nil, nil }
func (r *stubItemRepo) FindByID(id uuid.UUID) (*model.InventoryItem, error) {
	return r.item, r.findErr
}
func (r *stubItemRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	copied := *r.item
	return &copied, nil
}
func (r *stubItemRepo) FindByRALCode(ralCode string) (*model.InventoryItem, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubItemRepo) Update(item *model.InventoryItem) error    { return nil }
func (r *stubItemRepo) Delete(id uuid.UUID, deletedBy string) error { return nil }
func (r *stubItemRepo) UpdateStock(tx *gorm.DB, id uuid.UUID, newStock float64, newStatus model.StockStatus, updatedBy string) error {
	if r.updateStockErr != nil {
		return r.updateStockErr
	}
	r.updateStockCalls++
	r.lastStock = newStock
	r.lastStatus = newStatus
	return nil
}

// stubTransactionRepo counts appended log rows.
type stubTransactionRepo struct {
	createErr   error
	createCalls int
	last        *model.Transaction
}

func (r *stubTransactionRepo) Create(tx *gorm.DB, transaction *model.Transaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.createCalls++
	transaction.ID = uuid.New()
	r.last = transaction
	return nil
}
func (r *stubTransactionRepo) FindAll() ([]model.Transaction, error) { return nil, nil }
func (r *stubTransactionRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubTransactionRepo) FindByItemID(itemID uuid.UUID) ([]model.Transaction, error) {
	return nil, nil
}
func (r *stubTransactionRepo) GetStockMovement(startDate, endDate time.Time) ([]repository.StockMovementData, error) {
	return nil, nil
}
func (r *stubTransactionRepo) GetDashboardStats() (*repository.DashboardStats, error) {
	return nil, nil
}

// stubRunner invokes the transactional body directly; the repositories above
// ignore the tx handle.
type stubRunner struct{}

func (stubRunner) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

func newTestAuthority(itemRepo *stubItemRepo, txRepo *stubTransactionRepo) ConsumptionService {
	hub := ws.NewHub()
	go hub.Run()
	return NewConsumptionService(itemRepo, txRepo, stubRunner{}, hub, zap.NewNop())
}

func authorityItem(stock, minStock float64) *model.InventoryItem {
	item := &model.InventoryItem{
		RALCode:      "RAL 7016",
		Color:        "Antracietgrijs",
		CurrentStock: stock,
		MaxStock:     100,
		MinStock:     minStock,
		Unit:         "kg",
	}
	item.ID = uuid.New()
	item.RecomputeStatus()
	return item
}

func TestConsume_SuccessWritesStockOnceAndLogsOnce(t *testing.T) {
	itemRepo := &stubItemRepo{item: authorityItem(20, 10)}
	txRepo := &stubTransactionRepo{}
	authority := newTestAuthority(itemRepo, txRepo)

	result, err := authority.Consume(&ConsumeRequest{
		ItemID:   itemRepo.item.ID,
		Quantity: 8,
		UserID:   uuid.New().String(),
		UserName: "operator@stock2coat.local",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if itemRepo.updateStockCalls != 1 {
		t.Errorf("expected exactly 1 stock write, got %d", itemRepo.updateStockCalls)
	}
	if txRepo.createCalls != 1 {
		t.Errorf("expected exactly 1 transaction append, got %d", txRepo.createCalls)
	}
	if itemRepo.lastStock != 12 || itemRepo.lastStatus != model.StatusMedium {
		t.Errorf("stock write = (%.1f, %s), want (12.0, GEM)", itemRepo.lastStock, itemRepo.lastStatus)
	}

	if result.PreviousStock != 20 || result.NewStock != 12 {
		t.Errorf("envelope stock = %.1f -> %.1f, want 20 -> 12", result.PreviousStock, result.NewStock)
	}
	if result.NewStatus != model.StatusMedium {
		t.Errorf("envelope status = %s, want GEM", result.NewStatus)
	}
	if result.ItemCode != "RAL 7016" {
		t.Errorf("envelope item code = %s, want RAL 7016", result.ItemCode)
	}
	if result.TransactionID == uuid.Nil {
		t.Error("envelope must carry the appended transaction id")
	}
	if txRepo.last.Type != model.TxOut || txRepo.last.Quantity != 8 {
		t.Errorf("logged movement = (%s, %.1f), want (OUT, 8.0)", txRepo.last.Type, txRepo.last.Quantity)
	}
}

func TestConsume_UnknownItemLeavesEverythingUntouched(t *testing.T) {
	itemRepo := &stubItemRepo{findErr: gorm.ErrRecordNotFound}
	txRepo := &stubTransactionRepo{}
	authority := newTestAuthority(itemRepo, txRepo)

	_, err := authority.Consume(&ConsumeRequest{ItemID: uuid.New(), Quantity: 5})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if itemRepo.updateStockCalls != 0 || txRepo.createCalls != 0 {
		t.Errorf("failed call must not mutate: %d stock writes, %d appends",
			itemRepo.updateStockCalls, txRepo.createCalls)
	}
}

func TestConsume_InsufficientStockLeavesEverythingUntouched(t *testing.T) {
	itemRepo := &stubItemRepo{item: authorityItem(5, 10)}
	txRepo := &stubTransactionRepo{}
	authority := newTestAuthority(itemRepo, txRepo)

	_, err := authority.Consume(&ConsumeRequest{ItemID: itemRepo.item.ID, Quantity: 10})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if itemRepo.updateStockCalls != 0 || txRepo.createCalls != 0 {
		t.Errorf("failed call must not mutate: %d stock writes, %d appends",
			itemRepo.updateStockCalls, txRepo.createCalls)
	}
}

func TestConsume_InvalidQuantityRejectedBeforeTransaction(t *testing.T) {
	itemRepo := &stubItemRepo{item: authorityItem(20, 10)}
	txRepo := &stubTransactionRepo{}
	authority := newTestAuthority(itemRepo, txRepo)

	for _, quantity := range []float64{0, -1} {
		_, err := authority.Consume(&ConsumeRequest{ItemID: itemRepo.item.ID, Quantity: quantity})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("quantity %v: expected ErrInvalidQuantity, got %v", quantity, err)
		}
	}
	if itemRepo.updateStockCalls != 0 || txRepo.createCalls != 0 {
		t.Errorf("rejected call must not mutate: %d stock writes, %d appends",
			itemRepo.updateStockCalls, txRepo.createCalls)
	}
}

func TestConsume_LogAppendFailureFailsTheCall(t *testing.T) {
	itemRepo := &stubItemRepo{item: authorityItem(20, 10)}
	txRepo := &stubTransactionRepo{createErr: errors.New("insert failed")}
	authority := newTestAuthority(itemRepo, txRepo)

	result, err := authority.Consume(&ConsumeRequest{ItemID: itemRepo.item.ID, Quantity: 5})
	if err == nil {
		t.Fatal("expected the call to fail when the log append fails")
	}
	if result != nil {
		t.Errorf("failed call must not produce an envelope, got %+v", result)
	}
	if txRepo.createCalls != 0 {
		t.Errorf("expected 0 appended rows, got %d", txRepo.createCalls)
	}
}
