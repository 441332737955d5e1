package stockclient

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"stock2coat/internal/model"

	"github.com/google/uuid"
)

// Mock Authority
type mockAuthority struct {
	mu       sync.Mutex
	calls    int
	fail     *ConsumeError
	noUser   bool
	block    chan struct{} // when set, Consume blocks until closed
	lastQty  float64
	lastItem uuid.UUID
}

func (m *mockAuthority) Consume(ctx context.Context, itemID uuid.UUID, quantity float64, orderNumber, note string) (*ConsumeResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastItem = itemID
	m.lastQty = quantity
	block := m.block
	fail := m.fail
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail != nil {
		return nil, fail
	}
	return &ConsumeResult{
		ItemID:           itemID,
		ConsumedQuantity: quantity,
		Atomic:           true,
	}, nil
}

func (m *mockAuthority) Identity() (*Identity, error) {
	if m.noUser {
		return nil, newConsumeError(CategoryAuthMissing, "no identity")
	}
	return &Identity{ID: "user-1", Email: "coater@stock2coat.local"}, nil
}

func (m *mockAuthority) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestConsumer(items ...model.InventoryItem) (*Consumer, *Store, *mockAuthority) {
	store := NewStore()
	store.Load(items)
	authority := &mockAuthority{}
	return NewConsumer(store, authority, nil), store, authority
}

func TestConsume_SuccessKeepsOptimisticState(t *testing.T) {
	item := testItem(20, 10)
	consumer, store, authority := newTestConsumer(item)

	result, err := consumer.Consume(context.Background(), item.ID, 5, "PRJ-2024-001", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Atomic {
		t.Error("expected atomic result")
	}
	if authority.callCount() != 1 {
		t.Errorf("expected exactly one authority call, got %d", authority.callCount())
	}

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 15 {
		t.Errorf("expected optimistic stock 15, got %v", got.CurrentStock)
	}
	if got.Status != model.StatusMedium {
		t.Errorf("expected GEM, got %s", got.Status)
	}
}

func TestConsume_FailureRestoresSnapshot(t *testing.T) {
	item := testItem(20, 10)
	consumer, store, authority := newTestConsumer(item)
	authority.fail = newConsumeError(CategoryInsufficientStock, "insufficient stock")

	before, _ := store.Get(item.ID)
	_, err := consumer.Consume(context.Background(), item.ID, 5, "", "")
	if err == nil {
		t.Fatal("expected error")
	}

	cerr, ok := err.(*ConsumeError)
	if !ok || cerr.Category != CategoryInsufficientStock {
		t.Errorf("expected categorized insufficient-stock error, got %v", err)
	}

	after, _ := store.Get(item.ID)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback not exact:\n before %+v\n after  %+v", before, after)
	}
}

func TestConsume_LocalValidationSkipsNetwork(t *testing.T) {
	item := testItem(5, 10)
	consumer, store, authority := newTestConsumer(item)

	cases := []struct {
		name     string
		itemID   uuid.UUID
		quantity float64
		want     Category
	}{
		{"zero quantity", item.ID, 0, CategoryInvalidQuantity},
		{"negative quantity", item.ID, -3, CategoryInvalidQuantity},
		{"exceeds local stock", item.ID, 10, CategoryInsufficientStock},
		{"unknown item", uuid.New(), 1, CategoryValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := consumer.Consume(context.Background(), tc.itemID, tc.quantity, "", "")
			cerr, ok := err.(*ConsumeError)
			if !ok {
				t.Fatalf("expected ConsumeError, got %v", err)
			}
			if cerr.Category != tc.want {
				t.Errorf("expected category %s, got %s", tc.want, cerr.Category)
			}
		})
	}

	if authority.callCount() != 0 {
		t.Errorf("local rejections must not reach the network, got %d calls", authority.callCount())
	}

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 5 {
		t.Errorf("local rejections must not mutate state, stock %v", got.CurrentStock)
	}
}

func TestConsume_MissingIdentityRejectsBeforeInvoke(t *testing.T) {
	item := testItem(20, 10)
	consumer, store, authority := newTestConsumer(item)
	authority.noUser = true

	_, err := consumer.Consume(context.Background(), item.ID, 5, "", "")
	cerr, ok := err.(*ConsumeError)
	if !ok || cerr.Category != CategoryAuthMissing {
		t.Fatalf("expected authentication-missing error, got %v", err)
	}
	if authority.callCount() != 0 {
		t.Errorf("expected no authority call without identity, got %d", authority.callCount())
	}

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 20 {
		t.Errorf("expected untouched stock 20, got %v", got.CurrentStock)
	}
}

func TestConsume_RejectsConcurrentAttemptOnSameItem(t *testing.T) {
	item := testItem(20, 10)
	consumer, _, authority := newTestConsumer(item)
	authority.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := consumer.Consume(context.Background(), item.ID, 5, "", "")
		firstDone <- err
	}()

	// Wait until the first attempt is inside the authority call.
	for authority.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := consumer.Consume(context.Background(), item.ID, 3, "", "")
	if err != ErrConsumptionInFlight {
		t.Errorf("expected ErrConsumptionInFlight, got %v", err)
	}

	close(authority.block)
	if err := <-firstDone; err != nil {
		t.Errorf("first attempt failed: %v", err)
	}

	// The item is free again once resolved.
	if _, err := consumer.Consume(context.Background(), item.ID, 3, "", ""); err != nil {
		t.Errorf("follow-up attempt failed: %v", err)
	}
}

func TestConsume_DifferentItemsRunConcurrently(t *testing.T) {
	itemA := testItem(20, 10)
	itemB := testItem(30, 10)
	consumer, store, _ := newTestConsumer(itemA, itemB)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, attempt := range []struct {
		id  uuid.UUID
		qty float64
	}{{itemA.ID, 5}, {itemB.ID, 10}} {
		wg.Add(1)
		go func(id uuid.UUID, qty float64) {
			defer wg.Done()
			_, err := consumer.Consume(context.Background(), id, qty, "", "")
			errs <- err
		}(attempt.id, attempt.qty)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent attempt failed: %v", err)
		}
	}

	gotA, _ := store.Get(itemA.ID)
	gotB, _ := store.Get(itemB.ID)
	if gotA.CurrentStock != 15 || gotB.CurrentStock != 20 {
		t.Errorf("expected stocks 15/20, got %v/%v", gotA.CurrentStock, gotB.CurrentStock)
	}
}

func TestConsume_RealtimeConvergenceAfterSuccess(t *testing.T) {
	item := testItem(20, 10)
	consumer, store, _ := newTestConsumer(item)

	if _, err := consumer.Consume(context.Background(), item.ID, 5, "", ""); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	// The authoritative event matches the optimistic prediction; applying it
	// must be an idempotent confirmation.
	authoritative := item
	authoritative.CurrentStock = 15
	authoritative.Status = model.StatusFor(15, item.MinStock)
	store.ApplyChange(mustJSON(t, map[string]interface{}{
		"eventType": "UPDATE",
		"new":       authoritative,
		"old":       item,
	}))

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 15 || got.Status != model.StatusMedium {
		t.Errorf("expected converged state {15 GEM}, got {%v %s}", got.CurrentStock, got.Status)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
