package stockclient

import (
	"encoding/json"
	"reflect"
	"testing"

	"stock2coat/internal/model"

	"github.com/google/uuid"
)

func testItem(stock, minStock float64) model.InventoryItem {
	item := model.InventoryItem{
		RALCode:      "RAL 9010",
		Color:        "Zuiver wit",
		Brand:        "Interpon",
		CurrentStock: stock,
		MaxStock:     100,
		MinStock:     minStock,
		Unit:         "kg",
	}
	item.ID = uuid.New()
	item.RecomputeStatus()
	return item
}

func TestStore_OptimisticApplyRecomputesStatus(t *testing.T) {
	item := testItem(20, 10)
	store := NewStore()
	store.Load([]model.InventoryItem{item})

	if err := store.OptimisticApply(item.ID, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 8 {
		t.Errorf("expected stock 8, got %v", got.CurrentStock)
	}
	if got.Status != model.StatusLow {
		t.Errorf("expected LAAG, got %s", got.Status)
	}
}

func TestStore_RollbackRestoresSnapshotExactly(t *testing.T) {
	item := testItem(20, 10)
	store := NewStore()
	store.Load([]model.InventoryItem{item})

	snapshot, err := store.Snapshot(item.ID)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if err := store.OptimisticApply(item.ID, 5); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	store.Rollback(snapshot)

	got, _ := store.Get(item.ID)
	if !reflect.DeepEqual(got, *snapshot) {
		t.Errorf("rollback did not restore snapshot:\n got  %+v\n want %+v", got, *snapshot)
	}
}

func TestStore_ApplyChangeOverwritesUnconditionally(t *testing.T) {
	item := testItem(20, 10)
	store := NewStore()
	store.Load([]model.InventoryItem{item})

	// Simulate an optimistic guess, then an authoritative row that disagrees.
	if err := store.OptimisticApply(item.ID, 5); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	authoritative := item
	authoritative.CurrentStock = 3
	authoritative.Status = model.StatusFor(3, authoritative.MinStock)
	raw, _ := json.Marshal(map[string]interface{}{
		"eventType": "UPDATE",
		"new":       authoritative,
		"old":       item,
	})
	store.ApplyChange(raw)

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 3 {
		t.Errorf("expected authoritative stock 3, got %v", got.CurrentStock)
	}
	if got.Status != model.StatusLow {
		t.Errorf("expected LAAG from authoritative row, got %s", got.Status)
	}
}

func TestStore_ApplyChangeInsertAndDelete(t *testing.T) {
	store := NewStore()
	item := testItem(50, 10)

	insert, _ := json.Marshal(map[string]interface{}{"eventType": "INSERT", "new": item})
	store.ApplyChange(insert)
	if _, ok := store.Get(item.ID); !ok {
		t.Fatal("expected item after INSERT event")
	}

	del, _ := json.Marshal(map[string]interface{}{"eventType": "DELETE", "old": item})
	store.ApplyChange(del)
	if _, ok := store.Get(item.ID); ok {
		t.Error("expected item removed after DELETE event")
	}
}

func TestStore_ApplyChangeIgnoresMalformedPayloads(t *testing.T) {
	item := testItem(20, 10)
	store := NewStore()
	store.Load([]model.InventoryItem{item})

	for _, raw := range [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`"a string"`),
		[]byte(`{"eventType":"UPDATE"}`),
		[]byte(`{"eventType":"DELETE"}`),
		[]byte(`{"eventType":"SOMETHING","new":{}}`),
	} {
		store.ApplyChange(raw)
	}

	got, _ := store.Get(item.ID)
	if got.CurrentStock != 20 {
		t.Errorf("malformed payloads mutated the store: stock %v", got.CurrentStock)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	item := testItem(20, 10)
	item.Transactions = []model.Transaction{{Quantity: 5, Type: model.TxOut}}
	store := NewStore()
	store.Load([]model.InventoryItem{item})

	got, _ := store.Get(item.ID)
	got.CurrentStock = 999
	got.Transactions[0].Quantity = 999

	fresh, _ := store.Get(item.ID)
	if fresh.CurrentStock != 20 || fresh.Transactions[0].Quantity != 5 {
		t.Error("mutating a returned copy leaked into the store")
	}
}
