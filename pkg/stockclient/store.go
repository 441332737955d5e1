package stockclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"stock2coat/internal/model"

	"github.com/google/uuid"
)

var ErrUnknownItem = errors.New("item not in local store")

// changeEvent mirrors the server's change-feed payload.
type changeEvent struct {
	EventType string               `json:"eventType"`
	New       *model.InventoryItem `json:"new"`
	Old       *model.InventoryItem `json:"old"`
}

// Store is the client-side mirror of the item table. It has exactly three
// mutation paths: OptimisticApply (speculative), Rollback (restore a
// snapshot), and ApplyChange (authoritative overwrite from the real-time
// feed). No other code may mutate cached stock or status.
type Store struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.InventoryItem
}

func NewStore() *Store {
	return &Store{items: make(map[uuid.UUID]model.InventoryItem)}
}

// Load replaces the mirror contents, typically after a full fetch.
func (s *Store) Load(items []model.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uuid.UUID]model.InventoryItem, len(items))
	for _, item := range items {
		s.items[item.ID] = cloneItem(item)
	}
}

// Get returns a copy of the cached item.
func (s *Store) Get(id uuid.UUID) (model.InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return model.InventoryItem{}, false
	}
	return cloneItem(item), true
}

// All returns copies of every cached item.
func (s *Store) All() []model.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, cloneItem(item))
	}
	return out
}

// Snapshot captures a deep copy of the pre-mutation item for restoration.
func (s *Store) Snapshot(id uuid.UUID) (*model.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrUnknownItem
	}
	snap := cloneItem(item)
	return &snap, nil
}

// OptimisticApply speculatively decrements stock and recomputes the tier,
// exactly the way the authority will, so the later authoritative update does
// not flicker. The caller must hold a Snapshot taken before this call.
func (s *Store) OptimisticApply(id uuid.UUID, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return ErrUnknownItem
	}
	item.CurrentStock -= quantity
	item.Status = model.StatusFor(item.CurrentStock, item.MinStock)
	item.UpdatedAt = time.Now()
	s.items[id] = item
	return nil
}

// Rollback restores the exact pre-attempt snapshot.
func (s *Store) Rollback(snapshot *model.InventoryItem) {
	if snapshot == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[snapshot.ID] = cloneItem(*snapshot)
}

// ApplyChange feeds one raw change-feed payload into the mirror. The event's
// values overwrite local state unconditionally, last write wins by arrival
// order. Malformed or non-object payloads are ignored.
func (s *Store) ApplyChange(raw []byte) {
	var event changeEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.EventType {
	case "INSERT", "UPDATE":
		if event.New == nil || event.New.ID == uuid.Nil {
			return
		}
		s.items[event.New.ID] = cloneItem(*event.New)
	case "DELETE":
		if event.Old == nil || event.Old.ID == uuid.Nil {
			return
		}
		delete(s.items, event.Old.ID)
	}
}

// cloneItem deep-copies an item, including its transaction log slice.
func cloneItem(item model.InventoryItem) model.InventoryItem {
	out := item
	if item.Transactions != nil {
		out.Transactions = make([]model.Transaction, len(item.Transactions))
		copy(out.Transactions, item.Transactions)
	}
	return out
}
