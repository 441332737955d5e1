package stockclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"stock2coat/internal/model"

	"go.uber.org/zap"
)

// fallbackServer stubs an API without the consume route, the situation that
// forces the client onto the degraded path.
type fallbackServer struct {
	mu       sync.Mutex
	item     model.InventoryItem
	requests []string // "METHOD path"
	txBodies []map[string]interface{}
}

func (s *fallbackServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/items/", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		switch {
		case r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(s.item)
		default:
			// The consume route is not deployed here; Fiber answers
			// unknown routes with a plain text 404.
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Cannot POST " + r.URL.Path))
		}
	})
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.txBodies = append(s.txBodies, body)
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Transaction recorded"})
	})
	return mux
}

func (s *fallbackServer) record(r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
}

func TestConsumeFallbackMutatesStockOnce(t *testing.T) {
	item := testItem(20, 10)
	stub := &fallbackServer{item: item}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	result, err := client.Consume(context.Background(), item.ID, 5, "ORD-1", "")
	if err != nil {
		t.Fatalf("fallback consume failed: %v", err)
	}

	if result.Atomic {
		t.Error("fallback result must report Atomic=false")
	}
	if result.PreviousStock != 20 || result.NewStock != 15 {
		t.Errorf("expected 20 -> 15, got %.1f -> %.1f", result.PreviousStock, result.NewStock)
	}
	if result.NewStatus != model.StatusMedium {
		t.Errorf("expected status %s, got %s", model.StatusMedium, result.NewStatus)
	}

	// The stock row must be touched by exactly one request: the OUT
	// movement. A PUT here would decrement the stock a second time once
	// the movement is applied server-side.
	var puts, movements int
	for _, req := range stub.requests {
		switch {
		case req == "POST /api/v1/transactions":
			movements++
		case len(req) > 4 && req[:4] == "PUT ":
			puts++
		}
	}
	if puts != 0 {
		t.Errorf("fallback must not PUT the item, saw %d PUTs in %v", puts, stub.requests)
	}
	if movements != 1 {
		t.Errorf("expected exactly 1 movement POST, got %d in %v", movements, stub.requests)
	}

	if len(stub.txBodies) != 1 {
		t.Fatalf("expected 1 recorded movement, got %d", len(stub.txBodies))
	}
	body := stub.txBodies[0]
	if body["type"] != string(model.TxOut) {
		t.Errorf("movement type = %v, want OUT", body["type"])
	}
	if q, _ := body["quantity"].(float64); q != 5 {
		t.Errorf("movement quantity = %v, want 5", body["quantity"])
	}
}

func TestConsumeFallbackInsufficientStockSendsNoMutation(t *testing.T) {
	item := testItem(3, 10)
	stub := &fallbackServer{item: item}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	_, err := client.Consume(context.Background(), item.ID, 5, "", "")

	var cerr *ConsumeError
	if !errors.As(err, &cerr) || cerr.Category != CategoryInsufficientStock {
		t.Fatalf("expected insufficient-stock error, got %v", err)
	}
	for _, req := range stub.requests {
		if req == "POST /api/v1/transactions" || (len(req) > 4 && req[:4] == "PUT ") {
			t.Errorf("rejected fallback must not mutate anything, saw %s", req)
		}
	}
}

func TestConsumeFallbackMovementRejectionPropagates(t *testing.T) {
	item := testItem(20, 10)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/items/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(item)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Cannot POST " + r.URL.Path))
	})
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		// Another writer drained the stock between read and movement.
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "insufficient stock: available 2.0, requested 5.0"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	_, err := client.Consume(context.Background(), item.ID, 5, "", "")

	var cerr *ConsumeError
	if !errors.As(err, &cerr) || cerr.Category != CategoryInsufficientStock {
		t.Fatalf("expected insufficient-stock error from movement rejection, got %v", err)
	}
}
