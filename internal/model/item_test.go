package model

import "testing"

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		stock    float64
		minStock float64
		want     StockStatus
	}{
		{"zero stock", 0, 10, StatusEmpty},
		{"negative stock clamps to empty", -1, 10, StatusEmpty},
		{"just above zero", 0.5, 10, StatusLow},
		{"at min threshold", 10, 10, StatusLow},
		{"between min and twice min", 15, 10, StatusMedium},
		{"at twice min threshold", 20, 10, StatusMedium},
		{"just above twice min", 21, 10, StatusOK},
		{"well stocked", 100, 10, StatusOK},
		{"zero min stock, zero stock", 0, 0, StatusEmpty},
		{"zero min stock, any stock", 1, 0, StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusFor(tt.stock, tt.minStock)
			if got != tt.want {
				t.Errorf("StatusFor(%v, %v) = %s, want %s", tt.stock, tt.minStock, got, tt.want)
			}
		})
	}
}

func TestRecomputeStatus(t *testing.T) {
	item := InventoryItem{CurrentStock: 5, MinStock: 10, Status: StatusOK}
	item.RecomputeStatus()
	if item.Status != StatusLow {
		t.Errorf("expected LAAG after recompute, got %s", item.Status)
	}

	item.CurrentStock = 0
	item.RecomputeStatus()
	if item.Status != StatusEmpty {
		t.Errorf("expected UIT after recompute, got %s", item.Status)
	}
}
