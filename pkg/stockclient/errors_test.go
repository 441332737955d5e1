package stockclient

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		status int
		detail string
		want   Category
	}{
		{"insufficient stock", 409, "insufficient stock: available 5.0, requested 10.0", CategoryInsufficientStock},
		{"item not found", 404, "item not found", CategoryItemNotFound},
		{"invalid quantity", 400, "quantity must be greater than 0", CategoryInvalidQuantity},
		{"missing token", 401, "Missing authorization token", CategoryAuthMissing},
		{"forbidden", 403, "Forbidden: requires 'item:consume' privilege", CategoryPermissionDenied},
		{"procedure missing", 404, "function process_inventory_consumption does not exist", CategoryServiceUnavailable},
		{"unavailable", 503, "service unavailable", CategoryServiceUnavailable},
		{"server error", 500, "pq: deadlock detected", CategoryUnknown},
		{"unmatched", 400, "something odd", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorize(tt.status, tt.detail)
			if got.Category != tt.want {
				t.Errorf("categorize(%d, %q) = %s, want %s", tt.status, tt.detail, got.Category, tt.want)
			}
			if got.Detail != tt.detail {
				t.Errorf("raw detail not preserved: %q", got.Detail)
			}
			if got.Message == tt.detail && tt.want != CategoryUnknown {
				t.Error("raw detail leaked into the user-facing message")
			}
		})
	}
}

func TestConsumeError_UserMessageIsFixed(t *testing.T) {
	err := newConsumeError(CategoryInsufficientStock, "available 2.0, requested 7.5")
	if err.Error() != "Onvoldoende voorraad beschikbaar" {
		t.Errorf("unexpected user message: %q", err.Error())
	}
}
