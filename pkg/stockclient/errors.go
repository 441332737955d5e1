package stockclient

import "strings"

// Category buckets a consumption failure for user-facing presentation.
type Category string

const (
	CategoryValidation         Category = "VALIDATION_ERROR"
	CategoryInsufficientStock  Category = "INSUFFICIENT_STOCK"
	CategoryItemNotFound       Category = "ITEM_NOT_FOUND"
	CategoryInvalidQuantity    Category = "INVALID_QUANTITY"
	CategoryPermissionDenied   Category = "PERMISSION_DENIED"
	CategoryAuthMissing        Category = "AUTHENTICATION_MISSING"
	CategoryServiceUnavailable Category = "SERVICE_UNAVAILABLE"
	CategoryNetwork            Category = "NETWORK_OR_TIMEOUT"
	CategoryUnknown            Category = "UNKNOWN"
)

// userMessages maps each category onto one fixed, localized sentence. The
// raw failure detail is never shown to the end user.
var userMessages = map[Category]string{
	CategoryValidation:         "Ongeldige invoer",
	CategoryInsufficientStock:  "Onvoldoende voorraad beschikbaar",
	CategoryItemNotFound:       "Artikel niet gevonden",
	CategoryInvalidQuantity:    "Hoeveelheid moet groter zijn dan 0",
	CategoryPermissionDenied:   "Gebruiker niet geautoriseerd",
	CategoryAuthMissing:        "Niet aangemeld - vernieuw de pagina en probeer opnieuw",
	CategoryServiceUnavailable: "Verbruik functie niet beschikbaar - neem contact op met de beheerder",
	CategoryNetwork:            "Netwerkfout - probeer het later opnieuw",
	CategoryUnknown:            "Er is een onverwachte fout opgetreden",
}

// ConsumeError is a categorized consumption failure. Message is safe to show
// to the end user; Detail carries the raw failure for diagnostics only.
type ConsumeError struct {
	Category Category
	Message  string
	Detail   string
}

func (e *ConsumeError) Error() string {
	return e.Message
}

func newConsumeError(category Category, detail string) *ConsumeError {
	return &ConsumeError{
		Category: category,
		Message:  userMessages[category],
		Detail:   detail,
	}
}

// categorize maps a raw failure signal (HTTP status plus failure detail) into
// a fixed bucket. Unmatched failures become CategoryUnknown with the raw
// detail preserved.
func categorize(status int, detail string) *ConsumeError {
	lower := strings.ToLower(detail)

	switch {
	case status == 401 || strings.Contains(lower, "not authenticated") || strings.Contains(lower, "missing authorization"):
		return newConsumeError(CategoryAuthMissing, detail)
	case status == 403 || strings.Contains(lower, "permission") || strings.Contains(lower, "forbidden"):
		return newConsumeError(CategoryPermissionDenied, detail)
	case strings.Contains(lower, "insufficient stock"):
		return newConsumeError(CategoryInsufficientStock, detail)
	case strings.Contains(lower, "quantity must be greater than 0"):
		return newConsumeError(CategoryInvalidQuantity, detail)
	case strings.Contains(lower, "not found") && (strings.Contains(lower, "item") || status == 404):
		return newConsumeError(CategoryItemNotFound, detail)
	case status == 503 || strings.Contains(lower, "does not exist"):
		return newConsumeError(CategoryServiceUnavailable, detail)
	case status >= 500:
		return newConsumeError(CategoryUnknown, detail)
	default:
		return newConsumeError(CategoryUnknown, detail)
	}
}
