package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField maps a caller supplied sort key to a column from the
// whitelist. The boolean is false when the key is empty or unknown.
func ValidateSortField(sortField string, allowedFields map[string]string) (string, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(sortField))
	if trimmed == "" {
		return "", false
	}
	column, ok := allowedFields[trimmed]
	return column, ok
}

// BatchSortFields contains allowed sort fields for lot listings
var BatchSortFields = map[string]string{
	"created_at":         "created_at",
	"received_date":      "received_date",
	"expiry_date":        "expiry_date",
	"batch_number":       "batch_number",
	"lot_number":         "lot_number",
	"quantity_available": "quantity_available",
}
