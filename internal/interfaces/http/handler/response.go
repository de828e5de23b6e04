package handler

import "github.com/rxsupply/backend/internal/interfaces/http/dto"

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// DeductionResponse reports a committed deduction
// @Description Committed deduction summary
type DeductionResponse struct {
	ReferenceID   string `json:"reference_id,omitempty" example:"ORD-2025-0042"`
	ReferenceType string `json:"reference_type,omitempty" example:"order"`
	Lines         int    `json:"lines" example:"2"`
	TotalQuantity int    `json:"total_quantity" example:"12"`
}
