package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/interfaces/http/dto"
	"github.com/rxsupply/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	t.Run("from middleware context", func(t *testing.T) {
		c, _ := newTestContext()
		c.Set(middleware.RequestIDKey, "ctx-id")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "ctx-id", getRequestID(c))
	})

	t.Run("falls back to header", func(t *testing.T) {
		c, _ := newTestContext()
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "header-id", getRequestID(c))
	})
}

func TestPerformedBy(t *testing.T) {
	c, _ := newTestContext()
	assert.Nil(t, performedBy(c))

	c.Set(middleware.JWTUserIDKey, "not-a-uuid")
	assert.Nil(t, performedBy(c))

	userID := uuid.New()
	c.Set(middleware.JWTUserIDKey, userID.String())
	require.NotNil(t, performedBy(c))
	assert.Equal(t, userID, *performedBy(c))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid quantity", shared.NewDomainError(inventory.CodeInvalidQuantity, "bad"), http.StatusBadRequest, dto.ErrCodeInvalidQuantity},
		{"negative quantity", shared.NewDomainError(inventory.CodeNegativeQuantity, "bad"), http.StatusUnprocessableEntity, dto.ErrCodeNegativeQuantity},
		{"lot not active", shared.NewDomainError(inventory.CodeBatchNotActive, "expired"), http.StatusUnprocessableEntity, dto.ErrCodeBatchNotActive},
		{"duplicate reference", shared.NewDomainError(inventory.CodeDuplicateReference, "dup"), http.StatusConflict, dto.ErrCodeDuplicateReference},
		{"wrapped domain error", fmt.Errorf("deduct: %w", shared.ErrInvalidState), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"unknown error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			c.Set(middleware.RequestIDKey, "req-1")

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestHandleError_InsufficientStockCarriesShortfall(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, fmt.Errorf("allocate: %w", inventory.NewInsufficientStockError(12, 7)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	require.NotNil(t, resp.Error.Shortfall)
	assert.Equal(t, dto.ShortfallInfo{Requested: 12, Available: 7, Shortfall: 5}, *resp.Error.Shortfall)
}

func TestHandleError_NilWritesNothing(t *testing.T) {
	c, w := newTestContext()
	(&BaseHandler{}).HandleError(c, nil)
	assert.False(t, c.Writer.Written())
	assert.Equal(t, http.StatusOK, w.Code)
}
