package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/rxsupply/backend/internal/application/inventory"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/interfaces/http/dto"
	"github.com/rxsupply/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// setupBatchRouter mounts the handler the way the server does, with an
// optional authenticated user
func setupBatchRouter(svc *MockBatchService, userID *uuid.UUID) *gin.Engine {
	middleware.SetupValidator()
	h := NewBatchHandler(svc, 30)
	engine := gin.New()
	engine.Use(middleware.RequestID())
	if userID != nil {
		engine.Use(func(c *gin.Context) {
			c.Set(middleware.JWTUserIDKey, userID.String())
			c.Next()
		})
	}

	inv := engine.Group("/api/v1/inventory")
	inv.POST("/batches", h.CreateBatch)
	inv.GET("/batches", h.ListBatches)
	inv.GET("/batches/expiring", h.GetExpiring)
	inv.GET("/batches/:id", h.GetBatch)
	inv.POST("/batches/:id/expire", h.MarkExpired)
	inv.POST("/batches/:id/damage", h.MarkDamaged)
	inv.POST("/batches/:id/adjust", h.AdjustQuantity)
	inv.POST("/batches/:id/return", h.ReturnUnits)
	inv.GET("/batches/:id/transactions", h.GetTransactions)
	inv.GET("/sizes/:size_id/batches", h.GetAvailableBatches)
	inv.GET("/sizes/:size_id/available", h.GetAvailableQuantity)
	inv.GET("/sizes/:size_id/value", h.GetInventoryValue)
	inv.POST("/sizes/:size_id/reconcile", h.Reconcile)
	inv.POST("/allocations", h.Allocate)
	inv.POST("/deductions", h.Deduct)
	inv.POST("/fulfillments", h.Fulfill)
	return engine
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func sampleBatch() *inventoryapp.BatchResponse {
	expiry := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	return &inventoryapp.BatchResponse{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		ProductSizeID:     uuid.New(),
		BatchNumber:       "B-1001",
		LotNumber:         "L-1001",
		ExpiryDate:        &expiry,
		Quantity:          50,
		QuantityAvailable: 50,
		Status:            "active",
	}
}

func TestBatchHandler_CreateBatch(t *testing.T) {
	t.Run("creates lot with performer from token", func(t *testing.T) {
		svc := new(MockBatchService)
		userID := uuid.New()
		sizeID := uuid.New()
		created := sampleBatch()
		svc.On("CreateBatch", mock.Anything, mock.MatchedBy(func(req inventoryapp.CreateBatchRequest) bool {
			return req.ProductSizeID == sizeID && req.Quantity == 50 &&
				req.PerformedBy != nil && *req.PerformedBy == userID
		})).Return(created, nil)

		w := doRequest(setupBatchRouter(svc, &userID), http.MethodPost, "/api/v1/inventory/batches", map[string]any{
			"product_size_id": sizeID,
			"batch_number":    "B-1001",
			"lot_number":      "L-1001",
			"expiry_date":     "2026-06-30T00:00:00Z",
			"quantity":        50,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, created.ID.String(), data["id"])
		svc.AssertExpectations(t)
	})

	t.Run("accepts calendar dates", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("CreateBatch", mock.Anything, mock.MatchedBy(func(req inventoryapp.CreateBatchRequest) bool {
			return req.ExpiryDate != nil &&
				req.ExpiryDate.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) &&
				req.ManufacturingDate != nil &&
				req.ManufacturingDate.Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
		})).Return(sampleBatch(), nil)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches", map[string]any{
			"product_size_id":    uuid.New(),
			"batch_number":       "B-1002",
			"manufacturing_date": "2024-08-01",
			"expiry_date":        "2025-02-01",
			"quantity":           10,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects malformed expiry date", func(t *testing.T) {
		svc := new(MockBatchService)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches", map[string]any{
			"product_size_id": uuid.New(),
			"batch_number":    "B-1003",
			"expiry_date":     "01/02/2025",
			"quantity":        10,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("rejects zero quantity with field details", func(t *testing.T) {
		svc := new(MockBatchService)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches", map[string]any{
			"product_size_id": uuid.New(),
			"batch_number":    "B-1",
			"quantity":        -3,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "quantity", resp.Error.Details[0].Field)
		assert.NotEmpty(t, resp.Error.RequestID)
		svc.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		svc := new(MockBatchService)
		engine := setupBatchRouter(svc, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/batches", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown size is not found", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("CreateBatch", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches", map[string]any{
			"product_size_id": uuid.New(),
			"batch_number":    "B-1",
			"quantity":        5,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBatchHandler_GetBatch(t *testing.T) {
	svc := new(MockBatchService)
	batch := sampleBatch()
	svc.On("GetBatch", mock.Anything, batch.ID).Return(batch, nil)
	engine := setupBatchRouter(svc, nil)

	w := doRequest(engine, http.MethodGet, "/api/v1/inventory/batches/"+batch.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/api/v1/inventory/batches/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "GetBatch", 1)
}

func TestBatchHandler_ListBatches(t *testing.T) {
	svc := new(MockBatchService)
	sizeID := uuid.New()
	svc.On("ListBatches", mock.Anything, mock.MatchedBy(func(f inventoryapp.BatchListFilter) bool {
		return f.ProductSizeID != nil && *f.ProductSizeID == sizeID && f.Status == "active" && f.Page == 2
	})).Return(&inventoryapp.BatchListResult{
		Items: []inventoryapp.BatchResponse{*sampleBatch()},
		Total: 21,
		Page:  2,
		Size:  20,
	}, nil)
	engine := setupBatchRouter(svc, nil)

	w := doRequest(engine, http.MethodGet, "/api/v1/inventory/batches?status=active&page=2&product_size_id="+sizeID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = doRequest(engine, http.MethodGet, "/api/v1/inventory/batches?status=recalled", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandler_StatusChanges(t *testing.T) {
	t.Run("expire without body", func(t *testing.T) {
		svc := new(MockBatchService)
		batch := sampleBatch()
		batch.Status = "expired"
		svc.On("MarkBatchExpired", mock.Anything, batch.ID, inventoryapp.StatusChangeRequest{}).Return(batch, nil)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches/"+batch.ID.String()+"/expire", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("damage with notes on inactive lot", func(t *testing.T) {
		svc := new(MockBatchService)
		batchID := uuid.New()
		svc.On("MarkBatchDamaged", mock.Anything, batchID, mock.MatchedBy(func(req inventoryapp.StatusChangeRequest) bool {
			return req.Notes == "crushed in transit"
		})).Return(nil, shared.NewDomainError(inventory.CodeBatchNotActive, "Lot is expired"))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches/"+batchID.String()+"/damage",
			map[string]any{"notes": "crushed in transit"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeBatchNotActive, decodeResponse(t, w).Error.Code)
	})
}

func TestBatchHandler_AdjustQuantity(t *testing.T) {
	t.Run("negative result", func(t *testing.T) {
		svc := new(MockBatchService)
		batchID := uuid.New()
		svc.On("AdjustBatchQuantity", mock.Anything, batchID, mock.MatchedBy(func(req inventoryapp.AdjustBatchRequest) bool {
			return req.Delta == -80
		})).Return(nil, shared.NewDomainError(inventory.CodeNegativeQuantity, "Adjustment would make quantity negative"))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches/"+batchID.String()+"/adjust",
			map[string]any{"delta": -80, "notes": "cycle count"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeNegativeQuantity, decodeResponse(t, w).Error.Code)
	})

	t.Run("zero delta reaches service", func(t *testing.T) {
		svc := new(MockBatchService)
		batchID := uuid.New()
		svc.On("AdjustBatchQuantity", mock.Anything, batchID, mock.Anything).
			Return(nil, shared.NewDomainError(inventory.CodeInvalidQuantity, "Adjustment must not be zero"))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches/"+batchID.String()+"/adjust",
			map[string]any{"delta": 0})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidQuantity, decodeResponse(t, w).Error.Code)
	})
}

func TestBatchHandler_ReturnUnits(t *testing.T) {
	svc := new(MockBatchService)
	batch := sampleBatch()
	svc.On("ReturnToBatch", mock.Anything, batch.ID, mock.MatchedBy(func(req inventoryapp.ReturnToBatchRequest) bool {
		return req.Quantity == 2 && req.ReferenceID == "RMA-7"
	})).Return(batch, nil)

	w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/batches/"+batch.ID.String()+"/return",
		map[string]any{"quantity": 2, "reference_id": "RMA-7", "reference_type": "return"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestBatchHandler_GetTransactions(t *testing.T) {
	svc := new(MockBatchService)
	batchID := uuid.New()
	svc.On("GetBatchTransactions", mock.Anything, batchID).Return([]inventoryapp.BatchTransactionResponse{
		{ID: uuid.New(), BatchID: batchID, TransactionType: "sale", Quantity: 3},
		{ID: uuid.New(), BatchID: batchID, TransactionType: "receive", Quantity: 10},
	}, nil)

	w := doRequest(setupBatchRouter(svc, nil), http.MethodGet, "/api/v1/inventory/batches/"+batchID.String()+"/transactions", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResponse(t, w).Data, 2)
}

func TestBatchHandler_GetExpiring(t *testing.T) {
	t.Run("uses configured window by default", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("GetExpiringBatches", mock.Anything, 30).Return([]inventoryapp.BatchResponse{}, nil)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodGet, "/api/v1/inventory/batches/expiring", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("explicit days", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("GetExpiringBatches", mock.Anything, 7).Return([]inventoryapp.BatchResponse{*sampleBatch()}, nil)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodGet, "/api/v1/inventory/batches/expiring?days=7", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("non-numeric days", func(t *testing.T) {
		svc := new(MockBatchService)
		w := doRequest(setupBatchRouter(svc, nil), http.MethodGet, "/api/v1/inventory/batches/expiring?days=soon", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative days rejected by service", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("GetExpiringBatches", mock.Anything, -1).Return(nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Days must not be negative"))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodGet, "/api/v1/inventory/batches/expiring?days=-1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}

func TestBatchHandler_SizeQueries(t *testing.T) {
	svc := new(MockBatchService)
	sizeID := uuid.New()
	svc.On("GetAvailableBatches", mock.Anything, sizeID).Return([]inventoryapp.BatchResponse{*sampleBatch()}, nil)
	svc.On("GetTotalAvailableQuantity", mock.Anything, sizeID).Return(42, nil)
	svc.On("GetInventoryValue", mock.Anything, sizeID).Return(&inventoryapp.InventoryValueResponse{ProductSizeID: sizeID, Available: 42, LotCount: 2}, nil)
	svc.On("ReconcileStock", mock.Anything, sizeID).Return(&inventoryapp.ReconcileResult{ProductSizeID: sizeID, PreviousStock: 40, Stock: 42, Drift: -2}, nil)
	engine := setupBatchRouter(svc, nil)
	base := "/api/v1/inventory/sizes/" + sizeID.String()

	w := doRequest(engine, http.MethodGet, base+"/batches", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, base+"/available", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(42), data["available"])

	w = doRequest(engine, http.MethodGet, base+"/value", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodPost, base+"/reconcile", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(-2), data["drift"])

	svc.AssertExpectations(t)
}

func TestBatchHandler_Allocate(t *testing.T) {
	t.Run("returns plan", func(t *testing.T) {
		svc := new(MockBatchService)
		sizeID := uuid.New()
		svc.On("AllocateQuantity", mock.Anything, sizeID, 12).Return([]inventory.Allocation{
			{BatchID: uuid.New(), ProductSizeID: sizeID, LotNumber: "L-1", Quantity: 10},
			{BatchID: uuid.New(), ProductSizeID: sizeID, LotNumber: "L-2", Quantity: 2},
		}, nil)

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/allocations",
			map[string]any{"product_size_id": sizeID, "quantity": 12})

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, float64(12), data["total_quantity"])
		assert.Len(t, data["allocations"], 2)
	})

	t.Run("shortfall", func(t *testing.T) {
		svc := new(MockBatchService)
		sizeID := uuid.New()
		svc.On("AllocateQuantity", mock.Anything, sizeID, 12).Return(nil, inventory.NewInsufficientStockError(12, 4))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/allocations",
			map[string]any{"product_size_id": sizeID, "quantity": 12})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
		assert.Equal(t, 8, resp.Error.Shortfall.Shortfall)
	})
}

func TestBatchHandler_Deduct(t *testing.T) {
	t.Run("commits plan", func(t *testing.T) {
		svc := new(MockBatchService)
		userID := uuid.New()
		lotA, lotB := uuid.New(), uuid.New()
		svc.On("DeductFromBatches", mock.Anything,
			[]inventory.Allocation{{BatchID: lotA, Quantity: 5}, {BatchID: lotB, Quantity: 3}},
			mock.MatchedBy(func(meta inventory.TransactionMeta) bool {
				return meta.ReferenceID == "ORD-9" && meta.ReferenceType == "order" &&
					meta.PerformedBy != nil && *meta.PerformedBy == userID
			}),
		).Return(nil)

		w := doRequest(setupBatchRouter(svc, &userID), http.MethodPost, "/api/v1/inventory/deductions", map[string]any{
			"allocations":    []map[string]any{{"batch_id": lotA, "quantity": 5}, {"batch_id": lotB, "quantity": 3}},
			"reference_id":   "ORD-9",
			"reference_type": "order",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, float64(8), data["total_quantity"])
		assert.Equal(t, float64(2), data["lines"])
		svc.AssertExpectations(t)
	})

	t.Run("empty plan rejected", func(t *testing.T) {
		svc := new(MockBatchService)
		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/deductions",
			map[string]any{"allocations": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate reference", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("DeductFromBatches", mock.Anything, mock.Anything, mock.Anything).
			Return(shared.NewDomainError(inventory.CodeDuplicateReference, "Reference already deducted"))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/deductions", map[string]any{
			"allocations":  []map[string]any{{"batch_id": uuid.New(), "quantity": 1}},
			"reference_id": "ORD-9",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("lot drained concurrently", func(t *testing.T) {
		svc := new(MockBatchService)
		svc.On("DeductFromBatches", mock.Anything, mock.Anything, mock.Anything).
			Return(inventory.NewInsufficientStockError(5, 1))

		w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/deductions", map[string]any{
			"allocations": []map[string]any{{"batch_id": uuid.New(), "quantity": 5}},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestBatchHandler_Fulfill(t *testing.T) {
	svc := new(MockBatchService)
	sizeID := uuid.New()
	svc.On("AllocateAndDeduct", mock.Anything, sizeID, 4, mock.MatchedBy(func(meta inventory.TransactionMeta) bool {
		return meta.ReferenceID == "ORD-10"
	})).Return([]inventory.Allocation{{BatchID: uuid.New(), ProductSizeID: sizeID, Quantity: 4}}, nil)

	w := doRequest(setupBatchRouter(svc, nil), http.MethodPost, "/api/v1/inventory/fulfillments",
		map[string]any{"product_size_id": sizeID, "quantity": 4, "reference_id": "ORD-10", "reference_type": "order"})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "ORD-10", data["reference_id"])
	svc.AssertExpectations(t)
}
