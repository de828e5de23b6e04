package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/rxsupply/backend/internal/application/inventory"
	"github.com/rxsupply/backend/internal/domain/inventory"
)

// BatchService is the lot inventory use-case surface the handler drives
type BatchService interface {
	CreateBatch(ctx context.Context, req inventoryapp.CreateBatchRequest) (*inventoryapp.BatchResponse, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*inventoryapp.BatchResponse, error)
	ListBatches(ctx context.Context, filter inventoryapp.BatchListFilter) (*inventoryapp.BatchListResult, error)
	MarkBatchExpired(ctx context.Context, batchID uuid.UUID, req inventoryapp.StatusChangeRequest) (*inventoryapp.BatchResponse, error)
	MarkBatchDamaged(ctx context.Context, batchID uuid.UUID, req inventoryapp.StatusChangeRequest) (*inventoryapp.BatchResponse, error)
	AdjustBatchQuantity(ctx context.Context, batchID uuid.UUID, req inventoryapp.AdjustBatchRequest) (*inventoryapp.BatchResponse, error)
	ReturnToBatch(ctx context.Context, batchID uuid.UUID, req inventoryapp.ReturnToBatchRequest) (*inventoryapp.BatchResponse, error)
	GetBatchTransactions(ctx context.Context, batchID uuid.UUID) ([]inventoryapp.BatchTransactionResponse, error)
	GetExpiringBatches(ctx context.Context, days int) ([]inventoryapp.BatchResponse, error)
	GetAvailableBatches(ctx context.Context, productSizeID uuid.UUID) ([]inventoryapp.BatchResponse, error)
	GetTotalAvailableQuantity(ctx context.Context, productSizeID uuid.UUID) (int, error)
	GetInventoryValue(ctx context.Context, productSizeID uuid.UUID) (*inventoryapp.InventoryValueResponse, error)
	ReconcileStock(ctx context.Context, productSizeID uuid.UUID) (*inventoryapp.ReconcileResult, error)
	AllocateQuantity(ctx context.Context, productSizeID uuid.UUID, requested int) ([]inventory.Allocation, error)
	DeductFromBatches(ctx context.Context, allocations []inventory.Allocation, meta inventory.TransactionMeta) error
	AllocateAndDeduct(ctx context.Context, productSizeID uuid.UUID, requested int, meta inventory.TransactionMeta) ([]inventory.Allocation, error)
}

// BatchHandler handles lot inventory API endpoints
type BatchHandler struct {
	BaseHandler
	service            BatchService
	expiringWindowDays int
}

// NewBatchHandler creates a new BatchHandler. expiringWindowDays is used
// when GET /batches/expiring is called without ?days.
func NewBatchHandler(service BatchService, expiringWindowDays int) *BatchHandler {
	return &BatchHandler{
		service:            service,
		expiringWindowDays: expiringWindowDays,
	}
}

// ===================== Lots =====================

// CreateBatch godoc
// @ID           createBatch
// @Summary      Receive a lot
// @Description  Record a newly received lot for a product size and add its quantity to the size stock. Expiry and manufacturing dates are YYYY-MM-DD.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateBatchRequest true "Lot details"
// @Success      201 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches [post]
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req inventoryapp.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PerformedBy = performedBy(c)

	batch, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, batch)
}

// GetBatch godoc
// @ID           getBatch
// @Summary      Get lot by ID
// @Tags         batches
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// ListBatchesQuery is the query string of GET /batches
type ListBatchesQuery struct {
	Search        string `form:"search" binding:"max=100"`
	ProductID     string `form:"product_id" binding:"omitempty,uuid"`
	ProductSizeID string `form:"product_size_id" binding:"omitempty,uuid"`
	SupplierID    string `form:"supplier_id" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=active expired damaged"`
	HasStock      *bool  `form:"has_stock"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q ListBatchesQuery) toFilter() (inventoryapp.BatchListFilter, error) {
	filter := inventoryapp.BatchListFilter{
		Search:   q.Search,
		Status:   q.Status,
		HasStock: q.HasStock,
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
	for _, f := range []struct {
		raw    string
		target **uuid.UUID
	}{
		{q.ProductID, &filter.ProductID},
		{q.ProductSizeID, &filter.ProductSizeID},
		{q.SupplierID, &filter.SupplierID},
	} {
		if f.raw == "" {
			continue
		}
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return filter, err
		}
		*f.target = &id
	}
	return filter, nil
}

// ListBatches godoc
// @ID           listBatches
// @Summary      List lots
// @Description  Page through lots filtered by product, size, supplier, status or remaining stock
// @Tags         batches
// @Produce      json
// @Param        search query string false "Lot or batch number contains"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        product_size_id query string false "Product size ID" format(uuid)
// @Param        supplier_id query string false "Supplier ID" format(uuid)
// @Param        status query string false "Lot status" Enums(active, expired, damaged)
// @Param        has_stock query bool false "Only lots with available units"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Sort field" default(created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	var query ListBatchesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.Size)
}

// MarkExpired godoc
// @ID           expireBatch
// @Summary      Mark a lot expired
// @Description  Take an active lot out of the sellable stock. Its remaining units stay recorded on the lot.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Param        request body inventoryapp.StatusChangeRequest false "Notes"
// @Success      200 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id}/expire [post]
func (h *BatchHandler) MarkExpired(c *gin.Context) {
	batchID, req, ok := h.bindStatusChange(c)
	if !ok {
		return
	}

	batch, err := h.service.MarkBatchExpired(c.Request.Context(), batchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// MarkDamaged godoc
// @ID           damageBatch
// @Summary      Write a lot off as damaged
// @Description  Write off the remaining units of a lot
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Param        request body inventoryapp.StatusChangeRequest false "Notes"
// @Success      200 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id}/damage [post]
func (h *BatchHandler) MarkDamaged(c *gin.Context) {
	batchID, req, ok := h.bindStatusChange(c)
	if !ok {
		return
	}

	batch, err := h.service.MarkBatchDamaged(c.Request.Context(), batchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// bindStatusChange reads the lot ID and the optional notes body
func (h *BatchHandler) bindStatusChange(c *gin.Context) (uuid.UUID, inventoryapp.StatusChangeRequest, bool) {
	var req inventoryapp.StatusChangeRequest
	batchID, ok := h.parseIDParam(c, "id")
	if !ok {
		return uuid.Nil, req, false
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return uuid.Nil, req, false
		}
	}
	req.PerformedBy = performedBy(c)
	return batchID, req, true
}

// AdjustQuantity godoc
// @ID           adjustBatch
// @Summary      Adjust lot quantity
// @Description  Apply a signed correction to the available units of an active lot
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Param        request body inventoryapp.AdjustBatchRequest true "Correction"
// @Success      200 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id}/adjust [post]
func (h *BatchHandler) AdjustQuantity(c *gin.Context) {
	batchID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AdjustBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PerformedBy = performedBy(c)

	batch, err := h.service.AdjustBatchQuantity(c.Request.Context(), batchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// ReturnUnits godoc
// @ID           returnToBatch
// @Summary      Return units to a lot
// @Description  Put customer-returned units back into the lot they were sold from
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Param        request body inventoryapp.ReturnToBatchRequest true "Returned units"
// @Success      200 {object} APIResponse[inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id}/return [post]
func (h *BatchHandler) ReturnUnits(c *gin.Context) {
	batchID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.ReturnToBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PerformedBy = performedBy(c)

	batch, err := h.service.ReturnToBatch(c.Request.Context(), batchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// GetTransactions godoc
// @ID           getBatchTransactions
// @Summary      Lot movement history
// @Description  Audit records of a lot, newest first
// @Tags         batches
// @Produce      json
// @Param        id path string true "Lot ID" format(uuid)
// @Success      200 {object} APIResponse[[]inventoryapp.BatchTransactionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/{id}/transactions [get]
func (h *BatchHandler) GetTransactions(c *gin.Context) {
	batchID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	txs, err := h.service.GetBatchTransactions(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, txs)
}

// GetExpiring godoc
// @ID           getExpiringBatches
// @Summary      Lots expiring soon
// @Description  Active lots with stock whose expiry date is on or before today plus the given number of days
// @Tags         batches
// @Produce      json
// @Param        days query int false "Window in days" minimum(0)
// @Success      200 {object} APIResponse[[]inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/batches/expiring [get]
func (h *BatchHandler) GetExpiring(c *gin.Context) {
	days := h.expiringWindowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "days must be an integer")
			return
		}
		days = parsed
	}

	batches, err := h.service.GetExpiringBatches(c.Request.Context(), days)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// ===================== Product sizes =====================

// GetAvailableBatches godoc
// @ID           getAvailableBatches
// @Summary      Sellable lots of a size
// @Description  Active lots with available units, earliest expiry first
// @Tags         sizes
// @Produce      json
// @Param        size_id path string true "Product size ID" format(uuid)
// @Success      200 {object} APIResponse[[]inventoryapp.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/sizes/{size_id}/batches [get]
func (h *BatchHandler) GetAvailableBatches(c *gin.Context) {
	sizeID, ok := h.parseIDParam(c, "size_id")
	if !ok {
		return
	}

	batches, err := h.service.GetAvailableBatches(c.Request.Context(), sizeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// GetAvailableQuantity godoc
// @ID           getAvailableQuantity
// @Summary      Available units of a size
// @Tags         sizes
// @Produce      json
// @Param        size_id path string true "Product size ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.AvailableQuantityResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/sizes/{size_id}/available [get]
func (h *BatchHandler) GetAvailableQuantity(c *gin.Context) {
	sizeID, ok := h.parseIDParam(c, "size_id")
	if !ok {
		return
	}

	total, err := h.service.GetTotalAvailableQuantity(c.Request.Context(), sizeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inventoryapp.AvailableQuantityResponse{ProductSizeID: sizeID, Available: total})
}

// GetInventoryValue godoc
// @ID           getInventoryValue
// @Summary      Cost value of a size's stock
// @Tags         sizes
// @Produce      json
// @Param        size_id path string true "Product size ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.InventoryValueResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/sizes/{size_id}/value [get]
func (h *BatchHandler) GetInventoryValue(c *gin.Context) {
	sizeID, ok := h.parseIDParam(c, "size_id")
	if !ok {
		return
	}

	value, err := h.service.GetInventoryValue(c.Request.Context(), sizeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, value)
}

// Reconcile godoc
// @ID           reconcileStock
// @Summary      Recompute a size's stock counter
// @Description  Reset the size stock counter to the sum of its active lots and report the drift
// @Tags         sizes
// @Produce      json
// @Param        size_id path string true "Product size ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.ReconcileResult]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/sizes/{size_id}/reconcile [post]
func (h *BatchHandler) Reconcile(c *gin.Context) {
	sizeID, ok := h.parseIDParam(c, "size_id")
	if !ok {
		return
	}

	result, err := h.service.ReconcileStock(c.Request.Context(), sizeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ===================== Allocation and deduction =====================

// Allocate godoc
// @ID           allocateQuantity
// @Summary      Plan an allocation
// @Description  Compute which lots cover the requested quantity. Nothing is reserved.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.AllocateRequest true "Size and quantity"
// @Success      200 {object} APIResponse[inventoryapp.AllocationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/allocations [post]
func (h *BatchHandler) Allocate(c *gin.Context) {
	var req inventoryapp.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	allocations, err := h.service.AllocateQuantity(c.Request.Context(), req.ProductSizeID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inventoryapp.ToAllocationResult(allocations, ""))
}

// Deduct godoc
// @ID           deductFromBatches
// @Summary      Commit an allocation plan
// @Description  Decrement every listed lot in one transaction. If any lot no longer holds its allocated quantity nothing is written.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.DeductRequest true "Allocation plan"
// @Success      200 {object} APIResponse[DeductionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/deductions [post]
func (h *BatchHandler) Deduct(c *gin.Context) {
	var req inventoryapp.DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PerformedBy = performedBy(c)

	allocations := req.ToAllocations()
	if err := h.service.DeductFromBatches(c.Request.Context(), allocations, req.Meta()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DeductionResponse{
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Lines:         len(allocations),
		TotalQuantity: inventory.TotalAllocated(allocations),
	})
}

// Fulfill godoc
// @ID           fulfillQuantity
// @Summary      Allocate and deduct
// @Description  Allocate the requested quantity and deduct it in one transaction
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.FulfillRequest true "Size, quantity and reference"
// @Success      200 {object} APIResponse[inventoryapp.AllocationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/fulfillments [post]
func (h *BatchHandler) Fulfill(c *gin.Context) {
	var req inventoryapp.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PerformedBy = performedBy(c)

	allocations, err := h.service.AllocateAndDeduct(c.Request.Context(), req.ProductSizeID, req.Quantity, req.Meta())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inventoryapp.ToAllocationResult(allocations, req.ReferenceID))
}
