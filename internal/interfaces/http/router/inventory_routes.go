package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rxsupply/backend/internal/interfaces/http/handler"
)

// InventoryRoutes builds the /inventory route group. read and write guard
// queries and mutations respectively; either may be nil when auth is off.
func InventoryRoutes(h *handler.BatchHandler, read, write gin.HandlerFunc) *DomainGroup {
	guard := func(mw gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
		if mw == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{mw, fn}
	}

	inv := NewDomainGroup("inventory", "/inventory")

	batches := inv.Group("batches", "/batches")
	batches.POST("", guard(write, h.CreateBatch)...)
	batches.GET("", guard(read, h.ListBatches)...)
	batches.GET("/expiring", guard(read, h.GetExpiring)...)
	batches.GET("/:id", guard(read, h.GetBatch)...)
	batches.GET("/:id/transactions", guard(read, h.GetTransactions)...)
	batches.POST("/:id/expire", guard(write, h.MarkExpired)...)
	batches.POST("/:id/damage", guard(write, h.MarkDamaged)...)
	batches.POST("/:id/adjust", guard(write, h.AdjustQuantity)...)
	batches.POST("/:id/return", guard(write, h.ReturnUnits)...)

	sizes := inv.Group("sizes", "/sizes/:size_id")
	sizes.GET("/batches", guard(read, h.GetAvailableBatches)...)
	sizes.GET("/available", guard(read, h.GetAvailableQuantity)...)
	sizes.GET("/value", guard(read, h.GetInventoryValue)...)
	sizes.POST("/reconcile", guard(write, h.Reconcile)...)

	inv.POST("/allocations", guard(read, h.Allocate)...)
	inv.POST("/deductions", guard(write, h.Deduct)...)
	inv.POST("/fulfillments", guard(write, h.Fulfill)...)

	return inv
}
