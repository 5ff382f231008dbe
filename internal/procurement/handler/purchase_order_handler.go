package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler 采购订单处理器
type PurchaseOrderHandler struct {
	svc    *service.PurchaseOrderService
	export *service.ExportService
}

func NewPurchaseOrderHandler(svc *service.PurchaseOrderService, export *service.ExportService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc, export: export}
}

// List 采购订单列表
// GET /api/v1/purchase-orders?vendor_id=xxx&requisition_id=xxx&status=xxx&type=xxx&search=xxx
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "vendor_id", "requisition_id", "status", "type", "search")
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Export 导出采购订单
// GET /api/v1/purchase-orders/export
func (h *PurchaseOrderHandler) Export(c *gin.Context) {
	filters := queryFilters(c, "vendor_id", "requisition_id", "status", "type", "search")
	f, filename, err := h.export.ExportPurchaseOrders(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, "导出失败", err)
		return
	}
	writeWorkbook(c, f, filename)
}

// Get 采购订单详情
// GET /api/v1/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取采购订单失败", err)
		return
	}
	Success(c, po)
}

// Create 手工创建采购订单
// POST /api/v1/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	po, err := h.svc.Create(c.Request.Context(), GetOperator(c), &req)
	if err != nil {
		HandleError(c, "创建采购订单失败", err)
		return
	}
	Created(c, po)
}

// Approve 审批
// POST /api/v1/purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	po, err := h.svc.Approve(c.Request.Context(), GetOperator(c), c.Param("id"))
	if err != nil {
		HandleError(c, "审批失败", err)
		return
	}
	Success(c, po)
}

// MarkOrdered 标记已下单
// POST /api/v1/purchase-orders/:id/order
func (h *PurchaseOrderHandler) MarkOrdered(c *gin.Context) {
	po, err := h.svc.MarkOrdered(c.Request.Context(), GetOperator(c), c.Param("id"))
	if err != nil {
		HandleError(c, "下单失败", err)
		return
	}
	Success(c, po)
}

// Complete 完结
// POST /api/v1/purchase-orders/:id/complete
func (h *PurchaseOrderHandler) Complete(c *gin.Context) {
	po, err := h.svc.Complete(c.Request.Context(), GetOperator(c), c.Param("id"))
	if err != nil {
		HandleError(c, "完结失败", err)
		return
	}
	Success(c, po)
}

// Cancel 取消
// POST /api/v1/purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	var req service.CancelPORequest
	_ = c.ShouldBindJSON(&req)
	po, err := h.svc.Cancel(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "取消失败", err)
		return
	}
	Success(c, po)
}

// CreateDelivery 创建交货单
// POST /api/v1/purchase-orders/:id/deliveries
func (h *PurchaseOrderHandler) CreateDelivery(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BindError(c, err)
			return
		}
	}
	d, err := h.svc.CreateDelivery(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "创建交货单失败", err)
		return
	}
	Created(c, d)
}
