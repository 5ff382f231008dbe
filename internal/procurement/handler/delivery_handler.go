package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler 交货单处理器
type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// List 交货单列表
// GET /api/v1/deliveries?po_id=xxx&status=xxx&type=xxx&search=xxx
func (h *DeliveryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c, "po_id", "status", "type", "search"))
	if err != nil {
		InternalError(c, "获取交货单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 交货单详情
// GET /api/v1/deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取交货单失败", err)
		return
	}
	Success(c, d)
}

// Receive 确认收货
// POST /api/v1/deliveries/:id/receive
func (h *DeliveryHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	_ = c.ShouldBindJSON(&req)
	d, err := h.svc.Receive(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "收货失败", err)
		return
	}
	Success(c, d)
}
