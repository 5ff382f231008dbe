package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// ClaimHandler 退货/返工处理器
type ClaimHandler struct {
	svc *service.ClaimService
}

func NewClaimHandler(svc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

// ListReturns 退货单列表
// GET /api/v1/returns?status=xxx&delivery_id=xxx&search=xxx
func (h *ClaimHandler) ListReturns(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListReturns(c.Request.Context(), page, pageSize, queryFilters(c, "status", "delivery_id", "search"))
	if err != nil {
		InternalError(c, "获取退货单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetReturn 退货单详情
// GET /api/v1/returns/:id
func (h *ClaimHandler) GetReturn(c *gin.Context) {
	ret, err := h.svc.GetReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取退货单失败", err)
		return
	}
	Success(c, ret)
}

// CreateReturn 创建退货单
// POST /api/v1/returns
func (h *ClaimHandler) CreateReturn(c *gin.Context) {
	var req service.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	ret, err := h.svc.CreateReturn(c.Request.Context(), GetOperator(c), &req)
	if err != nil {
		HandleError(c, "创建退货单失败", err)
		return
	}
	Created(c, ret)
}

// ApproveReturn 批准退货
// POST /api/v1/returns/:id/approve
func (h *ClaimHandler) ApproveReturn(c *gin.Context) {
	ret, err := h.svc.ApproveReturn(c.Request.Context(), GetOperator(c), c.Param("id"))
	if err != nil {
		HandleError(c, "批准退货失败", err)
		return
	}
	Success(c, ret)
}

// RejectReturn 驳回退货
// POST /api/v1/returns/:id/reject
func (h *ClaimHandler) RejectReturn(c *gin.Context) {
	var req service.RejectClaimRequest
	_ = c.ShouldBindJSON(&req)
	ret, err := h.svc.RejectReturn(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "驳回退货失败", err)
		return
	}
	Success(c, ret)
}

// ListReworks 返工单列表
// GET /api/v1/reworks?status=xxx&delivery_id=xxx&search=xxx
func (h *ClaimHandler) ListReworks(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListReworks(c.Request.Context(), page, pageSize, queryFilters(c, "status", "delivery_id", "search"))
	if err != nil {
		InternalError(c, "获取返工单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetRework 返工单详情
// GET /api/v1/reworks/:id
func (h *ClaimHandler) GetRework(c *gin.Context) {
	rw, err := h.svc.GetRework(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取返工单失败", err)
		return
	}
	Success(c, rw)
}

// DeliveryServices 交货单可返工服务行
// GET /api/reworks/delivery/:id/services
func (h *ClaimHandler) DeliveryServices(c *gin.Context) {
	items, err := h.svc.DeliveryServicesForRework(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取交货服务失败", err)
		return
	}
	Success(c, items)
}

// CreateRework 创建返工单
// POST /api/v1/reworks
func (h *ClaimHandler) CreateRework(c *gin.Context) {
	var req service.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	rw, err := h.svc.CreateRework(c.Request.Context(), GetOperator(c), &req)
	if err != nil {
		HandleError(c, "创建返工单失败", err)
		return
	}
	Created(c, rw)
}

// ApproveRework 批准返工
// POST /api/v1/reworks/:id/approve
func (h *ClaimHandler) ApproveRework(c *gin.Context) {
	rw, err := h.svc.ApproveRework(c.Request.Context(), GetOperator(c), c.Param("id"))
	if err != nil {
		HandleError(c, "批准返工失败", err)
		return
	}
	Success(c, rw)
}

// RejectRework 驳回返工
// POST /api/v1/reworks/:id/reject
func (h *ClaimHandler) RejectRework(c *gin.Context) {
	var req service.RejectClaimRequest
	_ = c.ShouldBindJSON(&req)
	rw, err := h.svc.RejectRework(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "驳回返工失败", err)
		return
	}
	Success(c, rw)
}

// DeleteRework 删除返工单（仅待审批）
// DELETE /api/v1/reworks/:id
func (h *ClaimHandler) DeleteRework(c *gin.Context) {
	if err := h.svc.DeleteRework(c.Request.Context(), GetOperator(c), c.Param("id")); err != nil {
		HandleError(c, "删除返工单失败", err)
		return
	}
	Success(c, nil)
}
