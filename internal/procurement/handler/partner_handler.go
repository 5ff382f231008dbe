package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// PartnerHandler 商家/供应商处理器
type PartnerHandler struct {
	svc *service.PartnerService
}

func NewPartnerHandler(svc *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{svc: svc}
}

// ListVendors 商家列表
// GET /api/v1/vendors?search=xxx&status=xxx&category_id=xxx&payment_type=xxx
func (h *PartnerHandler) ListVendors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "search", "status", "category_id", "payment_type")
	items, total, err := h.svc.ListVendors(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取商家列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetVendor 商家详情
// GET /api/v1/vendors/:id
func (h *PartnerHandler) GetVendor(c *gin.Context) {
	v, err := h.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取商家失败", err)
		return
	}
	Success(c, v)
}

// CreateVendor 创建商家
// POST /api/v1/vendors
func (h *PartnerHandler) CreateVendor(c *gin.Context) {
	var req service.PartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	v, err := h.svc.CreateVendor(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建商家失败", err)
		return
	}
	Created(c, v)
}

// UpdateVendor 更新商家
// PUT /api/v1/vendors/:id
func (h *PartnerHandler) UpdateVendor(c *gin.Context) {
	var req service.PartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	v, err := h.svc.UpdateVendor(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新商家失败", err)
		return
	}
	Success(c, v)
}

// DeleteVendor 删除商家
// DELETE /api/v1/vendors/:id
func (h *PartnerHandler) DeleteVendor(c *gin.Context) {
	if err := h.svc.DeleteVendor(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除商家失败", err)
		return
	}
	Success(c, nil)
}

// ListSuppliers 供应商列表
// GET /api/v1/suppliers?search=xxx&status=xxx&category_id=xxx
func (h *PartnerHandler) ListSuppliers(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "search", "status", "category_id")
	items, total, err := h.svc.ListSuppliers(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取供应商列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetSupplier 供应商详情
// GET /api/v1/suppliers/:id
func (h *PartnerHandler) GetSupplier(c *gin.Context) {
	s, err := h.svc.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取供应商失败", err)
		return
	}
	Success(c, s)
}

// CreateSupplier 创建供应商
// POST /api/v1/suppliers
func (h *PartnerHandler) CreateSupplier(c *gin.Context) {
	var req service.PartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	s, err := h.svc.CreateSupplier(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建供应商失败", err)
		return
	}
	Created(c, s)
}

// UpdateSupplier 更新供应商
// PUT /api/v1/suppliers/:id
func (h *PartnerHandler) UpdateSupplier(c *gin.Context) {
	var req service.PartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	s, err := h.svc.UpdateSupplier(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新供应商失败", err)
		return
	}
	Success(c, s)
}

// DeleteSupplier 删除供应商
// DELETE /api/v1/suppliers/:id
func (h *PartnerHandler) DeleteSupplier(c *gin.Context) {
	if err := h.svc.DeleteSupplier(c.Request.Context(), GetOperator(c), c.Param("id")); err != nil {
		HandleError(c, "删除供应商失败", err)
		return
	}
	Success(c, nil)
}
