package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// RequisitionHandler 请购单处理器
type RequisitionHandler struct {
	svc    *service.RequisitionService
	poSvc  *service.PurchaseOrderService
	export *service.ExportService
}

func NewRequisitionHandler(svc *service.RequisitionService, poSvc *service.PurchaseOrderService, export *service.ExportService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc, poSvc: poSvc, export: export}
}

func (h *RequisitionHandler) filters(c *gin.Context) map[string]string {
	filters := queryFilters(c, "status", "type", "priority", "search")
	if c.Query("mine") == "true" || c.Query("mine") == "1" {
		filters["user_id"] = GetUserID(c)
	}
	return filters
}

// List 请购单列表
// GET /api/v1/requisitions?status=xxx&type=xxx&priority=xxx&search=xxx&mine=true
func (h *RequisitionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, h.filters(c))
	if err != nil {
		InternalError(c, "获取请购单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Summary 各状态数量
// GET /api/v1/requisitions/summary
func (h *RequisitionHandler) Summary(c *gin.Context) {
	counts, err := h.svc.Summary(c.Request.Context(), h.filters(c))
	if err != nil {
		InternalError(c, "统计请购单失败: "+err.Error())
		return
	}
	Success(c, counts)
}

// Export 导出请购单
// GET /api/v1/requisitions/export
func (h *RequisitionHandler) Export(c *gin.Context) {
	f, filename, err := h.export.ExportRequisitions(c.Request.Context(), h.filters(c))
	if err != nil {
		HandleError(c, "导出失败", err)
		return
	}
	writeWorkbook(c, f, filename)
}

// Get 请购单详情
// GET /api/v1/requisitions/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取请购单失败", err)
		return
	}
	Success(c, view)
}

// Create 创建请购单
// POST /api/v1/requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	view, err := h.svc.Create(c.Request.Context(), GetOperator(c), &req)
	if err != nil {
		HandleError(c, "创建请购单失败", err)
		return
	}
	Created(c, view)
}

// Update 更新请购单（仅待审批）
// PUT /api/v1/requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	view, err := h.svc.Update(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新请购单失败", err)
		return
	}
	Success(c, view)
}

// UpdateStatus 按流转表变更状态
// PUT /api/v1/requisitions/:id/status
func (h *RequisitionHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	view, err := h.svc.UpdateStatus(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "变更状态失败", err)
		return
	}
	Success(c, view)
}

// ForceStatus 强制设置状态（需原因，记录日志）
// PUT /api/v1/requisitions/:id/status/force
func (h *RequisitionHandler) ForceStatus(c *gin.Context) {
	var req service.ForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	view, err := h.svc.ForceStatus(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "强制变更状态失败", err)
		return
	}
	Success(c, view)
}

// Adjust 调整批准数量
// PUT /api/v1/requisitions/:id/adjust
func (h *RequisitionHandler) Adjust(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	view, err := h.svc.Adjust(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "调整失败", err)
		return
	}
	Success(c, view)
}

// Delete 删除请购单
// DELETE /api/v1/requisitions/:id
func (h *RequisitionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOperator(c), c.Param("id")); err != nil {
		HandleError(c, "删除请购单失败", err)
		return
	}
	Success(c, nil)
}

// Activities 操作日志
// GET /api/v1/requisitions/:id/activities
func (h *RequisitionHandler) Activities(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.Activities(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		HandleError(c, "获取操作日志失败", err)
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// PurchaseOrders 请购单关联的PO
// GET /api/v1/requisitions/:id/purchase-orders
func (h *RequisitionHandler) PurchaseOrders(c *gin.Context) {
	items, err := h.poSvc.ListByRequisition(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取采购订单失败", err)
		return
	}
	Success(c, gin.H{"items": items})
}

// CreatePurchaseOrder 由请购单生成PO
// POST /api/v1/requisitions/:id/purchase-orders
func (h *RequisitionHandler) CreatePurchaseOrder(c *gin.Context) {
	var req service.CreatePOFromRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	po, err := h.poSvc.CreateFromRequisition(c.Request.Context(), GetOperator(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "生成采购订单失败", err)
		return
	}
	Created(c, po)
}

func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
