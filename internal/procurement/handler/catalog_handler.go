package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler 分类/品牌/物料/服务项目处理器
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListCategories 分类列表
// GET /api/v1/categories?search=xxx
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	items, err := h.svc.ListCategories(c.Request.Context(), c.Query("search"))
	if err != nil {
		InternalError(c, "获取分类列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// GetCategory 分类详情
// GET /api/v1/categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	item, err := h.svc.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取分类失败", err)
		return
	}
	Success(c, item)
}

// CreateCategory 创建分类
// POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建分类失败", err)
		return
	}
	Created(c, item)
}

// UpdateCategory 更新分类
// PUT /api/v1/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.UpdateCategory(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新分类失败", err)
		return
	}
	Success(c, item)
}

// DeleteCategory 删除分类
// DELETE /api/v1/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除分类失败", err)
		return
	}
	Success(c, nil)
}

// CategoryItems 分类下拉物料
// GET /requisition/api/items/:categoryId
func (h *CatalogHandler) CategoryItems(c *gin.Context) {
	Success(c, h.svc.ItemsByCategory(c.Request.Context(), c.Param("categoryId")))
}

// ListMakes 品牌列表
// GET /api/v1/makes
func (h *CatalogHandler) ListMakes(c *gin.Context) {
	items, err := h.svc.ListMakes(c.Request.Context())
	if err != nil {
		InternalError(c, "获取品牌列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// CreateMake 创建品牌
// POST /api/v1/makes
func (h *CatalogHandler) CreateMake(c *gin.Context) {
	var req service.MakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.CreateMake(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建品牌失败", err)
		return
	}
	Created(c, item)
}

// UpdateMake 更新品牌
// PUT /api/v1/makes/:id
func (h *CatalogHandler) UpdateMake(c *gin.Context) {
	var req service.MakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.UpdateMake(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新品牌失败", err)
		return
	}
	Success(c, item)
}

// DeleteMake 删除品牌
// DELETE /api/v1/makes/:id
func (h *CatalogHandler) DeleteMake(c *gin.Context) {
	if err := h.svc.DeleteMake(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除品牌失败", err)
		return
	}
	Success(c, nil)
}

// ListItems 物料列表
// GET /api/v1/items?category_id=xxx&make_id=xxx&status=xxx&search=xxx
func (h *CatalogHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "category_id", "make_id", "status", "search")
	items, total, err := h.svc.ListItems(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取物料列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetItem 物料详情
// GET /api/v1/items/:id
func (h *CatalogHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取物料失败", err)
		return
	}
	Success(c, item)
}

// CreateItem 创建物料
// POST /api/v1/items
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建物料失败", err)
		return
	}
	Created(c, item)
}

// UpdateItem 更新物料
// PUT /api/v1/items/:id
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新物料失败", err)
		return
	}
	Success(c, item)
}

// DeleteItem 删除物料
// DELETE /api/v1/items/:id
func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除物料失败", err)
		return
	}
	Success(c, nil)
}

// ImportItems 导入物料（.xlsx 或 .csv）
// POST /api/v1/items/import
func (h *CatalogHandler) ImportItems(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传Excel或CSV文件")
		return
	}
	defer file.Close()

	var rows []service.ImportedItemRow
	var rowErrors []service.ImportRowError
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		rows, rowErrors, err = service.ParseItemXLSX(file)
	case ".csv":
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			BadRequest(c, "读取文件失败: "+readErr.Error())
			return
		}
		rows, rowErrors, err = service.ParseItemCSV(data)
	default:
		BadRequest(c, "仅支持 .xlsx 或 .csv 文件")
		return
	}
	if err != nil {
		HandleError(c, "解析文件失败", err)
		return
	}

	result, err := h.svc.ImportItems(c.Request.Context(), rows, rowErrors)
	if err != nil {
		HandleError(c, "导入物料失败", err)
		return
	}
	Success(c, result)
}

// ListServices 服务项目列表
// GET /api/v1/services?category_id=xxx&status=xxx&search=xxx
func (h *CatalogHandler) ListServices(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "category_id", "status", "search")
	items, total, err := h.svc.ListServices(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取服务项目列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetService 服务项目详情
// GET /api/v1/services/:id
func (h *CatalogHandler) GetService(c *gin.Context) {
	item, err := h.svc.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取服务项目失败", err)
		return
	}
	Success(c, item)
}

// CreateService 创建服务项目
// POST /api/v1/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.CreateService(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建服务项目失败", err)
		return
	}
	Created(c, item)
}

// UpdateService 更新服务项目
// PUT /api/v1/services/:id
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	item, err := h.svc.UpdateService(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新服务项目失败", err)
		return
	}
	Success(c, item)
}

// DeleteService 删除服务项目
// DELETE /api/v1/services/:id
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	if err := h.svc.DeleteService(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除服务项目失败", err)
		return
	}
	Success(c, nil)
}
