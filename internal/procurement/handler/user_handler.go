package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户/角色/权限处理器
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 用户列表
// GET /api/v1/users?search=xxx&role_id=xxx&status=xxx
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c, "search", "role_id", "status"))
	if err != nil {
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取用户失败", err)
		return
	}
	Success(c, user)
}

// Create 创建用户
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	user, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建用户失败", err)
		return
	}
	Created(c, user)
}

// Update 更新用户
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	user, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新用户失败", err)
		return
	}
	Success(c, user)
}

// Delete 删除用户
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOperator(c), c.Param("id")); err != nil {
		HandleError(c, "删除用户失败", err)
		return
	}
	Success(c, nil)
}

// Permissions 用户有效权限
// GET /api/v1/users/:id/permissions
func (h *UserHandler) Permissions(c *gin.Context) {
	codes, err := h.svc.Permissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取用户权限失败", err)
		return
	}
	Success(c, gin.H{"permissions": codes})
}

// GrantPermissions 直授权限
// POST /api/v1/users/:id/permissions
func (h *UserHandler) GrantPermissions(c *gin.Context) {
	var req service.PermissionIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	codes, err := h.svc.GrantPermissions(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "授权失败", err)
		return
	}
	Success(c, gin.H{"permissions": codes})
}

// RevokePermissions 收回直授权限
// DELETE /api/v1/users/:id/permissions
func (h *UserHandler) RevokePermissions(c *gin.Context) {
	var req service.PermissionIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	codes, err := h.svc.RevokePermissions(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "收回权限失败", err)
		return
	}
	Success(c, gin.H{"permissions": codes})
}

// ListRoles 角色列表
// GET /api/v1/roles
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context())
	if err != nil {
		InternalError(c, "获取角色列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": roles})
}

// GetRole 角色详情
// GET /api/v1/roles/:id
func (h *UserHandler) GetRole(c *gin.Context) {
	role, err := h.svc.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, "获取角色失败", err)
		return
	}
	Success(c, role)
}

// CreateRole 创建角色
// POST /api/v1/roles
func (h *UserHandler) CreateRole(c *gin.Context) {
	var req service.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	role, err := h.svc.CreateRole(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, "创建角色失败", err)
		return
	}
	Created(c, role)
}

// UpdateRole 更新角色
// PUT /api/v1/roles/:id
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req service.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	role, err := h.svc.UpdateRole(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, "更新角色失败", err)
		return
	}
	Success(c, role)
}

// DeleteRole 删除角色
// DELETE /api/v1/roles/:id
func (h *UserHandler) DeleteRole(c *gin.Context) {
	if err := h.svc.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除角色失败", err)
		return
	}
	Success(c, nil)
}

// ListPermissions 权限列表
// GET /api/v1/permissions
func (h *UserHandler) ListPermissions(c *gin.Context) {
	perms, err := h.svc.ListPermissions(c.Request.Context())
	if err != nil {
		InternalError(c, "获取权限列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": perms})
}
