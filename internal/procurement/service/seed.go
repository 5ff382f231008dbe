package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
)

// DefaultPermissions 内置权限
func DefaultPermissions() []entity.Permission {
	return []entity.Permission{
		{Code: entity.PermRequisitionApprove, Name: "审批请购单", Module: "requisition"},
		{Code: entity.PermRequisitionForceStatus, Name: "强制变更请购状态", Module: "requisition"},
		{Code: entity.PermPurchaseOrderManage, Name: "管理采购订单", Module: "purchase_order"},
		{Code: entity.PermDeliveryReceive, Name: "收货与退货/返工申请", Module: "delivery"},
		{Code: entity.PermSupplierDelete, Name: "删除供应商", Module: "partner"},
		{Code: entity.PermCatalogManage, Name: "管理物料目录", Module: "catalog"},
		{Code: entity.PermUserManage, Name: "管理用户与角色", Module: "user"},
	}
}

type seedRole struct {
	Code        string
	Name        string
	Permissions []string
}

// DefaultRoles 内置角色及其权限编码，admin 拥有全部
func DefaultRoles() []seedRole {
	all := make([]string, 0, len(DefaultPermissions()))
	for _, p := range DefaultPermissions() {
		all = append(all, p.Code)
	}
	return []seedRole{
		{Code: entity.RoleAdmin, Name: "管理员", Permissions: all},
		{Code: entity.RoleApprover, Name: "审批人", Permissions: []string{entity.PermRequisitionApprove}},
		{Code: entity.RolePurchaser, Name: "采购员", Permissions: []string{
			entity.PermPurchaseOrderManage, entity.PermDeliveryReceive, entity.PermCatalogManage,
		}},
		{Code: entity.RoleRequestor, Name: "请购人", Permissions: []string{}},
	}
}

// SeedResult 初始化结果
type SeedResult struct {
	Permissions  int
	Roles        int
	AdminCreated bool
}

// Seed 写入内置权限、角色和管理员账号，可重复执行
func Seed(ctx context.Context, repos *repository.Repositories, adminUsername, adminPassword string) (*SeedResult, error) {
	result := &SeedResult{}

	perms := DefaultPermissions()
	for i := range perms {
		perms[i].ID = newID()
	}

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Permission.Upsert(ctx, perms); err != nil {
			return fmt.Errorf("写入权限失败: %w", err)
		}
		result.Permissions = len(perms)

		codes := make([]string, 0, len(perms))
		for _, p := range perms {
			codes = append(codes, p.Code)
		}
		stored, err := tx.Permission.FindByCodes(ctx, codes)
		if err != nil {
			return err
		}
		idByCode := make(map[string]string, len(stored))
		for _, p := range stored {
			idByCode[p.Code] = p.ID
		}

		var adminRoleID string
		for _, sr := range DefaultRoles() {
			role, err := tx.Role.FindByCode(ctx, sr.Code)
			if errors.Is(err, repository.ErrNotFound) {
				role = &entity.Role{ID: newID(), Code: sr.Code, Name: sr.Name, IsSystem: true}
				if err := tx.Role.Create(ctx, role); err != nil {
					return fmt.Errorf("创建角色 %s 失败: %w", sr.Code, err)
				}
			} else if err != nil {
				return err
			}
			ids := make([]string, 0, len(sr.Permissions))
			for _, code := range sr.Permissions {
				if id, ok := idByCode[code]; ok {
					ids = append(ids, id)
				}
			}
			if err := tx.Role.ReplacePermissions(ctx, role.ID, ids); err != nil {
				return err
			}
			if sr.Code == entity.RoleAdmin {
				adminRoleID = role.ID
			}
			result.Roles++
		}

		if adminUsername == "" {
			return nil
		}
		if _, err := tx.User.FindByUsername(ctx, adminUsername); err == nil {
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := HashPassword(adminPassword)
		if err != nil {
			return err
		}
		admin := &entity.User{
			ID:           newID(),
			Username:     adminUsername,
			Name:         "Administrator",
			PasswordHash: hash,
			RoleID:       &adminRoleID,
			Status:       entity.StatusActive,
		}
		if err := tx.User.Create(ctx, admin); err != nil {
			return fmt.Errorf("创建管理员失败: %w", err)
		}
		result.AdminCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
