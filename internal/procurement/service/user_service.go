package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
)

// UserService 用户/角色/权限管理
type UserService struct {
	repos *repository.Repositories
}

func NewUserService(repos *repository.Repositories) *UserService {
	return &UserService{repos: repos}
}

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=64"`
	Name     string  `json:"name" binding:"required,max=64"`
	Email    string  `json:"email" binding:"omitempty,email"`
	Password string  `json:"password" binding:"required,min=6"`
	RoleID   *string `json:"role_id"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=64"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	RoleID   *string `json:"role_id"`
	Status   *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type RoleRequest struct {
	Code          string   `json:"code" binding:"required,max=64"`
	Name          string   `json:"name" binding:"required,max=64"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type PermissionIDsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required,min=1"`
}

func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	return s.repos.User.FindAll(ctx, page, pageSize, filters)
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repos.User.FindByID(ctx, id)
}

func (s *UserService) checkRole(ctx context.Context, roleID *string) (*string, error) {
	if roleID == nil || *roleID == "" {
		return nil, nil
	}
	if _, err := s.repos.Role.FindByID(ctx, *roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("role_id", "Role not found")
		}
		return nil, err
	}
	return roleID, nil
}

func (s *UserService) Create(ctx context.Context, in *CreateUserRequest) (*entity.User, error) {
	username := trimmed(in.Username)
	if _, err := s.repos.User.FindByUsername(ctx, username); err == nil {
		return nil, fieldError("username", "Username is already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	roleID, err := s.checkRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		ID:           newID(),
		Username:     username,
		Name:         trimmed(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       roleID,
		Status:       entity.StatusActive,
	}
	if err := s.repos.User.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return s.repos.User.FindByID(ctx, u.ID)
}

func (s *UserService) Update(ctx context.Context, id string, in *UpdateUserRequest) (*entity.User, error) {
	u, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = trimmed(*in.Name)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Status != nil {
		u.Status = *in.Status
	}
	if in.RoleID != nil {
		roleID, err := s.checkRole(ctx, in.RoleID)
		if err != nil {
			return nil, err
		}
		u.RoleID = roleID
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.Role = nil
	if err := s.repos.User.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return s.repos.User.FindByID(ctx, u.ID)
}

func (s *UserService) Delete(ctx context.Context, op Operator, id string) error {
	if op.ID == id {
		return newValidationError("You cannot delete your own account")
	}
	if _, err := s.repos.User.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repos.User.Delete(ctx, id)
}

// Permissions 用户有效权限
func (s *UserService) Permissions(ctx context.Context, id string) ([]string, error) {
	if _, err := s.repos.User.FindByID(ctx, id); err != nil {
		return nil, err
	}
	codes, err := s.repos.User.EffectivePermissionCodes(ctx, id)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

func (s *UserService) checkPermissions(ctx context.Context, ids []string) error {
	found, err := s.repos.Permission.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fieldError("permission_ids", "Permission "+id+" not found")
		}
	}
	return nil
}

// GrantPermissions 直授权限
func (s *UserService) GrantPermissions(ctx context.Context, id string, in *PermissionIDsRequest) ([]string, error) {
	if _, err := s.repos.User.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkPermissions(ctx, in.PermissionIDs); err != nil {
		return nil, err
	}
	if err := s.repos.User.GrantPermissions(ctx, id, in.PermissionIDs); err != nil {
		return nil, fmt.Errorf("授权失败: %w", err)
	}
	return s.Permissions(ctx, id)
}

// RevokePermissions 收回直授权限
func (s *UserService) RevokePermissions(ctx context.Context, id string, in *PermissionIDsRequest) ([]string, error) {
	if _, err := s.repos.User.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repos.User.RevokePermissions(ctx, id, in.PermissionIDs); err != nil {
		return nil, fmt.Errorf("收回权限失败: %w", err)
	}
	return s.Permissions(ctx, id)
}

// === 角色 ===

func (s *UserService) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.repos.Role.FindAll(ctx)
}

func (s *UserService) GetRole(ctx context.Context, id string) (*entity.Role, error) {
	return s.repos.Role.FindByID(ctx, id)
}

func (s *UserService) ListPermissions(ctx context.Context) ([]entity.Permission, error) {
	return s.repos.Permission.FindAll(ctx)
}

func (s *UserService) CreateRole(ctx context.Context, in *RoleRequest) (*entity.Role, error) {
	code := trimmed(in.Code)
	count, err := s.repos.Role.CountByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fieldError("code", "Role code already exists")
	}
	if len(in.PermissionIDs) > 0 {
		if err := s.checkPermissions(ctx, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	role := &entity.Role{ID: newID(), Code: code, Name: trimmed(in.Name), Description: in.Description}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Role.Create(ctx, role); err != nil {
			return fmt.Errorf("创建角色失败: %w", err)
		}
		return tx.Role.ReplacePermissions(ctx, role.ID, in.PermissionIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Role.FindByID(ctx, role.ID)
}

// UpdateRole 更新角色，permission_ids 为全量替换；系统角色编码不可改
func (s *UserService) UpdateRole(ctx context.Context, id string, in *RoleRequest) (*entity.Role, error) {
	role, err := s.repos.Role.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	code := trimmed(in.Code)
	if role.IsSystem && code != role.Code {
		return nil, fieldError("code", "System role code cannot be changed")
	}
	if code != role.Code {
		count, err := s.repos.Role.CountByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fieldError("code", "Role code already exists")
		}
	}
	if len(in.PermissionIDs) > 0 {
		if err := s.checkPermissions(ctx, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	role.Code = code
	role.Name = trimmed(in.Name)
	role.Description = in.Description
	role.Permissions = nil

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Role.Update(ctx, role); err != nil {
			return fmt.Errorf("更新角色失败: %w", err)
		}
		return tx.Role.ReplacePermissions(ctx, role.ID, in.PermissionIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Role.FindByID(ctx, role.ID)
}

func (s *UserService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.repos.Role.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: system role cannot be deleted", ErrConflict)
	}
	return s.repos.Role.Delete(ctx, id)
}
