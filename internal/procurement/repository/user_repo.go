package repository

import (
	"context"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll 查询用户列表
func (r *UserRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	var items []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})

	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR username ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if roleID := filters["role_id"]; roleID != "" {
		query = query.Where("role_id = ?", roleID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Role").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	if err := r.db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByUsername 根据用户名查找用户
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	if err := r.db.WithContext(ctx).Preload("Role").Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return r.db.WithContext(ctx).Omit("Role", "Permissions").Create(u).Error
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	return r.db.WithContext(ctx).Omit("Role", "Permissions").Save(u).Error
}

// Delete 删除用户及其直授权限
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&entity.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.User{}).Error
	})
}

// UpdateLastLogin 更新最后登录时间
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// EffectivePermissionCodes 用户有效权限 = 角色权限 ∪ 直授权限
func (r *UserRepository) EffectivePermissionCodes(ctx context.Context, userID string) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.code FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN users u ON u.role_id = rp.role_id
		WHERE u.id = ?
		UNION
		SELECT p.code FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = ?
		ORDER BY 1`, userID, userID).Scan(&codes).Error
	return codes, err
}

// GrantPermissions 直授权限
func (r *UserRepository) GrantPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]entity.UserPermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		rows = append(rows, entity.UserPermission{UserID: userID, PermissionID: pid, CreatedAt: now})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// RevokePermissions 收回直授权限
func (r *UserRepository) RevokePermissions(ctx context.Context, userID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id IN ?", userID, permissionIDs).
		Delete(&entity.UserPermission{}).Error
}

// RoleRepository 角色仓库
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) FindAll(ctx context.Context) ([]entity.Role, error) {
	var roles []entity.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Where("id = ?", id).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// FindByCode 根据编码查找角色
func (r *RoleRepository) FindByCode(ctx context.Context, code string) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// CountByCode 统计编码数量（判重）
func (r *RoleRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Role{}).Where("code = ?", code).Count(&count).Error
	return count, err
}

func (r *RoleRepository) Create(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Omit("Permissions").Create(role).Error
}

func (r *RoleRepository) Update(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Omit("Permissions").Save(role).Error
}

// Delete 删除角色及其权限关联，并解除用户绑定
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&entity.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.User{}).Where("role_id = ?", id).Update("role_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Role{}).Error
	})
}

// ReplacePermissions 替换角色权限集合
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&entity.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]entity.RolePermission, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			rows = append(rows, entity.RolePermission{RoleID: roleID, PermissionID: pid, CreatedAt: now})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// PermissionRepository 权限仓库
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) FindAll(ctx context.Context) ([]entity.Permission, error) {
	var perms []entity.Permission
	err := r.db.WithContext(ctx).Order("module ASC, code ASC").Find(&perms).Error
	return perms, err
}

// FindByIDs 批量查找权限
func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Permission, error) {
	var perms []entity.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

// FindByCodes 根据编码批量查找权限
func (r *PermissionRepository) FindByCodes(ctx context.Context, codes []string) ([]entity.Permission, error) {
	var perms []entity.Permission
	if len(codes) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&perms).Error
	return perms, err
}

// Upsert 按编码插入或更新权限
func (r *PermissionRepository) Upsert(ctx context.Context, perms []entity.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "module", "description"}),
	}).Create(&perms).Error
}
