package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 采购仓库集合
type Repositories struct {
	db *gorm.DB

	Category    *CategoryRepository
	Make        *MakeRepository
	Item        *ItemRepository
	Service     *ServiceRepository
	Vendor      *VendorRepository
	Supplier    *SupplierRepository
	User        *UserRepository
	Role        *RoleRepository
	Permission  *PermissionRepository
	Requisition *RequisitionRepository
	PO          *PORepository
	Delivery    *DeliveryRepository
	Return      *ReturnRepository
	Rework      *ReworkRepository
	Attachment  *AttachmentRepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建采购仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		Category:    NewCategoryRepository(db),
		Make:        NewMakeRepository(db),
		Item:        NewItemRepository(db),
		Service:     NewServiceRepository(db),
		Vendor:      NewVendorRepository(db),
		Supplier:    NewSupplierRepository(db),
		User:        NewUserRepository(db),
		Role:        NewRoleRepository(db),
		Permission:  NewPermissionRepository(db),
		Requisition: NewRequisitionRepository(db),
		PO:          NewPORepository(db),
		Delivery:    NewDeliveryRepository(db),
		Return:      NewReturnRepository(db),
		Rework:      NewReworkRepository(db),
		Attachment:  NewAttachmentRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}

// DB 底层连接
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// WithTx 返回绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// Transaction 在事务中执行
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// generateYearCode 生成 {prefix}-{year}-{4位} 形式的编码
func generateYearCode(ctx context.Context, db *gorm.DB, model interface{}, column, prefix string) (string, error) {
	year := time.Now().Format("2006")
	like := fmt.Sprintf("%s-%s-", prefix, year)

	var maxCode string
	err := db.WithContext(ctx).
		Model(model).
		Select(fmt.Sprintf("COALESCE(MAX(%s), '')", column)).
		Where(column+" LIKE ?", like+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, like+"%04d", &seq)
	}
	seq++
	return fmt.Sprintf("%s%04d", like, seq), nil
}

// generateSeqCode 生成 {prefix}-{4位} 形式的编码
func generateSeqCode(ctx context.Context, db *gorm.DB, model interface{}, prefix string) (string, error) {
	var maxCode string
	err := db.WithContext(ctx).
		Model(model).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"-%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, prefix+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func paginate(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
