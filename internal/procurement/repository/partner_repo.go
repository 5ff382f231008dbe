package repository

import (
	"context"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VendorRepository 商家仓库
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// FindAll 查询商家列表
func (r *VendorRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	var items []entity.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Vendor{})

	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR contact_person ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if categoryID := filters["category_id"]; categoryID != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.CategoryVendor{}).Select("vendor_id").Where("category_id = ?", categoryID))
	}
	if pt := filters["payment_type"]; pt != "" {
		switch pt {
		case entity.PaymentTypeCash:
			query = query.Where("allows_cash = ?", true)
		case entity.PaymentTypeDisbursement:
			query = query.Where("allows_disbursement = ?", true)
		case entity.PaymentTypeStoreCredit:
			query = query.Where("allows_store_credit = ?", true)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Categories").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找商家
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	return r.db.WithContext(ctx).Omit("Categories").Create(v).Error
}

func (r *VendorRepository) Update(ctx context.Context, v *entity.Vendor) error {
	return r.db.WithContext(ctx).Omit("Categories").Save(v).Error
}

// ReplaceCategories 替换商家的分类关联
func (r *VendorRepository) ReplaceCategories(ctx context.Context, vendorID string, categoryIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", vendorID).Delete(&entity.CategoryVendor{}).Error; err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]entity.CategoryVendor, 0, len(categoryIDs))
		for _, cid := range categoryIDs {
			rows = append(rows, entity.CategoryVendor{CategoryID: cid, VendorID: vendorID, CreatedAt: now})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// Delete 硬删除商家及其分类关联
func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", id).Delete(&entity.CategoryVendor{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Vendor{}).Error
	})
}

// CountOpenOrders 统计商家未完结的采购订单
func (r *VendorRepository) CountOpenOrders(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("vendor_id = ? AND status NOT IN ?", id, []string{entity.POStatusCompleted, entity.POStatusCancelled}).
		Count(&count).Error
	return count, err
}

// SupplierRepository 供应商仓库
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// FindAll 查询供应商列表
func (r *SupplierRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	var items []entity.Supplier
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Supplier{})

	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR contact_person ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if categoryID := filters["category_id"]; categoryID != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.CategorySupplier{}).Select("supplier_id").Where("category_id = ?", categoryID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Categories").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找供应商
func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SupplierRepository) Create(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Omit("Categories").Create(s).Error
}

func (r *SupplierRepository) Update(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Omit("Categories").Save(s).Error
}

// ReplaceCategories 替换供应商的分类关联
func (r *SupplierRepository) ReplaceCategories(ctx context.Context, supplierID string, categoryIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", supplierID).Delete(&entity.CategorySupplier{}).Error; err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]entity.CategorySupplier, 0, len(categoryIDs))
		for _, cid := range categoryIDs {
			rows = append(rows, entity.CategorySupplier{CategoryID: cid, SupplierID: supplierID, CreatedAt: now})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// Delete 硬删除供应商及其分类关联
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", id).Delete(&entity.CategorySupplier{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Supplier{}).Error
	})
}
