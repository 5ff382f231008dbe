package repository

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository 交货单仓库
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// FindAll 查询交货单列表
func (r *DeliveryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	var items []entity.Delivery
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Delivery{})

	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if dType := filters["type"]; dType != "" {
		query = query.Where("type = ?", dType)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("ref_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找交货单（含行项）
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Item").
		Preload("Services").
		Preload("Services.Service").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// FindByIDForUpdate 加行锁查找（事务内使用）
func (r *DeliveryRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Where("delivery_id = ?", id).Find(&d.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("delivery_id = ?", id).Find(&d.Services).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// FindServices 查询交货单的服务行
func (r *DeliveryRepository) FindServices(ctx context.Context, deliveryID string) ([]entity.DeliveryService, error) {
	var items []entity.DeliveryService
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("delivery_id = ?", deliveryID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// Create 创建交货单（含行项）
func (r *DeliveryRepository) Create(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// Update 只更新表头
func (r *DeliveryRepository) Update(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

// CountPendingByPO 统计PO下待收货的交货单
func (r *DeliveryRepository) CountPendingByPO(ctx context.Context, poID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Delivery{}).
		Where("po_id = ? AND status = ?", poID, entity.DeliveryStatusPending).
		Count(&count).Error
	return count, err
}

// CountByStatus 按状态统计交货单
func (r *DeliveryRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Delivery{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// GenerateCode 生成交货单号 DLV-{year}-{4位}
func (r *DeliveryRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(ctx, r.db, &entity.Delivery{}, "ref_no", "DLV")
}
