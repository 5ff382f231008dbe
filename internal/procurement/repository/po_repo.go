package repository

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

func (r *PORepository) filtered(ctx context.Context, filters map[string]string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if requisitionID := filters["requisition_id"]; requisitionID != "" {
		query = query.Where("requisition_id = ?", requisitionID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if poType := filters["type"]; poType != "" {
		query = query.Where("type = ?", poType)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_no ILIKE ? OR notes ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	return query
}

// FindAll 查询采购订单列表
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.filtered(ctx, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Vendor").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindAllForExport 导出用，不分页
func (r *PORepository) FindAllForExport(ctx context.Context, filters map[string]string) ([]entity.PurchaseOrder, error) {
	var items []entity.PurchaseOrder
	err := r.filtered(ctx, filters).
		Preload("Vendor").
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.Item").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Services.Service").
		Preload("Vendor").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// FindByIDForUpdate 加行锁查找（事务内使用）
func (r *PORepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Where("po_id = ?", id).Order("sort_order ASC").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("po_id = ?", id).Order("sort_order ASC").Find(&po.Services).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// Create 创建采购订单（含行项）
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Vendor").Create(po).Error
}

// Update 只更新表头
func (r *PORepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(po).Error
}

// CountByStatus 按状态统计
func (r *PORepository) CountByStatus(ctx context.Context, statuses []string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("status IN ?", statuses).Count(&count).Error
	return count, err
}

// FindOpenByRequisition 查找请购单下未完结的PO
func (r *PORepository) FindOpenByRequisition(ctx context.Context, requisitionID string) ([]entity.PurchaseOrder, error) {
	var items []entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("requisition_id = ? AND status NOT IN ?", requisitionID,
			[]string{entity.POStatusDelivered, entity.POStatusCompleted, entity.POStatusCancelled}).
		Find(&items).Error
	return items, err
}

// GenerateCode 生成PO编码 PO-{year}-{4位}
func (r *PORepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(ctx, r.db, &entity.PurchaseOrder{}, "po_no", "PO")
}

// DeliveredQuantities PO各行已交货数量（仅统计原始交货，不含退货/返工补交）
func (r *PORepository) DeliveredQuantities(ctx context.Context, poID string, includePending bool) (map[string]int, map[string]int, error) {
	type row struct {
		LineID string
		Qty    int
	}
	statuses := []string{entity.DeliveryStatusReceived}
	if includePending {
		statuses = append(statuses, entity.DeliveryStatusPending)
	}
	origin := []string{entity.DeliveryTypeItemPurchase, entity.DeliveryTypeServiceDelivery}

	var itemRows []row
	err := r.db.WithContext(ctx).
		Table("delivery_items di").
		Select("di.order_item_id AS line_id, COALESCE(SUM(di.quantity), 0) AS qty").
		Joins("JOIN deliveries d ON d.id = di.delivery_id").
		Where("d.po_id = ? AND d.status IN ? AND d.type IN ? AND di.order_item_id IS NOT NULL", poID, statuses, origin).
		Group("di.order_item_id").
		Scan(&itemRows).Error
	if err != nil {
		return nil, nil, err
	}

	var svcRows []row
	err = r.db.WithContext(ctx).
		Table("delivery_services ds").
		Select("ds.order_service_id AS line_id, COALESCE(SUM(ds.quantity), 0) AS qty").
		Joins("JOIN deliveries d ON d.id = ds.delivery_id").
		Where("d.po_id = ? AND d.status IN ? AND d.type IN ? AND ds.order_service_id IS NOT NULL", poID, statuses, origin).
		Group("ds.order_service_id").
		Scan(&svcRows).Error
	if err != nil {
		return nil, nil, err
	}

	items := make(map[string]int, len(itemRows))
	for _, rw := range itemRows {
		items[rw.LineID] = rw.Qty
	}
	services := make(map[string]int, len(svcRows))
	for _, rw := range svcRows {
		services[rw.LineID] = rw.Qty
	}
	return items, services, nil
}
