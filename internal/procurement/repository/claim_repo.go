package repository

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnRepository 退货单仓库
type ReturnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// FindAll 查询退货单列表
func (r *ReturnRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Return, int64, error) {
	var items []entity.Return
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Return{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if deliveryID := filters["delivery_id"]; deliveryID != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.ReturnDelivery{}).Select("return_id").Where("old_delivery_id = ?", deliveryID))
	}
	if search := filters["search"]; search != "" {
		query = query.Where("ref_no ILIKE ? OR remarks ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Link").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找退货单
func (r *ReturnRepository) FindByID(ctx context.Context, id string) (*entity.Return, error) {
	var ret entity.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Item").
		Preload("Link").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

// FindByIDForUpdate 加行锁查找（事务内使用）
func (r *ReturnRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Return, error) {
	var ret entity.Return
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Preload("Link").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

// FindByNewDelivery 根据补交货单查找退货单
func (r *ReturnRepository) FindByNewDelivery(ctx context.Context, deliveryID string) (*entity.Return, error) {
	var link entity.ReturnDelivery
	if err := r.db.WithContext(ctx).Where("new_delivery_id = ?", deliveryID).First(&link).Error; err != nil {
		return nil, notFound(err)
	}
	return r.FindByID(ctx, link.ReturnID)
}

// ReturnedQuantities 某交货单各物料行已申请退货的数量（不含已驳回）
func (r *ReturnRepository) ReturnedQuantities(ctx context.Context, deliveryID string) (map[string]int, error) {
	type row struct {
		DeliveryItemID string
		Qty            int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("return_items ri").
		Select("ri.delivery_item_id, COALESCE(SUM(ri.quantity), 0) AS qty").
		Joins("JOIN returns rt ON rt.id = ri.return_id").
		Joins("JOIN return_deliveries rd ON rd.return_id = rt.id").
		Where("rd.old_delivery_id = ? AND rt.status <> ?", deliveryID, entity.ClaimStatusRejected).
		Group("ri.delivery_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int, len(rows))
	for _, rw := range rows {
		result[rw.DeliveryItemID] = rw.Qty
	}
	return result, nil
}

// Create 创建退货单（含行项与交货关联）
func (r *ReturnRepository) Create(ctx context.Context, ret *entity.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

// Update 只更新表头
func (r *ReturnRepository) Update(ctx context.Context, ret *entity.Return) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ret).Error
}

// SetNewDelivery 记录补交货单
func (r *ReturnRepository) SetNewDelivery(ctx context.Context, returnID, deliveryID string) error {
	return r.db.WithContext(ctx).Model(&entity.ReturnDelivery{}).
		Where("return_id = ?", returnID).
		Update("new_delivery_id", deliveryID).Error
}

// CountOpen 统计未完结退货单
func (r *ReturnRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Return{}).
		Where("status IN ?", []string{entity.ClaimStatusPending, entity.ClaimStatusApproved, entity.ClaimStatusInProgress}).
		Count(&count).Error
	return count, err
}

// GenerateCode 生成退货单号 RET-{year}-{4位}
func (r *ReturnRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(ctx, r.db, &entity.Return{}, "ref_no", "RET")
}

// ReworkRepository 返工单仓库
type ReworkRepository struct {
	db *gorm.DB
}

func NewReworkRepository(db *gorm.DB) *ReworkRepository {
	return &ReworkRepository{db: db}
}

// FindAll 查询返工单列表
func (r *ReworkRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Rework, int64, error) {
	var items []entity.Rework
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Rework{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if deliveryID := filters["delivery_id"]; deliveryID != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.ReworkDelivery{}).Select("rework_id").Where("old_delivery_id = ?", deliveryID))
	}
	if search := filters["search"]; search != "" {
		query = query.Where("ref_no ILIKE ? OR remarks ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Link").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找返工单
func (r *ReworkRepository) FindByID(ctx context.Context, id string) (*entity.Rework, error) {
	var rw entity.Rework
	err := r.db.WithContext(ctx).
		Preload("Services").
		Preload("Services.Service").
		Preload("Link").
		Where("id = ?", id).
		First(&rw).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rw, nil
}

// FindByIDForUpdate 加行锁查找（事务内使用）
func (r *ReworkRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Rework, error) {
	var rw entity.Rework
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Services").
		Preload("Link").
		Where("id = ?", id).
		First(&rw).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rw, nil
}

// FindByNewDelivery 根据补交货单查找返工单
func (r *ReworkRepository) FindByNewDelivery(ctx context.Context, deliveryID string) (*entity.Rework, error) {
	var link entity.ReworkDelivery
	if err := r.db.WithContext(ctx).Where("new_delivery_id = ?", deliveryID).First(&link).Error; err != nil {
		return nil, notFound(err)
	}
	return r.FindByID(ctx, link.ReworkID)
}

// ReworkedQuantities 某交货单各服务行已申请返工的数量（不含已驳回）
func (r *ReworkRepository) ReworkedQuantities(ctx context.Context, deliveryID string) (map[string]int, error) {
	type row struct {
		DeliveryServiceID string
		Qty               int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("rework_services rs").
		Select("rs.delivery_service_id, COALESCE(SUM(rs.quantity), 0) AS qty").
		Joins("JOIN reworks rw ON rw.id = rs.rework_id").
		Joins("JOIN rework_deliveries rd ON rd.rework_id = rw.id").
		Where("rd.old_delivery_id = ? AND rw.status <> ?", deliveryID, entity.ClaimStatusRejected).
		Group("rs.delivery_service_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int, len(rows))
	for _, rw := range rows {
		result[rw.DeliveryServiceID] = rw.Qty
	}
	return result, nil
}

// Create 创建返工单（含行项与交货关联）
func (r *ReworkRepository) Create(ctx context.Context, rw *entity.Rework) error {
	return r.db.WithContext(ctx).Create(rw).Error
}

// Update 只更新表头
func (r *ReworkRepository) Update(ctx context.Context, rw *entity.Rework) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rw).Error
}

// SetNewDelivery 记录补交货单
func (r *ReworkRepository) SetNewDelivery(ctx context.Context, reworkID, deliveryID string) error {
	return r.db.WithContext(ctx).Model(&entity.ReworkDelivery{}).
		Where("rework_id = ?", reworkID).
		Update("new_delivery_id", deliveryID).Error
}

// Delete 删除返工单及其行项、关联
func (r *ReworkRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("rework_id = ?", id).Delete(&entity.ReworkService{}).Error; err != nil {
		return err
	}
	if err := db.Where("rework_id = ?", id).Delete(&entity.ReworkDelivery{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Rework{}).Error
}

// CountOpen 统计未完结返工单
func (r *ReworkRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Rework{}).
		Where("status IN ?", []string{entity.ClaimStatusPending, entity.ClaimStatusApproved, entity.ClaimStatusInProgress}).
		Count(&count).Error
	return count, err
}

// GenerateCode 生成返工单号 RWK-{year}-{4位}
func (r *ReworkRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(ctx, r.db, &entity.Rework{}, "ref_no", "RWK")
}
