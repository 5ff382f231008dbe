package repository

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequisitionRepository 请购单仓库
type RequisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

func (r *RequisitionRepository) filtered(ctx context.Context, filters map[string]string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Requisition{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if reqType := filters["type"]; reqType != "" {
		query = query.Where("type = ?", reqType)
	}
	if priority := filters["priority"]; priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if userID := filters["user_id"]; userID != "" {
		query = query.Where("user_id = ? OR created_by = ?", userID, userID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("ref_no ILIKE ? OR requestor_name ILIKE ? OR notes ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	return query
}

// FindAll 查询请购单列表（含行项）
func (r *RequisitionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	var items []entity.Requisition
	var total int64

	query := r.filtered(ctx, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Items").
		Preload("Services").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindAllForExport 导出用，不分页
func (r *RequisitionRepository) FindAllForExport(ctx context.Context, filters map[string]string) ([]entity.Requisition, error) {
	var items []entity.Requisition
	err := r.filtered(ctx, filters).
		Preload("Items.Item").
		Preload("Services.Service").
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// CountByStatus 按状态统计
func (r *RequisitionRepository) CountByStatus(ctx context.Context, filters map[string]string) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	f := make(map[string]string, len(filters))
	for k, v := range filters {
		if k != "status" {
			f[k] = v
		}
	}
	err := r.filtered(ctx, f).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(entity.RequisitionStatuses))
	for _, s := range entity.RequisitionStatuses {
		result[s] = 0
	}
	for _, rw := range rows {
		result[rw.Status] = rw.Count
	}
	return result, nil
}

// FindByID 根据ID查找请购单（含行项及物料/服务）
func (r *RequisitionRepository) FindByID(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.Item").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Services.Service").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// FindByIDForUpdate 加行锁查找（事务内使用）
func (r *RequisitionRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Where("requisition_id = ?", id).Order("sort_order ASC").Find(&req.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("requisition_id = ?", id).Order("sort_order ASC").Find(&req.Services).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Create 创建请购单（含行项）
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Update 只更新请购单表头
func (r *RequisitionRepository) Update(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error
}

// UpdateStatus 更新状态
func (r *RequisitionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.Requisition{}).Where("id = ?", id).Update("status", status).Error
}

// UpdateItem 更新物料行
func (r *RequisitionRepository) UpdateItem(ctx context.Context, item *entity.RequisitionItem) error {
	return r.db.WithContext(ctx).Omit("Item").Save(item).Error
}

// UpdateService 更新服务行
func (r *RequisitionRepository) UpdateService(ctx context.Context, svc *entity.RequisitionService) error {
	return r.db.WithContext(ctx).Omit("Service").Save(svc).Error
}

// ReplaceLines 替换全部行项
func (r *RequisitionRepository) ReplaceLines(ctx context.Context, req *entity.Requisition) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", req.ID).Delete(&entity.RequisitionItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("requisition_id = ?", req.ID).Delete(&entity.RequisitionService{}).Error; err != nil {
		return err
	}
	if len(req.Items) > 0 {
		if err := db.Omit("Item").Create(&req.Items).Error; err != nil {
			return err
		}
	}
	if len(req.Services) > 0 {
		if err := db.Omit("Service").Create(&req.Services).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete 删除请购单及其行项
func (r *RequisitionRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", id).Delete(&entity.RequisitionItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("requisition_id = ?", id).Delete(&entity.RequisitionService{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Requisition{}).Error
}

// GenerateCode 生成请购单号 REQ-{year}-{4位}
func (r *RequisitionRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(ctx, r.db, &entity.Requisition{}, "ref_no", "REQ")
}
