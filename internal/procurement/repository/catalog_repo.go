package repository

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
)

// CategoryRepository 分类仓库
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindAll 查询全部分类
func (r *CategoryRepository) FindAll(ctx context.Context, search string) ([]entity.Category, error) {
	var items []entity.Category
	query := r.db.WithContext(ctx).Model(&entity.Category{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找分类
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*entity.Category, error) {
	var c entity.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// FindByIDs 批量查找分类
func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Category, error) {
	var items []entity.Category
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// FindByName 根据名称查找分类
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*entity.Category, error) {
	var c entity.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *entity.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) Update(ctx context.Context, c *entity.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete 删除分类，同时清理商家/供应商关联
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&entity.CategoryVendor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&entity.CategorySupplier{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Category{}).Error
	})
}

// CountItems 统计分类下物料数量
func (r *CategoryRepository) CountItems(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Item{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

// MakeRepository 品牌仓库
type MakeRepository struct {
	db *gorm.DB
}

func NewMakeRepository(db *gorm.DB) *MakeRepository {
	return &MakeRepository{db: db}
}

func (r *MakeRepository) FindAll(ctx context.Context) ([]entity.Make, error) {
	var items []entity.Make
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *MakeRepository) FindByID(ctx context.Context, id string) (*entity.Make, error) {
	var m entity.Make
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// FindByName 根据名称查找品牌
func (r *MakeRepository) FindByName(ctx context.Context, name string) (*entity.Make, error) {
	var m entity.Make
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *MakeRepository) Create(ctx context.Context, m *entity.Make) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MakeRepository) Update(ctx context.Context, m *entity.Make) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MakeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Make{}).Error
}

// ItemRepository 物料仓库
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// FindAll 查询物料列表
func (r *ItemRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Item, int64, error) {
	var items []entity.Item
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Item{})

	if categoryID := filters["category_id"]; categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if makeID := filters["make_id"]; makeID != "" {
		query = query.Where("make_id = ?", makeID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Category").
		Preload("Make").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByCategory 查询分类下的启用物料
func (r *ItemRepository) FindByCategory(ctx context.Context, categoryID string) ([]entity.Item, error) {
	var items []entity.Item
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND status = ?", categoryID, entity.StatusActive).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找物料
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Make").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindByIDs 批量查找物料
func (r *ItemRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.Item, error) {
	result := make(map[string]entity.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []entity.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		result[it.ID] = it
	}
	return result, nil
}

// FindByCode 根据编码查找物料
func (r *ItemRepository) FindByCode(ctx context.Context, code string) (*entity.Item, error) {
	var item entity.Item
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepository) Update(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Omit("Category", "Make").Save(item).Error
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Item{}).Error
}

// GenerateCode 生成物料编码 ITM-{4位}
func (r *ItemRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateSeqCode(ctx, r.db, &entity.Item{}, "ITM")
}

// ServiceRepository 服务项目仓库
type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// FindAll 查询服务项目列表
func (r *ServiceRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Service, int64, error) {
	var items []entity.Service
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Service{})

	if categoryID := filters["category_id"]; categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Category").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*entity.Service, error) {
	var s entity.Service
	if err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// FindByIDs 批量查找服务项目
func (r *ServiceRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.Service, error) {
	result := make(map[string]entity.Service, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []entity.Service
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, s := range items {
		result[s.ID] = s
	}
	return result, nil
}

func (r *ServiceRepository) Create(ctx context.Context, s *entity.Service) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ServiceRepository) Update(ctx context.Context, s *entity.Service) error {
	return r.db.WithContext(ctx).Omit("Category").Save(s).Error
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Service{}).Error
}

// GenerateCode 生成服务编码 SVC-{4位}
func (r *ServiceRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateSeqCode(ctx, r.db, &entity.Service{}, "SVC")
}
