package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// CatalogService 分类/品牌/物料/服务项目
type CatalogService struct {
	repos  *repository.Repositories
	lookup *LookupCache
	logger *zap.Logger
}

func NewCatalogService(repos *repository.Repositories, lookup *LookupCache, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repos: repos, lookup: lookup, logger: logger}
}

// === 分类 ===

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

func (s *CatalogService) ListCategories(ctx context.Context, search string) ([]entity.Category, error) {
	return s.repos.Category.FindAll(ctx, search)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	return s.repos.Category.FindByID(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in *CategoryRequest) (*entity.Category, error) {
	name := trimmed(in.Name)
	if _, err := s.repos.Category.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: category %s already exists", ErrConflict, name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	c := &entity.Category{ID: newID(), Name: name, Description: in.Description}
	if err := s.repos.Category.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("创建分类失败: %w", err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in *CategoryRequest) (*entity.Category, error) {
	c, err := s.repos.Category.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = trimmed(in.Name)
	c.Description = in.Description
	if err := s.repos.Category.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("更新分类失败: %w", err)
	}
	return c, nil
}

// DeleteCategory 删除分类，分类下仍有物料时拒绝
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.repos.Category.FindByID(ctx, id); err != nil {
		return err
	}
	count, err := s.repos.Category.CountItems(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category still has %d items", ErrConflict, count)
	}
	if err := s.repos.Category.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除分类失败: %w", err)
	}
	s.lookup.Invalidate(ctx, id)
	return nil
}

// === 品牌 ===

type MakeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (s *CatalogService) ListMakes(ctx context.Context) ([]entity.Make, error) {
	return s.repos.Make.FindAll(ctx)
}

func (s *CatalogService) CreateMake(ctx context.Context, in *MakeRequest) (*entity.Make, error) {
	m := &entity.Make{ID: newID(), Name: trimmed(in.Name)}
	if err := s.repos.Make.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("创建品牌失败: %w", err)
	}
	return m, nil
}

func (s *CatalogService) UpdateMake(ctx context.Context, id string, in *MakeRequest) (*entity.Make, error) {
	m, err := s.repos.Make.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Name = trimmed(in.Name)
	if err := s.repos.Make.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("更新品牌失败: %w", err)
	}
	return m, nil
}

func (s *CatalogService) DeleteMake(ctx context.Context, id string) error {
	if _, err := s.repos.Make.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repos.Make.Delete(ctx, id)
}

// === 物料 ===

type ItemRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name" binding:"required"`
	CategoryID  string          `json:"category_id" binding:"required"`
	MakeID      *string         `json:"make_id"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description string          `json:"description"`
	Status      string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (s *CatalogService) ListItems(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Item, int64, error) {
	return s.repos.Item.FindAll(ctx, page, pageSize, filters)
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (*entity.Item, error) {
	return s.repos.Item.FindByID(ctx, id)
}

func (s *CatalogService) CreateItem(ctx context.Context, in *ItemRequest) (*entity.Item, error) {
	if err := s.checkItemRefs(ctx, in); err != nil {
		return nil, err
	}
	code := trimmed(in.Code)
	if code == "" {
		var err error
		if code, err = s.repos.Item.GenerateCode(ctx); err != nil {
			return nil, fmt.Errorf("生成物料编码失败: %w", err)
		}
	}
	item := &entity.Item{
		ID:          newID(),
		Code:        code,
		Name:        trimmed(in.Name),
		CategoryID:  in.CategoryID,
		MakeID:      in.MakeID,
		Unit:        in.Unit,
		UnitPrice:   in.UnitPrice,
		Description: in.Description,
		Status:      in.Status,
	}
	if item.Unit == "" {
		item.Unit = "pcs"
	}
	if item.Status == "" {
		item.Status = entity.StatusActive
	}
	if err := s.repos.Item.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建物料失败: %w", err)
	}
	s.lookup.Invalidate(ctx, item.CategoryID)
	return item, nil
}

func (s *CatalogService) UpdateItem(ctx context.Context, id string, in *ItemRequest) (*entity.Item, error) {
	item, err := s.repos.Item.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkItemRefs(ctx, in); err != nil {
		return nil, err
	}
	oldCategory := item.CategoryID

	if code := trimmed(in.Code); code != "" {
		item.Code = code
	}
	item.Name = trimmed(in.Name)
	item.CategoryID = in.CategoryID
	item.MakeID = in.MakeID
	if in.Unit != "" {
		item.Unit = in.Unit
	}
	item.UnitPrice = in.UnitPrice
	item.Description = in.Description
	if in.Status != "" {
		item.Status = in.Status
	}
	item.Category = nil
	item.Make = nil

	if err := s.repos.Item.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("更新物料失败: %w", err)
	}
	s.lookup.Invalidate(ctx, oldCategory, item.CategoryID)
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	item, err := s.repos.Item.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Item.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除物料失败: %w", err)
	}
	s.lookup.Invalidate(ctx, item.CategoryID)
	return nil
}

func (s *CatalogService) checkItemRefs(ctx context.Context, in *ItemRequest) error {
	if in.UnitPrice.IsNegative() {
		return fieldError("unit_price", "Unit price cannot be negative")
	}
	if _, err := s.repos.Category.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fieldError("category_id", "Category not found")
		}
		return err
	}
	if in.MakeID != nil && *in.MakeID != "" {
		if _, err := s.repos.Make.FindByID(ctx, *in.MakeID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fieldError("make_id", "Make not found")
			}
			return err
		}
	} else {
		in.MakeID = nil
	}
	return nil
}

// ItemsByCategory 分类下拉物料（走缓存）
func (s *CatalogService) ItemsByCategory(ctx context.Context, categoryID string) []LookupItem {
	return s.lookup.Items(ctx, categoryID, func(ctx context.Context) ([]LookupItem, error) {
		items, err := s.repos.Item.FindByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		out := make([]LookupItem, 0, len(items))
		for _, it := range items {
			out = append(out, LookupItem{ID: it.ID, Code: it.Code, Name: it.Name, Unit: it.Unit, UnitPrice: it.UnitPrice})
		}
		return out, nil
	})
}

// === 服务项目 ===

type ServiceRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name" binding:"required"`
	CategoryID  *string         `json:"category_id"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Description string          `json:"description"`
	Status      string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (s *CatalogService) ListServices(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Service, int64, error) {
	return s.repos.Service.FindAll(ctx, page, pageSize, filters)
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*entity.Service, error) {
	return s.repos.Service.FindByID(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, in *ServiceRequest) (*entity.Service, error) {
	if in.UnitCost.IsNegative() {
		return nil, fieldError("unit_cost", "Unit cost cannot be negative")
	}
	code := trimmed(in.Code)
	if code == "" {
		var err error
		if code, err = s.repos.Service.GenerateCode(ctx); err != nil {
			return nil, fmt.Errorf("生成服务编码失败: %w", err)
		}
	}
	svc := &entity.Service{
		ID:          newID(),
		Code:        code,
		Name:        trimmed(in.Name),
		CategoryID:  in.CategoryID,
		UnitCost:    in.UnitCost,
		Description: in.Description,
		Status:      in.Status,
	}
	if svc.Status == "" {
		svc.Status = entity.StatusActive
	}
	if err := s.repos.Service.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("创建服务项目失败: %w", err)
	}
	return svc, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id string, in *ServiceRequest) (*entity.Service, error) {
	svc, err := s.repos.Service.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.UnitCost.IsNegative() {
		return nil, fieldError("unit_cost", "Unit cost cannot be negative")
	}
	if code := trimmed(in.Code); code != "" {
		svc.Code = code
	}
	svc.Name = trimmed(in.Name)
	svc.CategoryID = in.CategoryID
	svc.UnitCost = in.UnitCost
	svc.Description = in.Description
	if in.Status != "" {
		svc.Status = in.Status
	}
	svc.Category = nil
	if err := s.repos.Service.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("更新服务项目失败: %w", err)
	}
	return svc, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id string) error {
	if _, err := s.repos.Service.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repos.Service.Delete(ctx, id)
}

// === 物料导入 ===

// ImportRowError 导入失败行
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult 导入结果
type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors"`
}

// 导入列：编码,名称,分类,品牌,单位,单价,描述
var itemImportHeaders = []string{"code", "name", "category", "make", "unit", "unit_price", "description"}

// ImportedItemRow 解析后的导入行
type ImportedItemRow struct {
	Row         int
	Code        string
	Name        string
	Category    string
	Make        string
	Unit        string
	UnitPrice   decimal.Decimal
	Description string
}

// DecodeLegacyText UTF-8 原样返回（去BOM），否则按 GBK 解码
func DecodeLegacyText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode gbk: %w", err)
	}
	return out, nil
}

// ParseItemCSV 解析物料CSV（首行为表头）
func ParseItemCSV(data []byte) ([]ImportedItemRow, []ImportRowError, error) {
	text, err := DecodeLegacyText(data)
	if err != nil {
		return nil, nil, err
	}
	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return parseItemRecords(records)
}

// ParseItemXLSX 解析物料Excel第一个工作表
func ParseItemXLSX(r io.Reader) ([]ImportedItemRow, []ImportRowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, newValidationError("The workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return parseItemRecords(records)
}

func parseItemRecords(records [][]string) ([]ImportedItemRow, []ImportRowError, error) {
	if len(records) == 0 {
		return nil, nil, newValidationError("The file is empty")
	}

	// 表头列定位，缺少名称或分类列时报错
	index := make(map[string]int, len(itemImportHeaders))
	for i, h := range records[0] {
		index[strings.ToLower(trimmed(h))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, nil, newValidationError("Missing column: name")
	}
	if _, ok := index["category"]; !ok {
		return nil, nil, newValidationError("Missing column: category")
	}
	col := func(rec []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return trimmed(rec[i])
	}

	var rows []ImportedItemRow
	var rowErrors []ImportRowError
	for n, rec := range records[1:] {
		rowNo := n + 2
		empty := true
		for _, v := range rec {
			if trimmed(v) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		row := ImportedItemRow{
			Row:         rowNo,
			Code:        col(rec, "code"),
			Name:        col(rec, "name"),
			Category:    col(rec, "category"),
			Make:        col(rec, "make"),
			Unit:        col(rec, "unit"),
			Description: col(rec, "description"),
		}
		if row.Name == "" || row.Category == "" {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNo, Message: "name and category are required"})
			continue
		}
		if p := col(rec, "unit_price"); p != "" {
			price, err := decimal.NewFromString(p)
			if err != nil || price.IsNegative() {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNo, Message: "invalid unit_price " + p})
				continue
			}
			row.UnitPrice = price
		}
		rows = append(rows, row)
	}
	return rows, rowErrors, nil
}

// ImportItems 导入物料：编码已存在则更新，分类/品牌按名称匹配，不存在时创建
func (s *CatalogService) ImportItems(ctx context.Context, rows []ImportedItemRow, parseErrors []ImportRowError) (*ImportResult, error) {
	result := &ImportResult{Errors: append([]ImportRowError{}, parseErrors...)}
	result.Failed = len(parseErrors)
	touched := make([]string, 0)

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		categories := map[string]string{}
		makes := map[string]string{}

		for _, row := range rows {
			categoryID, err := resolveCategory(ctx, tx, categories, row.Category)
			if err != nil {
				return err
			}
			var makeID *string
			if row.Make != "" {
				id, err := resolveMake(ctx, tx, makes, row.Make)
				if err != nil {
					return err
				}
				makeID = &id
			}

			var existing *entity.Item
			if row.Code != "" {
				existing, err = tx.Item.FindByCode(ctx, row.Code)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}

			if existing != nil {
				touched = append(touched, existing.CategoryID)
				existing.Name = row.Name
				existing.CategoryID = categoryID
				existing.MakeID = makeID
				if row.Unit != "" {
					existing.Unit = row.Unit
				}
				existing.UnitPrice = row.UnitPrice
				if row.Description != "" {
					existing.Description = row.Description
				}
				if err := tx.Item.Update(ctx, existing); err != nil {
					return fmt.Errorf("第%d行更新失败: %w", row.Row, err)
				}
				result.Updated++
			} else {
				code := row.Code
				if code == "" {
					if code, err = tx.Item.GenerateCode(ctx); err != nil {
						return fmt.Errorf("生成物料编码失败: %w", err)
					}
				}
				unit := row.Unit
				if unit == "" {
					unit = "pcs"
				}
				item := &entity.Item{
					ID:          newID(),
					Code:        code,
					Name:        row.Name,
					CategoryID:  categoryID,
					MakeID:      makeID,
					Unit:        unit,
					UnitPrice:   row.UnitPrice,
					Description: row.Description,
					Status:      entity.StatusActive,
				}
				if err := tx.Item.Create(ctx, item); err != nil {
					return fmt.Errorf("第%d行创建失败: %w", row.Row, err)
				}
				result.Created++
			}
			touched = append(touched, categoryID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lookup.Invalidate(ctx, touched...)
	s.logger.Info("items imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))
	return result, nil
}

func resolveCategory(ctx context.Context, tx *repository.Repositories, seen map[string]string, name string) (string, error) {
	if id, ok := seen[name]; ok {
		return id, nil
	}
	c, err := tx.Category.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
		c = &entity.Category{ID: newID(), Name: name}
		if err := tx.Category.Create(ctx, c); err != nil {
			return "", fmt.Errorf("创建分类失败: %w", err)
		}
	}
	seen[name] = c.ID
	return c.ID, nil
}

func resolveMake(ctx context.Context, tx *repository.Repositories, seen map[string]string, name string) (string, error) {
	if id, ok := seen[name]; ok {
		return id, nil
	}
	m, err := tx.Make.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
		m = &entity.Make{ID: newID(), Name: name}
		if err := tx.Make.Create(ctx, m); err != nil {
			return "", fmt.Errorf("创建品牌失败: %w", err)
		}
	}
	seen[name] = m.ID
	return m.ID, nil
}
