package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"go.uber.org/zap"
)

// PartnerService 商家/供应商管理
type PartnerService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewPartnerService(repos *repository.Repositories, logger *zap.Logger) *PartnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartnerService{repos: repos, logger: logger}
}

// PartnerRequest 商家/供应商请求
type PartnerRequest struct {
	Name               string   `json:"name" binding:"required,max=200"`
	ContactPerson      string   `json:"contact_person"`
	Email              string   `json:"email" binding:"omitempty,email"`
	Phone              string   `json:"phone"`
	Address            string   `json:"address"`
	AllowsCash         bool     `json:"allows_cash"`
	AllowsDisbursement bool     `json:"allows_disbursement"`
	AllowsStoreCredit  bool     `json:"allows_store_credit"`
	Status             string   `json:"status" binding:"omitempty,oneof=active inactive"`
	CategoryIDs        []string `json:"category_ids"`
}

func (in *PartnerRequest) paymentMethods() entity.PaymentMethods {
	return entity.PaymentMethods{
		AllowsCash:         in.AllowsCash,
		AllowsDisbursement: in.AllowsDisbursement,
		AllowsStoreCredit:  in.AllowsStoreCredit,
	}
}

func (s *PartnerService) checkCategories(ctx context.Context, ids []string) ([]string, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return uniq, nil
	}
	found, err := s.repos.Category.FindByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	if len(found) != len(uniq) {
		return nil, fieldError("category_ids", "One or more categories do not exist")
	}
	return uniq, nil
}

// === 商家 ===

func (s *PartnerService) ListVendors(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	return s.repos.Vendor.FindAll(ctx, page, pageSize, filters)
}

func (s *PartnerService) GetVendor(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.repos.Vendor.FindByID(ctx, id)
}

func (s *PartnerService) CreateVendor(ctx context.Context, in *PartnerRequest) (*entity.Vendor, error) {
	categoryIDs, err := s.checkCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	v := &entity.Vendor{
		ID:             newID(),
		Name:           trimmed(in.Name),
		ContactPerson:  in.ContactPerson,
		Email:          in.Email,
		Phone:          in.Phone,
		Address:        in.Address,
		PaymentMethods: in.paymentMethods(),
		Status:         in.Status,
	}
	if v.Status == "" {
		v.Status = entity.StatusActive
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Vendor.Create(ctx, v); err != nil {
			return fmt.Errorf("创建商家失败: %w", err)
		}
		return tx.Vendor.ReplaceCategories(ctx, v.ID, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Vendor.FindByID(ctx, v.ID)
}

func (s *PartnerService) UpdateVendor(ctx context.Context, id string, in *PartnerRequest) (*entity.Vendor, error) {
	v, err := s.repos.Vendor.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := s.checkCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	v.Name = trimmed(in.Name)
	v.ContactPerson = in.ContactPerson
	v.Email = in.Email
	v.Phone = in.Phone
	v.Address = in.Address
	v.PaymentMethods = in.paymentMethods()
	if in.Status != "" {
		v.Status = in.Status
	}
	v.Categories = nil

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Vendor.Update(ctx, v); err != nil {
			return fmt.Errorf("更新商家失败: %w", err)
		}
		return tx.Vendor.ReplaceCategories(ctx, v.ID, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Vendor.FindByID(ctx, v.ID)
}

// DeleteVendor 硬删除商家，存在未完结PO时拒绝
func (s *PartnerService) DeleteVendor(ctx context.Context, id string) error {
	if _, err := s.repos.Vendor.FindByID(ctx, id); err != nil {
		return err
	}
	open, err := s.repos.Vendor.CountOpenOrders(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("%w: vendor has %d open purchase orders", ErrConflict, open)
	}
	if err := s.repos.Vendor.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除商家失败: %w", err)
	}
	s.logger.Info("vendor deleted", zap.String("vendor_id", id))
	return nil
}

// === 供应商 ===

func (s *PartnerService) ListSuppliers(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	return s.repos.Supplier.FindAll(ctx, page, pageSize, filters)
}

func (s *PartnerService) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	return s.repos.Supplier.FindByID(ctx, id)
}

func (s *PartnerService) CreateSupplier(ctx context.Context, in *PartnerRequest) (*entity.Supplier, error) {
	categoryIDs, err := s.checkCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	sup := &entity.Supplier{
		ID:             newID(),
		Name:           trimmed(in.Name),
		ContactPerson:  in.ContactPerson,
		Email:          in.Email,
		Phone:          in.Phone,
		Address:        in.Address,
		PaymentMethods: in.paymentMethods(),
		Status:         in.Status,
	}
	if sup.Status == "" {
		sup.Status = entity.StatusActive
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Supplier.Create(ctx, sup); err != nil {
			return fmt.Errorf("创建供应商失败: %w", err)
		}
		return tx.Supplier.ReplaceCategories(ctx, sup.ID, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Supplier.FindByID(ctx, sup.ID)
}

func (s *PartnerService) UpdateSupplier(ctx context.Context, id string, in *PartnerRequest) (*entity.Supplier, error) {
	sup, err := s.repos.Supplier.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := s.checkCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	sup.Name = trimmed(in.Name)
	sup.ContactPerson = in.ContactPerson
	sup.Email = in.Email
	sup.Phone = in.Phone
	sup.Address = in.Address
	sup.PaymentMethods = in.paymentMethods()
	if in.Status != "" {
		sup.Status = in.Status
	}
	sup.Categories = nil

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Supplier.Update(ctx, sup); err != nil {
			return fmt.Errorf("更新供应商失败: %w", err)
		}
		return tx.Supplier.ReplaceCategories(ctx, sup.ID, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Supplier.FindByID(ctx, sup.ID)
}

// DeleteSupplier 硬删除供应商（需 supplier:delete 权限）
func (s *PartnerService) DeleteSupplier(ctx context.Context, op Operator, id string) error {
	if !op.Has(entity.PermSupplierDelete) {
		return fmt.Errorf("%w: %s", ErrForbidden, entity.PermSupplierDelete)
	}
	if _, err := s.repos.Supplier.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("查询供应商失败: %w", err)
	}
	if err := s.repos.Supplier.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除供应商失败: %w", err)
	}
	s.logger.Info("supplier deleted", zap.String("supplier_id", id), zap.String("operator", op.ID))
	return nil
}
