package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseOrderService 采购订单服务
type PurchaseOrderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewPurchaseOrderService(repos *repository.Repositories, logger *zap.Logger) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{repos: repos, logger: logger}
}

// POItemInput PO物料行输入
type POItemInput struct {
	ItemID    string           `json:"item_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// POServiceInput PO服务行输入
type POServiceInput struct {
	ServiceID string           `json:"service_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
}

// CreatePORequest 手工创建PO
type CreatePORequest struct {
	VendorID     string           `json:"vendor_id" binding:"required"`
	Type         string           `json:"type" binding:"required,requisition_type"`
	PaymentType  string           `json:"payment_type" binding:"required,payment_type"`
	ExpectedDate *time.Time       `json:"expected_date"`
	Notes        string           `json:"notes"`
	Items        []POItemInput    `json:"items" binding:"omitempty,dive"`
	Services     []POServiceInput `json:"services" binding:"omitempty,dive"`
}

// CreatePOFromRequisitionRequest 由请购单生成PO
type CreatePOFromRequisitionRequest struct {
	VendorID     string     `json:"vendor_id" binding:"required"`
	PaymentType  string     `json:"payment_type" binding:"required,payment_type"`
	ExpectedDate *time.Time `json:"expected_date"`
	Notes        string     `json:"notes"`
}

// CancelPORequest 取消PO
type CancelPORequest struct {
	Reason string `json:"reason"`
}

// CreateDeliveryRequest 创建交货单，Lines 为空时按剩余数量交货
type CreateDeliveryRequest struct {
	Lines []DeliveryLineInput `json:"lines" binding:"omitempty,dive"`
	Notes string              `json:"notes"`
}

func (s *PurchaseOrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.PO.FindAll(ctx, page, pageSize, filters)
}

func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.repos.PO.FindByID(ctx, id)
}

// ListByRequisition 请购单关联的PO
func (s *PurchaseOrderService) ListByRequisition(ctx context.Context, requisitionID string) ([]entity.PurchaseOrder, error) {
	if _, err := s.repos.Requisition.FindByID(ctx, requisitionID); err != nil {
		return nil, err
	}
	items, _, err := s.repos.PO.FindAll(ctx, 1, 100, map[string]string{"requisition_id": requisitionID})
	return items, err
}

func (s *PurchaseOrderService) loadVendor(ctx context.Context, vendorID, paymentType string) (*entity.Vendor, error) {
	vendor, err := s.repos.Vendor.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("vendor_id", "Vendor not found")
		}
		return nil, err
	}
	if vendor.Status == entity.StatusInactive {
		return nil, fieldError("vendor_id", "Vendor is inactive")
	}
	if !vendor.Supports(paymentType) {
		return nil, fieldError("payment_type", fmt.Sprintf("Vendor %s does not accept %s payments", vendor.Name, paymentType))
	}
	return vendor, nil
}

// Create 手工创建PO
func (s *PurchaseOrderService) Create(ctx context.Context, op Operator, in *CreatePORequest) (*entity.PurchaseOrder, error) {
	if _, err := s.loadVendor(ctx, in.VendorID, in.PaymentType); err != nil {
		return nil, err
	}

	po := &entity.PurchaseOrder{
		ID:           newID(),
		VendorID:     in.VendorID,
		Type:         in.Type,
		Status:       entity.POStatusPending,
		PaymentType:  in.PaymentType,
		ExpectedDate: in.ExpectedDate,
		Notes:        in.Notes,
		CreatedBy:    op.ID,
	}

	switch in.Type {
	case entity.RequisitionTypeItems:
		if len(in.Items) == 0 {
			return nil, fieldError("items", "Please add at least one item")
		}
		ids := make([]string, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ItemID)
		}
		found, err := s.repos.Item.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, it := range in.Items {
			item, ok := found[it.ItemID]
			if !ok {
				return nil, fieldError(fmt.Sprintf("items.%d.item_id", i), "Item not found")
			}
			price := item.UnitPrice
			if it.UnitPrice != nil {
				price = *it.UnitPrice
			}
			po.Items = append(po.Items, entity.OrderItem{
				ID: newID(), POID: po.ID, ItemID: it.ItemID,
				Quantity: it.Quantity, UnitPrice: price, SortOrder: i + 1,
			})
		}
	case entity.RequisitionTypeServices:
		if len(in.Services) == 0 {
			return nil, fieldError("services", "Please add at least one service")
		}
		ids := make([]string, 0, len(in.Services))
		for _, sv := range in.Services {
			ids = append(ids, sv.ServiceID)
		}
		found, err := s.repos.Service.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, sv := range in.Services {
			svc, ok := found[sv.ServiceID]
			if !ok {
				return nil, fieldError(fmt.Sprintf("services.%d.service_id", i), "Service not found")
			}
			cost := svc.UnitCost
			if sv.UnitCost != nil {
				cost = *sv.UnitCost
			}
			po.Services = append(po.Services, entity.OrderService{
				ID: newID(), POID: po.ID, ServiceID: sv.ServiceID,
				Quantity: sv.Quantity, UnitCost: cost, SortOrder: i + 1,
			})
		}
	}
	po.TotalCost = ComputeOrderTotal(po)

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		code, err := tx.PO.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成PO编码失败: %w", err)
		}
		po.PONo = code
		if err := tx.PO.Create(ctx, po); err != nil {
			return fmt.Errorf("创建采购订单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityPurchaseOrder, po.ID, po.PONo,
			"create", "", po.Status, "创建采购订单", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, po.ID)
}

// BuildOrderFromRequisition 按最终数量复制请购行，最终数量为0的行跳过
func BuildOrderFromRequisition(req *entity.Requisition) *entity.PurchaseOrder {
	po := &entity.PurchaseOrder{
		ID:            newID(),
		RequisitionID: strPtr(req.ID),
		Type:          req.Type,
		Status:        entity.POStatusPending,
	}
	sort := 0
	if req.Type == entity.RequisitionTypeServices {
		for _, l := range req.Services {
			qty := FinalQuantity(l.Quantity, l.ApprovedQuantity)
			if qty <= 0 {
				continue
			}
			sort++
			po.Services = append(po.Services, entity.OrderService{
				ID: newID(), POID: po.ID, RequisitionServiceID: strPtr(l.ID), ServiceID: l.ServiceID,
				Quantity: qty, UnitCost: l.UnitCost, SortOrder: sort,
			})
		}
	} else {
		for _, l := range req.Items {
			qty := FinalQuantity(l.Quantity, l.ApprovedQuantity)
			if qty <= 0 {
				continue
			}
			sort++
			po.Items = append(po.Items, entity.OrderItem{
				ID: newID(), POID: po.ID, RequisitionItemID: strPtr(l.ID), ItemID: l.ItemID,
				Quantity: qty, UnitPrice: l.UnitPrice, SortOrder: sort,
			})
		}
	}
	po.TotalCost = ComputeOrderTotal(po)
	return po
}

// CreateFromRequisition 由已批准的请购单生成PO，请购单流转为 ordered
func (s *PurchaseOrderService) CreateFromRequisition(ctx context.Context, op Operator, requisitionID string, in *CreatePOFromRequisitionRequest) (*entity.PurchaseOrder, error) {
	if _, err := s.loadVendor(ctx, in.VendorID, in.PaymentType); err != nil {
		return nil, err
	}

	var po *entity.PurchaseOrder
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, requisitionID)
		if err != nil {
			return err
		}
		if req.Status != entity.RequisitionStatusApproved && req.Status != entity.RequisitionStatusPartiallyApproved {
			return fmt.Errorf("%w: requisition %s is %s", ErrInvalidTransition, req.RefNo, req.Status)
		}

		po = BuildOrderFromRequisition(req)
		if len(po.Items) == 0 && len(po.Services) == 0 {
			return newValidationError("The requisition has no approved quantities to order")
		}
		po.VendorID = in.VendorID
		po.PaymentType = in.PaymentType
		po.ExpectedDate = in.ExpectedDate
		po.Notes = in.Notes
		po.CreatedBy = op.ID

		code, err := tx.PO.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成PO编码失败: %w", err)
		}
		po.PONo = code
		if err := tx.PO.Create(ctx, po); err != nil {
			return fmt.Errorf("创建采购订单失败: %w", err)
		}
		if err := tx.ActivityLog.LogActivity(ctx, entity.EntityPurchaseOrder, po.ID, po.PONo,
			"create", "", po.Status, "由请购单 "+req.RefNo+" 生成", op.ID, op.Name); err != nil {
			return err
		}
		return advanceRequisition(ctx, tx, req.ID, entity.RequisitionStatusOrdered, "生成采购订单 "+po.PONo, op)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order created from requisition",
		zap.String("po_no", po.PONo), zap.String("requisition_id", requisitionID))
	return s.Get(ctx, po.ID)
}

// transition 表头状态流转（加锁）
func (s *PurchaseOrderService) transition(ctx context.Context, op Operator, id, to, action, content string, mutate func(po *entity.PurchaseOrder)) (*entity.PurchaseOrder, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.PO.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransitionPO(po.Status, to) {
			return transitionError(po.Status, to)
		}
		from := po.Status
		po.Status = to
		if mutate != nil {
			mutate(po)
		}
		if err := tx.PO.Update(ctx, po); err != nil {
			return fmt.Errorf("更新采购订单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityPurchaseOrder, po.ID, po.PONo,
			action, from, to, content, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Approve 审批PO
func (s *PurchaseOrderService) Approve(ctx context.Context, op Operator, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, op, id, entity.POStatusApproved, "approve", "审批通过", func(po *entity.PurchaseOrder) {
		now := time.Now()
		po.ApprovedBy = strPtr(op.ID)
		po.ApprovedAt = &now
	})
}

// MarkOrdered 标记已下单
func (s *PurchaseOrderService) MarkOrdered(ctx context.Context, op Operator, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, op, id, entity.POStatusOrdered, "order", "已向商家下单", nil)
}

// Complete 交齐后完结
func (s *PurchaseOrderService) Complete(ctx context.Context, op Operator, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, op, id, entity.POStatusCompleted, "complete", "采购订单完结", nil)
}

// Cancel 取消PO（pending/approved）
func (s *PurchaseOrderService) Cancel(ctx context.Context, op Operator, id string, in *CancelPORequest) (*entity.PurchaseOrder, error) {
	reason := trimmed(in.Reason)
	return s.transition(ctx, op, id, entity.POStatusCancelled, "cancel", reason, func(po *entity.PurchaseOrder) {
		if reason != "" {
			if po.Notes != "" {
				po.Notes += "\n"
			}
			po.Notes += "取消原因: " + reason
		}
	})
}

// CreateDelivery 为已下单的PO创建交货单
func (s *PurchaseOrderService) CreateDelivery(ctx context.Context, op Operator, poID string, in *CreateDeliveryRequest) (*entity.Delivery, error) {
	var delivery *entity.Delivery
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.PO.FindByIDForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusOrdered && po.Status != entity.POStatusPartiallyDelivered {
			return fmt.Errorf("%w: purchase order %s is %s", ErrInvalidTransition, po.PONo, po.Status)
		}

		deliveredItems, deliveredServices, err := tx.PO.DeliveredQuantities(ctx, po.ID, true)
		if err != nil {
			return fmt.Errorf("统计已交货数量失败: %w", err)
		}
		remainingItems, remainingServices := RemainingQuantities(po, deliveredItems, deliveredServices)

		delivery, err = PlanDelivery(po, remainingItems, remainingServices, in.Lines)
		if err != nil {
			return err
		}
		delivery.ID = newID()
		for i := range delivery.Items {
			delivery.Items[i].DeliveryID = delivery.ID
		}
		for i := range delivery.Services {
			delivery.Services[i].DeliveryID = delivery.ID
		}
		delivery.Notes = in.Notes
		delivery.CreatedBy = op.ID

		code, err := tx.Delivery.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成交货单号失败: %w", err)
		}
		delivery.RefNo = code
		if err := tx.Delivery.Create(ctx, delivery); err != nil {
			return fmt.Errorf("创建交货单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityDelivery, delivery.ID, delivery.RefNo,
			"create", "", delivery.Status, "采购订单 "+po.PONo+" 交货", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Delivery.FindByID(ctx, delivery.ID)
}
