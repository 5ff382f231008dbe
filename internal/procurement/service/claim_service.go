package service

import (
	"context"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClaimService 退货/返工服务
type ClaimService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewClaimService(repos *repository.Repositories, logger *zap.Logger) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{repos: repos, logger: logger}
}

// CreateClaimRequest 创建退货/返工单
type CreateClaimRequest struct {
	DeliveryID string           `json:"delivery_id" binding:"required"`
	Remarks    string           `json:"remarks"`
	Lines      []ClaimLineInput `json:"lines" binding:"required,min=1,dive"`
}

// RejectClaimRequest 驳回
type RejectClaimRequest struct {
	Reason string `json:"reason"`
}

// ReworkableService 可返工的服务行
type ReworkableService struct {
	entity.DeliveryService
	Reworked  int `json:"reworked_quantity"`
	Available int `json:"available_quantity"`
}

func (s *ClaimService) receivedDelivery(ctx context.Context, tx *repository.Repositories, id, wantType string) (*entity.Delivery, error) {
	d, err := tx.Delivery.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entity.DeliveryStatusReceived {
		return nil, fieldError("delivery_id", "The delivery has not been received yet")
	}
	if d.Type != wantType {
		return nil, fieldError("delivery_id", fmt.Sprintf("A %s delivery is required", wantType))
	}
	return d, nil
}

// === 退货 ===

func (s *ClaimService) ListReturns(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Return, int64, error) {
	return s.repos.Return.FindAll(ctx, page, pageSize, filters)
}

func (s *ClaimService) GetReturn(ctx context.Context, id string) (*entity.Return, error) {
	return s.repos.Return.FindByID(ctx, id)
}

// CreateReturn 对已收货的物料交货单发起退货
func (s *ClaimService) CreateReturn(ctx context.Context, op Operator, in *CreateClaimRequest) (*entity.Return, error) {
	ret := &entity.Return{
		ID:        newID(),
		Status:    entity.ClaimStatusPending,
		Remarks:   in.Remarks,
		CreatedBy: op.ID,
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		d, err := s.receivedDelivery(ctx, tx, in.DeliveryID, entity.DeliveryTypeItemPurchase)
		if err != nil {
			return err
		}
		delivered := make(map[string]int, len(d.Items))
		lines := make(map[string]entity.DeliveryItem, len(d.Items))
		for _, it := range d.Items {
			delivered[it.ID] = it.Quantity
			lines[it.ID] = it
		}
		claimed, err := tx.Return.ReturnedQuantities(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := CheckClaimQuantities(delivered, claimed, in.Lines); err != nil {
			return err
		}

		for _, l := range in.Lines {
			ret.Items = append(ret.Items, entity.ReturnItem{
				ID:             newID(),
				ReturnID:       ret.ID,
				DeliveryItemID: l.LineID,
				ItemID:         lines[l.LineID].ItemID,
				Quantity:       l.Quantity,
				Reason:         l.Reason,
			})
		}
		ret.Link = &entity.ReturnDelivery{ReturnID: ret.ID, OldDeliveryID: d.ID}

		code, err := tx.Return.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成退货单号失败: %w", err)
		}
		ret.RefNo = code
		if err := tx.Return.Create(ctx, ret); err != nil {
			return fmt.Errorf("创建退货单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityReturn, ret.ID, ret.RefNo,
			"create", "", ret.Status, "交货单 "+d.RefNo+" 退货", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetReturn(ctx, ret.ID)
}

// ApproveReturn 批准退货并生成补交货单，状态进入 in_progress
func (s *ClaimService) ApproveReturn(ctx context.Context, op Operator, id string) (*entity.Return, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ret, err := tx.Return.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransitionClaim(ret.Status, entity.ClaimStatusApproved) {
			return transitionError(ret.Status, entity.ClaimStatusApproved)
		}
		if ret.Link == nil {
			return fmt.Errorf("退货单 %s 缺少交货关联", ret.RefNo)
		}
		old, err := tx.Delivery.FindByID(ctx, ret.Link.OldDeliveryID)
		if err != nil {
			return err
		}
		origin := make(map[string]entity.DeliveryItem, len(old.Items))
		for _, it := range old.Items {
			origin[it.ID] = it
		}

		replacement := &entity.Delivery{
			ID:        newID(),
			POID:      old.POID,
			Type:      entity.DeliveryTypeItemReturn,
			Status:    entity.DeliveryStatusPending,
			Notes:     "退货单 " + ret.RefNo + " 补交货",
			CreatedBy: op.ID,
		}
		total := decimal.Zero
		for _, ri := range ret.Items {
			src := origin[ri.DeliveryItemID]
			replacement.Items = append(replacement.Items, entity.DeliveryItem{
				ID:          newID(),
				DeliveryID:  replacement.ID,
				OrderItemID: src.OrderItemID,
				ItemID:      ri.ItemID,
				Quantity:    ri.Quantity,
				UnitPrice:   src.UnitPrice,
			})
			total = total.Add(src.UnitPrice.Mul(decimal.NewFromInt(int64(ri.Quantity))))
		}
		replacement.TotalCost = total

		code, err := tx.Delivery.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成交货单号失败: %w", err)
		}
		replacement.RefNo = code
		if err := tx.Delivery.Create(ctx, replacement); err != nil {
			return fmt.Errorf("创建补交货单失败: %w", err)
		}
		if err := tx.Return.SetNewDelivery(ctx, ret.ID, replacement.ID); err != nil {
			return err
		}

		if err := tx.ActivityLog.LogActivity(ctx, entity.EntityReturn, ret.ID, ret.RefNo,
			"approve", ret.Status, entity.ClaimStatusApproved, "批准退货", op.ID, op.Name); err != nil {
			return err
		}
		ret.Status = entity.ClaimStatusInProgress
		if err := tx.Return.Update(ctx, ret); err != nil {
			return fmt.Errorf("更新退货单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityReturn, ret.ID, ret.RefNo,
			"status_change", entity.ClaimStatusApproved, ret.Status, "生成补交货单 "+replacement.RefNo, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetReturn(ctx, id)
}

// RejectReturn 驳回退货，原因必填
func (s *ClaimService) RejectReturn(ctx context.Context, op Operator, id string, in *RejectClaimRequest) (*entity.Return, error) {
	reason, err := ValidateDeclineReason(in.Reason)
	if err != nil {
		return nil, err
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ret, err := tx.Return.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransitionClaim(ret.Status, entity.ClaimStatusRejected) {
			return transitionError(ret.Status, entity.ClaimStatusRejected)
		}
		from := ret.Status
		ret.Status = entity.ClaimStatusRejected
		ret.Remarks = reason
		if err := tx.Return.Update(ctx, ret); err != nil {
			return fmt.Errorf("更新退货单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityReturn, ret.ID, ret.RefNo,
			"reject", from, ret.Status, reason, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetReturn(ctx, id)
}

// === 返工 ===

func (s *ClaimService) ListReworks(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Rework, int64, error) {
	return s.repos.Rework.FindAll(ctx, page, pageSize, filters)
}

func (s *ClaimService) GetRework(ctx context.Context, id string) (*entity.Rework, error) {
	return s.repos.Rework.FindByID(ctx, id)
}

// DeliveryServicesForRework 交货单可返工的服务行
func (s *ClaimService) DeliveryServicesForRework(ctx context.Context, deliveryID string) ([]ReworkableService, error) {
	d, err := s.repos.Delivery.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.Type != entity.DeliveryTypeServiceDelivery || d.Status != entity.DeliveryStatusReceived {
		return []ReworkableService{}, nil
	}
	lines, err := s.repos.Delivery.FindServices(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	reworked, err := s.repos.Rework.ReworkedQuantities(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	out := make([]ReworkableService, 0, len(lines))
	for _, l := range lines {
		available := l.Quantity - reworked[l.ID]
		if available < 0 {
			available = 0
		}
		out = append(out, ReworkableService{DeliveryService: l, Reworked: reworked[l.ID], Available: available})
	}
	return out, nil
}

// CreateRework 对已交付的服务发起返工
func (s *ClaimService) CreateRework(ctx context.Context, op Operator, in *CreateClaimRequest) (*entity.Rework, error) {
	rw := &entity.Rework{
		ID:        newID(),
		Status:    entity.ClaimStatusPending,
		Remarks:   in.Remarks,
		CreatedBy: op.ID,
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		d, err := s.receivedDelivery(ctx, tx, in.DeliveryID, entity.DeliveryTypeServiceDelivery)
		if err != nil {
			return err
		}
		delivered := make(map[string]int, len(d.Services))
		lines := make(map[string]entity.DeliveryService, len(d.Services))
		for _, sv := range d.Services {
			delivered[sv.ID] = sv.Quantity
			lines[sv.ID] = sv
		}
		claimed, err := tx.Rework.ReworkedQuantities(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := CheckClaimQuantities(delivered, claimed, in.Lines); err != nil {
			return err
		}

		for _, l := range in.Lines {
			rw.Services = append(rw.Services, entity.ReworkService{
				ID:                newID(),
				ReworkID:          rw.ID,
				DeliveryServiceID: l.LineID,
				ServiceID:         lines[l.LineID].ServiceID,
				Quantity:          l.Quantity,
				Reason:            l.Reason,
			})
		}
		rw.Link = &entity.ReworkDelivery{ReworkID: rw.ID, OldDeliveryID: d.ID}

		code, err := tx.Rework.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成返工单号失败: %w", err)
		}
		rw.RefNo = code
		if err := tx.Rework.Create(ctx, rw); err != nil {
			return fmt.Errorf("创建返工单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
			"create", "", rw.Status, "交货单 "+d.RefNo+" 返工", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRework(ctx, rw.ID)
}

// ApproveRework 批准返工并生成返工交付单
func (s *ClaimService) ApproveRework(ctx context.Context, op Operator, id string) (*entity.Rework, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		rw, err := tx.Rework.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransitionClaim(rw.Status, entity.ClaimStatusApproved) {
			return transitionError(rw.Status, entity.ClaimStatusApproved)
		}
		if rw.Link == nil {
			return fmt.Errorf("返工单 %s 缺少交货关联", rw.RefNo)
		}
		old, err := tx.Delivery.FindByID(ctx, rw.Link.OldDeliveryID)
		if err != nil {
			return err
		}
		origin := make(map[string]entity.DeliveryService, len(old.Services))
		for _, sv := range old.Services {
			origin[sv.ID] = sv
		}

		replacement := &entity.Delivery{
			ID:        newID(),
			POID:      old.POID,
			Type:      entity.DeliveryTypeServiceRework,
			Status:    entity.DeliveryStatusPending,
			Notes:     "返工单 " + rw.RefNo + " 返工交付",
			CreatedBy: op.ID,
		}
		total := decimal.Zero
		for _, rs := range rw.Services {
			src := origin[rs.DeliveryServiceID]
			replacement.Services = append(replacement.Services, entity.DeliveryService{
				ID:             newID(),
				DeliveryID:     replacement.ID,
				OrderServiceID: src.OrderServiceID,
				ServiceID:      rs.ServiceID,
				Quantity:       rs.Quantity,
				UnitCost:       src.UnitCost,
			})
			total = total.Add(src.UnitCost.Mul(decimal.NewFromInt(int64(rs.Quantity))))
		}
		replacement.TotalCost = total

		code, err := tx.Delivery.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成交货单号失败: %w", err)
		}
		replacement.RefNo = code
		if err := tx.Delivery.Create(ctx, replacement); err != nil {
			return fmt.Errorf("创建返工交付单失败: %w", err)
		}
		if err := tx.Rework.SetNewDelivery(ctx, rw.ID, replacement.ID); err != nil {
			return err
		}

		if err := tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
			"approve", rw.Status, entity.ClaimStatusApproved, "批准返工", op.ID, op.Name); err != nil {
			return err
		}
		rw.Status = entity.ClaimStatusInProgress
		if err := tx.Rework.Update(ctx, rw); err != nil {
			return fmt.Errorf("更新返工单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
			"status_change", entity.ClaimStatusApproved, rw.Status, "生成返工交付单 "+replacement.RefNo, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRework(ctx, id)
}

// RejectRework 驳回返工，原因必填
func (s *ClaimService) RejectRework(ctx context.Context, op Operator, id string, in *RejectClaimRequest) (*entity.Rework, error) {
	reason, err := ValidateDeclineReason(in.Reason)
	if err != nil {
		return nil, err
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		rw, err := tx.Rework.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransitionClaim(rw.Status, entity.ClaimStatusRejected) {
			return transitionError(rw.Status, entity.ClaimStatusRejected)
		}
		from := rw.Status
		rw.Status = entity.ClaimStatusRejected
		rw.Remarks = reason
		if err := tx.Rework.Update(ctx, rw); err != nil {
			return fmt.Errorf("更新返工单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
			"reject", from, rw.Status, reason, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRework(ctx, id)
}

// DeleteRework 仅待审批的返工单可删除
func (s *ClaimService) DeleteRework(ctx context.Context, op Operator, id string) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		rw, err := tx.Rework.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rw.Status != entity.ClaimStatusPending {
			return fmt.Errorf("%w: only pending reworks can be deleted", ErrInvalidTransition)
		}
		if err := tx.Rework.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除返工单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
			"delete", rw.Status, "", "删除返工单", op.ID, op.Name)
	})
}
