package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"go.uber.org/zap"
)

// DeliveryService 交货单服务
type DeliveryService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewDeliveryService(repos *repository.Repositories, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{repos: repos, logger: logger}
}

// ReceiveRequest 收货
type ReceiveRequest struct {
	Notes string `json:"notes"`
}

func (s *DeliveryService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	return s.repos.Delivery.FindAll(ctx, page, pageSize, filters)
}

func (s *DeliveryService) Get(ctx context.Context, id string) (*entity.Delivery, error) {
	return s.repos.Delivery.FindByID(ctx, id)
}

// Receive 确认收货。原始交货推进PO状态，补交货完结对应的退货/返工单
func (s *DeliveryService) Receive(ctx context.Context, op Operator, id string, in *ReceiveRequest) (*entity.Delivery, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		d, err := tx.Delivery.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != entity.DeliveryStatusPending {
			return fmt.Errorf("%w: delivery %s is already %s", ErrInvalidTransition, d.RefNo, d.Status)
		}

		now := time.Now()
		d.Status = entity.DeliveryStatusReceived
		d.ReceivedAt = &now
		d.ReceivedBy = strPtr(op.ID)
		if note := trimmed(in.Notes); note != "" {
			if d.Notes != "" {
				d.Notes += "\n"
			}
			d.Notes += note
		}
		if err := tx.Delivery.Update(ctx, d); err != nil {
			return fmt.Errorf("更新交货单失败: %w", err)
		}
		if err := tx.ActivityLog.LogActivity(ctx, entity.EntityDelivery, d.ID, d.RefNo,
			"receive", entity.DeliveryStatusPending, d.Status, "确认收货", op.ID, op.Name); err != nil {
			return err
		}

		if d.IsReplacement() {
			return s.completeClaim(ctx, tx, op, d)
		}
		return s.advanceOrder(ctx, tx, op, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// advanceOrder 收货后更新PO状态，交齐时请购单流转为 delivered
func (s *DeliveryService) advanceOrder(ctx context.Context, tx *repository.Repositories, op Operator, d *entity.Delivery) error {
	po, err := tx.PO.FindByIDForUpdate(ctx, d.POID)
	if err != nil {
		return err
	}
	deliveredItems, deliveredServices, err := tx.PO.DeliveredQuantities(ctx, po.ID, false)
	if err != nil {
		return fmt.Errorf("统计已交货数量失败: %w", err)
	}

	to := entity.POStatusPartiallyDelivered
	if FullyDelivered(po, deliveredItems, deliveredServices) {
		to = entity.POStatusDelivered
	}
	if po.Status == to {
		return nil
	}
	if !CanTransitionPO(po.Status, to) {
		return transitionError(po.Status, to)
	}
	from := po.Status
	po.Status = to
	if err := tx.PO.Update(ctx, po); err != nil {
		return fmt.Errorf("更新采购订单失败: %w", err)
	}
	if err := tx.ActivityLog.LogActivity(ctx, entity.EntityPurchaseOrder, po.ID, po.PONo,
		"status_change", from, to, "交货单 "+d.RefNo+" 已收货", op.ID, op.Name); err != nil {
		return err
	}

	if to == entity.POStatusDelivered && po.RequisitionID != nil {
		open, err := tx.PO.FindOpenByRequisition(ctx, *po.RequisitionID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return advanceRequisition(ctx, tx, *po.RequisitionID, entity.RequisitionStatusDelivered,
				"采购订单 "+po.PONo+" 已全部交货", op)
		}
	}
	return nil
}

// completeClaim 补交货收货后完结退货/返工单
func (s *DeliveryService) completeClaim(ctx context.Context, tx *repository.Repositories, op Operator, d *entity.Delivery) error {
	if d.Type == entity.DeliveryTypeItemReturn {
		ret, err := tx.Return.FindByNewDelivery(ctx, d.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("replacement delivery without return", zap.String("delivery_id", d.ID))
				return nil
			}
			return err
		}
		if !CanTransitionClaim(ret.Status, entity.ClaimStatusCompleted) {
			return transitionError(ret.Status, entity.ClaimStatusCompleted)
		}
		from := ret.Status
		ret.Status = entity.ClaimStatusCompleted
		if err := tx.Return.Update(ctx, ret); err != nil {
			return fmt.Errorf("更新退货单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityReturn, ret.ID, ret.RefNo,
			"status_change", from, ret.Status, "补交货 "+d.RefNo+" 已收货", op.ID, op.Name)
	}

	rw, err := tx.Rework.FindByNewDelivery(ctx, d.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("replacement delivery without rework", zap.String("delivery_id", d.ID))
			return nil
		}
		return err
	}
	if !CanTransitionClaim(rw.Status, entity.ClaimStatusCompleted) {
		return transitionError(rw.Status, entity.ClaimStatusCompleted)
	}
	from := rw.Status
	rw.Status = entity.ClaimStatusCompleted
	if err := tx.Rework.Update(ctx, rw); err != nil {
		return fmt.Errorf("更新返工单失败: %w", err)
	}
	return tx.ActivityLog.LogActivity(ctx, entity.EntityRework, rw.ID, rw.RefNo,
		"status_change", from, rw.Status, "返工交付 "+d.RefNo+" 已收货", op.ID, op.Name)
}
