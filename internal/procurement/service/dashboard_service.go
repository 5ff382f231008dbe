package service

import (
	"context"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"golang.org/x/sync/errgroup"
)

// DashboardService 首页统计
type DashboardService struct {
	repos *repository.Repositories
}

func NewDashboardService(repos *repository.Repositories) *DashboardService {
	return &DashboardService{repos: repos}
}

// DashboardSummary 首页统计数据
type DashboardSummary struct {
	Requisitions      map[string]int64 `json:"requisitions"`
	OpenPurchaseOrder int64            `json:"open_purchase_orders"`
	PendingDeliveries int64            `json:"pending_deliveries"`
	OpenReturns       int64            `json:"open_returns"`
	OpenReworks       int64            `json:"open_reworks"`
}

// Summary 并发查询各项统计
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	summary := &DashboardSummary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.repos.Requisition.CountByStatus(gctx, nil)
		if err != nil {
			return fmt.Errorf("统计请购单失败: %w", err)
		}
		summary.Requisitions = counts
		return nil
	})
	g.Go(func() error {
		n, err := s.repos.PO.CountByStatus(gctx, []string{
			entity.POStatusPending, entity.POStatusApproved,
			entity.POStatusOrdered, entity.POStatusPartiallyDelivered,
		})
		if err != nil {
			return fmt.Errorf("统计采购订单失败: %w", err)
		}
		summary.OpenPurchaseOrder = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repos.Delivery.CountByStatus(gctx, entity.DeliveryStatusPending)
		if err != nil {
			return fmt.Errorf("统计交货单失败: %w", err)
		}
		summary.PendingDeliveries = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repos.Return.CountOpen(gctx)
		if err != nil {
			return fmt.Errorf("统计退货单失败: %w", err)
		}
		summary.OpenReturns = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repos.Rework.CountOpen(gctx)
		if err != nil {
			return fmt.Errorf("统计返工单失败: %w", err)
		}
		summary.OpenReworks = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
