package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"go.uber.org/zap"
)

// RequisitionService 请购单服务
type RequisitionService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewRequisitionService(repos *repository.Repositories, logger *zap.Logger) *RequisitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequisitionService{repos: repos, logger: logger}
}

// List 请购单列表
func (s *RequisitionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]*RequisitionView, int64, error) {
	items, total, err := s.repos.Requisition.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	return BuildRequisitionViews(items), total, nil
}

// Summary 各状态数量（状态页签）
func (s *RequisitionService) Summary(ctx context.Context, filters map[string]string) (map[string]int64, error) {
	return s.repos.Requisition.CountByStatus(ctx, filters)
}

// Get 请购单详情
func (s *RequisitionService) Get(ctx context.Context, id string) (*RequisitionView, error) {
	req, err := s.repos.Requisition.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildRequisitionView(req), nil
}

// RequisitionItemInput 物料行输入
type RequisitionItemInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// RequisitionServiceInput 服务行输入
type RequisitionServiceInput struct {
	ServiceID string `json:"service_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// CreateRequisitionRequest 创建请购单请求
type CreateRequisitionRequest struct {
	Type     string `json:"type" binding:"required,requisition_type"`
	Priority string `json:"priority" binding:"omitempty,priority"`
	RequestorInput
	Notes    string                    `json:"notes"`
	Items    []RequisitionItemInput    `json:"items" binding:"omitempty,dive"`
	Services []RequisitionServiceInput `json:"services" binding:"omitempty,dive"`
}

// Create 创建请购单
func (s *RequisitionService) Create(ctx context.Context, op Operator, in *CreateRequisitionRequest) (*RequisitionView, error) {
	requestor, err := ResolveRequestor(in.RequestorInput, op.ID, op.Name)
	if err != nil {
		return nil, err
	}

	req := &entity.Requisition{
		ID:            newID(),
		Status:        entity.RequisitionStatusPending,
		Priority:      in.Priority,
		Type:          in.Type,
		RequestorType: requestor.Type,
		RequestorName: requestor.Name,
		UserID:        requestor.UserID,
		CreatedBy:     op.ID,
		Notes:         in.Notes,
	}
	if req.Priority == "" {
		req.Priority = entity.PriorityNormal
	}

	if err := s.buildLines(ctx, req, in.Items, in.Services); err != nil {
		return nil, err
	}
	if err := ValidateLines(req); err != nil {
		return nil, err
	}
	req.TotalCost = ComputeTotal(req)

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		code, err := tx.Requisition.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成请购单号失败: %w", err)
		}
		req.RefNo = code
		if err := tx.Requisition.Create(ctx, req); err != nil {
			return fmt.Errorf("创建请购单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			"create", "", req.Status, "创建请购单", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ID)
}

// buildLines 根据输入生成行项，单价取物料/服务当前价格快照
func (s *RequisitionService) buildLines(ctx context.Context, req *entity.Requisition, items []RequisitionItemInput, services []RequisitionServiceInput) error {
	req.Items = nil
	req.Services = nil

	if len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ItemID)
		}
		found, err := s.repos.Item.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for i, it := range items {
			item, ok := found[it.ItemID]
			if !ok {
				return fieldError(fmt.Sprintf("items.%d.item_id", i), "Item not found")
			}
			if item.Status == entity.StatusInactive {
				return fieldError(fmt.Sprintf("items.%d.item_id", i), "Item "+item.Name+" is inactive")
			}
			req.Items = append(req.Items, entity.RequisitionItem{
				ID:            newID(),
				RequisitionID: req.ID,
				ItemID:        it.ItemID,
				Quantity:      it.Quantity,
				UnitPrice:     item.UnitPrice,
				SortOrder:     i + 1,
			})
		}
	}

	if len(services) > 0 {
		ids := make([]string, 0, len(services))
		for _, sv := range services {
			ids = append(ids, sv.ServiceID)
		}
		found, err := s.repos.Service.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for i, sv := range services {
			svc, ok := found[sv.ServiceID]
			if !ok {
				return fieldError(fmt.Sprintf("services.%d.service_id", i), "Service not found")
			}
			req.Services = append(req.Services, entity.RequisitionService{
				ID:            newID(),
				RequisitionID: req.ID,
				ServiceID:     sv.ServiceID,
				Quantity:      sv.Quantity,
				UnitCost:      svc.UnitCost,
				SortOrder:     i + 1,
			})
		}
	}
	return nil
}

// UpdateRequisitionRequest 更新请购单请求
type UpdateRequisitionRequest struct {
	Type          *string                    `json:"type" binding:"omitempty,requisition_type"`
	Priority      *string                    `json:"priority" binding:"omitempty,priority"`
	RequestorType *string                    `json:"requestor_type"`
	RequestorName *string                    `json:"requestor_name"`
	UserID        *string                    `json:"user_id"`
	Notes         *string                    `json:"notes"`
	Items         *[]RequisitionItemInput    `json:"items" binding:"omitempty,dive"`
	Services      *[]RequisitionServiceInput `json:"services" binding:"omitempty,dive"`
}

// Update 更新请购单，仅待审批状态可改
func (s *RequisitionService) Update(ctx context.Context, op Operator, id string, in *UpdateRequisitionRequest) (*RequisitionView, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != entity.RequisitionStatusPending {
			return newValidationError("Only pending requisitions can be edited")
		}

		if in.Type != nil && *in.Type != req.Type {
			if req.LineCount() > 0 {
				return fieldError("type", "Type cannot be changed once lines have been added")
			}
			req.Type = *in.Type
		}
		if in.Priority != nil {
			req.Priority = *in.Priority
		}
		if in.Notes != nil {
			req.Notes = *in.Notes
		}

		if in.RequestorType != nil || in.RequestorName != nil || in.UserID != nil {
			current := RequestorInput{Type: req.RequestorType, Name: req.RequestorName, UserID: req.UserID}
			if in.RequestorName != nil {
				current.Name = *in.RequestorName
			}
			if in.UserID != nil {
				current.UserID = in.UserID
			}
			if in.RequestorType != nil {
				current = NormalizeRequestor(current, *in.RequestorType)
			}
			resolved, err := ResolveRequestor(current, op.ID, op.Name)
			if err != nil {
				return err
			}
			req.RequestorType = resolved.Type
			req.RequestorName = resolved.Name
			req.UserID = resolved.UserID
		}

		if in.Items != nil || in.Services != nil {
			var items []RequisitionItemInput
			var services []RequisitionServiceInput
			if in.Items != nil {
				items = *in.Items
			} else {
				items = lineInputsFromItems(req.Items)
			}
			if in.Services != nil {
				services = *in.Services
			} else {
				services = lineInputsFromServices(req.Services)
			}
			if err := s.buildLines(ctx, req, items, services); err != nil {
				return err
			}
			if err := ValidateLines(req); err != nil {
				return err
			}
			if err := tx.Requisition.ReplaceLines(ctx, req); err != nil {
				return fmt.Errorf("更新请购行失败: %w", err)
			}
		} else if err := ValidateLines(req); err != nil {
			return err
		}

		req.TotalCost = ComputeTotal(req)
		if err := tx.Requisition.Update(ctx, req); err != nil {
			return fmt.Errorf("更新请购单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			"update", req.Status, req.Status, "编辑请购单", op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func lineInputsFromItems(items []entity.RequisitionItem) []RequisitionItemInput {
	out := make([]RequisitionItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, RequisitionItemInput{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	return out
}

func lineInputsFromServices(services []entity.RequisitionService) []RequisitionServiceInput {
	out := make([]RequisitionServiceInput, 0, len(services))
	for _, sv := range services {
		out = append(out, RequisitionServiceInput{ServiceID: sv.ServiceID, Quantity: sv.Quantity})
	}
	return out
}

// ApprovedLineInput 批准数量输入
type ApprovedLineInput struct {
	ID               string `json:"id" binding:"required"`
	ApprovedQuantity *int   `json:"approved_quantity"`
}

// UpdateStatusRequest 引导流转请求，action 与 status 二选一
type UpdateStatusRequest struct {
	Action string              `json:"action"`
	Status string              `json:"status" binding:"omitempty,requisition_status"`
	Reason string              `json:"reason"`
	Items  []ApprovedLineInput `json:"items" binding:"omitempty,dive"`
}

// UpdateStatus 按流转表修改状态
func (s *RequisitionService) UpdateStatus(ctx context.Context, op Operator, id string, in *UpdateStatusRequest) (*RequisitionView, error) {
	if in.Action == "" && in.Status == "" {
		return nil, fieldError("action", "Either action or status is required")
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := req.Status

		approving := in.Action == ActionAccept ||
			(in.Action == "" && from == entity.RequisitionStatusPending && isApprovalStatus(in.Status))
		if approving && len(in.Items) > 0 {
			if err := applyApprovedQuantities(req, in.Items); err != nil {
				return err
			}
		}

		var to string
		if in.Action != "" {
			to, err = ResolveAction(req, in.Action)
		} else {
			to, err = ResolveStatus(req, in.Status)
		}
		if err != nil {
			return err
		}

		if from == entity.RequisitionStatusPending && !op.Has(entity.PermRequisitionApprove) {
			return ErrForbidden
		}
		if to == entity.RequisitionStatusRejected {
			reason, err := ValidateDeclineReason(in.Reason)
			if err != nil {
				return err
			}
			req.Remarks = reason
		}

		if err := s.saveLines(ctx, tx, req); err != nil {
			return err
		}
		req.Status = to
		req.TotalCost = ComputeTotal(req)
		if err := tx.Requisition.Update(ctx, req); err != nil {
			return fmt.Errorf("更新请购单状态失败: %w", err)
		}

		action := in.Action
		if action == "" {
			action = "status_change"
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			action, from, to, trimmed(in.Reason), op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ForceStatusRequest 强制改状态请求
type ForceStatusRequest struct {
	Status string `json:"status" binding:"required,requisition_status"`
	Reason string `json:"reason" binding:"required"`
}

// ForceStatus 管理员强制改状态，绕过流转表并记录审计
func (s *RequisitionService) ForceStatus(ctx context.Context, op Operator, id string, in *ForceStatusRequest) (*RequisitionView, error) {
	if !op.Has(entity.PermRequisitionForceStatus) {
		return nil, ErrForbidden
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := req.Status
		reason, err := ValidateForceStatus(from, in.Status, in.Reason)
		if err != nil {
			return err
		}
		req.Status = in.Status
		if in.Status == entity.RequisitionStatusRejected {
			req.Remarks = reason
		}
		if err := tx.Requisition.Update(ctx, req); err != nil {
			return fmt.Errorf("更新请购单状态失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			"force_status", from, in.Status, reason, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition status overridden",
		zap.String("requisition_id", id),
		zap.String("status", in.Status),
		zap.String("operator_id", op.ID))
	return s.Get(ctx, id)
}

// AdjustRequest 调整批准数量请求
type AdjustRequest struct {
	Items   []ApprovedLineInput `json:"items" binding:"required,dive"`
	Remarks string              `json:"remarks"`
}

// Adjust 调整批准数量，备注覆盖原备注
func (s *RequisitionService) Adjust(ctx context.Context, op Operator, id string, in *AdjustRequest) (*RequisitionView, error) {
	if !op.Has(entity.PermRequisitionApprove) {
		return nil, ErrForbidden
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := req.Status
		switch from {
		case entity.RequisitionStatusPending, entity.RequisitionStatusApproved, entity.RequisitionStatusPartiallyApproved:
		default:
			return fmt.Errorf("%w: cannot adjust a requisition that is %s", ErrInvalidTransition, from)
		}

		if err := applyApprovedQuantities(req, in.Items); err != nil {
			return err
		}
		req.Remarks = in.Remarks
		if from != entity.RequisitionStatusPending {
			req.Status = ApprovalStatus(req)
		}

		if err := s.saveLines(ctx, tx, req); err != nil {
			return err
		}
		req.TotalCost = ComputeTotal(req)
		if err := tx.Requisition.Update(ctx, req); err != nil {
			return fmt.Errorf("更新请购单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			"adjust", from, req.Status, in.Remarks, op.ID, op.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// applyApprovedQuantities 写入批准数量并校验上限
func applyApprovedQuantities(req *entity.Requisition, inputs []ApprovedLineInput) error {
	missing := map[string]string{}
	for _, in := range inputs {
		matched := false
		for i := range req.Items {
			if req.Items[i].ID == in.ID {
				req.Items[i].ApprovedQuantity = in.ApprovedQuantity
				matched = true
			}
		}
		for i := range req.Services {
			if req.Services[i].ID == in.ID {
				req.Services[i].ApprovedQuantity = in.ApprovedQuantity
				matched = true
			}
		}
		if !matched {
			missing["lines."+in.ID] = "Line not found on this requisition"
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Line not found on this requisition", Fields: missing}
	}
	return ValidateApprovedQuantities(req)
}

func (s *RequisitionService) saveLines(ctx context.Context, tx *repository.Repositories, req *entity.Requisition) error {
	for i := range req.Items {
		if err := tx.Requisition.UpdateItem(ctx, &req.Items[i]); err != nil {
			return fmt.Errorf("更新请购行失败: %w", err)
		}
	}
	for i := range req.Services {
		if err := tx.Requisition.UpdateService(ctx, &req.Services[i]); err != nil {
			return fmt.Errorf("更新请购行失败: %w", err)
		}
	}
	return nil
}

// Delete 删除请购单，仅待审批或已驳回可删
func (s *RequisitionService) Delete(ctx context.Context, op Operator, id string) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != entity.RequisitionStatusPending && req.Status != entity.RequisitionStatusRejected {
			return newValidationError("Only pending or rejected requisitions can be deleted")
		}
		if err := tx.Requisition.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除请购单失败: %w", err)
		}
		return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
			"delete", req.Status, "", "删除请购单", op.ID, op.Name)
	})
}

// Activities 请购单操作日志
func (s *RequisitionService) Activities(ctx context.Context, id string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if _, err := s.repos.Requisition.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.repos.ActivityLog.FindByEntity(ctx, entity.EntityRequisition, id, page, pageSize)
}

// advanceRequisition 系统驱动的流转（生成PO、全部收货），须在事务内调用
func advanceRequisition(ctx context.Context, tx *repository.Repositories, requisitionID, to, content string, op Operator) error {
	req, err := tx.Requisition.FindByIDForUpdate(ctx, requisitionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fieldError("requisition_id", "Requisition not found")
		}
		return err
	}
	if req.Status == to {
		return nil
	}
	if !CanTransitionRequisition(req.Status, to) {
		return transitionError(req.Status, to)
	}
	from := req.Status
	if err := tx.Requisition.UpdateStatus(ctx, req.ID, to); err != nil {
		return fmt.Errorf("更新请购单状态失败: %w", err)
	}
	return tx.ActivityLog.LogActivity(ctx, entity.EntityRequisition, req.ID, req.RefNo,
		"status_change", from, to, content, op.ID, op.Name)
}
