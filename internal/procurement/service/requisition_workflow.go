package service

import (
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/shopspring/decimal"
)

// 请购单引导操作
const (
	ActionAccept         = "accept"
	ActionDecline        = "decline"
	ActionReadyForPickup = "ready_for_pickup"
	ActionMarkReceived   = "mark_received"
	ActionMarkCompleted  = "mark_completed"
)

// 请购单行项的统一视图，物料行和服务行共用计算逻辑
type requisitionLine struct {
	ID       string
	Quantity int
	Approved *int
	Price    decimal.Decimal
}

func linesOf(req *entity.Requisition) []requisitionLine {
	if req.Type == entity.RequisitionTypeServices {
		lines := make([]requisitionLine, 0, len(req.Services))
		for _, s := range req.Services {
			lines = append(lines, requisitionLine{ID: s.ID, Quantity: s.Quantity, Approved: s.ApprovedQuantity, Price: s.UnitCost})
		}
		return lines
	}
	lines := make([]requisitionLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, requisitionLine{ID: it.ID, Quantity: it.Quantity, Approved: it.ApprovedQuantity, Price: it.UnitPrice})
	}
	return lines
}

// FinalQuantity 批准数量大于0时取批准数量，否则取申请数量
func FinalQuantity(quantity int, approved *int) int {
	if approved != nil && *approved > 0 {
		return *approved
	}
	return quantity
}

// LineTotal 行金额
func LineTotal(quantity int, approved *int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(FinalQuantity(quantity, approved))))
}

// ComputeTotal 请购单总额 = Σ(最终数量 × 单价)，物料和服务一致
func ComputeTotal(req *entity.Requisition) decimal.Decimal {
	total := decimal.Zero
	for _, l := range linesOf(req) {
		total = total.Add(LineTotal(l.Quantity, l.Approved, l.Price))
	}
	return total
}

// ShowApprovedColumn 是否存在数量差异：任一行批准数量 > 0 且不等于申请数量
func ShowApprovedColumn(req *entity.Requisition) bool {
	for _, l := range linesOf(req) {
		if l.Approved != nil && *l.Approved > 0 && *l.Approved != l.Quantity {
			return true
		}
	}
	return false
}

// ApprovalStatus 按差异推导审批结果
func ApprovalStatus(req *entity.Requisition) string {
	if ShowApprovedColumn(req) {
		return entity.RequisitionStatusPartiallyApproved
	}
	return entity.RequisitionStatusApproved
}

func isApprovalStatus(status string) bool {
	return status == entity.RequisitionStatusApproved || status == entity.RequisitionStatusPartiallyApproved
}

// ResolveStatus 直接指定目标状态时的校验。审批结果必须与数量差异一致，ordered/delivered 只由采购订单和收货写入
func ResolveStatus(req *entity.Requisition, status string) (string, error) {
	from := req.Status
	if !CanTransitionRequisition(from, status) {
		return "", transitionError(from, status)
	}
	switch {
	case status == entity.RequisitionStatusOrdered || status == entity.RequisitionStatusDelivered:
		return "", fmt.Errorf("%w: %s is set by purchase orders and deliveries", ErrInvalidTransition, status)
	case from == entity.RequisitionStatusPending && isApprovalStatus(status):
		if derived := ApprovalStatus(req); derived != status {
			return "", fmt.Errorf("%w: approved quantities make this requisition %s, not %s", ErrInvalidTransition, derived, status)
		}
	}
	return status, nil
}

// StatusDropdownVisible 待审批时隐藏状态下拉
func StatusDropdownVisible(status string) bool {
	return status != entity.RequisitionStatusPending
}

// CanTransitionRequisition 是否为合法的引导流转
func CanTransitionRequisition(from, to string) bool {
	return canTransition(entity.ValidRequisitionTransitions, from, to)
}

// IsRequisitionStatus 是否为已知状态
func IsRequisitionStatus(status string) bool {
	for _, s := range entity.RequisitionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CheckApprovedQuantity 校验 0 ≤ approved ≤ quantity
func CheckApprovedQuantity(approved, quantity int) error {
	if approved < 0 || approved > quantity {
		return fmt.Errorf("approved quantity must be between 0 and %d", quantity)
	}
	return nil
}

// ValidateApprovedQuantities 校验所有行的批准数量
func ValidateApprovedQuantities(req *entity.Requisition) error {
	verr := &ValidationError{Message: "Approved quantity cannot exceed requested quantity", Fields: map[string]string{}}
	for _, l := range linesOf(req) {
		if l.Approved == nil {
			continue
		}
		if err := CheckApprovedQuantity(*l.Approved, l.Quantity); err != nil {
			verr.Fields["lines."+l.ID+".approved_quantity"] = err.Error()
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidateLines 至少一行，且行类型与请购类型一致
func ValidateLines(req *entity.Requisition) error {
	switch req.Type {
	case entity.RequisitionTypeItems:
		if len(req.Services) > 0 {
			return fieldError("services", "An items requisition cannot contain services")
		}
		if len(req.Items) == 0 {
			return fieldError("items", "Please add at least one item")
		}
		for i, it := range req.Items {
			if it.Quantity <= 0 {
				return fieldError(fmt.Sprintf("items.%d.quantity", i), "Quantity must be greater than 0")
			}
		}
	case entity.RequisitionTypeServices:
		if len(req.Items) > 0 {
			return fieldError("items", "A services requisition cannot contain items")
		}
		if len(req.Services) == 0 {
			return fieldError("services", "Please add at least one service")
		}
		for i, s := range req.Services {
			if s.Quantity <= 0 {
				return fieldError(fmt.Sprintf("services.%d.quantity", i), "Quantity must be greater than 0")
			}
		}
	default:
		return fieldError("type", "Type must be items or services")
	}
	return nil
}

// ValidateDeclineReason 驳回原因去空白后不能为空
func ValidateDeclineReason(reason string) (string, error) {
	r := trimmed(reason)
	if r == "" {
		return "", fieldError("reason", "Please provide a reason for declining")
	}
	return r, nil
}

// AllowedActions 当前状态下可用的引导操作
func AllowedActions(req *entity.Requisition) []string {
	actions := []string{}
	switch req.Status {
	case entity.RequisitionStatusPending:
		actions = append(actions, ActionAccept, ActionDecline)
	case entity.RequisitionStatusApproved, entity.RequisitionStatusPartiallyApproved, entity.RequisitionStatusDelivered:
		if req.Type == entity.RequisitionTypeServices {
			actions = append(actions, ActionMarkCompleted)
		} else {
			actions = append(actions, ActionReadyForPickup)
		}
	case entity.RequisitionStatusAwaitingPickup:
		actions = append(actions, ActionMarkReceived)
	}
	return actions
}

// ResolveAction 操作对应的目标状态。accept 时需先写入批准数量再调用
func ResolveAction(req *entity.Requisition, action string) (string, error) {
	allowed := false
	for _, a := range AllowedActions(req) {
		if a == action {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: action %s not available while %s", ErrInvalidTransition, action, req.Status)
	}

	switch action {
	case ActionAccept:
		return ApprovalStatus(req), nil
	case ActionDecline:
		return entity.RequisitionStatusRejected, nil
	case ActionReadyForPickup:
		return entity.RequisitionStatusAwaitingPickup, nil
	case ActionMarkReceived, ActionMarkCompleted:
		return entity.RequisitionStatusCompleted, nil
	}
	return "", fmt.Errorf("%w: unknown action %s", ErrInvalidTransition, action)
}

// ValidateForceStatus 强制改状态：原因必填，待审批状态下不可用
func ValidateForceStatus(from, to, reason string) (string, error) {
	if !IsRequisitionStatus(to) {
		return "", fieldError("status", "Unknown status "+to)
	}
	if from == entity.RequisitionStatusPending {
		return "", fmt.Errorf("%w: status override is not available while pending", ErrInvalidTransition)
	}
	r := trimmed(reason)
	if r == "" {
		return "", fieldError("reason", "A reason is required to override the status")
	}
	return r, nil
}

// RequestorInput 请购人表单字段
type RequestorInput struct {
	Type   string  `json:"requestor_type"`
	Name   string  `json:"requestor_name"`
	UserID *string `json:"user_id"`
}

// NormalizeRequestor 从 other 切换到 self 时清空之前填写的姓名和所选用户
func NormalizeRequestor(prev RequestorInput, nextType string) RequestorInput {
	next := prev
	next.Type = nextType
	if prev.Type == entity.RequestorOther && nextType == entity.RequestorSelf {
		next.Name = ""
		next.UserID = nil
	}
	return next
}

// ResolveRequestor 计算最终请购人信息。self 使用当前用户
func ResolveRequestor(in RequestorInput, currentUserID, currentUserName string) (RequestorInput, error) {
	switch in.Type {
	case "", entity.RequestorSelf:
		out := NormalizeRequestor(in, entity.RequestorSelf)
		out.UserID = strPtr(currentUserID)
		out.Name = currentUserName
		return out, nil
	case entity.RequestorOther:
		out := in
		out.Name = trimmed(in.Name)
		if out.UserID != nil && *out.UserID == "" {
			out.UserID = nil
		}
		if out.UserID == nil && out.Name == "" {
			return RequestorInput{}, fieldError("requestor_name", "Please select a user or enter the requestor name")
		}
		return out, nil
	}
	return RequestorInput{}, fieldError("requestor_type", "Requestor type must be self or other")
}
