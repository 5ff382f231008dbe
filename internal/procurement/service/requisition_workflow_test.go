package service

import (
	"errors"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func itemsFixture() *entity.Requisition {
	return &entity.Requisition{
		ID:     "req-1",
		Type:   entity.RequisitionTypeItems,
		Status: entity.RequisitionStatusPending,
		Items: []entity.RequisitionItem{
			{ID: "l1", ItemID: "i1", Quantity: 2, UnitPrice: decimal.NewFromInt(100), ApprovedQuantity: intPtr(2)},
			{ID: "l2", ItemID: "i2", Quantity: 5, UnitPrice: decimal.NewFromInt(50), ApprovedQuantity: intPtr(3)},
			{ID: "l3", ItemID: "i3", Quantity: 1, UnitPrice: decimal.NewFromInt(200), ApprovedQuantity: intPtr(1)},
		},
	}
}

func TestComputeTotal_UsesFinalQuantity(t *testing.T) {
	req := itemsFixture()
	assert.True(t, ComputeTotal(req).Equal(decimal.NewFromInt(550)), "got %s", ComputeTotal(req))
}

func TestComputeTotal_ServicesSameRule(t *testing.T) {
	req := &entity.Requisition{
		Type: entity.RequisitionTypeServices,
		Services: []entity.RequisitionService{
			{ID: "s1", Quantity: 4, UnitCost: decimal.NewFromInt(25), ApprovedQuantity: intPtr(2)},
			{ID: "s2", Quantity: 1, UnitCost: decimal.NewFromInt(300)},
			// 批准数量为0时按申请数量计
			{ID: "s3", Quantity: 3, UnitCost: decimal.NewFromInt(10), ApprovedQuantity: intPtr(0)},
		},
	}
	assert.True(t, ComputeTotal(req).Equal(decimal.NewFromInt(380)), "got %s", ComputeTotal(req))
}

func TestFinalQuantity(t *testing.T) {
	assert.Equal(t, 5, FinalQuantity(5, nil))
	assert.Equal(t, 5, FinalQuantity(5, intPtr(0)))
	assert.Equal(t, 3, FinalQuantity(5, intPtr(3)))
}

func TestShowApprovedColumnAndApprovalStatus(t *testing.T) {
	req := itemsFixture()
	assert.True(t, ShowApprovedColumn(req))
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, ApprovalStatus(req))

	req.Items[1].ApprovedQuantity = intPtr(5)
	assert.False(t, ShowApprovedColumn(req))
	assert.Equal(t, entity.RequisitionStatusApproved, ApprovalStatus(req))

	for i := range req.Items {
		req.Items[i].ApprovedQuantity = nil
	}
	assert.False(t, ShowApprovedColumn(req))
}

func TestStatusDropdownVisible(t *testing.T) {
	tests := []struct {
		status  string
		visible bool
	}{
		{entity.RequisitionStatusPending, false},
		{entity.RequisitionStatusApproved, true},
		{entity.RequisitionStatusPartiallyApproved, true},
		{entity.RequisitionStatusRejected, true},
		{entity.RequisitionStatusOrdered, true},
		{entity.RequisitionStatusDelivered, true},
		{entity.RequisitionStatusAwaitingPickup, true},
		{entity.RequisitionStatusCompleted, true},
	}
	require.Len(t, tests, len(entity.RequisitionStatuses))
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.visible, StatusDropdownVisible(tt.status))
		})
	}
}

func TestValidateApprovedQuantities(t *testing.T) {
	req := itemsFixture()
	assert.NoError(t, ValidateApprovedQuantities(req))

	req.Items[1].ApprovedQuantity = intPtr(6)
	err := ValidateApprovedQuantities(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "lines.l2.approved_quantity")

	req.Items[1].ApprovedQuantity = intPtr(-1)
	assert.Error(t, ValidateApprovedQuantities(req))
}

func TestResolveStatus(t *testing.T) {
	// l2 批准 3/5，存在差异
	req := itemsFixture()
	_, err := ResolveStatus(req, entity.RequisitionStatusApproved)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	to, err := ResolveStatus(req, entity.RequisitionStatusPartiallyApproved)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, to)

	req.Items[1].ApprovedQuantity = intPtr(5)
	_, err = ResolveStatus(req, entity.RequisitionStatusPartiallyApproved)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	to, err = ResolveStatus(req, entity.RequisitionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusApproved, to)

	to, err = ResolveStatus(req, entity.RequisitionStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusRejected, to)

	// ordered/delivered 只能由采购流程写入
	req.Status = entity.RequisitionStatusApproved
	_, err = ResolveStatus(req, entity.RequisitionStatusOrdered)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	req.Status = entity.RequisitionStatusOrdered
	_, err = ResolveStatus(req, entity.RequisitionStatusDelivered)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	req.Status = entity.RequisitionStatusApproved
	to, err = ResolveStatus(req, entity.RequisitionStatusAwaitingPickup)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusAwaitingPickup, to)
}

func TestValidateLines(t *testing.T) {
	req := &entity.Requisition{Type: entity.RequisitionTypeItems}
	err := ValidateLines(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please add at least one item")

	req = &entity.Requisition{Type: entity.RequisitionTypeServices}
	assert.Error(t, ValidateLines(req))

	req = itemsFixture()
	assert.NoError(t, ValidateLines(req))

	req.Services = []entity.RequisitionService{{ID: "s1", Quantity: 1}}
	assert.Error(t, ValidateLines(req))

	req = itemsFixture()
	req.Items[0].Quantity = 0
	assert.Error(t, ValidateLines(req))

	assert.Error(t, ValidateLines(&entity.Requisition{Type: "goods"}))
}

func TestValidateDeclineReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := ValidateDeclineReason(reason)
		assert.Error(t, err, "reason %q", reason)
		assert.True(t, errors.Is(err, ErrValidation))
	}
	r, err := ValidateDeclineReason("  over budget ")
	require.NoError(t, err)
	assert.Equal(t, "over budget", r)
}

func TestCanTransitionRequisition(t *testing.T) {
	assert.True(t, CanTransitionRequisition(entity.RequisitionStatusPending, entity.RequisitionStatusApproved))
	assert.True(t, CanTransitionRequisition(entity.RequisitionStatusPending, entity.RequisitionStatusRejected))
	assert.True(t, CanTransitionRequisition(entity.RequisitionStatusOrdered, entity.RequisitionStatusDelivered))
	assert.False(t, CanTransitionRequisition(entity.RequisitionStatusPending, entity.RequisitionStatusCompleted))
	assert.False(t, CanTransitionRequisition(entity.RequisitionStatusRejected, entity.RequisitionStatusApproved))
	assert.False(t, CanTransitionRequisition(entity.RequisitionStatusCompleted, entity.RequisitionStatusPending))
}

func TestAllowedActionsAndResolve(t *testing.T) {
	req := itemsFixture()
	assert.Equal(t, []string{ActionAccept, ActionDecline}, AllowedActions(req))

	to, err := ResolveAction(req, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, to)

	to, err = ResolveAction(req, ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusRejected, to)

	_, err = ResolveAction(req, ActionMarkReceived)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	req.Status = entity.RequisitionStatusApproved
	assert.Equal(t, []string{ActionReadyForPickup}, AllowedActions(req))
	to, err = ResolveAction(req, ActionReadyForPickup)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusAwaitingPickup, to)

	req.Status = entity.RequisitionStatusAwaitingPickup
	to, err = ResolveAction(req, ActionMarkReceived)
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusCompleted, to)

	req.Type = entity.RequisitionTypeServices
	req.Status = entity.RequisitionStatusDelivered
	assert.Equal(t, []string{ActionMarkCompleted}, AllowedActions(req))

	req.Status = entity.RequisitionStatusCompleted
	assert.Empty(t, AllowedActions(req))
}

func TestValidateForceStatus(t *testing.T) {
	_, err := ValidateForceStatus(entity.RequisitionStatusApproved, "unknown", "x")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ValidateForceStatus(entity.RequisitionStatusPending, entity.RequisitionStatusCompleted, "x")
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = ValidateForceStatus(entity.RequisitionStatusApproved, entity.RequisitionStatusCompleted, "  ")
	assert.True(t, errors.Is(err, ErrValidation))

	r, err := ValidateForceStatus(entity.RequisitionStatusOrdered, entity.RequisitionStatusApproved, " vendor fell through ")
	require.NoError(t, err)
	assert.Equal(t, "vendor fell through", r)
}

func TestNormalizeRequestor_OtherToSelfClears(t *testing.T) {
	prev := RequestorInput{Type: entity.RequestorOther, Name: "Juan", UserID: strPtr("u-9")}
	next := NormalizeRequestor(prev, entity.RequestorSelf)
	assert.Equal(t, entity.RequestorSelf, next.Type)
	assert.Empty(t, next.Name)
	assert.Nil(t, next.UserID)

	// self → other 保留字段
	kept := NormalizeRequestor(RequestorInput{Type: entity.RequestorSelf, Name: "Ana"}, entity.RequestorOther)
	assert.Equal(t, "Ana", kept.Name)
}

func TestResolveRequestor(t *testing.T) {
	out, err := ResolveRequestor(RequestorInput{Type: entity.RequestorOther, Name: "Juan", UserID: strPtr("u-9")}, "u-1", "Me")
	require.NoError(t, err)
	assert.Equal(t, "Juan", out.Name)
	assert.Equal(t, "u-9", *out.UserID)

	out, err = ResolveRequestor(RequestorInput{Type: entity.RequestorSelf, Name: "stale"}, "u-1", "Me")
	require.NoError(t, err)
	assert.Equal(t, "Me", out.Name)
	assert.Equal(t, "u-1", *out.UserID)

	_, err = ResolveRequestor(RequestorInput{Type: entity.RequestorOther, Name: "  ", UserID: strPtr("")}, "u-1", "Me")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ResolveRequestor(RequestorInput{Type: "proxy"}, "u-1", "Me")
	assert.Error(t, err)
}

func TestBuildRequisitionView(t *testing.T) {
	req := itemsFixture()
	req.Items[0].Item = &entity.Item{Code: "IT-1", Name: "Bolt", Unit: "box"}
	v := BuildRequisitionView(req)

	require.Len(t, v.Lines, 3)
	assert.Equal(t, "Bolt", v.Lines[0].Name)
	assert.Equal(t, 3, v.Lines[1].FinalQuantity)
	assert.True(t, v.Lines[1].LineTotal.Equal(decimal.NewFromInt(150)))
	assert.True(t, v.ComputedTotal.Equal(decimal.NewFromInt(550)))
	assert.True(t, v.ShowApprovedColumn)
	assert.False(t, v.StatusDropdownVisible)
	assert.Equal(t, []string{ActionAccept, ActionDecline}, v.AllowedActions)
}

func TestOperatorHas(t *testing.T) {
	assert.True(t, Operator{Permissions: []string{"*"}}.Has(entity.PermUserManage))
	assert.True(t, Operator{Permissions: []string{entity.PermUserManage}}.Has(entity.PermUserManage))
	assert.False(t, Operator{Permissions: []string{entity.PermCatalogManage}}.Has(entity.PermUserManage))
	assert.False(t, Operator{}.Has(entity.PermUserManage))
}
