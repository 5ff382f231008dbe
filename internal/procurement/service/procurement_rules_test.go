package service

import (
	"errors"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFixture() *entity.PurchaseOrder {
	return &entity.PurchaseOrder{
		ID:   "po-1",
		Type: entity.RequisitionTypeItems,
		Items: []entity.OrderItem{
			{ID: "oi-1", ItemID: "i1", Quantity: 4, UnitPrice: decimal.NewFromInt(10)},
			{ID: "oi-2", ItemID: "i2", Quantity: 2, UnitPrice: decimal.RequireFromString("7.50")},
		},
	}
}

func TestComputeOrderTotal(t *testing.T) {
	po := orderFixture()
	total := ComputeOrderTotal(po)
	assert.True(t, total.Equal(decimal.NewFromInt(55)), "got %s", total)
	assert.True(t, po.Items[1].Total.Equal(decimal.NewFromInt(15)))
}

func TestRemainingAndFullyDelivered(t *testing.T) {
	po := orderFixture()
	items, services := RemainingQuantities(po, map[string]int{"oi-1": 3}, nil)
	assert.Equal(t, map[string]int{"oi-1": 1, "oi-2": 2}, items)
	assert.Empty(t, services)
	assert.False(t, FullyDelivered(po, map[string]int{"oi-1": 3}, nil))

	// 超交按0计
	items, _ = RemainingQuantities(po, map[string]int{"oi-1": 9, "oi-2": 2}, nil)
	assert.Equal(t, 0, items["oi-1"])
	assert.True(t, FullyDelivered(po, map[string]int{"oi-1": 4, "oi-2": 2}, nil))
}

func TestPlanDelivery_AllRemaining(t *testing.T) {
	po := orderFixture()
	remItems, remServices := RemainingQuantities(po, map[string]int{"oi-1": 1}, nil)

	d, err := PlanDelivery(po, remItems, remServices, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryTypeItemPurchase, d.Type)
	assert.Equal(t, entity.DeliveryStatusPending, d.Status)
	require.Len(t, d.Items, 2)
	assert.Equal(t, 3, d.Items[0].Quantity)
	assert.Equal(t, "oi-1", *d.Items[0].OrderItemID)
	assert.True(t, d.TotalCost.Equal(decimal.NewFromInt(45)), "got %s", d.TotalCost)
}

func TestPlanDelivery_PartialLines(t *testing.T) {
	po := orderFixture()
	remItems, remServices := RemainingQuantities(po, nil, nil)

	d, err := PlanDelivery(po, remItems, remServices, []DeliveryLineInput{{LineID: "oi-2", Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "i2", d.Items[0].ItemID)
	assert.Equal(t, 1, d.Items[0].Quantity)

	_, err = PlanDelivery(po, remItems, remServices, []DeliveryLineInput{{LineID: "oi-2", Quantity: 3}})
	assert.True(t, errors.Is(err, ErrValidation))

	// 同一行重复提交按合计校验
	_, err = PlanDelivery(po, remItems, remServices, []DeliveryLineInput{
		{LineID: "oi-2", Quantity: 2}, {LineID: "oi-2", Quantity: 1},
	})
	assert.Error(t, err)

	_, err = PlanDelivery(po, remItems, remServices, []DeliveryLineInput{{LineID: "nope", Quantity: 1}})
	assert.Error(t, err)
}

func TestPlanDelivery_NothingRemains(t *testing.T) {
	po := orderFixture()
	remItems, remServices := RemainingQuantities(po, map[string]int{"oi-1": 4, "oi-2": 2}, nil)
	_, err := PlanDelivery(po, remItems, remServices, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing remains")
}

func TestPlanDelivery_Services(t *testing.T) {
	po := &entity.PurchaseOrder{
		ID:   "po-2",
		Type: entity.RequisitionTypeServices,
		Services: []entity.OrderService{
			{ID: "os-1", ServiceID: "s1", Quantity: 1, UnitCost: decimal.NewFromInt(500)},
		},
	}
	remItems, remServices := RemainingQuantities(po, nil, nil)
	d, err := PlanDelivery(po, remItems, remServices, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryTypeServiceDelivery, d.Type)
	require.Len(t, d.Services, 1)
	assert.True(t, d.TotalCost.Equal(decimal.NewFromInt(500)))
}

func TestCheckClaimQuantities(t *testing.T) {
	delivered := map[string]int{"d1": 5, "d2": 1}
	claimed := map[string]int{"d1": 2}

	assert.NoError(t, CheckClaimQuantities(delivered, claimed, []ClaimLineInput{{LineID: "d1", Quantity: 3}}))
	assert.Error(t, CheckClaimQuantities(delivered, claimed, []ClaimLineInput{{LineID: "d1", Quantity: 4}}))
	assert.Error(t, CheckClaimQuantities(delivered, claimed, []ClaimLineInput{{LineID: "x", Quantity: 1}}))
	assert.Error(t, CheckClaimQuantities(delivered, claimed, []ClaimLineInput{{LineID: "d2", Quantity: 0}}))
	assert.Error(t, CheckClaimQuantities(delivered, claimed, nil))
}

func TestClaimAndPOTransitions(t *testing.T) {
	assert.True(t, CanTransitionClaim(entity.ClaimStatusPending, entity.ClaimStatusApproved))
	assert.True(t, CanTransitionClaim(entity.ClaimStatusApproved, entity.ClaimStatusInProgress))
	assert.False(t, CanTransitionClaim(entity.ClaimStatusRejected, entity.ClaimStatusApproved))
	assert.False(t, CanTransitionClaim(entity.ClaimStatusPending, entity.ClaimStatusCompleted))

	assert.True(t, CanTransitionPO(entity.POStatusPending, entity.POStatusApproved))
	assert.True(t, CanTransitionPO(entity.POStatusApproved, entity.POStatusCancelled))
	assert.False(t, CanTransitionPO(entity.POStatusOrdered, entity.POStatusCancelled))
	assert.False(t, CanTransitionPO(entity.POStatusCompleted, entity.POStatusPending))
}

func TestBuildOrderFromRequisition(t *testing.T) {
	req := itemsFixture()
	po := BuildOrderFromRequisition(req)

	assert.Equal(t, "req-1", *po.RequisitionID)
	assert.Equal(t, entity.POStatusPending, po.Status)
	require.Len(t, po.Items, 3)
	assert.Equal(t, 3, po.Items[1].Quantity)
	assert.Equal(t, "l2", *po.Items[1].RequisitionItemID)
	assert.True(t, po.TotalCost.Equal(decimal.NewFromInt(550)))
}
