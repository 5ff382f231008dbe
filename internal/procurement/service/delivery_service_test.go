package service

import (
	"context"
	"errors"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFromRequisition_CopiesFinalQuantities(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, f.db, "Acme")
	poSvc := NewPurchaseOrderService(f.repos, nil)

	// 未审批不能生成
	_, err := poSvc.CreateFromRequisition(ctx, adminOp, f.req.ID, &CreatePOFromRequisitionRequest{
		VendorID: vendor.ID, PaymentType: entity.PaymentTypeCash,
	})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{
		Action: ActionAccept,
		Items:  []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(3)}},
	})
	require.NoError(t, err)

	_, err = poSvc.CreateFromRequisition(ctx, adminOp, f.req.ID, &CreatePOFromRequisitionRequest{
		VendorID: vendor.ID, PaymentType: entity.PaymentTypeStoreCredit,
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "payment_type")

	po, err := poSvc.CreateFromRequisition(ctx, adminOp, f.req.ID, &CreatePOFromRequisitionRequest{
		VendorID: vendor.ID, PaymentType: entity.PaymentTypeCash,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPending, po.Status)
	require.Len(t, po.Items, 2)
	quantities := map[string]int{}
	for _, it := range po.Items {
		quantities[it.ItemID] = it.Quantity
	}
	assert.Equal(t, map[string]int{f.boltID: 2, f.nutID: 3}, quantities)
	assert.True(t, po.TotalCost.Equal(decimal.NewFromInt(350)), "got %s", po.TotalCost)
	assert.Equal(t, entity.RequisitionStatusOrdered, f.reload(t).Status)
}

func TestDeliveryReceive_AdvancesOrderAndRequisition(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, f.db, "Acme")
	poSvc := NewPurchaseOrderService(f.repos, nil)
	deliverySvc := NewDeliveryService(f.repos, nil)

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionAccept})
	require.NoError(t, err)
	po, err := poSvc.CreateFromRequisition(ctx, adminOp, f.req.ID, &CreatePOFromRequisitionRequest{
		VendorID: vendor.ID, PaymentType: entity.PaymentTypeCash,
	})
	require.NoError(t, err)
	_, err = poSvc.Approve(ctx, adminOp, po.ID)
	require.NoError(t, err)
	_, err = poSvc.MarkOrdered(ctx, adminOp, po.ID)
	require.NoError(t, err)

	var boltLine, nutLine string
	for _, it := range po.Items {
		if it.ItemID == f.boltID {
			boltLine = it.ID
		} else {
			nutLine = it.ID
		}
	}

	// 第一批只交部分
	first, err := poSvc.CreateDelivery(ctx, adminOp, po.ID, &CreateDeliveryRequest{
		Lines: []DeliveryLineInput{{LineID: boltLine, Quantity: 2}, {LineID: nutLine, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = deliverySvc.Receive(ctx, adminOp, first.ID, &ReceiveRequest{Notes: "box 1"})
	require.NoError(t, err)

	got, err := poSvc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPartiallyDelivered, got.Status)
	assert.Equal(t, entity.RequisitionStatusOrdered, f.reload(t).Status)

	// 剩余数量一次交齐
	rest, err := poSvc.CreateDelivery(ctx, adminOp, po.ID, &CreateDeliveryRequest{})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, 4, rest.Items[0].Quantity)

	received, err := deliverySvc.Receive(ctx, adminOp, rest.ID, &ReceiveRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryStatusReceived, received.Status)
	require.NotNil(t, received.ReceivedBy)
	assert.Equal(t, adminOp.ID, *received.ReceivedBy)

	got, err = poSvc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDelivered, got.Status)
	assert.Equal(t, entity.RequisitionStatusDelivered, f.reload(t).Status)

	_, err = deliverySvc.Receive(ctx, adminOp, rest.ID, &ReceiveRequest{})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}
