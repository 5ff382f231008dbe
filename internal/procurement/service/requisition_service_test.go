package service

import (
	"context"
	"errors"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	adminOp     = Operator{ID: "admin-1", Name: "Admin", Permissions: []string{"*"}}
	approverOp  = Operator{ID: "u-approver", Name: "Approver", Permissions: []string{entity.PermRequisitionApprove}}
	requestorOp = Operator{ID: "u-requestor", Name: "Requestor"}
)

type requisitionFixture struct {
	repos  *repository.Repositories
	db     *gorm.DB
	svc    *RequisitionService
	req    *RequisitionView
	boltID string // 2 × 100
	nutID  string // 5 × 50
}

// 请购行 ID
func (f *requisitionFixture) line(refID string) string {
	for _, l := range f.req.Lines {
		if l.RefID == refID {
			return l.ID
		}
	}
	return ""
}

func (f *requisitionFixture) reload(t *testing.T) *entity.Requisition {
	t.Helper()
	req, err := f.repos.Requisition.FindByID(context.Background(), f.req.ID)
	require.NoError(t, err)
	return req
}

func (f *requisitionFixture) activity(t *testing.T, action string) *entity.ActivityLog {
	t.Helper()
	logs, _, err := f.repos.ActivityLog.FindByEntity(context.Background(), entity.EntityRequisition, f.req.ID, 1, 50)
	require.NoError(t, err)
	for i := range logs {
		if logs[i].Action == action {
			return &logs[i]
		}
	}
	return nil
}

func newRequisitionFixture(t *testing.T) *requisitionFixture {
	t.Helper()
	repos, db := newTestRepos(t)
	cat := testutil.SeedCategory(t, db, "Hardware")
	bolt := testutil.SeedItem(t, db, cat.ID, "Bolt", 100)
	nut := testutil.SeedItem(t, db, cat.ID, "Nut", 50)

	svc := NewRequisitionService(repos, nil)
	req, err := svc.Create(context.Background(), adminOp, &CreateRequisitionRequest{
		Type: entity.RequisitionTypeItems,
		Items: []RequisitionItemInput{
			{ItemID: bolt.ID, Quantity: 2},
			{ItemID: nut.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, entity.RequisitionStatusPending, req.Status)
	return &requisitionFixture{repos: repos, db: db, svc: svc, req: req, boltID: bolt.ID, nutID: nut.ID}
}

func TestRequisitionService_AcceptWithApprovedQuantities(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	v, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{
		Action: ActionAccept,
		Items:  []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(3)}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, v.Status)
	assert.True(t, v.ShowApprovedColumn)
	assert.True(t, v.ComputedTotal.Equal(decimal.NewFromInt(350)), "got %s", v.ComputedTotal)

	stored := f.reload(t)
	assert.True(t, stored.TotalCost.Equal(decimal.NewFromInt(350)), "got %s", stored.TotalCost)
	require.NotNil(t, f.activity(t, ActionAccept))
}

func TestRequisitionService_AcceptRejectsOverApproval(t *testing.T) {
	f := newRequisitionFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), approverOp, f.req.ID, &UpdateStatusRequest{
		Action: ActionAccept,
		Items:  []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(6)}},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "lines."+f.line(f.nutID)+".approved_quantity")

	stored := f.reload(t)
	assert.Equal(t, entity.RequisitionStatusPending, stored.Status)
	assert.Nil(t, stored.Items[1].ApprovedQuantity)
}

func TestRequisitionService_DeclineStoresReason(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionDecline, Reason: "  "})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, entity.RequisitionStatusPending, f.reload(t).Status)

	v, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionDecline, Reason: "  over budget "})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusRejected, v.Status)
	assert.Equal(t, "over budget", f.reload(t).Remarks)
}

func TestRequisitionService_ApprovalNeedsPermission(t *testing.T) {
	f := newRequisitionFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), requestorOp, f.req.ID, &UpdateStatusRequest{Action: ActionAccept})
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, entity.RequisitionStatusPending, f.reload(t).Status)
}

func TestRequisitionService_PlainStatusFollowsVariance(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	// 待审批时调整数量，状态不变
	v, err := f.svc.Adjust(ctx, approverOp, f.req.ID, &AdjustRequest{
		Items: []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(3)}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPending, v.Status)
	assert.True(t, v.ShowApprovedColumn)

	_, err = f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusApproved})
	assert.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
	assert.Equal(t, entity.RequisitionStatusPending, f.reload(t).Status)

	v, err = f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusPartiallyApproved})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, v.Status)
	assert.Equal(t, ApprovalStatus(f.reload(t)), v.Status)
}

func TestRequisitionService_PlainStatusWithoutVariance(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusPartiallyApproved})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	v, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusApproved, v.Status)
}

func TestRequisitionService_OrderChainStatusesNotClientWritable(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, f.db, "Acme")

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionAccept})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, adminOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusOrdered})
	assert.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
	assert.Equal(t, entity.RequisitionStatusApproved, f.reload(t).Status)

	// 仍可正常生成PO
	poSvc := NewPurchaseOrderService(f.repos, nil)
	_, err = poSvc.CreateFromRequisition(ctx, adminOp, f.req.ID, &CreatePOFromRequisitionRequest{
		VendorID: vendor.ID, PaymentType: entity.PaymentTypeCash,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusOrdered, f.reload(t).Status)

	_, err = f.svc.UpdateStatus(ctx, adminOp, f.req.ID, &UpdateStatusRequest{Status: entity.RequisitionStatusDelivered})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, entity.RequisitionStatusOrdered, f.reload(t).Status)
}

func TestRequisitionService_AdjustRederivesStatusAndOverwritesRemarks(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionAccept})
	require.NoError(t, err)

	_, err = f.svc.Adjust(ctx, requestorOp, f.req.ID, &AdjustRequest{})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.Adjust(ctx, approverOp, f.req.ID, &AdjustRequest{
		Items: []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(7)}},
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.Adjust(ctx, approverOp, f.req.ID, &AdjustRequest{
		Items: []ApprovedLineInput{{ID: "missing", ApprovedQuantity: intPtr(1)}},
	})
	assert.True(t, errors.Is(err, ErrValidation))

	v, err := f.svc.Adjust(ctx, approverOp, f.req.ID, &AdjustRequest{
		Items:   []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(3)}},
		Remarks: "short stock",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, v.Status)
	assert.Equal(t, "short stock", v.Remarks)

	v, err = f.svc.Adjust(ctx, approverOp, f.req.ID, &AdjustRequest{
		Items:   []ApprovedLineInput{{ID: f.line(f.nutID), ApprovedQuantity: intPtr(5)}},
		Remarks: "restocked",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusApproved, v.Status)
	assert.Equal(t, "restocked", f.reload(t).Remarks)
	assert.True(t, f.reload(t).TotalCost.Equal(decimal.NewFromInt(450)))
}

func TestRequisitionService_ForceStatus(t *testing.T) {
	f := newRequisitionFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, approverOp, f.req.ID, &UpdateStatusRequest{Action: ActionAccept})
	require.NoError(t, err)

	_, err = f.svc.ForceStatus(ctx, approverOp, f.req.ID, &ForceStatusRequest{Status: entity.RequisitionStatusRejected, Reason: "x"})
	assert.True(t, errors.Is(err, ErrForbidden))

	v, err := f.svc.ForceStatus(ctx, adminOp, f.req.ID, &ForceStatusRequest{
		Status: entity.RequisitionStatusRejected,
		Reason: " vendor fell through ",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusRejected, v.Status)
	assert.Equal(t, "vendor fell through", f.reload(t).Remarks)

	log := f.activity(t, "force_status")
	require.NotNil(t, log)
	assert.Equal(t, entity.RequisitionStatusApproved, log.FromStatus)
	assert.Equal(t, entity.RequisitionStatusRejected, log.ToStatus)
	assert.Equal(t, "vendor fell through", log.Content)
	assert.Equal(t, adminOp.ID, log.OperatorID)
}
