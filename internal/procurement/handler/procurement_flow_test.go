package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/config"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/testutil"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             testutil.JWTSecret,
			AccessTokenExpire:  time.Hour,
			RefreshTokenExpire: time.Hour,
			Issuer:             "procurement",
		},
		Cache: config.CacheConfig{LookupTTL: time.Minute},
	}
	services := service.NewServices(service.Deps{
		Repos:  repository.NewRepositories(db),
		Cache:  cache.NewMemoryCache(),
		Config: cfg,
	})
	RegisterRoutes(router, NewHandlers(services, nil), testutil.JWTSecret)
	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestLoginAndMe(t *testing.T) {
	env := setupApp(t)
	_, err := service.Seed(context.Background(), repository.NewRepositories(env.DB), "admin", "s3cret-pass")
	require.NoError(t, err)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": "admin", "password": "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := testutil.Data(w)["token"].(map[string]interface{})
	access := token["access_token"].(string)
	refresh := token["refresh_token"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/auth/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	perms := testutil.Data(w)["permission_codes"].([]interface{})
	assert.Contains(t, perms, entity.PermUserManage)

	// 刷新令牌不能当访问令牌用
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/auth/me", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRequisitionToDeliveryFlow(t *testing.T) {
	env := setupApp(t)
	admin := testutil.AdminToken("admin-1")
	testutil.SeedUser(t, env.DB, "admin-1", "Test Admin")
	cat := testutil.SeedCategory(t, env.DB, "Hardware")
	bolt := testutil.SeedItem(t, env.DB, cat.ID, "Bolt", 100)
	nut := testutil.SeedItem(t, env.DB, cat.ID, "Nut", 50)
	vendor := testutil.SeedVendor(t, env.DB, "Acme")

	// 分类下拉
	w := testutil.DoRequest(env.Router, http.MethodGet, "/requisition/api/items/"+cat.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, testutil.ParseResponse(w)["data"], 2)

	// 无行请购单被拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions",
		map[string]interface{}{"type": "items"}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, testutil.ParseResponse(w)["message"], "Please add at least one item")

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions", map[string]interface{}{
		"type":     "items",
		"priority": "high",
		"items": []map[string]interface{}{
			{"item_id": bolt.ID, "quantity": 2},
			{"item_id": nut.ID, "quantity": 5},
		},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := testutil.Data(w)
	reqID := req["id"].(string)
	assert.Equal(t, entity.RequisitionStatusPending, req["status"])
	assert.Equal(t, false, req["status_dropdown_visible"])
	assert.Equal(t, "Test Admin", req["requestor_name"])
	lines := req["lines"].([]interface{})
	require.Len(t, lines, 2)
	nutLine := lines[1].(map[string]interface{})["id"].(string)

	// 空白驳回原因
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "decline", "reason": "   "}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 无审批权限
	requestor := testutil.GenerateTestToken("u-2", "Requestor", []string{entity.RoleRequestor}, nil)
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "accept"}, requestor)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 超量批准
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "accept", "items": []map[string]interface{}{{"id": nutLine, "approved_quantity": 9}}}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "accept", "items": []map[string]interface{}{{"id": nutLine, "approved_quantity": 3}}}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req = testutil.Data(w)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, req["status"])
	assert.Equal(t, true, req["show_approved_column"])
	assert.Equal(t, "350", req["computed_total"])

	// 生成PO
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/purchase-orders",
		map[string]interface{}{"vendor_id": vendor.ID, "payment_type": "store_credit"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code, "vendor does not accept store credit")

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/purchase-orders",
		map[string]interface{}{"vendor_id": vendor.ID, "payment_type": "cash"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	po := testutil.Data(w)
	poID := po["id"].(string)
	assert.Equal(t, "350", po["total_cost"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID, nil, admin)
	assert.Equal(t, entity.RequisitionStatusOrdered, testutil.Data(w)["status"])

	// 未下单前不能交货
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/deliveries", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, step := range []string{"approve", "order"} {
		w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/"+step, nil, admin)
		require.Equal(t, http.StatusOK, w.Code, step+": "+w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/deliveries", nil, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	delivery := testutil.Data(w)
	deliveryID := delivery["id"].(string)
	assert.Equal(t, entity.DeliveryTypeItemPurchase, delivery["type"])

	// 全部已在途，不能再建交货单
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/deliveries", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/deliveries/"+deliveryID+"/receive", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	delivery = testutil.Data(w)
	assert.Equal(t, entity.DeliveryStatusReceived, delivery["status"])

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/deliveries/"+deliveryID+"/receive", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/purchase-orders/"+poID, nil, admin)
	assert.Equal(t, entity.POStatusDelivered, testutil.Data(w)["status"])
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID, nil, admin)
	assert.Equal(t, entity.RequisitionStatusDelivered, testutil.Data(w)["status"])

	// 退货：批准后生成补交货单，收货后完成
	items := delivery["items"].([]interface{})
	deliveryLine := items[0].(map[string]interface{})["id"].(string)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/returns", map[string]interface{}{
		"delivery_id": deliveryID,
		"lines":       []map[string]interface{}{{"line_id": deliveryLine, "quantity": 1, "reason": "cracked"}},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	returnID := testutil.Data(w)["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/returns/"+returnID+"/approve", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret := testutil.Data(w)
	assert.Equal(t, entity.ClaimStatusInProgress, ret["status"])
	replacementID := ret["link"].(map[string]interface{})["new_delivery_id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/deliveries/"+replacementID+"/receive", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.DeliveryTypeItemReturn, testutil.Data(w)["type"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/returns/"+returnID, nil, admin)
	assert.Equal(t, entity.ClaimStatusCompleted, testutil.Data(w)["status"])

	// 操作日志
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID+"/activities", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, testutil.Data(w)["items"])

	// 完结：待取货后确认收货
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "ready_for_pickup"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "mark_received"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.RequisitionStatusCompleted, testutil.Data(w)["status"])
}

func TestForceStatusRequiresPermissionAndReason(t *testing.T) {
	env := setupApp(t)
	admin := testutil.AdminToken("admin-1")
	testutil.SeedUser(t, env.DB, "admin-1", "Test Admin")
	cat := testutil.SeedCategory(t, env.DB, "Office")
	paper := testutil.SeedItem(t, env.DB, cat.ID, "Paper", 5)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions", map[string]interface{}{
		"type":  "items",
		"items": []map[string]interface{}{{"item_id": paper.ID, "quantity": 10}},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reqID := testutil.Data(w)["id"].(string)

	// 待审批时不可强制
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status/force",
		map[string]interface{}{"status": "completed", "reason": "cleanup"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"action": "accept"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.RequisitionStatusApproved, testutil.Data(w)["status"])

	// 引导流转不允许跳回
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status",
		map[string]interface{}{"status": "pending"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	approver := testutil.GenerateTestToken("u-3", "Approver", []string{entity.RoleApprover}, []string{entity.PermRequisitionApprove})
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status/force",
		map[string]interface{}{"status": "completed", "reason": "cleanup"}, approver)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID+"/status/force",
		map[string]interface{}{"status": "completed", "reason": "picked up offline"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.RequisitionStatusCompleted, testutil.Data(w)["status"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/summary", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), testutil.Data(w)[entity.RequisitionStatusCompleted])
}
