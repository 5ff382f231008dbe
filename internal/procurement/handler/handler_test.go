package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/middleware"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		fmt.Fprintln(os.Stderr, "register validators:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   float64
	}{
		{"validation", &service.ValidationError{Message: "bad", Fields: map[string]string{"reason": "required"}}, 400, 40000},
		{"not found", fmt.Errorf("wrap: %w", repository.ErrNotFound), 404, 40400},
		{"transition", fmt.Errorf("%w: pending -> completed", service.ErrInvalidTransition), 400, 40000},
		{"forbidden", service.ErrForbidden, 403, 40300},
		{"conflict", service.ErrConflict, 409, 40900},
		{"unauthorized", service.ErrUnauthorized, 401, 40100},
		{"storage", service.ErrStorageNotConfigured, 503, 50300},
		{"internal", errors.New("boom"), 500, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleError(c, "op", tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := testutil.ParseResponse(w)
			assert.Equal(t, tt.code, resp["code"])
		})
	}
}

func TestHandleError_ValidationFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := service.ValidateDeclineReason("   ")
	HandleError(c, "decline", err)

	data := testutil.Data(w)
	require.NotNil(t, data)
	fields := data["errors"].(map[string]interface{})
	assert.Contains(t, fields, "reason")
}

func TestBindError_FieldMessages(t *testing.T) {
	r := testutil.SetupRouter()
	r.POST("/claims", func(c *gin.Context) {
		var req service.CreateClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BindError(c, err)
			return
		}
		Success(c, nil)
	})

	w := testutil.DoRequest(r, http.MethodPost, "/claims", map[string]interface{}{"remarks": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := testutil.Data(w)["errors"].(map[string]interface{})
	assert.Equal(t, "This field is required", fields["deliveryid"])
}

func TestCustomValidators(t *testing.T) {
	r := testutil.SetupRouter()
	r.POST("/force", func(c *gin.Context) {
		var req service.ForceStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BindError(c, err)
			return
		}
		Success(c, req.Status)
	})

	w := testutil.DoRequest(r, http.MethodPost, "/force", gin.H{"status": "lost", "reason": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(r, http.MethodPost, "/force", gin.H{"status": entity.RequisitionStatusCompleted, "reason": "x"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSuccessList_Pagination(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SuccessList(c, []string{"a"}, 41, 2, 20)

	p := testutil.Data(w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), p["total_pages"])
	assert.Equal(t, float64(41), p["total"])
}

func TestGetOperatorFromToken(t *testing.T) {
	r := testutil.SetupRouter()
	r.GET("/me", middleware.JWTAuth(testutil.JWTSecret), func(c *gin.Context) {
		op := GetOperator(c)
		Success(c, gin.H{"id": op.ID, "name": op.Name, "approve": op.Has(entity.PermRequisitionApprove)})
	})

	token := testutil.GenerateTestToken("u-7", "Ana", []string{entity.RoleApprover}, []string{entity.PermRequisitionApprove})
	w := testutil.DoRequest(r, http.MethodGet, "/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.Data(w)
	assert.Equal(t, "u-7", data["id"])
	assert.Equal(t, "Ana", data["name"])
	assert.Equal(t, true, data["approve"])
}

func TestQueryFiltersAndPagination(t *testing.T) {
	r := testutil.SetupRouter()
	r.GET("/list", func(c *gin.Context) {
		page, size := GetPagination(c)
		Success(c, gin.H{"page": page, "size": size, "filters": queryFilters(c, "status", "search")})
	})

	w := testutil.DoRequest(r, http.MethodGet, "/list?page=3&page_size=500&status=pending&other=x", nil, "")
	data := testutil.Data(w)
	assert.Equal(t, float64(3), data["page"])
	assert.Equal(t, float64(20), data["size"])
	assert.Equal(t, map[string]interface{}{"status": "pending"}, data["filters"])
}
