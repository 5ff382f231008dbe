package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Auth          *AuthHandler
	User          *UserHandler
	Catalog       *CatalogHandler
	Partner       *PartnerHandler
	Requisition   *RequisitionHandler
	PurchaseOrder *PurchaseOrderHandler
	Delivery      *DeliveryHandler
	Claim         *ClaimHandler
	Attachment    *AttachmentHandler
	Dashboard     *DashboardHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Auth:          NewAuthHandler(svc.Auth),
		User:          NewUserHandler(svc.User),
		Catalog:       NewCatalogHandler(svc.Catalog),
		Partner:       NewPartnerHandler(svc.Partner),
		Requisition:   NewRequisitionHandler(svc.Requisition, svc.PurchaseOrder, svc.Export),
		PurchaseOrder: NewPurchaseOrderHandler(svc.PurchaseOrder, svc.Export),
		Delivery:      NewDeliveryHandler(svc.Delivery),
		Claim:         NewClaimHandler(svc.Claim),
		Attachment:    NewAttachmentHandler(svc.Attachment, logger),
		Dashboard:     NewDashboardHandler(svc.Dashboard),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessList 分页列表响应
func SuccessList(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应（字段级校验信息）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// BindError 请求体校验失败，validator 错误转为字段提示
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe)] = validationMessage(fe)
		}
		ErrorWithData(c, 40000, "参数错误: "+err.Error(), gin.H{"errors": fields})
		return
	}
	BadRequest(c, "参数错误: "+err.Error())
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt", "min":
		return "Value must be greater than " + fe.Param()
	case "email":
		return "Invalid email address"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "requisition_type":
		return "Type must be items or services"
	case "requisition_status":
		return "Unknown requisition status"
	case "priority":
		return "Unknown priority"
	case "payment_type":
		return "Unknown payment type"
	}
	return "Invalid value"
}

// HandleError 业务错误映射为响应码
func HandleError(c *gin.Context, prefix string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		var data interface{}
		if len(verr.Fields) > 0 {
			data = gin.H{"errors": verr.Fields}
		}
		ErrorWithData(c, 40000, verr.Message, data)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, prefix+": 记录不存在")
	case errors.Is(err, service.ErrInvalidTransition):
		BadRequest(c, prefix+": "+err.Error())
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, prefix+": "+err.Error())
	case errors.Is(err, service.ErrConflict):
		Error(c, 40900, prefix+": "+err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		Unauthorized(c, prefix+": "+err.Error())
	case errors.Is(err, service.ErrStorageNotConfigured):
		Error(c, 50300, prefix+": 附件存储未配置")
	default:
		InternalError(c, prefix+": "+err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetOperator 当前操作人（来自JWT）
func GetOperator(c *gin.Context) service.Operator {
	op := service.Operator{ID: GetUserID(c)}
	if name, ok := c.Get("user_name"); ok {
		op.Name, _ = name.(string)
	}
	if perms, ok := c.Get("permissions"); ok {
		op.Permissions, _ = perms.([]string)
	}
	return op
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// queryFilters 读取查询参数作为过滤条件
func queryFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			filters[k] = v
		}
	}
	return filters
}
