package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/config"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/cache"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrValidation 业务校验失败，具体信息见 *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition 状态流转不合法
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict 数据冲突（重复编码、存在引用等）
	ErrConflict = errors.New("conflict")
	// ErrForbidden 无权限
	ErrForbidden = errors.New("permission denied")
	// ErrUnauthorized 用户名或密码错误
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrStorageNotConfigured 附件存储未配置
	ErrStorageNotConfigured = storage.ErrNotConfigured
)

// ValidationError 校验错误，Fields 为字段级提示
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// fieldError 单字段校验错误
func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// transitionError 带上下文的非法流转错误
func transitionError(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// canTransition 检查流转表
func canTransition(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func newID() string {
	return uuid.New().String()[:32]
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// Operator 当前操作人
type Operator struct {
	ID          string
	Name        string
	Permissions []string
}

// Has 是否拥有权限（* 为全部权限）
func (o Operator) Has(perm string) bool {
	for _, p := range o.Permissions {
		if p == "*" || p == perm {
			return true
		}
	}
	return false
}

// Services 服务集合
type Services struct {
	Auth          *AuthService
	User          *UserService
	Catalog       *CatalogService
	Partner       *PartnerService
	Requisition   *RequisitionService
	PurchaseOrder *PurchaseOrderService
	Delivery      *DeliveryService
	Claim         *ClaimService
	Attachment    *AttachmentService
	Export        *ExportService
	Dashboard     *DashboardService
}

// Deps 服务依赖
type Deps struct {
	Repos  *repository.Repositories
	Redis  *redis.Client
	Store  storage.ObjectStore
	Cache  cache.Store
	Config *config.Config
	Logger *zap.Logger
}

// lookupStore 查询缓存后端：显式传入 > Redis > 进程内缓存
func lookupStore(d Deps) cache.Store {
	switch {
	case d.Cache != nil:
		return d.Cache
	case d.Redis != nil:
		return cache.NewRedisCache(d.Redis, "procurement")
	default:
		return cache.NewMemoryCache()
	}
}

// NewServices 创建服务集合
func NewServices(d Deps) *Services {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := NewCatalogService(d.Repos, NewLookupCache(lookupStore(d), d.Config.Cache.LookupTTL, logger), logger)
	requisition := NewRequisitionService(d.Repos, logger)
	po := NewPurchaseOrderService(d.Repos, logger)

	return &Services{
		Auth:          NewAuthService(d.Repos, d.Redis, d.Config.JWT),
		User:          NewUserService(d.Repos),
		Catalog:       catalog,
		Partner:       NewPartnerService(d.Repos, logger),
		Requisition:   requisition,
		PurchaseOrder: po,
		Delivery:      NewDeliveryService(d.Repos, logger),
		Claim:         NewClaimService(d.Repos, logger),
		Attachment:    NewAttachmentService(d.Repos, d.Store, logger),
		Export:        NewExportService(d.Repos),
		Dashboard:     NewDashboardService(d.Repos),
	}
}
