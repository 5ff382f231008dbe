package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition 请购单
type Requisition struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	RefNo         string          `json:"ref_no" gorm:"size:32;uniqueIndex;not null"`
	Status        string          `json:"status" gorm:"size:20;not null;default:pending;index"`
	Priority      string          `json:"priority" gorm:"size:20;default:normal"`
	Type          string          `json:"type" gorm:"size:20;not null"` // items/services
	RequestorType string          `json:"requestor_type" gorm:"size:10;default:self"`
	RequestorName string          `json:"requestor_name" gorm:"size:100"`
	UserID        *string         `json:"user_id" gorm:"size:32;index"`
	CreatedBy     string          `json:"created_by" gorm:"size:32"`
	Notes         string          `json:"notes" gorm:"type:text"`
	Remarks       string          `json:"remarks" gorm:"type:text"`
	TotalCost     decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// 关联
	Items    []RequisitionItem    `json:"items,omitempty" gorm:"foreignKey:RequisitionID"`
	Services []RequisitionService `json:"services,omitempty" gorm:"foreignKey:RequisitionID"`
}

func (Requisition) TableName() string {
	return "requisitions"
}

// 请购单状态
const (
	RequisitionStatusPending           = "pending"
	RequisitionStatusApproved          = "approved"
	RequisitionStatusPartiallyApproved = "partially_approved"
	RequisitionStatusRejected          = "rejected"
	RequisitionStatusOrdered           = "ordered"
	RequisitionStatusDelivered         = "delivered"
	RequisitionStatusAwaitingPickup    = "awaiting_pickup"
	RequisitionStatusCompleted         = "completed"
)

// RequisitionStatuses 全部请购单状态
var RequisitionStatuses = []string{
	RequisitionStatusPending,
	RequisitionStatusApproved,
	RequisitionStatusPartiallyApproved,
	RequisitionStatusRejected,
	RequisitionStatusOrdered,
	RequisitionStatusDelivered,
	RequisitionStatusAwaitingPickup,
	RequisitionStatusCompleted,
}

// ValidRequisitionTransitions 合法的请购单状态流转
var ValidRequisitionTransitions = map[string][]string{
	RequisitionStatusPending:           {RequisitionStatusApproved, RequisitionStatusPartiallyApproved, RequisitionStatusRejected},
	RequisitionStatusApproved:          {RequisitionStatusOrdered, RequisitionStatusAwaitingPickup, RequisitionStatusCompleted},
	RequisitionStatusPartiallyApproved: {RequisitionStatusOrdered, RequisitionStatusAwaitingPickup, RequisitionStatusCompleted},
	RequisitionStatusOrdered:           {RequisitionStatusDelivered},
	RequisitionStatusDelivered:         {RequisitionStatusAwaitingPickup, RequisitionStatusCompleted},
	RequisitionStatusAwaitingPickup:    {RequisitionStatusCompleted},
}

// 请购类型
const (
	RequisitionTypeItems    = "items"
	RequisitionTypeServices = "services"
)

// 优先级
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// 请购人类型
const (
	RequestorSelf  = "self"
	RequestorOther = "other"
)

// RequisitionItem 请购物料行
type RequisitionItem struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID    string          `json:"requisition_id" gorm:"size:32;not null;index"`
	ItemID           string          `json:"item_id" gorm:"size:32;not null"`
	Quantity         int             `json:"quantity" gorm:"not null"`
	ApprovedQuantity *int            `json:"approved_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	SortOrder        int             `json:"sort_order" gorm:"default:0"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (RequisitionItem) TableName() string {
	return "requisition_items"
}

// RequisitionService 请购服务行
type RequisitionService struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID    string          `json:"requisition_id" gorm:"size:32;not null;index"`
	ServiceID        string          `json:"service_id" gorm:"size:32;not null"`
	Quantity         int             `json:"quantity" gorm:"not null;default:1"`
	ApprovedQuantity *int            `json:"approved_quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost" gorm:"type:decimal(12,2);not null;default:0"`
	SortOrder        int             `json:"sort_order" gorm:"default:0"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (RequisitionService) TableName() string {
	return "requisition_services"
}

// LineCount 当前类型下的行数
func (r *Requisition) LineCount() int {
	if r.Type == RequisitionTypeServices {
		return len(r.Services)
	}
	return len(r.Items)
}
