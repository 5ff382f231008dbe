package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	PONo          string          `json:"po_no" gorm:"size:32;uniqueIndex;not null"`
	RequisitionID *string         `json:"requisition_id" gorm:"size:32;index"`
	VendorID      string          `json:"vendor_id" gorm:"size:32;not null;index"`
	Type          string          `json:"type" gorm:"size:20;not null"` // items/services
	Status        string          `json:"status" gorm:"size:30;default:pending"`
	PaymentType   string          `json:"payment_type" gorm:"size:20;not null"`
	TotalCost     decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	ExpectedDate  *time.Time      `json:"expected_date"`
	Notes         string          `json:"notes" gorm:"type:text"`

	CreatedBy  string     `json:"created_by" gorm:"size:32"`
	ApprovedBy *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// 关联
	Items    []OrderItem    `json:"items,omitempty" gorm:"foreignKey:POID"`
	Services []OrderService `json:"services,omitempty" gorm:"foreignKey:POID"`
	Vendor   *Vendor        `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PO状态
const (
	POStatusPending            = "pending"
	POStatusApproved           = "approved"
	POStatusOrdered            = "ordered"
	POStatusPartiallyDelivered = "partially_delivered"
	POStatusDelivered          = "delivered"
	POStatusCompleted          = "completed"
	POStatusCancelled          = "cancelled"
)

// ValidPOTransitions 合法的PO状态流转
var ValidPOTransitions = map[string][]string{
	POStatusPending:            {POStatusApproved, POStatusCancelled},
	POStatusApproved:           {POStatusOrdered, POStatusCancelled},
	POStatusOrdered:            {POStatusPartiallyDelivered, POStatusDelivered},
	POStatusPartiallyDelivered: {POStatusPartiallyDelivered, POStatusDelivered},
	POStatusDelivered:          {POStatusCompleted},
}

// OrderItem PO物料行
type OrderItem struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32"`
	POID              string          `json:"po_id" gorm:"size:32;not null;index"`
	RequisitionItemID *string         `json:"requisition_item_id" gorm:"size:32"`
	ItemID            string          `json:"item_id" gorm:"size:32;not null"`
	Quantity          int             `json:"quantity" gorm:"not null"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal `json:"total" gorm:"type:decimal(15,2);not null;default:0"`
	SortOrder         int             `json:"sort_order" gorm:"default:0"`
	CreatedAt         time.Time       `json:"created_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderService PO服务行
type OrderService struct {
	ID                   string          `json:"id" gorm:"primaryKey;size:32"`
	POID                 string          `json:"po_id" gorm:"size:32;not null;index"`
	RequisitionServiceID *string         `json:"requisition_service_id" gorm:"size:32"`
	ServiceID            string          `json:"service_id" gorm:"size:32;not null"`
	Quantity             int             `json:"quantity" gorm:"not null;default:1"`
	UnitCost             decimal.Decimal `json:"unit_cost" gorm:"type:decimal(12,2);not null;default:0"`
	Total                decimal.Decimal `json:"total" gorm:"type:decimal(15,2);not null;default:0"`
	SortOrder            int             `json:"sort_order" gorm:"default:0"`
	CreatedAt            time.Time       `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (OrderService) TableName() string {
	return "order_services"
}
