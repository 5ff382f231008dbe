package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery 交货单
type Delivery struct {
	ID         string          `json:"id" gorm:"primaryKey;size:32"`
	RefNo      string          `json:"ref_no" gorm:"size:32;uniqueIndex;not null"`
	POID       string          `json:"po_id" gorm:"size:32;not null;index"`
	Type       string          `json:"type" gorm:"size:30;not null"`
	Status     string          `json:"status" gorm:"size:20;default:pending"`
	TotalCost  decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	ReceivedAt *time.Time      `json:"received_at"`
	ReceivedBy *string         `json:"received_by" gorm:"size:32"`
	Notes      string          `json:"notes" gorm:"type:text"`
	CreatedBy  string          `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// 关联
	Items    []DeliveryItem    `json:"items,omitempty" gorm:"foreignKey:DeliveryID"`
	Services []DeliveryService `json:"services,omitempty" gorm:"foreignKey:DeliveryID"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

// 交货类型
const (
	DeliveryTypeItemPurchase    = "item_purchase"
	DeliveryTypeServiceDelivery = "service_delivery"
	DeliveryTypeItemReturn      = "item_return"
	DeliveryTypeServiceRework   = "service_rework"
)

// 交货状态
const (
	DeliveryStatusPending  = "pending"
	DeliveryStatusReceived = "received"
)

// IsReplacement 是否为退货/返工产生的补交货
func (d *Delivery) IsReplacement() bool {
	return d.Type == DeliveryTypeItemReturn || d.Type == DeliveryTypeServiceRework
}

// DeliveryItem 交货物料行
type DeliveryItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	DeliveryID  string          `json:"delivery_id" gorm:"size:32;not null;index"`
	OrderItemID *string         `json:"order_item_id" gorm:"size:32;index"`
	ItemID      string          `json:"item_id" gorm:"size:32;not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (DeliveryItem) TableName() string {
	return "delivery_items"
}

// DeliveryService 交付服务行
type DeliveryService struct {
	ID             string          `json:"id" gorm:"primaryKey;size:32"`
	DeliveryID     string          `json:"delivery_id" gorm:"size:32;not null;index"`
	OrderServiceID *string         `json:"order_service_id" gorm:"size:32;index"`
	ServiceID      string          `json:"service_id" gorm:"size:32;not null"`
	Quantity       int             `json:"quantity" gorm:"not null;default:1"`
	UnitCost       decimal.Decimal `json:"unit_cost" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt      time.Time       `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (DeliveryService) TableName() string {
	return "delivery_services"
}
