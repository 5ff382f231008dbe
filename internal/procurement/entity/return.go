package entity

import "time"

// Return 退货单
type Return struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	RefNo     string    `json:"ref_no" gorm:"size:32;uniqueIndex;not null"`
	Status    string    `json:"status" gorm:"size:20;default:pending"`
	Remarks   string    `json:"remarks" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Items []ReturnItem    `json:"items,omitempty" gorm:"foreignKey:ReturnID"`
	Link  *ReturnDelivery `json:"link,omitempty" gorm:"foreignKey:ReturnID"`
}

func (Return) TableName() string {
	return "returns"
}

// ReturnItem 退货物料行
type ReturnItem struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	ReturnID       string    `json:"return_id" gorm:"size:32;not null;index"`
	DeliveryItemID string    `json:"delivery_item_id" gorm:"size:32;not null"`
	ItemID         string    `json:"item_id" gorm:"size:32;not null"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	Reason         string    `json:"reason" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (ReturnItem) TableName() string {
	return "return_items"
}

// ReturnDelivery 退货单与原交货单/补交货单关联
type ReturnDelivery struct {
	ReturnID      string    `json:"return_id" gorm:"primaryKey;size:32"`
	OldDeliveryID string    `json:"old_delivery_id" gorm:"size:32;not null;index"`
	NewDeliveryID *string   `json:"new_delivery_id" gorm:"size:32;index"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ReturnDelivery) TableName() string {
	return "return_deliveries"
}

// 退货/返工状态（两者共用）
const (
	ClaimStatusPending    = "pending"
	ClaimStatusApproved   = "approved"
	ClaimStatusRejected   = "rejected"
	ClaimStatusInProgress = "in_progress"
	ClaimStatusCompleted  = "completed"
)

// ValidClaimTransitions 合法的退货/返工状态流转
var ValidClaimTransitions = map[string][]string{
	ClaimStatusPending:    {ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusApproved:   {ClaimStatusInProgress},
	ClaimStatusInProgress: {ClaimStatusCompleted},
}
