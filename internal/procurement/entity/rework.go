package entity

import "time"

// Rework 返工单
type Rework struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	RefNo     string    `json:"ref_no" gorm:"size:32;uniqueIndex;not null"`
	Status    string    `json:"status" gorm:"size:20;default:pending"`
	Remarks   string    `json:"remarks" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Services []ReworkService `json:"services,omitempty" gorm:"foreignKey:ReworkID"`
	Link     *ReworkDelivery `json:"link,omitempty" gorm:"foreignKey:ReworkID"`
}

func (Rework) TableName() string {
	return "reworks"
}

// ReworkService 返工服务行
type ReworkService struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	ReworkID          string    `json:"rework_id" gorm:"size:32;not null;index"`
	DeliveryServiceID string    `json:"delivery_service_id" gorm:"size:32;not null"`
	ServiceID         string    `json:"service_id" gorm:"size:32;not null"`
	Quantity          int       `json:"quantity" gorm:"not null;default:1"`
	Reason            string    `json:"reason" gorm:"size:500"`
	CreatedAt         time.Time `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (ReworkService) TableName() string {
	return "rework_services"
}

// ReworkDelivery 返工单与原交货单/补交货单关联
type ReworkDelivery struct {
	ReworkID      string    `json:"rework_id" gorm:"primaryKey;size:32"`
	OldDeliveryID string    `json:"old_delivery_id" gorm:"size:32;not null;index"`
	NewDeliveryID *string   `json:"new_delivery_id" gorm:"size:32;index"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ReworkDelivery) TableName() string {
	return "rework_deliveries"
}
