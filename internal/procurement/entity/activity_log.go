package entity

import "time"

// ActivityLog 操作日志
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"` // requisition/purchase_order/delivery/return/rework/supplier
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:50"`

	Action     string `json:"action" gorm:"size:50;not null"` // create/status_change/force_status/adjust/delete等
	FromStatus string `json:"from_status" gorm:"size:30"`
	ToStatus   string `json:"to_status" gorm:"size:30"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	OperatorID   string    `json:"operator_id" gorm:"size:32"`
	OperatorName string    `json:"operator_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// Attachment 附件（交货/退货/返工凭证照片）
type Attachment struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	EntityType  string    `json:"entity_type" gorm:"size:50;not null;index:idx_attachment_entity"`
	EntityID    string    `json:"entity_id" gorm:"size:32;not null;index:idx_attachment_entity"`
	ObjectKey   string    `json:"object_key" gorm:"size:500;not null"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`

	// 非数据库字段
	URL string `json:"url,omitempty" gorm:"-"`
}

func (Attachment) TableName() string {
	return "attachments"
}
