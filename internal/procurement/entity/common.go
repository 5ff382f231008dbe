package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// 实体类型（操作日志、附件共用）
const (
	EntityRequisition   = "requisition"
	EntityPurchaseOrder = "purchase_order"
	EntityDelivery      = "delivery"
	EntityReturn        = "return"
	EntityRework        = "rework"
	EntitySupplier      = "supplier"
	EntityVendor        = "vendor"
)

// 记录状态
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
