package repository

import (
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"gorm.io/gorm"
)

// Models 需要迁移的实体，按依赖顺序排列
func Models() []interface{} {
	return []interface{}{
		&entity.Permission{},
		&entity.Role{},
		&entity.RolePermission{},
		&entity.User{},
		&entity.UserPermission{},
		&entity.Category{},
		&entity.Make{},
		&entity.Item{},
		&entity.Service{},
		&entity.Vendor{},
		&entity.Supplier{},
		&entity.CategoryVendor{},
		&entity.CategorySupplier{},
		&entity.Requisition{},
		&entity.RequisitionItem{},
		&entity.RequisitionService{},
		&entity.PurchaseOrder{},
		&entity.OrderItem{},
		&entity.OrderService{},
		&entity.Delivery{},
		&entity.DeliveryItem{},
		&entity.DeliveryService{},
		&entity.Return{},
		&entity.ReturnItem{},
		&entity.ReturnDelivery{},
		&entity.Rework{},
		&entity.ReworkService{},
		&entity.ReworkDelivery{},
		&entity.Attachment{},
		&entity.ActivityLog{},
	}
}

// AutoMigrate 建表/补列
func AutoMigrate(db *gorm.DB) error {
	joins := []struct {
		model, join interface{}
		field       string
	}{
		{&entity.Role{}, &entity.RolePermission{}, "Permissions"},
		{&entity.User{}, &entity.UserPermission{}, "Permissions"},
		{&entity.Vendor{}, &entity.CategoryVendor{}, "Categories"},
		{&entity.Supplier{}, &entity.CategorySupplier{}, "Categories"},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %T: %w", j.join, err)
		}
	}

	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto migrate %T: %w", m, err)
		}
	}
	return nil
}
