package entity

import "time"

// 付款方式
const (
	PaymentTypeCash         = "cash"
	PaymentTypeDisbursement = "disbursement"
	PaymentTypeStoreCredit  = "store_credit"
)

// PaymentMethods 付款方式开关（供应商/商家共用）
type PaymentMethods struct {
	AllowsCash         bool `json:"allows_cash" gorm:"default:false"`
	AllowsDisbursement bool `json:"allows_disbursement" gorm:"default:false"`
	AllowsStoreCredit  bool `json:"allows_store_credit" gorm:"default:false"`
}

// Supports 是否支持指定付款方式
func (p PaymentMethods) Supports(paymentType string) bool {
	switch paymentType {
	case PaymentTypeCash:
		return p.AllowsCash
	case PaymentTypeDisbursement:
		return p.AllowsDisbursement
	case PaymentTypeStoreCredit:
		return p.AllowsStoreCredit
	}
	return false
}

// Vendor 商家（采购订单下单对象）
type Vendor struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	Name          string `json:"name" gorm:"size:200;not null"`
	ContactPerson string `json:"contact_person" gorm:"size:100"`
	Email         string `json:"email" gorm:"size:200"`
	Phone         string `json:"phone" gorm:"size:50"`
	Address       string `json:"address" gorm:"size:500"`
	PaymentMethods
	Status    string    `json:"status" gorm:"size:20;default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:category_vendors;"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// Supplier 供应商
type Supplier struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	Name          string `json:"name" gorm:"size:200;not null"`
	ContactPerson string `json:"contact_person" gorm:"size:100"`
	Email         string `json:"email" gorm:"size:200"`
	Phone         string `json:"phone" gorm:"size:50"`
	Address       string `json:"address" gorm:"size:500"`
	PaymentMethods
	Status    string    `json:"status" gorm:"size:20;default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:category_suppliers;"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// CategoryVendor 分类-商家关联
type CategoryVendor struct {
	CategoryID string    `json:"category_id" gorm:"primaryKey;size:32"`
	VendorID   string    `json:"vendor_id" gorm:"primaryKey;size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (CategoryVendor) TableName() string {
	return "category_vendors"
}

// CategorySupplier 分类-供应商关联
type CategorySupplier struct {
	CategoryID string    `json:"category_id" gorm:"primaryKey;size:32"`
	SupplierID string    `json:"supplier_id" gorm:"primaryKey;size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (CategorySupplier) TableName() string {
	return "category_suppliers"
}
