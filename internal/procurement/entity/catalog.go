package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category 物料/服务分类
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Make 品牌
type Make struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Make) TableName() string {
	return "makes"
}

// Item 物料
type Item struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	Code        string          `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string          `json:"name" gorm:"size:200;not null"`
	CategoryID  string          `json:"category_id" gorm:"size:32;not null;index"`
	MakeID      *string         `json:"make_id" gorm:"size:32"`
	Unit        string          `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	Description string          `json:"description" gorm:"type:text"`
	Status      string          `json:"status" gorm:"size:20;default:active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Make     *Make     `json:"make,omitempty" gorm:"foreignKey:MakeID"`
}

func (Item) TableName() string {
	return "items"
}

// Service 服务项目
type Service struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	Code        string          `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string          `json:"name" gorm:"size:200;not null"`
	CategoryID  *string         `json:"category_id" gorm:"size:32;index"`
	UnitCost    decimal.Decimal `json:"unit_cost" gorm:"type:decimal(12,2);not null;default:0"`
	Description string          `json:"description" gorm:"type:text"`
	Status      string          `json:"status" gorm:"size:20;default:active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (Service) TableName() string {
	return "services"
}
