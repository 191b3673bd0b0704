package model

import (
	baseModel "shopcore/pkg/model"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Product 商品
// 价格以最小货币单位存储（HKD 为分），避免浮点金额
type Product struct {
	baseModel.TenantModel
	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"`
	Currency    string `gorm:"type:varchar(3);not null;default:HKD" json:"currency"`
	Stock       int    `gorm:"not null;default:0" json:"stock"`
	Status      string `gorm:"type:varchar(16);not null;default:active" json:"status"`
	ImageURL    string `gorm:"type:varchar(500)" json:"imageUrl"`
}

func (Product) TableName() string {
	return "products"
}
