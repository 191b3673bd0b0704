package repository

import (
	"shopcore/internal/domain/product/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	GetByID(tenantID, id string) (*model.Product, error)
	List(tenantID, status string, offset, limit int) ([]model.Product, int64, error)
	Update(tenantID, id string, updates map[string]interface{}) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(tenantID, id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(tenantID, status string, offset, limit int) ([]model.Product, int64, error) {
	q := r.db.Model(&model.Product{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []model.Product
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error
	return products, total, err
}

func (r *productRepository) Update(tenantID, id string, updates map[string]interface{}) error {
	result := r.db.Model(&model.Product{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
