package service

import (
	"errors"
	"fmt"

	"shopcore/internal/domain/product/model"
	"shopcore/internal/domain/product/repository"
)

// ErrValidation 入参校验失败，处理器据此映射 400
var ErrValidation = errors.New("validation failed")

type CreateProductInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"required,gt=0"`
	Currency    string `json:"currency"`
	Stock       int    `json:"stock" binding:"gte=0"`
	ImageURL    string `json:"imageUrl"`
}

type ProductService interface {
	Create(tenantID string, input *CreateProductInput) (*model.Product, error)
	Get(tenantID, id string) (*model.Product, error)
	List(tenantID, status string, offset, limit int) ([]model.Product, int64, error)
	SetStatus(tenantID, id, status string) error
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) Create(tenantID string, input *CreateProductInput) (*model.Product, error) {
	currency := input.Currency
	if currency == "" {
		currency = "HKD"
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}

	product := &model.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		Stock:       input.Stock,
		Status:      model.StatusActive,
		ImageURL:    input.ImageURL,
	}
	product.TenantID = tenantID

	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Get(tenantID, id string) (*model.Product, error) {
	return s.repo.GetByID(tenantID, id)
}

func (s *productService) List(tenantID, status string, offset, limit int) ([]model.Product, int64, error) {
	return s.repo.List(tenantID, status, offset, limit)
}

func (s *productService) SetStatus(tenantID, id, status string) error {
	if status != model.StatusActive && status != model.StatusInactive {
		return fmt.Errorf("%w: unknown product status %q", ErrValidation, status)
	}
	return s.repo.Update(tenantID, id, map[string]interface{}{"status": status})
}
