package handler

import (
	"errors"
	"net/http"

	"shopcore/internal/domain/product/service"
	"shopcore/internal/pkg/middleware"
	"shopcore/pkg/response"
	"shopcore/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// CreateProduct 创建商品
// 该接口要求幂等键，重试安全由幂等中间件保证
// @Summary 创建商品
// @Tags Product
// @Accept json
// @Produce json
// @Param X-Idempotency-Key header string true "Idempotency Key"
// @Param input body service.CreateProductInput true "Product Info"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var input service.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	product, err := h.service.Create(middleware.TenantID(c), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, product)
}

// GetProduct 商品详情
// @Summary 商品详情
// @Tags Product
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.service.Get(middleware.TenantID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, product)
}

// ListProducts 商品列表
// @Summary 商品列表
// @Tags Product
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	offset, limit := page.GetPageOffset()

	products, total, err := h.service.List(middleware.TenantID(c), c.Query("status"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, utils.PageResult{
		List:  products,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

type SetStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// SetProductStatus 上下架
// @Summary 商品上下架
// @Tags Product
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body SetStatusInput true "Status"
// @Success 200 {object} response.Response
// @Router /products/{id}/status [patch]
func (h *ProductHandler) SetProductStatus(c *gin.Context) {
	var input SetStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SetStatus(middleware.TenantID(c), c.Param("id"), input.Status); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *ProductHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
