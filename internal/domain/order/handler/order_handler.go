package handler

import (
	"errors"
	"net/http"

	"shopcore/internal/domain/order/model"
	"shopcore/internal/domain/order/repository"
	"shopcore/internal/domain/order/service"
	"shopcore/internal/pkg/middleware"
	"shopcore/pkg/response"
	"shopcore/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type CreateOrderInput struct {
	CustomerID  string `json:"customerId"`
	Subtotal    int64  `json:"subtotal" binding:"required,gt=0"`
	DeliveryFee int64  `json:"deliveryFee" binding:"gte=0"`
	Discount    int64  `json:"discount" binding:"gte=0"`
	Total       int64  `json:"total" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Note        string `json:"note"`
}

// CreateOrder 创建订单
// @Summary 创建订单
// @Tags Order
// @Accept json
// @Produce json
// @Param input body CreateOrderInput true "Order Info"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.CreateOrder(middleware.TenantID(c), service.CreateOrderInput{
		CustomerID: input.CustomerID,
		Amounts: model.Amounts{
			Subtotal:    input.Subtotal,
			DeliveryFee: input.DeliveryFee,
			Discount:    input.Discount,
			Total:       input.Total,
			Currency:    input.Currency,
		},
		Note: input.Note,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// GetOrder 查询订单
// @Summary 查询订单
// @Tags Order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(middleware.TenantID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 订单列表
// @Summary 订单列表
// @Tags Order
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	offset, limit := page.GetPageOffset()

	orders, total, err := h.service.ListOrders(middleware.TenantID(c), c.Query("status"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, utils.PageResult{
		List:  orders,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

type UpdateOrderInput struct {
	Status         string `json:"status"`
	PaymentStatus  string `json:"paymentStatus"`
	Note           string `json:"note"`
	TrackingNumber string `json:"trackingNumber"`
	CancelReason   string `json:"cancelReason"`
	RefundReason   string `json:"refundReason"`
}

// UpdateOrder 管理端更新订单（状态流转走状态机校验）
// @Summary 更新订单
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body UpdateOrderInput true "Fields to update"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var input UpdateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.AdminUpdate(middleware.TenantID(c), c.Param("id"), service.AdminUpdateInput{
		Status:         input.Status,
		PaymentStatus:  input.PaymentStatus,
		Note:           input.Note,
		TrackingNumber: input.TrackingNumber,
		CancelReason:   input.CancelReason,
		RefundReason:   input.RefundReason,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

type ReviewPaymentInput struct {
	Action string `json:"action" binding:"required,oneof=confirm reject"`
	Note   string `json:"note"`
}

// ReviewPayment 人工审核付款凭证
// @Summary 确认/驳回付款凭证
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body ReviewPaymentInput true "confirm or reject"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders/{id}/payment [patch]
func (h *OrderHandler) ReviewPayment(c *gin.Context) {
	var input ReviewPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.ConfirmOrReject(middleware.TenantID(c), c.Param("id"), input.Action, input.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

type PaymentProofInput struct {
	ProofURL string `json:"proofUrl" binding:"required,url"`
}

// SubmitPaymentProof 顾客提交付款凭证
// @Summary 提交付款凭证
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body PaymentProofInput true "Proof URL"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders/{id}/payment-proof [post]
func (h *OrderHandler) SubmitPaymentProof(c *gin.Context) {
	var input PaymentProofInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.SubmitPaymentProof(middleware.TenantID(c), c.Param("id"), input.ProofURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// writeError 服务层错误统一映射
func (h *OrderHandler) writeError(c *gin.Context, err error) {
	var invalidTransition *service.InvalidTransitionError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 跨租户访问与真正不存在同样返回 404，不泄漏存在性
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
	case errors.As(err, &invalidTransition):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidTransition, invalidTransition.Error())
	case errors.Is(err, repository.ErrStatusConflict):
		response.Error(c, http.StatusConflict, response.ErrStatusConflict, "Order was modified concurrently, retry the request")
	case errors.Is(err, service.ErrPaymentStateInvalid):
		response.Error(c, http.StatusBadRequest, response.ErrPaymentStateInvalid, err.Error())
	case errors.Is(err, service.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
