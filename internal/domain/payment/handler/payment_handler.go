package handler

import (
	"errors"
	"net/http"

	"shopcore/internal/domain/payment/service"
	"shopcore/internal/pkg/middleware"
	"shopcore/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type CheckoutInput struct {
	Provider string `json:"provider" binding:"required"`
}

// Checkout 对订单发起一次支付尝试
// @Summary 发起支付
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body CheckoutInput true "Provider"
// @Success 200 {object} response.Response
// @Router /orders/{id}/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	tenantID := middleware.TenantID(c)
	attempt, payParam, err := h.service.OpenAttempt(c.Request.Context(), tenantID, c.Param("id"), input.Provider)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownProvider):
			response.Error(c, http.StatusBadRequest, response.ErrProviderUnknown, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"attempt_id": attempt.ID,
		"provider":   attempt.Provider,
		"status":     attempt.Status,
		"pay_param":  payParam,
	})
}

// ListAttempts 订单的支付尝试台账（审计视图）
// @Summary 支付尝试列表
// @Tags Payment
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Response
// @Router /orders/{id}/attempts [get]
func (h *PaymentHandler) ListAttempts(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	attempts, err := h.service.ListAttempts(tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, attempts)
}
