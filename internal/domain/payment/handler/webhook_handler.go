package handler

import (
	"errors"
	"io"
	"net/http"

	"shopcore/internal/domain/payment/service"
	"shopcore/internal/domain/payment/strategy"
	"shopcore/internal/pkg/middleware"
	"shopcore/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler 渠道回调入口
// 只有验签失败才返回 400；业务处理失败也返回 200 ack，
// 否则渠道会无限重试一条永远处理不了的回调
type WebhookHandler struct {
	service service.PaymentService
}

func NewWebhookHandler(s service.PaymentService) *WebhookHandler {
	return &WebhookHandler{service: s}
}

// Notify 统一回调入口
// @Summary 支付渠道回调
// @Tags Payment
// @Param provider path string true "Provider ID"
// @Success 200 {object} map[string]bool
// @Router /webhook/{provider} [post]
func (h *WebhookHandler) Notify(c *gin.Context) {
	providerID := c.Param("provider")

	st, ok := h.service.Strategy(providerID)
	if !ok {
		// 未配置的渠道不可能有合法签名
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	// 验签要求原始字节，任何解析都必须在验签之后
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	evt, err := st.VerifyNotify(c.Request, body)
	if err != nil {
		if errors.Is(err, strategy.ErrInvalidSignature) {
			logger.Log.Warn("webhook signature verification failed",
				zap.String("provider", providerID))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		// 验签通过但载荷解析失败，ack 掉避免重试风暴
		logger.Log.Error("webhook payload parse failed",
			zap.String("provider", providerID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	tenantID := middleware.TenantID(c)
	if err := h.service.HandleEvent(c.Request.Context(), tenantID, evt); err != nil {
		// 落库失败只记日志，依然 ack；对账靠台账与渠道后台重放
		logger.Log.Error("webhook event processing failed",
			zap.String("provider", providerID),
			zap.String("event_type", evt.Type),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
