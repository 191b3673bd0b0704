package payment

import (
	orderRepo "shopcore/internal/domain/order/repository"
	orderService "shopcore/internal/domain/order/service"
	"shopcore/internal/domain/payment/handler"
	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/domain/payment/repository"
	"shopcore/internal/domain/payment/service"
	"shopcore/internal/domain/payment/strategy"
	"shopcore/internal/pkg/config"
	"shopcore/internal/pkg/middleware"
	"shopcore/internal/pkg/registry"
	"shopcore/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 支付模块依赖订单模块，所以优先级较低
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	attempts := repository.NewAttemptRepository(ctx.DB)
	orders := orderRepo.NewOrderRepository(ctx.DB)
	orderSvc := orderService.NewOrderService(orders)

	pService := service.NewPaymentService(attempts, orders, orderSvc, ctx.Providers, ctx.Redis)

	// 2. 按配置注册渠道策略，缺配置的渠道只能走人工确认
	if config.GlobalConfig.Stripe.SecretKey != "" {
		stripeStrategy, err := strategy.NewStripeStrategy()
		if err != nil {
			logger.Log.Error("failed to init stripe strategy", zap.Error(err))
		} else {
			pService.RegisterStrategy(provider.Stripe, stripeStrategy)
		}
	}

	if config.GlobalConfig.Alipay.AppID != "" {
		alipayStrategy, err := strategy.NewAlipayStrategy()
		if err != nil {
			logger.Log.Error("failed to init alipay strategy", zap.Error(err))
		} else {
			pService.RegisterStrategy(provider.Alipay, alipayStrategy)
		}
	}

	if config.GlobalConfig.Wechat.MchID != "" {
		wechatStrategy, err := strategy.NewWechatStrategy()
		if err != nil {
			logger.Log.Error("failed to init wechat strategy", zap.Error(err))
		} else {
			pService.RegisterStrategy(provider.Wechat, wechatStrategy)
		}
	}

	pHandler := handler.NewPaymentHandler(pService)
	wHandler := handler.NewWebhookHandler(pService)

	// 3. 路由注册
	setupRoutes(ctx.Router, pHandler, wHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler, w *handler.WebhookHandler) {
	// 回调入口无需鉴权，靠各渠道验签；租户从回调 URL 的查询参数解析
	r.POST("/webhook/:provider", middleware.TenantMiddleware(), w.Notify)

	g := r.Group("/orders")
	g.Use(middleware.TenantMiddleware(), middleware.AuthMiddleware())
	{
		g.POST("/:id/checkout", h.Checkout)
		g.GET("/:id/attempts", middleware.AdminMiddleware(), h.ListAttempts)
	}
}
