package order

import (
	"shopcore/internal/domain/order/handler"
	"shopcore/internal/domain/order/repository"
	"shopcore/internal/domain/order/service"
	"shopcore/internal/pkg/middleware"
	"shopcore/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	// 订单模块先于支付模块初始化
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	oRepo := repository.NewOrderRepository(ctx.DB)
	oService := service.NewOrderService(oRepo)
	oHandler := handler.NewOrderHandler(oService)

	// 2. 路由注册
	setupRoutes(ctx.Router, oHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	g := r.Group("/orders")
	g.Use(middleware.TenantMiddleware(), middleware.AuthMiddleware())
	{
		g.POST("", h.CreateOrder)
		g.GET("/:id", h.GetOrder)
		g.POST("/:id/payment-proof", h.SubmitPaymentProof)
	}

	// 管理端接口
	admin := g.Group("")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("", h.ListOrders)
		admin.PATCH("/:id", h.UpdateOrder)
		admin.PATCH("/:id/payment", h.ReviewPayment)
	}
}
