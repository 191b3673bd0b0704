package product

import (
	idemRepo "shopcore/internal/domain/idempotency/repository"
	idemService "shopcore/internal/domain/idempotency/service"
	"shopcore/internal/domain/product/handler"
	"shopcore/internal/domain/product/repository"
	"shopcore/internal/domain/product/service"
	"shopcore/internal/pkg/middleware"
	"shopcore/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// ProductModule 商品模块
type ProductModule struct{}

func init() {
	registry.Register(&ProductModule{})
}

func (m *ProductModule) Name() string {
	return "product"
}

func (m *ProductModule) Priority() int {
	return 10
}

func (m *ProductModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	pRepo := repository.NewProductRepository(ctx.DB)
	pService := service.NewProductService(pRepo)
	pHandler := handler.NewProductHandler(pService)

	idemStore := idemService.NewStore(idemRepo.NewKeyRepository(ctx.DB))

	// 2. 路由注册
	setupRoutes(ctx.Router, pHandler, idemStore)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ProductHandler, store idemService.Store) {
	g := r.Group("/products")
	g.Use(middleware.TenantMiddleware())
	{
		g.GET("", h.ListProducts)
		g.GET("/:id", h.GetProduct)
	}

	// 写接口要求鉴权，创建商品叠加幂等键保护
	admin := g.Group("")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("", middleware.IdempotencyMiddleware(store), h.CreateProduct)
		admin.PATCH("/:id/status", h.SetProductStatus)
	}
}
