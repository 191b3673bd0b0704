package middleware

import (
	"net/http"

	"shopcore/internal/pkg/config"
	"shopcore/pkg/response"

	"github.com/gin-gonic/gin"
)

const tenantContextKey = "tenantID"

// TenantMiddleware 租户解析
// 正式部署由店铺域名解析服务确定租户，这里按约定取请求头，
// webhook 回调 URL 无法带自定义头，降级取查询参数
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := config.GlobalConfig.Tenant

		tenantID := c.GetHeader(cfg.Header)
		if tenantID == "" {
			tenantID = c.Query(cfg.QueryParam)
		}
		if tenantID == "" {
			response.Error(c, http.StatusBadRequest, response.ErrTenantMissing, "Tenant could not be resolved for this request")
			c.Abort()
			return
		}

		c.Set(tenantContextKey, tenantID)
		c.Next()
	}
}

// TenantID 从上下文取出已解析的租户 ID
func TenantID(c *gin.Context) string {
	return c.GetString(tenantContextKey)
}
