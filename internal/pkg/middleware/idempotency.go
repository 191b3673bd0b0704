package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	idemService "shopcore/internal/domain/idempotency/service"
	"shopcore/pkg/response"

	"github.com/gin-gonic/gin"
)

// 客户端幂等键请求头，两种写法都接受
const (
	idempotencyHeader    = "X-Idempotency-Key"
	idempotencyHeaderAlt = "Idempotency-Key"
)

// bodyRecorder 捕获下游 handler 写出的响应体，供幂等存储落库
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// IdempotencyMiddleware 变更型端点的恰好一次保障
// 挂了这个中间件的路由必须带幂等键；响应只在 2xx 时落库，
// 失败的请求允许原键重试
func IdempotencyMiddleware(store idemService.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			key = c.GetHeader(idempotencyHeaderAlt)
		}
		if key == "" {
			response.Error(c, http.StatusBadRequest, response.ErrIdempotencyKeyMissing,
				"X-Idempotency-Key header is required")
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		tenantID := TenantID(c)
		route := c.FullPath()
		method := c.Request.Method

		recorder := &bodyRecorder{ResponseWriter: c.Writer}

		stored, replayed, err := store.Execute(tenantID, key, route, method, body, func() ([]byte, error) {
			c.Writer = recorder
			c.Next()
			c.Writer = recorder.ResponseWriter

			if status := recorder.Status(); status < 200 || status >= 300 {
				// 业务失败不占键，原样透传已写出的错误响应
				return nil, errNonSuccess
			}
			return recorder.buf.Bytes(), nil
		})

		if errors.Is(err, errNonSuccess) {
			// 响应已由下游写出
			return
		}
		if err != nil {
			writeIdempotencyError(c, err)
			return
		}

		if replayed {
			c.Header("X-Idempotent-Replayed", "true")
			c.Data(http.StatusOK, "application/json; charset=utf-8", stored)
			c.Abort()
		}
	}
}

// errNonSuccess handler 返回非 2xx，幂等层放行且不落库
var errNonSuccess = errors.New("handler returned a non-success response")

func writeIdempotencyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, idemService.ErrKeyMissing):
		response.Error(c, http.StatusBadRequest, response.ErrIdempotencyKeyMissing, err.Error())
	case errors.Is(err, idemService.ErrKeyReuse):
		response.Error(c, http.StatusConflict, response.ErrIdempotencyKeyReuse, err.Error())
	case errors.Is(err, idemService.ErrInFlight):
		response.Error(c, http.StatusConflict, response.ErrIdempotencyInFlight, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
	c.Abort()
}
