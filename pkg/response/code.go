package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 认证/租户错误 100xx
	ErrAuthFailed    = 10003
	ErrTokenInvalid  = 10004
	ErrNoPermission  = 10005
	ErrTenantMissing = 10006

	// 订单模块错误 200xx
	ErrOrderNotFound       = 20001
	ErrInvalidTransition   = 20002
	ErrStatusConflict      = 20003
	ErrPaymentStateInvalid = 20004

	// 商品模块错误 210xx
	ErrProductNotFound = 21001

	// 支付模块错误 300xx
	ErrProviderUnknown  = 30001
	ErrSignatureInvalid = 30002
	ErrAttemptNotFound  = 30003

	// 幂等模块错误 400xx
	ErrIdempotencyKeyMissing = 40001
	ErrIdempotencyKeyReuse   = 40002
	ErrIdempotencyInFlight   = 40003

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
