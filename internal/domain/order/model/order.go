package model

import (
	"time"

	baseModel "shopcore/pkg/model"
)

// Amounts 订单金额明细，下单时一次性写入，之后不可变
// 金额统一用最小货币单位 (分) 的 int64，避免浮点误差
type Amounts struct {
	Subtotal    int64  `json:"subtotal"`
	DeliveryFee int64  `json:"deliveryFee"`
	Discount    int64  `json:"discount"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// StatusChange 状态流转历史条目，只追加不修改
type StatusChange struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// StatusHistory 订单状态历史，jsonb 列
type StatusHistory []StatusChange

// Order 订单模型
// Status 是履约主状态，PaymentStatus 是独立的收款子状态：
// 订单可以停在 PENDING 而凭证已上传待审核
type Order struct {
	baseModel.TenantModel
	OrderNo       string        `gorm:"uniqueIndex;not null" json:"orderNo"`
	CustomerID    string        `gorm:"type:uuid;index" json:"customerId"`
	Status        string        `gorm:"default:'PENDING';index" json:"status"`
	PaymentStatus string        `gorm:"default:'pending'" json:"paymentStatus"`
	Amounts       Amounts       `gorm:"type:jsonb;serializer:json" json:"amounts"`
	StatusHistory StatusHistory `gorm:"type:jsonb;serializer:json" json:"statusHistory"`

	Note            string `json:"note"`
	TrackingNumber  string `json:"trackingNumber"`
	CancelReason    string `json:"cancelReason"`
	RefundReason    string `json:"refundReason"`
	PaymentProofURL string `json:"paymentProofUrl"`

	// 最近一次支付尝试的冗余关联字段，规范数据在 payment_attempts 台账里
	StripeCheckoutSessionID string `gorm:"index" json:"stripeCheckoutSessionId"`
	StripePaymentIntentID   string `gorm:"index" json:"stripePaymentIntentId"`

	// 里程碑时间戳，首次进入对应状态时写入一次，之后不再覆盖
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `json:"refundedAt,omitempty"`
	DisputedAt  *time.Time `json:"disputedAt,omitempty"`
}

// 收款子状态
const (
	PaymentPending   = "pending"
	PaymentUploaded  = "uploaded"
	PaymentConfirmed = "confirmed"
	PaymentRejected  = "rejected"
)

// ValidPaymentStatus 收款子状态是否在枚举内
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentUploaded, PaymentConfirmed, PaymentRejected:
		return true
	}
	return false
}
