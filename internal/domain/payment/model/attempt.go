package model

import (
	"encoding/json"

	baseModel "shopcore/pkg/model"
)

// 支付尝试状态
const (
	AttemptCreated   = "CREATED"
	AttemptSucceeded = "SUCCEEDED"
	AttemptFailed    = "FAILED"
	AttemptRefunded  = "REFUNDED"
	AttemptDisputed  = "DISPUTED"
	AttemptCancelled = "CANCELLED"
)

// PaymentAttempt 支付台账，一行对应一次与支付渠道的交互
// 同一订单允许多行（重试、换渠道、会话过期重建），只增不删
type PaymentAttempt struct {
	baseModel.TenantModel
	OrderID  string `gorm:"type:uuid;index;not null" json:"orderId"`
	Provider string `gorm:"index" json:"provider"`
	Status   string `gorm:"default:'CREATED'" json:"status"`
	Amount   int64  `json:"amount"` // 最小货币单位
	Currency string `json:"currency"`

	// 渠道侧关联 ID，webhook 只带渠道自己的 ID 时靠这些字段反查
	CheckoutSessionID string `gorm:"index" json:"checkoutSessionId"`
	PaymentIntentID   string `gorm:"index" json:"paymentIntentId"`
	ChargeID          string `gorm:"index" json:"chargeId"`

	// 最近一次渠道事件，仅留作审计排查，不做二次解读
	LastEventType string          `json:"lastEventType"`
	LastEvent     json.RawMessage `gorm:"type:jsonb" json:"lastEvent,omitempty"`
}

// Terminal 终态台账行不再被 webhook 重放改写
func (a *PaymentAttempt) Terminal() bool {
	switch a.Status {
	case AttemptSucceeded, AttemptFailed, AttemptRefunded, AttemptCancelled:
		return true
	}
	return false
}
