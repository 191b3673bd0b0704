package strategy

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrInvalidSignature 回调验签失败，webhook 入口据此返回 400
// 其余错误一律吞掉并 ack，避免渠道无限重试
var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventKind 渠道事件归一化后的类别
type EventKind string

const (
	EventSucceeded EventKind = "succeeded" // 收款成功
	EventExpired   EventKind = "expired"   // 会话过期/交易关闭
	EventFailed    EventKind = "failed"    // 扣款失败
	EventRefunded  EventKind = "refunded"  // 已退款
	EventDisputed  EventKind = "disputed"  // 争议/拒付
	EventIgnored   EventKind = "ignored"   // 不关心的事件类型，直接 ack
)

// Event 验签通过后从渠道回调中提取的归一化事件
// 关联字段能提取多少算多少，台账按非空字段反查
type Event struct {
	Provider string
	Kind     EventKind
	Type     string // 渠道原始事件类型
	EventID  string // 渠道事件 ID，用于重放快速去重

	CheckoutSessionID string
	PaymentIntentID   string
	ChargeID          string
	OrderNo           string // 渠道回传的商户单号

	Amount   int64 // 最小货币单位
	Currency string

	Raw json.RawMessage // 原始载荷，落台账审计
}

// CorrelationIDs 按查询优先级返回非空的渠道关联 ID
func (e *Event) CorrelationIDs() []string {
	var ids []string
	for _, id := range []string{e.CheckoutSessionID, e.PaymentIntentID, e.ChargeID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// PaymentStrategy 渠道策略：发起支付 + 验签解析回调
type PaymentStrategy interface {
	// Provider 返回目录中的支付方式 ID
	Provider() string

	// Pay 发起支付，返回拉起支付所需参数（URL/JSON 串）与渠道会话 ID
	Pay(orderNo string, amount int64, currency, subject string) (payParam string, sessionID string, err error)

	// VerifyNotify 验签并解析回调
	// body 是未经改动的原始请求体，验签必须先于任何解析
	VerifyNotify(req *http.Request, body []byte) (*Event, error)
}
