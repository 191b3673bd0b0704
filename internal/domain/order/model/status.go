package model

import "fmt"

// 订单主状态
const (
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusRefunded   = "REFUNDED"
)

// 历史别名，仅在 API 边界接受并归一化，状态机内部只认规范值
const (
	legacyPaid       = "PAID"       // ≈ CONFIRMED
	legacyFulfilling = "FULFILLING" // ≈ PROCESSING
	legacyDisputed   = "DISPUTED"   // 争议只记在支付台账上，不是订单状态
)

// transitions 状态流转表，未列出的边一律拒绝
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusCompleted, StatusRefunded},
	StatusCompleted:  {StatusRefunded}, // 售后退款窗口
	// CANCELLED / REFUNDED 为终态，无出边
}

// NormalizeStatus 归一化状态输入，接受历史别名
// DISPUTED 不是订单状态，作为输入直接拒绝
func NormalizeStatus(s string) (string, error) {
	switch s {
	case legacyPaid:
		return StatusConfirmed, nil
	case legacyFulfilling:
		return StatusProcessing, nil
	case legacyDisputed:
		return "", fmt.Errorf("DISPUTED is tracked on payment attempts, not as an order status")
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusRefunded:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status: %s", s)
	}
}

// CanTransition 检查 from → to 是否是合法流转
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态无出边（COMPLETED 仍保留售后退款边，不算终态）
func IsTerminal(s string) bool {
	return len(transitions[s]) == 0
}

// MilestoneColumn 返回进入某状态时要写入的里程碑时间戳列，无则返回空串
func MilestoneColumn(status string) string {
	switch status {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusShipped:
		return "shipped_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusRefunded:
		return "refunded_at"
	default:
		return ""
	}
}
