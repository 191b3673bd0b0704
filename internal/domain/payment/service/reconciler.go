package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	orderService "shopcore/internal/domain/order/service"
	"shopcore/internal/domain/payment/model"
	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/domain/payment/strategy"
	"shopcore/pkg/logger"
	"shopcore/pkg/metrics"

	"go.uber.org/zap"
)

// webhookDedupTTL 渠道事件 ID 快速去重窗口
// 真正的幂等性靠台账/订单的条件更新保证，redis 只是挡掉明显的重放
const webhookDedupTTL = 24 * time.Hour

// HandleEvent 把验签通过的渠道事件落到台账与订单上
// 渠道投递是 at-least-once 且不保证顺序，每个分支都必须能安全地应用两次：
// 关联查不到记 warning 不报错，状态写全部是条件更新
func (s *paymentService) HandleEvent(ctx context.Context, tenantID string, evt *strategy.Event) error {
	if evt.Kind == strategy.EventIgnored {
		return nil
	}

	if s.alreadySeen(ctx, tenantID, evt) {
		logger.Log.Debug("duplicate webhook delivery short-circuited",
			zap.String("provider", evt.Provider), zap.String("event_id", evt.EventID))
		return nil
	}

	attempt := s.resolveAttempt(tenantID, evt)
	if attempt == nil {
		// webhook 可能早于台账落库，或引用了其他环境的数据
		// 记 warning 后仍然 ack，否则渠道会无限重试一条永远处理不了的载荷
		logger.Log.Warn("webhook event matched no payment attempt",
			zap.String("tenant_id", tenantID),
			zap.String("provider", evt.Provider),
			zap.String("event_type", evt.Type),
			zap.String("order_no", evt.OrderNo),
			zap.Strings("correlation_ids", evt.CorrelationIDs()),
		)
		metrics.WebhookEvents.WithLabelValues(evt.Provider, "unmatched").Inc()
		return nil
	}

	var err error
	switch evt.Kind {
	case strategy.EventSucceeded:
		err = s.applySucceeded(tenantID, attempt, evt)
	case strategy.EventExpired:
		err = s.applyNonSuccessTerminal(tenantID, attempt, evt, model.AttemptCancelled)
	case strategy.EventFailed:
		err = s.applyNonSuccessTerminal(tenantID, attempt, evt, model.AttemptFailed)
	case strategy.EventRefunded:
		err = s.applyRefunded(tenantID, attempt, evt)
	case strategy.EventDisputed:
		err = s.applyDisputed(tenantID, attempt, evt)
	default:
		return nil
	}

	outcome := "applied"
	if err != nil {
		outcome = "error"
	}
	metrics.WebhookEvents.WithLabelValues(evt.Provider, outcome).Inc()
	return err
}

// alreadySeen 渠道事件 ID 去重，redis 不可用时放行（幂等性不依赖它）
func (s *paymentService) alreadySeen(ctx context.Context, tenantID string, evt *strategy.Event) bool {
	if s.rdb == nil || evt.EventID == "" {
		return false
	}
	key := fmt.Sprintf("webhook:seen:%s:%s:%s", tenantID, evt.Provider, evt.EventID)
	ok, err := s.rdb.SetNX(ctx, key, 1, webhookDedupTTL).Result()
	if err != nil {
		return false
	}
	return !ok
}

func (s *paymentService) eventAudit(evt *strategy.Event) map[string]interface{} {
	updates := map[string]interface{}{
		"last_event_type": evt.Type,
	}
	if len(evt.Raw) > 0 {
		updates["last_event"] = []byte(evt.Raw)
	}
	return updates
}

func (s *paymentService) applySucceeded(tenantID string, attempt *model.PaymentAttempt, evt *strategy.Event) error {
	if !attempt.Terminal() {
		updates := s.eventAudit(evt)
		if evt.PaymentIntentID != "" {
			updates["payment_intent_id"] = evt.PaymentIntentID
		}
		if evt.ChargeID != "" {
			updates["charge_id"] = evt.ChargeID
		}
		if _, err := s.attempts.UpdateStatusIfNot(tenantID, attempt.ID, model.AttemptSucceeded, updates); err != nil {
			return err
		}

		// 订单上的渠道意图 ID 冗余回填
		if attempt.Provider == provider.Stripe && evt.PaymentIntentID != "" {
			if err := s.orders.UpdateFields(tenantID, attempt.OrderID, map[string]interface{}{
				"stripe_payment_intent_id": evt.PaymentIntentID,
			}); err != nil {
				logger.Log.Warn("failed to denormalize stripe intent id onto order",
					zap.String("order_id", attempt.OrderID), zap.Error(err))
			}
		}
	}

	// 订单侧推进，重复投递时 MarkPaid 是空操作
	return s.orderSvc.MarkPaid(tenantID, attempt.OrderID)
}

// applyNonSuccessTerminal 会话过期/扣款失败；乱序投递时不回写已终态的台账行
func (s *paymentService) applyNonSuccessTerminal(tenantID string, attempt *model.PaymentAttempt, evt *strategy.Event, status string) error {
	if attempt.Terminal() {
		return nil
	}
	_, err := s.attempts.UpdateStatusIfNot(tenantID, attempt.ID, status, s.eventAudit(evt))
	return err
}

func (s *paymentService) applyRefunded(tenantID string, attempt *model.PaymentAttempt, evt *strategy.Event) error {
	// 退款允许覆盖 SUCCEEDED，也容忍 refunded 先于 succeeded 到达
	if attempt.Status != model.AttemptRefunded {
		updates := s.eventAudit(evt)
		if evt.ChargeID != "" {
			updates["charge_id"] = evt.ChargeID
		}
		if _, err := s.attempts.UpdateStatusIfNot(tenantID, attempt.ID, model.AttemptRefunded, updates); err != nil {
			return err
		}
	}

	err := s.orderSvc.MarkRefunded(tenantID, attempt.OrderID, "provider refund: "+evt.Type)
	var invalid *orderService.InvalidTransitionError
	if errors.As(err, &invalid) {
		// 订单当前状态没有到 REFUNDED 的边（例如还在 PENDING），台账已记退款，只告警
		logger.Log.Warn("refund event arrived in a state with no refund edge",
			zap.String("order_id", attempt.OrderID), zap.String("detail", invalid.Error()))
		return nil
	}
	return err
}

func (s *paymentService) applyDisputed(tenantID string, attempt *model.PaymentAttempt, evt *strategy.Event) error {
	// 争议只记台账和 disputedAt，不走订单状态机
	if attempt.Status != model.AttemptDisputed {
		if _, err := s.attempts.UpdateStatusIfNot(tenantID, attempt.ID, model.AttemptDisputed, s.eventAudit(evt)); err != nil {
			return err
		}
	}
	return s.orderSvc.MarkDisputed(tenantID, attempt.OrderID)
}
