package service

import (
	"context"
	"errors"
	"fmt"

	orderRepo "shopcore/internal/domain/order/repository"
	orderService "shopcore/internal/domain/order/service"
	"shopcore/internal/domain/payment/model"
	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/domain/payment/repository"
	"shopcore/internal/domain/payment/strategy"
	"shopcore/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrUnknownProvider 支付方式不在目录里
var ErrUnknownProvider = errors.New("unknown payment provider")

type PaymentService interface {
	// OpenAttempt 对订单发起一次支付尝试，永远新建台账行
	// redirect 类渠道同时创建渠道会话并返回拉起支付的参数
	OpenAttempt(ctx context.Context, tenantID, orderID, providerID string) (*model.PaymentAttempt, string, error)

	// HandleEvent 把一条验签通过的渠道事件幂等地落到台账与订单上
	HandleEvent(ctx context.Context, tenantID string, evt *strategy.Event) error

	// ListAttempts 订单的全部支付尝试（审计视图）
	ListAttempts(tenantID, orderID string) ([]model.PaymentAttempt, error)

	RegisterStrategy(providerID string, s strategy.PaymentStrategy)
	Strategy(providerID string) (strategy.PaymentStrategy, bool)
}

type paymentService struct {
	attempts   repository.AttemptRepository
	orders     orderRepo.OrderRepository
	orderSvc   orderService.OrderService
	catalog    *provider.Catalog
	rdb        *redis.Client
	strategies map[string]strategy.PaymentStrategy
}

func NewPaymentService(
	attempts repository.AttemptRepository,
	orders orderRepo.OrderRepository,
	orderSvc orderService.OrderService,
	catalog *provider.Catalog,
	rdb *redis.Client,
) PaymentService {
	return &paymentService{
		attempts:   attempts,
		orders:     orders,
		orderSvc:   orderSvc,
		catalog:    catalog,
		rdb:        rdb,
		strategies: make(map[string]strategy.PaymentStrategy),
	}
}

// RegisterStrategy 注册渠道策略
func (s *paymentService) RegisterStrategy(providerID string, st strategy.PaymentStrategy) {
	s.strategies[providerID] = st
}

func (s *paymentService) Strategy(providerID string) (strategy.PaymentStrategy, bool) {
	st, ok := s.strategies[providerID]
	return st, ok
}

func (s *paymentService) OpenAttempt(ctx context.Context, tenantID, orderID, providerID string) (*model.PaymentAttempt, string, error) {
	def, ok := s.catalog.Get(providerID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}

	order, err := s.orders.GetByID(tenantID, orderID)
	if err != nil {
		return nil, "", err
	}

	attempt := &model.PaymentAttempt{
		OrderID:  order.ID,
		Provider: providerID,
		Status:   model.AttemptCreated,
		Amount:   order.Amounts.Total,
		Currency: order.Amounts.Currency,
	}
	attempt.TenantID = tenantID
	if err := s.attempts.Create(attempt); err != nil {
		return nil, "", err
	}

	// 人工确认类渠道没有渠道会话，顾客按租户配置的收款信息转账后上传凭证
	if def.Manual() {
		return attempt, "", nil
	}

	st, ok := s.strategies[providerID]
	if !ok {
		return nil, "", fmt.Errorf("payment provider %s is not configured on this deployment", providerID)
	}

	subject := fmt.Sprintf("Order %s", order.OrderNo)
	payParam, sessionID, err := st.Pay(order.OrderNo, order.Amounts.Total, order.Amounts.Currency, subject)
	if err != nil {
		// 渠道下单失败，台账行保留 CREATED 供排查，错误上抛
		return nil, "", err
	}

	if sessionID != "" {
		// 按主键写回会话 ID，同一订单并发发起时不会串到别的尝试上
		if _, err := s.attempts.UpdateByID(tenantID, attempt.ID, map[string]interface{}{
			"checkout_session_id": sessionID,
		}); err != nil {
			return nil, "", err
		}
		attempt.CheckoutSessionID = sessionID

		// 冗余回填订单上的渠道关联字段，规范数据在台账
		if providerID == provider.Stripe {
			if err := s.orders.UpdateFields(tenantID, order.ID, map[string]interface{}{
				"stripe_checkout_session_id": sessionID,
			}); err != nil {
				logger.Log.Warn("failed to denormalize stripe session id onto order",
					zap.String("order_id", order.ID), zap.Error(err))
			}
		}
	}

	return attempt, payParam, nil
}

func (s *paymentService) ListAttempts(tenantID, orderID string) ([]model.PaymentAttempt, error) {
	return s.attempts.ListByOrder(tenantID, orderID)
}

// resolveAttempt 按渠道关联 ID 反查台账行，退而求其次用商户单号找订单的最新尝试
func (s *paymentService) resolveAttempt(tenantID string, evt *strategy.Event) *model.PaymentAttempt {
	for _, id := range evt.CorrelationIDs() {
		if attempt, err := s.attempts.GetByCorrelationID(tenantID, id); err == nil {
			return attempt
		}
	}

	if evt.OrderNo != "" {
		if order, err := s.orders.GetByOrderNo(tenantID, evt.OrderNo); err == nil {
			if attempts, err := s.attempts.ListByOrder(tenantID, order.ID); err == nil && len(attempts) > 0 {
				return &attempts[len(attempts)-1]
			}
		}
	}

	return nil
}
