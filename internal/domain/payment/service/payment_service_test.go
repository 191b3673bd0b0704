package service

import (
	"context"
	"net/http"
	"testing"

	orderModel "shopcore/internal/domain/order/model"
	"shopcore/internal/domain/payment/model"
	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/domain/payment/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// sessionStrategy 固定返回一个渠道会话的跳转类策略替身
type sessionStrategy struct{}

func (sessionStrategy) Provider() string { return provider.Stripe }

func (sessionStrategy) Pay(orderNo string, amount int64, currency, subject string) (string, string, error) {
	return "https://pay.example/cs_live_789", "cs_live_789", nil
}

func (sessionStrategy) VerifyNotify(req *http.Request, body []byte) (*strategy.Event, error) {
	return nil, nil
}

func TestOpenAttempt(t *testing.T) {
	order := &orderModel.Order{
		OrderNo: "20260101120000abcd1234",
		Status:  orderModel.StatusPending,
		Amounts: orderModel.Amounts{Total: 10000, Currency: "HKD"},
	}
	order.ID = "order-1"
	order.TenantID = testTenant

	t.Run("Session id is written back to the attempt just created", func(t *testing.T) {
		attempts := new(MockAttemptRepository)
		orders := new(MockOrderRepository)
		orderSvc := new(MockOrderService)
		service := newTestService(attempts, orders, orderSvc)
		service.RegisterStrategy(provider.Stripe, sessionStrategy{})

		orders.On("GetByID", testTenant, "order-1").Return(order, nil)
		attempts.On("Create", mock.AnythingOfType("*model.PaymentAttempt")).
			Run(func(args mock.Arguments) {
				args.Get(0).(*model.PaymentAttempt).ID = "attempt-new"
			}).Return(nil)
		// 回写必须按刚插入那行的主键，并发发起第二笔时不能串行
		attempts.On("UpdateByID", testTenant, "attempt-new",
			mock.MatchedBy(func(updates map[string]interface{}) bool {
				return updates["checkout_session_id"] == "cs_live_789"
			})).Return(int64(1), nil)
		orders.On("UpdateFields", testTenant, "order-1", mock.Anything).Return(nil)

		attempt, payParam, err := service.OpenAttempt(context.Background(), testTenant, "order-1", provider.Stripe)

		assert.NoError(t, err)
		assert.Equal(t, "cs_live_789", attempt.CheckoutSessionID)
		assert.Equal(t, "https://pay.example/cs_live_789", payParam)
		attempts.AssertExpectations(t)
	})

	t.Run("Manual provider opens an attempt without a provider session", func(t *testing.T) {
		attempts := new(MockAttemptRepository)
		orders := new(MockOrderRepository)
		orderSvc := new(MockOrderService)
		service := newTestService(attempts, orders, orderSvc)

		orders.On("GetByID", testTenant, "order-1").Return(order, nil)
		attempts.On("Create", mock.AnythingOfType("*model.PaymentAttempt")).Return(nil)

		attempt, payParam, err := service.OpenAttempt(context.Background(), testTenant, "order-1", provider.BankTransfer)

		assert.NoError(t, err)
		assert.Empty(t, payParam)
		assert.Equal(t, model.AttemptCreated, attempt.Status)
		attempts.AssertNotCalled(t, "UpdateByID")
	})

	t.Run("Unknown provider is rejected", func(t *testing.T) {
		attempts := new(MockAttemptRepository)
		orders := new(MockOrderRepository)
		orderSvc := new(MockOrderService)
		service := newTestService(attempts, orders, orderSvc)

		_, _, err := service.OpenAttempt(context.Background(), testTenant, "order-1", "carrier-pigeon")

		assert.ErrorIs(t, err, ErrUnknownProvider)
		attempts.AssertNotCalled(t, "Create")
	})
}
