package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopcore/internal/domain/payment/model"
	"shopcore/internal/domain/payment/service"
	"shopcore/internal/domain/payment/strategy"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPaymentService is a mock of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) OpenAttempt(ctx context.Context, tenantID, orderID, providerID string) (*model.PaymentAttempt, string, error) {
	args := m.Called(ctx, tenantID, orderID, providerID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.PaymentAttempt), args.String(1), args.Error(2)
}

func (m *MockPaymentService) HandleEvent(ctx context.Context, tenantID string, evt *strategy.Event) error {
	args := m.Called(ctx, tenantID, evt)
	return args.Error(0)
}

func (m *MockPaymentService) ListAttempts(tenantID, orderID string) ([]model.PaymentAttempt, error) {
	args := m.Called(tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentAttempt), args.Error(1)
}

func (m *MockPaymentService) RegisterStrategy(providerID string, s strategy.PaymentStrategy) {
	m.Called(providerID, s)
}

func (m *MockPaymentService) Strategy(providerID string) (strategy.PaymentStrategy, bool) {
	args := m.Called(providerID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(strategy.PaymentStrategy), args.Bool(1)
}

// stubStrategy 只为回调入口测试服务的最小策略实现
type stubStrategy struct {
	event *strategy.Event
	err   error
}

func (s *stubStrategy) Provider() string { return "stripe" }

func (s *stubStrategy) Pay(orderNo string, amount int64, currency, subject string) (string, string, error) {
	return "", "", nil
}

func (s *stubStrategy) VerifyNotify(req *http.Request, body []byte) (*strategy.Event, error) {
	return s.event, s.err
}

func performWebhook(svc service.PaymentService, providerID string, body []byte) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(svc)
	r.POST("/webhook/:provider", h.Notify)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+providerID+"?tenant=t1", bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookNotify(t *testing.T) {
	t.Run("Invalid signature returns 400", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("Strategy", "stripe").Return(&stubStrategy{err: strategy.ErrInvalidSignature}, true)

		w := performWebhook(svc, "stripe", []byte(`{}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "HandleEvent")
	})

	t.Run("Unknown provider returns 400", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("Strategy", "paypal").Return(nil, false)

		w := performWebhook(svc, "paypal", []byte(`{}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Valid event is acked", func(t *testing.T) {
		svc := new(MockPaymentService)
		evt := &strategy.Event{Provider: "stripe", Kind: strategy.EventSucceeded, Type: "checkout.session.completed"}
		svc.On("Strategy", "stripe").Return(&stubStrategy{event: evt}, true)
		svc.On("HandleEvent", mock.Anything, mock.AnythingOfType("string"), evt).Return(nil)

		w := performWebhook(svc, "stripe", []byte(`{"id":"evt_1"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "received")
		svc.AssertExpectations(t)
	})

	t.Run("Processing failure is still acked with 200", func(t *testing.T) {
		svc := new(MockPaymentService)
		evt := &strategy.Event{Provider: "stripe", Kind: strategy.EventSucceeded}
		svc.On("Strategy", "stripe").Return(&stubStrategy{event: evt}, true)
		svc.On("HandleEvent", mock.Anything, mock.AnythingOfType("string"), evt).Return(errors.New("db connection lost"))

		w := performWebhook(svc, "stripe", []byte(`{}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "received")
	})

	t.Run("Unparseable payload after valid signature is acked", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("Strategy", "stripe").Return(&stubStrategy{err: errors.New("unexpected payload shape")}, true)

		w := performWebhook(svc, "stripe", []byte(`not-json`))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "HandleEvent")
	})
}
