package service

import (
	"testing"
	"time"

	"shopcore/internal/domain/order/model"
	"shopcore/internal/domain/order/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(tenantID, id string) (*model.Order, error) {
	args := m.Called(tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNo(tenantID, orderNo string) (*model.Order, error) {
	args := m.Called(tenantID, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(tenantID, status string, offset, limit int) ([]model.Order, int64, error) {
	args := m.Called(tenantID, status, offset, limit)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) TransitionStatus(tenantID, id, fromStatus, toStatus string, at time.Time, history model.StatusHistory, extra map[string]interface{}) error {
	args := m.Called(tenantID, id, fromStatus, toStatus, at, history, extra)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(tenantID, id, fromPaymentStatus, toPaymentStatus string, extra map[string]interface{}) error {
	args := m.Called(tenantID, id, fromPaymentStatus, toPaymentStatus, extra)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateFields(tenantID, id string, updates map[string]interface{}) error {
	args := m.Called(tenantID, id, updates)
	return args.Error(0)
}

const testTenant = "4f2c8a7e-0000-0000-0000-000000000001"

func createTestOrder(id, status string) *model.Order {
	order := &model.Order{
		OrderNo:       "20260101120000abcd1234",
		Status:        status,
		PaymentStatus: model.PaymentPending,
		Amounts: model.Amounts{
			Subtotal: 10000,
			Total:    10000,
			Currency: "HKD",
		},
		StatusHistory: model.StatusHistory{},
	}
	order.ID = id
	order.TenantID = testTenant
	return order
}

func TestCreateOrder(t *testing.T) {
	t.Run("Create success", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		mockRepo.On("Create", mock.AnythingOfType("*model.Order")).Return(nil)

		order, err := service.CreateOrder(testTenant, CreateOrderInput{
			Amounts: model.Amounts{Subtotal: 10000, Total: 10000, Currency: "HKD"},
		})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, order.Status)
		assert.Equal(t, model.PaymentPending, order.PaymentStatus)
		assert.Equal(t, testTenant, order.TenantID)
		assert.NotEmpty(t, order.OrderNo)
		assert.Empty(t, order.StatusHistory)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Missing total is rejected", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		_, err := service.CreateOrder(testTenant, CreateOrderInput{
			Amounts: model.Amounts{Currency: "HKD"},
		})

		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestApplyTransition(t *testing.T) {
	t.Run("Pending to confirmed stamps milestone and history", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-1", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-1").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-1", model.StatusPending, model.StatusConfirmed,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.Anything).Return(nil)

		updated, err := service.ApplyTransition(testTenant, "order-1", model.StatusConfirmed)

		assert.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, updated.Status)
		assert.Len(t, updated.StatusHistory, 1)
		assert.Equal(t, model.StatusPending, updated.StatusHistory[0].From)
		assert.Equal(t, model.StatusConfirmed, updated.StatusHistory[0].To)
		assert.NotNil(t, updated.ConfirmedAt)
		assert.NotNil(t, updated.PaidAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Legacy alias PAID is accepted", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-2", model.StatusPending, model.StatusConfirmed,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.Anything).Return(nil)

		updated, err := service.ApplyTransition(testTenant, "order-2", "PAID")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, updated.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Skipping states is rejected with both statuses named", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-3", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-3").Return(order, nil)

		_, err := service.ApplyTransition(testTenant, "order-3", model.StatusShipped)

		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), model.StatusPending)
		assert.Contains(t, err.Error(), model.StatusShipped)
		mockRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("DISPUTED target is rejected before loading the order", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		_, err := service.ApplyTransition(testTenant, "order-4", "DISPUTED")

		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("Concurrent writer wins and conflict surfaces", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-5", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-5").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-5", model.StatusPending, model.StatusCancelled,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.Anything).Return(repository.ErrStatusConflict)

		_, err := service.ApplyTransition(testTenant, "order-5", model.StatusCancelled)

		assert.ErrorIs(t, err, repository.ErrStatusConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestConfirmOrReject(t *testing.T) {
	t.Run("Confirm on pending order advances status and payment together", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-1", model.StatusPending)
		order.PaymentStatus = model.PaymentUploaded

		mockRepo.On("GetByID", testTenant, "order-1").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-1", model.StatusPending, model.StatusConfirmed,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.MatchedBy(func(extra map[string]interface{}) bool {
				return extra["payment_status"] == model.PaymentConfirmed
			})).Return(nil)

		updated, err := service.ConfirmOrReject(testTenant, "order-1", "confirm", "")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, updated.Status)
		assert.Equal(t, model.PaymentConfirmed, updated.PaymentStatus)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Confirm without uploaded proof is rejected", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)

		_, err := service.ConfirmOrReject(testTenant, "order-2", "confirm", "")

		assert.ErrorIs(t, err, ErrPaymentStateInvalid)
		mockRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("Reject keeps order status untouched", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-3", model.StatusPending)
		order.PaymentStatus = model.PaymentUploaded

		mockRepo.On("GetByID", testTenant, "order-3").Return(order, nil).Once()
		mockRepo.On("UpdatePaymentStatus", testTenant, "order-3", model.PaymentUploaded, model.PaymentRejected,
			mock.Anything).Return(nil)
		rejected := createTestOrder("order-3", model.StatusPending)
		rejected.PaymentStatus = model.PaymentRejected
		mockRepo.On("GetByID", testTenant, "order-3").Return(rejected, nil).Once()

		updated, err := service.ConfirmOrReject(testTenant, "order-3", "reject", "blurry screenshot")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, updated.Status)
		assert.Equal(t, model.PaymentRejected, updated.PaymentStatus)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Unknown action is rejected", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-4", model.StatusPending)
		order.PaymentStatus = model.PaymentUploaded

		mockRepo.On("GetByID", testTenant, "order-4").Return(order, nil)

		_, err := service.ConfirmOrReject(testTenant, "order-4", "approve", "")

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSubmitPaymentProof(t *testing.T) {
	t.Run("Pending to uploaded", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-1", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-1").Return(order, nil)
		mockRepo.On("UpdatePaymentStatus", testTenant, "order-1", model.PaymentPending, model.PaymentUploaded,
			mock.MatchedBy(func(extra map[string]interface{}) bool {
				return extra["payment_proof_url"] == "https://cdn.example.com/proof.jpg"
			})).Return(nil)

		_, err := service.SubmitPaymentProof(testTenant, "order-1", "https://cdn.example.com/proof.jpg")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Resubmission after rejection is allowed", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusPending)
		order.PaymentStatus = model.PaymentRejected

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)
		mockRepo.On("UpdatePaymentStatus", testTenant, "order-2", model.PaymentPending, model.PaymentUploaded,
			mock.Anything).Return(repository.ErrStatusConflict)
		mockRepo.On("UpdatePaymentStatus", testTenant, "order-2", model.PaymentRejected, model.PaymentUploaded,
			mock.Anything).Return(nil)

		_, err := service.SubmitPaymentProof(testTenant, "order-2", "https://cdn.example.com/proof2.jpg")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Missing proof url is rejected", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		_, err := service.SubmitPaymentProof(testTenant, "order-3", "")

		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "UpdatePaymentStatus")
	})
}

func TestMarkPaid(t *testing.T) {
	t.Run("Pending order is confirmed", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-1", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-1").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-1", model.StatusPending, model.StatusConfirmed,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.Anything).Return(nil)

		err := service.MarkPaid(testTenant, "order-1")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Replay on already confirmed order is a no-op", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusConfirmed)

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)

		err := service.MarkPaid(testTenant, "order-2")

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("Losing the conditional update race is treated as applied", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-3", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-3").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-3", model.StatusPending, model.StatusConfirmed,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.Anything).Return(repository.ErrStatusConflict)

		err := service.MarkPaid(testTenant, "order-3")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestMarkRefunded(t *testing.T) {
	t.Run("Confirmed order is refunded", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-1", model.StatusConfirmed)

		mockRepo.On("GetByID", testTenant, "order-1").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-1", model.StatusConfirmed, model.StatusRefunded,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.MatchedBy(func(extra map[string]interface{}) bool {
				return extra["refund_reason"] == "charge.refunded"
			})).Return(nil)

		err := service.MarkRefunded(testTenant, "order-1", "charge.refunded")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Replay on already refunded order is a no-op", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusRefunded)

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)

		err := service.MarkRefunded(testTenant, "order-2", "charge.refunded")

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("Refund from processing is rejected by the state machine", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-3", model.StatusProcessing)

		mockRepo.On("GetByID", testTenant, "order-3").Return(order, nil)

		err := service.MarkRefunded(testTenant, "order-3", "")

		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestAdminUpdate(t *testing.T) {
	t.Run("Empty input is rejected", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		_, err := service.AdminUpdate(testTenant, "order-1", AdminUpdateInput{})

		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("Payment status outside the enum is rejected before any write", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)

		_, err := service.AdminUpdate(testTenant, "order-1", AdminUpdateInput{PaymentStatus: "banana"})

		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "banana")
		mockRepo.AssertNotCalled(t, "UpdateFields")
		mockRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("Status change and tracking number go through one conditional update", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-2", model.StatusProcessing)

		mockRepo.On("GetByID", testTenant, "order-2").Return(order, nil)
		mockRepo.On("TransitionStatus", testTenant, "order-2", model.StatusProcessing, model.StatusShipped,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("model.StatusHistory"),
			mock.MatchedBy(func(extra map[string]interface{}) bool {
				return extra["tracking_number"] == "SF123456"
			})).Return(nil)

		updated, err := service.AdminUpdate(testTenant, "order-2", AdminUpdateInput{
			Status:         model.StatusShipped,
			TrackingNumber: "SF123456",
		})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusShipped, updated.Status)
		assert.Equal(t, "SF123456", updated.TrackingNumber)
		assert.NotNil(t, updated.ShippedAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Plain field update without status change", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		service := NewOrderService(mockRepo)
		order := createTestOrder("order-3", model.StatusPending)

		mockRepo.On("GetByID", testTenant, "order-3").Return(order, nil)
		mockRepo.On("UpdateFields", testTenant, "order-3", mock.MatchedBy(func(fields map[string]interface{}) bool {
			return fields["note"] == "call before delivery"
		})).Return(nil)

		_, err := service.AdminUpdate(testTenant, "order-3", AdminUpdateInput{Note: "call before delivery"})

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}
