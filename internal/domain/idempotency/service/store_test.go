package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"shopcore/internal/domain/idempotency/model"
	"shopcore/internal/domain/idempotency/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockKeyRepository is a mock of KeyRepository
type MockKeyRepository struct {
	mock.Mock
}

func (m *MockKeyRepository) Reserve(record *model.IdempotencyKey) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockKeyRepository) Get(tenantID, key, route, method string) (*model.IdempotencyKey, error) {
	args := m.Called(tenantID, key, route, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IdempotencyKey), args.Error(1)
}

func (m *MockKeyRepository) Complete(id string, responseJSON []byte) error {
	args := m.Called(id, responseJSON)
	return args.Error(0)
}

func (m *MockKeyRepository) Release(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

const testTenant = "4f2c8a7e-0000-0000-0000-000000000001"

// newTestStore 缩短竞争等待参数，避免测试真的睡满轮询窗口
func newTestStore(repo repository.KeyRepository) Store {
	return &store{
		repo:           repo,
		replayInterval: time.Millisecond,
		replayWait:     20 * time.Millisecond,
	}
}

func completedRecord(payload []byte, response []byte) *model.IdempotencyKey {
	hash, _ := HashPayload(payload)
	now := time.Now()
	record := &model.IdempotencyKey{
		Key:          "idem-1",
		Route:        "/products",
		Method:       "POST",
		RequestHash:  hash,
		ResponseJSON: json.RawMessage(response),
		LockedAt:     now.Add(-time.Second),
		CompletedAt:  &now,
	}
	record.TenantID = testTenant
	return record
}

func TestExecute(t *testing.T) {
	payload := []byte(`{"name":"Oolong Tea","price":4500}`)

	t.Run("First request runs the handler and stores the response", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		mockRepo.On("Reserve", mock.AnythingOfType("*model.IdempotencyKey")).Return(nil)
		mockRepo.On("Complete", mock.AnythingOfType("string"), []byte(`{"id":"p1"}`)).Return(nil)

		calls := 0
		resp, replayed, err := store.Execute(testTenant, "idem-1", "/products", "POST", payload, func() ([]byte, error) {
			calls++
			return []byte(`{"id":"p1"}`), nil
		})

		assert.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, 1, calls)
		assert.Equal(t, []byte(`{"id":"p1"}`), resp)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Retry with the same payload replays without running the handler", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		mockRepo.On("Reserve", mock.Anything).Return(repository.ErrDuplicateKey)
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").
			Return(completedRecord(payload, []byte(`{"id":"p1"}`)), nil)

		calls := 0
		resp, replayed, err := store.Execute(testTenant, "idem-1", "/products", "POST", payload, func() ([]byte, error) {
			calls++
			return nil, nil
		})

		assert.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, 0, calls)
		assert.JSONEq(t, `{"id":"p1"}`, string(resp))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Retry with reordered keys still replays", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		reordered := []byte(`{"price":4500,"name":"Oolong Tea"}`)
		mockRepo.On("Reserve", mock.Anything).Return(repository.ErrDuplicateKey)
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").
			Return(completedRecord(payload, []byte(`{"id":"p1"}`)), nil)

		_, replayed, err := store.Execute(testTenant, "idem-1", "/products", "POST", reordered, nil)

		assert.NoError(t, err)
		assert.True(t, replayed)
	})

	t.Run("Same key with a different payload is rejected", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		mockRepo.On("Reserve", mock.Anything).Return(repository.ErrDuplicateKey)
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").
			Return(completedRecord(payload, []byte(`{"id":"p1"}`)), nil)

		_, _, err := store.Execute(testTenant, "idem-1", "/products", "POST", []byte(`{"name":"Jasmine Tea","price":3800}`), nil)

		assert.ErrorIs(t, err, ErrKeyReuse)
	})

	t.Run("Race loser waits for the winner and gets the same response", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := newTestStore(mockRepo)

		pending := completedRecord(payload, nil)
		pending.CompletedAt = nil
		pending.ResponseJSON = nil
		mockRepo.On("Reserve", mock.Anything).Return(repository.ErrDuplicateKey)
		// 前两次轮询获胜方还没落库，第三次读到完成行
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").Return(pending, nil).Twice()
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").
			Return(completedRecord(payload, []byte(`{"id":"p1"}`)), nil)

		resp, replayed, err := store.Execute(testTenant, "idem-1", "/products", "POST", payload, nil)

		assert.NoError(t, err)
		assert.True(t, replayed)
		assert.JSONEq(t, `{"id":"p1"}`, string(resp))
	})

	t.Run("Race loser that outwaits the winner sees an in-flight conflict", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := newTestStore(mockRepo)

		pending := completedRecord(payload, nil)
		pending.CompletedAt = nil
		pending.ResponseJSON = nil
		mockRepo.On("Reserve", mock.Anything).Return(repository.ErrDuplicateKey)
		mockRepo.On("Get", testTenant, "idem-1", "/products", "POST").Return(pending, nil)

		_, _, err := store.Execute(testTenant, "idem-1", "/products", "POST", payload, nil)

		assert.ErrorIs(t, err, ErrInFlight)
	})

	t.Run("Handler failure releases the reservation", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		mockRepo.On("Reserve", mock.Anything).Return(nil)
		mockRepo.On("Release", mock.AnythingOfType("string")).Return(nil)

		_, _, err := store.Execute(testTenant, "idem-1", "/products", "POST", payload, func() ([]byte, error) {
			return nil, errors.New("downstream unavailable")
		})

		assert.Error(t, err)
		mockRepo.AssertCalled(t, "Release", mock.AnythingOfType("string"))
		mockRepo.AssertNotCalled(t, "Complete")
	})

	t.Run("Missing key is rejected", func(t *testing.T) {
		mockRepo := new(MockKeyRepository)
		store := NewStore(mockRepo)

		_, _, err := store.Execute(testTenant, "", "/products", "POST", payload, nil)

		assert.ErrorIs(t, err, ErrKeyMissing)
		mockRepo.AssertNotCalled(t, "Reserve")
	})
}

func TestCanonicalizeJSON(t *testing.T) {
	t.Run("Key order does not change the hash", func(t *testing.T) {
		a, err := HashPayload([]byte(`{"b":2,"a":{"y":1,"x":[1,2]}}`))
		assert.NoError(t, err)
		b, err := HashPayload([]byte(`{"a":{"x":[1,2],"y":1},"b":2}`))
		assert.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("Array order is semantic", func(t *testing.T) {
		a, _ := HashPayload([]byte(`{"items":[1,2]}`))
		b, _ := HashPayload([]byte(`{"items":[2,1]}`))
		assert.NotEqual(t, a, b)
	})

	t.Run("Empty payload hashes like an empty object", func(t *testing.T) {
		a, _ := HashPayload(nil)
		b, _ := HashPayload([]byte(`{}`))
		assert.Equal(t, a, b)
	})

	t.Run("Non-JSON payload hashes raw bytes", func(t *testing.T) {
		a, err := HashPayload([]byte("plain text body"))
		assert.NoError(t, err)
		assert.NotEmpty(t, a)
	})
}
