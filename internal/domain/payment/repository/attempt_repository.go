package repository

import (
	"shopcore/internal/domain/payment/model"

	"gorm.io/gorm"
)

type AttemptRepository interface {
	// Create 永远新增一行，不做 upsert
	Create(attempt *model.PaymentAttempt) error
	GetByID(tenantID, id string) (*model.PaymentAttempt, error)
	ListByOrder(tenantID, orderID string) ([]model.PaymentAttempt, error)

	// GetByCorrelationID 按渠道侧 ID（会话/意图/扣款单）反查台账行
	GetByCorrelationID(tenantID, correlationID string) (*model.PaymentAttempt, error)

	// UpdateByID 按台账行主键更新，发起方手里有行 ID 时用这个，
	// 避免并发发起时写到同一订单的另一条尝试上
	UpdateByID(tenantID, id string, updates map[string]interface{}) (int64, error)

	// UpdateByCorrelationID 按渠道侧 ID 更新，返回影响行数
	// 0 行由调用方记 warning：webhook 可能跑在台账落库之前，或来自其他环境
	UpdateByCorrelationID(tenantID, correlationID string, updates map[string]interface{}) (int64, error)

	// UpdateStatusIfNot 幂等状态写：当前状态已经是目标值时不再改写
	// 返回影响行数，重放投递命中 0 行是正常情况
	UpdateStatusIfNot(tenantID, attemptID, status string, updates map[string]interface{}) (int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.PaymentAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) GetByID(tenantID, id string) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) ListByOrder(tenantID, orderID string) ([]model.PaymentAttempt, error) {
	var attempts []model.PaymentAttempt
	err := r.db.Where("order_id = ? AND tenant_id = ?", orderID, tenantID).
		Order("created_at ASC").Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) GetByCorrelationID(tenantID, correlationID string) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	err := r.db.Where("tenant_id = ? AND (checkout_session_id = ? OR payment_intent_id = ? OR charge_id = ?)",
		tenantID, correlationID, correlationID, correlationID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) UpdateByID(tenantID, id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.PaymentAttempt{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *attemptRepository) UpdateByCorrelationID(tenantID, correlationID string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.PaymentAttempt{}).
		Where("tenant_id = ? AND (checkout_session_id = ? OR payment_intent_id = ? OR charge_id = ?)",
			tenantID, correlationID, correlationID, correlationID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *attemptRepository) UpdateStatusIfNot(tenantID, attemptID, status string, updates map[string]interface{}) (int64, error) {
	merged := map[string]interface{}{"status": status}
	for k, v := range updates {
		merged[k] = v
	}
	result := r.db.Model(&model.PaymentAttempt{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", attemptID, tenantID, status).
		Updates(merged)
	return result.RowsAffected, result.Error
}
