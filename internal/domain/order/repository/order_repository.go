package repository

import (
	"errors"
	"time"

	"shopcore/internal/domain/order/model"

	"gorm.io/gorm"
)

// ErrStatusConflict 条件更新影响行数为 0，说明并发请求先一步改了状态
// 调用方应把它当作可重试的冲突而不是静默忽略
var ErrStatusConflict = errors.New("order status changed concurrently")

type OrderRepository interface {
	Create(order *model.Order) error
	GetByID(tenantID, id string) (*model.Order, error)
	GetByOrderNo(tenantID, orderNo string) (*model.Order, error)
	List(tenantID, status string, offset, limit int) ([]model.Order, int64, error)

	// TransitionStatus 把状态、里程碑时间戳、历史追加合并成一条条件更新：
	// WHERE id AND tenant_id AND status = fromStatus，RowsAffected=0 返回 ErrStatusConflict
	TransitionStatus(tenantID, id, fromStatus, toStatus string, at time.Time, history model.StatusHistory, extra map[string]interface{}) error

	// UpdatePaymentStatus 收款子状态条件更新，同样以当前值为前置条件
	UpdatePaymentStatus(tenantID, id, fromPaymentStatus, toPaymentStatus string, extra map[string]interface{}) error

	// UpdateFields 无状态前置条件的普通字段更新（备注、运单号等）
	UpdateFields(tenantID, id string, updates map[string]interface{}) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(tenantID, id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOrderNo(tenantID, orderNo string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("order_no = ? AND tenant_id = ?", orderNo, tenantID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(tenantID, status string, offset, limit int) ([]model.Order, int64, error) {
	q := r.db.Model(&model.Order{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, total, err
}

// TransitionStatus 乐观条件更新，参照优惠券扣库存的 RowsAffected 模式
// 里程碑时间戳用 COALESCE 保证只写一次，和状态写入同一条语句，
// 不存在状态已变而时间戳未落的窗口
func (r *orderRepository) TransitionStatus(tenantID, id, fromStatus, toStatus string, at time.Time, history model.StatusHistory, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":         toStatus,
		"status_history": history,
	}
	if col := model.MilestoneColumn(toStatus); col != "" {
		updates[col] = gorm.Expr("COALESCE("+col+", ?)", at)
	}
	// 进入 CONFIRMED 视为已收款（历史 PAID 别名语义）
	if toStatus == model.StatusConfirmed {
		updates["paid_at"] = gorm.Expr("COALESCE(paid_at, ?)", at)
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.Model(&model.Order{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) UpdatePaymentStatus(tenantID, id, fromPaymentStatus, toPaymentStatus string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"payment_status": toPaymentStatus,
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.Model(&model.Order{}).
		Where("id = ? AND tenant_id = ? AND payment_status = ?", id, tenantID, fromPaymentStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) UpdateFields(tenantID, id string, updates map[string]interface{}) error {
	result := r.db.Model(&model.Order{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
