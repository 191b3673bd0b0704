package repository

import (
	"errors"
	"strings"
	"time"

	"shopcore/internal/domain/idempotency/model"

	"gorm.io/gorm"
)

// ErrDuplicateKey 唯一约束冲突：并发请求中输掉竞争的一方拿到它，
// 然后转去读已落库的行，不能当成硬错误
var ErrDuplicateKey = errors.New("idempotency key already reserved")

type KeyRepository interface {
	// Reserve 依赖 (tenant_id, key, route, method) 唯一索引做抢占式插入
	// 唯一约束冲突归一化为 ErrDuplicateKey
	Reserve(record *model.IdempotencyKey) error

	Get(tenantID, key, route, method string) (*model.IdempotencyKey, error)

	// Complete 写入首次处理的响应
	Complete(id string, responseJSON []byte) error

	// Release 处理失败时释放预占，让客户端重试能重新执行
	Release(id string) error
}

type keyRepository struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) KeyRepository {
	return &keyRepository{db: db}
}

func (r *keyRepository) Reserve(record *model.IdempotencyKey) error {
	err := r.db.Create(record).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *keyRepository) Get(tenantID, key, route, method string) (*model.IdempotencyKey, error) {
	var record model.IdempotencyKey
	err := r.db.Where("tenant_id = ? AND key = ? AND route = ? AND method = ?",
		tenantID, key, route, method).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *keyRepository) Complete(id string, responseJSON []byte) error {
	now := time.Now()
	return r.db.Model(&model.IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"response_json": responseJSON,
			"completed_at":  now,
		}).Error
}

func (r *keyRepository) Release(id string) error {
	return r.db.Unscoped().Delete(&model.IdempotencyKey{}, "id = ?", id).Error
}

// isUniqueViolation 识别 postgres 唯一约束错误 (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key value")
}
