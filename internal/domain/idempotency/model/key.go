package model

import (
	"encoding/json"
	"time"

	baseModel "shopcore/pkg/model"
)

// IdempotencyKey 幂等键记录
// 键只在 (tenant, key, route, method) 内唯一，同一个键可以用在不同端点上
// 首次成功处理后写入响应，之后只读重放
type IdempotencyKey struct {
	baseModel.BaseModel
	TenantID string `gorm:"type:uuid;uniqueIndex:uk_idem_scope;not null" json:"tenantId"`
	Key      string `gorm:"uniqueIndex:uk_idem_scope;size:128;not null" json:"key"`
	Route    string `gorm:"uniqueIndex:uk_idem_scope;size:255;not null" json:"route"`
	Method   string `gorm:"uniqueIndex:uk_idem_scope;size:10;not null" json:"method"`

	// RequestHash 规范化请求体的 sha256，用于识别同键不同载荷的误用
	RequestHash string `gorm:"size:64;not null" json:"requestHash"`

	// ResponseJSON 首次处理的完整响应，重放时原样返回
	ResponseJSON json.RawMessage `gorm:"type:jsonb" json:"responseJson,omitempty"`

	LockedAt    time.Time  `json:"lockedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Completed 响应已落库，后续请求走重放
func (k *IdempotencyKey) Completed() bool {
	return k.CompletedAt != nil
}
