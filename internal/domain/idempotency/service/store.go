package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"shopcore/internal/domain/idempotency/model"
	"shopcore/internal/domain/idempotency/repository"
	"shopcore/pkg/logger"
	"shopcore/pkg/metrics"

	"go.uber.org/zap"
)

var (
	// ErrKeyMissing 指定端点要求幂等键而请求没带
	ErrKeyMissing = errors.New("idempotency key is required for this endpoint")

	// ErrKeyReuse 同一个键带了不同的请求体，拒绝而不是静默接受
	ErrKeyReuse = errors.New("idempotency key reused with a different payload")

	// ErrInFlight 首次请求还在处理中，稍后重试
	ErrInFlight = errors.New("request with this idempotency key is still in flight")
)

// 竞争失败方等待获胜方落库响应的轮询参数
const (
	defaultReplayInterval = 100 * time.Millisecond
	defaultReplayWait     = 2 * time.Second
)

// Handler 真正产生副作用的业务处理器，返回要写给客户端的响应体
type Handler func() ([]byte, error)

type Store interface {
	// Execute 对 (key, route, method) 执行 handler，保证恰好一次：
	// 首次执行并落库响应；同键同载荷重放存量响应；同键异载荷报 ErrKeyReuse
	Execute(tenantID, key, route, method string, payload []byte, handler Handler) (response []byte, replayed bool, err error)
}

type store struct {
	repo repository.KeyRepository

	replayInterval time.Duration
	replayWait     time.Duration
}

func NewStore(repo repository.KeyRepository) Store {
	return &store{
		repo:           repo,
		replayInterval: defaultReplayInterval,
		replayWait:     defaultReplayWait,
	}
}

func (s *store) Execute(tenantID, key, route, method string, payload []byte, handler Handler) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyMissing
	}

	hash, err := HashPayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("hash request payload: %w", err)
	}

	record := &model.IdempotencyKey{
		Key:         key,
		Route:       route,
		Method:      method,
		RequestHash: hash,
		LockedAt:    time.Now(),
	}
	record.TenantID = tenantID

	// 抢占式插入，唯一索引保证并发场景只有一个获胜者执行 handler
	if err := s.repo.Reserve(record); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return s.replay(tenantID, key, route, method, hash)
		}
		return nil, false, err
	}

	response, err := handler()
	if err != nil {
		// 处理失败不留预占，客户端可以原键重试
		if releaseErr := s.repo.Release(record.ID); releaseErr != nil {
			logger.Log.Error("failed to release idempotency reservation",
				zap.String("key", key), zap.Error(releaseErr))
		}
		return nil, false, err
	}

	if err := s.repo.Complete(record.ID, response); err != nil {
		return nil, false, err
	}
	return response, false, nil
}

// replay 竞争失败或重试路径：读已落库的行
// 获胜方可能还在 handler 里，限时轮询等它落库，让并发的相同请求
// 拿到同一份响应；超时仍未完成才报 ErrInFlight
func (s *store) replay(tenantID, key, route, method, hash string) ([]byte, bool, error) {
	deadline := time.Now().Add(s.replayWait)
	for {
		record, err := s.repo.Get(tenantID, key, route, method)
		if err != nil {
			// 获胜方失败释放了预占，让客户端原键重试
			return nil, false, err
		}
		if record.RequestHash != hash {
			return nil, false, ErrKeyReuse
		}
		if record.Completed() {
			metrics.IdempotencyReplays.WithLabelValues(route).Inc()
			return record.ResponseJSON, true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, ErrInFlight
		}
		time.Sleep(s.replayInterval)
	}
}

// HashPayload 对请求体做键序无关的规范化后取 sha256
// 字段顺序不同但语义相同的 JSON 哈希一致
func HashPayload(payload []byte) (string, error) {
	canonical, err := CanonicalizeJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalizeJSON 递归按键名排序重排 JSON 对象
// 空载荷视作空对象，非 JSON 载荷按原始字节参与哈希
func CanonicalizeJSON(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("{}"), nil
	}

	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		return payload, nil
	}
	return marshalCanonical(value)
}

func marshalCanonical(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := marshalCanonical(v[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, vb...)
		}
		return append(buf, '}'), nil

	case []interface{}:
		buf := []byte{'['}
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			ib, err := marshalCanonical(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ib...)
		}
		return append(buf, ']'), nil

	default:
		// 数组顺序有语义，标量直接编码
		return json.Marshal(v)
	}
}
