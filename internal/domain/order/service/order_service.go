package service

import (
	"errors"
	"fmt"
	"time"

	"shopcore/internal/domain/order/model"
	"shopcore/internal/domain/order/repository"
	"shopcore/pkg/logger"
	"shopcore/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InvalidTransitionError 非法状态流转，错误信息必须同时点名当前状态和目标状态
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}

// ErrPaymentStateInvalid 收款子状态不满足操作前置条件
var ErrPaymentStateInvalid = errors.New("order payment status does not allow this action")

// ErrValidation 入参校验失败，映射为 400
var ErrValidation = errors.New("validation failed")

// CreateOrderInput 下单参数，金额在下单前由购物车/优惠券逻辑算好，创建后不可变
type CreateOrderInput struct {
	CustomerID string
	Amounts    model.Amounts
	Note       string
}

// AdminUpdateInput 管理端订单更新，至少一个字段非空
type AdminUpdateInput struct {
	Status         string
	PaymentStatus  string
	Note           string
	TrackingNumber string
	CancelReason   string
	RefundReason   string
}

// Empty 是否一个字段都没带
func (in AdminUpdateInput) Empty() bool {
	return in.Status == "" && in.PaymentStatus == "" && in.Note == "" &&
		in.TrackingNumber == "" && in.CancelReason == "" && in.RefundReason == ""
}

type OrderService interface {
	CreateOrder(tenantID string, in CreateOrderInput) (*model.Order, error)
	GetOrder(tenantID, id string) (*model.Order, error)
	ListOrders(tenantID, status string, offset, limit int) ([]model.Order, int64, error)

	// ApplyTransition 校验并应用一次状态流转，里程碑时间戳只写一次，历史只追加
	ApplyTransition(tenantID, id, targetStatus string) (*model.Order, error)

	// AdminUpdate 管理端更新，status 走状态机，其余字段直写
	AdminUpdate(tenantID, id string, in AdminUpdateInput) (*model.Order, error)

	// ConfirmOrReject 人工审核已上传的付款凭证
	ConfirmOrReject(tenantID, id, action, note string) (*model.Order, error)

	// SubmitPaymentProof 顾客提交付款凭证，pending → uploaded
	SubmitPaymentProof(tenantID, id, proofURL string) (*model.Order, error)

	// MarkPaid 渠道确认收款：PENDING 订单推进到 CONFIRMED，重复调用是空操作
	MarkPaid(tenantID, id string) error

	// MarkRefunded 渠道退款：按状态机流转到 REFUNDED，非法边返回 InvalidTransitionError
	MarkRefunded(tenantID, id, reason string) error

	// MarkDisputed 渠道争议：只记 disputedAt（只写一次），不动订单主状态
	MarkDisputed(tenantID, id string) error
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

func (s *orderService) CreateOrder(tenantID string, in CreateOrderInput) (*model.Order, error) {
	if in.Amounts.Total <= 0 || in.Amounts.Currency == "" {
		return nil, fmt.Errorf("%w: order total and currency are required", ErrValidation)
	}

	orderNo := fmt.Sprintf("%s%s", time.Now().Format("20060102150405"), uuid.New().String()[:8])
	order := &model.Order{
		OrderNo:       orderNo,
		CustomerID:    in.CustomerID,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
		Amounts:       in.Amounts,
		StatusHistory: model.StatusHistory{},
		Note:          in.Note,
	}
	order.TenantID = tenantID

	if err := s.repo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrder(tenantID, id string) (*model.Order, error) {
	return s.repo.GetByID(tenantID, id)
}

func (s *orderService) ListOrders(tenantID, status string, offset, limit int) ([]model.Order, int64, error) {
	if status != "" {
		normalized, err := model.NormalizeStatus(status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		status = normalized
	}
	return s.repo.List(tenantID, status, offset, limit)
}

func (s *orderService) ApplyTransition(tenantID, id, targetStatus string) (*model.Order, error) {
	target, err := model.NormalizeStatus(targetStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order, err := s.repo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	return s.transition(order, target, nil)
}

// transition 在已加载的订单上应用一次流转
// extra 里的字段会并入同一条条件更新
func (s *orderService) transition(order *model.Order, target string, extra map[string]interface{}) (*model.Order, error) {
	from := order.Status
	if !model.CanTransition(from, target) {
		return nil, &InvalidTransitionError{From: from, To: target}
	}

	now := time.Now()
	history := append(order.StatusHistory, model.StatusChange{
		Timestamp: now,
		From:      from,
		To:        target,
	})

	if err := s.repo.TransitionStatus(order.TenantID, order.ID, from, target, now, history, extra); err != nil {
		return nil, err
	}

	logger.Log.Info("order status transition",
		zap.String("tenant_id", order.TenantID),
		zap.String("order_id", order.ID),
		zap.String("from", from),
		zap.String("to", target),
	)
	metrics.OrderTransitions.WithLabelValues(from, target).Inc()

	// 条件更新成功后本地视图与库一致，直接回填返回
	order.Status = target
	order.StatusHistory = history
	stampMilestone(order, target, now)
	for k, v := range extra {
		applyExtraField(order, k, v)
	}
	return order, nil
}

func (s *orderService) AdminUpdate(tenantID, id string, in AdminUpdateInput) (*model.Order, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: at least one field is required", ErrValidation)
	}
	// 收款子状态只接受枚举值，乱写会破坏凭证审核的前置条件判断
	if in.PaymentStatus != "" && !model.ValidPaymentStatus(in.PaymentStatus) {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, in.PaymentStatus)
	}

	order, err := s.repo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	// 非状态字段
	fields := map[string]interface{}{}
	if in.Note != "" {
		fields["note"] = in.Note
	}
	if in.TrackingNumber != "" {
		fields["tracking_number"] = in.TrackingNumber
	}
	if in.CancelReason != "" {
		fields["cancel_reason"] = in.CancelReason
	}
	if in.RefundReason != "" {
		fields["refund_reason"] = in.RefundReason
	}

	// 状态流转和附带字段并入一条条件更新
	if in.Status != "" {
		target, err := model.NormalizeStatus(in.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if in.PaymentStatus != "" {
			fields["payment_status"] = in.PaymentStatus
		}
		return s.transition(order, target, fields)
	}

	if in.PaymentStatus != "" {
		fields["payment_status"] = in.PaymentStatus
	}
	if err := s.repo.UpdateFields(tenantID, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(tenantID, id)
}

func (s *orderService) ConfirmOrReject(tenantID, id, action, note string) (*model.Order, error) {
	order, err := s.repo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	// 只有已上传凭证的订单才能审核，防止重复确认和凭证缺失时的误操作
	if order.PaymentStatus != model.PaymentUploaded {
		return nil, fmt.Errorf("%w: payment status is %q, expected %q",
			ErrPaymentStateInvalid, order.PaymentStatus, model.PaymentUploaded)
	}

	switch action {
	case "confirm":
		if order.Status == model.StatusPending {
			// 收款确认连带推进订单状态，经状态机校验，不强写
			extra := map[string]interface{}{"payment_status": model.PaymentConfirmed}
			if note != "" {
				extra["note"] = note
			}
			return s.transition(order, model.StatusConfirmed, extra)
		}

		// 订单已越过 PENDING，只落收款子状态和 paidAt（只写一次）
		extra := map[string]interface{}{
			"paid_at": gorm.Expr("COALESCE(paid_at, ?)", time.Now()),
		}
		if note != "" {
			extra["note"] = note
		}
		if err := s.repo.UpdatePaymentStatus(tenantID, id, model.PaymentUploaded, model.PaymentConfirmed, extra); err != nil {
			return nil, err
		}
		return s.repo.GetByID(tenantID, id)

	case "reject":
		// 拒绝凭证不碰订单主状态，留待顾客重新提交
		extra := map[string]interface{}{}
		if note != "" {
			extra["note"] = note
		}
		if err := s.repo.UpdatePaymentStatus(tenantID, id, model.PaymentUploaded, model.PaymentRejected, extra); err != nil {
			return nil, err
		}
		return s.repo.GetByID(tenantID, id)

	default:
		return nil, fmt.Errorf("%w: unknown action %q, expected confirm or reject", ErrValidation, action)
	}
}

func (s *orderService) SubmitPaymentProof(tenantID, id, proofURL string) (*model.Order, error) {
	if proofURL == "" {
		return nil, fmt.Errorf("%w: proof url is required", ErrValidation)
	}
	if _, err := s.repo.GetByID(tenantID, id); err != nil {
		return nil, err
	}

	// pending → uploaded 条件更新；rejected 后重新提交也允许
	err := s.repo.UpdatePaymentStatus(tenantID, id, model.PaymentPending, model.PaymentUploaded, map[string]interface{}{
		"payment_proof_url": proofURL,
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		err = s.repo.UpdatePaymentStatus(tenantID, id, model.PaymentRejected, model.PaymentUploaded, map[string]interface{}{
			"payment_proof_url": proofURL,
		})
	}
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(tenantID, id)
}

func (s *orderService) MarkPaid(tenantID, id string) error {
	order, err := s.repo.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	// 已越过 PENDING 说明本次确认早已应用过（webhook 重放），直接空操作
	if order.Status != model.StatusPending {
		return nil
	}

	_, err = s.transition(order, model.StatusConfirmed, map[string]interface{}{
		"payment_status": model.PaymentConfirmed,
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		// 并发写手先完成了同一流转，视为已应用
		return nil
	}
	return err
}

func (s *orderService) MarkRefunded(tenantID, id, reason string) error {
	order, err := s.repo.GetByID(tenantID, id)
	if err != nil {
		return err
	}
	if order.Status == model.StatusRefunded {
		return nil
	}

	extra := map[string]interface{}{}
	if reason != "" {
		extra["refund_reason"] = reason
	}
	_, err = s.transition(order, model.StatusRefunded, extra)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil
	}
	return err
}

func (s *orderService) MarkDisputed(tenantID, id string) error {
	return s.repo.UpdateFields(tenantID, id, map[string]interface{}{
		"disputed_at": gorm.Expr("COALESCE(disputed_at, ?)", time.Now()),
	})
}

func stampMilestone(order *model.Order, status string, at time.Time) {
	set := func(p **time.Time) {
		if *p == nil {
			t := at
			*p = &t
		}
	}
	switch status {
	case model.StatusConfirmed:
		set(&order.ConfirmedAt)
		set(&order.PaidAt)
	case model.StatusShipped:
		set(&order.ShippedAt)
	case model.StatusDelivered:
		set(&order.DeliveredAt)
	case model.StatusCompleted:
		set(&order.CompletedAt)
	case model.StatusCancelled:
		set(&order.CancelledAt)
	case model.StatusRefunded:
		set(&order.RefundedAt)
	}
}

func applyExtraField(order *model.Order, column string, value interface{}) {
	str, _ := value.(string)
	switch column {
	case "payment_status":
		order.PaymentStatus = str
	case "note":
		order.Note = str
	case "tracking_number":
		order.TrackingNumber = str
	case "cancel_reason":
		order.CancelReason = str
	case "refund_reason":
		order.RefundReason = str
	}
}
