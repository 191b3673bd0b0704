package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/pkg/config"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

type WechatStrategy struct {
	client  *core.Client
	config  config.WechatPayConfig
	handler *notify.Handler
}

func NewWechatStrategy() (*WechatStrategy, error) {
	cfg := config.GlobalConfig.Wechat
	if cfg.MchID == "" {
		return nil, errors.New("wechat pay config missing")
	}

	// 1. 加载商户私钥
	mchPrivateKey, err := utils.LoadPrivateKey(cfg.MchPrivateKey)
	if err != nil {
		return nil, err
	}

	// 2. 初始化 Client
	ctx := context.Background()
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(cfg.MchID, cfg.MchCertificateSerial, mchPrivateKey, cfg.APIv3Key),
	}

	client, err := core.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// 3. 初始化证书管理器与 Notify Handler (验签)
	certVisitor := downloader.MgrInstance().GetCertificateVisitor(cfg.MchID)
	handler := notify.NewNotifyHandler(cfg.APIv3Key, verifiers.NewSHA256WithRSAVerifier(certVisitor))

	return &WechatStrategy{
		client:  client,
		config:  cfg,
		handler: handler,
	}, nil
}

func (s *WechatStrategy) Provider() string {
	return provider.Wechat
}

// Pay Native 下单，返回二维码链接；会话 ID 用商户单号
func (s *WechatStrategy) Pay(orderNo string, amount int64, currency, subject string) (string, string, error) {
	req := native.PrepayRequest{
		Appid:       core.String(s.config.AppID),
		Mchid:       core.String(s.config.MchID),
		Description: core.String(subject),
		OutTradeNo:  core.String(orderNo),
		NotifyUrl:   core.String(s.config.NotifyURL),
		Amount: &native.Amount{
			Total: core.Int64(amount),
		},
	}

	svc := native.NativeApiService{Client: s.client}
	resp, _, err := svc.Prepay(context.Background(), req)
	if err != nil {
		return "", "", err
	}
	codeURL, err := prepayCodeURL(resp)
	if err != nil {
		return "", "", err
	}
	return codeURL, orderNo, nil
}

// prepayCodeURL SDK 的响应字段都是指针，畸形响应缺 code_url 时不能直接解引用
func prepayCodeURL(resp *native.PrepayResponse) (string, error) {
	if resp == nil || resp.CodeUrl == nil {
		return "", errors.New("wechat prepay response missing code_url")
	}
	return *resp.CodeUrl, nil
}

// VerifyNotify 微信回调验签走 SDK 的 NotifyHandler，需要完整的 *http.Request
// 原始 body 已被读过，这里复位后交给 SDK
func (s *WechatStrategy) VerifyNotify(req *http.Request, body []byte) (*Event, error) {
	req.Body = io.NopCloser(bytes.NewReader(body))

	transaction := new(payments.Transaction)
	notifyReq, err := s.handler.ParseNotifyRequest(context.Background(), req, transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		Provider: provider.Wechat,
		EventID:  notifyReq.ID,
		Type:     notifyReq.EventType,
		Raw:      body,
	}
	if transaction.OutTradeNo != nil {
		out.OrderNo = *transaction.OutTradeNo
		out.CheckoutSessionID = *transaction.OutTradeNo
	}
	if transaction.TransactionId != nil {
		out.PaymentIntentID = *transaction.TransactionId
	}
	if transaction.Amount != nil && transaction.Amount.Total != nil {
		out.Amount = *transaction.Amount.Total
	}

	state := ""
	if transaction.TradeState != nil {
		state = *transaction.TradeState
	}
	switch state {
	case "SUCCESS":
		out.Kind = EventSucceeded
	case "CLOSED":
		out.Kind = EventExpired
	case "PAYERROR":
		out.Kind = EventFailed
	case "REFUND":
		out.Kind = EventRefunded
	default:
		out.Kind = EventIgnored
	}

	return out, nil
}

var _ PaymentStrategy = (*WechatStrategy)(nil)
