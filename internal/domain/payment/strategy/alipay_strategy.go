package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/pkg/config"

	"github.com/smartwalle/alipay/v3"
)

type AlipayStrategy struct {
	client *alipay.Client
	config config.AlipayConfig
}

func NewAlipayStrategy() (*AlipayStrategy, error) {
	cfg := config.GlobalConfig.Alipay
	if cfg.AppID == "" {
		return nil, errors.New("alipay config missing")
	}

	client, err := alipay.New(cfg.AppID, cfg.PrivateKey, cfg.IsProduction)
	if err != nil {
		return nil, err
	}

	// 加载支付宝公钥 (用于验证签名)
	if err = client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, err
	}

	return &AlipayStrategy{
		client: client,
		config: cfg,
	}, nil
}

func (s *AlipayStrategy) Provider() string {
	return provider.Alipay
}

// Pay 网页支付，返回收银台跳转 URL
// 支付宝没有独立会话 ID，靠商户单号 (OutTradeNo) 关联回调
func (s *AlipayStrategy) Pay(orderNo string, amount int64, currency, subject string) (string, string, error) {
	p := alipay.TradePagePay{}
	p.NotifyURL = s.config.NotifyURL
	p.ReturnURL = s.config.ReturnURL
	p.Subject = subject
	p.OutTradeNo = orderNo
	p.TotalAmount = fmt.Sprintf("%.2f", float64(amount)/100.0)
	p.ProductCode = "FAST_INSTANT_TRADE_PAY"

	payURL, err := s.client.TradePagePay(p)
	if err != nil {
		return "", "", err
	}
	return payURL.String(), orderNo, nil
}

// VerifyNotify 验签并解析支付宝异步通知 (form 编码)
func (s *AlipayStrategy) VerifyNotify(req *http.Request, body []byte) (*Event, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed alipay notification body", ErrInvalidSignature)
	}

	noti, err := s.client.DecodeNotification(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		Provider:          provider.Alipay,
		Type:              string(noti.TradeStatus),
		EventID:           noti.NotifyId,
		CheckoutSessionID: noti.OutTradeNo, // 会话即商户单号
		PaymentIntentID:   noti.TradeNo,
		OrderNo:           noti.OutTradeNo,
	}

	out.Amount = parseAmountFen(noti.TotalAmount)

	switch noti.TradeStatus {
	case alipay.TradeStatusSuccess, alipay.TradeStatusFinished:
		out.Kind = EventSucceeded
	case alipay.TradeStatusClosed:
		// 未付款交易超时关闭或支付完成后全额退款
		if strings.TrimSpace(noti.RefundFee) != "" {
			out.Kind = EventRefunded
		} else {
			out.Kind = EventExpired
		}
	default:
		out.Kind = EventIgnored
	}

	if raw, err := json.Marshal(noti); err == nil {
		out.Raw = raw
	}
	return out, nil
}

// parseAmountFen 渠道回调里的金额是元的字符串，转成分
// 19.99 乘 100 后是 1998.999…，必须四舍五入而不是截断
func parseAmountFen(s string) int64 {
	amt, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(amt * 100))
}

var _ PaymentStrategy = (*AlipayStrategy)(nil)
