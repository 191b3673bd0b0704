package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"shopcore/internal/domain/payment/provider"
	"shopcore/internal/pkg/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeStrategy struct {
	api    *client.API
	config config.StripeConfig
}

func NewStripeStrategy() (*StripeStrategy, error) {
	cfg := config.GlobalConfig.Stripe
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe config missing")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeStrategy{
		api:    api,
		config: cfg,
	}, nil
}

func (s *StripeStrategy) Provider() string {
	return provider.Stripe
}

// Pay 创建 Checkout Session，返回收银台跳转 URL 与会话 ID
func (s *StripeStrategy) Pay(orderNo string, amount int64, currency, subject string) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderNo),
		SuccessURL:        stripe.String(s.config.SuccessURL),
		CancelURL:         stripe.String(s.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(subject),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// VerifyNotify 用 SDK 的常数时间验签解析 Stripe 事件
func (s *StripeStrategy) VerifyNotify(req *http.Request, body []byte) (*Event, error) {
	sig := req.Header.Get("Stripe-Signature")
	if sig == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEvent(body, sig, s.config.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		Provider: provider.Stripe,
		Type:     string(event.Type),
		EventID:  event.ID,
		Raw:      event.Data.Raw,
	}

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, err
		}
		out.Kind = EventSucceeded
		out.CheckoutSessionID = cs.ID
		out.OrderNo = cs.ClientReferenceID
		out.Amount = cs.AmountTotal
		out.Currency = string(cs.Currency)
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}

	case "checkout.session.expired":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, err
		}
		out.Kind = EventExpired
		out.CheckoutSessionID = cs.ID
		out.OrderNo = cs.ClientReferenceID

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, err
		}
		out.Kind = EventFailed
		out.PaymentIntentID = pi.ID

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, err
		}
		out.Kind = EventRefunded
		out.ChargeID = ch.ID
		out.Amount = ch.AmountRefunded
		out.Currency = string(ch.Currency)
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}

	case "charge.dispute.created":
		var dp stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dp); err != nil {
			return nil, err
		}
		out.Kind = EventDisputed
		if dp.Charge != nil {
			out.ChargeID = dp.Charge.ID
		}
		if dp.PaymentIntent != nil {
			out.PaymentIntentID = dp.PaymentIntent.ID
		}

	default:
		// 未订阅语义的事件类型有意忽略，不算错误
		out.Kind = EventIgnored
	}

	return out, nil
}

var _ PaymentStrategy = (*StripeStrategy)(nil)
