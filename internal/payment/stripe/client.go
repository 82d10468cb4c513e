package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/service"
)

// Client обёртка над Checkout Sessions API
type Client struct {
	logger   *zap.Logger
	sessions session.Client
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	retries    int64
}

// ClientOption настраивает Client
type ClientOption func(*clientOptions)

// WithBaseURL подменяет адрес API (тесты, stripe-mock)
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithHTTPClient задаёт http клиент
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithMaxNetworkRetries сколько раз SDK повторяет запрос при сетевой ошибке
func WithMaxNetworkRetries(n int64) ClientOption {
	return func(o *clientOptions) { o.retries = n }
}

// NewClient создаёт клиент со своим backend-ом, глобальное состояние SDK не трогается
func NewClient(secretKey string, logger *zap.Logger, opts ...ClientOption) *Client {
	o := clientOptions{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    2,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &stripeapi.BackendConfig{
		HTTPClient:        o.httpClient,
		MaxNetworkRetries: stripeapi.Int64(o.retries),
		// SDK пишет в свой логгер, ошибки логируем сами через zap
		LeveledLogger: &stripeapi.LeveledLogger{Level: stripeapi.LevelNull},
	}
	if o.baseURL != "" {
		cfg.URL = stripeapi.String(o.baseURL)
	}

	return &Client{
		logger: logger,
		sessions: session.Client{
			B:   stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg),
			Key: secretKey,
		},
	}
}

// CheckoutPaymentStatus возвращает payment_status сессии ("paid", "unpaid", "no_payment_required")
func (c *Client) CheckoutPaymentStatus(ctx context.Context, sessionID string) (string, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.sessions.Get(sessionID, params)
	if err != nil {
		c.logAPIError("failed to retrieve checkout session", err, zap.String("session_id", sessionID))
		return "", fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return string(sess.PaymentStatus), nil
}

// CreateCheckoutSession создаёт сессию в режиме разовой оплаты
func (c *Client) CreateCheckoutSession(ctx context.Context, spec service.CheckoutSpec) (service.CheckoutLink, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(spec.PriceID),
				Quantity: stripeapi.Int64(spec.Quantity),
			},
		},
		SuccessURL:               stripeapi.String(spec.SuccessURL),
		CancelURL:                stripeapi.String(spec.CancelURL),
		Metadata:                 spec.Metadata,
		BillingAddressCollection: stripeapi.String(string(stripeapi.CheckoutSessionBillingAddressCollectionRequired)),
		PhoneNumberCollection: &stripeapi.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripeapi.Bool(true),
		},
		CustomFields: lo.Map(spec.CustomFields, func(f service.CheckoutField, _ int) *stripeapi.CheckoutSessionCustomFieldParams {
			return customFieldParams(f)
		}),
	}
	if spec.SubmitMessage != "" {
		params.CustomText = &stripeapi.CheckoutSessionCustomTextParams{
			Submit: &stripeapi.CheckoutSessionCustomTextSubmitParams{
				Message: stripeapi.String(spec.SubmitMessage),
			},
		}
	}
	params.Context = ctx

	sess, err := c.sessions.New(params)
	if err != nil {
		c.logAPIError("failed to create checkout session", err, zap.String("price_id", spec.PriceID))
		return service.CheckoutLink{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return service.CheckoutLink{SessionID: sess.ID, URL: sess.URL}, nil
}

func customFieldParams(f service.CheckoutField) *stripeapi.CheckoutSessionCustomFieldParams {
	p := &stripeapi.CheckoutSessionCustomFieldParams{
		Key: stripeapi.String(f.Key),
		Label: &stripeapi.CheckoutSessionCustomFieldLabelParams{
			Custom: stripeapi.String(f.Label),
			Type:   stripeapi.String(string(stripeapi.CheckoutSessionCustomFieldLabelTypeCustom)),
		},
		Optional: stripeapi.Bool(f.Optional),
	}

	if f.Options == nil {
		p.Type = stripeapi.String(string(stripeapi.CheckoutSessionCustomFieldTypeText))
		return p
	}

	p.Type = stripeapi.String(string(stripeapi.CheckoutSessionCustomFieldTypeDropdown))
	p.Dropdown = &stripeapi.CheckoutSessionCustomFieldDropdownParams{
		Options: lo.Map(f.Options, func(o service.CheckoutOption, _ int) *stripeapi.CheckoutSessionCustomFieldDropdownOptionParams {
			return &stripeapi.CheckoutSessionCustomFieldDropdownOptionParams{
				Label: stripeapi.String(o.Label),
				Value: stripeapi.String(o.Value),
			}
		}),
	}
	return p
}

func (c *Client) logAPIError(msg string, err error, fields ...zap.Field) {
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) {
		fields = append(fields,
			zap.Int("status", apiErr.HTTPStatusCode),
			zap.String("code", string(apiErr.Code)),
			zap.String("request_id", apiErr.RequestID),
		)
	}
	c.logger.Error(msg, append(fields, zap.Error(err))...)
}
