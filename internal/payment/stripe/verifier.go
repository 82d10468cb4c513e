package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/shestoi/coachcarter/internal/service"
)

// errMissingSignature нет заголовка Stripe-Signature
var errMissingSignature = errors.New("missing signature header")

// Verifier проверяет подпись webhook-а общим секретом (HMAC-SHA256, допуск по времени 5 минут)
type Verifier struct {
	secret string
}

// NewVerifier создаёт Verifier
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify проверяет подпись сырого тела и разбирает событие.
// Любая ошибка возвращается как *service.AuthenticationError.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (service.ProviderEvent, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return service.ProviderEvent{}, &service.AuthenticationError{Err: errMissingSignature}
	}

	// версия API аккаунта может отличаться от версии SDK, данные читаем сами
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return service.ProviderEvent{}, &service.AuthenticationError{Err: err}
	}

	result := service.ProviderEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Type != stripeapi.EventTypeCheckoutSessionCompleted {
		return result, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return service.ProviderEvent{}, &service.AuthenticationError{Err: errors.New("event has no data object")}
	}

	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return service.ProviderEvent{}, &service.AuthenticationError{Err: fmt.Errorf("failed to decode checkout session: %w", err)}
	}

	result.Checkout = toCheckoutCompleted(&sess)
	return result, nil
}

func toCheckoutCompleted(sess *stripeapi.CheckoutSession) *service.CheckoutCompleted {
	c := &service.CheckoutCompleted{
		SessionID:     sess.ID,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
		CustomFields:  customFieldValues(sess.CustomFields),
	}
	if sess.CustomerDetails != nil {
		c.CustomerEmail = sess.CustomerDetails.Email
		c.CustomerName = sess.CustomerDetails.Name
	}
	// customer_details пуст у сессий, созданных с customer_email
	if c.CustomerEmail == "" {
		c.CustomerEmail = sess.CustomerEmail
	}
	return c
}

// customFieldValues key -> value заполненных custom fields (text или dropdown)
func customFieldValues(fields []*stripeapi.CheckoutSessionCustomField) map[string]string {
	filled := lo.Filter(fields, func(f *stripeapi.CheckoutSessionCustomField, _ int) bool {
		return f != nil && fieldValue(f) != ""
	})
	return lo.SliceToMap(filled, func(f *stripeapi.CheckoutSessionCustomField) (string, string) {
		return f.Key, fieldValue(f)
	})
}

func fieldValue(f *stripeapi.CheckoutSessionCustomField) string {
	if f.Text != nil && f.Text.Value != "" {
		return f.Text.Value
	}
	if f.Dropdown != nil {
		return f.Dropdown.Value
	}
	return ""
}
