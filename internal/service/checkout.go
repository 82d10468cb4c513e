package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
)

// maxCheckoutQuantity верхняя граница количества в одной сессии
const maxCheckoutQuantity = 50

const checkoutSubmitMessage = "You will receive a confirmation email within 5 minutes with next steps."

// CheckoutRequest запрос сайта на создание checkout сессии
type CheckoutRequest struct {
	PriceID     string
	Quantity    int64
	PackageType string
	Hours       string
	SuccessURL  string
	CancelURL   string
}

// CheckoutOption вариант dropdown поля
type CheckoutOption struct {
	Label string
	Value string
}

// CheckoutField custom field формы checkout. Options != nil делает поле dropdown, иначе text.
type CheckoutField struct {
	Key      string
	Label    string
	Optional bool
	Options  []CheckoutOption
}

// CheckoutSpec то, что уходит провайдеру
type CheckoutSpec struct {
	PriceID      string
	Quantity     int64
	Metadata     map[string]string
	CustomFields []CheckoutField
	SuccessURL   string
	CancelURL    string
	// SubmitMessage текст под кнопкой оплаты
	SubmitMessage string
}

// CheckoutLink созданная сессия: клиента редиректят на URL
type CheckoutLink struct {
	SessionID string
	URL       string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=CheckoutProvider --dir=. --output=./mocks --outpkg=mocks

// CheckoutProvider создание checkout сессии у провайдера
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, spec CheckoutSpec) (CheckoutLink, error)
}

// passGuaranteeFields заявленные данные, которые staff проверяет вручную.
// Провайдер принимает не больше трёх custom fields, предпочтительный центр клиент пишет в форме доступности.
var passGuaranteeFields = []CheckoutField{
	{Key: FieldProvisionalLicence, Label: "Provisional licence number"},
	{
		Key:   FieldHasTestBooked,
		Label: "Do you have a test booked?",
		Options: []CheckoutOption{
			{Label: "Yes, I have a test date", Value: "has_test"},
			{Label: "No, book it for me", Value: "no_test"},
		},
	},
	{Key: FieldTestReference, Label: "DVSA test reference", Optional: true},
}

// CheckoutService создаёт checkout сессии для пакетов
type CheckoutService struct {
	logger   *zap.Logger
	provider CheckoutProvider
	siteURL  string
}

// NewCheckoutService создаёт CheckoutService. siteURL используется для дефолтных success/cancel URL.
func NewCheckoutService(logger *zap.Logger, provider CheckoutProvider, siteURL string) *CheckoutService {
	return &CheckoutService{
		logger:   logger,
		provider: provider,
		siteURL:  strings.TrimRight(siteURL, "/"),
	}
}

// Create проверяет запрос и создаёт сессию. package_type и hours попадают в metadata,
// откуда их потом читает Processor.
func (s *CheckoutService) Create(ctx context.Context, req CheckoutRequest) (CheckoutLink, error) {
	if strings.TrimSpace(req.PriceID) == "" {
		return CheckoutLink{}, fmt.Errorf("%w: price_id is required", ErrInvalidCheckout)
	}

	packageType := repository.ParsePackageType(req.PackageType)
	switch packageType {
	case repository.PackagePAYG, repository.PackageBulk, repository.PackagePassGuarantee:
	default:
		return CheckoutLink{}, fmt.Errorf("%w: unsupported package_type %q", ErrInvalidCheckout, req.PackageType)
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > maxCheckoutQuantity {
		return CheckoutLink{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidCheckout, maxCheckoutQuantity)
	}

	spec := CheckoutSpec{
		PriceID:       req.PriceID,
		Quantity:      quantity,
		Metadata:      map[string]string{"package_type": string(packageType)},
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		SubmitMessage: checkoutSubmitMessage,
	}
	if req.Hours != "" {
		spec.Metadata["hours"] = req.Hours
	}
	if spec.SuccessURL == "" {
		spec.SuccessURL = s.siteURL + "/success.html?session_id={CHECKOUT_SESSION_ID}"
	}
	if spec.CancelURL == "" {
		spec.CancelURL = s.siteURL + "/#packages"
	}
	if packageType.RequiresVerification() {
		spec.CustomFields = passGuaranteeFields
	}

	link, err := s.provider.CreateCheckoutSession(ctx, spec)
	if err != nil {
		s.logger.Error("failed to create checkout session",
			zap.Error(err),
			zap.String("package_type", string(packageType)),
		)
		return CheckoutLink{}, fmt.Errorf("%w: %w", ErrUpstreamQuery, err)
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", link.SessionID),
		zap.String("package_type", string(packageType)),
	)
	return link, nil
}
