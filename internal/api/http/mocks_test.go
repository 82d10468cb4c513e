package httpapi

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
)

type webhookProcessorMock struct{ mock.Mock }

func (m *webhookProcessorMock) HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(service.WebhookResult), args.Error(1)
}

type sessionVerifierMock struct{ mock.Mock }

func (m *sessionVerifierMock) Verify(ctx context.Context, sessionID string) (service.SessionVerification, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(service.SessionVerification), args.Error(1)
}

type availabilitySubmitterMock struct{ mock.Mock }

func (m *availabilitySubmitterMock) Submit(ctx context.Context, sub service.AvailabilitySubmission) (service.AvailabilitySummary, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(service.AvailabilitySummary), args.Error(1)
}

type checkoutCreatorMock struct{ mock.Mock }

func (m *checkoutCreatorMock) Create(ctx context.Context, req service.CheckoutRequest) (service.CheckoutLink, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.CheckoutLink), args.Error(1)
}

type bookingAdminMock struct{ mock.Mock }

func (m *bookingAdminMock) ConfirmVerification(ctx context.Context, reference string) (repository.Booking, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(repository.Booking), args.Error(1)
}

func (m *bookingAdminMock) GetBooking(ctx context.Context, reference string) (repository.Booking, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(repository.Booking), args.Error(1)
}
