package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
	repoMocks "github.com/shestoi/coachcarter/internal/repository/mocks"
	"github.com/shestoi/coachcarter/internal/service"
	"github.com/shestoi/coachcarter/internal/service/mocks"
)

func TestSessionQuery_Verify(t *testing.T) {
	ctx := context.Background()

	bulk := repository.Booking{
		Reference:   "CC-BULK0001",
		SessionID:   "sess_bulk",
		PackageType: repository.PackageBulk,
		AmountMinor: 27500,
		Metadata:    repository.ExtendedMetadata{Hours: "10", ProvisionalLicence: "SECRET"},
		Status:      repository.StatusPendingScheduling,
	}

	tests := []struct {
		name           string
		sessionID      string
		providerStatus string
		providerErr    error
		booking        *repository.Booking
		repoErr        error
		expectedErr    error
		expected       service.SessionVerification
	}{
		{
			name:           "not paid never touches the store",
			sessionID:      "sess_open",
			providerStatus: "unpaid",
			expected:       service.SessionVerification{Paid: false},
		},
		{
			name:           "paid without booking is pending",
			sessionID:      "sess_new",
			providerStatus: "paid",
			repoErr:        repository.ErrNotFound,
			expected:       service.SessionVerification{Paid: true, Pending: true},
		},
		{
			name:           "paid with booking returns redacted summary",
			sessionID:      "sess_bulk",
			providerStatus: "paid",
			booking:        &bulk,
			expected: service.SessionVerification{
				Paid: true,
				Booking: &service.BookingSummary{
					Reference:   "CC-BULK0001",
					PackageName: "10 Hour Package",
					PackageType: repository.PackageBulk,
					Amount:      275,
				},
			},
		},
		{
			name:        "provider failure is an upstream error",
			sessionID:   "sess_err",
			providerErr: errors.New("stripe: 500"),
			expectedErr: service.ErrUpstreamQuery,
		},
		{
			name:           "store failure is surfaced",
			sessionID:      "sess_db",
			providerStatus: "paid",
			repoErr:        errors.New("connection reset"),
			expectedErr:    errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewPaymentProvider(t)
			repo := repoMocks.NewBookingRepository(t)
			q := service.NewSessionQuery(zap.NewNop(), provider, service.NoopPaymentStatusCache{}, repo, time.Hour)

			provider.On("CheckoutPaymentStatus", mock.Anything, tt.sessionID).
				Return(tt.providerStatus, tt.providerErr).Once()
			if tt.booking != nil || tt.repoErr != nil {
				var b repository.Booking
				if tt.booking != nil {
					b = *tt.booking
				}
				repo.On("FindBySessionID", mock.Anything, tt.sessionID).Return(b, tt.repoErr).Once()
			}

			result, err := q.Verify(ctx, tt.sessionID)
			if tt.expectedErr != nil {
				require.Error(t, err)
				if errors.Is(tt.expectedErr, service.ErrUpstreamQuery) {
					require.ErrorIs(t, err, service.ErrUpstreamQuery)
				} else {
					require.Contains(t, err.Error(), tt.expectedErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSessionQuery_EmptySessionID(t *testing.T) {
	q := service.NewSessionQuery(zap.NewNop(), mocks.NewPaymentProvider(t), service.NoopPaymentStatusCache{},
		repoMocks.NewBookingRepository(t), time.Hour)

	_, err := q.Verify(context.Background(), "  ")
	require.ErrorIs(t, err, service.ErrSessionIDRequired)
}

func TestSessionQuery_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("paid status is cached after provider query", func(t *testing.T) {
		provider := mocks.NewPaymentProvider(t)
		cache := mocks.NewPaymentStatusCache(t)
		repo := repoMocks.NewBookingRepository(t)
		q := service.NewSessionQuery(zap.NewNop(), provider, cache, repo, 30*time.Minute)

		cache.On("GetPaymentStatus", mock.Anything, "sess_1").Return("", false, nil).Once()
		provider.On("CheckoutPaymentStatus", mock.Anything, "sess_1").Return("paid", nil).Once()
		cache.On("SetPaymentStatus", mock.Anything, "sess_1", "paid", 30*time.Minute).Return(nil).Once()
		repo.On("FindBySessionID", mock.Anything, "sess_1").Return(repository.Booking{}, repository.ErrNotFound).Once()

		result, err := q.Verify(ctx, "sess_1")
		require.NoError(t, err)
		assert.True(t, result.Pending)
	})

	t.Run("cache hit skips provider", func(t *testing.T) {
		provider := mocks.NewPaymentProvider(t)
		cache := mocks.NewPaymentStatusCache(t)
		repo := repoMocks.NewBookingRepository(t)
		q := service.NewSessionQuery(zap.NewNop(), provider, cache, repo, 30*time.Minute)

		cache.On("GetPaymentStatus", mock.Anything, "sess_1").Return("paid", true, nil).Once()
		repo.On("FindBySessionID", mock.Anything, "sess_1").Return(repository.Booking{}, repository.ErrNotFound).Once()

		_, err := q.Verify(ctx, "sess_1")
		require.NoError(t, err)
		provider.AssertNotCalled(t, "CheckoutPaymentStatus", mock.Anything, mock.Anything)
	})

	t.Run("unpaid status is not cached", func(t *testing.T) {
		provider := mocks.NewPaymentProvider(t)
		cache := mocks.NewPaymentStatusCache(t)
		q := service.NewSessionQuery(zap.NewNop(), provider, cache, repoMocks.NewBookingRepository(t), 30*time.Minute)

		cache.On("GetPaymentStatus", mock.Anything, "sess_1").Return("", false, errors.New("redis down")).Once()
		provider.On("CheckoutPaymentStatus", mock.Anything, "sess_1").Return("unpaid", nil).Once()

		result, err := q.Verify(ctx, "sess_1")
		require.NoError(t, err)
		assert.False(t, result.Paid)
		cache.AssertNotCalled(t, "SetPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
