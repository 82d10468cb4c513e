package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/repository/memory"
	repoMocks "github.com/shestoi/coachcarter/internal/repository/mocks"
	"github.com/shestoi/coachcarter/internal/service"
	"github.com/shestoi/coachcarter/internal/service/mocks"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func checkout(session, packageType string) service.CheckoutCompleted {
	return service.CheckoutCompleted{
		SessionID:     session,
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		AmountTotal:   3000,
		Currency:      "GBP",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"package_type": packageType},
	}
}

// sequentialReferences детерминированные reference: CC-TEST0001, CC-TEST0002...
func sequentialReferences() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("CC-TEST%04d", atomic.AddInt64(&n, 1))
	}
}

func newProcessor(repo repository.BookingRepository, scheduler service.ActionScheduler, verifier service.EventVerifier) *service.Processor {
	return service.NewProcessor(zap.NewNop(), verifier, repo, scheduler,
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithReferenceGenerator(sequentialReferences()),
	)
}

func TestProcessor_PAYGCheckout(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil).Once()
	scheduler.On("Wake").Once()

	result, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "payg"))
	require.NoError(t, err)

	assert.Equal(t, service.OutcomeCreated, result.Outcome)
	assert.Equal(t, "CC-TEST0001", result.Booking.Reference)
	assert.Equal(t, repository.StatusPendingScheduling, result.Booking.Status)
	assert.Equal(t, repository.PackagePAYG, result.Booking.PackageType)
	assert.Equal(t, 30.0, result.Booking.AmountPaid())
	assert.Equal(t, "gbp", result.Booking.Currency)
	assert.True(t, fixedNow.Equal(result.Booking.CreatedAt))

	stored, err := repo.FindBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, result.Booking.Reference, stored.Reference)

	// запрос доступности для payg не планируется
	scheduler.AssertNotCalled(t, "ScheduleOnce", mock.Anything, mock.Anything, repository.ActionAvailabilityRequest, mock.Anything)
}

func TestProcessor_RedeliveryIsNoOp(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil).Once()
	scheduler.On("Wake").Once()

	first, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "payg"))
	require.NoError(t, err)

	// при повторе действие уже существует: ScheduleOnce отвечает false, Wake не вызывается
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(false, nil).Once()

	second, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "payg"))
	require.NoError(t, err)

	assert.Equal(t, service.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.Booking.Reference, second.Booking.Reference)
	scheduler.AssertNumberOfCalls(t, "Wake", 1)

	_, err = repo.FindByReference(ctx, "CC-TEST0002")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProcessor_PassGuaranteeSchedulesFollowUp(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	c := checkout("sess_pg", "pass_guarantee")
	c.AmountTotal = 120000
	c.CustomFields = map[string]string{
		service.FieldProvisionalLicence: "DOE99901015J99AB",
		service.FieldHasTestBooked:      "has_test",
		service.FieldTestReference:      "12345678",
	}

	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil).Once()
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionAvailabilityRequest, 5*time.Minute).
		Return(true, nil).Once()
	scheduler.On("Wake").Once()

	result, err := p.HandleCheckoutCompleted(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, repository.StatusPendingVerification, result.Booking.Status)
	assert.Equal(t, "DOE99901015J99AB", result.Booking.Metadata.ProvisionalLicence)
	assert.Equal(t, "has_test", result.Booking.Metadata.TestStatus)
	assert.Equal(t, "12345678", result.Booking.Metadata.TestReference)
	assert.Empty(t, result.Booking.Metadata.TestCentre)
}

func TestProcessor_UnknownPackageType(t *testing.T) {
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	scheduler.On("ScheduleOnce", mock.Anything, mock.Anything, repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil)
	scheduler.On("Wake")

	c := checkout("sess_x", "")
	c.Metadata = nil

	result, err := p.HandleCheckoutCompleted(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, repository.PackageUnknown, result.Booking.PackageType)
	assert.Equal(t, repository.StatusPendingScheduling, result.Booking.Status)
}

func TestProcessor_ReferenceCollision(t *testing.T) {
	ctx := context.Background()

	t.Run("regenerates reference", func(t *testing.T) {
		repo := repoMocks.NewBookingRepository(t)
		scheduler := mocks.NewActionScheduler(t)
		p := newProcessor(repo, scheduler, nil)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(b repository.Booking) bool { return b.Reference == "CC-TEST0001" })).
			Return(repository.Booking{}, &repository.ConflictError{Field: repository.ConflictReference, Value: "CC-TEST0001"}).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(b repository.Booking) bool { return b.Reference == "CC-TEST0002" })).
			Return(func(_ context.Context, b repository.Booking) (repository.Booking, error) { return b, nil }).Once()
		scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0002", repository.ActionBookingNotifications, time.Duration(0)).
			Return(true, nil).Once()
		scheduler.On("Wake").Once()

		result, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "bulk"))
		require.NoError(t, err)
		assert.Equal(t, "CC-TEST0002", result.Booking.Reference)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		repo := repoMocks.NewBookingRepository(t)
		scheduler := mocks.NewActionScheduler(t)
		p := newProcessor(repo, scheduler, nil)

		repo.On("Create", mock.Anything, mock.Anything).
			Return(repository.Booking{}, &repository.ConflictError{Field: repository.ConflictReference})

		_, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "bulk"))
		require.ErrorIs(t, err, service.ErrReferenceExhausted)
		repo.AssertNumberOfCalls(t, "Create", 5)
	})
}

func TestProcessor_StoreFailureIsSurfaced(t *testing.T) {
	repo := repoMocks.NewBookingRepository(t)
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	dbErr := errors.New("connection refused")
	repo.On("Create", mock.Anything, mock.Anything).Return(repository.Booking{}, dbErr).Once()

	_, err := p.HandleCheckoutCompleted(context.Background(), checkout("sess_1", "payg"))
	require.ErrorIs(t, err, dbErr)
	scheduler.AssertNotCalled(t, "ScheduleOnce", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_RedeliveryRepairsMissingSchedule(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	// первая попытка: бронирование сохранено, действие нет
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(false, errors.New("db timeout")).Once()

	_, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "payg"))
	require.Error(t, err)

	_, err = repo.FindBySessionID(ctx, "sess_1")
	require.NoError(t, err)

	// провайдер доставил повторно: действие досоздаётся ровно один раз
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil).Once()
	scheduler.On("Wake").Once()

	result, err := p.HandleCheckoutCompleted(ctx, checkout("sess_1", "payg"))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDuplicate, result.Outcome)
}

func TestProcessor_RepairedFollowUpKeepsOriginalDueTime(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)

	now := fixedNow
	p := service.NewProcessor(zap.NewNop(), nil, repo, scheduler,
		service.WithClock(func() time.Time { return now }),
		service.WithReferenceGenerator(sequentialReferences()),
	)

	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(true, nil).Once()
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionAvailabilityRequest, 5*time.Minute).
		Return(false, errors.New("db timeout")).Once()
	scheduler.On("Wake").Maybe()

	_, err := p.HandleCheckoutCompleted(ctx, checkout("sess_pg", "pass_guarantee"))
	require.Error(t, err)

	// повтор через 2 минуты: осталось 3 минуты до исходного срока
	now = fixedNow.Add(2 * time.Minute)
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionBookingNotifications, time.Duration(0)).
		Return(false, nil).Once()
	scheduler.On("ScheduleOnce", mock.Anything, "CC-TEST0001", repository.ActionAvailabilityRequest, 3*time.Minute).
		Return(true, nil).Once()

	_, err = p.HandleCheckoutCompleted(ctx, checkout("sess_pg", "pass_guarantee"))
	require.NoError(t, err)
}

func TestProcessor_ConcurrentDeliveriesCreateOneBooking(t *testing.T) {
	repo := memory.NewMemoryRepository()
	scheduler := newRecordingScheduler()
	p := newProcessor(repo, scheduler, nil)

	const deliveries = 20
	var (
		wg       sync.WaitGroup
		created  int32
		failures int32
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.HandleCheckoutCompleted(context.Background(), checkout("sess_race", "payg"))
			if err != nil {
				atomic.AddInt32(&failures, 1)
				return
			}
			if result.Outcome == service.OutcomeCreated {
				atomic.AddInt32(&created, 1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures)
	assert.Equal(t, int32(1), created)
	assert.Equal(t, 1, scheduler.count(repository.ActionBookingNotifications))
}

func TestProcessor_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("bad signature creates nothing", func(t *testing.T) {
		repo := repoMocks.NewBookingRepository(t)
		verifier := mocks.NewEventVerifier(t)
		p := newProcessor(repo, mocks.NewActionScheduler(t), verifier)

		verifier.On("Verify", []byte(`{}`), "t=1,v1=bad").
			Return(service.ProviderEvent{}, errors.New("signature mismatch")).Once()

		_, err := p.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=bad")
		require.ErrorIs(t, err, service.ErrAuthentication)

		var authErr *service.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		repo := repoMocks.NewBookingRepository(t)
		verifier := mocks.NewEventVerifier(t)
		p := newProcessor(repo, mocks.NewActionScheduler(t), verifier)

		verifier.On("Verify", mock.Anything, mock.Anything).
			Return(service.ProviderEvent{ID: "evt_1", Type: "payment_intent.created"}, nil).Once()

		result, err := p.HandleWebhook(ctx, []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeIgnored, result.Outcome)
		assert.Equal(t, "evt_1", result.EventID)
	})

	t.Run("checkout completed creates booking", func(t *testing.T) {
		repo := memory.NewMemoryRepository()
		scheduler := mocks.NewActionScheduler(t)
		verifier := mocks.NewEventVerifier(t)
		p := newProcessor(repo, scheduler, verifier)

		c := checkout("sess_1", "payg")
		verifier.On("Verify", mock.Anything, mock.Anything).
			Return(service.ProviderEvent{ID: "evt_2", Type: service.EventTypeCheckoutSessionCompleted, Checkout: &c}, nil).Once()
		scheduler.On("ScheduleOnce", mock.Anything, mock.Anything, repository.ActionBookingNotifications, time.Duration(0)).
			Return(true, nil).Once()
		scheduler.On("Wake").Once()

		result, err := p.HandleWebhook(ctx, []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeCreated, result.Outcome)
		assert.Equal(t, "evt_2", result.EventID)
	})

	t.Run("event without session id is invalid", func(t *testing.T) {
		verifier := mocks.NewEventVerifier(t)
		p := newProcessor(repoMocks.NewBookingRepository(t), mocks.NewActionScheduler(t), verifier)

		c := checkout("", "payg")
		verifier.On("Verify", mock.Anything, mock.Anything).
			Return(service.ProviderEvent{Type: service.EventTypeCheckoutSessionCompleted, Checkout: &c}, nil).Once()

		_, err := p.HandleWebhook(ctx, []byte(`{}`), "sig")
		require.ErrorIs(t, err, service.ErrInvalidEvent)
	})
}

func TestProcessor_ConfirmVerification(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	scheduler := mocks.NewActionScheduler(t)
	p := newProcessor(repo, scheduler, nil)

	scheduler.On("ScheduleOnce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	scheduler.On("Wake")

	pg, err := p.HandleCheckoutCompleted(ctx, checkout("sess_pg", "pass_guarantee"))
	require.NoError(t, err)
	payg, err := p.HandleCheckoutCompleted(ctx, checkout("sess_payg", "payg"))
	require.NoError(t, err)

	updated, err := p.ConfirmVerification(ctx, pg.Booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPendingScheduling, updated.Status)

	// второй раз статус уже не совпадает с ожидаемым
	_, err = p.ConfirmVerification(ctx, pg.Booking.Reference)
	require.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = p.ConfirmVerification(ctx, payg.Booking.Reference)
	require.ErrorIs(t, err, repository.ErrInvalidTransition)
	stored, err := p.GetBooking(ctx, payg.Booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPendingScheduling, stored.Status)

	_, err = p.ConfirmVerification(ctx, "CC-MISSING")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// recordingScheduler потокобезопасный ScheduleOnce с уникальностью (reference, kind), как у хранилища
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[string]repository.ActionKind
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[string]repository.ActionKind)}
}

func (s *recordingScheduler) ScheduleOnce(_ context.Context, ref string, kind repository.ActionKind, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ref + "|" + string(kind)
	if _, ok := s.scheduled[key]; ok {
		return false, nil
	}
	s.scheduled[key] = kind
	return true, nil
}

func (s *recordingScheduler) Wake() {}

func (s *recordingScheduler) count(kind repository.ActionKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.scheduled {
		if k == kind {
			n++
		}
	}
	return n
}
