package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	platformhealth "github.com/shestoi/coachcarter/platform/health/http"

	"github.com/shestoi/coachcarter/internal/api/http/middleware"
	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
)

const (
	testOrigin   = "https://coachcarter.example"
	testStaffKey = "staff-secret"
)

type testServer struct {
	webhooks     *webhookProcessorMock
	sessions     *sessionVerifierMock
	availability *availabilitySubmitterMock
	checkout     *checkoutCreatorMock
	bookings     *bookingAdminMock
	router       http.Handler
}

func newTestServer(t *testing.T, staffKeyHash string) *testServer {
	t.Helper()
	ts := &testServer{
		webhooks:     &webhookProcessorMock{},
		sessions:     &sessionVerifierMock{},
		availability: &availabilitySubmitterMock{},
		checkout:     &checkoutCreatorMock{},
		bookings:     &bookingAdminMock{},
	}
	t.Cleanup(func() {
		ts.webhooks.AssertExpectations(t)
		ts.sessions.AssertExpectations(t)
		ts.availability.AssertExpectations(t)
		ts.checkout.AssertExpectations(t)
		ts.bookings.AssertExpectations(t)
	})

	h := NewHandler(zap.NewNop(), ts.webhooks, ts.sessions, ts.availability, ts.checkout, ts.bookings)
	ts.router = NewRouter(h, platformhealth.Handler(time.Second, nil), RouterConfig{
		AllowedOrigin: testOrigin,
		StaffKeyHash:  staffKeyHash,
	}, zap.NewNop())
	return ts
}

func staffKeyHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testStaffKey), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestPostWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	tests := []struct {
		name       string
		result     service.WebhookResult
		err        error
		wantStatus int
	}{
		{
			name:       "created",
			result:     service.WebhookResult{EventID: "evt_1", Outcome: service.OutcomeCreated},
			wantStatus: http.StatusOK,
		},
		{
			name:       "duplicate is acknowledged",
			result:     service.WebhookResult{EventID: "evt_1", Outcome: service.OutcomeDuplicate},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad signature",
			err:        &service.AuthenticationError{Err: errors.New("signature mismatch")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "event without email",
			err:        fmt.Errorf("%w: customer email missing", service.ErrInvalidEvent),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure asks for redelivery",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "")
			ts.webhooks.On("HandleWebhook", mock.Anything, payload, "t=1,v1=abc").Return(tt.result, tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(payload))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			rec := ts.do(req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"received":true}`, rec.Body.String())
			}
		})
	}

	t.Run("oversized payload", func(t *testing.T) {
		ts := newTestServer(t, "")
		big := bytes.Repeat([]byte("a"), maxWebhookBody+1)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(big)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		ts.webhooks.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetVerifySession(t *testing.T) {
	tests := []struct {
		name       string
		sessionID  string
		result     service.SessionVerification
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing session id",
			err:        service.ErrSessionIDRequired,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Session ID required"}`,
		},
		{
			name:       "not paid",
			sessionID:  "cs_open",
			result:     service.SessionVerification{},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":false,"error":"Payment not completed"}`,
		},
		{
			name:       "paid but booking not created yet",
			sessionID:  "cs_paid",
			result:     service.SessionVerification{Paid: true, Pending: true},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"pending":true,"message":"Payment confirmed, booking being processed"}`,
		},
		{
			name:      "booking found",
			sessionID: "cs_done",
			result: service.SessionVerification{
				Paid: true,
				Booking: &service.BookingSummary{
					Reference:   "CC-ABC123",
					PackageName: "Pass Guarantee Programme",
					PackageType: repository.PackagePassGuarantee,
					Amount:      1200,
				},
			},
			wantStatus: http.StatusOK,
			wantBody: `{"success":true,"booking_ref":"CC-ABC123","package_name":"Pass Guarantee Programme",` +
				`"package_type":"pass_guarantee","amount":1200}`,
		},
		{
			name:      "free booking keeps zero amount",
			sessionID: "cs_free",
			result: service.SessionVerification{
				Paid: true,
				Booking: &service.BookingSummary{
					Reference:   "CC-FREE0001",
					PackageName: "Pay As You Go",
					PackageType: repository.PackagePAYG,
					Amount:      0,
				},
			},
			wantStatus: http.StatusOK,
			wantBody: `{"success":true,"booking_ref":"CC-FREE0001","package_name":"Pay As You Go",` +
				`"package_type":"payg","amount":0}`,
		},
		{
			name:       "provider unavailable",
			sessionID:  "cs_err",
			err:        &service.UpstreamQueryError{SessionID: "cs_err", Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"success":false,"error":"Unable to verify payment"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "")
			ts.sessions.On("Verify", mock.Anything, tt.sessionID).Return(tt.result, tt.err).Once()

			rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/verify-session?session_id="+tt.sessionID, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestPostAvailability(t *testing.T) {
	validBody := `{
		"booking_reference": "CC-ABC123",
		"email": "jane@example.com",
		"availability": {"mon_morning": "available", "sat_morning": "preferred"},
		"frequency_preference": "2_per_week",
		"notes": "no Fridays"
	}`

	t.Run("accepted", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.availability.On("Submit", mock.Anything, service.AvailabilitySubmission{
			BookingReference:    "CC-ABC123",
			Email:               "jane@example.com",
			Slots:               map[string]string{"mon_morning": "available", "sat_morning": "preferred"},
			FrequencyPreference: "2_per_week",
			Notes:               "no Fridays",
		}).Return(service.AvailabilitySummary{BookingReference: "CC-ABC123", AvailableSlots: 1, PreferredSlots: 1}, nil).Once()

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/availability", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"booking_reference":"CC-ABC123","slots_selected":2}`, rec.Body.String())
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			body    string
			wantErr string
		}{
			{name: "broken json", body: `{`, wantErr: "invalid JSON"},
			{name: "missing reference", body: `{"email":"jane@example.com","availability":{"a":"available"}}`, wantErr: "booking_reference is required"},
			{name: "bad email", body: `{"booking_reference":"CC-1","email":"nope","availability":{"a":"available"}}`, wantErr: "email must be a valid email"},
			{name: "empty availability", body: `{"booking_reference":"CC-1","email":"jane@example.com","availability":{}}`, wantErr: "availability"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ts := newTestServer(t, "")
				rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/availability", strings.NewReader(tt.body)))

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				body := decodeBody(t, rec)
				assert.Equal(t, false, body["success"])
				assert.Contains(t, body["error"], tt.wantErr)
				ts.availability.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("service errors", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{name: "unknown booking", err: fmt.Errorf("lookup: %w", repository.ErrNotFound), wantStatus: http.StatusNotFound},
			{name: "only unavailable slots", err: fmt.Errorf("%w: no slots selected", service.ErrInvalidSubmission), wantStatus: http.StatusBadRequest},
			{name: "store down", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ts := newTestServer(t, "")
				ts.availability.On("Submit", mock.Anything, mock.Anything).Return(service.AvailabilitySummary{}, tt.err).Once()

				rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/availability", strings.NewReader(validBody)))
				assert.Equal(t, tt.wantStatus, rec.Code)
			})
		}
	})
}

func TestPostCheckoutSession(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.checkout.On("Create", mock.Anything, service.CheckoutRequest{
			PriceID:     "price_bulk",
			Quantity:    1,
			PackageType: "bulk",
			Hours:       "10",
		}).Return(service.CheckoutLink{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil).Once()

		body := `{"price_id":"price_bulk","quantity":1,"package_type":"bulk","hours":"10"}`
		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/cs_1","session_id":"cs_1"}`, rec.Body.String())
	})

	t.Run("unknown package rejected before provider call", func(t *testing.T) {
		ts := newTestServer(t, "")
		body := `{"price_id":"price_x","package_type":"platinum"}`
		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "package_type must be one of")
	})

	t.Run("provider failure", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.checkout.On("Create", mock.Anything, mock.Anything).
			Return(service.CheckoutLink{}, fmt.Errorf("%w: %w", service.ErrUpstreamQuery, errors.New("stripe down"))).Once()

		body := `{"price_id":"price_payg","package_type":"payg"}`
		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/create-checkout-session", nil)
	req.Header.Set("Origin", testOrigin)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodOptions, "/api/verify-session", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = ts.do(req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaffEndpoints(t *testing.T) {
	hash := staffKeyHash(t)
	booking := repository.Booking{
		Reference:     "CC-ABC123",
		SessionID:     "cs_1",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		PackageType:   repository.PackagePassGuarantee,
		AmountMinor:   120000,
		Currency:      "gbp",
		Status:        repository.StatusPendingScheduling,
		Metadata:      repository.ExtendedMetadata{ProvisionalLicence: "DOE99901015JA9AB", TestStatus: "has_test"},
	}

	authed := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(middleware.StaffKeyHeader, testStaffKey)
		return req
	}

	t.Run("disabled without key hash", func(t *testing.T) {
		ts := newTestServer(t, "")
		rec := ts.do(authed(http.MethodGet, "/internal/bookings/CC-ABC123"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing or wrong key", func(t *testing.T) {
		ts := newTestServer(t, hash)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/internal/bookings/CC-ABC123", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/internal/bookings/CC-ABC123", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec = ts.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("get booking", func(t *testing.T) {
		ts := newTestServer(t, hash)
		ts.bookings.On("GetBooking", mock.Anything, "CC-ABC123").Return(booking, nil).Once()

		rec := ts.do(authed(http.MethodGet, "/internal/bookings/CC-ABC123"))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "CC-ABC123", body["reference"])
		assert.Equal(t, "PAID_PENDING_SCHEDULING", body["status"])
		assert.Equal(t, float64(1200), body["amount"])
		meta := body["extended_metadata"].(map[string]any)
		assert.Equal(t, "DOE99901015JA9AB", meta["provisional_licence"])
	})

	t.Run("verify", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{name: "advanced", wantStatus: http.StatusOK},
			{
				name: "already verified",
				err: &repository.InvalidTransitionError{
					Reference: "CC-ABC123",
					Expected:  repository.StatusPendingVerification,
					Actual:    repository.StatusPendingScheduling,
					Target:    repository.StatusPendingScheduling,
				},
				wantStatus: http.StatusConflict,
			},
			{name: "unknown booking", err: repository.ErrNotFound, wantStatus: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ts := newTestServer(t, hash)
				ret := booking
				if tt.err != nil {
					ret = repository.Booking{}
				}
				ts.bookings.On("ConfirmVerification", mock.Anything, "CC-ABC123").Return(ret, tt.err).Once()

				rec := ts.do(authed(http.MethodPost, "/internal/bookings/CC-ABC123/verify"))
				assert.Equal(t, tt.wantStatus, rec.Code)
			})
		}
	})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
