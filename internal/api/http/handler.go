package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/coachcarter/platform/observability"

	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
)

// maxWebhookBody Stripe события заметно меньше, всё крупнее отбрасывается
const maxWebhookBody = 65536

// WebhookProcessor обработка подписанного события провайдера
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

// SessionVerifier проверка checkout сессии для страницы успешной оплаты
type SessionVerifier interface {
	Verify(ctx context.Context, sessionID string) (service.SessionVerification, error)
}

// AvailabilitySubmitter приём формы доступности
type AvailabilitySubmitter interface {
	Submit(ctx context.Context, sub service.AvailabilitySubmission) (service.AvailabilitySummary, error)
}

// CheckoutCreator создание checkout сессии
type CheckoutCreator interface {
	Create(ctx context.Context, req service.CheckoutRequest) (service.CheckoutLink, error)
}

// BookingAdmin операции staff над бронированием
type BookingAdmin interface {
	ConfirmVerification(ctx context.Context, reference string) (repository.Booking, error)
	GetBooking(ctx context.Context, reference string) (repository.Booking, error)
}

// Handler HTTP обработчики. Бизнес-логики здесь нет, только DTO и коды ответов.
type Handler struct {
	logger       *zap.Logger
	webhooks     WebhookProcessor
	sessions     SessionVerifier
	availability AvailabilitySubmitter
	checkout     CheckoutCreator
	bookings     BookingAdmin
}

// NewHandler создаёт Handler
func NewHandler(
	logger *zap.Logger,
	webhooks WebhookProcessor,
	sessions SessionVerifier,
	availability AvailabilitySubmitter,
	checkout CheckoutCreator,
	bookings BookingAdmin,
) *Handler {
	return &Handler{
		logger:       logger,
		webhooks:     webhooks,
		sessions:     sessions,
		availability: availability,
		checkout:     checkout,
		bookings:     bookings,
	}
}

// log логгер запроса с trace_id, если observability middleware его положил
func (h *Handler) log(r *http.Request) *zap.Logger {
	return platformobservability.LoggerFromContext(r.Context(), h.logger)
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// PostWebhook POST /api/webhook. Любой 2xx провайдер считает доставкой, поэтому
// 5xx отдаётся только там, где повтор может помочь.
func (h *Handler) PostWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, "failed to read body")
		return
	}

	result, err := h.webhooks.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAuthentication):
		h.log(r).Warn("webhook rejected", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "webhook signature verification failed")
		return
	case errors.Is(err, service.ErrInvalidEvent):
		h.log(r).Warn("webhook event is missing required data", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid event")
		return
	default:
		h.log(r).Error("webhook processing failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	h.log(r).Debug("webhook handled",
		zap.String("event_id", result.EventID),
		zap.String("outcome", string(result.Outcome)),
	)
	writeJSON(w, h.logger, http.StatusOK, webhookResponse{Received: true})
}

type verifySessionResponse struct {
	Success bool   `json:"success"`
	Pending bool   `json:"pending,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// verifySessionSuccess ответ для найденного бронирования: amount есть всегда, даже 0 при 100% купоне
type verifySessionSuccess struct {
	Success     bool    `json:"success"`
	BookingRef  string  `json:"booking_ref"`
	PackageName string  `json:"package_name"`
	PackageType string  `json:"package_type"`
	Amount      float64 `json:"amount"`
}

// GetVerifySession GET /api/verify-session?session_id=...
func (h *Handler) GetVerifySession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	v, err := h.sessions.Verify(r.Context(), sessionID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSessionIDRequired):
		writeJSON(w, h.logger, http.StatusBadRequest, verifySessionResponse{Error: "Session ID required"})
		return
	case errors.Is(err, service.ErrUpstreamQuery):
		writeJSON(w, h.logger, http.StatusBadGateway, verifySessionResponse{Error: "Unable to verify payment"})
		return
	default:
		h.log(r).Error("session verification failed", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, h.logger, http.StatusInternalServerError, verifySessionResponse{Error: "Unable to verify payment"})
		return
	}

	switch {
	case !v.Paid:
		writeJSON(w, h.logger, http.StatusOK, verifySessionResponse{Error: "Payment not completed"})
	case v.Pending || v.Booking == nil:
		writeJSON(w, h.logger, http.StatusOK, verifySessionResponse{
			Success: true,
			Pending: true,
			Message: "Payment confirmed, booking being processed",
		})
	default:
		writeJSON(w, h.logger, http.StatusOK, verifySessionSuccess{
			Success:     true,
			BookingRef:  v.Booking.Reference,
			PackageName: v.Booking.PackageName,
			PackageType: string(v.Booking.PackageType),
			Amount:      v.Booking.Amount,
		})
	}
}

type availabilityRequest struct {
	BookingReference    string            `json:"booking_reference" validate:"required"`
	Email               string            `json:"email" validate:"required,email"`
	Availability        map[string]string `json:"availability" validate:"required,min=1"`
	FrequencyPreference string            `json:"frequency_preference" validate:"omitempty,max=64"`
	Notes               string            `json:"notes" validate:"omitempty,max=2000"`
}

type availabilityResponse struct {
	Success          bool   `json:"success"`
	BookingReference string `json:"booking_reference"`
	SlotsSelected    int    `json:"slots_selected"`
}

// PostAvailability POST /api/availability
func (h *Handler) PostAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.availability.Submit(r.Context(), service.AvailabilitySubmission{
		BookingReference:    req.BookingReference,
		Email:               req.Email,
		Slots:               req.Availability,
		FrequencyPreference: req.FrequencyPreference,
		Notes:               req.Notes,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "booking not found")
		return
	default:
		h.log(r).Error("availability submission failed",
			zap.String("booking_reference", req.BookingReference),
			zap.Error(err),
		)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to submit availability")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, availabilityResponse{
		Success:          true,
		BookingReference: summary.BookingReference,
		SlotsSelected:    summary.TotalSlots(),
	})
}

type checkoutRequest struct {
	PriceID     string `json:"price_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"omitempty,min=1,max=50"`
	PackageType string `json:"package_type" validate:"required,oneof=payg bulk pass_guarantee"`
	Hours       string `json:"hours" validate:"omitempty,numeric"`
	SuccessURL  string `json:"success_url" validate:"omitempty,url"`
	CancelURL   string `json:"cancel_url" validate:"omitempty,url"`
}

type checkoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// PostCheckoutSession POST /api/create-checkout-session
func (h *Handler) PostCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.checkout.Create(r.Context(), service.CheckoutRequest{
		PriceID:     req.PriceID,
		Quantity:    req.Quantity,
		PackageType: req.PackageType,
		Hours:       req.Hours,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCheckout):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrUpstreamQuery):
		writeError(w, h.logger, http.StatusBadGateway, "failed to create checkout session")
		return
	default:
		h.log(r).Error("checkout session creation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, checkoutResponse{URL: link.URL, SessionID: link.SessionID})
}

type extendedMetadataView struct {
	ProvisionalLicence string `json:"provisional_licence,omitempty"`
	TestStatus         string `json:"test_status,omitempty"`
	TestReference      string `json:"test_reference,omitempty"`
	TestCentre         string `json:"test_centre,omitempty"`
	Hours              string `json:"hours,omitempty"`
}

// bookingView полная карточка для staff
type bookingView struct {
	Reference     string               `json:"reference"`
	SessionID     string               `json:"session_id"`
	CustomerEmail string               `json:"customer_email"`
	CustomerName  string               `json:"customer_name"`
	PackageType   string               `json:"package_type"`
	PackageName   string               `json:"package_name"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	Status        string               `json:"status"`
	Metadata      extendedMetadataView `json:"extended_metadata"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func toBookingView(b repository.Booking) bookingView {
	return bookingView{
		Reference:     b.Reference,
		SessionID:     b.SessionID,
		CustomerEmail: b.CustomerEmail,
		CustomerName:  b.CustomerName,
		PackageType:   string(b.PackageType),
		PackageName:   service.PackageDisplayName(b.PackageType, b.Metadata.Hours),
		Amount:        b.AmountPaid(),
		Currency:      b.Currency,
		Status:        string(b.Status),
		Metadata: extendedMetadataView{
			ProvisionalLicence: b.Metadata.ProvisionalLicence,
			TestStatus:         b.Metadata.TestStatus,
			TestReference:      b.Metadata.TestReference,
			TestCentre:         b.Metadata.TestCentre,
			Hours:              b.Metadata.Hours,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// GetBooking GET /internal/bookings/{reference}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")

	b, err := h.bookings.GetBooking(r.Context(), ref)
	if err != nil {
		h.writeBookingError(w, r, ref, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toBookingView(b))
}

// PostVerifyBooking POST /internal/bookings/{reference}/verify
func (h *Handler) PostVerifyBooking(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")

	b, err := h.bookings.ConfirmVerification(r.Context(), ref)
	if err != nil {
		h.writeBookingError(w, r, ref, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toBookingView(b))
}

func (h *Handler) writeBookingError(w http.ResponseWriter, r *http.Request, ref string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "booking not found")
	case errors.Is(err, repository.ErrInvalidTransition):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	default:
		h.log(r).Error("booking operation failed", zap.String("booking_reference", ref), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}
