package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/coachcarter/platform/observability"

	"github.com/shestoi/coachcarter/internal/api/http/middleware"
)

// RouterConfig внешние настройки роутера
type RouterConfig struct {
	// AllowedOrigin origin сайта для CORS
	AllowedOrigin string
	// StaffKeyHash bcrypt хеш ключа staff; пустой выключает /internal
	StaffKeyHash string
}

// NewRouter собирает роутер сервиса.
// health отдаётся без CORS и авторизации, /internal требует staff ключ.
func NewRouter(handler *Handler, health http.Handler, cfg RouterConfig, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	// trace context + span на каждый запрос, logger с trace_id в контексте
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("coachcarter", logger))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigin))
		r.Post("/webhook", handler.PostWebhook)
		r.Get("/verify-session", handler.GetVerifySession)
		r.Post("/availability", handler.PostAvailability)
		r.Post("/create-checkout-session", handler.PostCheckoutSession)
	})

	router.Route("/internal/bookings", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.StaffKeyHash, logger))
		r.Get("/{reference}", handler.GetBooking)
		r.Post("/{reference}/verify", handler.PostVerifyBooking)
	})

	router.Get("/health", health.ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	return router
}
