package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check проверяет одну зависимость сервиса (postgres, mongo, redis...).
// nil означает, что зависимость доступна.
type Check func(ctx context.Context) error

// Handler возвращает HTTP handler для health check endpoint.
// Все checks выполняются с общим таймаутом. Если хотя бы один вернул ошибку,
// отвечает 503 Service Unavailable и перечисляет упавшие зависимости.
// Без checks всегда отвечает 200 {"status":"ok"}.
func Handler(timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		failed := make(map[string]string)
		for name, check := range checks {
			if err := check(ctx); err != nil {
				// текст ошибки наружу не отдаём, только факт недоступности
				failed[name] = "unavailable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "not ready", "checks": failed})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
