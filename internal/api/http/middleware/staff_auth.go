package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// StaffKeyHeader заголовок с ключом staff
const StaffKeyHeader = "X-Staff-Key"

// StaffAuth пускает запрос, только если ключ совпадает с bcrypt хешем.
// Пустой хеш выключает staff endpoints целиком: они отвечают 404, как будто их нет.
func StaffAuth(keyHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	hash := []byte(keyHash)
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				http.NotFound(w, r)
				return
			}

			key := staffKey(r)
			if key == "" {
				http.Error(w, "staff key is required", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
				logger.Warn("staff key rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "invalid staff key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// staffKey X-Staff-Key или Authorization: Bearer
func staffKey(r *http.Request) string {
	if key := r.Header.Get(StaffKeyHeader); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
