package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/avickers/ttsgate/internal/tts"
)

// APIKeyMiddleware gates requests on a static gateway key carried in the
// Authorization header. The check runs before any core work. An empty key
// disables it entirely.
type APIKeyMiddleware struct {
	key string
}

func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: key}
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.key == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.key)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tts.ErrUnauthorized.Status)
			json.NewEncoder(w).Encode(map[string]any{
				"display": tts.ErrUnauthorized.Message,
				"code":    tts.ErrUnauthorized.Code,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
