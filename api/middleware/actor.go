package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/logger"
)

const (
	userIDHeader     = "X-VM-User-Id"
	guestTokenHeader = "X-VM-Token"
)

// Actor lifts the edge-injected user id and the guest cart token into the
// request context. A guest without a token gets one minted and echoed back so
// the browser can persist it.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
				ctx = WithUserID(ctx, userID)
				if logg != nil {
					ctx = logg.WithField(ctx, "user_id", userID)
				}
			}

			token := strings.TrimSpace(r.Header.Get(guestTokenHeader))
			if token == "" {
				token = uuid.NewString()
			}
			w.Header().Set(guestTokenHeader, token)
			ctx = WithGuestToken(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
