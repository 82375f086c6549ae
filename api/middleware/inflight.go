package middleware

import (
	"net/http"
	"time"

	"github.com/jdupreez/veemark-gateway/api/responses"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	pkgredis "github.com/jdupreez/veemark-gateway/pkg/redis"
)

// The guard only needs to outlive one upstream round trip including retries;
// the TTL is a safety net for handlers that die before releasing.
const inFlightTTL = 30 * time.Second

// InFlight rejects a second submission for the same actor and path while the
// first is still being processed. It complements Idempotency, which only
// kicks in once the first response has been stored.
func InFlight(store pkgredis.InFlightStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := store.InFlightKey(buildScope(r))
			acquired, err := store.SetNX(r.Context(), key, "1", inFlightTTL)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire in-flight guard"))
				return
			}
			if !acquired {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInFlight, "a previous submission is still in flight"))
				return
			}
			defer func() {
				if delErr := store.Del(r.Context(), key); delErr != nil {
					logError(r.Context(), logg, "release in-flight guard", delErr)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
