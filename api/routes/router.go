package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdupreez/veemark-gateway/api/controllers"
	"github.com/jdupreez/veemark-gateway/api/middleware"
	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/cart"
	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/internal/upstream"
	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	pkgredis "github.com/jdupreez/veemark-gateway/pkg/redis"
)

// Deps carries everything the router wires into handlers. Idempotency and
// InFlight default to the redis client when unset.
type Deps struct {
	Redis       *pkgredis.Client
	Idempotency pkgredis.IdempotencyStore
	InFlight    pkgredis.InFlightStore
	Upstream    *upstream.Client
	Engine      *negotiation.Engine
	Rules       auction.Rules
	Pricing     pricing.Config
	Cart        cart.Service
	CartDB      controllers.Pinger
	Registry    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Actor(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(deps)))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	idemStore := deps.Idempotency
	inflightStore := deps.InFlight
	if deps.Redis != nil {
		if idemStore == nil {
			idemStore = deps.Redis
		}
		if inflightStore == nil {
			inflightStore = deps.Redis
		}
	}
	inflight := middleware.InFlight(inflightStore, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/listings/{listingID}", func(r chi.Router) {
			r.Get("/quote", controllers.ListingQuote(deps.Upstream, deps.Rules, deps.Pricing, logg))
			r.With(inflight).Post("/bids", controllers.PlaceBid(deps.Upstream, deps.Engine, deps.Rules, logg))
		})

		r.Route("/buy-requests/{buyRequestID}/offers", func(r chi.Router) {
			r.Get("/", controllers.ListOffers(deps.Upstream, logg))
			r.With(inflight).Post("/", controllers.CreateOffer(deps.Upstream, deps.Engine, logg))
			r.With(inflight).
				Post("/{offerID}/accept", controllers.AcceptOffer(deps.Upstream, deps.Engine, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Put("/", controllers.CartPut(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
		})
	})

	return r
}

func readinessDeps(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	if deps.Upstream != nil {
		checks["upstream"] = deps.Upstream
	}
	if deps.CartDB != nil {
		checks["cart_db"] = deps.CartDB
	}
	return checks
}
