package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/acertamais-backend/api/controllers"
	"github.com/angelmondragon/acertamais-backend/api/middleware"
	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/internal/catalog"
	"github.com/angelmondragon/acertamais-backend/internal/employees"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	pkgAuth "github.com/angelmondragon/acertamais-backend/pkg/auth"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	verifier pkgAuth.Verifier,
	idempotencyStore redis.IdempotencyStore,
	catalogService catalog.Service,
	cartService cart.Service,
	requestService requests.Service,
	employeeService employees.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	idempotent := middleware.Idempotency(idempotencyStore, cfg.Redis.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(verifier, employeeService, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/segments", controllers.CatalogSegments(catalogService, logg))
			r.Get("/vendors", controllers.CatalogVendors(catalogService, logg))
			r.Get("/vendors/{vendorID}", controllers.CatalogVendor(catalogService, logg))
			r.Get("/services", controllers.CatalogServices(catalogService, logg))
			r.Get("/services/{serviceID}", controllers.CatalogService(catalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.With(idempotent).Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemID}", controllers.CartSetQuantity(cartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.RequestsSubmit(requestService, employeeService, logg))
			r.Get("/pending", controllers.RequestsPending(requestService, logg))
			r.Get("/pending/stream", controllers.RequestsPendingStream(requestService, controllers.DefaultStreamHeartbeat, logg))
			r.Get("/history", controllers.RequestsHistory(requestService, logg))
			r.Get("/{requestID}", controllers.RequestsGet(requestService, logg))
			r.With(idempotent).Post("/{requestID}/cancel", controllers.RequestsCancel(requestService, logg))
		})

		r.Get("/me", controllers.EmployeeProfile(employeeService, logg))
		r.Post("/me/disable", controllers.EmployeeDisable(employeeService, logg))
	})

	return r
}
