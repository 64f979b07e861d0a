package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/entityrepo/api/controllers"
	customercontrollers "github.com/angelmondragon/entityrepo/api/controllers/customers"
	ordercontrollers "github.com/angelmondragon/entityrepo/api/controllers/orders"
	"github.com/angelmondragon/entityrepo/api/middleware"
	"github.com/angelmondragon/entityrepo/internal/catalog"
	"github.com/angelmondragon/entityrepo/pkg/config"
	"github.com/angelmondragon/entityrepo/pkg/logger"
)

// NewRouter mounts the health checks, the metrics endpoint and the catalog
// API. A nil metrics handler leaves /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	catalogService catalog.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customercontrollers.List(catalogService, cfg.Pagination, logg))
			r.Post("/", customercontrollers.Create(catalogService, logg))
			r.Get("/{id}", customercontrollers.Get(catalogService, logg))
			r.Put("/{id}", customercontrollers.Update(catalogService, logg))
			r.Delete("/{id}", customercontrollers.Delete(catalogService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(catalogService, cfg.Pagination, logg))
			r.Post("/", ordercontrollers.Create(catalogService, logg))
			r.Get("/{id}", ordercontrollers.Detail(catalogService, logg))
			r.Put("/{id}/status", ordercontrollers.UpdateStatus(catalogService, logg))
		})
	})

	return r
}
