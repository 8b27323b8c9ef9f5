package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Davidgwa1996/unidigitalcom/pkg/health"
	"github.com/Davidgwa1996/unidigitalcom/pkg/middleware"
)

// RouterConfig carries what the router needs besides the handler.
type RouterConfig struct {
	ServiceName    string
	Health         *health.Handler
	Logger         *slog.Logger
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(cfg.Logger, "/health/live", "/health/ready", "/metrics"))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/currencies", h.ListCurrencies)

		r.Group(func(r chi.Router) {
			r.Use(SessionFromHeader)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Get("/totals", h.GetTotals)
				r.Get("/count", h.GetCount)
				r.Put("/currency", h.SetCurrency)

				r.Post("/items", h.AddItem)
				r.Put("/items/{id}", h.UpdateItem)
				r.Delete("/items/{id}", h.RemoveItem)
			})

			r.Post("/checkout", h.Checkout)
		})
	})

	return r
}
