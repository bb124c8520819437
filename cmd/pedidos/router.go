package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/admin"
	"github.com/tiendabot/pedidos/internal/config"
	"github.com/tiendabot/pedidos/internal/middleware"
	"github.com/tiendabot/pedidos/internal/whatsapp"
)

func newRouter(cfg *config.Config, log *zap.Logger, webhook *whatsapp.WebhookHandler, adm *admin.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/webhook", webhook.HandleVerify)
	r.Post("/webhook", webhook.HandleIncoming)

	r.Get("/catalog", adm.ViewCatalog)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Correlation-ID"},
			MaxAge:         300,
		}))
		r.Use(middleware.RateLimit(cfg.AdminRateLimit, time.Minute))

		r.Get("/catalog", adm.GetCatalog)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminJWTSecret))
			r.Post("/catalog", adm.ReplaceCatalog)
			r.Post("/catalog/categories", adm.AddCategory)
			r.Post("/catalog/products", adm.AddProduct)
			r.Post("/send-start", adm.SendStart)
			r.Get("/orders", adm.ListOrders)
		})
	})

	return r
}
