package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"recyclectl/internal/config"
	"recyclectl/internal/handler"
	"recyclectl/internal/middleware"
)

func New(cfg *config.Config, reportHandler *handler.ReportHandler) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/batches", reportHandler.Batches)
		api.Get("/audit", reportHandler.Audit)
		api.Get("/summary", reportHandler.Summary)
	})

	return r
}
