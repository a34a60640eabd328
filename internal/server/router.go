package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/api/handlers"
	"github.com/whyvarun/support-IQ/internal/api/middleware"
)

type RouterConfig struct {
	TicketHandler     *handlers.TicketHandler
	SearchHandler     *handlers.SearchHandler
	KnowledgeHandler  *handlers.KnowledgeHandler
	PromotionHandler  *handlers.PromotionHandler
	AnalyticsHandler  *handlers.AnalyticsHandler
	AttachmentHandler *handlers.AttachmentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", cfg.TicketHandler.Create)
		r.Get("/", cfg.TicketHandler.List)
		r.Get("/{id}", cfg.TicketHandler.Get)
		r.Post("/{id}/resolve", cfg.TicketHandler.Resolve)
		r.Get("/{id}/similar", cfg.TicketHandler.Similar)
		r.Post("/{id}/attachments/init", cfg.AttachmentHandler.InitUpload)
		r.Get("/{id}/attachments", cfg.AttachmentHandler.List)
	})

	r.Post("/analyze", cfg.TicketHandler.Analyze)
	r.Post("/search", cfg.SearchHandler.Search)

	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Create)
		r.Get("/", cfg.KnowledgeHandler.List)
		// Registered before /{id} so "categories" never matches as an id.
		r.Get("/categories", cfg.KnowledgeHandler.Categories)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Delete("/{id}", cfg.KnowledgeHandler.Deactivate)
		r.Post("/{id}/promote", cfg.PromotionHandler.Promote)
	})

	r.Route("/promotions", func(r chi.Router) {
		r.Post("/run", cfg.PromotionHandler.Run)
		r.Get("/candidates", cfg.PromotionHandler.Candidates)
		r.Get("/history", cfg.PromotionHandler.History)
	})

	r.Route("/attachments", func(r chi.Router) {
		r.Post("/complete", cfg.AttachmentHandler.CompleteUpload)
		r.Get("/{id}/download", cfg.AttachmentHandler.GetDownloadURL)
		r.Delete("/{id}", cfg.AttachmentHandler.Delete)
	})

	r.Get("/analytics", cfg.AnalyticsHandler.Overview)

	return r
}
