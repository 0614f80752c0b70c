package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mamakokoro/kokoro/internal/conversation"
	httpmiddleware "github.com/mamakokoro/kokoro/internal/http/middleware"
	"github.com/mamakokoro/kokoro/internal/wellness"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WellnessHandler     *wellness.Handler
	MetricsHandler      http.Handler
	AuthSecret          string
	CORSAllowedOrigins  []string
	ChatRateLimit       float64
	ChatRateBurst       int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API.
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.UserJWT(cfg.AuthSecret))

		api.Route("/chat", func(chat chi.Router) {
			if cfg.ChatRateLimit > 0 {
				chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
			}
			chat.Post("/stream", cfg.ConversationHandler.Stream)
			chat.Post("/message", cfg.ConversationHandler.Message)
			chat.Get("/conversations", cfg.ConversationHandler.Conversations)
		})

		api.Route("/screening", func(screening chi.Router) {
			screening.Post("/epds", cfg.ConversationHandler.SubmitEPDS)
			screening.Post("/phq2", cfg.ConversationHandler.SubmitPHQ2)
			screening.Get("/history", cfg.ConversationHandler.ScreeningHistory)
		})

		if cfg.WellnessHandler != nil {
			api.Route("/wellness", func(well chi.Router) {
				well.Post("/mood", cfg.WellnessHandler.SubmitMood)
				well.Get("/mood/trend", cfg.WellnessHandler.MoodTrend)
				well.Post("/journal", cfg.WellnessHandler.SubmitJournal)
				well.Get("/journal/insights", cfg.WellnessHandler.JournalInsights)
			})
		}
	})

	return r
}
