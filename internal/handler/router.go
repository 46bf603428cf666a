package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/port"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

// Services bundles everything the router needs.
type Services struct {
	Ledger     *service.LedgerService
	Statistics *service.StatisticsService
	Ocr        *service.OcrService
	Advice     *service.AdviceService
	Accounts   *service.AccountService
	Categories *service.CategoryService
	Reminders  *service.ReminderService
	Users      *service.UserService
	Auth       *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs *Services, store port.Store, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.HTTPMetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(store))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth (public)
		// =============================================
		r.Post("/auth/register", registerHandler(svcs.Auth, logger))
		r.Post("/auth/login", loginHandler(svcs.Auth, logger))
		r.Post("/auth/oauth", oauthLoginHandler(svcs.Auth, logger))

		// =============================================
		// User-scoped resources (bearer token required;
		// the token subject must match {userId})
		// =============================================
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			r.Get("/profile", getProfileHandler(svcs.Users, logger))
			r.Put("/profile", updateProfileHandler(svcs.Users, logger))

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", listTransactionsHandler(svcs.Ledger, logger))
				r.Post("/", createTransactionHandler(svcs.Ledger, logger))
				r.Get("/filter", filterTransactionsHandler(svcs.Ledger, logger))
				r.Get("/statistics", statisticsHandler(svcs.Statistics, logger))
				r.Post("/photo", uploadPhotoHandler(svcs.Ocr, logger))
				r.Get("/{id}", getTransactionHandler(svcs.Ledger, logger))
				r.Put("/{id}", updateTransactionHandler(svcs.Ledger, logger))
				r.Delete("/{id}", deleteTransactionHandler(svcs.Ledger, logger))
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", listAccountsHandler(svcs.Accounts, logger))
				r.Post("/", createAccountHandler(svcs.Accounts, logger))
				r.Get("/balance", totalBalanceHandler(svcs.Accounts, logger))
				r.Get("/{id}", getAccountHandler(svcs.Accounts, logger))
				r.Put("/{id}", updateAccountHandler(svcs.Accounts, logger))
				r.Delete("/{id}", deleteAccountHandler(svcs.Accounts, logger))
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", listCategoriesHandler(svcs.Categories, logger))
				r.Post("/", createCategoryHandler(svcs.Categories, logger))
				r.Get("/my", listOwnCategoriesHandler(svcs.Categories, logger))
				r.Get("/default", listDefaultCategoriesHandler(svcs.Categories, logger))
				r.Put("/{id}", updateCategoryHandler(svcs.Categories, logger))
				r.Delete("/{id}", deleteCategoryHandler(svcs.Categories, logger))
			})

			r.Route("/reminders", func(r chi.Router) {
				r.Get("/", listRemindersHandler(svcs.Reminders, logger))
				r.Post("/", createReminderHandler(svcs.Reminders, logger))
				r.Get("/upcoming", upcomingRemindersHandler(svcs.Reminders, logger))
				r.Get("/{id}", getReminderHandler(svcs.Reminders, logger))
				r.Put("/{id}", updateReminderHandler(svcs.Reminders, logger))
				r.Delete("/{id}", deleteReminderHandler(svcs.Reminders, logger))
			})

			r.Route("/advices", func(r chi.Router) {
				r.Post("/", requestAdviceHandler(svcs.Advice, logger))
				r.Get("/", recentAdvicesHandler(svcs.Advice, logger))
			})
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports ready only when the database answers.
func readyzHandler(store port.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
