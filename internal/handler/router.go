package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the use cases the API exposes.
type Services struct {
	Identity      *service.IdentityService
	Tasks         *service.TaskService
	Templates     *service.TemplateService
	Notifications *service.NotificationService
	Auctions      *service.AuctionService
	Leads         *service.LeadService
	Finance       *service.FinanceService
	Training      *service.TrainingService
	Franchises    *service.FranchiseService
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// LeadLimiter throttles the public lead form; 10 per minute in memory when nil.
	LeadLimiter *limiter.Limiter
	// Ready reports whether the store answers; /readyz fails otherwise.
	Ready   func(ctx context.Context) error
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	leadLimiter := opts.LeadLimiter
	if leadLimiter == nil {
		leadLimiter = limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 10})
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.Ready, logger))
	r.Get("/readyz", readyzHandler(opts.Ready, logger))
	r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/login", loginHandler(svc.Identity, logger))
		r.With(rateLimit(leadLimiter)).Post("/public/leads", captureLeadHandler(svc.Leads, logger))

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Identity, logger))

			r.Get("/me", meHandler())
			r.Patch("/me", updateMeHandler(svc.Identity, logger))
			r.Get("/navigation", navigationHandler())
			r.Get("/branding", brandingHandler(svc.Franchises, logger))

			r.Get("/notifications", listNotificationsHandler(svc.Notifications, logger))
			r.Post("/notifications/read-all", markAllReadHandler(svc.Notifications, logger))
			r.Post("/notifications/{id}/read", markReadHandler(svc.Notifications, logger))

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapTasks, logger))
				r.Get("/profiles", listProfilesHandler(svc.Identity, logger))
				r.Get("/tasks", listTasksHandler(svc.Tasks, logger))
				r.Post("/tasks", createTaskHandler(svc.Tasks, logger))
				r.Patch("/tasks/{id}/toggle", toggleTaskHandler(svc.Tasks, logger))
				r.Patch("/tasks/{id}/status", updateTaskStatusHandler(svc.Tasks, logger))
				r.Patch("/tasks/{id}/steps/{stepId}", updateStepHandler(svc.Tasks, logger))
				r.Delete("/tasks/{id}", deleteTaskHandler(svc.Tasks, logger))
				r.Get("/task-templates", listTemplatesHandler(svc.Templates, logger))
				r.Post("/task-templates", createTemplateHandler(svc.Templates, logger))
				r.Get("/task-templates/{id}", getTemplateHandler(svc.Templates, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapAuctions, logger))
				r.Get("/auctions/board", auctionBoardHandler(svc.Auctions, logger))
				r.Post("/auctions", createAuctionHandler(svc.Auctions, logger))
				r.Get("/auctions/{id}", getAuctionHandler(svc.Auctions, logger))
				r.Patch("/auctions/{id}/status", moveAuctionHandler(svc.Auctions, logger))
				r.Post("/auctions/{id}/award", confirmAwardHandler(svc.Auctions, logger))
				r.Get("/auctions/{id}/award-document", awardDocumentHandler(svc.Auctions, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapLeads, logger))
				r.Get("/leads", listLeadsHandler(svc.Leads, logger))
				r.Post("/leads", createLeadHandler(svc.Leads, logger))
				r.Patch("/leads/{id}/status", updateLeadStatusHandler(svc.Leads, logger))
				r.Get("/bidders", listBiddersHandler(svc.Leads, logger))
			})

			r.With(RequireCapability(domain.CapDatajud, logger)).
				Post("/legal-processes/import", importLegalProcessHandler(svc.Leads, logger))

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapFinance, logger))
				r.Get("/finance/entries", listEntriesHandler(svc.Finance, logger))
				r.Post("/finance/entries", recordEntryHandler(svc.Finance, logger))
				r.Get("/finance/summary", financeSummaryHandler(svc.Finance, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapTraining, logger))
				r.Get("/training", listTrainingHandler(svc.Training, logger))
				r.Post("/training", createTrainingHandler(svc.Training, logger))
				r.Get("/training/leaderboard", leaderboardHandler(svc.Training, logger))
				r.Post("/training/{id}/complete", completeTrainingHandler(svc.Training, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapFranchises, logger))
				r.Get("/franchises", listFranchisesHandler(svc.Franchises, logger))
				r.Post("/franchises", createFranchiseHandler(svc.Franchises, logger))
				r.Patch("/franchises/{id}", updateFranchiseHandler(svc.Franchises, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireCapability(domain.CapSettings, logger))
				r.Patch("/profiles/{id}", updateProfileHandler(svc.Identity, logger))
				r.Get("/ops/snapshot", opsSnapshotHandler(opts.Metrics))
			})
		})
	})

	return r
}
