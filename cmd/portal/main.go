package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elance/franquias-portal-go/internal/config"
	"github.com/elance/franquias-portal-go/internal/document"
	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/handler"
	"github.com/elance/franquias-portal-go/internal/infra/cache"
	"github.com/elance/franquias-portal-go/internal/infra/localauth"
	"github.com/elance/franquias-portal-go/internal/infra/memstore"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/infra/postgres"
	"github.com/elance/franquias-portal-go/internal/infra/resilience"
	"github.com/elance/franquias-portal-go/internal/infra/supabase"
	"github.com/elance/franquias-portal-go/internal/port"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store", cfg.Store),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("store_timeout", cfg.StoreTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.String("lead_rate_limit", cfg.LeadRateLimit),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "franquias-portal")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Store ---
	ctx := context.Background()
	var store port.Store
	var auth port.Authenticator
	var credentials port.CredentialStore

	switch cfg.Store {
	case "supabase":
		if cfg.SupabaseURL == "" {
			logger.Fatal("SUPABASE_URL is required for the supabase store")
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		sb := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		store, auth = sb, sb
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, int32(cfg.MaxConcurrency))
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("using Postgres as data backend")
		pg := postgres.New(pool)
		store, credentials = pg, pg
	default:
		logger.Warn("using the in-memory store; data is lost on restart")
		mem := memstore.New()
		if err := bootstrapAdmin(ctx, mem, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		store, credentials = mem, mem
	}
	if credentials != nil {
		logger.Info("using local password sign-in")
		auth = localauth.New(credentials, cfg.SupabaseJWTSecret, cfg.JWTAccessTTL, logger)
	}

	// --- Cache ---
	var principals port.Cache[*domain.Principal]
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		defer redisClient.Close()
		principals = cache.NewRedis[*domain.Principal](redisClient, "elance:principal:", cfg.CacheTTL, logger)
		logger.Info("principal cache and lead limiter backed by redis")
	} else {
		mem := cache.New[*domain.Principal](cfg.CacheTTL)
		defer mem.Close()
		principals = mem
	}

	leadLimiter, err := handler.NewLeadLimiter(cfg.LeadRateLimit, redisClient)
	if err != nil {
		logger.Fatal("invalid LEAD_RATE_LIMIT", zap.Error(err))
	}

	// --- Services ---
	opts := service.Options{StoreTimeout: cfg.StoreTimeout, Metrics: metrics, Logger: logger}
	defaults := domain.Branding{SiteTitle: cfg.BrandName, LogoURL: cfg.BrandLogoURL, IconURL: cfg.BrandIconURL}

	svcs := handler.Services{
		Identity:      service.NewIdentityService(store, auth, principals, cfg.SupabaseJWTSecret, opts),
		Tasks:         service.NewTaskService(store, opts),
		Templates:     service.NewTemplateService(store, opts),
		Notifications: service.NewNotificationService(store, int(cfg.PollInterval/time.Second), opts),
		Auctions:      service.NewAuctionService(store, document.NewGenerator(cfg.BrandName, time.Now), cfg.SecondRoundTTL, opts),
		Leads:         service.NewLeadService(store, opts),
		Finance:       service.NewFinanceService(store, opts),
		Training:      service.NewTrainingService(store, opts),
		Franchises:    service.NewFranchiseService(store, defaults, opts),
	}

	// --- Router ---
	router := handler.NewRouter(svcs, handler.Options{
		CORSOrigins: cfg.CORSOrigins,
		LeadLimiter: leadLimiter,
		Ready:       store.Ping,
		Metrics:     metrics,
		Logger:      logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// bootstrapAdmin seeds an admin login into the in-memory store so a fresh
// dev server can be signed into.
func bootstrapAdmin(ctx context.Context, store *memstore.Store, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := localauth.HashPassword(password)
	if err != nil {
		return err
	}
	store.PutProfile(domain.Profile{ID: "admin", Email: email, FullName: "Administrador", Role: domain.RoleAdmin})
	return store.SaveCredential(ctx, &domain.Credential{UserID: "admin", Email: email, PasswordHash: hash})
}
