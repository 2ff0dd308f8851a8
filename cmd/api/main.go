package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/background"
	"github.com/creatorsgarden/garden/internal/config"
	"github.com/creatorsgarden/garden/internal/database"
	"github.com/creatorsgarden/garden/internal/handlers"
	middlewareCustom "github.com/creatorsgarden/garden/internal/middleware"
	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/ratelimit"
	"github.com/creatorsgarden/garden/internal/repositories"
	"github.com/creatorsgarden/garden/internal/routes"
	"github.com/creatorsgarden/garden/internal/services"
	pkgauth "github.com/creatorsgarden/garden/pkg/auth"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
	pkglogger "github.com/creatorsgarden/garden/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)

	// Alert delivery
	var alertService services.AlertService
	if cfg.Alerts.Enabled {
		alertService, err = services.NewAWSSESAlertService(
			cfg.Alerts.AWSRegion,
			cfg.Alerts.FromAddress,
			cfg.Alerts.SecurityContact,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize alert service", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		alertService = services.NewNoopAlertService(logger)
	}

	// Security event log and anomaly scan
	auditLogger := pkglogger.NewAuditLogger(logger)
	securityService := services.NewSecurityService(eventRepo, services.AnomalyConfig{
		Window:              cfg.Auth.AnomalyWindow,
		FailedLoginsPerIP:   cfg.Auth.AnomalyFailedLoginsPerIP,
		UnauthorizedPerUser: cfg.Auth.AnomalyUnauthorizedPerUser,
	}, logger, auditLogger)

	// CSRF token store
	csrfStore := auth.NewCSRFTokenStore(cfg.Auth.CSRFTokenTTL)

	// Uniform minimum latency on login failures
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:      cfg.Auth.TimingDelayBase,
		Jitter:         cfg.Auth.TimingDelayJitter,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})

	// Core services
	authService := services.NewAuthService(
		userRepo,
		sessionRepo,
		securityService,
		csrfStore,
		alertService,
		timingDelay,
		services.AuthConfig{
			SessionExpiry:   cfg.Auth.SessionExpiry,
			MaxFailedLogins: cfg.Auth.MaxFailedLogins,
			LockoutDuration: cfg.Auth.LockoutDuration,
		},
		logger,
	)
	adminService := services.NewAdminService(userRepo, sessionRepo, securityService, csrfStore, logger)

	// Rate limiter with background sweep
	limiter := ratelimit.New(cfg.RateLimit.Buckets)
	limiterCtx, limiterCancel := context.WithCancel(context.Background())
	defer limiterCancel()
	go limiter.StartSweep(limiterCtx, cfg.RateLimit.SweepInterval)

	// Session/event maintenance
	cleanupManager := background.NewCleanupManager(
		sessionRepo,
		eventRepo,
		securityService,
		alertService,
		logger,
		cfg.Auth.CleanupInterval,
		90*24*time.Hour,
	)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{
		Secure:   cfg.Auth.SecureCookies,
		SameSite: "strict",
	}
	authHandler := handlers.NewAuthHandler(
		authService,
		ipConfig,
		cookieConfig,
		int(cfg.Auth.SessionExpiry.Seconds()),
		int(cfg.Auth.CSRFTokenTTL.Seconds()),
	)
	userHandler := handlers.NewUserHandler(authService, ipConfig)
	adminHandler := handlers.NewAdminHandler(adminService, ipConfig)

	// Bootstrap first admin user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	// Client IPs come from ExtractClientIP, which only honors forwarding
	// headers from proxies listed in TRUSTED_PROXIES. chi's RealIP would
	// rewrite RemoteAddr from client-controlled headers, so it stays out.
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.RateLimit(limiter, ipConfig, logger))

	routes.RegisterRoutes(router, authHandler, userHandler, adminHandler, authService, csrfStore, securityService)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status":   "unhealthy",
				"database": "down",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "healthy",
			"database": "up",
			"pool":     db.Stats(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()
	limiterCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and
// ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
		Status:       models.StatusActive,
	}
	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
