package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/tutorhub/frontend/docs"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/config"
	"github.com/tutorhub/frontend/internal/guard"
	"github.com/tutorhub/frontend/internal/handlers"
	"github.com/tutorhub/frontend/internal/logger"
	"github.com/tutorhub/frontend/internal/middleware"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/telemetry"
	"github.com/tutorhub/frontend/internal/views"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// @title TutorHub Web Session API
// @version 1.0
// @description Session state and authentication endpoints of the TutorHub web front end

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting TutorHub web front end")

	// Initialize tracing
	tel, err := telemetry.New(context.Background(), telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Session registry: redis when configured, process memory otherwise
	registry, closeRegistry, err := newRegistry(cfg.Redis.URL)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer closeRegistry()

	// Initialize API clients
	// the clients trace their own calls
	authClient := clients.NewAuthClient(cfg.API.BaseURL, cfg.API.Timeout, nil)
	catalogClient := clients.NewCatalogClient(cfg.API.BaseURL, cfg.API.Timeout, nil)

	// Initialize session manager
	manager := session.NewManager(authClient, registry, logger.Logger, session.ManagerOptions{
		TTL:         cfg.Session.TTL,
		IdleTimeout: cfg.Session.IdleTimeout,
	})
	if err := manager.Start(); err != nil {
		logger.Logger.Fatal("Failed to schedule session sweep", zap.Error(err))
	}

	// Initialize views and the route guard
	renderer, err := views.NewRenderer(cfg.Server.SiteURL, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to parse templates", zap.Error(err))
	}
	routeGuard := guard.NewGuard(cfg.Session.SettleTimeout, renderer.Loading(), logger.Logger)

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(catalogClient, renderer, logger.Logger)
	tutorHandler := handlers.NewTutorHandler(catalogClient, renderer, logger.Logger)
	authHandler := handlers.NewAuthHandler(authClient, renderer, logger.Logger)
	dashboardHandler := handlers.NewDashboardHandler(catalogClient, manager, routeGuard, renderer, logger.Logger)
	sessionHandler := handlers.NewSessionHandler(authClient, logger.Logger)
	socketHandler := handlers.NewSocketHandler(cfg.CORS.AllowedOrigins, logger.Logger)
	healthHandler := handlers.NewHealthHandler(logger.Logger)

	sessionMiddleware := session.Middleware(manager, session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.TTL,
	})

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(1 << 20)) // 1MB

	// Health and swagger do not need a browsing session
	healthHandler.RegisterRoutes(r)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.SiteURL+"/swagger/doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)
		pageHandler.RegisterRoutes(r)
		tutorHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r)
		dashboardHandler.RegisterRoutes(r)
		sessionHandler.RegisterRoutes(r)
		socketHandler.RegisterRoutes(r)
	})
	r.NotFound(sessionMiddleware(http.HandlerFunc(pageHandler.NotFound)).ServeHTTP)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(r, cfg.Telemetry.ServiceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// session sockets are hijacked and not tracked by Shutdown; closing the stores ends them
	srv.RegisterOnShutdown(manager.Close)

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := tel.Shutdown(ctx); err != nil {
		logger.Logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// newRegistry picks the session registry for the given redis URL
func newRegistry(redisURL string) (session.Registry, func(), error) {
	if redisURL == "" {
		logger.Logger.Info("REDIS_URL not set, keeping sessions in memory")
		return session.NewMemoryRegistry(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := session.ConnectRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisRegistry(client), func() {
		if err := client.Close(); err != nil {
			logger.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}, nil
}
