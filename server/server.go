package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/config"
	"github.com/kendall-kelly/handmade-orders-api/controllers"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// Options replaces dependencies New would otherwise build from configuration
type Options struct {
	Store    services.BlobStore
	URLCache services.URLCache
	UserInfo services.UserInfoProvider
}

// Server is the assembled HTTP API: services, realtime hub and router
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	hub     *realtime.Hub
	router  *gin.Engine
	closers []func() error
}

// New wires every service from cfg and db and starts the realtime hub.
// Call Close to stop the hub and release external clients.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger, opts Options) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	store, uploadDir := opts.Store, ""
	if store == nil {
		var err error
		if store, err = NewBlobStore(ctx, cfg); err != nil {
			return nil, err
		}
	}
	if local, ok := store.(*services.LocalStore); ok {
		uploadDir = local.Root()
	}

	cache := opts.URLCache
	if cache == nil && cfg.RedisURL != "" {
		redisCache, err := services.NewRedisURLCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, redisCache.Close)
		cache = redisCache
		logger.Info("Image URL cache enabled")
	}

	authenticate, userInfo, err := s.authentication(opts.UserInfo)
	if err != nil {
		return nil, err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.hub = realtime.NewHub(logger)
	go s.hub.Run(hubCtx)
	s.closers = append(s.closers, func() error {
		stopHub()
		return nil
	})

	images := services.NewImageService(store, cache, cfg.ImageURLTTL, logger)
	handler := &controllers.Handler{
		Users:     services.NewUserService(db, logger),
		UserInfo:  userInfo,
		Requests:  services.NewRequestService(db, images, logger),
		Orders:    services.NewOrderService(db, s.hub, logger),
		Chats:     services.NewChatService(db, s.hub, logger),
		Crochets:  services.NewCrochetService(db, images, logger),
		Images:    images,
		Hub:       s.hub,
		Upgrader:  realtime.NewUpgrader(cfg.CORSAllowedOrigins),
		UploadDir: uploadDir,
		Logger:    logger,
	}

	s.router = gin.New()
	s.router.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		// Upgraded websocket connections must not be wrapped in a gzip writer
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`^/api/v1/chats/\d+/ws$`})),
		corsMiddleware(cfg.CORSAllowedOrigins),
	)

	api := s.router.Group("/api/v1")
	api.GET("/health", healthCheck)
	api.GET("/database/status", databaseStatus(db))
	handler.RegisterRoutes(api, authenticate...)

	return s, nil
}

// authentication picks Auth0 token validation when a tenant is configured and
// locally signed tokens otherwise. A configured scope is required on every token.
func (s *Server) authentication(userInfo services.UserInfoProvider) ([]gin.HandlerFunc, services.UserInfoProvider, error) {
	var validate gin.HandlerFunc
	if s.cfg.UsesAuth0() {
		var err error
		if validate, err = middleware.EnsureValidToken(s.cfg, s.logger); err != nil {
			return nil, nil, fmt.Errorf("failed to set up token validation: %w", err)
		}
		if userInfo == nil {
			userInfo = services.NewAuth0Service(s.cfg.Auth0Domain)
		}
	} else {
		s.logger.Info("Validating locally signed tokens")
		validate = middleware.EnsureLocalToken(s.cfg.JWTSecret, s.logger)
	}

	authenticate := []gin.HandlerFunc{validate}
	if s.cfg.RequiredScope != "" {
		authenticate = append(authenticate, middleware.RequireScope(s.cfg.RequiredScope))
	}
	return authenticate, userInfo, nil
}

// Router returns the HTTP handler
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub returns the realtime hub chat and order events are published to
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Run serves HTTP on the configured port until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Close stops the hub, which closes open websockets, and releases external clients
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
