package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"smartlearn-auth/internal/config"
	"smartlearn-auth/internal/credential"
	"smartlearn-auth/internal/database"
	"smartlearn-auth/internal/handler"
	"smartlearn-auth/internal/middleware"
	"smartlearn-auth/internal/repository"
	"smartlearn-auth/internal/router"
	"smartlearn-auth/internal/service"
	"smartlearn-auth/internal/session"
	"smartlearn-auth/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	redisClient  *redis.Client
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.NewPostgres(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	slog.Info("connecting to Redis", "addr", cfg.RedisAddr)
	redisClient, err := database.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	slog.Info("database ready")

	hasher, err := credential.NewHasher(cfg.BcryptCost)
	if err != nil {
		db.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  token.AccessKey(cfg.AccessTokenSecret),
		RefreshSecret: token.RefreshKey(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenLifetime,
		RefreshTTL:    cfg.RefreshTokenLifetime,
	})
	if err != nil {
		db.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	// Sessions live exactly as long as the refresh token that backs them.
	sessions := session.NewRedisRegistry(redisClient, cfg.RefreshTokenLifetime)

	authService := service.NewAuthService(userRepo, hasher, issuer, sessions)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)

	healthCheck := func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("redis unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}

	appRouter := router.New(cfg, authMiddleware, authHandler, userHandler, healthCheck)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server:      server,
		db:          db,
		redisClient: redisClient,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
			func() {
				_ = redisClient.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
