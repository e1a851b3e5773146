package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"userhub/internal/auth"
	"userhub/internal/config"
	"userhub/internal/events"
	apphttp "userhub/internal/http"
	"userhub/internal/repository"
	"userhub/internal/repository/postgres"
	"userhub/internal/repository/sqlite"
	"userhub/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if cfg.UsesDevSecret() {
		logger.Warn("using the built-in development jwt secret; set USERHUB_AUTH_JWTSECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, userRepo, err := openUserRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	denylist, closeDenylist, err := buildDenylist(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup denylist: %v", err)
	}
	defer closeDenylist()

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, events.NewLogrusAdapter(logger))
	defer pubsub.Close()
	if err := events.Audit(ctx, pubsub, logger.WithField("component", "audit"), events.AllTopics...); err != nil {
		logger.Fatalf("start audit subscriber: %v", err)
	}

	userService := service.NewUserService(userRepo, events.NewWatermillPublisher(pubsub), logger)

	secret := []byte(cfg.Auth.JWTSecret)
	issuer, err := auth.NewIssuer(secret)
	if err != nil {
		logger.Fatalf("setup issuer: %v", err)
	}
	gate, err := auth.NewGate(secret, auth.WithDenylist(denylist))
	if err != nil {
		logger.Fatalf("setup gate: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, issuer, gate, cfg.CORS.AllowedOrigins, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
		return
	}
	logger.SetLevel(level)
}

func openUserRepository(ctx context.Context, cfg config.Config) (*sql.DB, repository.UserRepository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewUserRepository(db), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewUserRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildDenylist(ctx context.Context, cfg config.Config, logger *logrus.Logger) (auth.Denylist, func(), error) {
	if cfg.Redis.URL == "" {
		logger.Info("token revocation kept in memory")
		return auth.NewMemoryDenylist(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Infof("token revocation kept in redis at %s", opts.Addr)
	return auth.NewRedisDenylist(client), func() { client.Close() }, nil
}
