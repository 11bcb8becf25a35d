package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/regportal/regbridge/internal/cache"
	"github.com/regportal/regbridge/internal/config"
	"github.com/regportal/regbridge/internal/database"
	"github.com/regportal/regbridge/internal/handler"
	"github.com/regportal/regbridge/internal/middleware"
	"github.com/regportal/regbridge/internal/observability"
	"github.com/regportal/regbridge/internal/queue"
	"github.com/regportal/regbridge/internal/repository"
	"github.com/regportal/regbridge/internal/router"
	"github.com/regportal/regbridge/internal/service"
	"github.com/regportal/regbridge/internal/upstream"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	log := observability.InitializeLogger(config.LoadLoggerConfig())
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal("apply schema", zap.Error(err))
	}

	// Redis is optional: without it the limiter and response cache are off
	// and the term cache lives in process.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable, continuing without it", zap.Error(err))
		rdb = nil
	}
	var terms cache.Store = cache.NewMemoryStore(cfg.TermCacheTTL, 10*time.Minute)
	if rdb != nil {
		defer rdb.Close()
		terms = cache.NewRedisStore(rdb, "regbridge", cfg.TermCacheTTL)
	}

	httpClient := upstream.DefaultHTTPClient()
	httpClient.Timeout = cfg.UpstreamTimeout
	client, err := upstream.New(upstream.Options{
		AuthBaseURL:      cfg.UpstreamAuthURL,
		TimetableBaseURL: cfg.UpstreamTimetable,
		SecretKey:        cfg.UpstreamSecretKey,
		TermPath:         cfg.UpstreamTermPath,
		HTTPClient:       httpClient,
		Logger:           log,
	})
	if err != nil {
		log.Fatal("configure upstream client", zap.Error(err))
	}

	if cfg.AuditConsumer {
		go func() {
			if err := queue.StartLoginConsumer(ctx, cfg.AMQPURL, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("login consumer stopped", zap.Error(err))
			}
		}()
	}

	sessions := repository.NewSessionRepo(db)
	authH := handler.NewAuthHandler(cfg, client, sessions, service.NewLoginPublisher(cfg.AMQPURL, log), log)
	scheduleH := handler.NewScheduleHandler(client, sessions, terms, cfg.TermCacheTTL, 2*cfg.UpstreamTimeout, log)

	checks := map[string]handler.Check{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, checks)
	router.RegisterAuth(e, authH, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadLoginRateLimitConfig(), rdb, log))
	router.RegisterSchedule(e, scheduleH, cfg.JWTSecret, middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log))

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
