package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/openlearnhq/campdir/internal/auth"
	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/geocode"
	httpx "github.com/openlearnhq/campdir/internal/http"
	"github.com/openlearnhq/campdir/internal/http/handlers"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/observability"
	"github.com/openlearnhq/campdir/internal/storage"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// trace ids ride along on every log line once otel is up
	slog.SetDefault(slog.New(observability.NewTraceHandler(log.Handler())))

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "campdir-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// entity store
	connectCtx, cancel := config.WithTimeout(10 * time.Second)
	store, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB, prom)
	cancel()

	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}

	indexCtx, cancel := config.WithTimeout(15 * time.Second)
	err = store.EnsureIndexes(indexCtx)
	cancel()

	if err != nil {
		log.Error("index build failed", "err", err)
		os.Exit(1)
	}

	bootcampsRepo := mongodb.NewBootcampsRepo(store)
	coursesRepo := mongodb.NewCoursesRepo(store)
	reviewsRepo := mongodb.NewReviewsRepo(store)
	usersRepo := mongodb.NewUsersRepo(store)

	// geocoder, cached in redis when configured
	var geocoder geocode.Geocoder = geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderKey)

	var rdb *redis.Client

	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		geocoder = geocode.NewCached(geocoder, geocode.NewRedisStore(rdb, 24*time.Hour))
	} else {
		geocoder = geocode.NewCached(geocoder, geocode.NewMemoryStore(24*time.Hour))
	}

	photos, err := storage.NewDisk(cfg.UploadDir)

	if err != nil {
		log.Error("upload dir unavailable", "err", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTExpire)

	pingers := map[string]handlers.Pinger{"mongo": store}

	if rdb != nil {
		pingers["redis"] = redisPinger{rdb}
	}

	deps := httpx.Deps{
		Auth:      handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, cfg),
		Bootcamps: handlers.NewBootcampsHandler(bootcampsRepo, coursesRepo, geocoder, photos, cfg.MaxUploadBytes),
		Courses:   handlers.NewCoursesHandler(coursesRepo, bootcampsRepo),
		Reviews:   handlers.NewReviewsHandler(reviewsRepo, bootcampsRepo),
		Users:     handlers.NewUsersHandler(usersRepo),
		Health:    handlers.NewHealthHandler(pingers),
		AuthMW:    middlewares.NewAuthMiddleware(jwtManager, usersRepo),
		Prom:      prom,
		PromReg:   reg,
	}

	router := httpx.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := store.Close(sctx); err != nil {
			log.Error("mongo disconnect failed", "err", err)
		}

		if rdb != nil {
			_ = rdb.Close()
		}

		_ = shutdownTracer(sctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
