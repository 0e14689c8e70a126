package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/repo/cached"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := config.WithTimeout(30 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, cfg.OTelServiceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(startCtx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(startCtx, pool); err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var users accounts.UserStore = postgres.NewUsersRepo(pool, prom)
	if cfg.UserCacheTTL > 0 {
		users = cached.NewUsersRepo(users, cfg.UserCacheTTL)
	}

	hasher := security.NewHasher(security.DefaultCost)

	if err := db.EnsureSeedUser(startCtx, users, hasher, cfg.SeedUserEmail, cfg.SeedUserPassword); err != nil {
		log.Error("seed user failed", "err", err)
		os.Exit(1)
	}

	blobs, err := storage.NewS3Store(startCtx, storage.S3Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		log.Error("blob store init failed", "err", err)
		os.Exit(1)
	}

	tokens := auth.NewManager(cfg.JWTSecret, auth.DefaultTTL)
	svc := accounts.NewService(users, hasher, tokens, log, prom)

	health := handlers.NewHealthHandler(pool)

	// set up routers with the log
	router := httpx.NewRouter(log, httpx.Deps{
		Env:            cfg.Env,
		ServiceName:    cfg.OTelServiceName,
		Accounts:       svc,
		Cookies:        auth.NewCookiePolicy(tokens.TTL(), cfg.CookieSecure),
		Tokens:         tokens,
		Users:          users,
		Blobs:          blobs,
		Health:         health,
		Prom:           prom,
		Gatherer:       reg,
		LoginPath:      cfg.LoginPath,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
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
	health.Drain()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
