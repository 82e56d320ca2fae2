package main

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

	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/cache"
	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/db"
	httpx "github.com/geocoder89/coursehub/internal/http"
	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/geocoder89/coursehub/internal/redisclient"
	"github.com/geocoder89/coursehub/internal/repo/memory"
	"github.com/geocoder89/coursehub/internal/repo/mongodb"
	"github.com/geocoder89/coursehub/internal/revocation"
	"github.com/geocoder89/coursehub/internal/security"
	"github.com/geocoder89/coursehub/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "coursehub",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.PingFunc{}

	var (
		users   httpx.UserRepo
		courses httpx.CourseRepo
	)

	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using the in-memory store, data is lost on restart")
		users = memory.NewUsersRepo()
		courses = memory.NewCoursesRepo()
	default:
		client, database, err := db.Connect(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Error("mongo connect failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			dctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		users = mongodb.NewUsersRepo(database, prom)
		courses = mongodb.NewCoursesRepo(database, prom)
		checks["mongo"] = db.Pinger(client)
	}

	hasher := security.BcryptHasher{}

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	err = db.EnsureAdminUser(seedCtx, users, hasher, cfg)
	cancelSeed()
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	filterCache := cache.NewBounded[handlers.FilterPage](cfg.FilterCacheSize, cfg.FilterCacheTTL)
	sweep := map[string]worker.Sweeper{}

	var denylist revocation.Denylist

	rctx, cancelRedis := config.WithTimeout(3 * time.Second)
	rdb, err := redisclient.Connect(rctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cancelRedis()

	if err == nil {
		defer rdb.Close()
		denylist = revocation.NewRedisDenylist(rdb.Raw())
		checks["redis"] = rdb.Ping
	} else {
		if errors.Is(err, redisclient.ErrNotConfigured) {
			log.Info("redis not configured, token denylist is per-process")
		} else {
			log.Warn("redis unavailable, token denylist is per-process", "err", err)
		}
		mem := revocation.NewMemoryDenylist()
		sweep["denylist"] = mem
		denylist = mem
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	if len(sweep) > 0 {
		go func() {
			_ = worker.NewJanitor(worker.Config{Interval: time.Minute}, log, sweep).Run(janitorCtx)
		}()
	}

	// set up routers
	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Users:    users,
		Courses:  courses,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Denylist: denylist,
		Hasher:   hasher,
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,

		FilterCache: filterCache,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
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
	stopJanitor()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
