package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outreach/internal/location"
	"outreach/internal/membership"
	"outreach/internal/platform/config"
	"outreach/internal/platform/httpserver"
	"outreach/internal/platform/kafka"
	"outreach/internal/platform/logger"
	"outreach/internal/platform/middleware"
	platformmongo "outreach/internal/platform/mongo"
	platformredis "outreach/internal/platform/redis"
	"outreach/internal/program/handler"
	programmetrics "outreach/internal/program/metrics"
	"outreach/internal/program/service"
	programstore "outreach/internal/program/store"
	"outreach/internal/role"
	"outreach/internal/user"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := platformmongo.New(ctx, cfg.Mongo)
	if err != nil {
		log.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		log.Error("kafka connect failed", "error", err)
		os.Exit(1)
	}

	memberships, err := membership.NewMongoStore(ctx, mongoClient.Collection("program_users"))
	if err != nil {
		log.Error("membership index setup failed", "error", err)
		os.Exit(1)
	}

	directory := location.NewCachedDirectory(location.NewHTTPDirectory(cfg.Directory), redisClient, log)
	svc := service.New(
		programstore.NewMongoStore(mongoClient.Collection("programs")),
		memberships,
		location.NewResolver(directory),
		role.NewAdapter(role.NewMongoCatalog(mongoClient.Collection("user_roles"))),
		user.NewHTTPClient(cfg.UserSvc),
		membership.NewKafkaPublisher(producer, log),
		service.WithLogger(log),
		service.WithMetrics(programmetrics.New()),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := mongoClient.Health(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(log))
		handler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting outreach server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	producer.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if err := mongoClient.Close(shutdownCtx); err != nil {
		log.Error("mongo close failed", "error", err)
	}
}
