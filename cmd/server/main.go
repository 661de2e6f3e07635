package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stride/internal/audit"
	auditkafka "stride/internal/audit/kafka"
	auditmem "stride/internal/audit/store/memory"
	goalseed "stride/internal/goal/store"
	goalstore "stride/internal/goal/store/goal"
	"stride/internal/platform/config"
	"stride/internal/platform/httpserver"
	"stride/internal/platform/logger"
	appmetrics "stride/internal/platform/metrics"
	platformredis "stride/internal/platform/redis"
	"stride/internal/schedule"
	schedulehandler "stride/internal/schedule/handler"
	schedmetrics "stride/internal/schedule/metrics"
	"stride/internal/schedule/snapshot"
	"stride/internal/token"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	appMetrics := appmetrics.New()
	engineMetrics := schedmetrics.New()

	// Goals: Postgres when configured, in-memory with demo data otherwise.
	var goals schedule.GoalStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := goalstore.NewPostgres(db)
		if err := pg.Migrate(context.Background()); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		goals = pg
		log.Info("using postgres goal store")
	} else {
		mem := goalstore.NewInMemory()
		userID, g := goalseed.SeedDemoUser(mem)
		goals = mem
		log.Info("using in-memory goal store with demo data",
			"demo_user_id", userID, "demo_goal_id", g.ID)
	}

	opts := []schedule.Option{
		schedule.WithLogger(log),
		schedule.WithMetrics(engineMetrics),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, schedule.WithSnapshotStore(
			snapshot.NewRedisStore(redisClient.Client, snapshot.WithTTL(cfg.SnapshotTTL))))
		log.Info("worklist snapshots backed by redis")
	} else {
		opts = append(opts, schedule.WithSnapshotStore(snapshot.NewInMemory()))
	}

	// Audit: Kafka when brokers are configured, in-memory otherwise.
	var sink audit.Appender = auditmem.NewInMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := auditkafka.NewSink(cfg.KafkaBrokers)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events published to kafka", "brokers", cfg.KafkaBrokers)
	}
	opts = append(opts, schedule.WithAuditPublisher(audit.NewPublisher(sink)))

	scheduleService := schedule.New(goals, opts...)
	jwtService := token.NewJWTService(cfg.JWTSigningKey)

	router := chi.NewRouter()
	schedulehandler.New(scheduleService, log, appMetrics, jwtService).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting stride", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := httpserver.Shutdown(srv); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
