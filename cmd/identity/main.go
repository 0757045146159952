package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"accord/internal/events"
	"accord/internal/identity/handler"
	"accord/internal/identity/service"
	userstore "accord/internal/identity/store/user"
	"accord/internal/identity/tokens"
	"accord/internal/platform/config"
	"accord/internal/platform/httpserver"
	"accord/internal/platform/kafka/producer"
	"accord/internal/platform/logger"
	"accord/internal/platform/metrics"
	platformredis "accord/internal/platform/redis"
)

// main wires the identity service: user store, confirmation tokens, Kafka
// producer, HTTP surface. Business logic lives in the internal packages.
func main() {
	cfg := config.IdentityFromEnv()
	log := logger.New("identity")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("accord_identity")

	var users service.UserStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		users = userstore.NewPostgres(db)
	} else {
		log.Warn("IDENTITY_DATABASE_URL not set, using in-memory user store")
		users = userstore.New()
	}

	var tokenStore service.TokenStore
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		tokenStore = tokens.NewRedis(redisClient.Client)
	} else {
		log.Warn("REDIS_URL not set, using in-memory token store")
		tokenStore = tokens.NewInMemory()
	}

	if err := producer.EnsureTopics(ctx, cfg.KafkaBrokers,
		events.TopicUserRegistered,
		events.TopicUserEmailConfirmed,
	); err != nil {
		log.Error("ensure topics", "error", err)
		os.Exit(1)
	}

	pub, err := producer.New(cfg.KafkaBrokers, log, m)
	if err != nil {
		log.Error("create producer", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	svc := service.New(users, tokenStore, pub, log, m,
		[]byte(cfg.JWTSigningKey), cfg.TokenTTL, cfg.ConfirmTTL)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("identity service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("identity service exited", "error", err)
		os.Exit(1)
	}
	log.Info("identity service stopped")
}
