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
	orghandler "accord/internal/org/handler"
	orgservice "accord/internal/org/service"
	"accord/internal/org/store/invitation"
	"accord/internal/platform/config"
	"accord/internal/platform/httpserver"
	platformconsumer "accord/internal/platform/kafka/consumer"
	"accord/internal/platform/kafka/producer"
	"accord/internal/platform/logger"
	"accord/internal/platform/metrics"
	profileconsumer "accord/internal/profile/consumer"
	profilehandler "accord/internal/profile/handler"
	profileservice "accord/internal/profile/service"
	profilestore "accord/internal/profile/store"
)

// main wires the profile service: unit-of-work store, event consumers for
// the identity topics, HTTP read surface, org invitations.
func main() {
	cfg := config.ProfileFromEnv()
	log := logger.New("profile")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("accord_profile")

	var store profilestore.Factory
	var invitations orgservice.InvitationStore
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
		store = profilestore.NewPostgres(db)
		invitations = invitation.NewPostgresStore(db)
	} else {
		log.Warn("PROFILE_DATABASE_URL not set, using in-memory stores")
		store = profilestore.NewMemory()
		invitations = invitation.NewInMemoryStore()
	}

	// Dead-letter topics are created up front so a failed handler never
	// stalls on topic auto-creation.
	if err := producer.EnsureTopics(ctx, cfg.KafkaBrokers,
		events.TopicUserRegistered,
		events.TopicUserEmailConfirmed,
		events.TopicUserRegistered+platformconsumer.DeadLetterSuffix,
		events.TopicUserEmailConfirmed+platformconsumer.DeadLetterSuffix,
	); err != nil {
		log.Error("ensure topics", "error", err)
		os.Exit(1)
	}

	svc := profileservice.New(store, log, m)
	orgs := orgservice.New(invitations, log)

	cons, err := platformconsumer.New(
		platformconsumer.Config{
			Brokers:      cfg.KafkaBrokers,
			Group:        cfg.KafkaGroup,
			MaxAttempts:  cfg.MaxAttempts,
			RetryBackoff: cfg.RetryBackoff,
		},
		[]string{events.TopicUserRegistered, events.TopicUserEmailConfirmed},
		log, m,
	)
	if err != nil {
		log.Error("create consumer", "error", err)
		os.Exit(1)
	}
	cons.Register(events.TopicUserRegistered, profileconsumer.NewRegisteredHandler(svc, log))
	cons.Register(events.TopicUserEmailConfirmed, profileconsumer.NewConfirmedHandler(svc, log))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	profilehandler.New(svc, log).Register(router)
	orghandler.New(orgs, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("profile service listening", "addr", cfg.Addr, "group", cfg.KafkaGroup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cons.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("profile service exited", "error", err)
		os.Exit(1)
	}
	log.Info("profile service stopped")
}
