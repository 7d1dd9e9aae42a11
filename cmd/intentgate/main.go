package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	ighttp "github.com/central73/intentgate/internal/adapter/http"
	"github.com/central73/intentgate/internal/adapter/llmjudge"
	ignats "github.com/central73/intentgate/internal/adapter/nats"
	igotel "github.com/central73/intentgate/internal/adapter/otel"
	"github.com/central73/intentgate/internal/adapter/ristretto"
	_ "github.com/central73/intentgate/internal/adapter/slack"
	"github.com/central73/intentgate/internal/adapter/ws"
	"github.com/central73/intentgate/internal/config"
	"github.com/central73/intentgate/internal/domain/constitution"
	"github.com/central73/intentgate/internal/logger"
	"github.com/central73/intentgate/internal/middleware"
	"github.com/central73/intentgate/internal/port/messagequeue"
	"github.com/central73/intentgate/internal/port/notifier"
	"github.com/central73/intentgate/internal/port/scorer"
	"github.com/central73/intentgate/internal/resilience"
	"github.com/central73/intentgate/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLogger.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"constitution", cfg.Constitution.Path,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := igotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	metrics, err := igotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// NATS (optional)
	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := ignats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
	}

	// Constitution store, cached when a TTL is configured
	var store *constitution.Store
	if cfg.Constitution.CacheTTL > 0 {
		l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer l1.Close()

		store, err = constitution.NewCachedStore(cfg.Constitution.Path, l1, cfg.Constitution.CacheTTL)
		if err != nil {
			return fmt.Errorf("constitution store: %w", err)
		}
		defer func() { _ = store.Close() }()
	} else {
		store = constitution.NewStore(cfg.Constitution.Path)
	}

	// Fail fast on an unreadable constitution.
	if _, err := store.Load(ctx); err != nil {
		return fmt.Errorf("constitution: %w", err)
	}

	// --- Services ---
	hub := ws.NewHub()

	constitutionSvc := service.NewConstitutionService(store)
	confirmations := service.NewConfirmationService(hub, cfg.Confirmation.WaitTimeout)
	auditor := service.NewAuditor(queue, metrics, hub)
	governor := service.NewGovernorService(constitutionSvc, confirmations, auditor)

	for _, action := range demoActions() {
		if err := governor.RegisterAction(action); err != nil {
			return fmt.Errorf("register action: %w", err)
		}
	}

	// Escalation sinks
	var sinks []notifier.Notifier
	if cfg.Escalation.SlackWebhookURL != "" {
		sink, err := notifier.New("slack", map[string]string{"webhook_url": cfg.Escalation.SlackWebhookURL})
		if err != nil {
			return fmt.Errorf("escalation sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	notifications := service.NewNotificationService(sinks)

	// Judge
	var judgeScorer scorer.Scorer
	if cfg.Judge.ScorerURL != "" {
		client := llmjudge.NewClient(cfg.Judge.ScorerURL, cfg.Judge.ScorerAPIKey, cfg.Judge.ScorerModel)
		client.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		judgeScorer = client
	}
	judge := service.NewJudgeService(judgeScorer, notifications, hub, queue, metrics, cfg.Judge.CriteriaPath, cfg.Judge.Threshold, cfg.Judge.Background)
	defer judge.Close()

	intent := service.NewIntentService(cfg.Intent.Base, cfg.Intent.Strategies)

	// --- HTTP ---
	handlers := ighttp.NewHandlers(governor, confirmations, judge, intent, store)

	r := chi.NewRouter()

	// Middleware
	r.Use(ighttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(ighttp.Logger)
	r.Use(igotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	// Health endpoint with service status
	r.Get("/health", healthHandler(cfg, queue))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// API routes
	ighttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(cfg *config.Config, queue messagequeue.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status       string `json:"status"`
		Constitution string `json:"constitution"`
		NATS         string `json:"nats"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		natsStatus := "disabled"
		if queue != nil {
			natsStatus = "disconnected"
			if queue.IsConnected() {
				natsStatus = "connected"
			}
		}
		status := healthStatus{
			Status:       "ok",
			Constitution: cfg.Constitution.Path,
			NATS:         natsStatus,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
