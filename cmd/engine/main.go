package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/audit"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/channels"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/config"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/engine"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/genai"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/idempotency"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/rules"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/scheduler"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting automation engine")

	source, claimer, sink, err := buildBackends(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage backends: %v", err)
	}

	var generator genai.Generator
	if cfg.GenerationAPIKey != "" {
		generator = genai.NewOpenAIClient(cfg.GenerationBaseURL, cfg.GenerationAPIKey, cfg.GenerationModel,
			time.Duration(cfg.GenerationTimeoutMS)*time.Millisecond)
	}

	platform := channels.NewPlatformClient(cfg.PlatformAPIBaseURL, cfg.PlatformAPIToken)
	adapters := engine.Adapters{
		DirectMessenger: platform,
		PublicReplier:   platform,
		WebhookCaller:   channels.NewWebhookClient(),
	}
	if cfg.SMTPHost != "" {
		adapters.EmailSender = channels.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	}

	var limiter engine.Limiter
	if cfg.RateLimitPerWindow > 0 {
		limiter = engine.NewWindowLimiter(cfg.RateLimitPerWindow, time.Duration(cfg.RateLimitWindowSecs)*time.Second)
	}

	eng := engine.New(source, claimer, generator, adapters, sink, limiter, engine.Options{
		MaxConcurrentRules: cfg.MaxConcurrentRules,
		FirstMatchOnly:     cfg.FirstMatchOnly,
		GenerationTimeout:  time.Duration(cfg.GenerationTimeoutMS) * time.Millisecond,
		ScheduleWindow:     time.Duration(cfg.SweepIntervalSecs) * time.Second,
		DefaultReply:       cfg.DefaultReply,
	})

	// Time-trigger sweeper
	sweeper := scheduler.NewService(eng, source, cfg.SweepWorkspaces, time.Duration(cfg.SweepIntervalSecs)*time.Second)
	if err := sweeper.Start(); err != nil {
		logrus.Fatalf("Failed to start sweeper: %v", err)
	}
	defer sweeper.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(eng)).Methods("GET")
	router.HandleFunc("/events", eventHandler(eng)).Methods("POST")
	router.HandleFunc("/rules/{id}/run", manualRunHandler(eng)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func buildBackends(cfg *config.Config) (rules.Source, idempotency.Claimer, audit.Sink, error) {
	if cfg.UseMemoryBackends {
		logrus.Warn("Using in-memory backends; rules and claims are not shared across instances")
		return rules.NewMemorySource(), idempotency.NewMemoryClaimer(), audit.NopSink{}, nil
	}

	source, err := rules.NewAzureSource(cfg.StorageAccount, cfg.RulesContainer)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rule source: %w", err)
	}

	claimer, err := idempotency.NewAzureClaimer(cfg.StorageAccount, cfg.ClaimsContainer)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("claim store: %w", err)
	}

	sink, err := audit.NewAzureSink(cfg.StorageAccount, cfg.AuditContainer)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("audit sink: %w", err)
	}

	return source, claimer, sink, nil
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(eng.GetMetrics()))
	}
}

func eventHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event models.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid event payload: %v", err))
			return
		}
		if event.WorkspaceID == "" || event.ExternalEventID == "" {
			writeError(w, http.StatusBadRequest, "workspace_id and external_event_id are required")
			return
		}

		result := eng.Evaluate(r.Context(), event)

		// The caller gets 200 even when channels failed, so platform
		// webhooks do not retry-storm; the body says what happened.
		status := http.StatusOK
		if !result.OK {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, result)
	}
}

func manualRunHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID := mux.Vars(r)["id"]

		var event models.Event
		if r.Body != nil {
			// Body is optional for manual runs
			_ = json.NewDecoder(r.Body).Decode(&event)
		}
		if event.Platform == "" {
			event.Platform = models.PlatformManual
		}
		if event.ExternalEventID == "" {
			event.ExternalEventID = fmt.Sprintf("manual-%s-%d", ruleID, time.Now().UnixNano())
		}
		if event.WorkspaceID == "" {
			writeError(w, http.StatusBadRequest, "workspace_id is required")
			return
		}

		result := eng.RunRule(r.Context(), ruleID, event)

		status := http.StatusOK
		if !result.OK {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
