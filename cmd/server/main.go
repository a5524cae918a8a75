package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dennisdiepolder/monti/agentdesk/internal/aggregator"
	"github.com/dennisdiepolder/monti/agentdesk/internal/api"
	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/config"
	"github.com/dennisdiepolder/monti/agentdesk/internal/contactqueue"
	"github.com/dennisdiepolder/monti/agentdesk/internal/crmapi"
	"github.com/dennisdiepolder/monti/agentdesk/internal/event"
	"github.com/dennisdiepolder/monti/agentdesk/internal/events"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ingestion"
	"github.com/dennisdiepolder/monti/agentdesk/internal/messaging"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/telephony"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ticker"
	"github.com/dennisdiepolder/monti/agentdesk/internal/websocket"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/dennisdiepolder/monti/agentdesk/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("crm", cfg.CRMBaseURL).
		Bool("skip_auth", cfg.SkipAuth).
		Msg("starting agentdesk server")

	if !cfg.SkipAuth {
		if err := auth.InitJWKS(cfg.OIDCIssuer); err != nil {
			log.Fatal().Err(err).Str("issuer", cfg.OIDCIssuer).Msg("failed to load JWKS")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence and outbound events
	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create store")
	}

	publisher, err := events.NewPublisher(events.Config{
		Mode:  events.Mode(cfg.EventsMode),
		URL:   cfg.AMQPURL,
		Queue: cfg.AMQPQueue,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	crm := crmapi.New(crmapi.Config{
		BaseURL: cfg.CRMBaseURL,
		Token:   cfg.CRMToken,
		Timeout: cfg.CRMTimeout,
	}, log.Logger)

	normalizer := telephony.NewNormalizer(cfg.PhoneRegion)

	// Presence and softphone ingestion
	eventCache := cache.NewEventCache()
	presence := cache.NewPresenceTracker(clock.Real{})
	processor := ingestion.NewDefaultProcessor(presence, eventCache, log.Logger)

	agentHub := websocket.NewAgentHub(presence, processor, log.Logger)
	go agentHub.Run()

	bridge := telephony.NewBridge(agentHub, normalizer, log.Logger)

	// Outbound messaging
	var emailSender messaging.EmailSender = messaging.NewLogEmailSender(log.Logger)
	if cfg.SMTPEnabled() {
		emailSender = messaging.NewSMTPSender(messaging.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromName:  cfg.SMTPFromName,
			FromEmail: cfg.SMTPFromEmail,
			Timeout:   cfg.CRMTimeout,
		}, log.Logger)
	}

	var smsSender messaging.SMSSender = messaging.NewLogSMSSender(log.Logger)
	if cfg.SMSEnabled() {
		smsSender = messaging.NewHTTPGateway(messaging.GatewayConfig{
			URL:       cfg.SMSGatewayURL,
			Token:     cfg.SMSToken,
			Sender:    cfg.SMSSender,
			PerSecond: cfg.SMSPerSecond,
			Burst:     1,
			Timeout:   cfg.CRMTimeout,
		}, log.Logger)
	}

	// Agent sessions
	manager := workspace.NewManager(workspace.Deps{
		CRM:         crm,
		Phone:       bridge,
		Normalizer:  normalizer,
		Email:       emailSender,
		SMS:         smsSender,
		Store:       store,
		Events:      publisher,
		Notifier:    agentHub,
		Lifecycle:   presence,
		Clock:       clock.Real{},
		Engine:      contactqueue.NewEngine(),
		WrapUpDelay: cfg.WrapUpDelay,
		Logger:      log.Logger,
	})
	processor.SetCallStateHandler(manager)

	// Supervisor roster
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	rosterService := aggregator.NewAggregator(manager, presence, eventCache, hub, cfg.RosterInterval, log.Logger)
	go rosterService.Start(ctx)

	clockService := ticker.NewTicker(manager, agentHub, cfg.ClockInterval, log.Logger)
	go clockService.Start(ctx)

	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)
	agentHandler := websocket.NewAgentHandler(agentHub, cfg, log.Logger)
	eventReceiver := event.NewReceiver(processor, cfg.WebhookToken, log.Logger)

	// Create router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Get().Handler())

	// PBX webhook, guarded by its shared secret instead of a user token
	r.Route("/internal/telephony", func(r chi.Router) {
		r.Post("/events", eventReceiver.HandleEvent)
		r.Get("/stats", eventReceiver.GetStats)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws/agent", agentHandler.ServeHTTP)
		r.Get("/ws/supervisor", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			api.NewWorkspaceHandler(manager, crm, cfg.SkipAuth, log.Logger).Routes(r)
			api.NewBillingHandler(crm, publisher, cfg.SubmitTimeout, cfg.SkipAuth, log.Logger).Routes(r)
			api.NewQRHandler(cfg.QRSize, log.Logger).Routes(r)
			api.NewAdminHandler(manager, agentHub, presence, store, log.Logger).Routes(r)

			roster := api.NewRosterHandler(rosterService, log.Logger)
			r.With(api.RequireManagerOrAdmin).Get("/roster", roster.GetRoster)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop roster and clock broadcasts
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Ends open shifts so their sessions are recorded
	manager.CloseAll(shutdownCtx)

	log.Info().Int("sessions", manager.Count()).Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"agentdesk"}`)
}
