package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/conference"
	"dialer-platform/internal/config"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/recording"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/routing"
	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Core wiring: sessions, directives, provider, listeners.
	sessions := calls.NewPostgresStore(db)
	machine := calls.NewStateMachine(sessions)

	callbackBase := cfg.Telephony.CallbackBaseURL
	builder := telephony.DirectiveBuilder{
		CallerID:             cfg.Telephony.CallerID,
		DefaultForwardNumber: cfg.Telephony.DefaultForwardNumber,
		CountryPrefix:        cfg.Telephony.CountryPrefix,
		FallbackCountryCode:  cfg.Telephony.FallbackCountryCode,
		RecordingCallbackURL: callbackBase + "/webhooks/telephony/recording",
		HoldMusicURL:         cfg.Telephony.HoldMusicURL,
	}
	provider := telephony.NewRESTProvider(cfg.Telephony, cfg.Dialer.OriginateTimeout)

	auditor := audit.NewService(audit.NewPostgresRepo(db))

	recordings := recording.NewManager(machine, provider, builder, auditor, cfg.Dialer.OriginateTimeout)
	machine.OnAnswered(recordings)

	campaigns := campaign.NewPostgresRepo(db)
	orchestrator := campaign.NewOrchestrator(
		campaigns,
		machine,
		provider,
		campaign.NewRedisSemaphore(rdb, time.Hour),
		auditor,
		campaign.Options{
			CallerID:          cfg.Telephony.CallerID,
			VoiceURL:          callbackBase + "/webhooks/telephony/voice",
			StatusCallbackURL: callbackBase + "/webhooks/telephony/status",
			MaxOutstanding:    cfg.Dialer.MaxOutstandingPerCampaign,
			OriginateTimeout:  cfg.Dialer.OriginateTimeout,
		},
	)
	machine.OnOutcome(orchestrator)

	bridges := conference.NewManager(conference.NewPostgresRepo(db))
	machine.OnOutcome(&conference.CallEndListener{Bridges: bridges, Calls: machine})

	webhooks := &telephony.WebhookHandlers{
		Machine:  machine,
		Resolver: routing.Resolver{},
		Builder:  builder,
		Bridges:  bridges,
	}
	api := httpapi.Handlers{
		Auth:       authManager,
		Campaigns:  orchestrator,
		Recordings: recordings,
		Reports:    reporting.NewService(sessions, campaigns),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), webhooks, api)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
