package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecall-platform/internal/agents"
	"telecall-platform/internal/audit"
	"telecall-platform/internal/automation"
	"telecall-platform/internal/compliance"
	"telecall-platform/internal/config"
	"telecall-platform/internal/dispatch"
	"telecall-platform/internal/events"
	"telecall-platform/internal/httpapi"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/routing"
	"telecall-platform/internal/sessions"
	"telecall-platform/internal/telephony"
	"telecall-platform/internal/webhooks"
	"telecall-platform/pkg/logger"
	"telecall-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local runs load configuration from an env file; deployments set real env.
	_ = godotenv.Load(".env")

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

	// Stores
	leadRepo := leads.NewPostgresRepo(db)
	agentRepo := agents.NewPostgresRepo(db)
	sessionRepo := sessions.NewPostgresRepo(db)
	webhookLogs := webhooks.NewPostgresLogRepo(db)
	triggerStore := automation.NewPostgresStore(db)
	auditor := audit.NewService(audit.NewPostgresRepo(db))

	// Compliance
	counter := compliance.NewRedisCounter(rdb)
	gate := compliance.NewGate(compliance.NewRedisDND(rdb), counter)
	gate.DailyCap = cfg.Calls.DailyCap

	// Telephony
	var dialer telephony.Dialer
	if cfg.Telephony.Provider == "twilio" {
		dialer, err = telephony.NewTwilioDialer(telephony.TwilioConfig{
			AccountSID:        cfg.Telephony.AccountSID,
			AuthToken:         cfg.Telephony.AuthToken,
			CallerID:          cfg.Telephony.CallerID,
			StatusCallbackURL: cfg.Telephony.StatusCallbackURL,
		})
		if err != nil {
			log.Error("twilio init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("telephony provider is noop; calls will not be placed")
		dialer = &telephony.NoopDialer{}
	}

	// Core services
	bus := events.NewBus(log)
	svc := sessions.NewService(sessionRepo, gate, counter, dialer, leadRepo, auditor, bus)
	svc.StalenessThreshold = cfg.Calls.StalenessThreshold
	svc.CallbackURL = cfg.Telephony.StatusCallbackURL

	stats := sessions.NewStatsAdapter(sessionRepo, triggerStore)
	directory := agents.NewDirectory(agentRepo, stats)
	directory.FreshnessWindow = cfg.Calls.FreshnessWindow

	engine := routing.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
	dispatcher := dispatch.NewDispatcher(directory, engine, agents.NewRedisReserver(rdb), svc, leadRepo, agentRepo, log)
	dispatcher.ReservationTTL = cfg.Calls.ReservationTTL

	auto := automation.NewEngine(automation.NewSessionHistory(sessionRepo), leadRepo,
		automation.NewStoreEffector(triggerStore), auditor, log)
	bus.Subscribe(auto.HandleSessionEnded)

	processor := webhooks.NewProcessor(cfg.Telephony.WebhookSecret, cfg.Telephony.Provider,
		webhookLogs, svc, auditor, log)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	httpapi.Register(r, httpapi.Handlers{
		Sessions:   svc,
		Dispatcher: dispatcher,
		Automation: auto,
		Leads:      leadRepo,
	}, webhooks.NewHandler(processor))

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
