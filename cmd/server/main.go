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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"clubhouse/internal/adapters/email"
	web "clubhouse/internal/adapters/http"
	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/adapters/metrics"
	"clubhouse/internal/adapters/storage"
	accountStore "clubhouse/internal/adapters/storage/account"
	activityStore "clubhouse/internal/adapters/storage/activity"
	applicationStore "clubhouse/internal/adapters/storage/application"
	athleteStore "clubhouse/internal/adapters/storage/athlete"
	auditStore "clubhouse/internal/adapters/storage/audit"
	checkinStore "clubhouse/internal/adapters/storage/checkin"
	clubStore "clubhouse/internal/adapters/storage/club"
	guardStore "clubhouse/internal/adapters/storage/guard"
	outboxStore "clubhouse/internal/adapters/storage/outbox"
	registrationStore "clubhouse/internal/adapters/storage/registration"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/application/orchestrators"
	"clubhouse/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	setupLogging(cfg)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	schema, _, err := storage.SchemaVersion(db.DB)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	stores := web.Stores{
		AccountStore:      accountStore.NewSQLiteStore(timedDB),
		ClubStore:         clubStore.NewSQLiteStore(timedDB),
		AthleteStore:      athleteStore.NewSQLiteStore(timedDB),
		ApplicationStore:  applicationStore.NewSQLiteStore(timedDB),
		ActivityStore:     activityStore.NewSQLiteStore(timedDB),
		RegistrationStore: registrationStore.NewSQLiteStore(timedDB),
		CheckInStore:      checkinStore.NewSQLiteStore(timedDB),
		AuditStore:        auditStore.NewSQLiteStore(timedDB),
		OutboxStore:       outboxStore.NewSQLiteStore(timedDB),
	}
	metrics.RegisterOutboxBacklog(registry, stores.OutboxStore)
	generateID := func() string { return uuid.New().String() }

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminEmail != "" {
		seedDeps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, Now: time.Now, GenerateID: generateID}
		if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	var sender email.Sender
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.EmailReplyTo)
		slog.Info("email_event", "event", "sender_configured", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_event", "event", "delivery_disabled", "reason", "CLUBHOUSE_RESEND_KEY is not set")
		}
	}

	revalidator := dispatch.NewRevalidator()
	notifier := dispatch.New([]dispatch.Sink{
		dispatch.LogSink{},
		revalidator,
		&dispatch.OutboxSink{
			Accounts:   stores.AccountStore,
			Athletes:   stores.AthleteStore,
			Outbox:     stores.OutboxStore,
			GenerateID: generateID,
			Now:        time.Now,
		},
	}, dispatch.WithRecorder(collector))

	stopWorker := orchestrators.StartOutboxWorker(ctx, orchestrators.OutboxDeliveryDeps{
		OutboxStore: stores.OutboxStore,
		Sender:      sender,
		Recorder:    collector,
		Now:         time.Now,
	}, orchestrators.OutboxWorkerConfig{Enabled: cfg.OutboxWorker, Interval: cfg.OutboxInterval})
	defer stopWorker()

	srv := web.NewServer(web.Config{
		CSRFKey:        cfg.CSRFKey(),
		SecureCookies:  cfg.SecureCookies,
		TrustedOrigins: cfg.TrustedOrigins,
		SessionTTL:     cfg.SessionTTL,
		RateLimit: middleware.RateLimiterConfig{
			Rate:            rate.Limit(cfg.RateLimit),
			Burst:           cfg.RateBurst,
			CleanupInterval: middleware.DefaultRateLimiterConfig().CleanupInterval,
		},
		SlowRequest: cfg.SlowRequest,
		Location:    cfg.Location(),
		Requests:    collector,
		Metrics:     metrics.Handler(registry),
	}, web.Deps{
		Stores:      stores,
		Tx:          storage.NewTransactor(timedDB),
		Guard:       guardStore.NewSQLiteChecker(timedDB),
		Notifier:    notifier,
		Revalidator: revalidator,
		Sender:      sender,
		Deliveries:  collector,
		Now:         time.Now,
		GenerateID:  generateID,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", schema)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_stopping", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func setupLogging(cfg config.Config) {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
