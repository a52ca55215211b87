package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"volume_guard_worker/internal/app"
	"volume_guard_worker/internal/clock"
	"volume_guard_worker/internal/infra/config"
	"volume_guard_worker/internal/infra/crypto"
	idb "volume_guard_worker/internal/infra/database"
	"volume_guard_worker/internal/infra/httpapi"
	"volume_guard_worker/internal/infra/logger"
	"volume_guard_worker/internal/infra/metrics"
	"volume_guard_worker/internal/infra/scheduler"
	"volume_guard_worker/internal/infra/stripestore"
	"volume_guard_worker/internal/infra/telegram"
	"volume_guard_worker/internal/infra/transfer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Volume Guard worker starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	log := logger.ForAccount(cfg.AccountID)
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"currency":    cfg.Currency,
		"timezone":    cfg.AccountTimezone,
		"dry_run":     cfg.DryRun,
	}).Info("Configuration loaded")

	secretKey := cfg.StripeSecretKey
	if secretKey == "" {
		secretKey, err = crypto.Decrypt(cfg.EncryptionSecretKey, cfg.StripeSecretKeyEncrypted)
		if err != nil {
			log.WithError(err).Fatal("Could not decrypt STRIPE_SECRET_KEY_ENCRYPTED")
		}
		log.Info("Stripe secret key decrypted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	periodClock, err := app.NewPeriodClock(clock.System{}, cfg.AccountTimezone, cfg.NewDateTime)
	if err != nil {
		log.WithError(err).Fatal("Could not build period clock")
	}

	recorder := metrics.New(prometheus.DefaultRegisterer, metrics.Config{AccountID: cfg.AccountID, Environment: cfg.Environment})
	store := stripestore.NewStore(secretKey, nil, log)

	// Post-reschedule hooks. Both are optional.
	var hooks []app.PostRescheduleHook
	var journal *idb.PostgresRescheduleJournal
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		journal = idb.NewPostgresRescheduleJournal(db, cfg.AccountID, log)
		if err := journal.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("Could not prepare reschedule journal")
		}
		hooks = append(hooks, journal)
		log.Info("Reschedule journal enabled")
	}
	if reporter := transfer.NewReporter(cfg.TransferLogURL, cfg.GatewaySecret, cfg.AccountID, nil, log); reporter != nil {
		hooks = append(hooks, reporter)
		log.Info("Transfer reporter enabled")
	}

	// Telegram is optional. Without a token alerts become no-ops.
	var bot *telebot.Bot
	var tgClient *telegram.TelebotAdapter
	if cfg.TelegramToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := log.WithError(err)
				if c != nil && c.Chat() != nil {
					entry = entry.WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			log.WithError(err).Fatal("Could not create Telegram bot")
		}
		tgClient = telegram.NewTelebotAdapter(bot)
	}
	var alertChannel *telegram.AlertChannel
	if tgClient != nil {
		alertChannel = telegram.NewAlertChannel(tgClient, cfg.TelegramChatID, log)
	} else {
		alertChannel = telegram.NewAlertChannel(nil, cfg.TelegramChatID, log)
	}

	guard, err := app.NewVolumeGuard(
		app.Settings{
			AccountID:  cfg.AccountID,
			Currency:   cfg.Currency,
			DelayCycle: cfg.DelayCycleDays,
			DryRun:     cfg.DryRun,
		},
		cfg.DailyLimit,
		periodClock,
		app.NewVolumeAggregator(store, cfg.Currency, cfg.LookupConcurrency, recorder, log),
		app.NewInvoiceSelector(store, log),
		app.NewRescheduleExecutor(store, periodClock, hooks, recorder, log),
		app.NewNotificationDebouncer(alertChannel, recorder, log),
		recorder,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("Could not build volume guard")
	}

	if bot != nil {
		telegram.RegisterOperatorHandlers(ctx, bot, guard, cfg.TelegramChatID, cfg.Currency, log)
		go bot.Start()
		log.Info("Telegram operator commands registered")
	}

	sched := scheduler.NewVolumeGuardScheduler(guard, log, periodClock.Location(), cfg.CronSpecTick, cfg.CronSpecReset, cfg.TickTimeout)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("Could not start scheduler")
	}

	if cfg.Environment == "production" || cfg.Environment == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := httpapi.Options{
		Currency:      cfg.Currency,
		GatewaySecret: cfg.GatewaySecret,
		Today:         periodClock.Today,
		Gatherer:      prometheus.DefaultGatherer,
	}
	if journal != nil {
		opts.Counter = journal
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(guard, opts, log).Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Control plane listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Control plane stopped")
		}
	}()

	log.Info("Application setup complete. Scheduler and control plane are running.")

	<-ctx.Done()
	log.Info("Shutting down application...")

	sched.Stop()
	if bot != nil {
		bot.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Control plane did not shut down cleanly")
	}
	log.Info("Application shut down gracefully.")
}
