package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/config"
	"tg_funnel_bot/internal/domain"
	"tg_funnel_bot/internal/funnel"
	"tg_funnel_bot/internal/gateway"
	"tg_funnel_bot/internal/health"
	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/sched"
	"tg_funnel_bot/internal/store"
	"tg_funnel_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	tasksShutdownTimeout    = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":        "startup",
		"mongo_db":     cfg.MongoDB,
		"gate_enabled": cfg.GateEnabled(),
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	userRepository := domain.NewUserRepository(mongoManager.Users())
	mediaVault := store.NewMediaVault(mongoManager.Media())
	content := catalog.New(cfg)
	tracker := sched.NewTracker()

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	gw, err := gateway.NewClient(tgClient.Bot(), logger, gateway.WithSentHook(tracker.MarkSent))
	if err != nil {
		logger.WithError(err).Error("gateway setup error")
		fmt.Fprintf(os.Stderr, "gateway setup error: %v\n", err)
		os.Exit(1)
	}

	runner := sched.NewRunner(context.Background(), logger)

	engine, err := funnel.New(cfg, userRepository, gw, content, tracker, runner, logger)
	if err != nil {
		logger.WithError(err).Error("funnel engine setup error")
		fmt.Fprintf(os.Stderr, "funnel engine setup error: %v\n", err)
		os.Exit(1)
	}

	if err := tgClient.Attach(engine, userRepository, mediaVault, gw, content); err != nil {
		logger.WithError(err).Error("telegram routing setup error")
		fmt.Fprintf(os.Stderr, "telegram routing setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	tasksCtx, cancelTasks := context.WithTimeout(context.Background(), tasksShutdownTimeout)
	if err := runner.Shutdown(tasksCtx); err != nil {
		logger.WithField("event", "tasks_shutdown_timeout").Warn("timed out waiting for background tasks")
	} else {
		logger.WithField("event", "tasks_stopped").Info("background tasks stopped")
	}
	cancelTasks()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Warn("health server shutdown error")
	}
	cancelHealth()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
