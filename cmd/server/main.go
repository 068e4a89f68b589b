package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"livingbookshelf/internal/app"
	"livingbookshelf/internal/config"
	"livingbookshelf/internal/scheduler"
	"livingbookshelf/internal/server"
	"livingbookshelf/internal/util"
	"livingbookshelf/pkg/ai"
	"livingbookshelf/pkg/mail"
	"livingbookshelf/pkg/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	schedulerInterval, err := config.ParseSchedulerInterval(cfg.SchedulerInterval)
	if err != nil {
		log.Fatalf("failed to parse scheduler interval: %v", err)
	}

	var st store.Store
	if cfg.StoreDriver == config.DriverMemory {
		slog.Warn("using in-memory store, data will not survive restarts")
		st = store.NewMemoryStore()
	} else {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init store: %v", err)
		}
		st = gormStore
	}

	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	generator := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	dispatcher := mail.New(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		SSL:      cfg.SMTPSecure,
	})

	appCore, err := app.New(app.Config{
		Store:     st,
		Sessions:  sessions,
		Generator: generator,
		Mail:      dispatcher,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		ClientOrigin:             cfg.ClientOrigin,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		TrustedProxies:           config.ParseTrustedProxies(cfg.TrustedProxies),
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(st, appCore, schedulerInterval)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		sched.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
