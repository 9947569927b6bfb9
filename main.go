package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"

	"github.com/Eursukkul/guesthouse-booking/config"
	"github.com/Eursukkul/guesthouse-booking/internal/appid"
	"github.com/Eursukkul/guesthouse-booking/internal/auth"
	"github.com/Eursukkul/guesthouse-booking/internal/consumer"
	"github.com/Eursukkul/guesthouse-booking/internal/events"
	"github.com/Eursukkul/guesthouse-booking/internal/feed"
	"github.com/Eursukkul/guesthouse-booking/internal/handler"
	"github.com/Eursukkul/guesthouse-booking/internal/middleware"
	"github.com/Eursukkul/guesthouse-booking/internal/notify"
	"github.com/Eursukkul/guesthouse-booking/internal/repository"
	"github.com/Eursukkul/guesthouse-booking/internal/service"
	"github.com/Eursukkul/guesthouse-booking/pkg/database"
	"github.com/Eursukkul/guesthouse-booking/pkg/rabbitmq"
)

const (
	notifyQueue = "guesthouse.notifications"
	feedQueue   = "guesthouse.admin-feed"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	if err := run(*envFile, *migrateOnly); err != nil {
		slog.Error("guesthouse-booking exited", "error", err)
		os.Exit(1)
	}
}

func run(envFile string, migrateOnly bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		return err
	}
	if migrateOnly {
		log.Info("migrations complete")
		return nil
	}

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	lookupRepo := repository.NewStatusLookupRepository(db)

	// Booking events fan out to the mail dispatcher and the admin feed, either
	// through RabbitMQ or in-process when no broker is configured.
	var (
		publisher events.Publisher
		bus       *events.LocalBus
		closers   []func()
		consumers []*consumer.EventConsumer
	)
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		closers = append(closers, p.Close)
		publisher = p
	} else {
		bus = events.NewLocalBus(log)
		publisher = bus
		log.Info("RABBITMQ_URL not set, delivering booking events in-process")
	}

	// Service
	manager := service.NewRecordManager(bookingRepo, lookupRepo, appid.NewGenerator(cfg.AppIDPrefix), publisher,
		service.WithLogger(log),
	)

	dispatcher := notify.NewDispatcher(notify.Config{
		Endpoint:  cfg.Mail.Endpoint,
		ServiceID: cfg.Mail.ServiceID,
		PublicKey: cfg.Mail.PublicKey,
		Templates: map[notify.Template]string{
			notify.TemplateSubmitted: cfg.Mail.TemplateSubmitted,
			notify.TemplateApproved:  cfg.Mail.TemplateApproved,
			notify.TemplateRejected:  cfg.Mail.TemplateRejected,
			notify.TemplateCancelled: cfg.Mail.TemplateCancelled,
		},
	}, log)
	if !dispatcher.Enabled() {
		log.Warn("MAIL_ENDPOINT not set, applicant emails will only be logged")
	}
	hub := feed.NewHub(manager, log)

	subscribers := []struct {
		name, queue string
		handle      events.Handler
	}{
		{"notify", notifyQueue, notify.Handler(dispatcher, log)},
		{"feed", feedQueue, hub.HandleEvent},
	}
	for _, s := range subscribers {
		if bus != nil {
			bus.Subscribe(s.name, s.handle)
			continue
		}
		mq, err := rabbitmq.NewConsumer(cfg.RabbitURL, s.queue)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		closers = append(closers, mq.Close)
		msgs, err := mq.Consume()
		if err != nil {
			return fmt.Errorf("failed to start consuming %s: %w", s.queue, err)
		}
		ec := consumer.NewEventConsumer(s.name, s.handle, log)
		ec.Start(msgs)
		consumers = append(consumers, ec)
	}

	provider, err := auth.NewStaticProvider(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.SessionTTL)
	if err != nil {
		return err
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())
	e.Use(echoMw.CORSWithConfig(echoMw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echoMw.BodyLimit("64K"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "guesthouse-booking"})
	})

	handler.NewBookingHandler(manager).RegisterRoutes(e)
	handler.NewAdminHandler(manager, provider, hub, cfg.CORSOrigins, log).RegisterRoutes(e)

	// No write timeout: the admin feed holds its connection open.
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	errCh := make(chan error, 1)
	go func() {
		log.Info("guesthouse-booking starting", "addr", ":"+cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	// Let in-flight event deliveries finish before the broker goes away.
	manager.Wait()
	if bus != nil {
		bus.Wait()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	for _, ec := range consumers {
		<-ec.Done()
	}
	log.Info("server stopped")
	return nil
}
