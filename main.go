package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/campusbus/extrabus/auth"
	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/handlers"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/router"
)

func main() {
	// .env is optional
	if err := cliparse.LoadDotEnv(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Warn("unknown log level, using info", "log_level", cfg.LogLevel)
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema ready", "type", cfg.DatabaseType)

	var messenger notify.Messenger = notify.LogMessenger{Logger: logger}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramMessenger(cfg.TelegramToken, cfg.TelegramEndpoint, cfg.TelegramChatID,
			&http.Client{Timeout: 10 * time.Second})
		if err != nil {
			slog.Error("telegram setup failed", "error", err)
			os.Exit(1)
		}
		messenger = tg
		slog.Info("telegram messenger enabled", "chat_id", cfg.TelegramChatID)
	}

	svc := handlers.NewServices(dbConn, cfg, nil, messenger, notify.DefaultRetry(), logger)

	if cfg.BootstrapAdminID != "" {
		created, err := svc.Profiles.EnsureAdmin(context.Background(), cfg.BootstrapAdminID, cfg.BootstrapAdminEmail)
		if err != nil {
			slog.Error("bootstrap admin failed", "error", err)
			os.Exit(1)
		}
		if created {
			slog.Info("bootstrap admin created", "user_id", cfg.BootstrapAdminID,
				"user_key", auth.GenerateUserKey(cfg.BootstrapAdminID, cfg.UserKeySalt))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		svc.Poller.Run(ctx)
	}()

	// Create server
	server := http.Server{
		Handler: middleware.CORS(router.NewRouter(svc, cfg)),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("listening", "port", cfg.Port, "poll_interval", cfg.PollInterval)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("server closed", "error", err)
		stop()
	} else {
		slog.Info("server closed")
	}
	<-pollerDone
}
