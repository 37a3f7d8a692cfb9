package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"readingtracker/internal/api"
	"readingtracker/internal/bot"
	"readingtracker/internal/config"
	"readingtracker/internal/progress"
	"readingtracker/internal/scheduler"
	"readingtracker/internal/storage"
	"readingtracker/internal/storage/ch"
	"readingtracker/internal/storage/sqlite"
	"readingtracker/internal/storage/stubs"
	"readingtracker/internal/tracker"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        storage.Storage
	tracker   *tracker.Service
	scheduler *scheduler.Scheduler
	bot       *bot.Bot
	server    *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{config: cfg, logger: logger, ctx: ctx, cancel: cancel}

	logger.Info("Starting reading tracker", zap.String("storage_driver", cfg.StorageDriver))

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, err
	}

	profiles, err := loadProfiles(cfg.CategoryProfilesPath)
	if err != nil {
		cancel()
		return nil, err
	}
	app.tracker = tracker.New(app.db, profiles, logger)

	app.scheduler, err = scheduler.New(app.tracker, cfg.ReconcileSchedule, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create reconcile scheduler: %w", err)
	}

	if cfg.BotEnabled() {
		if err := app.initBot(); err != nil {
			cancel()
			return nil, err
		}
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	app.initHTTPServer()
	return app, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}

func loadProfiles(path string) (progress.TimeProfiles, error) {
	profiles := progress.DefaultProfiles()
	if path == "" {
		return profiles, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return progress.TimeProfiles{}, fmt.Errorf("failed to open category profiles: %w", err)
	}
	defer f.Close()
	return progress.LoadProfiles(f, profiles)
}

// initDatabase opens the configured storage backend and applies migrations
func (a *App) initDatabase() error {
	var db storage.Storage
	switch a.config.StorageDriver {
	case config.DriverMock:
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	case config.DriverSQLite:
		a.logger.Info("Opening SQLite database", zap.String("path", a.config.SQLitePath))
		sqliteDB, err := sqlite.Open(a.config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open SQLite: %w", err)
		}
		db = sqliteDB
	default:
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS))
		clickhouseDB, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	}

	ctx, cancel := context.WithTimeout(a.ctx, time.Minute)
	defer cancel()
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.tracker, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.bot = telegramBot
	return nil
}

// initHTTPServer mounts the API, health and webhook routes
func (a *App) initHTTPServer() {
	r := api.NewServer(a.tracker, a.logger).Router()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		mode := "disabled"
		switch {
		case a.bot != nil && a.config.WebhookMode:
			mode = "webhook"
		case a.bot != nil:
			mode = "polling"
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Reading tracker is running (bot: %s)", mode)
	})

	if a.bot != nil {
		a.mountWebhook(r)
	}

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (a *App) mountWebhook(r chi.Router) {
	r.Post("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleUpdate(a.ctx, update)

		w.WriteHeader(http.StatusOK)
	})
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a.scheduler.Start()

	if a.bot != nil {
		if a.config.WebhookMode {
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				a.Shutdown()
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			a.logger.Info("Webhook configured, updates arrive on /telegram-webhook")
		} else {
			go func() {
				if err := a.bot.Start(a.ctx); err != nil {
					a.logger.Error("Bot polling stopped", zap.Error(err))
				}
			}()
		}
	}

	var runErr error
	select {
	case <-sigChan:
		a.logger.Info("Shutting down...")
	case runErr = <-serverErr:
		a.logger.Error("HTTP server error", zap.Error(runErr))
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	a.cancel()
	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
