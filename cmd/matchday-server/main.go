package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/intermernet/matchday/internal/api"
	"github.com/intermernet/matchday/internal/config"
	"github.com/intermernet/matchday/internal/database"
	"github.com/intermernet/matchday/internal/email"
	"github.com/intermernet/matchday/internal/events"
	"github.com/intermernet/matchday/internal/photos"
	"github.com/intermernet/matchday/internal/realtime"
	"github.com/intermernet/matchday/internal/storage"
)

// main is the entry point for the Matchday backend server.
func main() {
	log := logrus.New()

	// --- 1. Load Configuration ---
	// A .env file is convenient in development; production sets real
	// environment variables.
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables from the system")
	}

	cfg, err := config.New()
	if err != nil {
		log.WithError(err).Fatal("failed to load application configuration")
	}
	configureLogger(log, cfg)

	// --- 2. Ensure Required Directories Exist ---
	if err := os.MkdirAll(cfg.DbPath, 0o755); err != nil {
		log.WithError(err).WithField("path", cfg.DbPath).Fatal("failed to create database directory")
	}

	// --- 3. Initialize Database Service ---
	dbService, err := database.NewService(filepath.Join(cfg.DbPath, "main.db"), log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database service")
	}
	defer dbService.Close()

	if err := dbService.Init(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to initialize database schema")
	}
	log.Info("database schema verified")

	// --- 4. Collaborators ---
	images, err := newImageStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize image storage")
	}
	pexels := photos.NewPexels(cfg.PexelsAPIKey, cfg.PexelsTimeout, log.WithField("component", "pexels"))
	broker := realtime.NewBroker(log.WithField("component", "sse"))
	emailService := email.NewEmailService(email.SMTPServerConfig{
		Host:     cfg.SmtpHost,
		Port:     cfg.SmtpPort,
		Username: cfg.SmtpUser,
		Password: cfg.SmtpPass,
		Sender:   cfg.SmtpSender,
	})
	if !cfg.SMTPEnabled() {
		log.Warn("SMTP is not configured, new accounts are verified without email")
	}

	eventService := events.NewService(events.NewSQLStore(dbService), images, pexels, broker, log.WithField("component", "events"))

	// --- 5. Set Up API Server and Routes ---
	serverAPI := api.NewServer(cfg, dbService, eventService, broker, emailService, log)
	router := chi.NewRouter()
	serverAPI.RegisterRoutes(router)

	// --- 6. Start the HTTP Server ---
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", cfg.ServerAddr).Info("matchday server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// SSE streams never finish on their own; Shutdown waits up to the
	// deadline and then the process exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown did not complete")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func newImageStore(cfg *config.Config, log *logrus.Logger) (storage.ImageStore, error) {
	switch cfg.StorageDriver {
	case config.StorageSupabase:
		log.WithField("bucket", cfg.StorageBucket).Info("using supabase image storage")
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.StorageBucket, &http.Client{Timeout: 30 * time.Second}), nil
	default:
		log.WithField("path", cfg.ImagePath).Info("using local image storage")
		return storage.NewLocal(cfg.ImagePath, cfg.PublicBaseURL+"/public/images", log.WithField("component", "storage"))
	}
}
