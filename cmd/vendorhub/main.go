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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/vendorhub/internal/adapter/bcrypt"
	"github.com/neomorfeo/vendorhub/internal/adapter/fsm"
	handler "github.com/neomorfeo/vendorhub/internal/adapter/http"
	"github.com/neomorfeo/vendorhub/internal/adapter/jwt"
	"github.com/neomorfeo/vendorhub/internal/adapter/mail"
	oteladapter "github.com/neomorfeo/vendorhub/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/vendorhub/internal/adapter/river"
	"github.com/neomorfeo/vendorhub/internal/adapter/sqlite"
	"github.com/neomorfeo/vendorhub/internal/adapter/ws"
	"github.com/neomorfeo/vendorhub/internal/app"
	"github.com/neomorfeo/vendorhub/internal/config"
	"github.com/neomorfeo/vendorhub/internal/domain"
)

const (
	serviceName = "vendorhub"
	version     = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("vendorhub exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(newLogger(cfg))
	slog.Info("configuration loaded", cfg.LogAttrs()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := oteladapter.Setup(ctx, oteladapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	hub := ws.NewHub()
	defer hub.Close()

	riverClient, err := riveradapter.Setup(ctx, db, hub)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	// Workers outlive the signal context so in-flight jobs finish during Stop.
	if err := riverClient.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	publisher, err := oteladapter.NewTracingPublisher(riveradapter.NewPublisher(riverClient))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	tokens, err := jwt.New(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	hasher := bcrypt.New(cfg.BcryptCost)

	// --- Application ---
	vendors := app.NewVendorService(
		oteladapter.NewTracingRepository(repo),
		publisher,
		fsm.New(),
		hasher,
		credentialSender(cfg.SMTP),
	)
	auth := app.NewAuthService(oteladapter.NewTracingAdminRepository(repo), hasher, tokens)

	if err := seedAdmin(ctx, auth, cfg.Admin); err != nil {
		return err
	}

	// --- Adapters (in) ---
	router := newRouter(cfg)
	api := humachi.New(router, apiConfig())
	handler.Register(api, vendors, auth, tokens)
	router.Handle("/ws", hub.Handler(tokens, cfg.Server.CORSAllowedOrigins))

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("vendorhub listening", "addr", srv.Addr, "docs", "http://localhost:"+cfg.Server.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	slog.Info("stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newRouter(cfg *config.Config) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	return router
}

func apiConfig() huma.Config {
	humaConfig := huma.DefaultConfig(serviceName, version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		handler.SecurityScheme: {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	return humaConfig
}

func credentialSender(cfg config.SMTPConfig) domain.CredentialSender {
	if cfg.Host == "" {
		return mail.LogSender{}
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(ctx context.Context, auth *app.AuthService, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		slog.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	created, err := auth.EnsureAdmin(ctx, cfg.Name, cfg.Email, cfg.Password, domain.RoleVendor)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if created {
		slog.Info("admin account created", "email", cfg.Email)
	}
	return nil
}
