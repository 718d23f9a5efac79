package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"choretracker/config"
	"choretracker/docs"
	"choretracker/internal/adapters/auth"
	"choretracker/internal/adapters/email"
	httpdelivery "choretracker/internal/delivery/http"
	"choretracker/internal/delivery/http/controllers"
	"choretracker/internal/delivery/http/middleware"
	"choretracker/internal/repository/postgres"
	"choretracker/internal/services"
)

//	@title						Chore Tracker API
//	@version					1.0
//	@description				Household chore tracking: families, invitations, chores and chore logs.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	if cfg.RunMigrations {
		if err := postgres.ApplyMigrations(db); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	// Adapters
	jwt, err := auth.NewJWT(auth.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Expiry:   cfg.JWTExpiry,
		Leeway:   cfg.JWTLeeway,
	})
	if err != nil {
		return err
	}
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.Region,
			AccessKeyID:        cfg.Email.AccessKeyID,
			SecretAccessKey:    cfg.Email.SecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	inviteTokens := auth.NewInviteTokens()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	familyRepo := postgres.NewFamilyRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	choreRepo := postgres.NewChoreRepository(db)
	choreLogRepo := postgres.NewChoreLogRepository(db)

	// Services
	emailService := services.NewEmailService(mailer, renderer, logger)
	userService := services.NewUserService(userRepo, familyRepo, invitationRepo, inviteTokens, hasher, jwt, emailService, logger, cfg.ContextTimeout)
	familyService := services.NewFamilyService(familyRepo, userRepo, jwt, cfg.ContextTimeout)
	invitationService := services.NewInvitationService(invitationRepo, familyRepo, userRepo, inviteTokens, emailService, logger, services.InvitationConfig{
		TTL:                 cfg.InvitationTTL,
		AcceptURL:           cfg.InvitationAcceptURL,
		AllowResendTerminal: cfg.InvitationResendTerminal,
		ContextTimeout:      cfg.ContextTimeout,
	})
	choreService := services.NewChoreService(choreRepo, cfg.ContextTimeout)
	choreLogService := services.NewChoreLogService(choreLogRepo, choreRepo, userRepo, cfg.ContextTimeout)

	// HTTP
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	docs.SwaggerInfo.Host = ""

	handler := httpdelivery.NewHandler(httpdelivery.RouterDeps{
		Logger:         logger,
		Verifier:       jwt,
		Users:          controllers.NewUserController(logger, userService),
		Families:       controllers.NewFamilyController(logger, familyService),
		Invitations:    controllers.NewInvitationController(logger, invitationService),
		Chores:         controllers.NewChoreController(logger, choreService),
		ChoreLogs:      controllers.NewChoreLogController(logger, choreLogService),
		Metrics:        middleware.NewMetrics(registry),
		DB:             db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		StrictLimit:    rateLimit(cfg.StrictRateLimit, middleware.StrictLimit),
		PublicLimit:    rateLimit(cfg.PublicRateLimit, middleware.PublicLimit),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		return srv.Close()
	}
	logger.Info("server stopped")
	return nil
}

// rateLimit applies configured overrides on top of a built-in profile.
func rateLimit(c config.RateLimitConfig, def middleware.RateLimitConfig) middleware.RateLimitConfig {
	if c.Requests > 0 {
		def.RequestsPerWindow = c.Requests
		def.Burst = c.Requests
	}
	if c.Window > 0 {
		def.Window = c.Window
	}
	if c.Burst > 0 {
		def.Burst = c.Burst
	}
	return def
}
