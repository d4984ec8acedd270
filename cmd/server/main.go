package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"attendr/internal/api"
	"attendr/internal/api/handlers"
	"attendr/internal/api/middleware"
	"attendr/internal/engine/attendance"
	"attendr/internal/engine/card"
	"attendr/internal/engine/notify"
	"attendr/internal/engine/webhooks"
	"attendr/internal/pkg/logger"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/auth"
	"attendr/internal/platform/config"
	"attendr/internal/platform/database"
	"attendr/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Logging, "server")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (set JWT_SECRET)")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Attendance.Timezone).Msg("Invalid attendance timezone")
	}
	lateAfter, err := config.ParseClock(cfg.Attendance.LateAfter)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid attendance.late_after")
	}

	branding, err := card.NewBranding(cfg.Card)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid card branding")
	}
	assets := card.NewAssetStore(cfg.Assets.Root)
	generator, err := card.NewGenerator(branding, assets)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create card generator")
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	parentRepo := repositories.NewParentRepository(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	sender := notify.NewSender(cfg.Email)
	dispatcher := notify.NewDispatcher(sender, cfg.Email.FromName, cfg.Email.Timeout)
	hooks := webhooks.NewDispatcher(cfg.Webhooks.URLs, cfg.Webhooks.Secret, cfg.Webhooks.Timeout)
	attendanceSvc := attendance.NewService(attendance.NewRepository(db), userRepo, parentRepo, dispatcher, attendance.Options{
		Location:      loc,
		LateAfter:     lateAfter,
		PayloadPrefix: branding.InstitutionTag + branding.Year,
		Events:        hooks,
	})
	trail := audit.NewLogger(db)

	cardHandler := handlers.NewCardHandler(userRepo, generator).WithAudit(trail)
	if cfg.Card.CacheTTL > 0 {
		cardHandler.WithCache(card.NewCache(cfg.Card.CacheTTL, assets))
	}

	middleware.ConfigureRateLimits(cfg.RateLimit)

	deps := &api.Dependencies{
		AuthHandler:       handlers.NewAuthHandler(userRepo, tokenSvc, branding.InstitutionTag).WithAudit(trail),
		UserHandler:       handlers.NewUserHandler(userRepo, cfg.Assets.Root, cfg.Assets.MaxUploadSize).WithAudit(trail),
		ParentHandler:     handlers.NewParentHandler(userRepo, parentRepo).WithAudit(trail),
		AttendanceHandler: handlers.NewAttendanceHandler(attendanceSvc),
		CardHandler:       cardHandler,
		AuditHandler:      handlers.NewAuditHandler(trail),
		HealthHandler:     handlers.NewHealthHandler(db),
		MetricsHandler:    handlers.NewMetricsHandler(),
		AuthMiddleware:    middleware.NewAuthMiddleware(tokenSvc),
		AssetsRoot:        cfg.Assets.Root,
	}
	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      middleware.CORS(cfg.CORS, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("email_provider", sender.Name()).
			Str("timezone", loc.String()).
			Int("webhooks", len(cfg.Webhooks.URLs)).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	hooks.Wait()
	trail.Flush()
}
