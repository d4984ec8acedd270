package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"attendr/internal/engine/attendance"
	"attendr/internal/pkg/logger"
	"attendr/internal/platform/config"
	"attendr/internal/platform/database"
	"attendr/internal/platform/repositories"
	"attendr/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.String("once", "", "Sweep the given YYYY-MM-DD and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Logging, "worker")

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid attendance timezone")
	}
	at, err := config.ParseClock(cfg.Worker.AbsenceSweepAt)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid worker.absence_sweep_at")
	}

	svc := attendance.NewService(attendance.NewRepository(db), repositories.NewUserRepository(db), nil, nil, attendance.Options{
		Location: loc,
	})

	if *once != "" {
		day, err := time.ParseInLocation("2006-01-02", *once, loc)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --once date")
		}
		if err := workers.SweepAbsences(svc, day); err != nil {
			log.Fatal().Err(err).Msg("Absence sweep failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("at", cfg.Worker.AbsenceSweepAt).Str("timezone", loc.String()).Msg("Starting attendr background worker")
	runAbsenceSweepWorker(ctx, svc, at, loc)
}

func runAbsenceSweepWorker(ctx context.Context, svc workers.AbsenceSweeper, at time.Duration, loc *time.Location) {
	for {
		next := workers.NextRun(time.Now(), at, loc)
		log.Info().Time("next_run", next).Msg("Absence sweep worker sleeping")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Worker stopped")
			return
		case <-timer.C:
		}

		if err := workers.SweepAbsences(svc, next); err != nil {
			log.Error().Err(err).Msg("Absence sweep failed")
		}
	}
}
