package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"vaccine-scheduler/internal/cli"
	"vaccine-scheduler/internal/config"
	"vaccine-scheduler/internal/logger"
	"vaccine-scheduler/internal/reservation"
	"vaccine-scheduler/internal/session"
	"vaccine-scheduler/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console", "vaccine-scheduler")
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, "vaccine-scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping")
	}
	log.Info().Msg("connected to postgres")

	// run migrations
	if migration, err := os.ReadFile(cfg.MigrationsFile); err != nil {
		log.Warn().Err(err).Msg("migration file not found, skipping")
	} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
		log.Warn().Err(err).Msg("migration")
	} else {
		log.Info().Msg("migration applied")
	}

	st := store.New(pool)
	coord := reservation.New(st, st, st, log)
	sess := session.NewManager(cfg.TokenSecret, cfg.SessionTTL)

	app := cli.New(st, coord, sess, log, cli.Options{
		LoginRate:  cfg.LoginRate,
		LoginBurst: cfg.LoginBurst,
		In:         os.Stdin,
		Out:        os.Stdout,
	})
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("command loop")
	}
}
