// Command seeder installs the default pricing, curriculum and structure
// settings and, when SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are set, the
// bootstrap admin account. Existing settings are never overwritten.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/kodeit-calculator/internal/auth"
	"github.com/noah-isme/kodeit-calculator/internal/config"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/platform/database"
	"github.com/noah-isme/kodeit-calculator/internal/platform/migrations"
	"github.com/noah-isme/kodeit-calculator/internal/seed"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply pending migrations first")
	flag.Parse()

	cfg, err := config.LoadTooling()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("tool", "seeder").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if *migrate {
		if err := migrations.Up(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	pool, err := database.New(ctx, cfg.DatabaseURL, database.Options{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	seeder := seed.Seeder{
		Settings:      settings.NewPostgresStore(pool),
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		Logger:        logger,
	}
	if cfg.SeedAdminEmail != "" {
		// The account store only needs a signing secret to satisfy the
		// constructor; the seeder never issues tokens.
		secret := cfg.JWTSecret
		if secret == "" {
			secret = "seeder"
		}
		admins, err := auth.NewService(auth.Config{Store: auth.NewPostgresStore(pool), Secret: secret, Logger: logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise auth service")
		}
		seeder.Admins = admins
	}

	report, err := seeder.Apply(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
