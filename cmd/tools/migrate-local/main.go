// Command migrate-local moves the pricing and curriculum an admin browser kept
// in local storage into the database.
//
//	migrate-local -file kodeit-export.json
//
// The export is a JSON object keyed by the local-storage keys; pass "-" to
// read it from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/kodeit-calculator/internal/catalog"
	"github.com/noah-isme/kodeit-calculator/internal/config"
	"github.com/noah-isme/kodeit-calculator/internal/localexport"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/platform/database"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

func main() {
	file := flag.String("file", "", "path to the local-storage export, or - for stdin")
	flag.Parse()

	cfg, err := config.LoadTooling()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("tool", "migrate-local").Logger()
	if *file == "" {
		logger.Fatal().Msg("-file is required")
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			logger.Fatal().Err(err).Msg("open export")
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	pool, err := database.New(ctx, cfg.DatabaseURL, database.Options{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	target := catalog.NewService(catalog.ServiceConfig{
		Settings: &settings.Service{Store: settings.NewPostgresStore(pool), Logger: logger},
		Logger:   logger,
	})
	importer := localexport.Importer{Target: target, Logger: logger}
	report, err := importer.Import(ctx, in)
	if err != nil {
		logger.Error().Err(err).Strs("migrated", report.Migrated).Msg("migration stopped")
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
