// Package app assembles the HTTP API from its stores and infrastructure.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/audit"
	"github.com/noah-isme/kodeit-calculator/internal/auth"
	"github.com/noah-isme/kodeit-calculator/internal/config"
	"github.com/noah-isme/kodeit-calculator/internal/health"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

// Dependencies enumerates what the router is built from. Stores left nil are
// derived from DB; Redis is optional throughout.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry

	Settings settings.Store
	Users    auth.Store
	Audit    audit.Store
	Checker  health.Checker
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Config == nil {
		d.Config = &config.Config{}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Settings == nil && d.DB != nil {
		d.Settings = settings.NewPostgresStore(d.DB)
	}
	if d.Users == nil && d.DB != nil {
		d.Users = auth.NewPostgresStore(d.DB)
	}
	if d.Audit == nil && d.DB != nil {
		d.Audit = audit.NewPostgresStore(d.DB)
	}
	if d.Checker == nil {
		d.Checker = health.Probes{DB: d.DB, Redis: d.Redis}
	}
	return d
}
