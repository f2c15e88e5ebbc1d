package app

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/kodeit-calculator/internal/audit"
	"github.com/noah-isme/kodeit-calculator/internal/auth"
	"github.com/noah-isme/kodeit-calculator/internal/catalog"
	"github.com/noah-isme/kodeit-calculator/internal/health"
	"github.com/noah-isme/kodeit-calculator/internal/lock"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/quote"
	"github.com/noah-isme/kodeit-calculator/internal/ratelimit"
	"github.com/noah-isme/kodeit-calculator/internal/security"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

const (
	loginLimiterPrefix = "kodeit:ratelimit:login:"
	lockPrefix         = "kodeit:lock:"
)

// API is the assembled HTTP surface.
type API struct {
	Handler http.Handler
	Auth    *auth.Service
	Hub     *settings.Hub
}

// NewAPI wires services and handlers and returns the router.
func NewAPI(in Dependencies) (*API, error) {
	deps := in.withDefaults()
	cfg := deps.Config
	logger := deps.Logger
	if deps.Settings == nil || deps.Users == nil {
		return nil, errors.New("app: settings and user stores are required")
	}

	namespace := cfg.Obs.MetricsNamespace
	if namespace == "" {
		namespace = "kodeit"
	}
	metrics := obs.NewDomainMetrics(namespace, deps.Registry)

	hub := &settings.Hub{
		Logger:         logger,
		Metrics:        metrics,
		OriginPatterns: originPatterns(cfg.CORSAllowedOrigins),
	}
	settingsSvc := &settings.Service{
		Store:    deps.Settings,
		Notifier: hub,
		Metrics:  metrics,
		Logger:   logger,
	}
	if deps.Redis != nil {
		settingsSvc.Cache = settings.NewCache(deps.Redis, cfg.SettingsCacheTTL)
	}

	catalogCfg := catalog.ServiceConfig{
		Settings: settingsSvc,
		Metrics:  metrics,
		Logger:   logger,
		NewID:    uuid.NewString,
	}
	if deps.Redis != nil {
		catalogCfg.Locker = lock.Redis{Client: deps.Redis, Prefix: lockPrefix}
	}
	catalogSvc := catalog.NewService(catalogCfg)

	authSvc, err := auth.NewService(auth.Config{
		Store:          deps.Users,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	loginRate := cfg.LoginRateLimit
	if loginRate == "" {
		loginRate = "10-M"
	}
	limiterStore, err := ratelimit.NewStore(deps.Redis, loginLimiterPrefix)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := ratelimit.NewFixed(loginRate, limiterStore)
	if err != nil {
		return nil, err
	}

	auditSvc := &audit.Service{
		Store:        deps.Audit,
		Enabled:      cfg.AuditEnabled && deps.Audit != nil,
		SamplingRate: cfg.AuditSamplingRate,
	}
	recorder := audit.HTTPRecorder{
		Service: auditSvc,
		OnError: func(err error) { logger.Warn().Err(err).Msg("audit record failed") },
	}

	settingsHandler := &settings.Handler{Service: settingsSvc, Hub: hub}
	catalogHandler := &catalog.Handler{Service: catalogSvc}
	quoteHandler := &quote.Handler{Service: &quote.Service{Catalog: catalogSvc, Metrics: metrics, Logger: logger}}
	authHandler := &auth.Handler{Service: authSvc}
	auditHandler := audit.Handler{Service: auditSvc}
	healthHandler := health.Handler{Checker: deps.Checker}
	authMiddleware := auth.Middleware{Service: authSvc}

	// writes authenticates the admin and records the action once handled.
	writes := func(r chi.Router) chi.Router {
		return r.With(authMiddleware.RequireAuth, recorder.Middleware(audit.HTTPConfig{}))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Obs.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.EnablePrometheus {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(namespace, obs.ParseBucketsCSV(cfg.Obs.HTTPBuckets), deps.Registry)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: cfg.BodyMaxBytes, UploadMax: cfg.UploadMaxBytes}.Middleware)

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler.API)

		api.Route("/admin_settings", func(s chi.Router) {
			s.Get("/stream", settingsHandler.Stream)
			s.Get("/type/{type}", settingsHandler.ByType)
			s.Get("/{id}", settingsHandler.Get)
			writes(s).Post("/", settingsHandler.Create)
			writes(s).Put("/{id}", settingsHandler.Put)
			writes(s).Delete("/{id}", settingsHandler.Delete)
		})

		api.Get("/pricing", catalogHandler.Pricing)
		writes(api).Put("/pricing", catalogHandler.SavePricing)

		api.Route("/curriculum", func(c chi.Router) {
			c.Get("/", catalogHandler.Curriculum)
			c.Get("/structure", catalogHandler.Structure)
			c.Get("/import/sample.csv", catalogHandler.SampleCSV)
			c.Get("/import/sample.xlsx", catalogHandler.SampleXLSX)
			c.Group(func(w chi.Router) {
				w.Use(authMiddleware.RequireAuth)
				w.Use(recorder.Middleware(audit.HTTPConfig{}))
				w.Put("/", catalogHandler.SaveCurriculum)
				w.Put("/structure", catalogHandler.SaveStructure)
				w.Post("/import", catalogHandler.Import)
				w.Post("/levels/{levelID}/books", catalogHandler.AddBook)
				w.Patch("/books/{bookID}", catalogHandler.UpdateBook)
				w.Delete("/books/{bookID}", catalogHandler.DeleteBook)
				w.Delete("/books", catalogHandler.ClearBooks)
			})
		})

		api.Route("/quotes", func(q chi.Router) {
			q.Post("/", quoteHandler.Create)
			q.Get("/currencies", quoteHandler.Currencies)
		})

		api.Route("/admin_users", func(u chi.Router) {
			u.With(ratelimit.Handler{
				Limiter: loginLimiter,
				Key:     ratelimit.ByClientIP(""),
				OnError: func(err error) { logger.Warn().Err(err).Msg("login limiter unavailable") },
			}.Middleware).Post("/login", authHandler.Login)

			u.Group(func(a chi.Router) {
				a.Use(authMiddleware.RequireAuth)
				a.Use(recorder.Middleware(audit.HTTPConfig{Resource: "admin_users"}))
				a.Post("/register", authHandler.Register)
				a.Get("/", authHandler.List)
				a.Get("/{id}", authHandler.Get)
				a.Put("/{id}/deactivate", authHandler.Deactivate)
				a.Delete("/{id}", authHandler.Delete)
				a.Put("/{id}/password", authHandler.UpdatePassword)
			})
		})

		api.With(authMiddleware.RequireAuth, auth.RequireRole(auth.RoleAdmin)).Get("/admin_audit", auditHandler.List)
	})

	var handler http.Handler = r
	if cfg.Obs.EnableTracing {
		handler = otelhttp.NewHandler(r, "kodeit-api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	}
	return &API{Handler: handler, Auth: authSvc, Hub: hub}, nil
}

// ShutdownGrace is how long in-flight requests get after a stop signal.
const ShutdownGrace = 15 * time.Second

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// originPatterns turns CORS origins into the host patterns the websocket
// handshake matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
