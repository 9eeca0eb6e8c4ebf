package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bizdesk/bizdesk/internal/auth"
	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/investments"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/platform/httpx"
	"github.com/bizdesk/bizdesk/internal/reporting"
	"github.com/bizdesk/bizdesk/internal/sales"
	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/jobs"
	"github.com/bizdesk/bizdesk/web"
)

// LoginPath is where anonymous browsers are sent.
const LoginPath = "/auth/login"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	DashboardHandler   *reporting.Handler
	CustomersHandler   *customers.Handler
	SalesHandler       *sales.Handler
	InvestmentsHandler *investments.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(shared.RequireOwner(LoginPath))
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.InvestmentsHandler != nil {
			params.InvestmentsHandler.MountRoutes(r)
		}
	})

	if params.InvestmentsHandler != nil {
		params.InvestmentsHandler.MountAPI(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
