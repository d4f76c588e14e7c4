package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/config"
	"github.com/shiftwise/console/internal/controller"
	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/lookup"
	"github.com/shiftwise/console/internal/observability"
	"github.com/shiftwise/console/internal/screen"
	"github.com/shiftwise/console/internal/wizard"
	"github.com/shiftwise/console/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config             *config.Config
	Logger             *zap.Logger
	Authenticate       func(http.Handler) http.Handler
	CapabilityResolver model.CapabilityResolver

	Screens  *screen.Provider
	Menu     *screen.MenuProvider
	Lookups  *lookup.Provider
	Sessions *controller.Manager
	Wizards  *wizard.Engine
	Registry *definition.Registry

	// Reload re-reads definition files and replaces the registry snapshot.
	// Optional; the admin reload endpoint returns 404 when nil.
	Reload func() error

	Metrics *observability.Metrics
	Ready   observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(CorrelationID)
	r.Use(SecurityHeaders)

	// Public routes, bypass authentication.
	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Ready))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler())
	}

	// Authenticated routes, full middleware chain.
	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		if deps.Config.Observability.Tracing.Enabled {
			r.Use(observability.TracingMiddleware)
		}
		r.Use(auth)
		r.Use(BuildRequestContext(deps.Config.Identity.ClaimPaths))
		r.Use(ResolveCapabilities(deps.CapabilityResolver, logger))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}

		r.Get("/api/navigation", handleNavigation(deps.Menu))
		r.Get("/api/screens/{screenId}", handleGetScreen(deps.Screens))
		r.Get("/api/screens/{screenId}/state", handleScreenState(deps.Sessions))
		r.Post("/api/screens/{screenId}/events", handleScreenEvent(deps.Sessions))
		r.Get("/api/lookups/{lookupId}", handleLookup(deps.Lookups))

		r.Post("/api/wizards/{wizardId}/start", handleWizardStart(deps.Wizards))
		r.Get("/api/wizards/{wizardId}/instances", handleWizardActive(deps.Wizards))
		r.Get("/api/wizard-instances/{instanceId}", handleWizardGet(deps.Wizards))
		r.Post("/api/wizard-instances/{instanceId}/advance", handleWizardAdvance(deps.Wizards))
		r.Post("/api/wizard-instances/{instanceId}/back", handleWizardBack(deps.Wizards))
		r.Post("/api/wizard-instances/{instanceId}/cancel", handleWizardCancel(deps.Wizards))
		r.Get("/api/wizard-instances/{instanceId}/events", handleWizardEvents(deps.Wizards))

		r.Get("/api/definitions/checksum", handleDefinitionsChecksum(deps.Registry))
		r.Post("/api/admin/definitions/reload", handleDefinitionsReload(deps))
	})

	return r
}

func handleDefinitionsChecksum(registry *definition.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			WriteNotFound(w, "definition registry not configured")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"checksum": registry.Checksum()})
	}
}

func handleDefinitionsReload(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Reload == nil {
			WriteNotFound(w, "definition reload not configured")
			return
		}
		caps := CapabilitiesFrom(r.Context())
		if !caps.HasAll("admin:definitions") {
			WriteForbidden(w, "missing capability admin:definitions")
			return
		}
		if err := deps.Reload(); err != nil {
			if deps.Metrics != nil {
				deps.Metrics.RecordDefinitionReload("failure")
			}
			WriteError(w, err)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.RecordDefinitionReload("success")
		}
		body := map[string]string{"status": "reloaded"}
		if deps.Registry != nil {
			body["checksum"] = deps.Registry.Checksum()
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
