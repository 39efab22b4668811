package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/internal/config"
	"github.com/pitabwire/studio/internal/dnd"
	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/internal/session"
	"github.com/pitabwire/studio/internal/store"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Workspace *store.Workspace
	Catalog   *catalog.Registry
	Resolver  *dnd.Resolver
	Sessions  *session.Manager

	// Optional. Nil disables replay of POST requests.
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration

	Metrics   *observability.Metrics
	Readiness observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints skip the
// per-request timeout.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Global middleware: applied to all routes including health.
	r.Use(Recovery)
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(Logging(logger))

	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		r.Handle(deps.Config.Observability.Metrics.Path, observability.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging)

		r.Get("/api/catalog", handleCatalog(deps.Catalog))
		r.Get("/api/projects", handleListProjects(deps.Workspace))

		r.Route("/api/projects/{projectId}", func(r chi.Router) {
			r.Use(ProjectContext(deps.Workspace))
			if deps.Idempotency != nil {
				r.Use(Idempotency(deps.Idempotency, deps.IdempotencyTTL))
			}

			r.Post("/open", handleGetProject)
			r.Get("/", handleGetProject)
			r.Patch("/", handlePatchProject)
			r.Post("/save", handleSave)
			r.Post("/undo", handleUndo)
			r.Post("/redo", handleRedo)
			r.Post("/seed", handleSeed)
			r.Put("/selection", handleSelection)
			r.Put("/current-page", handleCurrentPage)
			r.Put("/canvas-dark", handleCanvasDark)

			r.Post("/nodes", handleAddNode(deps.Catalog))
			r.Delete("/nodes/{nodeId}", handleRemoveNode)
			r.Post("/nodes/{nodeId}/move", handleMoveNode)
			r.Patch("/nodes/{nodeId}/props", handleUpdateProps)
			r.Patch("/nodes/{nodeId}/bindings", handleUpdateBindings)

			r.Post("/pages", handleAddPage)
			r.Delete("/pages/{pageId}", handleRemovePage)
			r.Post("/variables", handleAddVariable)
			r.Post("/data-sources", handleAddDataSource)

			r.Post("/dnd", handleDragEnd(deps.Resolver, deps.Catalog))
			r.Post("/palette/{type}", handlePaletteClick(deps.Resolver, deps.Catalog))

			r.Get("/preview", handlePreview(deps.Sessions))
			r.Post("/preview/events", handlePreviewEvent(deps.Sessions))
			r.Get("/preview/toasts", handlePreviewToasts(deps.Sessions))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "route not found")
	})

	return r
}
