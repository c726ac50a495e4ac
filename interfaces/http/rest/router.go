package rest

import (
	"net/http"
	"time"

	"canvas-backend/application/services"
	"canvas-backend/interfaces/http/rest/handlers"
	"canvas-backend/interfaces/http/rest/middleware"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router wires the HTTP surface of the canvas backend
type Router struct {
	canvasService *services.CanvasService
	nodeService   *services.NodeAdditionService
	reconciler    *services.RelationReconciler
	duplication   *services.DuplicationService
	jwtValidator  *auth.JWTValidator
	logger        *zap.Logger
	isLambda      bool
}

// NewRouter creates the REST router
func NewRouter(
	canvasService *services.CanvasService,
	nodeService *services.NodeAdditionService,
	reconciler *services.RelationReconciler,
	duplication *services.DuplicationService,
	jwtValidator *auth.JWTValidator,
	logger *zap.Logger,
	isLambda bool,
) *Router {
	return &Router{
		canvasService: canvasService,
		nodeService:   nodeService,
		reconciler:    reconciler,
		duplication:   duplication,
		jwtValidator:  jwtValidator,
		logger:        logger,
		isLambda:      isLambda,
	}
}

// Handler assembles the chi router with middleware and routes
func (rt *Router) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(chimiddleware.Timeout(30 * time.Second))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readyCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.jwtValidator, rt.isLambda))

		r.Route("/canvases", func(r chi.Router) {
			h := handlers.NewCanvasHandler(rt.canvasService, rt.nodeService, rt.reconciler, rt.duplication, rt.logger)

			r.Post("/", h.CreateCanvas)
			r.Get("/", h.ListCanvases)

			r.Route("/{canvasID}", func(r chi.Router) {
				r.Get("/", h.GetCanvas)
				r.Put("/", h.UpdateCanvas)
				r.Delete("/", h.DeleteCanvas)
				r.Get("/data", h.GetCanvasData)
				r.Post("/nodes", h.AddNode)
				r.Post("/relations/sync", h.SyncRelations)
				r.Post("/duplicate", h.DuplicateCanvas)
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readyCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
