// internal/api/router.go
//
// JSON API for the public site and the admin screens.
//
// Context
// -------
// Public reads go through fallback.Content, so the site keeps rendering
// from the last good copy or from fixtures while the store is down; the
// X-Content-Source header says which one answered.  Public writes (the
// contact, gift-certificate, and newsletter forms) and every admin route
// hit the repositories directly and report 503 when the store is down.
//
// Route map
// ---------
//
//	GET  /api/events[?category=slug]   /api/events/upcoming?limit=n
//	GET  /api/events/{id}              /api/categories[/{slug}]
//	GET  /api/recipes[?tag|featured]   /api/recipes/{slug}
//	GET  /api/blog[?tag|category|featured]  /api/blog/{slug}
//	GET  /api/testimonials             /api/settings  /api/theme.css
//	GET  /api/instagram
//	POST /api/contact  /api/gift-certificates  /api/newsletter
//	     /api/admin/…                  CRUD, settings, notify
//	GET  /healthz  /readyz  /metrics
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/fallback"
	"github.com/yanizio/chefsite/internal/instagram"
	"github.com/yanizio/chefsite/internal/metrics"
	mw "github.com/yanizio/chefsite/internal/middleware"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/settings"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/testimonial"
	"github.com/yanizio/chefsite/internal/user"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	DB           *database.Provider
	Content      *fallback.Content
	Events       *event.Repository
	Categories   *event.CategoryRepository
	Users        *user.Repository
	Submissions  *submission.Repository
	Recipes      *recipe.Repository
	Posts        *blog.Repository
	Testimonials *testimonial.Repository
	Settings     *settings.Store
	Instagram    *instagram.Feed
}

// Handler serves the API.
type Handler struct {
	Deps
}

// NewHandler wraps d.
func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// Options tunes the router.
type Options struct {
	CORSOrigins []string
	HSTS        bool
}

// NewRouter mounts every route on a chi mux.
func NewRouter(h *Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.listEvents)
		r.Get("/events/upcoming", h.upcomingEvents)
		r.Get("/events/{id}", h.getEvent)
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{slug}", h.getCategory)
		r.Get("/recipes", h.listRecipes)
		r.Get("/recipes/{slug}", h.getRecipe)
		r.Get("/blog", h.listPosts)
		r.Get("/blog/{slug}", h.getPost)
		r.Get("/testimonials", h.listTestimonials)
		r.Get("/settings", h.publicSettings)
		r.Get("/theme.css", h.themeCSS)
		r.Get("/instagram", h.instagramFeed)

		r.Post("/contact", h.submitContact)
		r.Post("/gift-certificates", h.submitGift)
		r.Post("/newsletter", h.subscribe)

		r.Route("/admin", h.adminRoutes)
	})

	var root http.Handler = r
	if len(opts.CORSOrigins) > 0 {
		root = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{SourceHeader},
			AllowCredentials: true,
		}).Handler(root)
	}
	return mw.Security(opts.HSTS)(root)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case status >= 500:
			zap.L().Error("request", fields...)
		case status >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Debug("request", fields...)
		}
	})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports the store's state.  A site without a database still
// serves fixtures, so only a configured store that fails to answer makes
// the process unready.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if !h.DB.Available() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "unconfigured"})
		return
	}
	if err := h.DB.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
