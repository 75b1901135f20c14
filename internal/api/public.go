package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/fallback"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/settings"
)

const maxUpcoming = 50

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := strings.TrimSpace(r.URL.Query().Get("category"))
	if s == "" {
		list, src := h.Content.AllEvents(ctx)
		writeSourced(w, src, list)
		return
	}
	cat, src := h.Content.CategoryBySlug(ctx, s)
	if cat == nil {
		writeSourced(w, src, []any{})
		return
	}
	list, src := h.Content.EventsByCategory(ctx, cat.ID)
	writeSourced(w, src, list)
}

func (h *Handler) upcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxUpcoming)
	}
	list, src := h.Content.UpcomingEvents(r.Context(), limit)
	writeSourced(w, src, list)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	e, src := h.Content.Event(r.Context(), chi.URLParam(r, "id"))
	if e == nil {
		notFound(w, r)
		return
	}
	writeSourced(w, src, e)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, src := h.Content.AllCategories(r.Context())
	writeSourced(w, src, list)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, src := h.Content.CategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if c == nil {
		notFound(w, r)
		return
	}
	writeSourced(w, src, c)
}

func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx, q := r.Context(), r.URL.Query()
	var (
		list []recipe.Recipe
		src  fallback.Source
	)
	switch {
	case q.Get("tag") != "":
		list, src = h.Content.RecipesByTag(ctx, q.Get("tag"))
	case truthy(q.Get("featured")):
		list, src = h.Content.FeaturedRecipes(ctx)
	default:
		list, src = h.Content.AllRecipes(ctx)
	}
	writeSourced(w, src, list)
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	rec, src := h.Content.RecipeBySlug(r.Context(), chi.URLParam(r, "slug"))
	if rec == nil {
		notFound(w, r)
		return
	}
	writeSourced(w, src, rec)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx, q := r.Context(), r.URL.Query()
	var (
		list []blog.Post
		src  fallback.Source
	)
	switch {
	case q.Get("tag") != "":
		list, src = h.Content.PostsByTag(ctx, q.Get("tag"))
	case q.Get("category") != "":
		list, src = h.Content.PostsByCategory(ctx, q.Get("category"))
	case truthy(q.Get("featured")):
		list, src = h.Content.FeaturedPosts(ctx)
	default:
		list, src = h.Content.AllPosts(ctx)
	}
	writeSourced(w, src, list)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	p, src := h.Content.PostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if p == nil {
		notFound(w, r)
		return
	}
	writeSourced(w, src, p)
}

func (h *Handler) listTestimonials(w http.ResponseWriter, r *http.Request) {
	list, src := h.Content.AllTestimonials(r.Context())
	writeSourced(w, src, list)
}

// publicView strips what visitors must not see: the Instagram token and
// the internal notification addresses.
func publicView(s settings.Settings) settings.Settings {
	s = s.Clone()
	s.Instagram.AccessToken = ""
	s.MessageNotifications = settings.MessageNotifications{EmailAddresses: []string{}}
	return s
}

func (h *Handler) publicSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, publicView(h.Settings.Get(r.Context())))
}

func (h *Handler) themeCSS(w http.ResponseWriter, r *http.Request) {
	css := settings.CSS(settings.ThemeVariables(h.Settings.Get(r.Context())))
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write([]byte(css))
}

func (h *Handler) instagramFeed(w http.ResponseWriter, r *http.Request) {
	st := h.Settings.Get(r.Context())
	posts, err := h.Instagram.Posts(r.Context(), st.Instagram)
	if err != nil {
		zap.L().Warn("instagram feed unavailable", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "instagram feed unavailable")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}
