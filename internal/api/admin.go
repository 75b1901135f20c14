package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/settings"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/testimonial"
	"github.com/yanizio/chefsite/internal/user"
)

// crud is the method set every admin collection shares.
type crud[T, P any] interface {
	All(ctx context.Context) ([]T, error)
	ByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, v T) (*T, error)
	Update(ctx context.Context, id string, p P) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// mountCRUD registers list, create, read, patch, and delete for repo.
func mountCRUD[T, P any](r chi.Router, repo crud[T, P]) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		list, err := repo.All(req.Context())
		if err != nil {
			fail(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
	r.Post("/", func(w http.ResponseWriter, req *http.Request) {
		var v T
		if !decode(w, req, &v, false) {
			return
		}
		out, err := repo.Create(req.Context(), v)
		if err != nil {
			fail(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	})
	r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
		out, err := repo.ByID(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			fail(w, req, err)
			return
		}
		if out == nil {
			notFound(w, req)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Patch("/{id}", func(w http.ResponseWriter, req *http.Request) {
		var p P
		if !decode(w, req, &p, true) {
			return
		}
		out, err := repo.Update(req.Context(), chi.URLParam(req, "id"), p)
		if err != nil {
			fail(w, req, err)
			return
		}
		if out == nil {
			notFound(w, req)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
		ok, err := repo.Delete(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			fail(w, req, err)
			return
		}
		if !ok {
			notFound(w, req)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) adminRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		mountCRUD[event.Event, event.Patch](r, h.Events)
	})
	r.Route("/categories", func(r chi.Router) {
		mountCRUD[event.Category, event.CategoryPatch](r, h.Categories)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/subscribers", h.subscribers)
		mountCRUD[user.User, user.Patch](r, h.Users)
	})
	r.Route("/submissions", func(r chi.Router) {
		r.Get("/type/{type}", h.submissionsByType)
		r.Post("/{id}/processed", h.markProcessed)
		mountCRUD[submission.Submission, submission.Patch](r, h.Submissions)
	})
	r.Route("/recipes", func(r chi.Router) {
		mountCRUD[recipe.Recipe, recipe.Patch](r, h.Recipes)
	})
	r.Route("/blog", func(r chi.Router) {
		mountCRUD[blog.Post, blog.Patch](r, h.Posts)
	})
	r.Route("/testimonials", func(r chi.Router) {
		mountCRUD[testimonial.Testimonial, testimonial.Patch](r, h.Testimonials)
	})

	r.Get("/settings", h.adminSettings)
	r.Put("/settings", h.replaceSettings)
	r.Patch("/settings", h.patchSettings)
	r.Post("/settings/preset", h.applyPreset)
	r.Post("/notify", h.notifySubscribers)
}

func (h *Handler) subscribers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.NewsletterSubscribers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) submissionsByType(w http.ResponseWriter, r *http.Request) {
	t := submission.Type(chi.URLParam(r, "type"))
	if !t.Valid() {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unknown submission type")
		return
	}
	list, err := h.Submissions.ByType(r.Context(), t)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) markProcessed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Processed *bool `json:"processed" validate:"required"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	ok, err := h.Submissions.MarkProcessed(r.Context(), chi.URLParam(r, "id"), *body.Processed)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		notFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*──────────────────────────────── settings ────────────────────────────────*/

func (h *Handler) adminSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Get(r.Context()))
}

func (h *Handler) saved(w http.ResponseWriter, r *http.Request, st settings.Settings, ok bool) {
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "settings could not be saved")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// replaceSettings stores the body as the whole object.  Keys it leaves
// out take their default values.
func (h *Handler) replaceSettings(w http.ResponseWriter, r *http.Request) {
	blob, ok := readBody(w, r)
	if !ok {
		return
	}
	st, err := settings.Merge(settings.Default(), blob)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.saved(w, r, st, h.Settings.Save(r.Context(), st))
}

func (h *Handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	blob, ok := readBody(w, r)
	if !ok {
		return
	}
	st, saved, err := h.Settings.Patch(r.Context(), blob)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.saved(w, r, st, saved)
}

func (h *Handler) applyPreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preset string `json:"preset" validate:"required"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	st, err := h.Settings.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	theme, ok := settings.ApplyPreset(st.Theme, body.Preset)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unknown preset")
		return
	}
	st.Theme = theme
	h.saved(w, r, st, h.Settings.Save(r.Context(), st))
}

/*───────────────────────────── announcements ──────────────────────────────*/

type notifyRequest struct {
	EventID   string `json:"event_id"   validate:"required"`
	EventName string `json:"event_name" validate:"required,max=255"`
}

type notifyResult struct {
	Requested int    `json:"requested"`
	Updated   int    `json:"updated"`
	Error     string `json:"error,omitempty"`
}

// notifySubscribers stamps every newsletter subscriber with the event
// being announced.  Partial progress is reported, not rolled back.
func (h *Handler) notifySubscribers(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if !decodeValid(w, r, &req) {
		return
	}
	subs, err := h.Users.NewsletterSubscribers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	ids := make([]string, len(subs))
	for i, u := range subs {
		ids[i] = u.ID
	}
	n, err := h.Users.MarkContactedAll(r.Context(), ids, user.Contact{EventID: req.EventID, EventName: req.EventName})
	res := notifyResult{Requested: len(ids), Updated: n}
	if err != nil {
		status, _, msg := mapError(err)
		res.Error = msg
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
